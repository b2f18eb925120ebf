package lsp

import (
	"bytes"
	"errors"
	"testing"

	"harperls.dev/harper-ls/internal/log"
	"harperls.dev/harper-ls/lsp/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLog(t *testing.T, level log.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	previous := log.GetLevel()
	log.SetOutput(&buf)
	log.SetLevel(level)
	t.Cleanup(func() {
		log.SetOutput(nil)
		log.SetLevel(previous)
	})
	return &buf
}

func TestMethod_PanicRecovery(t *testing.T) {
	logBuf := captureLog(t, log.LevelInfo)

	panicHandler := func(req *types.RequestContext, params string) (string, error) {
		panic("test panic")
	}
	wrapped := method(nil, "testMethod", panicHandler)

	// A nil context skips the client notification.
	result, err := wrapped(nil, "test params")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "internal error in testMethod")
	assert.Empty(t, result)
	assert.Contains(t, logBuf.String(), "PANIC")
}

func TestMethod_ErrorWrapping(t *testing.T) {
	logBuf := captureLog(t, log.LevelInfo)
	cause := errors.New("handler error")

	wrapped := method(nil, "testMethod", func(req *types.RequestContext, params string) (string, error) {
		return "partial", cause
	})
	result, err := wrapped(nil, "params")

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "testMethod: handler error", err.Error())
	assert.Empty(t, result, "results are dropped on error")
	assert.Contains(t, logBuf.String(), "handler error")
}

func TestMethod_SuccessLogging(t *testing.T) {
	logBuf := captureLog(t, log.LevelDebug)

	wrapped := method(nil, "testMethod", func(req *types.RequestContext, params string) (string, error) {
		return "success result", nil
	})
	result, err := wrapped(nil, "params")

	require.NoError(t, err)
	assert.Equal(t, "success result", result)
	assert.Contains(t, logBuf.String(), "testMethod started")
	assert.Contains(t, logBuf.String(), "testMethod completed")
}

func TestMethod_Warnings(t *testing.T) {
	logBuf := captureLog(t, log.LevelInfo)

	wrapped := method(nil, "testMethod", func(req *types.RequestContext, params string) (string, error) {
		req.AddWarning(errors.New("dictionary not writable"))
		return "ok", nil
	})
	result, err := wrapped(nil, "params")

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Contains(t, logBuf.String(), "WARN testMethod: dictionary not writable")
}

func TestNotify_PanicRecovery(t *testing.T) {
	logBuf := captureLog(t, log.LevelInfo)

	wrapped := notify(nil, "testNotify", func(req *types.RequestContext, params int) error {
		panic("notify panic")
	})
	err := wrapped(nil, 42)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "internal error")
	assert.Contains(t, logBuf.String(), "PANIC")
}

func TestNotify_PassesServer(t *testing.T) {
	captureLog(t, log.LevelInfo)
	s := newTestServer(t)

	var got types.ServerContext
	wrapped := notify(s, "testNotify", func(req *types.RequestContext, params int) error {
		got = req.Server
		return nil
	})
	require.NoError(t, wrapped(nil, 1))
	assert.Same(t, s, got)
}

func TestNoParam_PanicRecovery(t *testing.T) {
	logBuf := captureLog(t, log.LevelInfo)

	wrapped := noParam(nil, "shutdown", func(req *types.RequestContext) error {
		panic("noParam panic")
	})
	err := wrapped(nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "internal error")
	assert.Contains(t, logBuf.String(), "PANIC")
}

func TestNoParam_Success(t *testing.T) {
	logBuf := captureLog(t, log.LevelDebug)

	wrapped := noParam(nil, "shutdown", func(req *types.RequestContext) error {
		return nil
	})

	require.NoError(t, wrapped(nil))
	assert.Contains(t, logBuf.String(), "shutdown completed")
}
