package lsp

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"harperls.dev/harper-ls/internal/analysis"
	"harperls.dev/harper-ls/internal/config"
	"harperls.dev/harper-ls/internal/diagnostics"
	"harperls.dev/harper-ls/lsp/methods/textDocument"
	"harperls.dev/harper-ls/lsp/methods/workspace"
	"harperls.dev/harper-ls/lsp/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.UserDictPath = filepath.Join(dir, "dictionary.txt")
	cfg.FileDictPath = filepath.Join(dir, "file_dictionaries")
	return cfg
}

func newTestServerWithConfig(t *testing.T, cfg *config.Config, opts ...Option) *Server {
	t.Helper()
	s, err := NewServer(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	return newTestServerWithConfig(t, testConfig(t), opts...)
}

// recorder collects the diagnostics a client would receive.
type recorder struct {
	mu        sync.Mutex
	published []protocol.PublishDiagnosticsParams
}

func (r *recorder) context() *glsp.Context {
	return &glsp.Context{
		Notify: func(method string, params any) {
			if method != protocol.ServerTextDocumentPublishDiagnostics {
				return
			}
			r.mu.Lock()
			defer r.mu.Unlock()
			r.published = append(r.published, params.(protocol.PublishDiagnosticsParams))
		},
	}
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.published)
}

// last returns the most recent diagnostics published for uri.
func (r *recorder) last(uri string) ([]protocol.Diagnostic, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.published) - 1; i >= 0; i-- {
		if r.published[i].URI == uri {
			return r.published[i].Diagnostics, true
		}
	}
	return nil, false
}

func (r *recorder) all(uri string) [][]protocol.Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out [][]protocol.Diagnostic
	for _, p := range r.published {
		if p.URI == uri {
			out = append(out, p.Diagnostics)
		}
	}
	return out
}

type harness struct {
	server *Server
	rec    *recorder
	req    *types.RequestContext
}

func newHarness(t *testing.T, s *Server) *harness {
	t.Helper()
	rec := &recorder{}
	ctx := rec.context()
	s.SetGLSPContext(ctx)
	return &harness{server: s, rec: rec, req: types.NewRequestContext(s, ctx)}
}

func (h *harness) open(t *testing.T, uri, languageID, text string) {
	t.Helper()
	require.NoError(t, textDocument.DidOpen(h.req, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, LanguageID: languageID, Version: 1, Text: text},
	}))
}

func (h *harness) replace(t *testing.T, uri string, version int, text string) {
	t.Helper()
	require.NoError(t, textDocument.DidChange(h.req, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
			Version:                protocol.Integer(version),
		},
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: text}},
	}))
}

// waitDiagnostics waits until the latest publish for uri has n diagnostics.
func (h *harness) waitDiagnostics(t *testing.T, uri string, n int) []protocol.Diagnostic {
	t.Helper()
	var got []protocol.Diagnostic
	require.Eventually(t, func() bool {
		diags, ok := h.rec.last(uri)
		got = diags
		return ok && len(diags) == n
	}, waitFor, tick)
	return got
}

func code(d protocol.Diagnostic) string {
	if d.Code == nil {
		return ""
	}
	s, _ := d.Code.Value.(string)
	return s
}

func TestNewServerDefaults(t *testing.T) {
	s := newTestServer(t)
	assert.NotNil(t, s.Config())
	assert.NotNil(t, s.Dictionary())
	assert.NotNil(t, s.cache, "default config enables the lint cache")
	assert.Empty(t, s.AllDocuments())

	userPath, fileDir := s.Dictionary().Paths()
	assert.Equal(t, s.Config().UserDictPath, userPath)
	assert.Equal(t, s.Config().FileDictPath, fileDir)
}

func TestNewServerWithoutCache(t *testing.T) {
	cfg := testConfig(t)
	cfg.CacheSize = 0
	s := newTestServerWithConfig(t, cfg)
	assert.Nil(t, s.cache)
}

func TestLintPlainText(t *testing.T) {
	h := newHarness(t, newTestServer(t))
	uri := "file:///workspace/notes.txt"

	h.open(t, uri, "plaintext", "The cat sat on teh mat.")

	diags := h.waitDiagnostics(t, uri, 1)
	assert.Equal(t, string(analysis.KindSpelling), code(diags[0]))
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 0, Character: 15},
		End:   protocol.Position{Line: 0, Character: 18},
	}, diags[0].Range)
	require.NotNil(t, diags[0].Source)
	assert.Equal(t, diagnostics.Source, *diags[0].Source)
}

func TestLintPythonComment(t *testing.T) {
	h := newHarness(t, newTestServer(t))
	uri := "file:///workspace/main.py"

	h.open(t, uri, "python", "x = 1  # comment with an eror")

	require.Eventually(t, func() bool {
		diags, ok := h.rec.last(uri)
		if !ok {
			return false
		}
		for _, d := range diags {
			if code(d) == string(analysis.KindSpelling) && d.Range.Start.Character == 25 {
				return true
			}
		}
		return false
	}, waitFor, tick)
}

func TestDictionaryCommandRelints(t *testing.T) {
	h := newHarness(t, newTestServer(t))
	uri := "file:///workspace/notes.txt"

	h.open(t, uri, "plaintext", "The cat sat on teh mat.")
	h.waitDiagnostics(t, uri, 1)

	_, err := workspace.ExecuteCommand(h.req, &protocol.ExecuteCommandParams{
		Command:   diagnostics.CommandIgnoreForSession,
		Arguments: []any{"teh", uri},
	})
	require.NoError(t, err)

	h.waitDiagnostics(t, uri, 0)
}

func TestAddToUserDictionaryPersists(t *testing.T) {
	cfg := testConfig(t)
	h := newHarness(t, newTestServerWithConfig(t, cfg))
	uri := "file:///workspace/notes.txt"

	h.open(t, uri, "plaintext", "Read teh book")
	h.waitDiagnostics(t, uri, 1)

	_, err := workspace.ExecuteCommand(h.req, &protocol.ExecuteCommandParams{
		Command:   diagnostics.CommandAddToUserDictionary,
		Arguments: []any{"teh", uri},
	})
	require.NoError(t, err)
	h.waitDiagnostics(t, uri, 0)

	// A second server reading the same dictionary accepts the word.
	other := newHarness(t, newTestServerWithConfig(t, cfg))
	other.open(t, uri, "plaintext", "Read teh book")
	other.waitDiagnostics(t, uri, 0)
}

func TestCloseClearsAndReopenRelints(t *testing.T) {
	h := newHarness(t, newTestServer(t))
	uri := "file:///workspace/notes.txt"

	h.open(t, uri, "plaintext", "The cat sat on teh mat.")
	h.waitDiagnostics(t, uri, 1)

	require.NoError(t, textDocument.DidClose(h.req, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	}))
	diags, ok := h.rec.last(uri)
	require.True(t, ok)
	assert.Empty(t, diags, "close publishes an empty set synchronously")
	assert.Nil(t, h.server.Document(uri))

	h.open(t, uri, "plaintext", "The cat sat on teh mat.")
	h.waitDiagnostics(t, uri, 1)
}

func TestCloseUnknownDocumentIsNotAnError(t *testing.T) {
	h := newHarness(t, newTestServer(t))
	err := textDocument.DidClose(h.req, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: "file:///never/opened.txt"},
	})
	assert.NoError(t, err)
	assert.Len(t, h.req.Warnings(), 1)
	assert.Zero(t, h.rec.count())
}

// gatedLinter blocks its first lint until released and ignores
// cancellation while blocked.
type gatedLinter struct {
	inner   analysis.Linter
	first   atomic.Bool
	started chan struct{}
	release chan struct{}
}

func newGatedLinter() *gatedLinter {
	return &gatedLinter{
		inner:   analysis.NewEngine(nil, analysis.AllRules()),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedLinter) Lint(ctx context.Context, in analysis.Input) []analysis.Finding {
	if g.first.CompareAndSwap(false, true) {
		close(g.started)
		<-g.release
	}
	return g.inner.Lint(ctx, in)
}

func TestStaleResultIsDiscarded(t *testing.T) {
	gate := newGatedLinter()
	h := newHarness(t, newTestServer(t, WithLinter(gate)))
	uri := "file:///workspace/notes.txt"

	h.open(t, uri, "plaintext", "The cat sat on teh mat.")
	<-gate.started

	h.replace(t, uri, 2, "The cat sat on the mat.")
	close(gate.release)

	h.waitDiagnostics(t, uri, 0)
	time.Sleep(50 * time.Millisecond)
	for _, diags := range h.rec.all(uri) {
		assert.Empty(t, diags, "the version 1 result must never be published")
	}
}

func TestEditsApplyInOrder(t *testing.T) {
	h := newHarness(t, newTestServer(t))
	uri := "file:///workspace/notes.txt"

	h.open(t, uri, "plaintext", "The cat")
	for i, text := range []string{"The cat sat", "The cat sat on", "The cat sat on teh"} {
		h.replace(t, uri, i+2, text)
	}

	assert.Equal(t, "The cat sat on teh", h.server.Document(uri).Content())
	assert.Equal(t, 4, h.server.Document(uri).Version())
	h.waitDiagnostics(t, uri, 1)
}

func TestOlderVersionIsRejected(t *testing.T) {
	h := newHarness(t, newTestServer(t))
	uri := "file:///workspace/notes.txt"

	h.open(t, uri, "plaintext", "The cat")
	h.replace(t, uri, 3, "The dog")

	err := textDocument.DidChange(h.req, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
			Version:                2,
		},
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: "stale"}},
	})
	assert.Error(t, err)
	assert.Equal(t, "The dog", h.server.Document(uri).Content())
}

func TestLintIsIdempotent(t *testing.T) {
	h := newHarness(t, newTestServer(t))
	uri := "file:///workspace/notes.txt"

	h.open(t, uri, "plaintext", "The the cat sat on teh mat.")
	first := h.waitDiagnostics(t, uri, 2)

	before := h.rec.count()
	h.server.ScheduleLint(uri)
	require.Eventually(t, func() bool { return h.rec.count() > before }, waitFor, tick)

	second, _ := h.rec.last(uri)
	assert.Equal(t, first, second)
}

func TestIgnoredFilePublishesEmpty(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ignore = []string{"**/*.lock"}
	h := newHarness(t, newTestServerWithConfig(t, cfg))
	uri := "file:///workspace/deps.lock"

	h.open(t, uri, "plaintext", "teh teh teh")

	diags := h.waitDiagnostics(t, uri, 0)
	assert.Empty(t, diags)
}

func TestLintOnSave(t *testing.T) {
	cfg := testConfig(t)
	cfg.LintOn = config.LintOnSave
	h := newHarness(t, newTestServerWithConfig(t, cfg))
	uri := "file:///workspace/notes.txt"

	h.open(t, uri, "plaintext", "The cat")
	h.waitDiagnostics(t, uri, 0)

	h.replace(t, uri, 2, "The cat sat on teh mat.")
	time.Sleep(50 * time.Millisecond)
	diags, _ := h.rec.last(uri)
	assert.Empty(t, diags, "changes do not lint in save mode")

	require.NoError(t, textDocument.DidSave(h.req, &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	}))
	h.waitDiagnostics(t, uri, 1)
}

func TestDictionaryWatchers(t *testing.T) {
	cfg := testConfig(t)
	s := newTestServerWithConfig(t, cfg)

	watchers := s.dictionaryWatchers()
	require.Len(t, watchers, 2)
	assert.Equal(t, filepath.ToSlash(cfg.UserDictPath), watchers[0].GlobPattern)
	assert.True(t, strings.HasSuffix(fmt.Sprint(watchers[1].GlobPattern), "file_dictionaries/*"))

	assert.NoError(t, s.RegisterFileWatchers(nil))
	assert.NoError(t, s.RegisterFileWatchers(&glsp.Context{}))
}

func TestServeOneRefusesSecondClient(t *testing.T) {
	s := newTestServer(t)
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.serveOne(listener) }()

	first, err := net.Dial("tcp", listener.Addr().String())
	require.NoError(t, err)

	second, err := net.Dial("tcp", listener.Addr().String())
	require.NoError(t, err)
	defer second.Close()

	require.NoError(t, second.SetReadDeadline(time.Now().Add(waitFor)))
	_, err = second.Read(make([]byte, 1))
	assert.Error(t, err, "the second connection is closed by the server")

	require.NoError(t, first.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("serveOne did not return after the client disconnected")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	s, err := NewServer(testConfig(t))
	require.NoError(t, err)
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}
