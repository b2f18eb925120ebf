package lsp

import (
	"fmt"
	"runtime/debug"

	"harperls.dev/harper-ls/internal/log"
	"harperls.dev/harper-ls/lsp/methods/workspace"
	"harperls.dev/harper-ls/lsp/types"
	"github.com/tliron/glsp"
)

// method wraps an LSP request handler with panic recovery, logging and
// error wrapping. It returns the function type protocol.Handler expects.
func method[P, R any](
	s types.ServerContext,
	methodName string,
	handler func(*types.RequestContext, P) (R, error),
) func(*glsp.Context, P) (R, error) {
	return func(ctx *glsp.Context, params P) (result R, err error) {
		defer recoverPanic(ctx, methodName, &err)

		log.Debug("%s started", methodName)
		req := types.NewRequestContext(s, ctx)
		result, err = handler(req, params)
		if err = finish(req, methodName, err); err != nil {
			var zero R
			return zero, err
		}
		return result, nil
	}
}

// notify wraps an LSP notification handler that returns only error
func notify[P any](
	s types.ServerContext,
	methodName string,
	handler func(*types.RequestContext, P) error,
) func(*glsp.Context, P) error {
	return func(ctx *glsp.Context, params P) (err error) {
		defer recoverPanic(ctx, methodName, &err)

		log.Debug("%s started", methodName)
		req := types.NewRequestContext(s, ctx)
		return finish(req, methodName, handler(req, params))
	}
}

// noParam wraps an LSP handler that takes no params (like Shutdown)
func noParam(
	s types.ServerContext,
	methodName string,
	handler func(*types.RequestContext) error,
) func(*glsp.Context) error {
	return func(ctx *glsp.Context) (err error) {
		defer recoverPanic(ctx, methodName, &err)

		log.Debug("%s started", methodName)
		req := types.NewRequestContext(s, ctx)
		return finish(req, methodName, handler(req))
	}
}

// recoverPanic keeps a panicking handler from taking the server down.
func recoverPanic(ctx *glsp.Context, methodName string, err *error) {
	r := recover()
	if r == nil {
		return
	}
	log.Error("PANIC in %s: %v\nStack trace:\n%s", methodName, r, debug.Stack())
	workspace.LogError(ctx, "Internal error in %s: %v", methodName, r)
	*err = fmt.Errorf("internal error in %s", methodName)
}

// finish logs collected warnings and wraps a handler error with the method
// name.
func finish(req *types.RequestContext, methodName string, err error) error {
	for _, w := range req.Warnings() {
		workspace.LogWarning(req.GLSP, "%s: %v", methodName, w)
	}
	if err != nil {
		workspace.LogError(req.GLSP, "%s: %v", methodName, err)
		return fmt.Errorf("%s: %w", methodName, err)
	}
	log.Debug("%s completed", methodName)
	return nil
}
