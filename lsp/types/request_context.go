package types

import (
	"fmt"

	"harperls.dev/harper-ls/internal/documents"
	"github.com/tliron/glsp"
)

// RequestContext carries one LSP call: the server it runs against, the
// client connection, and the non-fatal problems met on the way.
type RequestContext struct {
	Server ServerContext
	// GLSP is nil for calls made outside a client connection
	GLSP     *glsp.Context
	warnings []error
}

// NewRequestContext creates a new request context
func NewRequestContext(server ServerContext, glsp *glsp.Context) *RequestContext {
	return &RequestContext{
		Server: server,
		GLSP:   glsp,
	}
}

// OpenDocument returns the open document at uri, or an error wrapping
// documents.ErrNotFound.
func (r *RequestContext) OpenDocument(uri string) (*documents.Document, error) {
	doc := r.Server.Document(uri)
	if doc == nil {
		return nil, fmt.Errorf("%w: %s", documents.ErrNotFound, uri)
	}
	return doc, nil
}

// AddWarning records a non-fatal problem. The middleware reports warnings
// to the client after the handler returns.
func (r *RequestContext) AddWarning(err error) {
	if err != nil {
		r.warnings = append(r.warnings, err)
	}
}

// Warnf records a formatted warning.
func (r *RequestContext) Warnf(format string, args ...any) {
	r.AddWarning(fmt.Errorf(format, args...))
}

// Warnings returns the warnings in the order they were added, or nil.
func (r *RequestContext) Warnings() []error {
	return r.warnings
}

// HasWarnings returns true if any warnings were collected
func (r *RequestContext) HasWarnings() bool {
	return len(r.warnings) > 0
}
