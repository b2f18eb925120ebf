package types

import (
	"harperls.dev/harper-ls/internal/config"
	"harperls.dev/harper-ls/internal/diagnostics"
	"harperls.dev/harper-ls/internal/dictionary"
	"harperls.dev/harper-ls/internal/documents"
	"github.com/tliron/glsp"
)

// ServerContext provides all dependencies needed for LSP handlers.
// Handlers depend on this interface rather than the concrete server so they
// can be tested against a mock.
type ServerContext interface {
	// Document operations
	Document(uri string) *documents.Document
	DocumentManager() *documents.Manager
	AllDocuments() []*documents.Document

	// Configuration and dictionaries
	Config() *config.Config
	Dictionary() *dictionary.Store

	// Workspace operations
	RootURI() string
	RootPath() string
	SetRootURI(uri string)
	SetRootPath(path string)

	// LSP context used for server-initiated notifications
	GLSPContext() *glsp.Context
	SetGLSPContext(ctx *glsp.Context)

	// RegisterFileWatchers asks the client to report edits to the
	// dictionary files.
	RegisterFileWatchers(ctx *glsp.Context) error

	// Linting. ScheduleLint returns immediately; results are published
	// asynchronously once current.
	ScheduleLint(uri string)
	ScheduleLintAll()
	CancelLint(uri string)

	// PublishDiagnostics sends the full diagnostic set of report.
	PublishDiagnostics(ctx *glsp.Context, report *diagnostics.Report)

	// Shutdown stops background linting.
	Shutdown()
}
