package lsp

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"harperls.dev/harper-ls/internal/analysis"
	"harperls.dev/harper-ls/internal/config"
	"harperls.dev/harper-ls/internal/diagnostics"
	"harperls.dev/harper-ls/internal/dictionary"
	"harperls.dev/harper-ls/internal/documents"
	"harperls.dev/harper-ls/internal/log"
	"harperls.dev/harper-ls/internal/prose"
	"harperls.dev/harper-ls/internal/scheduler"
	"harperls.dev/harper-ls/lsp/methods/lifecycle"
	"harperls.dev/harper-ls/lsp/methods/textDocument"
	codeaction "harperls.dev/harper-ls/lsp/methods/textDocument/codeAction"
	"harperls.dev/harper-ls/lsp/methods/textDocument/completion"
	"harperls.dev/harper-ls/lsp/methods/textDocument/hover"
	"harperls.dev/harper-ls/lsp/methods/workspace"
	"harperls.dev/harper-ls/lsp/types"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
)

// Verify that Server implements ServerContext interface
var _ types.ServerContext = (*Server)(nil)

// DefaultAddress is the TCP listen address used without --stdio.
const DefaultAddress = "127.0.0.1:4000"

// Server is the harper language server. It owns the open documents and
// lints them in the background, publishing diagnostics as results become
// current.
type Server struct {
	cfg        *config.Config
	documents  *documents.Manager
	extractor  *prose.Extractor
	dictionary *dictionary.Store
	linter     analysis.Linter
	cache      *analysis.CachedLinter
	scheduler  *scheduler.Scheduler
	glspServer *server.Server

	mu       sync.RWMutex // protects context, rootURI and rootPath
	context  *glsp.Context
	rootURI  string
	rootPath string

	closeOnce sync.Once
}

// Option configures a Server.
type Option func(*options)

type options struct {
	linter      analysis.Linter
	parallelism int
}

// WithLinter replaces the built-in analysis engine.
func WithLinter(l analysis.Linter) Option {
	return func(o *options) { o.linter = l }
}

// WithParallelism bounds how many documents lint at once. Values below one
// use GOMAXPROCS.
func WithParallelism(n int) Option {
	return func(o *options) { o.parallelism = n }
}

// NewServer creates a server for cfg. A nil cfg uses config.Default().
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	store, err := dictionary.Open(cfg.UserDictPath, cfg.FileDictPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open dictionaries: %w", err)
	}

	s := &Server{
		cfg:        cfg,
		documents:  documents.NewManager(),
		extractor:  prose.NewExtractor(prose.Options{LintStrings: cfg.LintStrings}),
		dictionary: store,
		linter:     o.linter,
	}

	if s.linter == nil {
		engine := analysis.NewEngine(nil, analysis.Rules{
			Spelling:      cfg.Rules.Spelling,
			RepeatedWords: cfg.Rules.RepeatedWords,
			Articles:      cfg.Rules.Articles,
		})
		s.linter = engine
		if cfg.CacheSize > 0 {
			cache, err := analysis.NewCachedLinter(engine, cfg.CacheSize)
			if err != nil {
				return nil, fmt.Errorf("failed to create lint cache: %w", err)
			}
			s.cache = cache
			s.linter = cache
		}
	}

	s.scheduler = scheduler.New(o.parallelism, s.lint)

	handler := protocol.Handler{
		Initialize:                     method(s, "initialize", lifecycle.Initialize),
		Initialized:                    notify(s, "initialized", lifecycle.Initialized),
		Shutdown:                       noParam(s, "shutdown", lifecycle.Shutdown),
		SetTrace:                       notify(s, "$/setTrace", lifecycle.SetTrace),
		TextDocumentDidOpen:            notify(s, "textDocument/didOpen", textDocument.DidOpen),
		TextDocumentDidChange:          notify(s, "textDocument/didChange", textDocument.DidChange),
		TextDocumentDidSave:            notify(s, "textDocument/didSave", textDocument.DidSave),
		TextDocumentDidClose:           notify(s, "textDocument/didClose", textDocument.DidClose),
		TextDocumentHover:              method(s, "textDocument/hover", hover.Hover),
		TextDocumentCompletion:         method(s, "textDocument/completion", completion.Completion),
		TextDocumentCodeAction:         method(s, "textDocument/codeAction", codeaction.CodeAction),
		WorkspaceExecuteCommand:        method(s, "workspace/executeCommand", workspace.ExecuteCommand),
		WorkspaceDidChangeWatchedFiles: notify(s, "workspace/didChangeWatchedFiles", workspace.DidChangeWatchedFiles),
	}

	s.glspServer = server.NewServer(&handler, config.AppName, log.GetLevel() == log.LevelDebug)
	return s, nil
}

// RunStdio serves one client over stdin and stdout.
func (s *Server) RunStdio() error {
	log.Info("Serving on stdio")
	return s.glspServer.RunStdio()
}

// RunTCP listens on addr and serves the first client that connects. Later
// connections are refused while it is served; when it disconnects RunTCP
// returns.
func (s *Server) RunTCP(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.serveOne(listener)
}

func (s *Server) serveOne(listener net.Listener) error {
	defer listener.Close()
	log.Info("Listening on %s", listener.Addr())

	conn, err := listener.Accept()
	if err != nil {
		return fmt.Errorf("failed to accept connection: %w", err)
	}
	log.Info("Client connected from %s", conn.RemoteAddr())

	go refuseConnections(listener)

	s.glspServer.ServeStream(conn, nil)
	log.Info("Client disconnected")
	return nil
}

// refuseConnections closes every further connection until the listener is
// closed.
func refuseConnections(listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				log.Warn("Accept failed: %v", err)
			}
			return
		}
		log.Warn("Refusing connection from %s: a client is already connected", conn.RemoteAddr())
		conn.Close()
	}
}

// Close stops background linting and releases parser and cache resources.
// It is safe to call Close multiple times.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.scheduler.Close()
		s.documents.CloseAll()
		s.extractor.Close()
		if s.cache != nil {
			s.cache.Close()
		}
	})
	return nil
}

// ServerContext interface implementation

// Document returns the document with the given URI
func (s *Server) Document(uri string) *documents.Document {
	return s.documents.Get(uri)
}

// DocumentManager returns the document manager
func (s *Server) DocumentManager() *documents.Manager {
	return s.documents
}

// AllDocuments returns all open documents
func (s *Server) AllDocuments() []*documents.Document {
	return s.documents.GetAll()
}

// Config returns the server configuration. It must not be modified.
func (s *Server) Config() *config.Config {
	return s.cfg
}

// Dictionary returns the dictionary store
func (s *Server) Dictionary() *dictionary.Store {
	return s.dictionary
}

// RootURI returns the workspace root URI
func (s *Server) RootURI() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rootURI
}

// RootPath returns the workspace root path
func (s *Server) RootPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rootPath
}

// SetRootURI sets the workspace root URI
func (s *Server) SetRootURI(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rootURI = uri
}

// SetRootPath sets the workspace root path
func (s *Server) SetRootPath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rootPath = path
}

// GLSPContext returns the client context used for publishing.
func (s *Server) GLSPContext() *glsp.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.context
}

// SetGLSPContext sets the client context used for publishing.
func (s *Server) SetGLSPContext(ctx *glsp.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.context = ctx
}

// ScheduleLint queues a lint of uri.
func (s *Server) ScheduleLint(uri string) {
	if err := s.scheduler.Schedule(uri); err != nil {
		log.Debug("Not linting %s: %v", uri, err)
	}
}

// ScheduleLintAll queues a lint of every open document.
func (s *Server) ScheduleLintAll() {
	for _, doc := range s.documents.GetAll() {
		s.ScheduleLint(doc.URI())
	}
}

// CancelLint cancels any lint of uri and drops its worker.
func (s *Server) CancelLint(uri string) {
	s.scheduler.Stop(uri)
}

// PublishDiagnostics sends the complete diagnostic set of report, replacing
// whatever the client showed for the document.
func (s *Server) PublishDiagnostics(context *glsp.Context, report *diagnostics.Report) {
	if context == nil {
		context = s.GLSPContext()
	}
	if context == nil || context.Notify == nil {
		log.Debug("No client context; not publishing diagnostics for %s", report.URI)
		return
	}
	log.Debug("Publishing %d diagnostics for %s (version %d)", len(report.Items), report.URI, report.Version)
	context.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         report.URI,
		Diagnostics: report.Diagnostics(),
	})
}

// Shutdown stops background linting. Documents stay open until exit.
func (s *Server) Shutdown() {
	s.scheduler.Close()
}
