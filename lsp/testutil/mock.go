// Package testutil provides a ServerContext for handler tests.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"harperls.dev/harper-ls/internal/analysis"
	"harperls.dev/harper-ls/internal/config"
	"harperls.dev/harper-ls/internal/diagnostics"
	"harperls.dev/harper-ls/internal/dictionary"
	"harperls.dev/harper-ls/internal/documents"
	"harperls.dev/harper-ls/internal/prose"
	"harperls.dev/harper-ls/internal/uriutil"
	"harperls.dev/harper-ls/lsp/types"
	"github.com/tliron/glsp"
)

var _ types.ServerContext = (*MockServerContext)(nil)

// MockServerContext implements types.ServerContext without background
// linting. Lint requests and published reports are recorded for assertions.
type MockServerContext struct {
	docs       *documents.Manager
	config     *config.Config
	dictionary *dictionary.Store

	mu          sync.Mutex
	rootURI     string
	rootPath    string
	glspContext *glsp.Context
	scheduled   []string
	cancelled   []string
	published   []*diagnostics.Report
	shutdown    bool

	// Optional callbacks for custom behavior in tests
	RegisterWatchersFunc func(*glsp.Context) error

	RegisterWatchersCalled bool
}

// NewMockServerContext creates a mock with default configuration and
// in-memory dictionaries.
func NewMockServerContext() *MockServerContext {
	store, err := dictionary.Open("", "")
	if err != nil {
		panic(err)
	}
	return &MockServerContext{
		docs:       documents.NewManager(),
		config:     config.Default(),
		dictionary: store,
	}
}

// SetConfig replaces the configuration returned by Config.
func (m *MockServerContext) SetConfig(cfg *config.Config) {
	m.config = cfg
}

// SetDictionary replaces the dictionary store.
func (m *MockServerContext) SetDictionary(store *dictionary.Store) {
	m.dictionary = store
}

// Document returns the document with the given URI
func (m *MockServerContext) Document(uri string) *documents.Document {
	return m.docs.Get(uri)
}

// DocumentManager returns the document manager
func (m *MockServerContext) DocumentManager() *documents.Manager {
	return m.docs
}

// AllDocuments returns all tracked documents
func (m *MockServerContext) AllDocuments() []*documents.Document {
	return m.docs.GetAll()
}

// Config returns the configuration
func (m *MockServerContext) Config() *config.Config {
	return m.config
}

// Dictionary returns the dictionary store
func (m *MockServerContext) Dictionary() *dictionary.Store {
	return m.dictionary
}

// RootURI returns the workspace root URI
func (m *MockServerContext) RootURI() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rootURI
}

// RootPath returns the workspace root path
func (m *MockServerContext) RootPath() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rootPath
}

// SetRootURI sets the workspace root URI
func (m *MockServerContext) SetRootURI(uri string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rootURI = uri
}

// SetRootPath sets the workspace root path
func (m *MockServerContext) SetRootPath(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rootPath = path
}

// GLSPContext returns the stored client context
func (m *MockServerContext) GLSPContext() *glsp.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.glspContext
}

// SetGLSPContext stores the client context
func (m *MockServerContext) SetGLSPContext(ctx *glsp.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.glspContext = ctx
}

// RegisterFileWatchers records the call and runs RegisterWatchersFunc
func (m *MockServerContext) RegisterFileWatchers(ctx *glsp.Context) error {
	m.RegisterWatchersCalled = true
	if m.RegisterWatchersFunc != nil {
		return m.RegisterWatchersFunc(ctx)
	}
	return nil
}

// ScheduleLint records uri
func (m *MockServerContext) ScheduleLint(uri string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scheduled = append(m.scheduled, uri)
}

// ScheduleLintAll records every open document
func (m *MockServerContext) ScheduleLintAll() {
	for _, doc := range m.docs.GetAll() {
		m.ScheduleLint(doc.URI())
	}
}

// CancelLint records uri
func (m *MockServerContext) CancelLint(uri string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = append(m.cancelled, uri)
}

// PublishDiagnostics records report
func (m *MockServerContext) PublishDiagnostics(ctx *glsp.Context, report *diagnostics.Report) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, report)
}

// Shutdown records the call
func (m *MockServerContext) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdown = true
}

// Scheduled returns the URIs passed to ScheduleLint, in order.
func (m *MockServerContext) Scheduled() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.scheduled...)
}

// Cancelled returns the URIs passed to CancelLint, in order.
func (m *MockServerContext) Cancelled() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.cancelled...)
}

// Published returns the reports passed to PublishDiagnostics, in order.
func (m *MockServerContext) Published() []*diagnostics.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*diagnostics.Report(nil), m.published...)
}

// ShutdownCalled reports whether Shutdown ran.
func (m *MockServerContext) ShutdownCalled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdown
}

// LintNow lints uri synchronously with the built-in engine and stores the
// report on the document, as a background lint would.
func (m *MockServerContext) LintNow(uri string) (*diagnostics.Report, error) {
	doc := m.docs.Get(uri)
	if doc == nil {
		return nil, fmt.Errorf("%w: %s", documents.ErrNotFound, uri)
	}
	extractor := prose.NewExtractor(prose.Options{LintStrings: m.config.LintStrings})
	defer extractor.Close()

	snap, err := doc.Snapshot(extractor)
	if err != nil {
		return nil, err
	}
	path, _ := uriutil.FilePath(uri)
	findings := analysis.NewEngine(nil, analysis.AllRules()).Lint(context.Background(), analysis.Input{
		Text:  snap.Extraction.Text,
		Words: m.dictionary.For(path),
		Scope: path,
	})
	report := diagnostics.Translate(uri, snap.Content, snap.Extraction, findings, snap.Version)
	if !doc.Publish(snap.Generation, report, nil) {
		return nil, fmt.Errorf("%s changed while linting", uri)
	}
	return report, nil
}
