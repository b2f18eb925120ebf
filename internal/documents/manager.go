// Package documents tracks the text documents a client has open.
package documents

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotFound is returned for URIs that are not open.
var ErrNotFound = errors.New("document not found")

// Manager manages text documents for the language server
type Manager struct {
	documents map[string]*Document
	mu        sync.RWMutex
}

// NewManager creates a new document manager
func NewManager() *Manager {
	return &Manager{
		documents: make(map[string]*Document),
	}
}

// Get retrieves a document by URI
func (m *Manager) Get(uri string) *Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.documents[uri]
}

// GetAll returns all managed documents, ordered by URI
func (m *Manager) GetAll() []*Document {
	m.mu.RLock()
	docs := make([]*Document, 0, len(m.documents))
	for _, doc := range m.documents {
		docs = append(docs, doc)
	}
	m.mu.RUnlock()

	sort.Slice(docs, func(i, j int) bool { return docs[i].uri < docs[j].uri })
	return docs
}

// DidOpen handles the textDocument/didOpen notification. Opening a URI that
// is already open replaces it with a fresh document.
func (m *Manager) DidOpen(uri, languageID string, version int, content string) *Document {
	doc := NewDocument(uri, languageID, version, content)

	m.mu.Lock()
	previous := m.documents[uri]
	m.documents[uri] = doc
	m.mu.Unlock()

	if previous != nil {
		previous.Close(nil)
	}
	return doc
}

// DidClose handles the textDocument/didClose notification. The document is
// removed from the manager and closed; publish runs under its lock.
func (m *Manager) DidClose(uri string, publish func()) error {
	m.mu.Lock()
	doc, exists := m.documents[uri]
	if exists {
		delete(m.documents, uri)
	}
	m.mu.Unlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, uri)
	}
	doc.Close(publish)
	return nil
}

// DidChange handles the textDocument/didChange notification
func (m *Manager) DidChange(uri string, version int, changes []any) (*Document, error) {
	doc := m.Get(uri)
	if doc == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, uri)
	}
	if err := doc.ApplyChanges(version, changes); err != nil {
		return nil, fmt.Errorf("failed to apply changes: %w", err)
	}
	return doc, nil
}

// CloseAll closes every document.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	docs := m.documents
	m.documents = make(map[string]*Document)
	m.mu.Unlock()

	for _, doc := range docs {
		doc.Close(nil)
	}
}
