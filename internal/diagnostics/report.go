// Package diagnostics turns lint findings into LSP diagnostics and the code
// actions that resolve them.
package diagnostics

import (
	"harperls.dev/harper-ls/internal/analysis"
	"harperls.dev/harper-ls/internal/position"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Source is the diagnostic source shown by editors.
const Source = "harper"

// Item is one finding resolved to document coordinates.
type Item struct {
	// Start and End are document byte offsets
	Start      int
	End        int
	Finding    analysis.Finding
	Diagnostic protocol.Diagnostic
	Actions    []protocol.CodeAction
}

// Report is the complete result of linting one document version. Reports
// are immutable; a newer report replaces an older one as a whole.
type Report struct {
	URI     string
	Version int
	Items   []Item
}

// Empty returns a report without findings.
func Empty(uri string, version int) *Report {
	return &Report{URI: uri, Version: version}
}

// Diagnostics returns the full diagnostic set, never nil, so that
// publishing it clears whatever the client showed before.
func (r *Report) Diagnostics() []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(r.Items))
	for _, item := range r.Items {
		out = append(out, item.Diagnostic)
	}
	return out
}

// ActionsFor returns the code actions of every item intersecting rng.
func (r *Report) ActionsFor(rng protocol.Range) []protocol.CodeAction {
	var out []protocol.CodeAction
	for _, item := range r.Items {
		if position.RangesIntersect(rng, item.Diagnostic.Range) {
			out = append(out, item.Actions...)
		}
	}
	return out
}

// ItemAt returns the first item whose range contains pos.
func (r *Report) ItemAt(pos protocol.Position) (Item, bool) {
	for _, item := range r.Items {
		if position.RangeContains(item.Diagnostic.Range, pos) {
			return item, true
		}
	}
	return Item{}, false
}
