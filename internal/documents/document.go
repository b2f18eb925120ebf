package documents

import (
	"fmt"
	"sync"
	"sync/atomic"

	"harperls.dev/harper-ls/internal/diagnostics"
	"harperls.dev/harper-ls/internal/position"
	"harperls.dev/harper-ls/internal/prose"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Document is one open text document. Its text, parse tree and extracted
// prose change together under the document's lock.
type Document struct {
	uri        string
	languageID string

	mu         sync.Mutex
	content    string
	version    int
	generation uint64
	tree       *prose.Tree
	extraction *prose.Extraction
	closed     bool

	report atomic.Pointer[diagnostics.Report]
}

// NewDocument creates a new document
func NewDocument(uri, languageID string, version int, content string) *Document {
	return &Document{
		uri:        uri,
		languageID: languageID,
		version:    version,
		content:    content,
	}
}

// URI returns the document's URI
func (d *Document) URI() string {
	return d.uri
}

// LanguageID returns the document's language identifier
func (d *Document) LanguageID() string {
	return d.languageID
}

// Version returns the document's version
func (d *Document) Version() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.version
}

// Content returns the document's current content
func (d *Document) Content() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.content
}

// Closed reports whether the document has been closed.
func (d *Document) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// SetContent replaces the document's content and version.
// Returns an error if the provided version is older than the current document version,
// preventing stale updates from being applied.
func (d *Document) SetContent(content string, version int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkVersion(version); err != nil {
		return err
	}
	d.replace(content)
	d.version = version
	return nil
}

// ApplyChanges applies content changes in order. Each change is either a
// protocol.TextDocumentContentChangeEvent with a range or a
// protocol.TextDocumentContentChangeEventWhole. Out-of-range positions clamp
// to the nearest boundary.
func (d *Document) ApplyChanges(version int, changes []any) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return fmt.Errorf("%w: %s is closed", ErrNotFound, d.uri)
	}
	if err := d.checkVersion(version); err != nil {
		return err
	}

	for i, change := range changes {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEvent:
			if c.Range == nil {
				d.replace(c.Text)
			} else {
				d.edit(*c.Range, c.Text)
			}
		case *protocol.TextDocumentContentChangeEvent:
			if c.Range == nil {
				d.replace(c.Text)
			} else {
				d.edit(*c.Range, c.Text)
			}
		case protocol.TextDocumentContentChangeEventWhole:
			d.replace(c.Text)
		case *protocol.TextDocumentContentChangeEventWhole:
			d.replace(c.Text)
		default:
			return fmt.Errorf("unsupported content change %d of type %T", i, change)
		}
	}
	d.version = version
	return nil
}

func (d *Document) checkVersion(version int) error {
	if version < d.version {
		return fmt.Errorf("rejected stale update: document version is %d but update version is %d", d.version, version)
	}
	return nil
}

// replace swaps in new content. The old tree cannot be reused.
func (d *Document) replace(content string) {
	d.content = content
	d.tree.Close()
	d.tree = nil
	d.invalidate()
}

// edit splices text into a range, telling the cached tree about it.
func (d *Document) edit(rng protocol.Range, text string) {
	old := d.content
	lines := position.NewLineIndex(old)
	start := lines.Offset(rng.Start)
	oldEnd := max(lines.Offset(rng.End), start)

	updated := old[:start] + text + old[oldEnd:]
	newEnd := start + len(text)

	if d.tree != nil {
		sr, sc := lines.Point(start)
		or, oc := lines.Point(oldEnd)
		nr, nc := position.BytePoint(updated, newEnd)
		d.tree.Edit(prose.Edit{
			StartByte:   start,
			OldEndByte:  oldEnd,
			NewEndByte:  newEnd,
			StartPoint:  prose.Point{Row: sr, Column: sc},
			OldEndPoint: prose.Point{Row: or, Column: oc},
			NewEndPoint: prose.Point{Row: nr, Column: nc},
		})
	}
	d.content = updated
	d.invalidate()
}

func (d *Document) invalidate() {
	d.extraction = nil
	d.generation++
}

// Snapshot is a consistent view of one document state.
type Snapshot struct {
	URI        string
	LanguageID string
	Content    string
	Version    int
	Generation uint64
	Extraction *prose.Extraction
}

// Snapshot captures the current state, extracting prose with x if the
// cached extraction was invalidated by an edit. The parse runs against a
// copy of the cached tree outside the lock, so edits are never blocked on
// it. The result is installed only if no edit landed meanwhile; otherwise
// the snapshot describes the state it was captured from and Publish will
// discard whatever is computed from it.
func (d *Document) Snapshot(x *prose.Extractor) (Snapshot, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return Snapshot{}, fmt.Errorf("%w: %s is closed", ErrNotFound, d.uri)
	}
	snap := Snapshot{
		URI:        d.uri,
		LanguageID: d.languageID,
		Content:    d.content,
		Version:    d.version,
		Generation: d.generation,
		Extraction: d.extraction,
	}
	if snap.Extraction != nil {
		d.mu.Unlock()
		return snap, nil
	}
	base := d.tree.Copy()
	d.mu.Unlock()

	ext, tree := x.Extract(snap.LanguageID, snap.Content, base)
	base.Close()
	snap.Extraction = ext

	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case d.closed:
		tree.Close()
		return Snapshot{}, fmt.Errorf("%w: %s is closed", ErrNotFound, d.uri)
	case d.generation != snap.Generation:
		tree.Close()
	case d.extraction != nil:
		// A concurrent snapshot of the same generation got there first.
		tree.Close()
		snap.Extraction = d.extraction
	default:
		d.tree.Close()
		d.tree = tree
		d.extraction = ext
	}
	return snap, nil
}

// Publish stores report as the latest result and runs publish, but only if
// the document is still open and unchanged since generation. It reports
// whether the result was current.
func (d *Document) Publish(generation uint64, report *diagnostics.Report, publish func(*diagnostics.Report)) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed || d.generation != generation {
		return false
	}
	d.report.Store(report)
	if publish != nil {
		publish(report)
	}
	return true
}

// Report returns the most recently published report, or nil before the
// first lint completes.
func (d *Document) Report() *diagnostics.Report {
	return d.report.Load()
}

// Close marks the document closed and releases its tree. Then, still under
// the lock, it runs publish so that no lint result can follow it.
func (d *Document) Close(publish func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true
	d.generation++
	d.tree.Close()
	d.tree = nil
	d.extraction = nil
	d.report.Store(nil)
	if publish != nil {
		publish()
	}
}
