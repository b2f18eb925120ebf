// Package prose extracts the natural-language text of a document.
//
// Plain text and markdown are prose end to end. For source code, a
// tree-sitter parse isolates comments and string literals so that code
// syntax is never grammar-checked. The extracted spans are joined into one
// prose text, and an Extraction maps offsets in that text back to the
// document.
package prose

import (
	"sort"
	"strings"
)

// Kind tags what a span of the document is.
type Kind int

const (
	// KindCode is program text that is never linted
	KindCode Kind = iota
	// KindProse is free-standing natural language (plain text, markup text nodes)
	KindProse
	// KindComment is the body of a comment, markers trimmed
	KindComment
	// KindString is the body of a string literal, quotes trimmed
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindCode:
		return "code"
	case KindProse:
		return "prose"
	case KindComment:
		return "comment"
	case KindString:
		return "string"
	}
	return "unknown"
}

// Span is a half-open byte range [Start, End) of a document.
type Span struct {
	Start int
	End   int
	Kind  Kind
}

// Len returns the span length in bytes.
func (s Span) Len() int {
	return s.End - s.Start
}

// Boundary separates adjacent spans in the prose text so that the analysis
// never joins the tail of one comment and the head of the next into a
// sentence.
const Boundary = "\n\n"

// segment maps [proseStart, proseEnd) of the prose text to the document
// bytes starting at docStart. Segments are sorted on both axes.
type segment struct {
	proseStart int
	proseEnd   int
	docStart   int
}

// Extraction is the result of extracting prose from one document version.
// It is immutable once built.
type Extraction struct {
	// Text is the concatenation of all span texts joined by Boundary
	Text string
	// Spans are the prose spans, sorted and non-overlapping
	Spans []Span

	docLen   int
	segments []segment
}

// newExtraction joins the given sorted spans of doc.
func newExtraction(doc string, spans []Span) *Extraction {
	ext := &Extraction{
		Spans:    spans,
		docLen:   len(doc),
		segments: make([]segment, 0, len(spans)),
	}

	// A single span covering the whole document needs no copy.
	if len(spans) == 1 && spans[0].Start == 0 && spans[0].End == len(doc) {
		ext.Text = doc
		ext.segments = append(ext.segments, segment{proseStart: 0, proseEnd: len(doc), docStart: 0})
		return ext
	}

	var b strings.Builder
	for i, span := range spans {
		if i > 0 {
			b.WriteString(Boundary)
		}
		start := b.Len()
		b.WriteString(doc[span.Start:span.End])
		ext.segments = append(ext.segments, segment{
			proseStart: start,
			proseEnd:   b.Len(),
			docStart:   span.Start,
		})
	}
	ext.Text = b.String()
	return ext
}

// WholeDocument treats all of doc as a single prose span.
func WholeDocument(doc string) *Extraction {
	if doc == "" {
		return newExtraction(doc, nil)
	}
	return newExtraction(doc, []Span{{Start: 0, End: len(doc), Kind: KindProse}})
}

// ToDocument maps an offset in Text to the corresponding document offset.
// Offsets that fall inside a Boundary clamp to the end of the preceding
// span.
func (e *Extraction) ToDocument(proseOffset int) int {
	if len(e.segments) == 0 {
		return 0
	}
	i := sort.Search(len(e.segments), func(i int) bool {
		return e.segments[i].proseStart > proseOffset
	}) - 1
	return e.project(max(i, 0), proseOffset)
}

// ToDocumentRange maps a half-open range of Text to the document. The end
// is resolved against the span it closes, so a range ending on a boundary
// never stretches over the code between two spans.
func (e *Extraction) ToDocumentRange(start, end int) (int, int) {
	if len(e.segments) == 0 {
		return 0, 0
	}
	docStart := e.ToDocument(start)
	if end <= start {
		return docStart, docStart
	}
	i := sort.Search(len(e.segments), func(i int) bool {
		return e.segments[i].proseStart >= end
	}) - 1
	docEnd := e.project(max(i, 0), end)
	return docStart, max(docEnd, docStart)
}

func (e *Extraction) project(i, proseOffset int) int {
	seg := e.segments[i]
	d := min(max(proseOffset-seg.proseStart, 0), seg.proseEnd-seg.proseStart)
	return seg.docStart + d
}

// Segments partitions the whole document into prose spans and the code
// spans between them, in order.
func (e *Extraction) Segments() []Span {
	out := make([]Span, 0, 2*len(e.Spans)+1)
	cursor := 0
	for _, span := range e.Spans {
		if span.Start > cursor {
			out = append(out, Span{Start: cursor, End: span.Start, Kind: KindCode})
		}
		out = append(out, span)
		cursor = span.End
	}
	if cursor < e.docLen {
		out = append(out, Span{Start: cursor, End: e.docLen, Kind: KindCode})
	}
	return out
}

// SpanAt returns the prose span containing the document offset, if any.
func (e *Extraction) SpanAt(docOffset int) (Span, bool) {
	i := sort.Search(len(e.Spans), func(i int) bool {
		return e.Spans[i].End > docOffset
	})
	if i < len(e.Spans) && e.Spans[i].Start <= docOffset {
		return e.Spans[i], true
	}
	return Span{}, false
}
