package prose

import (
	"errors"
	"fmt"
	"strings"

	"harperls.dev/harper-ls/internal/log"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// Point is a tree-sitter position: a row and a byte column.
type Point struct {
	Row    int
	Column int
}

// Edit describes one text replacement in byte coordinates, as needed to
// update a syntax tree before an incremental re-parse.
type Edit struct {
	StartByte   int
	OldEndByte  int
	NewEndByte  int
	StartPoint  Point
	OldEndPoint Point
	NewEndPoint Point
}

// Tree is a cached syntax tree for one document. It is not safe for
// concurrent use; the owning document serializes access.
type Tree struct {
	grammar *grammar
	tree    *sitter.Tree
}

// Edit records a text edit on the tree so the next Extract can reuse the
// unchanged parts of it.
func (t *Tree) Edit(e Edit) {
	if t == nil || t.tree == nil {
		return
	}
	t.tree.Edit(&sitter.InputEdit{
		StartByte:      uint(e.StartByte),
		OldEndByte:     uint(e.OldEndByte),
		NewEndByte:     uint(e.NewEndByte),
		StartPosition:  toSitterPoint(e.StartPoint),
		OldEndPosition: toSitterPoint(e.OldEndPoint),
		NewEndPosition: toSitterPoint(e.NewEndPoint),
	})
}

// Copy returns an independent tree that can be parsed against while the
// original keeps receiving edits. Copy of nil is nil.
func (t *Tree) Copy() *Tree {
	if t == nil || t.tree == nil {
		return nil
	}
	return &Tree{grammar: t.grammar, tree: t.tree.Clone()}
}

// Close releases the tree. It is safe to call on nil.
func (t *Tree) Close() {
	if t == nil || t.tree == nil {
		return
	}
	t.tree.Close()
	t.tree = nil
}

// Language returns the grammar name the tree was parsed with.
func (t *Tree) Language() string {
	if t == nil || t.grammar == nil {
		return ""
	}
	return t.grammar.name
}

func toSitterPoint(p Point) sitter.Point {
	return sitter.Point{Row: uint(max(p.Row, 0)), Column: uint(max(p.Column, 0))}
}

// Options tune what counts as prose.
type Options struct {
	// LintStrings includes string literal bodies; comments are always included
	LintStrings bool
}

// Extractor turns documents into prose. It is safe for concurrent use: each
// call borrows a parser from a per-grammar pool.
type Extractor struct {
	opts Options
}

// NewExtractor creates an extractor.
func NewExtractor(opts Options) *Extractor {
	return &Extractor{opts: opts}
}

// Supports reports whether a language id is parsed with a grammar.
func (x *Extractor) Supports(languageID string) bool {
	_, ok := lookupGrammar(languageID)
	return ok
}

// Extract returns the prose of text. When old is a tree of the same grammar
// that has been told about every edit since it was parsed, it is reused for
// an incremental parse. The returned tree replaces old for the next call; the
// caller still owns old and must Close it once it is no longer needed.
//
// Extract never fails: an unknown language or a parser failure yields the
// whole document as prose and a nil tree.
func (x *Extractor) Extract(languageID, text string, old *Tree) (*Extraction, *Tree) {
	g, ok := lookupGrammar(languageID)
	if !ok {
		return WholeDocument(text), nil
	}

	tree, err := parse(g, []byte(text), old)
	if err != nil {
		log.Warn("Falling back to whole-document prose for %s: %v", languageID, err)
		return WholeDocument(text), nil
	}

	spans := x.collect(g, tree.RootNode(), text, nil)
	return newExtraction(text, spans), &Tree{grammar: g, tree: tree}
}

// parse runs the grammar's parser, converting panics from the binding into
// errors so a bad document cannot take the server down.
func parse(g *grammar, source []byte, old *Tree) (tree *sitter.Tree, err error) {
	defer func() {
		if r := recover(); r != nil {
			tree = nil
			err = fmt.Errorf("%s parser panic: %v", g.name, r)
		}
	}()

	p, err := g.acquire()
	if err != nil {
		return nil, err
	}
	defer g.release(p)

	var oldTree *sitter.Tree
	if old != nil && old.grammar == g {
		oldTree = old.tree
	}

	tree = p.Parse(source, oldTree)
	if tree == nil {
		return nil, errors.New("parser returned no tree")
	}
	return tree, nil
}

// collect walks the tree in document order. Matched nodes are not descended
// into, which keeps the spans sorted and non-overlapping.
func (x *Extractor) collect(g *grammar, node *sitter.Node, text string, spans []Span) []Span {
	if node == nil {
		return spans
	}

	kind := node.Kind()
	start, end := int(node.StartByte()), int(node.EndByte())
	end = min(end, len(text))

	switch {
	case strings.Contains(kind, "comment"):
		return appendSpan(spans, trimComment(text, start, end, g.comments))
	case hasKey(g.quoted, kind):
		if g.quoted[kind] == KindString && !x.opts.LintStrings {
			return spans
		}
		return appendSpan(spans, trimQuotes(text, start, end))
	case hasKey(g.verbatim, kind):
		k := g.verbatim[kind]
		if k == KindString && !x.opts.LintStrings {
			return spans
		}
		return appendSpan(spans, trimSpace(text, Span{Start: start, End: end, Kind: k}))
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		spans = x.collect(g, node.Child(i), text, spans)
	}
	return spans
}

func hasKey(m map[string]Kind, k string) bool {
	_, ok := m[k]
	return ok
}

func appendSpan(spans []Span, s Span) []Span {
	if s.End <= s.Start {
		return spans
	}
	return append(spans, s)
}

const spaceChars = " \t\r\n"

// commentDelimiter is one opener and its closer; line comments have no
// closer.
type commentDelimiter struct {
	open, close string
}

// commentStyle lists the comment delimiters of a grammar. Characters in
// marks directly after an opener belong to it, as in /// or /** or #!.
type commentStyle struct {
	delimiters []commentDelimiter
	marks      string
}

var (
	cComments    = commentStyle{delimiters: []commentDelimiter{{"/*", "*/"}, {"//", ""}}, marks: "/*!"}
	hashComments = commentStyle{delimiters: []commentDelimiter{{"#", ""}}, marks: "#!"}
	htmlComments = commentStyle{delimiters: []commentDelimiter{{"<!--", "-->"}}}
)

// trimComment shrinks a comment node to its body by dropping the
// delimiters of style and surrounding whitespace.
func trimComment(text string, start, end int, style commentStyle) Span {
	for _, d := range style.delimiters {
		if !strings.HasPrefix(text[start:end], d.open) {
			continue
		}
		start += len(d.open)
		for start < end && strings.IndexByte(style.marks, text[start]) >= 0 {
			start++
		}
		if d.close == "" {
			break
		}
		for end > start && strings.IndexByte(spaceChars, text[end-1]) >= 0 {
			end--
		}
		if strings.HasSuffix(text[start:end], d.close) {
			end -= len(d.close)
			// **/ and ---> repeat the closer's first character.
			for end > start && text[end-1] == d.close[0] {
				end--
			}
		}
		break
	}
	return trimSpace(text, Span{Start: start, End: end, Kind: KindComment})
}

// trimQuotes shrinks a string literal node to its body: an alphanumeric
// prefix (f, r, b, u8, L), raw-string hashes, and up to three quote
// characters are removed from each end.
func trimQuotes(text string, start, end int) Span {
	i := start
	for i < end && isAlnum(text[i]) {
		i++
	}
	for i < end && text[i] == '#' {
		i++
	}
	if i >= end || !isQuote(text[i]) {
		i = start
	}
	quote := byte(0)
	if i < end && isQuote(text[i]) {
		quote = text[i]
	}

	n := 0
	for n < 3 && i < end && text[i] == quote {
		i++
		n++
	}
	// An empty literal like "" has only the pair of quotes.
	if n == 2 && (i >= end || text[i] != quote) {
		return Span{}
	}

	j := end
	for j > i && text[j-1] == '#' {
		j--
	}
	for m := 0; m < n && j > i && text[j-1] == quote; m++ {
		j--
	}
	return trimSpace(text, Span{Start: i, End: j, Kind: KindString})
}

func trimSpace(text string, s Span) Span {
	for s.Start < s.End && strings.IndexByte(spaceChars, text[s.Start]) >= 0 {
		s.Start++
	}
	for s.End > s.Start && strings.IndexByte(spaceChars, text[s.End-1]) >= 0 {
		s.End--
	}
	return s
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func isQuote(c byte) bool {
	return c == '"' || c == '\'' || c == '`'
}

// Close releases every pooled parser.
func (x *Extractor) Close() {
	seen := map[*grammar]bool{}
	for _, g := range grammars {
		if seen[g] {
			continue
		}
		seen[g] = true
		g.drain()
	}
}
