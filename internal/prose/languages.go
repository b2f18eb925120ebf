package prose

import (
	"fmt"
	"strings"
	"sync"
	"unsafe"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_c "github.com/tree-sitter/tree-sitter-c/bindings/go"
	tree_sitter_css "github.com/tree-sitter/tree-sitter-css/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_html "github.com/tree-sitter/tree-sitter-html/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// grammar describes how prose is found in one tree-sitter grammar.
//
// Any node whose kind contains "comment" is comment prose. Nodes in
// quoted are string literals whose quotes and prefixes are trimmed; nodes
// in verbatim are collected as they are.
type grammar struct {
	name     string
	load     func() unsafe.Pointer
	comments commentStyle
	quoted   map[string]Kind
	verbatim map[string]Kind

	once sync.Once
	lang *sitter.Language
	// idle holds parsers between calls. Parsers are C allocations freed
	// only by Close, so the grammar owns every one it keeps.
	idle chan *sitter.Parser
}

func kinds(kind Kind, names ...string) map[string]Kind {
	m := make(map[string]Kind, len(names))
	for _, n := range names {
		m[n] = kind
	}
	return m
}

var (
	pythonGrammar = &grammar{
		name:     "python",
		comments: hashComments,
		load:     tree_sitter_python.Language,
		quoted:   kinds(KindString, "string"),
	}
	goGrammar = &grammar{
		name:     "go",
		comments: cComments,
		load:     tree_sitter_go.Language,
		quoted:   kinds(KindString, "interpreted_string_literal", "raw_string_literal"),
	}
	rustGrammar = &grammar{
		name:     "rust",
		comments: cComments,
		load:     tree_sitter_rust.Language,
		quoted:   kinds(KindString, "string_literal", "raw_string_literal"),
	}
	cGrammar = &grammar{
		name:     "c",
		comments: cComments,
		load:     tree_sitter_c.Language,
		quoted:   kinds(KindString, "string_literal"),
	}
	javascriptGrammar = &grammar{
		name:     "javascript",
		comments: cComments,
		load:     tree_sitter_javascript.Language,
		verbatim: mergeKinds(kinds(KindString, "string_fragment"), kinds(KindProse, "jsx_text")),
	}
	typescriptGrammar = &grammar{
		name:     "typescript",
		comments: cComments,
		load:     tree_sitter_typescript.LanguageTypescript,
		verbatim: kinds(KindString, "string_fragment"),
	}
	tsxGrammar = &grammar{
		name:     "tsx",
		comments: cComments,
		load:     tree_sitter_typescript.LanguageTSX,
		verbatim: mergeKinds(kinds(KindString, "string_fragment"), kinds(KindProse, "jsx_text")),
	}
	cssGrammar = &grammar{
		name:     "css",
		comments: cComments,
		load:     tree_sitter_css.Language,
		quoted:   kinds(KindString, "string_value"),
	}
	htmlGrammar = &grammar{
		name:     "html",
		comments: htmlComments,
		load:     tree_sitter_html.Language,
		verbatim: kinds(KindProse, "text"),
	}
)

func mergeKinds(ms ...map[string]Kind) map[string]Kind {
	out := map[string]Kind{}
	for _, m := range ms {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// grammars maps LSP language identifiers to grammars.
var grammars = map[string]*grammar{
	"python":          pythonGrammar,
	"go":              goGrammar,
	"rust":            rustGrammar,
	"c":               cGrammar,
	"cpp":             cGrammar,
	"javascript":      javascriptGrammar,
	"javascriptreact": javascriptGrammar,
	"typescript":      typescriptGrammar,
	"typescriptreact": tsxGrammar,
	"css":             cssGrammar,
	"html":            htmlGrammar,
}

// maxIdleParsers bounds the parsers a grammar keeps between calls.
const maxIdleParsers = 4

func init() {
	for _, g := range grammars {
		if g.idle == nil {
			g.idle = make(chan *sitter.Parser, maxIdleParsers)
		}
	}
}

// lookupGrammar returns the grammar for a language id, if one is known.
func lookupGrammar(languageID string) (*grammar, bool) {
	g, ok := grammars[strings.ToLower(languageID)]
	return g, ok
}

// SupportedLanguages lists the language ids parsed with a grammar. Every
// other language id is linted as whole-document prose.
func SupportedLanguages() []string {
	ids := make([]string, 0, len(grammars))
	for id := range grammars {
		ids = append(ids, id)
	}
	return ids
}

func (g *grammar) language() *sitter.Language {
	g.once.Do(func() {
		g.lang = sitter.NewLanguage(g.load())
	})
	return g.lang
}

// acquire takes an idle parser or creates one.
func (g *grammar) acquire() (*sitter.Parser, error) {
	select {
	case p := <-g.idle:
		p.Reset()
		return p, nil
	default:
	}
	p := sitter.NewParser()
	if err := p.SetLanguage(g.language()); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to set %s language: %w", g.name, err)
	}
	return p, nil
}

// release keeps p for reuse, or closes it when enough parsers are idle.
func (g *grammar) release(p *sitter.Parser) {
	if p == nil {
		return
	}
	select {
	case g.idle <- p:
	default:
		p.Close()
	}
}

// drain closes every idle parser.
func (g *grammar) drain() {
	for {
		select {
		case p := <-g.idle:
			p.Close()
		default:
			return
		}
	}
}
