package analysis

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxSuggestions bounds the replacements offered per finding.
const maxSuggestions = 3

// Engine is the built-in Linter.
type Engine struct {
	lexicon *Lexicon
	rules   Rules
}

var _ Linter = (*Engine)(nil)

// NewEngine creates an engine over the given lexicon. A nil lexicon uses
// the embedded English one.
func NewEngine(lexicon *Lexicon, rules Rules) *Engine {
	if lexicon == nil {
		lexicon = DefaultLexicon()
	}
	return &Engine{lexicon: lexicon, rules: rules}
}

// Lint runs the enabled rules over in.Text. Findings are sorted by start.
func (e *Engine) Lint(ctx context.Context, in Input) []Finding {
	tokens := tokenize(in.Text)
	var findings []Finding

	for i, tok := range tokens {
		if i%256 == 0 && ctx.Err() != nil {
			return nil
		}

		var prev *token
		if i > 0 && gapBetween(in.Text, tokens[i-1], tok) {
			prev = &tokens[i-1]
		}

		if e.rules.Articles && prev != nil {
			if f, ok := e.checkArticle(*prev, tok); ok {
				findings = append(findings, f)
			}
		}
		if e.rules.RepeatedWords && prev != nil {
			if f, ok := checkRepeat(*prev, tok); ok {
				findings = append(findings, f)
			}
		}
		if e.rules.Spelling {
			if f, ok := e.checkSpelling(tok, in.Words); ok {
				findings = append(findings, f)
			}
		}
	}
	return findings
}

func (e *Engine) checkSpelling(tok token, words WordChecker) (Finding, bool) {
	if tok.hasDigit || tok.hasUnderscore || tok.nonASCII || tok.inLink {
		return Finding{}, false
	}
	if utf8.RuneCountInString(tok.text) < 2 || isAllUpper(tok.text) || hasInnerUpper(tok.text) {
		return Finding{}, false
	}

	w := Normalize(tok.text)
	if e.lexicon.Known(w) {
		return Finding{}, false
	}
	if words != nil && words.Contains(tok.text) {
		return Finding{}, false
	}

	suggestions := e.lexicon.Suggest(w, maxSuggestions)
	for i, s := range suggestions {
		suggestions[i] = matchCase(tok.text, s)
	}
	return Finding{
		Start:       tok.start,
		End:         tok.end,
		Kind:        KindSpelling,
		Message:     fmt.Sprintf("Did you mean to spell %q this way?", tok.text),
		Severity:    SeverityInformation,
		Suggestions: suggestions,
		Word:        tok.text,
	}, true
}

func checkRepeat(prev, tok token) (Finding, bool) {
	if tok.isNumber() || !strings.EqualFold(prev.text, tok.text) {
		return Finding{}, false
	}
	return Finding{
		Start:       prev.start,
		End:         tok.end,
		Kind:        KindRepeatedWord,
		Message:     fmt.Sprintf("The word %q is repeated.", tok.text),
		Severity:    SeverityWarning,
		Suggestions: []string{prev.text},
	}, true
}

func (e *Engine) checkArticle(article, next token) (Finding, bool) {
	lower := strings.ToLower(article.text)
	if lower != "a" && lower != "an" {
		return Finding{}, false
	}
	if next.hasDigit || next.hasUnderscore || next.inLink || utf8.RuneCountInString(next.text) < 2 || isAllUpper(next.text) {
		return Finding{}, false
	}

	wantAn := needsAn(strings.ToLower(next.text))
	if wantAn == (lower == "an") {
		return Finding{}, false
	}

	replacement := "a"
	if wantAn {
		replacement = "an"
	}
	return Finding{
		Start:       article.start,
		End:         article.end,
		Kind:        KindArticle,
		Message:     fmt.Sprintf("Use %q before %q.", replacement, next.text),
		Severity:    SeverityWarning,
		Suggestions: []string{matchCase(article.text, replacement)},
	}, true
}

var (
	silentH        = []string{"hour", "honest", "honor", "honour", "heir"}
	consonantSound = []string{"uni", "use", "usu", "uti", "ura", "uro", "eu", "ewe", "one", "once"}
)

// needsAn guesses whether a lowercase word starts with a vowel sound.
func needsAn(w string) bool {
	for _, p := range silentH {
		if strings.HasPrefix(w, p) {
			return true
		}
	}
	for _, p := range consonantSound {
		if strings.HasPrefix(w, p) {
			return false
		}
	}
	return w != "" && strings.IndexByte("aeiou", w[0]) >= 0
}
