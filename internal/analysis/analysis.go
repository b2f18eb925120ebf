// Package analysis finds grammar and spelling issues in prose text.
//
// Findings are reported in the coordinates of the text handed to Lint; the
// caller maps them back to the document it extracted the text from.
package analysis

import "context"

// Kind names the rule that produced a finding.
type Kind string

const (
	// KindSpelling flags a word found in neither the lexicon nor a dictionary
	KindSpelling Kind = "spelling"
	// KindRepeatedWord flags the same word twice in a row
	KindRepeatedWord Kind = "repeated-word"
	// KindArticle flags "a" before a vowel sound or "an" before a consonant
	KindArticle Kind = "article"
)

// Severity mirrors the LSP diagnostic severities.
type Severity int

const (
	SeverityError       Severity = 1
	SeverityWarning     Severity = 2
	SeverityInformation Severity = 3
	SeverityHint        Severity = 4
)

// Finding is one issue in prose-text byte coordinates [Start, End).
type Finding struct {
	Start       int
	End         int
	Kind        Kind
	Message     string
	Severity    Severity
	Suggestions []string
	// Word is the flagged word for spelling findings
	Word string
}

// WordChecker reports whether a word has been accepted by the user.
type WordChecker interface {
	Contains(word string) bool
}

// Input is one lint request.
type Input struct {
	Text string
	// Words holds dictionary words accepted in addition to the lexicon
	Words WordChecker
	// Scope identifies the file the text came from, used for cache keys
	Scope string
	// Generation changes whenever Words gains an entry
	Generation uint64
}

// Linter analyzes prose. Implementations must be safe for concurrent use
// and never fail: a cancelled context simply yields no findings.
type Linter interface {
	Lint(ctx context.Context, in Input) []Finding
}

// Rules toggles the built-in rules.
type Rules struct {
	Spelling      bool
	RepeatedWords bool
	Articles      bool
}

// AllRules enables every rule.
func AllRules() Rules {
	return Rules{Spelling: true, RepeatedWords: true, Articles: true}
}
