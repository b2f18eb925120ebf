package analysis

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize returns the canonical dictionary form of a word: NFC composed,
// case folded, with typographic apostrophes replaced by ASCII ones.
func Normalize(word string) string {
	word = strings.ReplaceAll(word, "’", "'")
	return norm.NFC.String(cases.Fold().String(word))
}

// token is one word-like run of text.
type token struct {
	start int
	end   int
	text  string

	hasDigit      bool
	hasUnderscore bool
	nonASCII      bool
	// inLink marks tokens inside a URL or email address
	inLink bool
}

func (t token) isNumber() bool {
	for _, r := range t.text {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// tokenize splits text into words along Unicode word boundaries.
// Apostrophes between letters belong to the word. Segments that join
// across periods or colons ("e.g", "3.14") are split further.
func tokenize(text string) []token {
	var tokens []token
	state := -1
	offset := 0
	for rest := text; len(rest) > 0; {
		var segment string
		segment, rest, state = uniseg.FirstWordInString(rest, state)
		tokens = appendWords(tokens, text, offset, offset+len(segment))
		offset += len(segment)
	}
	return tokens
}

// appendWords adds the word runs of text[start:end], one word segment.
func appendWords(tokens []token, text string, start, end int) []token {
	tok := token{start: -1}
	flush := func(at int) {
		if tok.start < 0 {
			return
		}
		tok.end = at
		tok.text = text[tok.start:tok.end]
		tok.inLink = inLink(text, tok.start, tok.end)
		tokens = append(tokens, tok)
		tok = token{start: -1}
	}

	for i := start; i < end; {
		r, size := utf8.DecodeRuneInString(text[i:end])
		switch {
		case isWordRune(r), tok.start >= 0 && unicode.IsMark(r):
			if tok.start < 0 {
				tok.start = i
			}
			switch {
			case unicode.IsDigit(r):
				tok.hasDigit = true
			case r == '_':
				tok.hasUnderscore = true
			case r >= utf8.RuneSelf:
				tok.nonASCII = true
			}
		case isApostrophe(r) && tok.start >= 0:
			if next, _ := utf8.DecodeRuneInString(text[i+size : end]); !unicode.IsLetter(next) {
				flush(i)
			}
		default:
			flush(i)
		}
		i += size
	}
	flush(end)
	return tokens
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func isApostrophe(r rune) bool {
	return r == '\'' || r == '’'
}

// inLink reports whether the whitespace-delimited chunk around [start, end)
// looks like a URL, a path or an email address.
func inLink(text string, start, end int) bool {
	lo := strings.LastIndexAny(text[:start], " \t\r\n") + 1
	hi := strings.IndexAny(text[end:], " \t\r\n")
	if hi < 0 {
		hi = len(text)
	} else {
		hi += end
	}
	chunk := text[lo:hi]
	return strings.Contains(chunk, "://") || strings.Contains(chunk, "@") ||
		strings.Count(chunk, "/") > 1 || strings.HasPrefix(chunk, "www.")
}

// gapBetween reports whether only horizontal space, or a single line break,
// separates two tokens. A blank line ends the sentence.
func gapBetween(text string, a, b token) bool {
	gap := text[a.end:b.start]
	if gap == "" || strings.Contains(gap, "\n\n") || strings.Contains(gap, "\n\r\n") {
		return false
	}
	return strings.Trim(gap, " \t\r\n") == ""
}

func isAllUpper(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return letters > 0
}

// hasInnerUpper reports camelCase and similar identifiers.
func hasInnerUpper(s string) bool {
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

// matchCase applies the capitalization of like to word.
func matchCase(like, word string) string {
	if utf8.RuneCountInString(like) > 1 && isAllUpper(like) {
		return strings.ToUpper(word)
	}
	first, _ := utf8.DecodeRuneInString(like)
	if unicode.IsUpper(first) {
		r, size := utf8.DecodeRuneInString(word)
		return string(unicode.ToUpper(r)) + word[size:]
	}
	return word
}
