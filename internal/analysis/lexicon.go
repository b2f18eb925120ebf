package analysis

import (
	"bufio"
	_ "embed"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	edlib "github.com/hbollon/go-edlib"
)

// lexicon.txt holds common English words, most frequent first.
//
//go:embed lexicon.txt
var lexiconData string

// Lexicon is an immutable set of known words with frequency ranks.
type Lexicon struct {
	rank  map[string]int
	words []string
}

var (
	defaultLexicon     *Lexicon
	defaultLexiconOnce sync.Once
)

// DefaultLexicon returns the embedded English lexicon.
func DefaultLexicon() *Lexicon {
	defaultLexiconOnce.Do(func() {
		defaultLexicon = NewLexicon(lexiconData)
	})
	return defaultLexicon
}

// NewLexicon builds a lexicon from newline-separated words, most frequent
// first. Blank lines and lines starting with '#' are ignored.
func NewLexicon(data string) *Lexicon {
	lx := &Lexicon{rank: map[string]int{}}
	sc := bufio.NewScanner(strings.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		w := Normalize(line)
		if _, dup := lx.rank[w]; dup {
			continue
		}
		lx.rank[w] = len(lx.words)
		lx.words = append(lx.words, w)
	}
	return lx
}

// Len returns the number of words.
func (lx *Lexicon) Len() int {
	return len(lx.words)
}

// Has reports whether the normalized word is in the lexicon.
func (lx *Lexicon) Has(word string) bool {
	_, ok := lx.rank[word]
	return ok
}

// Known reports whether the normalized word, or a base form of it with a
// common inflection removed, is in the lexicon.
func (lx *Lexicon) Known(word string) bool {
	if lx.Has(word) {
		return true
	}
	for _, base := range stems(word) {
		if lx.Has(base) {
			return true
		}
	}
	return false
}

// stems lists candidate base forms of an inflected word.
func stems(w string) []string {
	var out []string
	add := func(s string) {
		if len(s) >= 2 {
			out = append(out, s)
		}
	}
	undouble := func(s string) {
		if n := len(s); n >= 3 && s[n-1] == s[n-2] {
			add(s[:n-1])
		}
	}

	for _, c := range []string{"n't", "'s", "'re", "'ll", "'ve", "'d", "'m"} {
		if base, ok := strings.CutSuffix(w, c); ok {
			add(base)
		}
	}

	if base, ok := strings.CutSuffix(w, "ies"); ok {
		add(base + "y")
	}
	if base, ok := strings.CutSuffix(w, "es"); ok {
		add(base)
	}
	if base, ok := strings.CutSuffix(w, "s"); ok && !strings.HasSuffix(w, "ss") {
		add(base)
	}
	if base, ok := strings.CutSuffix(w, "ied"); ok {
		add(base + "y")
	}
	for _, suffix := range []string{"ed", "ing", "er", "est"} {
		if base, ok := strings.CutSuffix(w, suffix); ok {
			add(base)
			add(base + "e")
			undouble(base)
		}
	}
	if base, ok := strings.CutSuffix(w, "ily"); ok {
		add(base + "y")
	}
	for _, suffix := range []string{"ly", "ness", "ment", "ful", "less"} {
		if base, ok := strings.CutSuffix(w, suffix); ok {
			add(base)
		}
	}
	return out
}

// Suggest returns up to limit lexicon words close to the normalized word,
// nearest first and more frequent first among equals.
func (lx *Lexicon) Suggest(word string, limit int) []string {
	maxDist := 2
	if len(word) <= 4 {
		maxDist = 1
	}

	type candidate struct {
		word string
		dist int
		rank int
	}
	var found []candidate
	for i, w := range lx.words {
		if abs(len(w)-len(word)) > maxDist {
			continue
		}
		if d := editDistance(word, w, maxDist); d <= maxDist && d > 0 {
			found = append(found, candidate{word: w, dist: d, rank: i})
		}
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].dist != found[j].dist {
			return found[i].dist < found[j].dist
		}
		return found[i].rank < found[j].rank
	})

	out := make([]string, 0, min(limit, len(found)))
	for _, c := range found[:min(limit, len(found))] {
		out = append(out, c.word)
	}
	return out
}

// editDistance is the optimal string alignment distance between a and b,
// counting adjacent transpositions as one edit. Pairs whose lengths differ by
// more than maxDist return maxDist+1 without being aligned.
func editDistance(a, b string, maxDist int) int {
	if abs(utf8.RuneCountInString(a)-utf8.RuneCountInString(b)) > maxDist {
		return maxDist + 1
	}
	return edlib.OSADamerauLevenshteinDistance(a, b)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
