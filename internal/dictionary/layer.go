package dictionary

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"harperls.dev/harper-ls/internal/collections"
	"harperls.dev/harper-ls/internal/log"
)

// maxWordLen bounds a dictionary line in bytes.
const maxWordLen = 256

// layer is one word set, optionally backed by an append-only word list.
type layer struct {
	path string

	mu    sync.RWMutex
	words collections.Set[string]

	// wmu serializes appends to path
	wmu sync.Mutex
}

func newLayer(path string) *layer {
	return &layer{path: path, words: collections.NewSet[string]()}
}

// load reads the backing file, replacing the words in memory. A missing
// file is an empty layer. Any other open failure is logged and keeps the
// current words; a failure partway through keeps what was read so far.
func (l *layer) load() {
	if l.path == "" {
		return
	}
	f, err := os.Open(l.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("Failed to read dictionary %s: %v", l.path, err)
			return
		}
		l.replace(collections.NewSet[string]())
		return
	}
	defer f.Close()

	words := collections.NewSet[string]()
	loaded, skipped, err := readWords(f, func(w string) { words.Insert(w) })
	if err != nil {
		log.Warn("Stopped reading dictionary %s after %d words: %v", l.path, loaded, err)
	}
	if skipped > 0 {
		log.Warn("Skipped %d malformed lines in %s", skipped, l.path)
	}
	l.replace(words)
	log.Debug("Loaded %d words from %s", loaded, l.path)
}

func (l *layer) replace(words collections.Set[string]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.words = words
}

// readWords calls add for every valid line of r. It returns the counts of
// accepted and skipped lines.
func readWords(r io.Reader, add func(string)) (loaded, skipped int, err error) {
	br := bufio.NewReader(r)
	for {
		line, rerr := br.ReadString('\n')
		if line != "" {
			if w, ok := parseLine(line); ok {
				add(w)
				loaded++
			} else if strings.TrimSpace(line) != "" && !strings.HasPrefix(strings.TrimSpace(line), "#") {
				skipped++
			}
		}
		if rerr == io.EOF {
			return loaded, skipped, nil
		}
		if rerr != nil {
			return loaded, skipped, rerr
		}
	}
}

// parseLine validates one word-list line.
func parseLine(line string) (string, bool) {
	line = strings.TrimRight(line, "\r\n")
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", false
	}
	w, err := normalizeWord(line)
	if err != nil {
		return "", false
	}
	return w, true
}

// normalizeWord validates and normalizes a word for storage.
func normalizeWord(word string) (string, error) {
	word = strings.TrimSpace(word)
	switch {
	case word == "":
		return "", fmt.Errorf("%w: empty", ErrInvalidWord)
	case !utf8.ValidString(word):
		return "", fmt.Errorf("%w: invalid UTF-8", ErrInvalidWord)
	case len(word) > maxWordLen:
		return "", fmt.Errorf("%w: longer than %d bytes", ErrInvalidWord, maxWordLen)
	case strings.IndexFunc(word, unicode.IsSpace) >= 0:
		return "", fmt.Errorf("%w: %q contains whitespace", ErrInvalidWord, word)
	case strings.IndexFunc(word, unicode.IsControl) >= 0:
		return "", fmt.Errorf("%w: %q contains control characters", ErrInvalidWord, word)
	}
	return normalize(word), nil
}

func (l *layer) add(word string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.words.Insert(word)
}

func (l *layer) contains(word string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.words.Has(word)
}

func (l *layer) snapshot() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return collections.Sorted(l.words)
}

// persist appends word to the backing file, creating it and its directory
// if missing.
func (l *layer) persist(word string) error {
	if l.path == "" {
		return nil
	}
	l.wmu.Lock()
	defer l.wmu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create dictionary directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open dictionary %s: %w", l.path, err)
	}
	line := word + "\n"
	terminated, err := endsWithNewline(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to read dictionary %s: %w", l.path, err)
	}
	if !terminated {
		// A hand-edited file may lack the final newline.
		line = "\n" + line
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return fmt.Errorf("failed to write dictionary %s: %w", l.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close dictionary %s: %w", l.path, err)
	}
	return nil
}

// endsWithNewline reports whether f is empty or its last byte is a newline.
func endsWithNewline(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		return true, nil
	}
	var last [1]byte
	if _, err := f.ReadAt(last[:], info.Size()-1); err != nil {
		return false, err
	}
	return last[0] == '\n', nil
}
