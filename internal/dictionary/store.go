// Package dictionary keeps the words a user has accepted, in three layers
// checked in priority order: the per-file layer, the user layer and the
// session layer. The user and file layers are append-only word lists on
// disk; the session layer lives only as long as the process.
package dictionary

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"harperls.dev/harper-ls/internal/analysis"
	"harperls.dev/harper-ls/internal/log"
)

// ErrInvalidWord is returned when a word cannot be stored.
var ErrInvalidWord = errors.New("invalid dictionary word")

// Layer identifies a dictionary layer.
type Layer int

const (
	// LayerSession words are forgotten on exit
	LayerSession Layer = iota
	// LayerUser words apply to every file
	LayerUser
	// LayerFile words apply to one workspace file
	LayerFile
)

func (l Layer) String() string {
	switch l {
	case LayerSession:
		return "session"
	case LayerUser:
		return "user"
	case LayerFile:
		return "file"
	}
	return fmt.Sprintf("Layer(%d)", int(l))
}

// ParseLayer is the inverse of Layer.String.
func ParseLayer(name string) (Layer, error) {
	switch strings.ToLower(name) {
	case "session":
		return LayerSession, nil
	case "user":
		return LayerUser, nil
	case "file":
		return LayerFile, nil
	}
	return 0, fmt.Errorf("unknown dictionary layer %q", name)
}

func normalize(word string) string {
	return analysis.Normalize(word)
}

// Store holds the dictionary layers. It is safe for concurrent use.
type Store struct {
	session *layer
	user    *layer
	fileDir string

	filesMu sync.Mutex
	files   map[string]*layer

	generation atomic.Uint64
}

// Open loads the user dictionary at userPath and prepares per-file
// dictionaries under fileDir. Either path may be empty to keep that layer
// in memory only. A missing or unreadable user dictionary is an empty layer.
func Open(userPath, fileDir string) (*Store, error) {
	if fileDir != "" {
		if info, err := os.Stat(fileDir); err == nil && !info.IsDir() {
			return nil, fmt.Errorf("file dictionary path %s is not a directory", fileDir)
		}
	}
	s := &Store{
		session: newLayer(""),
		user:    newLayer(userPath),
		fileDir: fileDir,
		files:   map[string]*layer{},
	}
	s.user.load()
	return s, nil
}

// fileLayer returns the layer for a workspace file, loading it on first use.
func (s *Store) fileLayer(file string) *layer {
	if file == "" {
		return nil
	}
	s.filesMu.Lock()
	defer s.filesMu.Unlock()

	if l, ok := s.files[file]; ok {
		return l
	}
	path := ""
	if s.fileDir != "" {
		path = filepath.Join(s.fileDir, FileDictionaryName(file))
	}
	l := newLayer(path)
	l.load()
	s.files[file] = l
	return l
}

// Contains reports whether word is accepted for file. The file may be empty
// when the document has no filesystem path.
func (s *Store) Contains(file, word string) bool {
	w := normalize(strings.TrimSpace(word))
	if w == "" {
		return false
	}
	if l := s.fileLayer(file); l != nil && l.contains(w) {
		return true
	}
	return s.user.contains(w) || s.session.contains(w)
}

// Add accepts word in the given layer. The in-memory addition happens first
// and is kept even when persisting it fails. The write runs on its own
// goroutine; if ctx ends first Add returns ctx's error and the write
// finishes in the background, logging any failure.
func (s *Store) Add(ctx context.Context, word string, layer Layer, file string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w, err := normalizeWord(word)
	if err != nil {
		return err
	}

	l, err := s.layer(layer, file)
	if err != nil {
		return err
	}
	if !l.add(w) {
		return nil
	}
	s.generation.Add(1)

	done := make(chan error, 1)
	go func() { done <- l.persist(w) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("added %q to the %s dictionary for this session only: %w", w, layer, err)
		}
		return nil
	case <-ctx.Done():
		go func() {
			if err := <-done; err != nil {
				log.Warn("Failed to save %q to the %s dictionary: %v", w, layer, err)
			}
		}()
		return fmt.Errorf("added %q to the %s dictionary, still saving: %w", w, layer, ctx.Err())
	}
}

func (s *Store) layer(layer Layer, file string) (*layer, error) {
	switch layer {
	case LayerSession:
		return s.session, nil
	case LayerUser:
		return s.user, nil
	case LayerFile:
		if file == "" {
			return nil, errors.New("file dictionary needs a file path")
		}
		return s.fileLayer(file), nil
	}
	return nil, fmt.Errorf("unknown dictionary layer %d", int(layer))
}

// Words returns the sorted words of one layer. The file is only used for
// LayerFile.
func (s *Store) Words(layer Layer, file string) []string {
	l, err := s.layer(layer, file)
	if err != nil {
		return nil
	}
	return l.snapshot()
}

// Paths returns the user dictionary file and the file dictionary directory.
func (s *Store) Paths() (userPath, fileDir string) {
	return s.user.path, s.fileDir
}

// Reload rereads the word list at path if it backs a loaded layer, for
// when the file was edited outside the server. It reports whether a layer
// was reloaded. Session-only words of that layer are lost.
func (s *Store) Reload(path string) bool {
	if path == "" {
		return false
	}
	path = filepath.Clean(path)

	reloaded := false
	if s.user.path != "" && filepath.Clean(s.user.path) == path {
		s.user.load()
		reloaded = true
	} else if s.fileDir != "" && filepath.Dir(path) == filepath.Clean(s.fileDir) {
		s.filesMu.Lock()
		for _, l := range s.files {
			if l.path != "" && filepath.Clean(l.path) == path {
				l.load()
				reloaded = true
			}
		}
		s.filesMu.Unlock()
	}
	if reloaded {
		s.generation.Add(1)
	}
	return reloaded
}

// Generation increases every time a word is added to any layer or a layer is reloaded.
func (s *Store) Generation() uint64 {
	return s.generation.Load()
}

// For returns a checker scoped to one file.
func (s *Store) For(file string) Scope {
	return Scope{store: s, file: file}
}

// Scope checks words against the dictionary layers visible to one file.
type Scope struct {
	store *Store
	file  string
}

// Contains reports whether word is accepted in this scope.
func (sc Scope) Contains(word string) bool {
	return sc.store.Contains(sc.file, word)
}

var _ analysis.WordChecker = Scope{}

// FileDictionaryName turns a file path into the name of its dictionary
// file by joining the path components with '%'.
func FileDictionaryName(path string) string {
	path = filepath.ToSlash(filepath.Clean(path))
	parts := strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == ':' })
	return strings.Join(parts, "%")
}
