package lsp

import (
	"path/filepath"

	"harperls.dev/harper-ls/internal/log"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// dictionaryWatchers returns glob patterns for the dictionary files, so
// that edits made outside the server reach it.
func (s *Server) dictionaryWatchers() []protocol.FileSystemWatcher {
	userPath, fileDir := s.dictionary.Paths()
	var watchers []protocol.FileSystemWatcher
	if userPath != "" {
		watchers = append(watchers, protocol.FileSystemWatcher{
			GlobPattern: filepath.ToSlash(filepath.Clean(userPath)),
		})
	}
	if fileDir != "" {
		watchers = append(watchers, protocol.FileSystemWatcher{
			GlobPattern: filepath.ToSlash(filepath.Join(filepath.Clean(fileDir), "*")),
		})
	}
	return watchers
}

// RegisterFileWatchers registers the dictionary watchers with the client
func (s *Server) RegisterFileWatchers(context *glsp.Context) error {
	// An empty context, as in tests, has no Call.
	if context == nil || context.Call == nil {
		log.Debug("Skipping file watcher registration (no client context)")
		return nil
	}

	watchers := s.dictionaryWatchers()
	if len(watchers) == 0 {
		return nil
	}

	params := protocol.RegistrationParams{
		Registrations: []protocol.Registration{
			{
				ID:     "harper-dictionary-watcher",
				Method: "workspace/didChangeWatchedFiles",
				RegisterOptions: protocol.DidChangeWatchedFilesRegistrationOptions{
					Watchers: watchers,
				},
			},
		},
	}

	// client/registerCapability is a request. Calling it from the handler
	// goroutine would block reading the client's reply.
	go func(ctx *glsp.Context) {
		var result any
		ctx.Call("client/registerCapability", params, &result)
		log.Debug("Dictionary watcher registration completed")
	}(context)

	log.Debug("Sent dictionary watcher registration (%d watchers)", len(watchers))
	return nil
}
