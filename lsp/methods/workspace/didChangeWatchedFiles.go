package workspace

import (
	"harperls.dev/harper-ls/internal/log"
	"harperls.dev/harper-ls/internal/uriutil"
	"harperls.dev/harper-ls/lsp/types"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// DidChangeWatchedFiles handles the workspace/didChangeWatchedFiles
// notification. Changed dictionary files are reread and every open document
// is relinted.
func DidChangeWatchedFiles(req *types.RequestContext, params *protocol.DidChangeWatchedFilesParams) error {
	log.Debug("Watched files changed: %d files", len(params.Changes))

	reloaded := false
	for _, change := range params.Changes {
		path, ok := uriutil.FilePath(change.URI)
		if !ok {
			continue
		}
		if req.Server.Dictionary().Reload(path) {
			log.Info("Reloaded dictionary %s (change type %d)", path, change.Type)
			reloaded = true
		}
	}

	if reloaded {
		req.Server.ScheduleLintAll()
	}
	return nil
}
