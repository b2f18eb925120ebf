package lifecycle

import (
	"harperls.dev/harper-ls/internal/log"
	"harperls.dev/harper-ls/lsp/types"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Initialized handles the LSP initialized notification
func Initialized(req *types.RequestContext, params *protocol.InitializedParams) error {
	log.Info("Server initialized")

	// Kept for publishing diagnostics from lint workers.
	req.Server.SetGLSPContext(req.GLSP)

	if err := req.Server.RegisterFileWatchers(req.GLSP); err != nil {
		req.AddWarning(err)
	}
	return nil
}
