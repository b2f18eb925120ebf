package lifecycle

import (
	"harperls.dev/harper-ls/internal/log"
	"harperls.dev/harper-ls/lsp/types"
)

// Shutdown handles the LSP shutdown request. Linting stops; parser pools
// are released when the process exits and the server is closed.
func Shutdown(req *types.RequestContext) error {
	log.Info("Server shutting down")
	req.Server.Shutdown()
	return nil
}
