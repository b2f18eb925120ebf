package lifecycle

import (
	"harperls.dev/harper-ls/internal/log"
	"harperls.dev/harper-ls/lsp/types"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// SetTrace handles the $/setTrace notification. The server has no trace
// output of its own; unknown values are reported and otherwise ignored.
func SetTrace(req *types.RequestContext, params *protocol.SetTraceParams) error {
	switch params.Value {
	case "off", "messages", "verbose":
		log.Debug("Client trace level: %s", params.Value)
	default:
		req.Warnf("unknown trace value %q", params.Value)
	}
	return nil
}
