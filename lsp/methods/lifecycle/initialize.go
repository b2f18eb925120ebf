package lifecycle

import (
	"harperls.dev/harper-ls/internal/config"
	"harperls.dev/harper-ls/internal/diagnostics"
	"harperls.dev/harper-ls/internal/log"
	"harperls.dev/harper-ls/internal/uriutil"
	"harperls.dev/harper-ls/internal/version"
	"harperls.dev/harper-ls/lsp/types"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Initialize handles the LSP initialize request
func Initialize(req *types.RequestContext, params *protocol.InitializeParams) (any, error) {
	clientName := "unknown"
	if params.ClientInfo != nil {
		clientName = params.ClientInfo.Name
	}
	log.Info("Initializing for client: %s", clientName)

	if params.RootURI != nil {
		req.Server.SetRootURI(*params.RootURI)
		req.Server.SetRootPath(uriutil.URIToPath(*params.RootURI))
		log.Info("Workspace root: %s", req.Server.RootPath())
	} else if params.RootPath != nil {
		req.Server.SetRootPath(*params.RootPath)
		req.Server.SetRootURI(uriutil.PathToURI(*params.RootPath))
		log.Info("Workspace root (from rootPath): %s", req.Server.RootPath())
	}

	syncKind := protocol.TextDocumentSyncKindIncremental
	capabilities := protocol.ServerCapabilities{
		TextDocumentSync: protocol.TextDocumentSyncOptions{
			OpenClose: boolPtr(true),
			Change:    &syncKind,
			Save:      protocol.SaveOptions{IncludeText: boolPtr(false)},
		},
		HoverProvider: true,
		CompletionProvider: &protocol.CompletionOptions{
			ResolveProvider: boolPtr(false),
		},
		CodeActionProvider: protocol.CodeActionOptions{
			CodeActionKinds: []protocol.CodeActionKind{protocol.CodeActionKindQuickFix},
		},
		ExecuteCommandProvider: &protocol.ExecuteCommandOptions{
			Commands: diagnostics.Commands(),
		},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    config.AppName,
			Version: strPtr(version.Get()),
		},
	}, nil
}

func boolPtr(b bool) *bool {
	return &b
}

func strPtr(s string) *string {
	return &s
}
