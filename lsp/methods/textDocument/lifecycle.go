package textDocument

import (
	"errors"

	"harperls.dev/harper-ls/internal/config"
	"harperls.dev/harper-ls/internal/diagnostics"
	"harperls.dev/harper-ls/internal/documents"
	"harperls.dev/harper-ls/internal/log"
	"harperls.dev/harper-ls/lsp/types"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// DidOpen handles the textDocument/didOpen notification
func DidOpen(req *types.RequestContext, params *protocol.DidOpenTextDocumentParams) error {
	item := params.TextDocument
	log.Debug("Document opened: %s (language: %s, version: %d)", item.URI, item.LanguageID, int(item.Version))

	req.Server.DocumentManager().DidOpen(item.URI, item.LanguageID, int(item.Version), item.Text)
	req.Server.ScheduleLint(item.URI)
	return nil
}

// DidChange handles the textDocument/didChange notification. Changes apply
// in order before the handler returns, so later notifications see them.
func DidChange(req *types.RequestContext, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI
	version := int(params.TextDocument.Version)
	log.Debug("Document changed: %s (version: %d, changes: %d)", uri, version, len(params.ContentChanges))

	if _, err := req.Server.DocumentManager().DidChange(uri, version, params.ContentChanges); err != nil {
		return err
	}
	if req.Server.Config().LintOn == config.LintOnChange {
		req.Server.ScheduleLint(uri)
	}
	return nil
}

// DidSave handles the textDocument/didSave notification
func DidSave(req *types.RequestContext, params *protocol.DidSaveTextDocumentParams) error {
	uri := params.TextDocument.URI
	log.Debug("Document saved: %s", uri)

	doc, err := req.OpenDocument(uri)
	if err != nil {
		return err
	}

	if params.Text != nil {
		if err := doc.SetContent(*params.Text, doc.Version()); err != nil {
			return err
		}
		req.Server.ScheduleLint(uri)
		return nil
	}
	if req.Server.Config().LintOn == config.LintOnSave {
		req.Server.ScheduleLint(uri)
	}
	return nil
}

// DidClose handles the textDocument/didClose notification. The empty
// diagnostic set is published under the document lock, after which no lint
// of the closed document can publish.
func DidClose(req *types.RequestContext, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	log.Debug("Document closed: %s", uri)

	req.Server.CancelLint(uri)

	version := 0
	if doc := req.Server.Document(uri); doc != nil {
		version = doc.Version()
	}
	err := req.Server.DocumentManager().DidClose(uri, func() {
		req.Server.PublishDiagnostics(req.GLSP, diagnostics.Empty(uri, version))
	})
	if errors.Is(err, documents.ErrNotFound) {
		req.AddWarning(err)
		return nil
	}
	return err
}
