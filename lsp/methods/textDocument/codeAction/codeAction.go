package codeaction

import (
	"slices"

	"harperls.dev/harper-ls/internal/log"
	"harperls.dev/harper-ls/lsp/types"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// CodeAction handles the textDocument/codeAction request. It answers from
// the most recently published lint result and never waits for a lint in
// flight.
func CodeAction(req *types.RequestContext, params *protocol.CodeActionParams) (any, error) {
	uri := params.TextDocument.URI
	log.Debug("CodeAction requested: %s", uri)

	doc := req.Server.Document(uri)
	if doc == nil {
		return nil, nil
	}
	report := doc.Report()
	if report == nil || !wantsQuickFix(params.Context.Only) {
		return []protocol.CodeAction{}, nil
	}

	actions := report.ActionsFor(params.Range)
	if actions == nil {
		actions = []protocol.CodeAction{}
	}
	return actions, nil
}

// wantsQuickFix reports whether a client's "only" filter admits quick fixes.
func wantsQuickFix(only []protocol.CodeActionKind) bool {
	if len(only) == 0 {
		return true
	}
	return slices.ContainsFunc(only, func(kind protocol.CodeActionKind) bool {
		return kind == "" || kind == protocol.CodeActionKindQuickFix
	})
}
