package completion

import (
	"fmt"

	"harperls.dev/harper-ls/internal/diagnostics"
	"harperls.dev/harper-ls/internal/log"
	"harperls.dev/harper-ls/lsp/types"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Completion handles the textDocument/completion request. At a flagged
// phrase it offers that finding's suggestions as replacements.
func Completion(req *types.RequestContext, params *protocol.CompletionParams) (any, error) {
	uri := params.TextDocument.URI
	pos := params.Position
	log.Debug("Completion requested: %s at line %d, char %d", uri, pos.Line, pos.Character)

	doc := req.Server.Document(uri)
	if doc == nil {
		return nil, nil
	}
	report := doc.Report()
	if report == nil {
		return nil, nil
	}
	item, ok := report.ItemAt(pos)
	if !ok || len(item.Finding.Suggestions) == 0 {
		return nil, nil
	}

	// Editors filter items against the text being replaced; matching on the
	// flagged text keeps every suggestion visible.
	filter := item.Finding.Word
	if content := doc.Content(); doc.Version() == report.Version && item.End <= len(content) {
		filter = content[item.Start:item.End]
	}

	items := make([]protocol.CompletionItem, 0, len(item.Finding.Suggestions))
	for i, suggestion := range item.Finding.Suggestions {
		items = append(items, newItem(item, suggestion, filter, i))
	}
	log.Debug("Returning %d completion items", len(items))

	return &protocol.CompletionList{
		IsIncomplete: false,
		Items:        items,
	}, nil
}

func newItem(item diagnostics.Item, suggestion, filter string, rank int) protocol.CompletionItem {
	kind := protocol.CompletionItemKindText
	detail := item.Finding.Message
	sortText := fmt.Sprintf("%04d", rank)
	preselect := rank == 0
	return protocol.CompletionItem{
		Label:      suggestion,
		Kind:       &kind,
		Detail:     &detail,
		SortText:   &sortText,
		FilterText: &filter,
		Preselect:  &preselect,
		TextEdit: protocol.TextEdit{
			Range:   item.Diagnostic.Range,
			NewText: suggestion,
		},
	}
}
