package hover

import (
	"bytes"
	"fmt"
	"text/template"

	"harperls.dev/harper-ls/internal/diagnostics"
	"harperls.dev/harper-ls/internal/log"
	"harperls.dev/harper-ls/lsp/types"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Template for the hover shown over a flagged phrase
var findingHoverTemplate = template.Must(template.New("findingHover").Parse(`**{{.Finding.Kind}}**: {{.Finding.Message}}
{{- if .Finding.Suggestions}}

Suggestions: {{range $i, $s := .Finding.Suggestions}}{{if $i}}, {{end}}` + "`{{$s}}`" + `{{end}}
{{- end}}`))

// Hover handles the textDocument/hover request. It describes the finding
// under the cursor from the most recently published lint result.
func Hover(req *types.RequestContext, params *protocol.HoverParams) (*protocol.Hover, error) {
	uri := params.TextDocument.URI
	position := params.Position
	log.Debug("Hover requested: %s at line %d, char %d", uri, position.Line, position.Character)

	doc := req.Server.Document(uri)
	if doc == nil {
		return nil, nil
	}
	report := doc.Report()
	if report == nil {
		return nil, nil
	}

	item, ok := report.ItemAt(position)
	if !ok {
		return nil, nil
	}

	content, err := renderFinding(item)
	if err != nil {
		return nil, err
	}
	rng := item.Diagnostic.Range
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: content,
		},
		Range: &rng,
	}, nil
}

func renderFinding(item diagnostics.Item) (string, error) {
	var buf bytes.Buffer
	if err := findingHoverTemplate.Execute(&buf, item); err != nil {
		return "", fmt.Errorf("failed to render hover: %w", err)
	}
	return buf.String(), nil
}
