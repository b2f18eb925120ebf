package diagnostics

import (
	"fmt"
	"sort"

	"harperls.dev/harper-ls/internal/analysis"
	"harperls.dev/harper-ls/internal/position"
	"harperls.dev/harper-ls/internal/prose"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Commands executed by the dictionary code actions. Each takes the
// arguments [word, documentURI].
const (
	CommandAddToUserDictionary = "HarperAddToUserDict"
	CommandAddToFileDictionary = "HarperAddToFileDict"
	CommandIgnoreForSession    = "HarperIgnoreForSession"
)

// Commands lists every command the server executes.
func Commands() []string {
	return []string{CommandAddToUserDictionary, CommandAddToFileDictionary, CommandIgnoreForSession}
}

// Translate maps findings in extracted-prose coordinates to a report for
// one document version.
func Translate(uri, text string, ext *prose.Extraction, findings []analysis.Finding, version int) *Report {
	report := &Report{URI: uri, Version: version, Items: make([]Item, 0, len(findings))}
	if len(findings) == 0 {
		return report
	}
	lines := position.NewLineIndex(text)

	for _, f := range findings {
		start, end := f.Start, f.End
		if ext != nil {
			start, end = ext.ToDocumentRange(f.Start, f.End)
		}
		start = min(max(start, 0), len(text))
		end = min(max(end, start), len(text))

		rng := lines.Range(start, end)
		diag := newDiagnostic(rng, f)
		report.Items = append(report.Items, Item{
			Start:      start,
			End:        end,
			Finding:    f,
			Diagnostic: diag,
			Actions:    actions(uri, diag, f),
		})
	}

	sort.SliceStable(report.Items, func(i, j int) bool {
		return report.Items[i].Start < report.Items[j].Start
	})
	return report
}

func newDiagnostic(rng protocol.Range, f analysis.Finding) protocol.Diagnostic {
	severity := protocol.DiagnosticSeverity(f.Severity)
	if f.Severity < analysis.SeverityError || f.Severity > analysis.SeverityHint {
		severity = protocol.DiagnosticSeverityInformation
	}
	source := Source
	diag := protocol.Diagnostic{
		Range:    rng,
		Severity: &severity,
		Code:     &protocol.IntegerOrString{Value: string(f.Kind)},
		Source:   &source,
		Message:  f.Message,
	}
	if f.Word != "" {
		diag.Data = f.Word
	}
	return diag
}

// actions builds the quick fixes for one diagnostic: a replacement per
// suggestion, then the dictionary commands for unknown words.
func actions(uri string, diag protocol.Diagnostic, f analysis.Finding) []protocol.CodeAction {
	var out []protocol.CodeAction
	kind := protocol.CodeActionKindQuickFix

	for i, suggestion := range f.Suggestions {
		action := protocol.CodeAction{
			Title:       fmt.Sprintf("Replace with %q", suggestion),
			Kind:        &kind,
			Diagnostics: []protocol.Diagnostic{diag},
			Edit: &protocol.WorkspaceEdit{
				Changes: map[string][]protocol.TextEdit{
					uri: {{Range: diag.Range, NewText: suggestion}},
				},
			},
		}
		if i == 0 {
			preferred := true
			action.IsPreferred = &preferred
		}
		out = append(out, action)
	}

	if f.Kind != analysis.KindSpelling || f.Word == "" {
		return out
	}

	for _, c := range []struct {
		title   string
		command string
	}{
		{title: "Add %q to the user dictionary", command: CommandAddToUserDictionary},
		{title: "Add %q to the file dictionary", command: CommandAddToFileDictionary},
		{title: "Ignore %q for this session", command: CommandIgnoreForSession},
	} {
		title := fmt.Sprintf(c.title, f.Word)
		out = append(out, protocol.CodeAction{
			Title:       title,
			Kind:        &kind,
			Diagnostics: []protocol.Diagnostic{diag},
			Command: &protocol.Command{
				Title:     title,
				Command:   c.command,
				Arguments: []any{f.Word, uri},
			},
		})
	}
	return out
}
