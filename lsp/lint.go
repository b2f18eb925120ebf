package lsp

import (
	"context"

	"harperls.dev/harper-ls/internal/analysis"
	"harperls.dev/harper-ls/internal/diagnostics"
	"harperls.dev/harper-ls/internal/log"
	"harperls.dev/harper-ls/internal/uriutil"
)

// lint is the scheduler job for one document. It lints a snapshot and
// publishes the result only if the document has not changed since.
func (s *Server) lint(ctx context.Context, uri string) {
	doc := s.documents.Get(uri)
	if doc == nil {
		return
	}
	snap, err := doc.Snapshot(s.extractor)
	if err != nil {
		log.Debug("Skipping lint: %v", err)
		return
	}

	path, _ := uriutil.FilePath(uri)
	var report *diagnostics.Report
	if s.ignored(path) {
		log.Debug("Ignoring %s", path)
		report = diagnostics.Empty(uri, snap.Version)
	} else {
		findings := s.linter.Lint(ctx, analysis.Input{
			Text:       snap.Extraction.Text,
			Words:      s.dictionary.For(path),
			Scope:      path,
			Generation: s.dictionary.Generation(),
		})
		if ctx.Err() != nil {
			return
		}
		report = diagnostics.Translate(uri, snap.Content, snap.Extraction, findings, snap.Version)
	}

	published := doc.Publish(snap.Generation, report, func(r *diagnostics.Report) {
		s.PublishDiagnostics(nil, r)
	})
	if !published {
		log.Debug("Discarded stale lint of %s version %d", uri, snap.Version)
	}
}
