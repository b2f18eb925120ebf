package lsp

import (
	"path/filepath"
	"strings"
)

// workspaceRelative returns path relative to the workspace root, or "" when
// there is no root or path lies outside it.
func workspaceRelative(path, root string) string {
	if path == "" || root == "" {
		return ""
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return rel
}

// ignored reports whether the file at path matches an ignore pattern,
// either as an absolute path or relative to the workspace root.
func (s *Server) ignored(path string) bool {
	if s.cfg.Ignored(path) {
		return true
	}
	if rel := workspaceRelative(path, s.RootPath()); rel != "" {
		return s.cfg.Ignored(rel)
	}
	return false
}
