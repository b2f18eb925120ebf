// Package uriutil converts between document URIs and filesystem paths.
package uriutil

import (
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
)

// PathToURI converts a file system path to a file:// URI, percent-encoding
// each path segment:
//   - /home/user/my notes.md -> file:///home/user/my%20notes.md
//   - C:\proj -> file:///C:/proj
//   - \\server\share -> file://server/share (UNC, Windows only)
func PathToURI(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	host := ""
	if runtime.GOOS == "windows" && strings.HasPrefix(path, `\\`) {
		rest := filepath.ToSlash(strings.TrimPrefix(path, `\\`))
		host, path, _ = strings.Cut(rest, "/")
		path = "/" + path
	}

	path = filepath.ToSlash(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return "file://" + host + strings.Join(segments, "/")
}

// FilePath returns the filesystem path of a file:// URI. Other schemes,
// such as untitled: buffers, have no path.
func FilePath(uri string) (string, bool) {
	parsed, err := url.Parse(uri)
	if err != nil || parsed.Scheme != "file" {
		return "", false
	}

	path := parsed.Path
	if parsed.Host != "" && parsed.Host != "localhost" {
		if runtime.GOOS != "windows" {
			return parsed.Host + path, true
		}
		return `\\` + parsed.Host + strings.ReplaceAll(path, "/", `\`), true
	}

	// file:///C:/proj carries the drive after the root slash.
	if len(path) >= 3 && path[0] == '/' && path[2] == ':' {
		path = path[1:]
	}
	return filepath.FromSlash(path), true
}

// URIToPath converts a file:// URI to a file system path. Anything that is
// not a parseable file URI has its scheme prefix stripped instead.
func URIToPath(uri string) string {
	if path, ok := FilePath(uri); ok {
		return path
	}

	path := strings.TrimPrefix(uri, "file://")
	if len(path) >= 3 && path[0] == '/' && path[2] == ':' {
		path = path[1:]
	}
	return filepath.FromSlash(path)
}
