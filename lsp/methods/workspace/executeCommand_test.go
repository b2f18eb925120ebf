package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"harperls.dev/harper-ls/internal/diagnostics"
	"harperls.dev/harper-ls/internal/dictionary"
	"harperls.dev/harper-ls/lsp/testutil"
	"harperls.dev/harper-ls/lsp/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const docURI = "file:///workspace/notes.md"

func setup(t *testing.T) (*testutil.MockServerContext, *types.RequestContext, string, string) {
	t.Helper()
	dir := t.TempDir()
	userPath := filepath.Join(dir, "dictionary.txt")
	fileDir := filepath.Join(dir, "file_dictionaries")
	store, err := dictionary.Open(userPath, fileDir)
	require.NoError(t, err)

	server := testutil.NewMockServerContext()
	server.SetDictionary(store)
	server.DocumentManager().DidOpen(docURI, "markdown", 1, "See teh cat.")
	server.DocumentManager().DidOpen("file:///workspace/other.md", "markdown", 1, "teh")
	return server, types.NewRequestContext(server, &glsp.Context{}), userPath, fileDir
}

func run(req *types.RequestContext, command string, args ...any) error {
	_, err := ExecuteCommand(req, &protocol.ExecuteCommandParams{Command: command, Arguments: args})
	return err
}

func TestExecuteCommand_Layers(t *testing.T) {
	tests := []struct {
		name    string
		command string
		layer   dictionary.Layer
		file    string
	}{
		{name: "user", command: diagnostics.CommandAddToUserDictionary, layer: dictionary.LayerUser},
		{name: "file", command: diagnostics.CommandAddToFileDictionary, layer: dictionary.LayerFile, file: "/workspace/notes.md"},
		{name: "session", command: diagnostics.CommandIgnoreForSession, layer: dictionary.LayerSession},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, req, _, _ := setup(t)

			require.NoError(t, run(req, tt.command, "teh", docURI))

			assert.Equal(t, []string{"teh"}, server.Dictionary().Words(tt.layer, tt.file))
			assert.True(t, server.Dictionary().Contains("/workspace/notes.md", "teh"))
			assert.ElementsMatch(t, []string{docURI, "file:///workspace/other.md"}, server.Scheduled(),
				"every open document is relinted")
		})
	}
}

func TestExecuteCommand_FileLayerIsScoped(t *testing.T) {
	server, req, _, fileDir := setup(t)

	require.NoError(t, run(req, diagnostics.CommandAddToFileDictionary, "teh", docURI))

	assert.True(t, server.Dictionary().Contains("/workspace/notes.md", "teh"))
	assert.False(t, server.Dictionary().Contains("/workspace/other.md", "teh"))
	assert.FileExists(t, filepath.Join(fileDir, dictionary.FileDictionaryName("/workspace/notes.md")))
}

func TestExecuteCommand_PersistsUserWord(t *testing.T) {
	_, req, userPath, _ := setup(t)

	require.NoError(t, run(req, diagnostics.CommandAddToUserDictionary, "Harper", docURI))

	data, err := os.ReadFile(userPath)
	require.NoError(t, err)
	assert.Equal(t, "harper\n", string(data))
}

func TestExecuteCommand_WriteFailureKeepsWord(t *testing.T) {
	dir := t.TempDir()
	// The user dictionary's parent is a regular file, so appending fails.
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	store, err := dictionary.Open(filepath.Join(blocker, "dictionary.txt"), "")
	require.NoError(t, err)

	server := testutil.NewMockServerContext()
	server.SetDictionary(store)
	server.DocumentManager().DidOpen(docURI, "markdown", 1, "teh")
	req := types.NewRequestContext(server, &glsp.Context{})

	err = run(req, diagnostics.CommandAddToUserDictionary, "teh", docURI)
	assert.Error(t, err)
	assert.True(t, store.Contains("", "teh"))
	assert.Equal(t, []string{docURI}, server.Scheduled())
}

func TestExecuteCommand_Errors(t *testing.T) {
	tests := []struct {
		name    string
		command string
		args    []any
	}{
		{name: "unknown command", command: "HarperFormat", args: []any{"teh", docURI}},
		{name: "missing arguments", command: diagnostics.CommandAddToUserDictionary, args: []any{"teh"}},
		{name: "word not a string", command: diagnostics.CommandAddToUserDictionary, args: []any{42.0, docURI}},
		{name: "uri not a string", command: diagnostics.CommandAddToUserDictionary, args: []any{"teh", nil}},
		{name: "invalid word", command: diagnostics.CommandAddToUserDictionary, args: []any{"two words", docURI}},
		{name: "file layer without path", command: diagnostics.CommandAddToFileDictionary, args: []any{"teh", "untitled:Untitled-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, req, _, _ := setup(t)
			assert.Error(t, run(req, tt.command, tt.args...))
			assert.Empty(t, server.Scheduled())
		})
	}
}
