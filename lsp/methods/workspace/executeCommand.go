package workspace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"harperls.dev/harper-ls/internal/diagnostics"
	"harperls.dev/harper-ls/internal/dictionary"
	"harperls.dev/harper-ls/internal/log"
	"harperls.dev/harper-ls/internal/uriutil"
	"harperls.dev/harper-ls/lsp/types"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// persistTimeout bounds how long a dictionary write may hold up the
// request loop.
const persistTimeout = 2 * time.Second

var commandLayers = map[string]dictionary.Layer{
	diagnostics.CommandAddToUserDictionary: dictionary.LayerUser,
	diagnostics.CommandAddToFileDictionary: dictionary.LayerFile,
	diagnostics.CommandIgnoreForSession:    dictionary.LayerSession,
}

// ExecuteCommand handles workspace/executeCommand for the dictionary
// commands. Each takes the arguments [word, documentURI]. Every open
// document is relinted afterwards, also when persisting the word failed,
// since the word is accepted in memory either way.
func ExecuteCommand(req *types.RequestContext, params *protocol.ExecuteCommandParams) (any, error) {
	layer, ok := commandLayers[params.Command]
	if !ok {
		return nil, fmt.Errorf("unknown command %q", params.Command)
	}
	word, uri, err := wordAndURI(params.Arguments)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", params.Command, err)
	}

	file, isFile := uriutil.FilePath(uri)
	if layer == dictionary.LayerFile && !isFile {
		return nil, fmt.Errorf("%s: %s has no file path", params.Command, uri)
	}

	log.Info("Adding %q to the %s dictionary", word, layer)
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	err = req.Server.Dictionary().Add(ctx, word, layer, file)
	if errors.Is(err, dictionary.ErrInvalidWord) {
		return nil, err
	}
	req.Server.ScheduleLintAll()
	return nil, err
}

func wordAndURI(args []any) (string, string, error) {
	if len(args) < 2 {
		return "", "", fmt.Errorf("expected [word, uri] arguments, got %d", len(args))
	}
	word, ok := args[0].(string)
	if !ok {
		return "", "", fmt.Errorf("word argument must be a string, got %T", args[0])
	}
	uri, ok := args[1].(string)
	if !ok {
		return "", "", fmt.Errorf("uri argument must be a string, got %T", args[1])
	}
	return word, uri, nil
}
