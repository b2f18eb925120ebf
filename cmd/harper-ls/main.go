package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"harperls.dev/harper-ls/internal/config"
	"harperls.dev/harper-ls/internal/log"
	"harperls.dev/harper-ls/internal/version"
	"harperls.dev/harper-ls/lsp"
)

var stdio bool

var rootCmd = &cobra.Command{
	Use:          "harper-ls",
	Short:        "Grammar and style checking language server",
	Long:         `harper-ls lints the prose in documents and source comments and reports the findings to any LSP client. Without --stdio it serves one client over TCP on ` + lsp.DefaultAddress + `.`,
	Version:      version.Full(),
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().BoolVar(&stdio, "stdio", false, "serve over stdin and stdout instead of TCP")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return err
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)

	// glsp logs through commonlog; keep it on stderr and quiet unless
	// debugging, since stdout may carry the protocol.
	verbosity := 0
	if level == log.LevelDebug {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	if err := ensureDirs(cfg); err != nil {
		return err
	}

	server, err := lsp.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create LSP server: %w", err)
	}
	defer server.Close()

	log.Info("harper-ls %s starting", version.Get())
	if stdio {
		return server.RunStdio()
	}
	return server.RunTCP(lsp.DefaultAddress)
}

// ensureDirs creates the dictionary directories so that the first word
// added can be persisted.
func ensureDirs(cfg *config.Config) error {
	for _, dir := range []string{filepath.Dir(cfg.UserDictPath), cfg.FileDictPath} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
