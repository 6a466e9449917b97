// Package cmd provides the CLI commands for Locus.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/locus-search/locus/internal/config"
	"github.com/locus-search/locus/pkg/utils"
)

var (
	configPath string
	debugMode  bool
)

const defaultConfigPath = "~/.config/locus/config.yaml"

// NewRootCmd creates the root command for the locus CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locus",
		Short: "Hybrid page search over PDF corpora",
		Long: `Locus locates the pages inside a collection of PDF documents that best
answer a natural-language query, combining BM25 lexical retrieval with
embedding similarity. Built indexes are cached by corpus fingerprint so
repeated searches over the same documents are cheap.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.SetVersionTemplate("locus version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "config file path")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newModelsCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig resolves and loads the configuration. When the default path is
// requested, a config.yaml in the working directory wins, so running from a
// project directory picks up the project's config.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			local := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(local); err == nil {
				return config.Load(local)
			}
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, ".config", "locus", "config.yaml")
		if _, err := os.Stat(path); err != nil {
			// No config anywhere: run on defaults.
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			return cfg, nil
		}
	}
	return config.Load(path)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return utils.NewLogger(cfg.Debug || debugMode)
}
