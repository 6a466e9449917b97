package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/locus-search/locus/internal/models"
	"github.com/locus-search/locus/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP search API",
		Long: `Start the HTTP server exposing search, rebuild, and status endpoints
over the configured corpus. The index loads from cache or builds on
startup; rebuild requests replace it atomically while queries keep
being served from the previous index.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			paths, err := resolveCorpusPaths(nil, cfg.Corpus.Paths)
			if err != nil {
				return err
			}

			comps, err := initComponents(cfg, logger)
			if err != nil {
				return err
			}
			defer comps.Close()

			opts := cfg.Build.Options(cfg.Embedding.ModelID)
			if err := comps.orchestrator.Open(cmd.Context(), paths, opts); err != nil {
				return err
			}
			if opts.Mode == models.ModeFast {
				logger.Info("serving in fast mode, semantic search limited to lexical candidates")
			}

			srv := server.NewServer(comps.engine, comps.orchestrator, &cfg.Server, logger)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logger.Info("shutting down", zap.String("signal", sig.String()))
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Stop(ctx)
			}
		},
	}
	return cmd
}
