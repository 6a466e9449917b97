package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/locus-search/locus/internal/cli"
	"github.com/locus-search/locus/internal/models"
)

func newSearchCmd() *cobra.Command {
	var (
		topK       int
		bias       float64
		fusionName string
		mode       string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed corpus",
		Long: `Search the corpus for pages answering the query. The index is loaded
from cache when the corpus is unchanged, otherwise built first.

Bias weights literal against semantic evidence for the blend fusion
policy: 1.0 is pure keyword match, 0.0 is pure meaning match.`,
		Args: cobra.MinimumNArgs(1),
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
			if mode != "" {
				opts.Mode = models.IndexMode(mode)
			}
			ctx := cmd.Context()
			if err := comps.orchestrator.Open(ctx, paths, opts); err != nil {
				return err
			}

			if topK == 0 {
				topK = cfg.Search.TopK
			}
			if bias == -1 {
				bias = cfg.Search.BiasValue()
			}
			if fusionName == "" {
				fusionName = cfg.Search.Fusion
			}
			query := models.SearchQuery{
				Query:      strings.Join(args, " "),
				TopK:       topK,
				Bias:       bias,
				Fusion:     models.FusionPolicy(fusionName),
				Candidates: cfg.Search.Candidates,
			}
			resp, err := comps.engine.Search(ctx, comps.orchestrator.Snapshot(), query)
			if err != nil {
				return err
			}
			return cli.WriteSearchResults(os.Stdout, resp, cli.SearchOutputFormat(output))
		},
	}

	cmd.Flags().IntVarP(&topK, "top", "k", 0, "number of results (default from config)")
	cmd.Flags().Float64VarP(&bias, "bias", "b", -1, "literal bias in [0,1] for blend fusion")
	cmd.Flags().StringVar(&fusionName, "fusion", "", "fusion policy: rrf or blend")
	cmd.Flags().StringVar(&mode, "mode", "", "index mode: fast or deep")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if bias != -1 && (bias < 0 || bias > 1) {
			return fmt.Errorf("bias must be in [0,1]")
		}
		return nil
	}
	return cmd
}
