package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/locus-search/locus/internal/models"
)

func newIndexCmd() *cobra.Command {
	var (
		mode    string
		ocrOn   bool
		rebuild bool
	)

	cmd := &cobra.Command{
		Use:   "index [paths...]",
		Short: "Build or refresh the search index for a corpus",
		Long: `Index the given PDF files or directories. Without arguments the corpus
paths from the config file are used. An unchanged corpus reuses the
cached index; pass --rebuild to force a fresh build.`,
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

			paths, err := resolveCorpusPaths(args, cfg.Corpus.Paths)
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
			if cmd.Flags().Changed("ocr") {
				opts.OCREnabled = ocrOn
			}

			ctx := cmd.Context()
			if err := comps.orchestrator.Open(ctx, paths, opts); err != nil {
				return err
			}
			if rebuild {
				if err := comps.orchestrator.Rebuild(ctx, opts); err != nil {
					return err
				}
			}

			st := comps.orchestrator.Status()
			fmt.Printf("Indexed %d documents, %d chunks (%s mode)\n", st.Documents, st.Chunks, st.Mode)
			for _, skipped := range st.Skipped {
				fmt.Printf("  skipped %s: %s\n", skipped.Path, skipped.Reason)
			}
			logger.Info("index ready",
				zap.String("fingerprint", st.Fingerprint),
				zap.String("build_id", st.BuildID))
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "index mode: fast or deep (default from config)")
	cmd.Flags().BoolVar(&ocrOn, "ocr", false, "run OCR on image-heavy pages")
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "force a rebuild even if the cache is valid")
	return cmd
}

// resolveCorpusPaths expands directories into the PDFs they contain.
func resolveCorpusPaths(args, fallback []string) ([]string, error) {
	inputs := args
	if len(inputs) == 0 {
		inputs = fallback
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no corpus paths given: pass paths or set corpus.paths in config")
	}

	var paths []string
	for _, in := range inputs {
		in = expandHome(in)
		info, err := os.Stat(in)
		if err != nil {
			// Keep unreadable entries: the loader reports them as skipped.
			paths = append(paths, in)
			continue
		}
		if !info.IsDir() {
			paths = append(paths, in)
			continue
		}
		err = filepath.WalkDir(in, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(p), ".pdf") {
				paths = append(paths, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return paths, nil
}
