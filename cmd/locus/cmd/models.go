package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/locus-search/locus/internal/embedding"
)

func newModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List known embedding models",
		Long: `List the embedding models in the catalog, their vector dimensions, and
whether the model file is present in the local model cache. Models are
used from the cache; download them with your model tooling of choice
into the printed cache directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, m := range embedding.Models() {
				status := "missing"
				if embedding.IsModelCached(m.ID) {
					status = "cached"
				}
				lang := "en"
				if m.Multilingual {
					lang = "multilingual"
				}
				fmt.Printf("%-40s %4dd  %-12s %s\n", m.ID, m.Dimensions, lang, status)
			}
			if dir, err := embedding.ModelCachePath(""); err == nil {
				fmt.Printf("\nmodel cache: %s\n", dir)
			}
			return nil
		},
	}
	return cmd
}
