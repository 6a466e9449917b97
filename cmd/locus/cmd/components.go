package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/locus-search/locus/internal/cache"
	"github.com/locus-search/locus/internal/config"
	"github.com/locus-search/locus/internal/corpus"
	"github.com/locus-search/locus/internal/embedding"
	"github.com/locus-search/locus/internal/extract"
	"github.com/locus-search/locus/internal/fingerprint"
	"github.com/locus-search/locus/internal/search"
)

// components bundles the wired subsystems shared by the index, search, and
// serve commands.
type components struct {
	cfg          *config.Config
	logger       *zap.Logger
	embedder     embedding.Embedder
	orchestrator *corpus.Orchestrator
	engine       *search.Engine
}

func initComponents(cfg *config.Config, logger *zap.Logger) (*components, error) {
	store, err := cache.NewStore(expandHome(cfg.Storage.CacheDir))
	if err != nil {
		return nil, err
	}

	embedder := newEmbedder(cfg, logger)

	loader := corpus.NewLoader(
		extract.NewPDFExtractor(),
		nil,
		fingerprint.Mode(cfg.Corpus.Fingerprint),
		logger,
	)
	orch := corpus.NewOrchestrator(loader, store, embedder, cfg.Embedding.VectorIndex, logger)
	engine := search.NewEngine(embedder, logger)

	return &components{
		cfg:          cfg,
		logger:       logger,
		embedder:     embedder,
		orchestrator: orch,
		engine:       engine,
	}, nil
}

func (c *components) Close() {
	_ = c.orchestrator.Close()
	if c.embedder != nil {
		_ = c.embedder.Close()
	}
}

// newEmbedder loads the configured ONNX model. A missing model file or an
// unavailable runtime degrades to keyword-only search instead of failing.
func newEmbedder(cfg *config.Config, logger *zap.Logger) embedding.Embedder {
	modelID := cfg.Embedding.ModelID
	modelPath := cfg.Embedding.ModelPath
	if modelPath == "" {
		p, err := embedding.ModelFilePath(modelID)
		if err != nil {
			logger.Warn("cannot resolve model cache path, keyword-only search", zap.Error(err))
			return nil
		}
		modelPath = p
	}
	if _, err := os.Stat(modelPath); err != nil {
		logger.Warn("embedding model not found, keyword-only search",
			zap.String("model_id", modelID),
			zap.String("model_path", modelPath))
		return nil
	}

	dims := cfg.Embedding.Dimensions
	if info, ok := embedding.Lookup(modelID); ok {
		dims = info.Dimensions
	}
	onnx, err := embedding.NewONNXEmbedder(modelID, modelPath, dims, cfg.Embedding.MaxTokens)
	if err != nil {
		logger.Warn("embedder unavailable, keyword-only search", zap.Error(err))
		return nil
	}
	return embedding.NewCachedEmbedder(onnx, cfg.Embedding.CacheSize)
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
