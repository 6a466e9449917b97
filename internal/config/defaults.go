package config

// defaultBias is the literal bias applied when the config leaves it unset.
const defaultBias = 0.3

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.CacheDir == "" {
		cfg.Storage.CacheDir = "~/.cache/locus/indexes"
	}
	if cfg.Storage.OCRCachePath == "" {
		cfg.Storage.OCRCachePath = "~/.cache/locus/ocr.db"
	}
	if cfg.Embedding.ModelID == "" {
		cfg.Embedding.ModelID = "BAAI/bge-small-en-v1.5"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.VectorIndex == "" {
		cfg.Embedding.VectorIndex = "memory"
	}
	if cfg.Corpus.Fingerprint == "" {
		cfg.Corpus.Fingerprint = "metadata"
	}
	if cfg.Build.Mode == "" {
		cfg.Build.Mode = "fast"
	}
	if cfg.Build.ChunkSize == 0 {
		cfg.Build.ChunkSize = 800
	}
	if cfg.Build.ChunkOverlap == 0 {
		cfg.Build.ChunkOverlap = 100
	}
	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = 5
	}
	if cfg.Search.Candidates == 0 {
		cfg.Search.Candidates = 20
	}
	if cfg.Search.Bias == nil {
		bias := defaultBias
		cfg.Search.Bias = &bias
	}
	if cfg.Search.Fusion == "" {
		cfg.Search.Fusion = "rrf"
	}
}
