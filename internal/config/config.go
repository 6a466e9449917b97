// Package config provides configuration loading and structs for Locus.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/locus-search/locus/internal/models"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Build     BuildConfig     `yaml:"build"`
	Search    SearchConfig    `yaml:"search"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds on-disk cache locations.
type StorageConfig struct {
	CacheDir     string `yaml:"cache_dir"`
	OCRCachePath string `yaml:"ocr_cache_path"`
}

// EmbeddingConfig holds embedding model settings.
type EmbeddingConfig struct {
	ModelID   string `yaml:"model_id"`
	ModelPath string `yaml:"model_path"`
	// Dimensions overrides the catalog value; needed for models outside it.
	Dimensions int `yaml:"dimensions"`
	MaxTokens  int `yaml:"max_tokens"`
	CacheSize  int `yaml:"cache_size"`
	// VectorIndex selects the semantic index implementation: memory or hnsw.
	VectorIndex string `yaml:"vector_index"`
}

// CorpusConfig names the documents to index.
type CorpusConfig struct {
	Paths []string `yaml:"paths"`
	// Fingerprint selects file identity derivation: metadata or content.
	Fingerprint string `yaml:"fingerprint"`
}

// BuildConfig holds index build parameters.
type BuildConfig struct {
	Mode         string `yaml:"mode"`
	OCREnabled   bool   `yaml:"ocr_enabled"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
}

// Options converts the build section into build options.
func (b BuildConfig) Options(modelID string) models.BuildOptions {
	return models.BuildOptions{
		Mode:         models.IndexMode(b.Mode),
		ModelID:      modelID,
		OCREnabled:   b.OCREnabled,
		ChunkSize:    b.ChunkSize,
		ChunkOverlap: b.ChunkOverlap,
	}
}

// SearchConfig holds query-time defaults.
type SearchConfig struct {
	TopK       int `yaml:"top_k"`
	Candidates int `yaml:"candidates"`
	// Bias is a pointer so an explicit `bias: 0` (pure semantic) is
	// distinguishable from the key being absent.
	Bias   *float64 `yaml:"bias"`
	Fusion string   `yaml:"fusion"`
}

// BiasValue returns the configured literal bias, defaulted when unset.
func (s SearchConfig) BiasValue() float64 {
	if s.Bias == nil {
		return defaultBias
	}
	return *s.Bias
}

// Load reads and parses the config file at path, expands paths, and applies
// defaults. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.CacheDir = expandPath(cfg.Storage.CacheDir, configDir)
	cfg.Storage.OCRCachePath = expandPath(cfg.Storage.OCRCachePath, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
	for i := range cfg.Corpus.Paths {
		cfg.Corpus.Paths[i] = expandPath(cfg.Corpus.Paths[i], configDir)
	}

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home
// directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
