package embedding

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultModelID is the model used when none is configured.
const DefaultModelID = "BAAI/bge-small-en-v1.5"

// ModelInfo describes an embedding model's declared contract.
type ModelInfo struct {
	ID           string
	Dimensions   int
	Multilingual bool
	// NeedsPrefix marks BGE/E5 family models that expect "query: " /
	// "passage: " prefixes on input text.
	NeedsPrefix bool
}

// catalog lists the supported models. Dimensions must match the ONNX output;
// a mismatch at load time is a ModelMismatchError, never a reinterpretation.
var catalog = map[string]ModelInfo{
	"BAAI/bge-small-en-v1.5":       {ID: "BAAI/bge-small-en-v1.5", Dimensions: 384, NeedsPrefix: true},
	"BAAI/bge-base-en-v1.5":        {ID: "BAAI/bge-base-en-v1.5", Dimensions: 768, NeedsPrefix: true},
	"BAAI/bge-large-en-v1.5":       {ID: "BAAI/bge-large-en-v1.5", Dimensions: 1024, NeedsPrefix: true},
	"BAAI/bge-small-zh-v1.5":       {ID: "BAAI/bge-small-zh-v1.5", Dimensions: 512, Multilingual: true, NeedsPrefix: true},
	"BAAI/bge-large-zh-v1.5":       {ID: "BAAI/bge-large-zh-v1.5", Dimensions: 1024, Multilingual: true, NeedsPrefix: true},
	"BAAI/bge-m3":                  {ID: "BAAI/bge-m3", Dimensions: 1024, Multilingual: true, NeedsPrefix: true},
	"intfloat/multilingual-e5-large": {ID: "intfloat/multilingual-e5-large", Dimensions: 1024, Multilingual: true, NeedsPrefix: true},
}

// Lookup returns the catalog entry for modelID.
func Lookup(modelID string) (ModelInfo, bool) {
	info, ok := catalog[modelID]
	return info, ok
}

// Models returns all known model IDs, for CLI listing.
func Models() []ModelInfo {
	out := make([]ModelInfo, 0, len(catalog))
	for _, id := range []string{
		"BAAI/bge-small-en-v1.5",
		"BAAI/bge-base-en-v1.5",
		"BAAI/bge-large-en-v1.5",
		"BAAI/bge-small-zh-v1.5",
		"BAAI/bge-large-zh-v1.5",
		"BAAI/bge-m3",
		"intfloat/multilingual-e5-large",
	} {
		out = append(out, catalog[id])
	}
	return out
}

// IsMultilingual reports whether modelID embeds queries and passages from
// different languages into the same vector space. Unknown models fall back
// to a name heuristic.
func IsMultilingual(modelID string) bool {
	if info, ok := catalog[modelID]; ok {
		return info.Multilingual
	}
	lower := strings.ToLower(modelID)
	for _, marker := range []string{"multilingual", "bge-m3", "-zh", "chinese"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// QueryText applies the model's query prefix when the model expects one.
func QueryText(modelID, text string) string {
	if info, ok := catalog[modelID]; ok && info.NeedsPrefix {
		return "query: " + text
	}
	return text
}

// PassageText applies the model's passage prefix when the model expects one.
func PassageText(modelID, text string) string {
	if info, ok := catalog[modelID]; ok && info.NeedsPrefix {
		return "passage: " + text
	}
	return text
}

// ModelCachePath returns the persistent on-disk location for modelID's
// artifacts, under the user cache directory.
func ModelCachePath(modelID string) (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve user cache dir: %w", err)
	}
	return filepath.Join(base, "locus", "models", filepath.Base(modelID)), nil
}

// ModelFilePath returns the expected ONNX file for modelID inside its cache
// directory.
func ModelFilePath(modelID string) (string, error) {
	dir, err := ModelCachePath(modelID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "model.onnx"), nil
}

// IsModelCached reports whether modelID's ONNX artifact is present locally.
// Download and management are outside this core; callers surface a useful
// error when the artifact is missing.
func IsModelCached(modelID string) bool {
	path, err := ModelFilePath(modelID)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}
