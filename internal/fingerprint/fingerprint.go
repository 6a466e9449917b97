// Package fingerprint derives stable identities for documents and corpora,
// used to detect staleness of cached indexes and OCR output.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Mode selects how file identity is derived.
type Mode string

const (
	// ModeMetadata hashes (path, size, mtime). Cheap, catches normal edits.
	ModeMetadata Mode = "metadata"
	// ModeContent hashes full file bytes. Slower, catches mtime-preserving edits.
	ModeContent Mode = "content"
)

// Document returns the fingerprint for a single file.
func Document(path string, mode Mode) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}
	if mode == ModeContent {
		return contentHash(abs)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("stat file: %w", err)
	}
	h := sha256.Sum256([]byte(metadataLine(abs, info.Size(), info.ModTime().UnixNano())))
	return hex.EncodeToString(h[:]), nil
}

// DocID returns a stable document ID for the given path. Same path always
// yields the same ID, so re-indexing replaces rather than duplicates.
func DocID(path string) string {
	normalized := filepath.Clean(path)
	h := sha256.Sum256([]byte(normalized))
	return "doc:" + hex.EncodeToString(h[:16])
}

// Corpus computes the corpus fingerprint over a set of files: the hash of
// sorted per-file fingerprint lines. Ordering of the input does not matter,
// only the multiset of (path, identity) pairs.
func Corpus(paths []string, mode Mode) (string, error) {
	lines := make([]string, 0, len(paths))
	for _, p := range paths {
		fp, err := Document(p, mode)
		if err != nil {
			return "", err
		}
		lines = append(lines, filepath.Clean(p)+"|"+fp)
	}
	sort.Strings(lines)
	h := sha256.New()
	for _, line := range lines {
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Params hashes an arbitrary parameter struct so that a parameter change is
// itself treated as a fingerprint mismatch by the cache layer.
func Params(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:]), nil
}

func contentHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func metadataLine(path string, size, mtime int64) string {
	return path + "|" + strconv.FormatInt(size, 10) + "|" + strconv.FormatInt(mtime, 10)
}
