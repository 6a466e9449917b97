// Package cache persists built indexes on disk, one directory per corpus
// fingerprint, each committed atomically so a crash mid-build never leaves a
// partial record observable.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/locus-search/locus/internal/models"
)

// SchemaVersion is bumped whenever the on-disk layout or manifest shape
// changes. Manifests with another version are discarded, not migrated.
const SchemaVersion = 1

const (
	manifestFile = "manifest.json"
	lexicalDir   = "lexical.bleve"
	vectorFile   = "vectors.bin"
)

// CorruptError reports an unreadable or mismatched cache record. The record
// is discarded and the index rebuilt; the error is never fatal.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt cache record at %s: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// Manifest describes one persisted index build. It is written last during a
// commit, so its presence marks the record complete.
type Manifest struct {
	SchemaVersion int               `json:"schema_version"`
	Fingerprint   string            `json:"fingerprint"`
	Mode          models.IndexMode  `json:"mode"`
	ModelID       string            `json:"model_id"`
	ParamsHash    string            `json:"params_hash"`
	CreatedAt     time.Time         `json:"created_at"`
	Documents     []DocumentEntry   `json:"documents"`
	Chunks        []*models.Chunk   `json:"chunks"`
	Skipped       []SkippedDocument `json:"skipped,omitempty"`
}

// DocumentEntry records a document that contributed to the build.
type DocumentEntry struct {
	ID          string `json:"id"`
	Path        string `json:"path"`
	Fingerprint string `json:"fingerprint"`
	Pages       int    `json:"pages"`
}

// SkippedDocument records a document the build could not read.
type SkippedDocument struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Store manages per-corpus cache directories under a root.
type Store struct {
	root string
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache root: %w", err)
	}
	return &Store{root: dir}, nil
}

// Dir returns the committed directory for a corpus fingerprint.
func (s *Store) Dir(fingerprint string) string {
	return filepath.Join(s.root, short(fingerprint))
}

// LexicalPath returns the bleve index location inside a record directory.
func (s *Store) LexicalPath(dir string) string { return filepath.Join(dir, lexicalDir) }

// VectorPath returns the semantic index location inside a record directory.
func (s *Store) VectorPath(dir string) string { return filepath.Join(dir, vectorFile) }

// BeginBuild creates a fresh scratch directory for an in-progress build. It
// lives beside the committed records so the final rename stays on one
// filesystem.
func (s *Store) BeginBuild() (string, error) {
	dir := filepath.Join(s.root, ".build-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create build dir: %w", err)
	}
	return dir, nil
}

// Abort discards an uncommitted build directory. The committed record, if
// any, is untouched.
func (s *Store) Abort(buildDir string) {
	_ = os.RemoveAll(buildDir)
}

// Commit atomically replaces the record for fingerprint with buildDir. The
// manifest must already be written into buildDir; a record without one is
// treated as corrupt on load, so the write order here cannot expose a
// half-built record.
func (s *Store) Commit(buildDir, fingerprint string) error {
	target := s.Dir(fingerprint)
	old := target + ".old-" + uuid.NewString()
	replaced := false
	if _, err := os.Stat(target); err == nil {
		if err := os.Rename(target, old); err != nil {
			return fmt.Errorf("stash previous record: %w", err)
		}
		replaced = true
	}
	if err := os.Rename(buildDir, target); err != nil {
		if replaced {
			_ = os.Rename(old, target)
		}
		return fmt.Errorf("commit record: %w", err)
	}
	if replaced {
		_ = os.RemoveAll(old)
	}
	return nil
}

// Invalidate removes the committed record for fingerprint.
func (s *Store) Invalidate(fingerprint string) error {
	return os.RemoveAll(s.Dir(fingerprint))
}

// WriteManifest writes the manifest into dir via temp-and-rename.
func (s *Store) WriteManifest(dir string, m *Manifest) error {
	m.SchemaVersion = SchemaVersion
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	path := filepath.Join(dir, manifestFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit manifest: %w", err)
	}
	return nil
}

// LoadManifest reads and validates the manifest for fingerprint. A missing
// record returns os.ErrNotExist; an unreadable or wrong-schema manifest
// returns *CorruptError.
func (s *Store) LoadManifest(fingerprint string) (*Manifest, error) {
	dir := s.Dir(fingerprint)
	path := filepath.Join(dir, manifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if _, derr := os.Stat(dir); derr == nil {
				// Directory exists but the commit marker is missing.
				return nil, &CorruptError{Path: dir, Err: err}
			}
			return nil, err
		}
		return nil, &CorruptError{Path: path, Err: err}
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &CorruptError{Path: path, Err: err}
	}
	if m.SchemaVersion != SchemaVersion {
		return nil, &CorruptError{Path: path, Err: fmt.Errorf("schema version %d, want %d", m.SchemaVersion, SchemaVersion)}
	}
	if m.Fingerprint != fingerprint {
		return nil, &CorruptError{Path: path, Err: fmt.Errorf("manifest fingerprint %s does not match directory key", short(m.Fingerprint))}
	}
	return &m, nil
}

func short(fingerprint string) string {
	if len(fingerprint) > 16 {
		return fingerprint[:16]
	}
	return fingerprint
}
