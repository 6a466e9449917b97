package corpus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/locus-search/locus/internal/cache"
	"github.com/locus-search/locus/internal/embedding"
	"github.com/locus-search/locus/internal/fingerprint"
	"github.com/locus-search/locus/internal/lexical"
	"github.com/locus-search/locus/internal/models"
	"github.com/locus-search/locus/internal/semantic"
)

// State is the orchestrator's lifecycle state.
type State string

const (
	StateEmpty        State = "EMPTY"
	StateLoadingCache State = "LOADING_CACHE"
	StateBuilding     State = "BUILDING"
	StateReady        State = "READY"
)

// Snapshot is one immutable, servable index set. Queries always run against
// a snapshot; a rebuild swaps in a new one atomically when it commits, so
// queries issued mid-rebuild are served from the last-known-good snapshot
// rather than blocking.
type Snapshot struct {
	BuildID  string
	Corpus   *Corpus
	Lexical  *lexical.BleveIndex
	Semantic semantic.Index
	Options  models.BuildOptions
	BuiltAt  time.Time
}

// Close releases the snapshot's index resources.
func (s *Snapshot) Close() error {
	var first error
	if s.Lexical != nil {
		if err := s.Lexical.Close(); err != nil {
			first = err
		}
	}
	if s.Semantic != nil {
		if err := s.Semantic.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Status is the externally visible orchestrator condition.
type Status struct {
	State       State                   `json:"state"`
	Fingerprint string                  `json:"fingerprint,omitempty"`
	BuildID     string                  `json:"build_id,omitempty"`
	Mode        models.IndexMode        `json:"mode,omitempty"`
	ModelID     string                  `json:"model_id,omitempty"`
	Documents   int                     `json:"documents"`
	Chunks      int                     `json:"chunks"`
	Skipped     []cache.SkippedDocument `json:"skipped,omitempty"`
	BuiltAt     time.Time               `json:"built_at,omitempty"`
}

// Orchestrator owns a corpus handle: its lexical index, semantic index, and
// cache record. It validates cache freshness at load, drives builds, and
// hands out snapshots for querying. At most one build runs at a time; a new
// build cancels an in-flight one, and a cancelled build never touches the
// committed cache record.
type Orchestrator struct {
	loader     *Loader
	store      *cache.Store
	embedder   embedding.Embedder
	vectorKind string
	workers    int
	logger     *zap.Logger

	mu       sync.RWMutex
	state    State
	paths    []string
	snapshot *Snapshot

	buildMu     sync.Mutex
	cancelBuild context.CancelFunc
}

// NewOrchestrator creates an orchestrator. The embedder is required for deep
// builds and fast-mode query embedding; vectorKind selects the semantic
// index implementation.
func NewOrchestrator(loader *Loader, store *cache.Store, embedder embedding.Embedder, vectorKind string, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		loader:     loader,
		store:      store,
		embedder:   embedder,
		vectorKind: vectorKind,
		workers:    DefaultWorkers,
		logger:     logger,
		state:      StateEmpty,
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Snapshot returns the last-known-good snapshot, or nil before the first
// successful load or build.
func (o *Orchestrator) Snapshot() *Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.snapshot
}

// Status reports the orchestrator condition for the status API.
func (o *Orchestrator) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	st := Status{State: o.state}
	if o.snapshot != nil {
		st.Fingerprint = o.snapshot.Corpus.Fingerprint
		st.BuildID = o.snapshot.BuildID
		st.Mode = o.snapshot.Options.Mode
		st.ModelID = o.snapshot.Options.ModelID
		st.Documents = len(o.snapshot.Corpus.Documents)
		st.Chunks = len(o.snapshot.Corpus.Chunks)
		st.Skipped = o.snapshot.Corpus.Skipped
		st.BuiltAt = o.snapshot.BuiltAt
	}
	return st
}

// Open points the orchestrator at a corpus: it computes the corpus
// fingerprint, reuses a valid cache record if one exists, and otherwise
// builds. An embedding model change invalidates only the semantic side; the
// lexical index and chunk table are reused from the record.
func (o *Orchestrator) Open(ctx context.Context, paths []string, opts models.BuildOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	if opts.ModelID == "" && o.embedder != nil {
		opts.ModelID = o.embedder.ModelID()
	}

	o.mu.Lock()
	o.state = StateLoadingCache
	o.paths = paths
	o.mu.Unlock()

	fp, err := corpusFingerprint(paths, o.loader.fingerprint)
	if err != nil {
		o.setState(StateEmpty)
		return err
	}

	manifest, err := o.store.LoadManifest(fp)
	switch {
	case err == nil:
		snap, ok := o.tryReuse(ctx, fp, manifest, opts)
		if ok {
			o.install(snap)
			return nil
		}
	case errors.Is(err, os.ErrNotExist):
		o.logger.Info("no cache record, building", zap.String("fingerprint", short(fp)))
	default:
		var corrupt *cache.CorruptError
		if errors.As(err, &corrupt) {
			o.logger.Warn("discarding corrupt cache record", zap.Error(corrupt))
			_ = o.store.Invalidate(fp)
		} else {
			o.setState(StateEmpty)
			return err
		}
	}

	return o.Rebuild(ctx, opts)
}

// Rebuild runs a full build against the orchestrator's paths, replacing the
// committed cache record and the served snapshot on success. A build already
// in flight is cancelled first; the cancelled build leaves the previous
// record and snapshot intact.
func (o *Orchestrator) Rebuild(ctx context.Context, opts models.BuildOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	if opts.ModelID == "" && o.embedder != nil {
		opts.ModelID = o.embedder.ModelID()
	}

	o.mu.Lock()
	if o.cancelBuild != nil {
		o.cancelBuild()
	}
	paths := o.paths
	o.mu.Unlock()

	o.buildMu.Lock()
	defer o.buildMu.Unlock()

	buildCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	o.mu.Lock()
	o.cancelBuild = cancel
	o.state = StateBuilding
	o.mu.Unlock()

	snap, err := o.build(buildCtx, paths, opts)
	o.mu.Lock()
	o.cancelBuild = nil
	o.mu.Unlock()
	if err != nil {
		// Prior snapshot and cache record stay in service.
		if o.Snapshot() != nil {
			o.setState(StateReady)
		} else {
			o.setState(StateEmpty)
		}
		return err
	}
	o.install(snap)
	return nil
}

// Close tears down the orchestrator and its snapshot.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	if o.cancelBuild != nil {
		o.cancelBuild()
	}
	snap := o.snapshot
	o.snapshot = nil
	o.state = StateEmpty
	o.mu.Unlock()
	if snap != nil {
		return snap.Close()
	}
	return nil
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

func (o *Orchestrator) install(snap *Snapshot) {
	o.mu.Lock()
	old := o.snapshot
	o.snapshot = snap
	o.state = StateReady
	o.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
}

// tryReuse validates a loaded manifest against the requested options and
// deserializes the record. Any failure falls through to a full build.
func (o *Orchestrator) tryReuse(ctx context.Context, fp string, m *cache.Manifest, opts models.BuildOptions) (*Snapshot, bool) {
	paramsHash, err := buildParamsHash(opts)
	if err != nil {
		return nil, false
	}
	if m.Mode != opts.Mode {
		o.logger.Info("cache record mode differs, rebuilding",
			zap.String("cached", string(m.Mode)), zap.String("requested", string(opts.Mode)))
		return nil, false
	}
	if m.ParamsHash != paramsHash {
		o.logger.Info("build parameters changed, rebuilding")
		return nil, false
	}

	dir := o.store.Dir(fp)
	lex, err := lexical.Open(o.store.LexicalPath(dir))
	if err != nil {
		o.logger.Warn("cached lexical index unreadable, rebuilding", zap.Error(err))
		_ = o.store.Invalidate(fp)
		return nil, false
	}

	corpus := corpusFromManifest(m)
	lex.SetSequences(corpus.Chunks)

	var sem semantic.Index
	if m.Mode == models.ModeDeep {
		if o.embedder == nil {
			// No embedder loaded: serve the lexical side keyword-only and
			// leave the cached vectors on disk for when a model returns.
			o.logger.Warn("no embedder available, serving cached deep index keyword-only")
		} else if m.ModelID != opts.ModelID {
			mm := &semantic.ModelMismatchError{WantModel: opts.ModelID, GotModel: m.ModelID}
			o.logger.Warn("rebuilding semantic index only", zap.Error(mm))
			sem, err = o.rebuildSemantic(ctx, fp, m, corpus, opts)
			if err != nil {
				lex.Close()
				return nil, false
			}
		} else {
			sem, err = semantic.New(o.vectorKind, o.embedder.Dimensions())
			if err == nil {
				err = sem.Load(o.store.VectorPath(dir))
			}
			if err != nil {
				o.logger.Warn("cached semantic index unreadable, rebuilding it", zap.Error(err))
				sem, err = o.rebuildSemantic(ctx, fp, m, corpus, opts)
				if err != nil {
					lex.Close()
					return nil, false
				}
			}
		}
	}

	o.logger.Info("cache record reused",
		zap.String("fingerprint", short(fp)),
		zap.Int("chunks", len(corpus.Chunks)))
	return &Snapshot{
		BuildID:  uuid.NewString(),
		Corpus:   corpus,
		Lexical:  lex,
		Semantic: sem,
		Options:  opts,
		BuiltAt:  m.CreatedAt,
	}, true
}

// rebuildSemantic re-embeds the manifest's chunk table and rewrites the
// vector file and manifest in place, leaving the lexical index untouched.
func (o *Orchestrator) rebuildSemantic(ctx context.Context, fp string, m *cache.Manifest, corpus *Corpus, opts models.BuildOptions) (semantic.Index, error) {
	sem, err := o.embedAll(ctx, corpus.Chunks, opts.ModelID)
	if err != nil {
		return nil, err
	}
	dir := o.store.Dir(fp)
	if err := sem.Save(o.store.VectorPath(dir)); err != nil {
		sem.Close()
		return nil, err
	}
	m.ModelID = opts.ModelID
	if err := o.store.WriteManifest(dir, m); err != nil {
		sem.Close()
		return nil, err
	}
	return sem, nil
}

// build loads the corpus and constructs both indexes per the active mode in
// a scratch directory, committing atomically at the end. Cancellation at any
// point discards the scratch directory only.
func (o *Orchestrator) build(ctx context.Context, paths []string, opts models.BuildOptions) (*Snapshot, error) {
	buildID := uuid.NewString()
	started := time.Now()
	o.logger.Info("build started",
		zap.String("build_id", buildID),
		zap.String("mode", string(opts.Mode)))

	corpus, err := o.loader.Load(ctx, paths, opts)
	if err != nil {
		return nil, err
	}

	buildDir, err := o.store.BeginBuild()
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*Snapshot, error) {
		o.store.Abort(buildDir)
		return nil, err
	}

	lex, err := lexical.New(o.store.LexicalPath(buildDir))
	if err != nil {
		return fail(err)
	}
	if err := lex.Add(ctx, corpus.Chunks); err != nil {
		lex.Close()
		return fail(err)
	}

	var sem semantic.Index
	if opts.Mode == models.ModeDeep {
		sem, err = o.embedAll(ctx, corpus.Chunks, opts.ModelID)
		if err != nil {
			lex.Close()
			return fail(err)
		}
		if err := sem.Save(o.store.VectorPath(buildDir)); err != nil {
			lex.Close()
			sem.Close()
			return fail(err)
		}
	}

	paramsHash, err := buildParamsHash(opts)
	if err != nil {
		return fail(err)
	}
	manifest := &cache.Manifest{
		Fingerprint: corpus.Fingerprint,
		Mode:        opts.Mode,
		ModelID:     opts.ModelID,
		ParamsHash:  paramsHash,
		CreatedAt:   time.Now(),
		Chunks:      corpus.Chunks,
		Skipped:     corpus.Skipped,
	}
	for _, doc := range corpus.Documents {
		manifest.Documents = append(manifest.Documents, cache.DocumentEntry{
			ID:          doc.ID,
			Path:        doc.Path,
			Fingerprint: doc.Fingerprint,
			Pages:       doc.PageCount(),
		})
	}
	if err := o.store.WriteManifest(buildDir, manifest); err != nil {
		lex.Close()
		closeIfSet(sem)
		return fail(err)
	}

	// The bleve directory must be closed before the directory rename; it is
	// reopened from the committed location.
	if err := lex.Close(); err != nil {
		closeIfSet(sem)
		return fail(err)
	}

	if err := ctx.Err(); err != nil {
		closeIfSet(sem)
		return fail(err)
	}
	if err := o.store.Commit(buildDir, corpus.Fingerprint); err != nil {
		closeIfSet(sem)
		return fail(err)
	}

	committed := o.store.Dir(corpus.Fingerprint)
	lex, err = lexical.Open(o.store.LexicalPath(committed))
	if err != nil {
		closeIfSet(sem)
		return nil, err
	}
	lex.SetSequences(corpus.Chunks)

	o.logger.Info("build committed",
		zap.String("build_id", buildID),
		zap.Int("documents", len(corpus.Documents)),
		zap.Int("chunks", len(corpus.Chunks)),
		zap.Int("skipped", len(corpus.Skipped)),
		zap.Duration("elapsed", time.Since(started)))

	return &Snapshot{
		BuildID:  buildID,
		Corpus:   corpus,
		Lexical:  lex,
		Semantic: sem,
		Options:  opts,
		BuiltAt:  time.Now(),
	}, nil
}

// embedAll embeds every chunk with bounded concurrency and returns a loaded
// semantic index.
func (o *Orchestrator) embedAll(ctx context.Context, chunks []*models.Chunk, modelID string) (semantic.Index, error) {
	if o.embedder == nil {
		return nil, fmt.Errorf("deep mode requires an embedder")
	}
	sem, err := semantic.New(o.vectorKind, o.embedder.Dimensions())
	if err != nil {
		return nil, err
	}

	const batchSize = 32
	vectors := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		g.Go(func() error {
			texts := make([]string, end-start)
			for i, ch := range chunks[start:end] {
				texts[i] = embedding.PassageText(modelID, ch.Text)
			}
			batch, err := o.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return err
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		sem.Close()
		return nil, err
	}

	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
	}
	if err := sem.Add(ctx, ids, vectors); err != nil {
		sem.Close()
		return nil, err
	}
	return sem, nil
}

// corpusFromManifest reconstructs the servable corpus view from a cache
// record. Page text is not persisted; query serving only needs the chunk
// table and document paths.
func corpusFromManifest(m *cache.Manifest) *Corpus {
	c := &Corpus{
		Fingerprint: m.Fingerprint,
		Chunks:      m.Chunks,
		Skipped:     m.Skipped,
		byChunk:     make(map[string]*models.Chunk, len(m.Chunks)),
		byDoc:       make(map[string]*models.Document, len(m.Documents)),
	}
	for _, ch := range m.Chunks {
		c.byChunk[ch.ID] = ch
	}
	for _, d := range m.Documents {
		doc := &models.Document{ID: d.ID, Path: d.Path, Fingerprint: d.Fingerprint}
		c.Documents = append(c.Documents, doc)
		c.byDoc[d.ID] = doc
	}
	return c
}

// buildParamsHash hashes the parameters whose change forces a full rebuild.
// The model identifier is deliberately excluded: a model change invalidates
// only the semantic index.
func buildParamsHash(opts models.BuildOptions) (string, error) {
	return fingerprint.Params(struct {
		Mode         models.IndexMode `json:"mode"`
		OCREnabled   bool             `json:"ocr_enabled"`
		ChunkSize    int              `json:"chunk_size"`
		ChunkOverlap int              `json:"chunk_overlap"`
	}{opts.Mode, opts.OCREnabled, opts.ChunkSize, opts.ChunkOverlap})
}

// corpusFingerprint computes the pre-load corpus identity over the paths
// that can be fingerprinted, matching the set the loader will report.
func corpusFingerprint(paths []string, mode fingerprint.Mode) (string, error) {
	usable := make([]string, 0, len(paths))
	for _, p := range dedupe(paths) {
		if _, err := fingerprint.Document(p, mode); err == nil {
			usable = append(usable, p)
		}
	}
	if len(usable) == 0 {
		return "", ErrEmptyCorpus
	}
	return fingerprint.Corpus(usable, mode)
}

func closeIfSet(sem semantic.Index) {
	if sem != nil {
		_ = sem.Close()
	}
}

func short(fp string) string {
	if len(fp) > 16 {
		return fp[:16]
	}
	return fp
}
