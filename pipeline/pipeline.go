package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/poiesic/matchprep/core"
	"github.com/poiesic/matchprep/embedding"
	"github.com/poiesic/matchprep/loader"
	"github.com/poiesic/matchprep/storage"
	"github.com/poiesic/matchprep/vocab"
)

// Result holds everything a labeled preparation run produces. FromCache
// reports whether it was loaded from a valid bundle rather than rebuilt.
type Result struct {
	Train       *core.Dataset
	Validation  *core.Dataset
	Test        *core.Dataset
	Vocabulary  *core.Vocabulary
	Embeddings  *core.EmbeddingTable
	Frequencies *core.Frequencies
	FromCache   bool
}

// UnlabeledResult holds a prepared unlabeled dataset together with the
// vocabulary and embedding table extended to cover it. It is never
// persisted to the cache bundle.
type UnlabeledResult struct {
	Dataset    *core.Dataset
	Vocabulary *core.Vocabulary
	Embeddings *core.EmbeddingTable
}

// Pipeline runs dataset preparation. A single Pipeline may serve many
// Process calls; embedding caches are opened lazily per directory and
// shared across calls until Close.
type Pipeline struct {
	logger *slog.Logger
	caches map[string]*embedding.Cache
	shared *embedding.Cache // injected, not owned
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
	}
}

// WithEmbeddingCache injects an embedding cache to use for every run,
// overriding the per-configuration cache directory. The caller retains
// ownership; Close will not close it.
func WithEmbeddingCache(c *embedding.Cache) Option {
	return func(p *Pipeline) {
		p.shared = c
	}
}

// New creates a Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		logger: slog.Default(),
		caches: make(map[string]*embedding.Cache),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "pipeline")
	return p
}

// Close releases every embedding cache the pipeline opened itself.
func (p *Pipeline) Close() error {
	var first error
	for dir, c := range p.caches {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
		delete(p.caches, dir)
	}
	return first
}

// Process prepares the three labeled datasets, consulting the cache bundle
// first. The decision protocol:
//
//   - no readable bundle: build everything and write a new bundle
//   - CheckCachedData false: load the bundle as-is, no fingerprint check
//   - fingerprints match: load the bundle
//   - fingerprints differ, AutoRebuildCache: rebuild and overwrite
//   - fingerprints differ otherwise: return core.StaleCacheError naming
//     what changed, leaving the bundle untouched
func (p *Pipeline) Process(ctx context.Context, cfg core.Config, trainPath, validationPath, testPath string) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	bundlePath := filepath.Join(filepath.Dir(trainPath), cfg.CacheFile)
	cached, err := p.readBundle(bundlePath)
	if err != nil {
		return nil, err
	}

	if cached != nil && !cfg.CheckCachedData {
		p.logger.Info("loading cache bundle without validation", "path", bundlePath)
		return resultFromBundle(cached), nil
	}

	var current storage.Fingerprint
	if cached != nil || cfg.CheckCachedData {
		current, err = ComputeFingerprint(cfg, []string{trainPath, validationPath, testPath})
		if err != nil {
			return nil, err
		}
	}

	if cached != nil {
		if current.Equal(cached.Fingerprint) {
			p.logger.Info("cache bundle valid", "path", bundlePath)
			return resultFromBundle(cached), nil
		}
		if !cfg.AutoRebuildCache {
			return nil, &core.StaleCacheError{Diffs: diffFingerprints(current, cached.Fingerprint)}
		}
		p.logger.Info("cache bundle stale, rebuilding", "path", bundlePath)
	}

	res, err := p.build(ctx, cfg, trainPath, validationPath, testPath)
	if err != nil {
		return nil, err
	}

	if current.Digest == "" {
		current, err = ComputeFingerprint(cfg, []string{trainPath, validationPath, testPath})
		if err != nil {
			return nil, err
		}
	}
	bundle := &storage.Bundle{
		Fingerprint: current,
		Train:       res.Train,
		Validation:  res.Validation,
		Test:        res.Test,
		Vocabulary:  res.Vocabulary,
		Embeddings:  res.Embeddings,
		Frequencies: res.Frequencies,
	}
	if err := storage.WriteBundle(bundlePath, bundle); err != nil {
		return nil, err
	}
	p.logger.Info("cache bundle written", "path", bundlePath)
	return res, nil
}

// ProcessUnlabeled prepares one unlabeled dataset against a prior labeled
// run. Tokens already in known's vocabulary keep their existing vectors by
// reference and are never sent back to the embedding source; only tokens
// the labeled run never saw are resolved. Pass a nil known to prepare the
// dataset standalone.
func (p *Pipeline) ProcessUnlabeled(ctx context.Context, cfg core.Config, path string, known *Result) (*UnlabeledResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ds, err := loader.Load(path, core.RoleUnlabeled, cfg)
	if err != nil {
		return nil, err
	}

	var knownVocab *core.Vocabulary
	var knownTable *core.EmbeddingTable
	if known != nil {
		knownVocab = known.Vocabulary
		knownTable = known.Embeddings
	}

	v, fresh := vocab.BuildScoped(ds, knownVocab)

	table := core.NewEmbeddingTable()
	if knownTable != nil {
		table.Dims = knownTable.Dims
	}
	if knownVocab != nil {
		for i := 2; i < len(v.Tokens); i++ {
			tok := v.Tokens[i]
			oldIdx, ok := knownVocab.Index(tok)
			if !ok {
				continue
			}
			if vec, found := knownTable.Vector(oldIdx); found {
				table.Vectors[i] = vec
			} else {
				table.Unresolved = append(table.Unresolved, tok)
			}
		}
	}

	if len(fresh) > 0 {
		resolved, unresolved, err := p.resolve(ctx, cfg, fresh)
		if err != nil {
			return nil, err
		}
		for tok, vec := range resolved {
			idx, _ := v.Index(tok)
			table.Vectors[idx] = vec
			if table.Dims == 0 {
				table.Dims = len(vec)
			}
		}
		table.Unresolved = append(table.Unresolved, unresolved...)
	}

	p.logger.Info("unlabeled dataset prepared",
		"path", path,
		"examples", len(ds.Examples),
		"fresh_tokens", len(fresh))

	return &UnlabeledResult{Dataset: ds, Vocabulary: v, Embeddings: table}, nil
}

// build runs the full preparation: load, vocabulary, embeddings,
// frequencies. The context is checked between stages so a long run can be
// abandoned cleanly.
func (p *Pipeline) build(ctx context.Context, cfg core.Config, trainPath, validationPath, testPath string) (*Result, error) {
	type input struct {
		role core.Role
		path string
	}
	inputs := []input{
		{core.RoleTrain, trainPath},
		{core.RoleValidation, validationPath},
		{core.RoleTest, testPath},
	}

	datasets := make([]*core.Dataset, len(inputs))
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ds, err := loader.Load(in.path, in.role, cfg)
		if err != nil {
			return nil, err
		}
		datasets[i] = ds
		p.logger.Debug("dataset loaded", "role", in.role.String(), "examples", len(ds.Examples))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v := vocab.Build(datasets...)

	resolved, unresolved, err := p.resolve(ctx, cfg, v.Words())
	if err != nil {
		return nil, err
	}

	table := core.NewEmbeddingTable()
	for tok, vec := range resolved {
		idx, _ := v.Index(tok)
		table.Vectors[idx] = vec
		if table.Dims == 0 {
			table.Dims = len(vec)
		}
	}
	table.Unresolved = unresolved

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	freqs := vocab.Count(datasets[0])

	p.logger.Info("preparation complete",
		"vocabulary", v.Size(),
		"resolved", len(table.Vectors),
		"unresolved", len(table.Unresolved))

	return &Result{
		Train:       datasets[0],
		Validation:  datasets[1],
		Test:        datasets[2],
		Vocabulary:  v,
		Embeddings:  table,
		Frequencies: freqs,
	}, nil
}

// resolve opens the configured embedding source, resolves tokens through
// the layered cache, and closes the source if it holds resources.
func (p *Pipeline) resolve(ctx context.Context, cfg core.Config, tokens []string) (map[string][]float32, []string, error) {
	if len(tokens) == 0 {
		return map[string][]float32{}, nil, nil
	}

	src, err := embedding.Open(cfg.EmbeddingSource)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if closer, ok := src.(io.Closer); ok {
			closer.Close()
		}
	}()

	cache := p.shared
	if cache == nil {
		cache, err = p.cacheFor(cfg.EmbeddingCacheDir)
		if err != nil {
			return nil, nil, err
		}
	}
	return cache.Resolve(ctx, src, tokens)
}

func (p *Pipeline) cacheFor(dir string) (*embedding.Cache, error) {
	if c, ok := p.caches[dir]; ok {
		return c, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	c := embedding.NewCache(dir, embedding.WithLogger(p.logger))
	p.caches[dir] = c
	return c, nil
}

// readBundle loads the cache bundle if a usable one exists. A missing,
// corrupt, or format-incompatible file all mean "no cached data"; the
// caller rebuilds and overwrites.
func (p *Pipeline) readBundle(path string) (*storage.Bundle, error) {
	b, err := storage.ReadBundle(path)
	switch {
	case err == nil:
		return b, nil
	case errors.Is(err, os.ErrNotExist):
		return nil, nil
	case errors.Is(err, storage.ErrIncompatibleBundle),
		errors.Is(err, storage.ErrCorruptBundle),
		errors.Is(err, storage.ErrTruncatedData):
		p.logger.Warn("ignoring unusable cache bundle", "path", path, "error", err)
		return nil, nil
	default:
		return nil, err
	}
}

func resultFromBundle(b *storage.Bundle) *Result {
	return &Result{
		Train:       b.Train,
		Validation:  b.Validation,
		Test:        b.Test,
		Vocabulary:  b.Vocabulary,
		Embeddings:  b.Embeddings,
		Frequencies: b.Frequencies,
		FromCache:   true,
	}
}
