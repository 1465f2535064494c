package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/matchprep/core"
	"github.com/poiesic/matchprep/storage"
)

// writeDatasets lays out a small train/validation/test trio in one
// directory, which is also where Process drops the cache bundle.
func writeDatasets(t *testing.T) (dir, train, valid, test string) {
	t.Helper()
	dir = t.TempDir()
	train = writeFile(t, dir, "train.csv",
		"id,label,left_name,right_name\n"+
			"0,1,Alpha Beta,Gamma\n"+
			"1,0,Delta,Alpha\n")
	valid = writeFile(t, dir, "valid.csv",
		"id,label,left_name,right_name\n"+
			"0,1,Beta,Epsilon\n")
	test = writeFile(t, dir, "test.csv",
		"id,label,left_name,right_name\n"+
			"0,0,Zeta,Alpha\n")
	return dir, train, valid, test
}

func testConfig(t *testing.T) core.Config {
	t.Helper()
	cfg := core.DefaultConfig()
	cfg.EmbeddingSource = "hash:8"
	cfg.EmbeddingCacheDir = t.TempDir()
	return cfg
}

func TestProcess_BuildThenLoad(t *testing.T) {
	dir, train, valid, test := writeDatasets(t)
	cfg := testConfig(t)

	p := New()
	defer p.Close()

	built, err := p.Process(context.Background(), cfg, train, valid, test)
	require.NoError(t, err)
	assert.False(t, built.FromCache)
	require.FileExists(t, filepath.Join(dir, cfg.CacheFile))

	require.Len(t, built.Train.Examples, 2)
	require.Len(t, built.Validation.Examples, 1)
	require.Len(t, built.Test.Examples, 1)
	assert.Equal(t, 8, built.Embeddings.Dims)
	assert.Empty(t, built.Embeddings.Unresolved)

	// Every vocabulary word got a vector; the sentinels got none.
	for _, word := range built.Vocabulary.Words() {
		idx, ok := built.Vocabulary.Index(word)
		require.True(t, ok)
		_, found := built.Embeddings.Vector(idx)
		assert.True(t, found, "missing vector for %q", word)
	}
	_, found := built.Embeddings.Vector(core.UnknownIndex)
	assert.False(t, found)
	_, found = built.Embeddings.Vector(core.PaddingIndex)
	assert.False(t, found)

	// Frequencies come from the training split only.
	assert.Equal(t, 2, built.Frequencies.Counts["alpha"])
	assert.Zero(t, built.Frequencies.Counts["epsilon"])

	loaded, err := p.Process(context.Background(), cfg, train, valid, test)
	require.NoError(t, err)
	assert.True(t, loaded.FromCache)
	assert.Equal(t, built.Vocabulary.Tokens, loaded.Vocabulary.Tokens)
	assert.Equal(t, built.Embeddings.Vectors, loaded.Embeddings.Vectors)
	assert.Equal(t, built.Frequencies.Counts, loaded.Frequencies.Counts)
	assert.Equal(t, built.Train.Examples, loaded.Train.Examples)
}

func TestProcess_ConfigChangeRebuilds(t *testing.T) {
	dir, train, valid, test := writeDatasets(t)
	cfg := testConfig(t)

	p := New()
	defer p.Close()

	_, err := p.Process(context.Background(), cfg, train, valid, test)
	require.NoError(t, err)
	before, err := storage.ReadBundle(filepath.Join(dir, cfg.CacheFile))
	require.NoError(t, err)

	cfg.Lowercase = false
	res, err := p.Process(context.Background(), cfg, train, valid, test)
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Contains(t, res.Vocabulary.Tokens, "Alpha")

	after, err := storage.ReadBundle(filepath.Join(dir, cfg.CacheFile))
	require.NoError(t, err)
	assert.NotEqual(t, before.Fingerprint.Digest, after.Fingerprint.Digest)
}

func TestProcess_StaleWithoutRebuild(t *testing.T) {
	dir, train, valid, test := writeDatasets(t)
	cfg := testConfig(t)

	p := New()
	defer p.Close()

	_, err := p.Process(context.Background(), cfg, train, valid, test)
	require.NoError(t, err)

	bundlePath := filepath.Join(dir, cfg.CacheFile)
	before, err := os.ReadFile(bundlePath)
	require.NoError(t, err)

	cfg.Tokenizer = "alnum"
	cfg.AutoRebuildCache = false
	_, err = p.Process(context.Background(), cfg, train, valid, test)

	var stale *core.StaleCacheError
	require.ErrorAs(t, err, &stale)
	require.NotEmpty(t, stale.Diffs)
	assert.Contains(t, stale.Diffs[0], "config.tokenizer")

	// The stale bundle must survive untouched.
	after, err := os.ReadFile(bundlePath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestProcess_SkipValidation(t *testing.T) {
	_, train, valid, test := writeDatasets(t)
	cfg := testConfig(t)

	p := New()
	defer p.Close()

	_, err := p.Process(context.Background(), cfg, train, valid, test)
	require.NoError(t, err)

	// A config change that would normally invalidate the bundle is not
	// even looked at when validation is off.
	cfg.Tokenizer = "alnum"
	cfg.CheckCachedData = false
	res, err := p.Process(context.Background(), cfg, train, valid, test)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
}

func TestProcess_InputFileChangeRebuilds(t *testing.T) {
	dir, train, valid, test := writeDatasets(t)
	cfg := testConfig(t)

	p := New()
	defer p.Close()

	_, err := p.Process(context.Background(), cfg, train, valid, test)
	require.NoError(t, err)

	writeFile(t, dir, "train.csv",
		"id,label,left_name,right_name\n"+
			"0,1,Alpha Beta,Gamma\n"+
			"1,0,Delta,Alpha\n"+
			"2,1,Omega,Omega\n")

	res, err := p.Process(context.Background(), cfg, train, valid, test)
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Len(t, res.Train.Examples, 3)
	assert.Contains(t, res.Vocabulary.Tokens, "omega")
}

func TestProcess_UnusableBundleRebuilt(t *testing.T) {
	dir, train, valid, test := writeDatasets(t)
	cfg := testConfig(t)

	p := New()
	defer p.Close()

	_, err := p.Process(context.Background(), cfg, train, valid, test)
	require.NoError(t, err)

	bundlePath := filepath.Join(dir, cfg.CacheFile)
	require.NoError(t, os.WriteFile(bundlePath, []byte("not a bundle at all"), 0644))

	res, err := p.Process(context.Background(), cfg, train, valid, test)
	require.NoError(t, err)
	assert.False(t, res.FromCache)

	// The rewrite produced a readable bundle again.
	_, err = storage.ReadBundle(bundlePath)
	require.NoError(t, err)
}

func TestProcess_InvalidConfig(t *testing.T) {
	_, train, valid, test := writeDatasets(t)
	cfg := testConfig(t)
	cfg.LeftPrefix = ""

	p := New()
	defer p.Close()

	_, err := p.Process(context.Background(), cfg, train, valid, test)
	require.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestProcess_CanceledContext(t *testing.T) {
	_, train, valid, test := writeDatasets(t)
	cfg := testConfig(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New()
	defer p.Close()

	_, err := p.Process(ctx, cfg, train, valid, test)
	require.ErrorIs(t, err, context.Canceled)
}

func TestProcessUnlabeled(t *testing.T) {
	dir, train, valid, test := writeDatasets(t)
	cfg := testConfig(t)

	p := New()
	defer p.Close()

	known, err := p.Process(context.Background(), cfg, train, valid, test)
	require.NoError(t, err)

	path := writeFile(t, dir, "candidates.csv",
		"id,left_name,right_name\n"+
			"0,Alpha Nebula,Beta\n")

	res, err := p.ProcessUnlabeled(context.Background(), cfg, path, known)
	require.NoError(t, err)

	require.Len(t, res.Dataset.Examples, 1)
	assert.Equal(t, core.NoLabel, res.Dataset.Examples[0].Label)

	// Known tokens reuse the labeled run's vectors by reference.
	knownIdx, ok := known.Vocabulary.Index("alpha")
	require.True(t, ok)
	newIdx, ok := res.Vocabulary.Index("alpha")
	require.True(t, ok)
	knownVec, _ := known.Embeddings.Vector(knownIdx)
	newVec, _ := res.Embeddings.Vector(newIdx)
	require.NotEmpty(t, knownVec)
	assert.True(t, &knownVec[0] == &newVec[0], "known vector should be shared, not copied")

	// The fresh token got its own resolution.
	nebulaIdx, ok := res.Vocabulary.Index("nebula")
	require.True(t, ok)
	nebulaVec, found := res.Embeddings.Vector(nebulaIdx)
	require.True(t, found)
	assert.Len(t, nebulaVec, 8)

	// The labeled run's artifacts are untouched.
	_, inKnown := known.Vocabulary.Index("nebula")
	assert.False(t, inKnown)
}

func TestProcessUnlabeled_NilKnown(t *testing.T) {
	dir, _, _, _ := writeDatasets(t)
	cfg := testConfig(t)

	p := New()
	defer p.Close()

	path := writeFile(t, dir, "candidates.csv",
		"id,left_name,right_name\n"+
			"0,Alpha,Beta\n")

	res, err := p.ProcessUnlabeled(context.Background(), cfg, path, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Vocabulary.Size())
	assert.Len(t, res.Embeddings.Vectors, 2)
}

func TestProcessUnlabeled_UnresolvedFreshToken(t *testing.T) {
	dir, train, valid, test := writeDatasets(t)
	cfg := testConfig(t)

	// A file distribution that covers the labeled vocabulary but not the
	// unlabeled dataset's new token.
	var dist string
	for _, w := range []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta"} {
		dist += fmt.Sprintf("%s 0.1 0.2\n", w)
	}
	distPath := writeFile(t, dir, "vectors.vec", dist)
	cfg.EmbeddingSource = "file:" + distPath

	p := New()
	defer p.Close()

	known, err := p.Process(context.Background(), cfg, train, valid, test)
	require.NoError(t, err)
	require.Empty(t, known.Embeddings.Unresolved)

	path := writeFile(t, dir, "candidates.csv",
		"id,left_name,right_name\n"+
			"0,Alpha Quasar,Beta\n")

	res, err := p.ProcessUnlabeled(context.Background(), cfg, path, known)
	require.NoError(t, err)
	assert.Equal(t, []string{"quasar"}, res.Embeddings.Unresolved)

	alphaIdx, _ := res.Vocabulary.Index("alpha")
	_, found := res.Embeddings.Vector(alphaIdx)
	assert.True(t, found)
}
