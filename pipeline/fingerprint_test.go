package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/matchprep/core"
	"github.com/poiesic/matchprep/storage"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestComputeFingerprint_Deterministic(t *testing.T) {
	cfg := core.DefaultConfig()
	path := writeFile(t, t.TempDir(), "train.csv", "label,left_a,right_a\n1,x,y\n")

	fp1, err := ComputeFingerprint(cfg, []string{path})
	require.NoError(t, err)
	fp2, err := ComputeFingerprint(cfg, []string{path})
	require.NoError(t, err)

	assert.Equal(t, fp1.Digest, fp2.Digest)
	assert.Equal(t, fp1.Entries, fp2.Entries)
	assert.NotEmpty(t, fp1.Digest)
}

func TestComputeFingerprint_CacheLocationsExcluded(t *testing.T) {
	path := writeFile(t, t.TempDir(), "train.csv", "label,left_a,right_a\n1,x,y\n")

	cfg := core.DefaultConfig()
	fp1, err := ComputeFingerprint(cfg, []string{path})
	require.NoError(t, err)

	cfg.EmbeddingCacheDir = "/somewhere/else"
	cfg.CacheFile = "other.mpb"
	fp2, err := ComputeFingerprint(cfg, []string{path})
	require.NoError(t, err)

	assert.True(t, fp1.Equal(fp2), "cache locations must not affect the fingerprint")
}

func TestComputeFingerprint_ConfigFieldsIncluded(t *testing.T) {
	path := writeFile(t, t.TempDir(), "train.csv", "label,left_a,right_a\n1,x,y\n")
	base := core.DefaultConfig()

	mutations := map[string]func(*core.Config){
		"left prefix":      func(c *core.Config) { c.LeftPrefix = "l_" },
		"tokenizer":        func(c *core.Config) { c.Tokenizer = "alnum" },
		"lowercase":        func(c *core.Config) { c.Lowercase = !c.Lowercase },
		"embedding source": func(c *core.Config) { c.EmbeddingSource = "hash:50" },
		"ignored columns":  func(c *core.Config) { c.IgnoredColumns = []string{"notes"} },
	}

	ref, err := ComputeFingerprint(base, []string{path})
	require.NoError(t, err)

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			fp, err := ComputeFingerprint(cfg, []string{path})
			require.NoError(t, err)
			assert.False(t, fp.Equal(ref))
		})
	}
}

func TestComputeFingerprint_IgnoredColumnOrderIrrelevant(t *testing.T) {
	path := writeFile(t, t.TempDir(), "train.csv", "label,left_a,right_a\n1,x,y\n")

	cfg := core.DefaultConfig()
	cfg.IgnoredColumns = []string{"b", "a"}
	fp1, err := ComputeFingerprint(cfg, []string{path})
	require.NoError(t, err)

	cfg.IgnoredColumns = []string{"a", "b"}
	fp2, err := ComputeFingerprint(cfg, []string{path})
	require.NoError(t, err)

	assert.True(t, fp1.Equal(fp2))
}

func TestComputeFingerprint_FileChangeDetected(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "train.csv", "label,left_a,right_a\n1,x,y\n")
	cfg := core.DefaultConfig()

	fp1, err := ComputeFingerprint(cfg, []string{path})
	require.NoError(t, err)

	// Different size.
	writeFile(t, dir, "train.csv", "label,left_a,right_a\n1,x,y\n0,p,q\n")
	fp2, err := ComputeFingerprint(cfg, []string{path})
	require.NoError(t, err)
	assert.False(t, fp2.Equal(fp1))
}

func TestComputeFingerprint_HashContents(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "train.csv", "label,left_a,right_a\n1,x,y\n")

	info, err := os.Stat(path)
	require.NoError(t, err)
	mtime := info.ModTime()

	cfg := core.DefaultConfig()
	fpDefault1, err := ComputeFingerprint(cfg, []string{path})
	require.NoError(t, err)

	cfg.HashContents = true
	fpHashed1, err := ComputeFingerprint(cfg, []string{path})
	require.NoError(t, err)

	// Same-size rewrite with the mtime restored: invisible to the default
	// token, caught by content hashing.
	writeFile(t, dir, "train.csv", "label,left_a,right_a\n1,x,z\n")
	require.NoError(t, os.Chtimes(path, time.Now(), mtime))

	cfg.HashContents = false
	fpDefault2, err := ComputeFingerprint(cfg, []string{path})
	require.NoError(t, err)
	assert.True(t, fpDefault2.Equal(fpDefault1))

	cfg.HashContents = true
	fpHashed2, err := ComputeFingerprint(cfg, []string{path})
	require.NoError(t, err)
	assert.False(t, fpHashed2.Equal(fpHashed1))
}

func TestComputeFingerprint_MissingFile(t *testing.T) {
	cfg := core.DefaultConfig()
	_, err := ComputeFingerprint(cfg, []string{filepath.Join(t.TempDir(), "absent.csv")})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDiffFingerprints(t *testing.T) {
	path := writeFile(t, t.TempDir(), "train.csv", "label,left_a,right_a\n1,x,y\n")

	cfg := core.DefaultConfig()
	cached, err := ComputeFingerprint(cfg, []string{path})
	require.NoError(t, err)

	cfg.Tokenizer = "alnum"
	current, err := ComputeFingerprint(cfg, []string{path})
	require.NoError(t, err)

	diffs := diffFingerprints(current, cached)
	require.Len(t, diffs, 1)
	assert.Contains(t, diffs[0], "config.tokenizer")
	assert.Contains(t, diffs[0], "alnum")
}

func TestDiffFingerprints_FileEntries(t *testing.T) {
	dir := t.TempDir()
	trainPath := writeFile(t, dir, "train.csv", "label,left_a,right_a\n1,x,y\n")
	cfg := core.DefaultConfig()

	cached, err := ComputeFingerprint(cfg, []string{trainPath})
	require.NoError(t, err)

	writeFile(t, dir, "train.csv", "label,left_a,right_a\n1,x,y\n0,p,q\n")
	current, err := ComputeFingerprint(cfg, []string{trainPath})
	require.NoError(t, err)

	diffs := diffFingerprints(current, cached)
	require.Len(t, diffs, 1)
	assert.Contains(t, diffs[0], "file:"+trainPath)
}

func TestDiffFingerprints_AddedAndRemoved(t *testing.T) {
	current := storageFingerprint([]string{`config.tokenizer="alnum"`, `file:a=size:1,mtime:2`})
	cached := storageFingerprint([]string{`config.tokenizer="alnum"`, `file:b=size:3,mtime:4`})

	diffs := diffFingerprints(current, cached)
	require.Len(t, diffs, 2)
	assert.Contains(t, diffs[0], "file:a added")
	assert.Contains(t, diffs[1], "file:b removed")
}

func storageFingerprint(entries []string) storage.Fingerprint {
	return storage.Fingerprint{Entries: entries, Digest: digest(entries)}
}
