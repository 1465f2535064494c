package embedding

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeVectors(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vectors.vec")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestFileSource_Resolve(t *testing.T) {
	path := writeVectors(t,
		"apple 0.1 0.2\n"+
			"banana 0.3 0.4\n"+
			"cherry 0.5 0.6\n")
	src := NewFileSource(path)

	got, err := src.Resolve(context.Background(), []string{"banana", "durian"})
	require.NoError(t, err)

	// Only requested tokens, absent tokens simply missing.
	require.Len(t, got, 1)
	assert.Equal(t, []float32{0.3, 0.4}, got["banana"])
}

func TestFileSource_CountHeaderSkipped(t *testing.T) {
	path := writeVectors(t,
		"2 3\n"+
			"apple 0.1 0.2 0.3\n"+
			"banana 0.4 0.5 0.6\n")
	src := NewFileSource(path)

	got, err := src.Resolve(context.Background(), []string{"apple"})
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, got["apple"])
}

func TestFileSource_Materialize(t *testing.T) {
	path := writeVectors(t, "apple 0.1\nbanana 0.2\n")
	src := NewFileSource(path)

	table := make(map[string][]float32)
	err := src.Materialize(context.Background(), func(token string, vector []float32) error {
		table[token] = vector
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, table, 2)
}

func TestFileSource_Corrupt(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{"token without vector", "apple 0.1\nbanana\n"},
		{"non numeric component", "apple 0.1\nbanana zero\n"},
		{"dims mismatch", "apple 0.1 0.2\nbanana 0.3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewFileSource(writeVectors(t, tt.contents))
			_, err := src.Resolve(context.Background(), []string{"apple"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "corrupt distribution")
		})
	}
}

func TestFileSource_MissingFile(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "nope.vec"))
	_, err := src.Resolve(context.Background(), []string{"apple"})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
