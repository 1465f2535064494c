package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	t.Run("hash", func(t *testing.T) {
		src, err := Open("hash:128")
		require.NoError(t, err)
		assert.Equal(t, "hash:128", src.ID())
	})

	t.Run("file", func(t *testing.T) {
		src, err := Open("file:/data/wiki.vec")
		require.NoError(t, err)
		assert.Equal(t, "file:/data/wiki.vec", src.ID())

		_, ok := src.(Materializer)
		assert.True(t, ok, "file sources must be materializable")
	})

	t.Run("api", func(t *testing.T) {
		src, err := Open("api:embeddinggemma@http://localhost:11434/v1")
		require.NoError(t, err)
		assert.Equal(t, "api:embeddinggemma@http://localhost:11434/v1", src.ID())

		closer, ok := src.(interface{ Close() error })
		require.True(t, ok)
		require.NoError(t, closer.Close())
	})

	invalid := []string{
		"",
		"hash",
		"hash:zero",
		"hash:-3",
		"file:",
		"api:modelonly",
		"api:@host",
		"word2vec:whatever",
	}
	for _, spec := range invalid {
		t.Run("invalid "+spec, func(t *testing.T) {
			_, err := Open(spec)
			assert.ErrorIs(t, err, ErrInvalidSourceSpec)
		})
	}
}

func TestHashSource(t *testing.T) {
	src := NewHashSource(16)

	first, err := src.Resolve(context.Background(), []string{"apple", "banana"})
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.Len(t, first["apple"], 16)

	// Deterministic across calls.
	again, err := src.Resolve(context.Background(), []string{"apple"})
	require.NoError(t, err)
	assert.Equal(t, first["apple"], again["apple"])

	// Distinct tokens get distinct vectors.
	assert.NotEqual(t, first["apple"], first["banana"])

	for _, v := range first["apple"] {
		assert.GreaterOrEqual(t, v, float32(-1))
		assert.Less(t, v, float32(1))
	}
}

func TestChunk(t *testing.T) {
	tokens := []string{"a", "b", "c", "d", "e"}

	batches := chunk(tokens, 2)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, batches)

	assert.Equal(t, [][]string{tokens}, chunk(tokens, 10))
}
