package embedding

import (
	"context"
	"fmt"

	"github.com/go-crypt/x/blake2b"
)

// HashSource derives deterministic pseudo-embeddings from a BLAKE2b digest
// of each token. It has a vector for every token, needs no external data,
// and is the default source for smoke runs and tests.
type HashSource struct {
	dims int
}

// NewHashSource creates a hash source producing vectors of the given width.
func NewHashSource(dims int) *HashSource {
	if dims <= 0 {
		dims = 300
	}
	return &HashSource{dims: dims}
}

// ID implements Source.
func (h *HashSource) ID() string {
	return fmt.Sprintf("hash:%d", h.dims)
}

// Resolve implements Source. It never leaves a token unresolved.
func (h *HashSource) Resolve(_ context.Context, tokens []string) (map[string][]float32, error) {
	out := make(map[string][]float32, len(tokens))
	for _, tok := range tokens {
		out[tok] = h.vector(tok)
	}
	return out, nil
}

func (h *HashSource) vector(token string) []float32 {
	hash, _ := blake2b.New(32, nil)
	hash.Write([]byte(token))
	sum := hash.Sum(nil)

	vec := make([]float32, h.dims)
	// Repeat digest bytes to fill dims, mapped into [-1, 1).
	for i := 0; i < h.dims; i++ {
		b := sum[i%len(sum)]
		vec[i] = (float32(b) - 128.0) / 128.0
	}
	return vec
}
