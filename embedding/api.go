package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	defaultBatchSize  = 64
	defaultMaxRetries = 3
	defaultRetryDelay = 500 * time.Millisecond
)

// APISource resolves vectors through an OpenAI-compatible embedding API.
// Requests are batched and dispatched through a worker pool; each batch is
// retried with exponential backoff.
type APISource struct {
	id        string
	embedder  embeddings.Embedder
	pool      *ants.Pool
	batchSize int
	logger    *slog.Logger
}

// APIOption configures an APISource.
type APIOption func(*APISource)

// WithBatchSize sets the number of tokens embedded per API request.
func WithBatchSize(n int) APIOption {
	return func(s *APISource) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// NewAPISource creates a source backed by the embedding model at the given
// OpenAI-compatible host. The "none" token suits local services that skip
// authentication.
func NewAPISource(model, host string, opts ...APIOption) (*APISource, error) {
	client, err := openai.New(
		openai.WithBaseURL(host),
		openai.WithToken("none"),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	s := &APISource{
		id:        "api:" + model + "@" + host,
		embedder:  embedder,
		pool:      pool,
		batchSize: defaultBatchSize,
		logger:    slog.Default().With("component", "api-source"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ID implements Source.
func (s *APISource) ID() string {
	return s.id
}

// Resolve implements Source. The API embeds any input, so every requested
// token resolves unless the service itself fails.
func (s *APISource) Resolve(ctx context.Context, tokens []string) (map[string][]float32, error) {
	if len(tokens) == 0 {
		return map[string][]float32{}, nil
	}

	batches := chunk(tokens, s.batchSize)
	results := make([][][]float32, len(batches))
	errs := make([]error, len(batches))

	s.logger.Debug("resolving tokens", "tokens", len(tokens), "batches", len(batches))

	var wg sync.WaitGroup
	for i, batch := range batches {
		wg.Add(1)
		submitErr := s.pool.Submit(func() {
			defer wg.Done()
			errs[i] = retryWithBackoff(ctx, func() error {
				vecs, err := s.embedder.EmbedDocuments(ctx, batch)
				if err != nil {
					return err
				}
				if len(vecs) != len(batch) {
					return fmt.Errorf("embedding result mismatch. expected %d, received %d", len(batch), len(vecs))
				}
				results[i] = vecs
				return nil
			}, defaultMaxRetries, defaultRetryDelay)
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = submitErr
		}
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	out := make(map[string][]float32, len(tokens))
	for i, batch := range batches {
		for j, tok := range batch {
			out[tok] = results[i][j]
		}
	}
	return out, nil
}

// Close releases the worker pool. The source should not be used afterwards.
func (s *APISource) Close() error {
	s.pool.Release()
	return nil
}

func chunk(tokens []string, size int) [][]string {
	var batches [][]string
	for len(tokens) > size {
		batches = append(batches, tokens[:size])
		tokens = tokens[size:]
	}
	return append(batches, tokens)
}
