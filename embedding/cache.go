// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package embedding

import (
	"context"
	"log/slog"
	"sync"

	"github.com/poiesic/matchprep/core"
)

// Cache layers an in-process memory cache and an on-disk BadgerDB store
// over any Source. It is process-wide: the disk layer is opened lazily on
// first use and outlives any single pipeline call.
type Cache struct {
	mu     sync.Mutex
	dir    string
	logger *slog.Logger
	store  *diskStore

	// memory holds resolved vectors per source id; missing memoizes
	// tokens a source was already asked for and had no vector for, so
	// repeated calls within one run do not re-query them.
	memory  map[string]map[string][]float32
	missing map[string]map[string]struct{}
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) CacheOption {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCache creates a cache whose disk layer lives at dir. The directory is
// not touched until the first resolution that needs it.
func NewCache(dir string, opts ...CacheOption) *Cache {
	c := &Cache{
		dir:     dir,
		logger:  slog.Default().With("component", "embedding-cache"),
		memory:  make(map[string]map[string][]float32),
		missing: make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dir returns the disk layer location.
func (c *Cache) Dir() string {
	return c.dir
}

// Resolve returns vectors for the requested tokens from src, consulting the
// memory layer, then the disk layer, and only then the source itself.
// Tokens the source has no vector for are returned in unresolved, in
// request order, deduplicated. Resolution is lazy: only requested tokens
// are materialized into the result.
func (c *Cache) Resolve(ctx context.Context, src Source, tokens []string) (resolved map[string][]float32, unresolved []string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := src.ID()
	mem := c.memory[id]
	if mem == nil {
		mem = make(map[string][]float32)
		c.memory[id] = mem
	}
	miss := c.missing[id]
	if miss == nil {
		miss = make(map[string]struct{})
		c.missing[id] = miss
	}

	resolved = make(map[string][]float32, len(tokens))
	var need []string
	for _, tok := range tokens {
		if vec, ok := mem[tok]; ok {
			resolved[tok] = vec
			continue
		}
		if _, ok := miss[tok]; !ok {
			need = append(need, tok)
		}
	}

	if len(need) > 0 {
		if err := c.fill(ctx, src, id, mem, miss, resolved, need); err != nil {
			return nil, nil, &core.SourceError{SourceID: id, Err: err}
		}
	}

	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if _, ok := resolved[tok]; ok {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		unresolved = append(unresolved, tok)
	}
	return resolved, unresolved, nil
}

// fill satisfies need from the disk layer and, as a last resort, the
// source, writing anything newly resolved through both layers.
func (c *Cache) fill(ctx context.Context, src Source, id string, mem map[string][]float32, miss map[string]struct{}, out map[string][]float32, need []string) error {
	store, err := c.openLocked()
	if err != nil {
		return err
	}

	// Materializable sources are parsed wholesale exactly once; after the
	// ready marker every lookup is answered by the disk layer alone.
	if mat, ok := src.(Materializer); ok {
		ready, err := store.Ready(id)
		if err != nil {
			return err
		}
		if !ready {
			if err := store.Materialize(ctx, id, mat); err != nil {
				return err
			}
		}
		for _, tok := range need {
			vec, found, err := store.Get(id, tok)
			if err != nil {
				return err
			}
			if found {
				mem[tok] = vec
				out[tok] = vec
			} else {
				miss[tok] = struct{}{}
			}
		}
		return nil
	}

	var ask []string
	for _, tok := range need {
		vec, found, err := store.Get(id, tok)
		if err != nil {
			return err
		}
		if found {
			mem[tok] = vec
			out[tok] = vec
		} else {
			ask = append(ask, tok)
		}
	}
	if len(ask) == 0 {
		return nil
	}

	c.logger.Debug("querying embedding source", "source", id, "tokens", len(ask))
	fetched, err := src.Resolve(ctx, ask)
	if err != nil {
		return err
	}

	fresh := make(map[string][]float32, len(fetched))
	for _, tok := range ask {
		if vec, ok := fetched[tok]; ok {
			mem[tok] = vec
			out[tok] = vec
			fresh[tok] = vec
		} else {
			miss[tok] = struct{}{}
		}
	}
	return store.PutBatch(id, fresh)
}

func (c *Cache) openLocked() (*diskStore, error) {
	if c.store == nil {
		store, err := openStore(c.dir, c.logger)
		if err != nil {
			return nil, err
		}
		c.store = store
	}
	return c.store, nil
}

// Reset clears the in-process memory layer only. The next resolution
// re-reads from the on-disk store, or the source if that is also absent.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.memory = make(map[string]map[string][]float32)
	c.missing = make(map[string]map[string]struct{})
}

// Close releases the disk layer. The cache should not be used afterwards.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return nil
	}
	err := c.store.Close()
	c.store = nil
	return err
}
