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


package core

import (
	"os"
	"path/filepath"
)

// Config holds every knob that affects processing output. It is treated as
// an immutable value: construct it, validate it, pass it by value. Two
// configs describe the same processing iff every field is equal, which is
// what the cache fingerprint captures.
type Config struct {
	// LeftPrefix and RightPrefix classify attribute columns by header name.
	LeftPrefix  string
	RightPrefix string

	// LabelAttr is the exact header name of the match label column.
	LabelAttr string

	// IDAttr is the exact header name of the pair identifier column.
	IDAttr string

	// IgnoredColumns lists header names excluded from processing entirely.
	IgnoredColumns []string

	// Tokenizer names the tokenization strategy ("simple", "alnum").
	Tokenizer string

	// Lowercase applies lowercasing to every token after tokenization.
	Lowercase bool

	// EmbeddingSource identifies the embedding provider, e.g. "hash:300",
	// "file:/data/wiki.vec" or "api:embeddinggemma@http://localhost:11434/v1".
	EmbeddingSource string

	// EmbeddingCacheDir is the on-disk raw-source embedding cache location.
	EmbeddingCacheDir string

	// CacheFile is the bundle filename written alongside the train input.
	CacheFile string

	// CheckCachedData controls whether an existing bundle's fingerprint is
	// verified before being trusted. When false an existing bundle is
	// loaded unconditionally.
	CheckCachedData bool

	// AutoRebuildCache controls what happens on a fingerprint mismatch:
	// rebuild and overwrite when true, fail with a StaleCacheError when
	// false.
	AutoRebuildCache bool

	// HashContents switches the per-file change token from size+mtime to a
	// full content hash. Slower, but catches edits that preserve both size
	// and mtime.
	HashContents bool
}

// Default values for DefaultConfig.
const (
	DefaultLeftPrefix  = "left_"
	DefaultRightPrefix = "right_"
	DefaultLabelAttr   = "label"
	DefaultIDAttr      = "id"
	DefaultTokenizer   = "simple"
	DefaultCacheFile   = "cacheddata.mpb"
	DefaultSource      = "hash:300"
)

// DefaultConfig returns the baseline configuration. The embedding cache
// defaults to a fixed per-user location shared across processes.
func DefaultConfig() Config {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	return Config{
		LeftPrefix:        DefaultLeftPrefix,
		RightPrefix:       DefaultRightPrefix,
		LabelAttr:         DefaultLabelAttr,
		IDAttr:            DefaultIDAttr,
		Tokenizer:         DefaultTokenizer,
		Lowercase:         true,
		EmbeddingSource:   DefaultSource,
		EmbeddingCacheDir: filepath.Join(cacheDir, "matchprep", "embeddings"),
		CacheFile:         DefaultCacheFile,
		CheckCachedData:   true,
		AutoRebuildCache:  true,
	}
}

// IsIgnored reports whether the header name is in the ignored set.
func (c Config) IsIgnored(name string) bool {
	for _, ig := range c.IgnoredColumns {
		if ig == name {
			return true
		}
	}
	return false
}
