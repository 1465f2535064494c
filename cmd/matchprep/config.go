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


package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/poiesic/matchprep/core"
)

// fileConfig mirrors core.Config with pointer fields so a YAML file only
// overrides the keys it actually sets.
type fileConfig struct {
	LeftPrefix        *string  `yaml:"left_prefix"`
	RightPrefix       *string  `yaml:"right_prefix"`
	LabelAttr         *string  `yaml:"label_attr"`
	IDAttr            *string  `yaml:"id_attr"`
	IgnoredColumns    []string `yaml:"ignored_columns"`
	Tokenizer         *string  `yaml:"tokenizer"`
	Lowercase         *bool    `yaml:"lowercase"`
	EmbeddingSource   *string  `yaml:"embedding_source"`
	EmbeddingCacheDir *string  `yaml:"embedding_cache_dir"`
	CacheFile         *string  `yaml:"cache_file"`
	CheckCachedData   *bool    `yaml:"check_cached_data"`
	AutoRebuildCache  *bool    `yaml:"auto_rebuild_cache"`
	HashContents      *bool    `yaml:"hash_contents"`
}

// applyConfigFile layers a YAML configuration file over cfg.
func applyConfigFile(path string, cfg *core.Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.LeftPrefix != nil {
		cfg.LeftPrefix = *fc.LeftPrefix
	}
	if fc.RightPrefix != nil {
		cfg.RightPrefix = *fc.RightPrefix
	}
	if fc.LabelAttr != nil {
		cfg.LabelAttr = *fc.LabelAttr
	}
	if fc.IDAttr != nil {
		cfg.IDAttr = *fc.IDAttr
	}
	if fc.IgnoredColumns != nil {
		cfg.IgnoredColumns = fc.IgnoredColumns
	}
	if fc.Tokenizer != nil {
		cfg.Tokenizer = *fc.Tokenizer
	}
	if fc.Lowercase != nil {
		cfg.Lowercase = *fc.Lowercase
	}
	if fc.EmbeddingSource != nil {
		cfg.EmbeddingSource = *fc.EmbeddingSource
	}
	if fc.EmbeddingCacheDir != nil {
		cfg.EmbeddingCacheDir = *fc.EmbeddingCacheDir
	}
	if fc.CacheFile != nil {
		cfg.CacheFile = *fc.CacheFile
	}
	if fc.CheckCachedData != nil {
		cfg.CheckCachedData = *fc.CheckCachedData
	}
	if fc.AutoRebuildCache != nil {
		cfg.AutoRebuildCache = *fc.AutoRebuildCache
	}
	if fc.HashContents != nil {
		cfg.HashContents = *fc.HashContents
	}
	return nil
}
