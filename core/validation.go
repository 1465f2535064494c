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
	"fmt"
	"strings"
)

// Validate checks the configuration according to domain rules.
//
// Validation rules:
//   - LeftPrefix and RightPrefix must be non-empty and distinct, and
//     neither may be a prefix of the other (otherwise column
//     classification would be ambiguous)
//   - LabelAttr must be non-empty
//   - Tokenizer must be non-empty
//   - EmbeddingSource must be non-empty
//   - CacheFile must be a bare filename, not a path
//
// NOT validated (checked at point of use):
//   - Tokenizer strategy existence (tokenize package registry)
//   - EmbeddingSource spec syntax (embedding package)
func (c Config) Validate() error {
	if c.LeftPrefix == "" || c.RightPrefix == "" {
		return fmt.Errorf("%w: column prefixes must be non-empty", ErrInvalidConfig)
	}
	if c.LeftPrefix == c.RightPrefix {
		return fmt.Errorf("%w: left and right prefixes are identical", ErrInvalidConfig)
	}
	if strings.HasPrefix(c.LeftPrefix, c.RightPrefix) || strings.HasPrefix(c.RightPrefix, c.LeftPrefix) {
		return fmt.Errorf("%w: prefixes %q and %q overlap", ErrInvalidConfig, c.LeftPrefix, c.RightPrefix)
	}
	if c.LabelAttr == "" {
		return fmt.Errorf("%w: label attribute must be non-empty", ErrInvalidConfig)
	}
	if c.Tokenizer == "" {
		return fmt.Errorf("%w: tokenizer must be non-empty", ErrInvalidConfig)
	}
	if c.EmbeddingSource == "" {
		return fmt.Errorf("%w: embedding source must be non-empty", ErrInvalidConfig)
	}
	if c.CacheFile == "" || strings.ContainsAny(c.CacheFile, `/\`) {
		return fmt.Errorf("%w: cache file must be a bare filename, got %q", ErrInvalidConfig, c.CacheFile)
	}
	return nil
}
