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


// Package tokenize converts raw field text into normalized token sequences.
//
// Every strategy is deterministic and pure: the same input and
// configuration always produce the same token sequence. This matters
// because tokenizer output participates in fingerprint-sensitive cached
// artifacts. Strategies differ only in token boundary rules; lowercasing is
// applied uniformly after tokenization.
package tokenize

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// ErrUnknownStrategy indicates the configured tokenizer name is not registered.
var ErrUnknownStrategy = errors.New("unknown tokenizer strategy")

// Strategy splits raw text into an ordered token sequence. Implementations
// must be pure functions of their input.
type Strategy interface {
	Tokenize(text string) []string
}

var strategies = map[string]Strategy{
	"simple": simpleStrategy{},
	"alnum":  alnumStrategy{},
}

// Lookup returns the strategy registered under name.
func Lookup(name string) (Strategy, error) {
	s, ok := strategies[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %s)", ErrUnknownStrategy, name, strings.Join(Names(), ", "))
	}
	return s, nil
}

// Names returns the registered strategy names in sorted order.
func Names() []string {
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Normalize tokenizes text with the named strategy and applies lowercasing
// when enabled. Empty or missing text yields an empty sequence, not an
// error.
func Normalize(text, strategy string, lowercase bool) ([]string, error) {
	s, err := Lookup(strategy)
	if err != nil {
		return nil, err
	}
	tokens := s.Tokenize(text)
	if lowercase {
		for i, tok := range tokens {
			tokens[i] = strings.ToLower(tok)
		}
	}
	return tokens, nil
}

// simpleStrategy splits on whitespace only. Punctuation stays attached to
// its word.
type simpleStrategy struct{}

func (simpleStrategy) Tokenize(text string) []string {
	return strings.Fields(text)
}

// alnumStrategy emits maximal runs of letters and digits; everything else
// is a boundary.
type alnumStrategy struct{}

func (alnumStrategy) Tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(r)
			continue
		}
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}
