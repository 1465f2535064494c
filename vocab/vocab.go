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


// Package vocab builds vocabularies and training-set metadata from
// processed datasets.
package vocab

import (
	"sort"

	"github.com/poiesic/matchprep/core"
)

// Build aggregates the distinct tokens of the given datasets into a single
// vocabulary. Tokens are assigned indices in first-seen order across the
// datasets in argument order, which keeps the resulting indices (and any
// fingerprint over them) reproducible for identical inputs.
func Build(datasets ...*core.Dataset) *core.Vocabulary {
	v := core.NewVocabulary()
	for _, ds := range datasets {
		ds.Tokens(func(tok string) {
			v.Add(tok)
		})
	}
	return v
}

// BuildScoped builds a vocabulary for a single dataset while reusing a
// previously resolved vocabulary. The returned fresh slice lists, in
// first-seen order, only the tokens absent from known: those are the only
// tokens requiring new embedding resolution. Tokens already known keep
// reusing their existing embedding entries.
//
// A nil known behaves like Build: every non-sentinel token is fresh.
func BuildScoped(ds *core.Dataset, known *core.Vocabulary) (v *core.Vocabulary, fresh []string) {
	v = core.NewVocabulary()
	ds.Tokens(func(tok string) {
		before := v.Size()
		if v.Add(tok) < before {
			return // already collected
		}
		if known == nil || !known.Contains(tok) {
			fresh = append(fresh, tok)
		}
	})
	return v, fresh
}

// Count computes the training-split token frequency table: the number of
// occurrences of each token across all left and right fields. It is a pure
// function of the training split's token sequences.
func Count(train *core.Dataset) *core.Frequencies {
	counts := make(map[string]int)
	train.Tokens(func(tok string) {
		counts[tok]++
	})
	return &core.Frequencies{Counts: counts}
}

// TopN returns the n most frequent tokens, most frequent first. Ties break
// lexicographically so the result is deterministic.
func TopN(f *core.Frequencies, n int) []core.TokenCount {
	all := make([]core.TokenCount, 0, len(f.Counts))
	for tok, c := range f.Counts {
		all = append(all, core.TokenCount{Token: tok, Count: c})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Count != all[j].Count {
			return all[i].Count > all[j].Count
		}
		return all[i].Token < all[j].Token
	})
	if n < len(all) {
		all = all[:n]
	}
	return all
}
