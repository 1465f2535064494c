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


// Package loader reads raw record-pair CSV files into processed datasets.
//
// Input files are UTF-8 CSV with a header row. Column roles are resolved by
// core.ResolveSchema and every left/right field is normalized through the
// configured tokenizer. Row order is preserved: downstream evaluation
// depends on reproducible example ordering.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/poiesic/matchprep/core"
	"github.com/poiesic/matchprep/tokenize"
)

// Load reads the file at path into a processed dataset with the given role.
// Any malformed row aborts the whole load with a DataFormatError naming the
// 1-based data row; no partial dataset is ever returned.
func Load(path string, role core.Role, cfg core.Config) (*core.Dataset, error) {
	strategy, err := tokenize.Lookup(cfg.Tokenizer)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s dataset: %w", role, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = true

	headers, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &core.DataFormatError{Path: path, Row: 0, Reason: "missing header row"}
		}
		return nil, fmt.Errorf("read %s header: %w", role, err)
	}
	// csv.Reader with ReuseRecord may overwrite the header slice on the
	// next Read; ResolveSchema keeps the names, so copy them out first.
	headerCopy := make([]string, len(headers))
	copy(headerCopy, headers)

	schema, err := core.ResolveSchema(headerCopy, cfg, role)
	if err != nil {
		return nil, err
	}

	ds := &core.Dataset{Role: role, Path: path, Schema: schema}
	parseLabel := role.Labeled() && schema.LabelIndex >= 0

	for row := 1; ; row++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &core.DataFormatError{Path: path, Row: row, Reason: err.Error()}
		}

		ex := core.Example{
			Label: core.NoLabel,
			Left:  make([][]string, len(schema.Attrs)),
			Right: make([][]string, len(schema.Attrs)),
		}

		if schema.IDIndex >= 0 {
			ex.ID = record[schema.IDIndex]
		}
		if parseLabel {
			ex.Label, err = parseLabelValue(record[schema.LabelIndex])
			if err != nil {
				return nil, &core.DataFormatError{
					Path:   path,
					Row:    row,
					Reason: fmt.Sprintf("label %q: %v", record[schema.LabelIndex], err),
				}
			}
		}

		for a := range schema.Attrs {
			left := strategy.Tokenize(record[schema.LeftIndexes[a]])
			right := strategy.Tokenize(record[schema.RightIndexes[a]])
			if cfg.Lowercase {
				lowercase(left)
				lowercase(right)
			}
			ex.Left[a] = left
			ex.Right[a] = right
		}

		ds.Examples = append(ds.Examples, ex)
	}

	slog.Debug("loaded dataset",
		"role", role.String(), "path", path,
		"examples", len(ds.Examples), "attrs", len(schema.Attrs))

	return ds, nil
}

// parseLabelValue accepts the binary match labels 0 and 1.
func parseLabelValue(raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("not an integer")
	}
	if v != 0 && v != 1 {
		return 0, errors.New("label must be 0 or 1")
	}
	return v, nil
}

func lowercase(tokens []string) {
	for i, tok := range tokens {
		tokens[i] = strings.ToLower(tok)
	}
}
