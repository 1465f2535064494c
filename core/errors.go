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
	"errors"
	"fmt"
	"strings"
)

// Domain validation errors
var (
	// ErrInvalidConfig indicates a Config failed validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// SchemaError indicates that column classification failed. It is fatal:
// no partial schema or dataset is produced.
type SchemaError struct {
	// Column is the offending header name, empty for whole-schema failures
	// such as an unpaired attribute.
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Column == "" {
		return "schema: " + e.Reason
	}
	return fmt.Sprintf("schema: column %q: %s", e.Column, e.Reason)
}

// DataFormatError indicates a malformed row in an input file. Row is the
// 1-based data row index (the header row is not counted). It is fatal: the
// whole load aborts and no partial dataset is emitted.
type DataFormatError struct {
	Path   string
	Row    int
	Reason string
}

func (e *DataFormatError) Error() string {
	return fmt.Sprintf("%s: row %d: %s", e.Path, e.Row, e.Reason)
}

// StaleCacheError indicates that an existing cache bundle no longer matches
// the current configuration and input files, and automatic rebuilding is
// disabled. The on-disk bundle is left untouched. Diffs names each
// configuration field or input file that changed.
type StaleCacheError struct {
	Diffs []string
}

func (e *StaleCacheError) Error() string {
	return "cache bundle is stale: " + strings.Join(e.Diffs, "; ")
}

// SourceError indicates that an embedding source was unreachable or its
// distribution was corrupt. Individual tokens missing from a healthy source
// are not errors; they are reported as unresolved instead.
type SourceError struct {
	SourceID string
	Err      error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("embedding source %q: %v", e.SourceID, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
