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


package storage

import "errors"

var (
	// ErrIncompatibleBundle indicates a bundle written by an incompatible
	// format version (or a file that is not a bundle at all). Callers
	// treat such a bundle as absent.
	ErrIncompatibleBundle = errors.New("incompatible bundle format")

	// ErrCorruptBundle indicates a bundle whose payload failed to decode.
	ErrCorruptBundle = errors.New("corrupt bundle")

	// ErrTruncatedData indicates that data was truncated during reading.
	ErrTruncatedData = errors.New("truncated data")
)
