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


// Package storage persists cache bundles: the artifact holding the
// processed datasets, vocabulary, embedding table, metadata, and the
// fingerprint they were built under.
//
// # Format
//
// A bundle file is a fixed magic, a format version byte, and a MUS-encoded
// payload. A file whose magic or version does not match is reported as
// incompatible; callers treat it as absent and rebuild rather than guess.
//
// # Atomicity
//
// WriteBundle writes to a temporary file in the destination directory and
// renames it into place, so concurrent readers see either the old bundle in
// full or the new bundle in full, and a crash mid-write never leaves a
// corrupt bundle at the destination path.
//
// # Serialization
//
// Serializers follow the XxxMUS convention and compose mus-go primitive
// serializers by hand; the payload layout is part of the format version.
package storage
