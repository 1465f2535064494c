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


// Package pipeline orchestrates the full dataset preparation run: loading
// the labeled CSV files, building the vocabulary, resolving embeddings
// through the layered cache, computing training-set token frequencies, and
// persisting the whole lot as a cache bundle keyed by a configuration and
// input-file fingerprint.
//
// Process implements the bundle protocol: a valid cached bundle is loaded
// instead of rebuilt; a stale one is either rebuilt in place
// (AutoRebuildCache) or reported via core.StaleCacheError without touching
// the file; a missing, corrupt, or format-incompatible bundle triggers a
// fresh build. ProcessUnlabeled prepares an unlabeled dataset against a
// prior Process result, resolving only tokens the training run never saw.
package pipeline
