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


// Package embedding resolves word vectors for vocabularies through a
// layered cache.
//
// # Sources
//
// A Source supplies vectors for a requested token set. Built-in sources are
// selected by a configuration string:
//
//	hash:<dims>          deterministic vectors derived from a token hash
//	file:<path>          GloVe/fastText-style text distribution on disk
//	api:<model>@<host>   OpenAI-compatible embedding API
//
// Tokens a source has no vector for are simply absent from its result;
// they are never filled with placeholders.
//
// # Cache layers
//
// Cache wraps any Source with two layers keyed by source id:
//
//   - an on-disk BadgerDB store holding resolved vectors, so a later
//     process invocation never re-parses or re-downloads the distribution
//   - an in-process memory layer, so multiple pipeline calls within one
//     run (labeled then unlabeled, sibling datasets) share the parsed
//     vectors without touching disk
//
// Sources that can enumerate their full table (vector files) implement
// Materializer and are written to the disk layer wholesale on first use;
// the ready marker is only persisted after the full table, so a crash
// mid-materialization is retried on the next run rather than trusted.
// BadgerDB's directory lock makes first-time materialization exclusive
// across processes.
//
// # Lifecycle
//
// A Cache is an explicit process-wide object: create one, pass it to every
// pipeline, close it on shutdown. Reset clears only the memory layer; the
// disk layer persists independently.
package embedding
