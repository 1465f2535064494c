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


package pipeline

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/go-crypt/x/blake2b"

	"github.com/poiesic/matchprep/core"
	"github.com/poiesic/matchprep/storage"
)

// ComputeFingerprint builds the cache-validity fingerprint: one canonical
// "key=value" entry per configuration field that affects output, plus one
// change-token entry per input file, digested with BLAKE2b.
//
// The embedding cache directory and the bundle filename are deliberately
// excluded: they say where artifacts live, not what the artifacts are. The
// embedding source id is included, since a different source yields a
// different embedding table.
//
// The default change token is size+mtime; it is cheap and changes whenever
// the file does under normal editing. An edit that preserves both is only
// caught with cfg.HashContents.
func ComputeFingerprint(cfg core.Config, paths []string) (storage.Fingerprint, error) {
	ignored := append([]string(nil), cfg.IgnoredColumns...)
	sort.Strings(ignored)

	entries := []string{
		fmt.Sprintf("config.left_prefix=%q", cfg.LeftPrefix),
		fmt.Sprintf("config.right_prefix=%q", cfg.RightPrefix),
		fmt.Sprintf("config.label_attr=%q", cfg.LabelAttr),
		fmt.Sprintf("config.id_attr=%q", cfg.IDAttr),
		fmt.Sprintf("config.ignored_columns=%q", strings.Join(ignored, ",")),
		fmt.Sprintf("config.tokenizer=%q", cfg.Tokenizer),
		fmt.Sprintf("config.lowercase=%t", cfg.Lowercase),
		fmt.Sprintf("config.embedding_source=%q", cfg.EmbeddingSource),
		fmt.Sprintf("config.hash_contents=%t", cfg.HashContents),
	}

	for _, path := range paths {
		token, err := changeToken(path, cfg.HashContents)
		if err != nil {
			return storage.Fingerprint{}, fmt.Errorf("fingerprint %s: %w", path, err)
		}
		entries = append(entries, fmt.Sprintf("file:%s=%s", path, token))
	}

	return storage.Fingerprint{Entries: entries, Digest: digest(entries)}, nil
}

// changeToken summarizes one input file's state. Any scheme works as long
// as it changes whenever the file contents change and is stable otherwise.
func changeToken(path string, hashContents bool) (string, error) {
	if hashContents {
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		defer f.Close()

		h, _ := blake2b.New(32, nil)
		if _, err := io.Copy(h, f); err != nil {
			return "", err
		}
		return "blake2b:" + hex.EncodeToString(h.Sum(nil)), nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("size:%d,mtime:%d", info.Size(), info.ModTime().UnixNano()), nil
}

func digest(entries []string) string {
	h, _ := blake2b.New(32, nil)
	for _, e := range entries {
		h.Write([]byte(e))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// diffFingerprints names every entry key whose value differs between the
// current fingerprint and a cached one. It powers StaleCacheError's
// requirement to say which configuration fields or input files changed.
func diffFingerprints(current, cached storage.Fingerprint) []string {
	curr := entryMap(current.Entries)
	prev := entryMap(cached.Entries)

	keys := make([]string, 0, len(curr)+len(prev))
	seen := make(map[string]struct{})
	for _, e := range append(append([]string(nil), current.Entries...), cached.Entries...) {
		k, _, _ := strings.Cut(e, "=")
		if _, dup := seen[k]; !dup {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}

	var diffs []string
	for _, k := range keys {
		cv, inCurr := curr[k]
		pv, inPrev := prev[k]
		switch {
		case !inPrev:
			diffs = append(diffs, fmt.Sprintf("%s added (now %s)", k, cv))
		case !inCurr:
			diffs = append(diffs, fmt.Sprintf("%s removed (was %s)", k, pv))
		case cv != pv:
			diffs = append(diffs, fmt.Sprintf("%s changed (cached %s, now %s)", k, pv, cv))
		}
	}
	return diffs
}

func entryMap(entries []string) map[string]string {
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		k, v, _ := strings.Cut(e, "=")
		m[k] = v
	}
	return m
}
