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

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/poiesic/matchprep/core"
)

// Bundle file framing: magic, then one format version byte, then the
// MUS-encoded payload. Bump bundleVersion whenever the payload layout
// changes; old files then read as incompatible and get rebuilt.
var bundleMagic = []byte("MPB!")

const bundleVersion byte = 1

// Fingerprint is a deterministic summary of a processing configuration and
// the state of its input files. Entries are canonical "key=value" lines in
// a fixed order; Digest is their BLAKE2b hash, hex encoded. Keeping the
// entries alongside the digest lets a mismatch name exactly what changed.
type Fingerprint struct {
	Entries []string
	Digest  string
}

// Equal reports whether both fingerprints have the same digest.
func (fp Fingerprint) Equal(other Fingerprint) bool {
	return fp.Digest == other.Digest
}

// Bundle is the persisted artifact of one labeled processing call.
type Bundle struct {
	Fingerprint Fingerprint
	Train       *core.Dataset
	Validation  *core.Dataset
	Test        *core.Dataset
	Vocabulary  *core.Vocabulary
	Embeddings  *core.EmbeddingTable
	Frequencies *core.Frequencies
}

// MarshalBundle serializes a bundle, framing included.
func MarshalBundle(b *Bundle) []byte {
	header := len(bundleMagic) + 1
	buf := make([]byte, header+BundleMUS.Size(*b))
	copy(buf, bundleMagic)
	buf[len(bundleMagic)] = bundleVersion
	BundleMUS.Marshal(*b, buf[header:])
	return buf
}

// UnmarshalBundle deserializes a framed bundle.
func UnmarshalBundle(data []byte) (*Bundle, error) {
	header := len(bundleMagic) + 1
	if len(data) < header {
		return nil, fmt.Errorf("%w: %d bytes", ErrTruncatedData, len(data))
	}
	if !bytes.Equal(data[:len(bundleMagic)], bundleMagic) {
		return nil, fmt.Errorf("%w: bad magic", ErrIncompatibleBundle)
	}
	if v := data[len(bundleMagic)]; v != bundleVersion {
		return nil, fmt.Errorf("%w: version %d, want %d", ErrIncompatibleBundle, v, bundleVersion)
	}

	b, _, err := BundleMUS.Unmarshal(data[header:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptBundle, err)
	}
	return &b, nil
}

// WriteBundle persists the bundle atomically: the serialized bytes go to a
// temporary file in the destination directory, which is then renamed over
// path. Readers see either the previous bundle in full or the new one in
// full.
func WriteBundle(path string, b *Bundle) error {
	data := MarshalBundle(b)

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp bundle: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write bundle: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync bundle: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close bundle: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace bundle: %w", err)
	}
	return nil
}

// ReadBundle loads the bundle at path. os.ErrNotExist passes through so
// callers can distinguish "no cache yet" from a broken one.
func ReadBundle(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return UnmarshalBundle(data)
}
