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
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"

	"github.com/poiesic/matchprep/core"
)

// Primitive composites reused across the struct serializers.
var (
	stringsSer = ord.NewSliceSer[string](ord.String)
	vectorSer  = ord.NewSliceSer[float32](raw.Float32)
	intsSer    = ord.NewSliceSer[int](varint.Int)
	fieldsSer  = ord.NewSliceSer[[]string](stringsSer)
	vectorsSer = ord.NewMapSer[int, []float32](varint.Int, vectorSer)
	countsSer  = ord.NewMapSer[string, int](ord.String, varint.Int)
)

// Struct serializers in the XxxMUS convention. The payload layout they
// define is part of the bundle format version.
var (
	ColumnMUS      = columnMUS{}
	SchemaMUS      = schemaMUS{}
	ExampleMUS     = exampleMUS{}
	DatasetMUS     = datasetMUS{}
	VocabularyMUS  = vocabularyMUS{}
	EmbeddingsMUS  = embeddingsMUS{}
	FrequenciesMUS = frequenciesMUS{}
	FingerprintMUS = fingerprintMUS{}
	BundleMUS      = bundleMUS{}
)

var (
	columnsSer  = ord.NewSliceSer[core.Column](ColumnMUS)
	examplesSer = ord.NewSliceSer[core.Example](ExampleMUS)
)

type columnMUS struct{}

func (columnMUS) Marshal(c core.Column, bs []byte) (n int) {
	n = ord.String.Marshal(c.Name, bs)
	n += varint.Int.Marshal(int(c.Role), bs[n:])
	n += ord.String.Marshal(c.Base, bs[n:])
	return n
}

func (columnMUS) Unmarshal(bs []byte) (c core.Column, n int, err error) {
	var n1 int
	c.Name, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return c, n, err
	}
	var role int
	role, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return c, n, err
	}
	c.Role = core.FieldRole(role)
	c.Base, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return c, n, err
}

func (columnMUS) Size(c core.Column) (n int) {
	n = ord.String.Size(c.Name)
	n += varint.Int.Size(int(c.Role))
	n += ord.String.Size(c.Base)
	return n
}

func (s columnMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

type schemaMUS struct{}

func (schemaMUS) Marshal(sc core.Schema, bs []byte) (n int) {
	n = columnsSer.Marshal(sc.Columns, bs)
	n += stringsSer.Marshal(sc.Attrs, bs[n:])
	n += intsSer.Marshal(sc.LeftIndexes, bs[n:])
	n += intsSer.Marshal(sc.RightIndexes, bs[n:])
	n += varint.Int.Marshal(sc.LabelIndex, bs[n:])
	n += varint.Int.Marshal(sc.IDIndex, bs[n:])
	return n
}

func (schemaMUS) Unmarshal(bs []byte) (sc core.Schema, n int, err error) {
	var n1 int
	sc.Columns, n, err = columnsSer.Unmarshal(bs)
	if err != nil {
		return sc, n, err
	}
	sc.Attrs, n1, err = stringsSer.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return sc, n, err
	}
	sc.LeftIndexes, n1, err = intsSer.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return sc, n, err
	}
	sc.RightIndexes, n1, err = intsSer.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return sc, n, err
	}
	sc.LabelIndex, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return sc, n, err
	}
	sc.IDIndex, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	return sc, n, err
}

func (schemaMUS) Size(sc core.Schema) (n int) {
	n = columnsSer.Size(sc.Columns)
	n += stringsSer.Size(sc.Attrs)
	n += intsSer.Size(sc.LeftIndexes)
	n += intsSer.Size(sc.RightIndexes)
	n += varint.Int.Size(sc.LabelIndex)
	n += varint.Int.Size(sc.IDIndex)
	return n
}

func (s schemaMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

type exampleMUS struct{}

func (exampleMUS) Marshal(e core.Example, bs []byte) (n int) {
	n = ord.String.Marshal(e.ID, bs)
	n += varint.Int.Marshal(e.Label, bs[n:])
	n += fieldsSer.Marshal(e.Left, bs[n:])
	n += fieldsSer.Marshal(e.Right, bs[n:])
	return n
}

func (exampleMUS) Unmarshal(bs []byte) (e core.Example, n int, err error) {
	var n1 int
	e.ID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return e, n, err
	}
	e.Label, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return e, n, err
	}
	e.Left, n1, err = fieldsSer.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return e, n, err
	}
	e.Right, n1, err = fieldsSer.Unmarshal(bs[n:])
	n += n1
	return e, n, err
}

func (exampleMUS) Size(e core.Example) (n int) {
	n = ord.String.Size(e.ID)
	n += varint.Int.Size(e.Label)
	n += fieldsSer.Size(e.Left)
	n += fieldsSer.Size(e.Right)
	return n
}

func (s exampleMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

type datasetMUS struct{}

func (datasetMUS) Marshal(d core.Dataset, bs []byte) (n int) {
	n = varint.Int.Marshal(int(d.Role), bs)
	n += ord.String.Marshal(d.Path, bs[n:])
	hasSchema := d.Schema != nil
	n += ord.Bool.Marshal(hasSchema, bs[n:])
	if hasSchema {
		n += SchemaMUS.Marshal(*d.Schema, bs[n:])
	}
	n += examplesSer.Marshal(d.Examples, bs[n:])
	return n
}

func (datasetMUS) Unmarshal(bs []byte) (d core.Dataset, n int, err error) {
	var n1 int
	var role int
	role, n, err = varint.Int.Unmarshal(bs)
	if err != nil {
		return d, n, err
	}
	d.Role = core.Role(role)
	d.Path, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return d, n, err
	}
	var hasSchema bool
	hasSchema, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return d, n, err
	}
	if hasSchema {
		var sc core.Schema
		sc, n1, err = SchemaMUS.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return d, n, err
		}
		d.Schema = &sc
	}
	d.Examples, n1, err = examplesSer.Unmarshal(bs[n:])
	n += n1
	return d, n, err
}

func (datasetMUS) Size(d core.Dataset) (n int) {
	n = varint.Int.Size(int(d.Role))
	n += ord.String.Size(d.Path)
	n += ord.Bool.Size(d.Schema != nil)
	if d.Schema != nil {
		n += SchemaMUS.Size(*d.Schema)
	}
	n += examplesSer.Size(d.Examples)
	return n
}

func (s datasetMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

type vocabularyMUS struct{}

func (vocabularyMUS) Marshal(v core.Vocabulary, bs []byte) (n int) {
	return stringsSer.Marshal(v.Tokens, bs)
}

func (vocabularyMUS) Unmarshal(bs []byte) (v core.Vocabulary, n int, err error) {
	v.Tokens, n, err = stringsSer.Unmarshal(bs)
	return v, n, err
}

func (vocabularyMUS) Size(v core.Vocabulary) (n int) {
	return stringsSer.Size(v.Tokens)
}

func (s vocabularyMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

type embeddingsMUS struct{}

func (embeddingsMUS) Marshal(t core.EmbeddingTable, bs []byte) (n int) {
	n = varint.Int.Marshal(t.Dims, bs)
	n += vectorsSer.Marshal(t.Vectors, bs[n:])
	n += stringsSer.Marshal(t.Unresolved, bs[n:])
	return n
}

func (embeddingsMUS) Unmarshal(bs []byte) (t core.EmbeddingTable, n int, err error) {
	var n1 int
	t.Dims, n, err = varint.Int.Unmarshal(bs)
	if err != nil {
		return t, n, err
	}
	t.Vectors, n1, err = vectorsSer.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return t, n, err
	}
	t.Unresolved, n1, err = stringsSer.Unmarshal(bs[n:])
	n += n1
	return t, n, err
}

func (embeddingsMUS) Size(t core.EmbeddingTable) (n int) {
	n = varint.Int.Size(t.Dims)
	n += vectorsSer.Size(t.Vectors)
	n += stringsSer.Size(t.Unresolved)
	return n
}

func (s embeddingsMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

type frequenciesMUS struct{}

func (frequenciesMUS) Marshal(f core.Frequencies, bs []byte) (n int) {
	return countsSer.Marshal(f.Counts, bs)
}

func (frequenciesMUS) Unmarshal(bs []byte) (f core.Frequencies, n int, err error) {
	f.Counts, n, err = countsSer.Unmarshal(bs)
	return f, n, err
}

func (frequenciesMUS) Size(f core.Frequencies) (n int) {
	return countsSer.Size(f.Counts)
}

func (s frequenciesMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

type fingerprintMUS struct{}

func (fingerprintMUS) Marshal(fp Fingerprint, bs []byte) (n int) {
	n = stringsSer.Marshal(fp.Entries, bs)
	n += ord.String.Marshal(fp.Digest, bs[n:])
	return n
}

func (fingerprintMUS) Unmarshal(bs []byte) (fp Fingerprint, n int, err error) {
	var n1 int
	fp.Entries, n, err = stringsSer.Unmarshal(bs)
	if err != nil {
		return fp, n, err
	}
	fp.Digest, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return fp, n, err
}

func (fingerprintMUS) Size(fp Fingerprint) (n int) {
	n = stringsSer.Size(fp.Entries)
	n += ord.String.Size(fp.Digest)
	return n
}

func (s fingerprintMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

type bundleMUS struct{}

func (bundleMUS) Marshal(b Bundle, bs []byte) (n int) {
	n = FingerprintMUS.Marshal(b.Fingerprint, bs)
	n += marshalDatasetPtr(b.Train, bs[n:])
	n += marshalDatasetPtr(b.Validation, bs[n:])
	n += marshalDatasetPtr(b.Test, bs[n:])

	hasVocab := b.Vocabulary != nil
	n += ord.Bool.Marshal(hasVocab, bs[n:])
	if hasVocab {
		n += VocabularyMUS.Marshal(*b.Vocabulary, bs[n:])
	}

	hasEmb := b.Embeddings != nil
	n += ord.Bool.Marshal(hasEmb, bs[n:])
	if hasEmb {
		n += EmbeddingsMUS.Marshal(*b.Embeddings, bs[n:])
	}

	hasFreq := b.Frequencies != nil
	n += ord.Bool.Marshal(hasFreq, bs[n:])
	if hasFreq {
		n += FrequenciesMUS.Marshal(*b.Frequencies, bs[n:])
	}
	return n
}

func (bundleMUS) Unmarshal(bs []byte) (b Bundle, n int, err error) {
	var n1 int
	b.Fingerprint, n, err = FingerprintMUS.Unmarshal(bs)
	if err != nil {
		return b, n, err
	}
	b.Train, n1, err = unmarshalDatasetPtr(bs[n:])
	n += n1
	if err != nil {
		return b, n, err
	}
	b.Validation, n1, err = unmarshalDatasetPtr(bs[n:])
	n += n1
	if err != nil {
		return b, n, err
	}
	b.Test, n1, err = unmarshalDatasetPtr(bs[n:])
	n += n1
	if err != nil {
		return b, n, err
	}

	var has bool
	has, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return b, n, err
	}
	if has {
		var v core.Vocabulary
		v, n1, err = VocabularyMUS.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return b, n, err
		}
		b.Vocabulary = &v
	}

	has, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return b, n, err
	}
	if has {
		var t core.EmbeddingTable
		t, n1, err = EmbeddingsMUS.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return b, n, err
		}
		b.Embeddings = &t
	}

	has, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return b, n, err
	}
	if has {
		var f core.Frequencies
		f, n1, err = FrequenciesMUS.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return b, n, err
		}
		b.Frequencies = &f
	}
	return b, n, nil
}

func (bundleMUS) Size(b Bundle) (n int) {
	n = FingerprintMUS.Size(b.Fingerprint)
	n += sizeDatasetPtr(b.Train)
	n += sizeDatasetPtr(b.Validation)
	n += sizeDatasetPtr(b.Test)
	n += ord.Bool.Size(b.Vocabulary != nil)
	if b.Vocabulary != nil {
		n += VocabularyMUS.Size(*b.Vocabulary)
	}
	n += ord.Bool.Size(b.Embeddings != nil)
	if b.Embeddings != nil {
		n += EmbeddingsMUS.Size(*b.Embeddings)
	}
	n += ord.Bool.Size(b.Frequencies != nil)
	if b.Frequencies != nil {
		n += FrequenciesMUS.Size(*b.Frequencies)
	}
	return n
}

func (s bundleMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return n, err
}

func marshalDatasetPtr(d *core.Dataset, bs []byte) (n int) {
	n = ord.Bool.Marshal(d != nil, bs)
	if d != nil {
		n += DatasetMUS.Marshal(*d, bs[n:])
	}
	return n
}

func unmarshalDatasetPtr(bs []byte) (d *core.Dataset, n int, err error) {
	var has bool
	has, n, err = ord.Bool.Unmarshal(bs)
	if err != nil || !has {
		return nil, n, err
	}
	var ds core.Dataset
	var n1 int
	ds, n1, err = DatasetMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return nil, n, err
	}
	return &ds, n, nil
}

func sizeDatasetPtr(d *core.Dataset) (n int) {
	n = ord.Bool.Size(d != nil)
	if d != nil {
		n += DatasetMUS.Size(*d)
	}
	return n
}
