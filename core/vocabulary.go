package core

// Sentinel tokens occupying the two reserved vocabulary indices. They are
// never resolved against an embedding source.
const (
	UnknownToken = "<unk>"
	PaddingToken = "<pad>"

	UnknownIndex = 0
	PaddingIndex = 1
)

// Vocabulary maps tokens to dense integer indices. Indices 0 and 1 are
// reserved for the unknown and padding sentinels. A vocabulary is built once
// per processing call and shared read-only afterwards.
type Vocabulary struct {
	// Tokens lists every token in index order, sentinels included.
	Tokens []string

	index map[string]int
}

// NewVocabulary returns a vocabulary containing only the reserved sentinels.
func NewVocabulary() *Vocabulary {
	v := &Vocabulary{Tokens: []string{UnknownToken, PaddingToken}}
	v.buildIndex()
	return v
}

func (v *Vocabulary) buildIndex() {
	v.index = make(map[string]int, len(v.Tokens))
	for i, tok := range v.Tokens {
		v.index[tok] = i
	}
}

func (v *Vocabulary) ensureIndex() {
	if v.index == nil {
		v.buildIndex()
	}
}

// Add inserts token if absent and returns its index.
func (v *Vocabulary) Add(token string) int {
	v.ensureIndex()
	if i, ok := v.index[token]; ok {
		return i
	}
	i := len(v.Tokens)
	v.Tokens = append(v.Tokens, token)
	v.index[token] = i
	return i
}

// Index returns the index of token and whether it is present.
func (v *Vocabulary) Index(token string) (int, bool) {
	v.ensureIndex()
	i, ok := v.index[token]
	return i, ok
}

// Contains reports whether token is in the vocabulary.
func (v *Vocabulary) Contains(token string) bool {
	_, ok := v.Index(token)
	return ok
}

// Size returns the number of entries, sentinels included.
func (v *Vocabulary) Size() int {
	return len(v.Tokens)
}

// Words returns the non-sentinel tokens in index order.
func (v *Vocabulary) Words() []string {
	if len(v.Tokens) <= 2 {
		return nil
	}
	return v.Tokens[2:]
}

// EmbeddingTable maps vocabulary indices to fixed-length vectors. It may be
// a strict subset of the vocabulary: tokens the embedding source had no
// vector for are listed in Unresolved and have no Vectors entry, so callers
// can tell "no embedding" apart from "zero embedding".
type EmbeddingTable struct {
	Dims       int
	Vectors    map[int][]float32
	Unresolved []string
}

// NewEmbeddingTable returns an empty table.
func NewEmbeddingTable() *EmbeddingTable {
	return &EmbeddingTable{Vectors: make(map[int][]float32)}
}

// Vector returns the vector stored for the vocabulary index, if any.
func (t *EmbeddingTable) Vector(index int) ([]float32, bool) {
	vec, ok := t.Vectors[index]
	return vec, ok
}
