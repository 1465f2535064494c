package embedding

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// FileSource reads a word-vector distribution in the common text format:
// one token per line followed by its vector components, whitespace
// separated. A fastText-style "<count> <dims>" first line is skipped. The
// file is only ever parsed in full by Materialize; the Cache's disk layer
// makes that a once-per-source cost.
type FileSource struct {
	path string
}

// NewFileSource creates a source backed by the vector file at path. The
// file is not opened until resolution; a missing or corrupt file surfaces
// then.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// ID implements Source.
func (f *FileSource) ID() string {
	return "file:" + f.path
}

// Resolve implements Source by scanning the distribution for the requested
// tokens only.
func (f *FileSource) Resolve(ctx context.Context, tokens []string) (map[string][]float32, error) {
	want := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		want[tok] = struct{}{}
	}

	out := make(map[string][]float32, len(tokens))
	err := f.scan(ctx, func(token string, vec []float32) error {
		if _, ok := want[token]; ok {
			out[token] = vec
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Materialize implements Materializer by emitting the full table.
func (f *FileSource) Materialize(ctx context.Context, emit func(token string, vector []float32) error) error {
	return f.scan(ctx, emit)
}

func (f *FileSource) scan(ctx context.Context, emit func(token string, vector []float32) error) error {
	file, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("open distribution: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	dims := 0
	line := 0
	for scanner.Scan() {
		line++
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if line == 1 && isCountHeader(fields) {
			continue
		}
		if len(fields) < 2 {
			return fmt.Errorf("corrupt distribution: line %d has no vector", line)
		}

		vec := make([]float32, len(fields)-1)
		for i, raw := range fields[1:] {
			v, err := strconv.ParseFloat(raw, 32)
			if err != nil {
				return fmt.Errorf("corrupt distribution: line %d component %d: %w", line, i, err)
			}
			vec[i] = float32(v)
		}

		if dims == 0 {
			dims = len(vec)
		} else if len(vec) != dims {
			return fmt.Errorf("corrupt distribution: line %d has %d dims, expected %d", line, len(vec), dims)
		}

		if err := emit(fields[0], vec); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// isCountHeader recognizes the fastText "<count> <dims>" preamble.
func isCountHeader(fields []string) bool {
	if len(fields) != 2 {
		return false
	}
	for _, f := range fields {
		if _, err := strconv.Atoi(f); err != nil {
			return false
		}
	}
	return true
}
