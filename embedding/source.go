package embedding

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidSourceSpec indicates an unparseable embedding source string.
	ErrInvalidSourceSpec = errors.New("invalid embedding source spec")
)

// Source supplies vectors for a requested token set. The returned map holds
// an entry for every token the source has a vector for; requested tokens
// absent from the source are simply missing from the map.
//
// Implementations must be safe for use behind the Cache, which serializes
// calls, and should honor ctx cancellation during long parses or network
// calls.
type Source interface {
	// ID identifies the source for cache keying. Two sources with equal
	// IDs must resolve identically.
	ID() string

	Resolve(ctx context.Context, tokens []string) (map[string][]float32, error)
}

// Materializer is implemented by sources whose full table can be enumerated
// once, such as on-disk vector files. The Cache materializes such sources
// wholesale into its disk layer on first use instead of re-parsing the
// distribution per lookup.
type Materializer interface {
	Materialize(ctx context.Context, emit func(token string, vector []float32) error) error
}

// Open constructs a built-in source from its configuration string.
func Open(spec string) (Source, error) {
	scheme, rest, ok := strings.Cut(spec, ":")
	if !ok {
		return nil, fmt.Errorf("%w: %q has no scheme", ErrInvalidSourceSpec, spec)
	}

	switch scheme {
	case "hash":
		dims, err := strconv.Atoi(rest)
		if err != nil || dims <= 0 {
			return nil, fmt.Errorf("%w: hash source needs positive dims, got %q", ErrInvalidSourceSpec, rest)
		}
		return NewHashSource(dims), nil
	case "file":
		if rest == "" {
			return nil, fmt.Errorf("%w: file source needs a path", ErrInvalidSourceSpec)
		}
		return NewFileSource(rest), nil
	case "api":
		model, host, ok := strings.Cut(rest, "@")
		if !ok || model == "" || host == "" {
			return nil, fmt.Errorf("%w: api source must be api:<model>@<host>, got %q", ErrInvalidSourceSpec, spec)
		}
		return NewAPISource(model, host)
	default:
		return nil, fmt.Errorf("%w: unknown scheme %q", ErrInvalidSourceSpec, scheme)
	}
}
