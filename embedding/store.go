package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
)

var vectorSer = ord.NewSliceSer[float32](raw.Float32)

// diskStore is the on-disk raw-source cache layer: a BadgerDB keyed by
// source id and token. Badger's directory lock doubles as the exclusive
// write lock around first-time materialization of a source.
type diskStore struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// openStore opens the disk layer at dir, creating it if needed.
func openStore(dir string, logger *slog.Logger) (*diskStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &diskStore{db: db, logger: logger}, nil
}

func (s *diskStore) Close() error {
	return s.db.Close()
}

func vecKey(sourceID, token string) []byte {
	return []byte("vec:" + sourceID + ":" + token)
}

func readyKey(sourceID string) []byte {
	return []byte("rdy:" + sourceID)
}

// Get returns the cached vector for a token, if present.
func (s *diskStore) Get(sourceID, token string) (vec []float32, found bool, err error) {
	err = s.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get(vecKey(sourceID, token))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			var uerr error
			vec, _, uerr = vectorSer.Unmarshal(val)
			return uerr
		})
	})
	return vec, found, err
}

// PutBatch stores resolved vectors for a source.
func (s *diskStore) PutBatch(sourceID string, vectors map[string][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for token, vec := range vectors {
		if err := wb.Set(vecKey(sourceID, token), marshalVector(vec)); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// Ready reports whether the source's full table has been materialized.
func (s *diskStore) Ready(sourceID string) (ready bool, err error) {
	err = s.db.View(func(tx *badger.Txn) error {
		_, err := tx.Get(readyKey(sourceID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		ready = true
		return nil
	})
	return ready, err
}

// Materialize writes the source's full table followed by its ready marker.
// The marker goes last: a crash mid-write leaves no marker, and the next
// run materializes again instead of trusting a partial table.
func (s *diskStore) Materialize(ctx context.Context, sourceID string, mat Materializer) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	count := 0
	err := mat.Materialize(ctx, func(token string, vector []float32) error {
		count++
		return wb.Set(vecKey(sourceID, token), marshalVector(vector))
	})
	if err != nil {
		return err
	}

	if err := wb.Set(readyKey(sourceID), []byte{1}); err != nil {
		return err
	}
	if err := wb.Flush(); err != nil {
		return err
	}

	s.logger.Info("materialized embedding source", "source", sourceID, "vectors", count)
	return nil
}

func marshalVector(vec []float32) []byte {
	buf := make([]byte, vectorSer.Size(vec))
	vectorSer.Marshal(vec, buf)
	return buf
}
