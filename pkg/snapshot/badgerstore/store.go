// Package badgerstore is the local, process-local pkg/snapshot backend:
// snapshot blobs keyed by their SnapshotRef in an embedded Badger
// database, suited to deterministic test fixtures that never need to
// leave the machine running them.
package badgerstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/vfscore/engine/internal/telemetry/logger"
	"github.com/vfscore/engine/pkg/snapshot"
)

// Store is a Badger-backed snapshot.Store.
type Store struct {
	db *badger.DB
}

// Open opens (creating if necessary) a Badger database at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open %s: %w", path, err)
	}
	logger.Debug("badgerstore: opened snapshot database at %s", path)
	return &Store{db: db}, nil
}

// Close releases the underlying Badger database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Save(ctx context.Context, id string, body io.Reader) (snapshot.SnapshotRef, error) {
	if err := ctx.Err(); err != nil {
		return snapshot.SnapshotRef{}, err
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return snapshot.SnapshotRef{}, fmt.Errorf("badgerstore: read snapshot body: %w", err)
	}

	key := []byte(id)
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	}); err != nil {
		return snapshot.SnapshotRef{}, fmt.Errorf("badgerstore: save %s: %w", id, err)
	}

	return snapshot.SnapshotRef{Key: id}, nil
}

func (s *Store) Load(ctx context.Context, ref snapshot.SnapshotRef) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(ref.Key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("badgerstore: load %s: %w", ref.Key, err)
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Store) Delete(ctx context.Context, ref snapshot.SnapshotRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(ref.Key))
	}); err != nil {
		return fmt.Errorf("badgerstore: delete %s: %w", ref.Key, err)
	}
	return nil
}

var _ snapshot.Store = (*Store)(nil)
