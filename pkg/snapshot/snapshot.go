// Package snapshot implements an opt-in export/import subsystem for
// deterministic reproductions: capturing one Byte Store's content to an
// external archive and, later, restoring it into a brand-new,
// independent Byte Store. Nothing in this package runs implicitly; the
// live core has no durability of its own.
package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/vfscore/engine/pkg/bytestore"
)

// SnapshotRef identifies one saved snapshot within a Store's backend.
// Its Key is opaque outside this package and its implementations: badger
// keys blobs by it directly, s3 uses it (with an optional prefix) as an
// object key.
type SnapshotRef struct {
	Key string
}

// Store is the backend contract every snapshot archive implements.
// Save assigns and returns the SnapshotRef; callers that need a specific
// key pass it as id and get it back unchanged (barring backend-specific
// prefixing).
type Store interface {
	Save(ctx context.Context, id string, body io.Reader) (SnapshotRef, error)
	Load(ctx context.Context, ref SnapshotRef) (io.ReadCloser, error)
	Delete(ctx context.Context, ref SnapshotRef) error
}

// Snapshot pairs an XDR-encoded byte-store body with its human-readable
// sidecar metadata. The two refs are always saved, loaded and deleted
// together; neither is meaningful to a caller on its own.
type Snapshot struct {
	Body SnapshotRef
	Meta SnapshotRef
}

const sidecarSuffix = ".meta"

// SaveByteStore encodes store and writes both the resulting body and a
// Sidecar describing it to backend under id (the sidecar under
// id+".meta").
func SaveByteStore(ctx context.Context, backend Store, id string, store *bytestore.Store) (Snapshot, error) {
	body, err := EncodeByteStore(store)
	if err != nil {
		return Snapshot{}, err
	}
	bodyRef, err := backend.Save(ctx, id, bytes.NewReader(body))
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: save body: %w", err)
	}

	sidecar, err := MarshalSidecar(Sidecar{
		ID:        id,
		PageSize:  store.PageSize(),
		Size:      store.Size(),
		CreatedAt: time.Now(),
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: marshal sidecar: %w", err)
	}
	metaRef, err := backend.Save(ctx, id+sidecarSuffix, bytes.NewReader(sidecar))
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: save sidecar: %w", err)
	}

	return Snapshot{Body: bodyRef, Meta: metaRef}, nil
}

// LoadByteStore reads snap's body and sidecar back from backend and
// reconstructs a brand-new, independent Store from the body.
func LoadByteStore(ctx context.Context, backend Store, snap Snapshot, poolBound int) (*bytestore.Store, Sidecar, error) {
	metaRC, err := backend.Load(ctx, snap.Meta)
	if err != nil {
		return nil, Sidecar{}, fmt.Errorf("snapshot: load sidecar: %w", err)
	}
	metaBytes, err := io.ReadAll(metaRC)
	_ = metaRC.Close()
	if err != nil {
		return nil, Sidecar{}, fmt.Errorf("snapshot: read sidecar: %w", err)
	}
	sidecar, err := UnmarshalSidecar(metaBytes)
	if err != nil {
		return nil, Sidecar{}, fmt.Errorf("snapshot: unmarshal sidecar: %w", err)
	}

	bodyRC, err := backend.Load(ctx, snap.Body)
	if err != nil {
		return nil, Sidecar{}, fmt.Errorf("snapshot: load body: %w", err)
	}
	body, err := io.ReadAll(bodyRC)
	_ = bodyRC.Close()
	if err != nil {
		return nil, Sidecar{}, fmt.Errorf("snapshot: read body: %w", err)
	}

	store, err := DecodeByteStore(body, poolBound)
	if err != nil {
		return nil, Sidecar{}, err
	}
	return store, sidecar, nil
}

// DeleteSnapshot removes both halves of snap from backend.
func DeleteSnapshot(ctx context.Context, backend Store, snap Snapshot) error {
	if err := backend.Delete(ctx, snap.Body); err != nil {
		return fmt.Errorf("snapshot: delete body: %w", err)
	}
	if err := backend.Delete(ctx, snap.Meta); err != nil {
		return fmt.Errorf("snapshot: delete sidecar: %w", err)
	}
	return nil
}
