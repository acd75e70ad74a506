package badgerstore_test

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vfscore/engine/pkg/bytestore"
	"github.com/vfscore/engine/pkg/snapshot"
	"github.com/vfscore/engine/pkg/snapshot/badgerstore"
)

func openTestStore(t *testing.T) *badgerstore.Store {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "snapshots")
	store, err := badgerstore.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBadgerStoreSaveLoadDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	ref, err := store.Save(ctx, "file-1", strings.NewReader("snapshot body"))
	require.NoError(t, err)
	require.Equal(t, "file-1", ref.Key)

	rc, err := store.Load(ctx, ref)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, "snapshot body", string(data))

	require.NoError(t, store.Delete(ctx, ref))
	_, err = store.Load(ctx, ref)
	require.Error(t, err)
}

func TestBadgerStoreLoadMissingKeyFails(t *testing.T) {
	store := openTestStore(t)
	_, err := store.Load(context.Background(), snapshot.SnapshotRef{Key: "does-not-exist"})
	require.Error(t, err)
}

func TestSaveLoadByteStoreRoundTripThroughBadger(t *testing.T) {
	backend := openTestStore(t)
	ctx := context.Background()

	original := bytestore.New(8, 4)
	_, err := original.WriteAt(0, []byte("hello"))
	require.NoError(t, err)
	_, err = original.WriteAt(20, []byte("world"))
	require.NoError(t, err)

	snap, err := snapshot.SaveByteStore(ctx, backend, "file-1", original)
	require.NoError(t, err)
	require.Equal(t, "file-1", snap.Body.Key)
	require.Equal(t, "file-1.meta", snap.Meta.Key)

	restored, sidecar, err := snapshot.LoadByteStore(ctx, backend, snap, 4)
	require.NoError(t, err)
	require.Equal(t, "file-1", sidecar.ID)
	require.Equal(t, original.Size(), sidecar.Size)
	require.Equal(t, original.Size(), restored.Size())

	dst := make([]byte, original.Size())
	_, err = restored.ReadAt(0, dst)
	require.NoError(t, err)
	orig := make([]byte, original.Size())
	_, err = original.ReadAt(0, orig)
	require.NoError(t, err)
	require.Equal(t, orig, dst)

	require.NoError(t, snapshot.DeleteSnapshot(ctx, backend, snap))
	_, err = backend.Load(ctx, snap.Body)
	require.Error(t, err)
	_, err = backend.Load(ctx, snap.Meta)
	require.Error(t, err)
}
