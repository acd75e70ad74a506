package snapshot_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vfscore/engine/pkg/bytestore"
	"github.com/vfscore/engine/pkg/snapshot"
)

func TestEncodeDecodeByteStoreRoundTrip(t *testing.T) {
	store := bytestore.New(8, 4)
	_, err := store.WriteAt(0, []byte("hello"))
	require.NoError(t, err)
	_, err = store.WriteAt(20, []byte("world"))
	require.NoError(t, err)

	data, err := snapshot.EncodeByteStore(store)
	require.NoError(t, err)

	restored, err := snapshot.DecodeByteStore(data, 4)
	require.NoError(t, err)
	require.Equal(t, store.Size(), restored.Size())

	dst := make([]byte, store.Size())
	n, err := restored.ReadAt(0, dst)
	require.NoError(t, err)
	require.EqualValues(t, store.Size(), n)

	orig := make([]byte, store.Size())
	_, err = store.ReadAt(0, orig)
	require.NoError(t, err)
	require.Equal(t, orig, dst)
}

func TestEncodeDecodeEmptyStore(t *testing.T) {
	store := bytestore.New(8, 4)
	data, err := snapshot.EncodeByteStore(store)
	require.NoError(t, err)

	restored, err := snapshot.DecodeByteStore(data, 4)
	require.NoError(t, err)
	require.EqualValues(t, 0, restored.Size())
}

func TestSidecarRoundTrip(t *testing.T) {
	s := snapshot.Sidecar{
		ID:        "file-1",
		PageSize:  8192,
		Size:      42,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	data, err := snapshot.MarshalSidecar(s)
	require.NoError(t, err)

	back, err := snapshot.UnmarshalSidecar(data)
	require.NoError(t, err)
	require.Equal(t, s.ID, back.ID)
	require.Equal(t, s.Size, back.Size)
	require.True(t, s.CreatedAt.Equal(back.CreatedAt))
}
