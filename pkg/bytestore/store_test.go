package bytestore_test

import (
	"testing"

	"github.com/vfscore/engine/pkg/bytestore"
	"github.com/vfscore/engine/pkg/bytestore/bytestoretest"
	"github.com/stretchr/testify/require"
)

func TestStoreConformance(t *testing.T) {
	suite := &bytestoretest.Suite{
		NewStore: func() *bytestore.Store {
			return bytestore.New(64, 4)
		},
	}
	suite.Run(t)
}

func TestStoreCopyIsIndependent(t *testing.T) {
	src := bytestore.New(bytestore.DefaultPageSize, 4)
	_, err := src.WriteAt(0, []byte("original"))
	require.NoError(t, err)

	dup := src.Copy()
	_, err = dup.WriteAt(0, []byte("mutated!"))
	require.NoError(t, err)

	dst := make([]byte, 8)
	_, err = src.ReadAt(0, dst)
	require.NoError(t, err)
	require.Equal(t, "original", string(dst))

	_, err = dup.ReadAt(0, dst)
	require.NoError(t, err)
	require.Equal(t, "mutated!", string(dst))
}

func TestStorePageBoundaryWrite(t *testing.T) {
	// Page size of 4 forces a write to straddle three pages.
	store := bytestore.New(4, 2)
	data := []byte("0123456789")

	n, err := store.WriteAt(2, data)
	require.NoError(t, err)
	require.EqualValues(t, len(data), n)

	dst := make([]byte, len(data))
	n, err = store.ReadAt(2, dst)
	require.NoError(t, err)
	require.EqualValues(t, len(data), n)
	require.Equal(t, data, dst)
}
