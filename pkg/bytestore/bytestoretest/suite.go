// Package bytestoretest provides a reusable conformance suite for any
// byte-storage engine matching the semantics of pkg/bytestore.Store:
// a NewStore factory plus a Run method fanning out to sub-tests.
package bytestoretest

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vfscore/engine/pkg/bytestore"
)

// Suite runs the core read/write/vectored/transfer/truncate properties of a byte
// store against any store produced by NewStore. Each sub-test gets a
// fresh store.
type Suite struct {
	NewStore func() *bytestore.Store
}

func (s *Suite) Run(t *testing.T) {
	t.Run("RoundTrip", s.testRoundTrip)
	t.Run("SparseZeroFill", s.testSparseZeroFill)
	t.Run("Truncate", s.testTruncate)
	t.Run("VectoredWriteRead", s.testVectored)
	t.Run("TransferToFrom", s.testTransfer)
	t.Run("TruncateNeverGrows", s.testTruncateNeverGrows)
}

func (s *Suite) testRoundTrip(t *testing.T) {
	store := s.NewStore()
	data := []byte{0x41, 0x42, 0x43}

	n, err := store.WriteAt(0, data)
	require.NoError(t, err)
	require.EqualValues(t, len(data), n)
	require.EqualValues(t, len(data), store.Size())

	dst := make([]byte, len(data))
	n, err = store.ReadAt(0, dst)
	require.NoError(t, err)
	require.EqualValues(t, len(data), n)
	require.Equal(t, data, dst)

	n, err = store.ReadAt(int64(len(data)), dst)
	require.NoError(t, err)
	require.EqualValues(t, -1, n)
}

func (s *Suite) testSparseZeroFill(t *testing.T) {
	store := s.NewStore()

	n, err := store.WriteAt(5, []byte{0xFF})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	require.EqualValues(t, 6, store.Size())

	dst := make([]byte, 6)
	n, err = store.ReadAt(0, dst)
	require.NoError(t, err)
	require.EqualValues(t, 6, n)
	require.Equal(t, []byte{0, 0, 0, 0, 0, 0xFF}, dst)
}

func (s *Suite) testTruncate(t *testing.T) {
	store := s.NewStore()
	_, err := store.WriteAt(0, bytes.Repeat([]byte{1}, 10))
	require.NoError(t, err)

	require.NoError(t, store.Truncate(4))
	require.EqualValues(t, 4, store.Size())

	dst := make([]byte, 1)
	n, err := store.ReadAt(4, dst)
	require.NoError(t, err)
	require.EqualValues(t, -1, n)
}

func (s *Suite) testVectored(t *testing.T) {
	store := s.NewStore()
	srcs := [][]byte{{1, 2}, {3, 4, 5}}

	n, err := store.WriteAtVectored(0, srcs)
	require.NoError(t, err)
	require.EqualValues(t, 5, n)

	dsts := [][]byte{make([]byte, 2), make([]byte, 3)}
	n, err = store.ReadAtVectored(0, dsts)
	require.NoError(t, err)
	require.EqualValues(t, 5, n)
	require.Equal(t, []byte{1, 2}, dsts[0])
	require.Equal(t, []byte{3, 4, 5}, dsts[1])
}

func (s *Suite) testTransfer(t *testing.T) {
	store := s.NewStore()
	_, err := store.WriteAt(0, []byte("hello world"))
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := store.TransferTo(0, 5, &buf)
	require.NoError(t, err)
	require.EqualValues(t, 5, n)
	require.Equal(t, "hello", buf.String())

	n, err = store.TransferFrom(bytes.NewReader([]byte("XYZ")), 6, 3)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	dst := make([]byte, 11)
	_, err = store.ReadAt(0, dst)
	require.NoError(t, err)
	require.Equal(t, "hello XYZld", string(dst))
}

func (s *Suite) testTruncateNeverGrows(t *testing.T) {
	store := s.NewStore()
	_, err := store.WriteAt(0, []byte{1, 2, 3})
	require.NoError(t, err)

	require.NoError(t, store.Truncate(100))
	require.EqualValues(t, 3, store.Size())
}
