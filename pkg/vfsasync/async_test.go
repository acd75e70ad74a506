package vfsasync_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vfscore/engine/pkg/bytestore"
	"github.com/vfscore/engine/pkg/vfsasync"
	"github.com/vfscore/engine/pkg/vfscore"
)

func newAsyncChannel(t *testing.T, mode vfscore.Mode) *vfsasync.AsyncChannel {
	t.Helper()
	store := bytestore.New(64, 4)
	file := vfscore.NewRegularFile(store, vfscore.NewBasicAttrs())
	ch, err := vfscore.NewChannel(file, mode, vfscore.NewRegistry(0), nil)
	require.NoError(t, err)
	return vfsasync.NewAsyncChannel(ch, vfsasync.NewExecutor(4))
}

func TestAsyncChannelWriteThenReadRoundTrip(t *testing.T) {
	ac := newAsyncChannel(t, vfscore.ModeRead|vfscore.ModeWrite)
	ctx := context.Background()

	wf := ac.Write(ctx, []byte("hello"))
	n, err := wf.Result()
	require.NoError(t, err)
	require.EqualValues(t, 5, n)

	rf := ac.ReadAt(ctx, make([]byte, 5), 0)
	n, err = rf.Result()
	require.NoError(t, err)
	require.EqualValues(t, 5, n)
}

func TestAsyncChannelCancelBeforeStartSkipsExecution(t *testing.T) {
	exec := vfsasync.NewExecutor(1)

	// Occupy the sole worker slot so the next submission cannot start.
	blocker := make(chan struct{})
	blockerStarted := make(chan struct{})
	blockingFuture := exec.Submit(context.Background(), func() (int64, error) {
		close(blockerStarted)
		<-blocker
		return 0, nil
	})
	<-blockerStarted

	store := bytestore.New(64, 4)
	file := vfscore.NewRegularFile(store, vfscore.NewBasicAttrs())
	ch, err := vfscore.NewChannel(file, vfscore.ModeRead|vfscore.ModeWrite, nil, nil)
	require.NoError(t, err)
	ac := vfsasync.NewAsyncChannel(ch, exec)

	f := ac.Write(context.Background(), []byte("x"))
	f.Cancel()

	close(blocker)
	_, _ = blockingFuture.Result()

	select {
	case <-f.Done():
		n, err := f.Result()
		require.EqualValues(t, 0, n)
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("cancelled future never completed")
	}
}

func TestAsyncChannelSubmitAfterContextCancelled(t *testing.T) {
	ac := newAsyncChannel(t, vfscore.ModeRead)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := ac.Read(ctx, make([]byte, 1))
	_, err := f.Result()
	require.ErrorIs(t, err, context.Canceled)
}
