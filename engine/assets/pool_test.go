package assets

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-assets/engine/assets/metadata"
)

func testMetadata(p string) metadata.AssetMetadata {
	return metadata.AssetMetadata{
		Handle:    metadata.NewAssetHandle(),
		Type:      metadata.DetermineAssetType(p),
		Path:      p,
		Name:      metadata.NameFromPath(p),
		LoadState: metadata.LoadStateLoading,
	}
}

func drainResults(t *testing.T, p *WorkerPool, want int) []LoadResult {
	t.Helper()
	var out []LoadResult
	deadline := time.Now().Add(5 * time.Second)
	for len(out) < want {
		out = append(out, p.DrainResults()...)
		if time.Now().After(deadline) {
			t.Fatalf("got %d load results, want %d", len(out), want)
		}
		time.Sleep(time.Millisecond)
	}
	return out
}

func TestWorkerPoolDecodesSubmittedTasks(t *testing.T) {
	p := NewWorkerPool(4, func(md metadata.AssetMetadata) (any, error) {
		return md.Path, nil
	}, nil)
	defer p.Shutdown()
	assert.Equal(t, 4, p.Workers())

	want := map[metadata.AssetHandle]string{}
	for _, path := range []string{"a.bin", "b.bin", "c.bin", "d.bin", "e.bin"} {
		md := testMetadata(path)
		want[md.Handle] = path
		require.NoError(t, p.Submit(md))
	}

	got := map[metadata.AssetHandle]string{}
	for _, res := range drainResults(t, p, len(want)) {
		require.NoError(t, res.Err)
		assert.Equal(t, metadata.AssetTypeBinary, res.Type)
		got[res.Handle] = res.Asset.(string)
	}
	assert.Equal(t, want, got)
	assert.Empty(t, p.DrainResults())
}

func TestWorkerPoolForwardsFailures(t *testing.T) {
	boom := errors.New("boom")
	p := NewWorkerPool(1, func(md metadata.AssetMetadata) (any, error) {
		if md.Path == "panic.bin" {
			panic("decoder exploded")
		}
		return nil, boom
	}, nil)
	defer p.Shutdown()

	failing := testMetadata("fail.bin")
	panicking := testMetadata("panic.bin")
	require.NoError(t, p.Submit(failing))
	require.NoError(t, p.Submit(panicking))

	results := drainResults(t, p, 2)
	byHandle := map[metadata.AssetHandle]LoadResult{}
	for _, res := range results {
		byHandle[res.Handle] = res
	}

	var decErr *DecodeError
	res := byHandle[failing.Handle]
	require.True(t, errors.As(res.Err, &decErr))
	assert.ErrorIs(t, res.Err, boom)
	assert.Equal(t, "fail.bin", decErr.Path)
	assert.Nil(t, res.Asset)

	res = byHandle[panicking.Handle]
	require.True(t, errors.As(res.Err, &decErr))
	assert.Contains(t, decErr.Error(), "decoder exploded")
	assert.Nil(t, res.Asset)

	// the worker survived the panic
	require.NoError(t, p.Submit(testMetadata("again.bin")))
	drainResults(t, p, 1)
}

func TestWorkerPoolPendingIsFIFO(t *testing.T) {
	gate := make(chan struct{})
	var started sync.WaitGroup
	started.Add(1)
	var once sync.Once
	p := NewWorkerPool(1, func(md metadata.AssetMetadata) (any, error) {
		once.Do(started.Done)
		<-gate
		return nil, nil
	}, nil)

	first := testMetadata("first.bin")
	second := testMetadata("second.bin")
	third := testMetadata("third.bin")
	require.NoError(t, p.Submit(first))
	started.Wait()
	require.NoError(t, p.Submit(second))
	require.NoError(t, p.Submit(third))

	assert.Equal(t, []metadata.AssetHandle{second.Handle, third.Handle}, p.Pending())

	close(gate)
	results := drainResults(t, p, 3)
	assert.Len(t, results, 3)
	assert.Empty(t, p.Pending())
	p.Shutdown()
}

func TestWorkerPoolShutdown(t *testing.T) {
	p := NewWorkerPool(2, func(md metadata.AssetMetadata) (any, error) {
		return nil, nil
	}, nil)

	p.Shutdown()
	p.Shutdown()
	assert.ErrorIs(t, p.Submit(testMetadata("late.bin")), ErrPoolClosed)
}

func TestWorkerPoolDefaultsToNumCPU(t *testing.T) {
	p := NewWorkerPool(0, func(md metadata.AssetMetadata) (any, error) { return nil, nil }, nil)
	defer p.Shutdown()
	assert.Greater(t, p.Workers(), 0)
}
