// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMapPositionalAlignment(t *testing.T) {
	items := []int{10, 20, 30, 40, 50}

	results := Map(context.Background(), 3, items, func(_ context.Context, n int) (int, error) {
		return n * 2, nil
	})

	require.Len(t, results, len(items))
	for i, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, items[i]*2, r.Value)
	}
}

func TestMapFaultIsolation(t *testing.T) {
	items := []int{1, 2, 3, 4}
	boom := errors.New("boom")

	results := Map(context.Background(), 2, items, func(_ context.Context, n int) (string, error) {
		if n == 2 {
			return "", boom
		}
		if n == 3 {
			panic("worker panic")
		}
		return fmt.Sprintf("ok-%d", n), nil
	})

	require.Len(t, results, 4)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, "ok-1", results[0].Value)
	assert.ErrorIs(t, results[1].Err, boom)
	assert.ErrorContains(t, results[2].Err, "panic")
	assert.NoError(t, results[3].Err)
	assert.Equal(t, "ok-4", results[3].Value)
}

func TestMapRespectsLimit(t *testing.T) {
	var inFlight, peak int32
	items := make([]int, 20)

	Map(context.Background(), 3, items, func(_ context.Context, _ int) (struct{}, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return struct{}{}, nil
	})

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	assert.Greater(t, atomic.LoadInt32(&peak), int32(0))
}

func TestMapCancellationStopsNewItems(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var started int32
	var once sync.Once
	items := make([]int, 10)

	results := Map(ctx, 1, items, func(ctx context.Context, _ int) (struct{}, error) {
		atomic.AddInt32(&started, 1)
		once.Do(cancel)
		return struct{}{}, ctx.Err()
	})

	// Item 0 runs; items queued after cancellation never call fn.
	assert.Equal(t, int32(1), atomic.LoadInt32(&started))
	for i := 1; i < len(results); i++ {
		assert.ErrorIs(t, results[i].Err, context.Canceled)
	}
}

// Running the same items with limit 1 and limit >1 must produce identical
// positional results, differing only in wall-clock time.
func TestMapIdempotentAcrossLimits(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8}
	fn := func(_ context.Context, n int) (int, error) {
		if n%3 == 0 {
			return 0, fmt.Errorf("item %d failed", n)
		}
		return n * n, nil
	}

	serial := Map(context.Background(), 1, items, fn)
	parallel := Map(context.Background(), 4, items, fn)

	require.Len(t, parallel, len(serial))
	for i := range serial {
		assert.Equal(t, serial[i].Value, parallel[i].Value, "slot %d", i)
		if serial[i].Err != nil {
			assert.EqualError(t, parallel[i].Err, serial[i].Err.Error())
		} else {
			assert.NoError(t, parallel[i].Err)
		}
	}
}

func TestValues(t *testing.T) {
	results := []Result[int]{
		{Value: 1},
		{Err: errors.New("skip")},
		{Value: 3},
	}
	assert.Equal(t, []int{1, 3}, Values(results))
}
