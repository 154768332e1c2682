package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrComputeCachesSuccess(t *testing.T) {
	c := New[string](8, time.Minute)
	computes := 0

	v, hit, err := c.GetOrCompute(context.Background(), "k", func(context.Context) (string, error) {
		computes++
		return "result", nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "result", v)

	v, hit, err = c.GetOrCompute(context.Background(), "k", func(context.Context) (string, error) {
		computes++
		return "should not run", nil
	})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "result", v)
	assert.Equal(t, 1, computes)
}

func TestGetOrComputeNeverCachesFailure(t *testing.T) {
	c := New[string](8, time.Minute)
	computes := 0

	_, _, err := c.GetOrCompute(context.Background(), "k", func(context.Context) (string, error) {
		computes++
		return "", errors.New("transient")
	})
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())

	// the next call retries instead of replaying the failure
	v, hit, err := c.GetOrCompute(context.Background(), "k", func(context.Context) (string, error) {
		computes++
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "recovered", v)
	assert.Equal(t, 2, computes)
}

func TestGetOrComputeCollapsesConcurrentCallers(t *testing.T) {
	c := New[string](8, time.Minute)
	var computes atomic.Int32
	release := make(chan struct{})

	const callers = 16
	var wg sync.WaitGroup
	hits := make([]bool, callers)
	values := make([]string, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, hit, err := c.GetOrCompute(context.Background(), "shared", func(context.Context) (string, error) {
				computes.Add(1)
				<-release
				return "once", nil
			})
			require.NoError(t, err)
			values[i], hits[i] = v, hit
		}(i)
	}

	// let all goroutines pile onto the flight before releasing it
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), computes.Load(), "exactly one computation for N concurrent callers")
	fresh := 0
	for i := range values {
		assert.Equal(t, "once", values[i])
		if !hits[i] {
			fresh++
		}
	}
	// singleflight marks shared results for leader and waiters alike
	assert.LessOrEqual(t, fresh, 1)
}

func TestGetOrComputeSurvivesCallerCancellation(t *testing.T) {
	c := New[string](8, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// compute runs detached, so a dead caller context does not poison the flight
	v, _, err := c.GetOrCompute(ctx, "k", func(ctx context.Context) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
			return "alive", nil
		}
	})
	require.NoError(t, err)
	assert.Equal(t, "alive", v)
}

func TestCacheEvictsAtCapacity(t *testing.T) {
	c := New[int](2, time.Minute)
	for i, k := range []string{"a", "b", "c"} {
		_, _, err := c.GetOrCompute(context.Background(), k, func(context.Context) (int, error) {
			return i, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, c.Len())

	// "a" was evicted, so it recomputes
	_, hit, err := c.GetOrCompute(context.Background(), "a", func(context.Context) (int, error) {
		return 99, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestPurge(t *testing.T) {
	c := New[int](8, time.Minute)
	_, _, err := c.GetOrCompute(context.Background(), "k", func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())
	c.Purge()
	assert.Equal(t, 0, c.Len())
}
