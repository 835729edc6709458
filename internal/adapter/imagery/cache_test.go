package imagery

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Copubah/dirty-nairobi/internal/observability"
)

// --- mock for cache tests ---

type countingChecker struct {
	calls  int
	answer bool
	err    error
}

func (m *countingChecker) Available(_ context.Context, _ string) (bool, error) {
	m.calls++
	return m.answer, m.err
}

// --- CachedChecker tests ---

func TestCachedChecker_CacheHit(t *testing.T) {
	inner := &countingChecker{answer: true}
	metrics := observability.NewMetricsForTesting()
	cached := NewCachedChecker(inner, 10, metrics)

	ok, err := cached.Available(context.Background(), "https://photos.test/1.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cached.Available(context.Background(), "https://photos.test/1.jpg")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ImageCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ImageCache.WithLabelValues("miss")), 0)
}

func TestCachedChecker_CachesBrokenAnswers(t *testing.T) {
	inner := &countingChecker{answer: false}
	cached := NewCachedChecker(inner, 10, observability.NewMetricsForTesting())

	for range 3 {
		ok, err := cached.Available(context.Background(), "https://photos.test/gone.jpg")
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, 1, inner.calls)
}

func TestCachedChecker_ErrorsAreNotCached(t *testing.T) {
	inner := &countingChecker{err: errors.New("timeout")}
	cached := NewCachedChecker(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.Available(context.Background(), "https://photos.test/1.jpg")
	require.Error(t, err)
	_, err = cached.Available(context.Background(), "https://photos.test/1.jpg")
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 0, cached.Len())
}

func TestCachedChecker_DifferentKeysMiss(t *testing.T) {
	inner := &countingChecker{answer: true}
	cached := NewCachedChecker(inner, 10, observability.NewMetricsForTesting())

	_, _ = cached.Available(context.Background(), "https://photos.test/1.jpg")
	_, _ = cached.Available(context.Background(), "https://photos.test/2.jpg")

	assert.Equal(t, 2, inner.calls)
}

// --- LRU cache unit tests ---

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache(3)

	c.put("a", true)
	c.put("b", false)

	value, ok := c.get("a")
	assert.True(t, ok)
	assert.True(t, value)

	value, ok = c.get("b")
	assert.True(t, ok)
	assert.False(t, value)

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", true)
	c.put("b", true)
	c.put("c", true) // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	_, ok = c.get("b")
	assert.True(t, ok)
	_, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.len())
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", true)
	c.put("b", true)

	c.get("a")

	c.put("c", true)

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")

	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", true)
	c.put("a", false)

	value, ok := c.get("a")
	assert.True(t, ok)
	assert.False(t, value)
	assert.Equal(t, 1, c.len())
}
