package photoapi

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Copubah/dirty-nairobi/internal/domain"
)

type fakeLister struct {
	mu      sync.Mutex
	calls   int
	filters []Filter
	results [][]domain.Report
	errs    []error
}

func (f *fakeLister) ListPhotos(_ context.Context, filter Filter) ([]domain.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	f.filters = append(f.filters, filter)
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return nil, err
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return []domain.Report{}, nil
}

func (f *fakeLister) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestPoller_FirstFetchIsImmediate(t *testing.T) {
	clock := clockwork.NewFakeClock()
	lister := &fakeLister{results: [][]domain.Report{{{ID: "a"}}}}
	p := NewPoller(lister, Filter{Limit: 100}, 30*time.Second, clock)

	snap, err := p.Next(context.Background())
	require.NoError(t, err)

	assert.Equal(t, SourceName, p.Name())
	assert.Equal(t, SourceName, snap.Source)
	assert.Equal(t, "1", snap.Revision)
	assert.Equal(t, clock.Now(), snap.FetchedAt)
	require.Len(t, snap.Reports, 1)
	assert.Equal(t, Filter{Limit: 100}, lister.filters[0])
}

func TestPoller_WaitsForInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	lister := &fakeLister{}
	p := NewPoller(lister, Filter{}, 30*time.Second, clock)

	_, err := p.Next(context.Background())
	require.NoError(t, err)

	done := make(chan domain.ReportSnapshot, 1)
	go func() {
		snap, _ := p.Next(context.Background())
		done <- snap
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Equal(t, 1, lister.callCount(), "no fetch before the interval elapses")

	clock.Advance(30 * time.Second)

	select {
	case snap := <-done:
		assert.Equal(t, "2", snap.Revision)
	case <-time.After(time.Second):
		t.Fatal("poll did not fire after the interval")
	}
	assert.Equal(t, 2, lister.callCount())
}

func TestPoller_RetriesImmediatelyAfterError(t *testing.T) {
	clock := clockwork.NewFakeClock()
	lister := &fakeLister{errs: []error{nil, errors.New("503"), nil}}
	p := NewPoller(lister, Filter{}, time.Minute, clock)

	_, err := p.Next(context.Background())
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, err := p.Next(context.Background())
		errc <- err
	}()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Minute)
	require.Error(t, <-errc)

	snap, err := p.Next(context.Background())
	require.NoError(t, err, "retry does not wait for the interval")
	assert.Equal(t, "2", snap.Revision)
	assert.Equal(t, 3, lister.callCount())
}

func TestPoller_ContextCancelledWhileWaiting(t *testing.T) {
	p := NewPoller(&fakeLister{}, Filter{}, time.Hour, clockwork.NewFakeClock())
	_, err := p.Next(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
