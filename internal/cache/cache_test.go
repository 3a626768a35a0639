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

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type memRemote struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memRemote) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memRemote) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func TestGet_CachesUntilTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)}
	c := New[int](WithClock(clock.Now))
	calls := 0
	compute := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	v, err := c.Get(context.Background(), "k", time.Hour, compute)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, _ = c.Get(context.Background(), "k", time.Hour, compute)
	assert.Equal(t, 1, v)

	clock.Advance(time.Hour)
	v, _ = c.Get(context.Background(), "k", time.Hour, compute)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, calls)
}

func TestGet_ErrorNotCached(t *testing.T) {
	c := New[string]()
	boom := errors.New("boom")
	_, err := c.Get(context.Background(), "k", time.Hour, func(context.Context) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	v, err := c.Get(context.Background(), "k", time.Hour, func(context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestGet_SingleFlight(t *testing.T) {
	c := New[int]()
	var calls int32
	release := make(chan struct{})
	compute := func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _ := c.Get(context.Background(), "k", time.Minute, compute)
			results[i] = v
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, v := range results {
		assert.Equal(t, 42, v)
	}
}

func TestGet_RemoteTier(t *testing.T) {
	remote := &memRemote{data: map[string][]byte{}}
	first := New[[]float64](WithRemote(remote))
	_, err := first.Get(context.Background(), "series", time.Hour, func(context.Context) ([]float64, error) {
		return []float64{1, 2, 3}, nil
	})
	require.NoError(t, err)

	second := New[[]float64](WithRemote(remote))
	v, err := second.Get(context.Background(), "series", time.Hour, func(context.Context) ([]float64, error) {
		t.Fatal("compute should not run when the remote tier has the key")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, v)
}

func TestInvalidate(t *testing.T) {
	c := New[int]()
	n := 0
	compute := func(context.Context) (int, error) { n++; return n, nil }
	_, _ = c.Get(context.Background(), "k", time.Hour, compute)
	c.Invalidate("k")
	v, _ := c.Get(context.Background(), "k", time.Hour, compute)
	assert.Equal(t, 2, v)
}
