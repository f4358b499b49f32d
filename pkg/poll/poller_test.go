package poll

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func nextUpdate[T any](t *testing.T, sub *Subscription[T]) Snapshot[T] {
	t.Helper()
	select {
	case s, ok := <-sub.Updates():
		require.True(t, ok, "updates channel closed")
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
	}
	return Snapshot[T]{}
}

func TestPoller_SharedLoopAndTeardown(t *testing.T) {
	defer goleak.VerifyNone(t)

	var calls atomic.Int32
	p := New(func(ctx context.Context, key string) (int, error) {
		return int(calls.Add(1)), nil
	}, Options{Name: "test", Interval: 10 * time.Millisecond})

	a := p.Subscribe("runs")
	b := p.Subscribe("runs")

	sa := nextUpdate(t, a)
	require.True(t, sa.HasValue)
	require.Equal(t, "runs", sa.Key)
	nextUpdate(t, b)

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	a.Close()
	a.Close()
	// b keeps the loop alive
	before := calls.Load()
	require.Eventually(t, func() bool { return calls.Load() > before }, 2*time.Second, 5*time.Millisecond)

	b.Close()
	stopped := calls.Load()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, stopped, calls.Load())
}

func TestPoller_ErrorKeepsLastValueAndLoopRunning(t *testing.T) {
	defer goleak.VerifyNone(t)

	var mu sync.Mutex
	value, failing := "good", false
	p := New(func(ctx context.Context, key string) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if failing {
			return "", errors.New("engine unavailable")
		}
		return value, nil
	}, Options{Interval: 5 * time.Millisecond})
	defer p.Close()

	sub := p.Subscribe("artifacts")
	defer sub.Close()

	require.Eventually(t, func() bool {
		s := sub.Latest()
		return s.Err == nil && s.Value == "good"
	}, 2*time.Second, 2*time.Millisecond)

	mu.Lock()
	failing = true
	mu.Unlock()

	var failed Snapshot[string]
	require.Eventually(t, func() bool {
		failed = sub.Latest()
		return failed.Err != nil
	}, 2*time.Second, 2*time.Millisecond)
	require.True(t, failed.HasValue)
	require.Equal(t, "good", failed.Value)

	mu.Lock()
	value, failing = "better", false
	mu.Unlock()

	require.Eventually(t, func() bool {
		s := sub.Latest()
		return s.Err == nil && s.Value == "better"
	}, 2*time.Second, 2*time.Millisecond)
}

func TestPoller_RefreshCoalesces(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	var calls atomic.Int32
	p := New(func(ctx context.Context, key string) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}, Options{Interval: time.Hour})

	var wg sync.WaitGroup
	results := make([]int, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := p.Refresh(context.Background(), "graph")
			if err == nil {
				results[i] = s.Value
			}
		}(i)
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	// give the other callers time to join the in-flight fetch
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.Equal(t, int32(1), calls.Load())
	require.Equal(t, []int{42, 42, 42, 42, 42}, results)
}

func TestPoller_CanceledCallerLeavesSharedFetchRunning(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	var calls atomic.Int32
	p := New(func(ctx context.Context, key string) (int, error) {
		calls.Add(1)
		select {
		case <-release:
			return 7, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}, Options{Interval: time.Hour})
	defer p.Close()

	sub := p.Subscribe("runs")
	defer sub.Close()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := p.Refresh(ctx, "runs")
		errc <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	require.ErrorIs(t, <-errc, context.Canceled)

	close(release)
	s := nextUpdate(t, sub)
	require.NoError(t, s.Err)
	require.Equal(t, 7, s.Value)
	require.Equal(t, int32(1), calls.Load())
}

func TestPoller_FetchTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := New(func(ctx context.Context, key string) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}, Options{Interval: time.Hour, Timeout: 20 * time.Millisecond})
	defer p.Close()

	s, err := p.Refresh(context.Background(), "runs")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, s.HasValue)
}

func TestPoller_RefreshReportsFetchError(t *testing.T) {
	p := New(func(ctx context.Context, key string) (int, error) {
		return 0, errors.New("boom")
	}, Options{Interval: time.Hour})

	s, err := p.Refresh(context.Background(), "x")
	require.Error(t, err)
	require.False(t, s.HasValue)
}

func TestPoller_StaleResultDiscarded(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := New(func(ctx context.Context, key string) (int, error) {
		return 1, nil
	}, Options{Interval: time.Hour})
	sub := p.Subscribe("k")
	nextUpdate(t, sub)

	newer := p.apply(Snapshot[int]{Key: "k", Value: 9, HasValue: true, Seq: 100})
	require.Equal(t, 9, newer.Value)

	older := p.apply(Snapshot[int]{Key: "k", Value: 5, HasValue: true, Seq: 50})
	require.Equal(t, 9, older.Value)
	require.Equal(t, 9, sub.Latest().Value)
	require.Equal(t, 9, nextUpdate(t, sub).Value)

	sub.Close()
	_, ok := <-sub.Updates()
	require.False(t, ok)
}

func TestPoller_CloseDetachesSubscriptions(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := New(func(ctx context.Context, key string) (int, error) {
		return 1, nil
	}, Options{Interval: 5 * time.Millisecond})
	sub := p.Subscribe("k")
	nextUpdate(t, sub)
	p.Close()
	sub.Close()
}
