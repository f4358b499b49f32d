package poll

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// FetchFunc loads the current value of one resource.
type FetchFunc[T any] func(ctx context.Context, key string) (T, error)

// Snapshot is the last known state of a resource. On a failed fetch Err is set
// and Value keeps the last good value.
type Snapshot[T any] struct {
	Key       string
	Value     T
	HasValue  bool
	Err       error
	FetchedAt time.Time
	Seq       uint64
}

type Options struct {
	// Name labels log lines, e.g. "artifacts".
	Name     string
	Interval time.Duration
	// Timeout bounds one shared fetch. It does not depend on any caller's ctx.
	Timeout  time.Duration
}

// Poller refreshes named resources on a fixed interval while at least one
// subscription observes them.
type Poller[T any] struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	fetch    FetchFunc[T]

	base context.Context
	stop context.CancelFunc

	seq   atomic.Uint64
	group singleflight.Group

	mu    sync.Mutex
	loops map[string]*loop[T]
}

func New[T any](fetch FetchFunc[T], opts Options) *Poller[T] {
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	base, stop := context.WithCancel(context.Background())
	return &Poller[T]{
		name:     opts.Name,
		interval: opts.Interval,
		timeout:  opts.Timeout,
		fetch:    fetch,
		base:     base,
		stop:     stop,
		loops:    map[string]*loop[T]{},
	}
}

type loop[T any] struct {
	key    string
	refs   int
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	latest  Snapshot[T]
	applied uint64
	subs    map[*Subscription[T]]struct{}
}

// Subscribe starts the refresh loop for key on first use and shares it with
// later subscribers.
func (p *Poller[T]) Subscribe(key string) *Subscription[T] {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.loops[key]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		l = &loop[T]{
			key:    key,
			cancel: cancel,
			done:   make(chan struct{}),
			subs:   map[*Subscription[T]]struct{}{},
		}
		p.loops[key] = l
		go p.run(ctx, l)
	}
	l.refs++

	sub := &Subscription[T]{p: p, l: l, ch: make(chan Snapshot[T], 1)}
	l.mu.Lock()
	l.subs[sub] = struct{}{}
	if l.latest.Seq > 0 {
		sub.ch <- l.latest
	}
	l.mu.Unlock()
	return sub
}

func (p *Poller[T]) run(ctx context.Context, l *loop[T]) {
	defer close(l.done)

	t := time.NewTicker(p.interval)
	defer t.Stop()

	for {
		_, _ = p.refresh(ctx, l.key)

		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// Refresh re-requests key now. Concurrent refreshes of the same key share one
// fetch. The result is also published to subscribers of key. Canceling ctx
// only stops the wait; the shared fetch runs on until it completes or times
// out.
func (p *Poller[T]) Refresh(ctx context.Context, key string) (Snapshot[T], error) {
	snap, err := p.refresh(ctx, key)
	if err != nil {
		return snap, err
	}
	return snap, snap.Err
}

func (p *Poller[T]) refresh(ctx context.Context, key string) (Snapshot[T], error) {
	ch := p.group.DoChan(key, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(p.base, p.timeout)
		defer cancel()

		seq := p.seq.Add(1)
		value, ferr := p.fetch(fctx, key)
		snap := Snapshot[T]{Key: key, FetchedAt: time.Now(), Seq: seq}
		if ferr != nil {
			snap.Err = ferr
			if p.base.Err() == nil {
				log.Warn().Err(ferr).Str("resource", p.name).Str("key", key).Msg("poll fetch failed")
			}
		} else {
			snap.Value = value
			snap.HasValue = true
		}
		return p.apply(snap), nil
	})

	select {
	case <-ctx.Done():
		return Snapshot[T]{}, errors.Wrap(ctx.Err(), "refresh")
	case r := <-ch:
		if r.Err != nil {
			return Snapshot[T]{}, errors.Wrap(r.Err, "refresh")
		}
		return r.Val.(Snapshot[T]), nil
	}
}

// apply publishes snap to the loop for its key, unless a newer fetch already
// landed. It returns the snapshot subscribers now see.
func (p *Poller[T]) apply(snap Snapshot[T]) Snapshot[T] {
	p.mu.Lock()
	l := p.loops[snap.Key]
	p.mu.Unlock()
	if l == nil {
		return snap
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if snap.Seq <= l.applied {
		return l.latest
	}
	if snap.Err != nil && l.latest.HasValue {
		snap.Value = l.latest.Value
		snap.HasValue = true
	}
	l.applied = snap.Seq
	l.latest = snap
	for sub := range l.subs {
		sub.offer(snap)
	}
	return snap
}

func (p *Poller[T]) release(sub *Subscription[T]) {
	l := sub.l

	p.mu.Lock()
	l.mu.Lock()
	if _, ok := l.subs[sub]; !ok {
		// already detached by Poller.Close
		l.mu.Unlock()
		p.mu.Unlock()
		return
	}
	delete(l.subs, sub)
	close(sub.ch)
	l.mu.Unlock()

	l.refs--
	last := l.refs == 0
	if last && p.loops[l.key] == l {
		delete(p.loops, l.key)
	}
	p.mu.Unlock()

	if last {
		l.cancel()
		<-l.done
	}
}

// Close stops every loop and cancels in-flight fetches. Outstanding
// subscriptions see their channels closed.
func (p *Poller[T]) Close() {
	p.stop()

	p.mu.Lock()
	loops := p.loops
	p.loops = map[string]*loop[T]{}
	p.mu.Unlock()

	for _, l := range loops {
		l.mu.Lock()
		for sub := range l.subs {
			delete(l.subs, sub)
			close(sub.ch)
		}
		l.mu.Unlock()
		l.cancel()
		<-l.done
	}
}

// Subscription observes one key. Updates delivers only the latest snapshot: an
// unread older one is replaced.
type Subscription[T any] struct {
	p      *Poller[T]
	l      *loop[T]
	ch     chan Snapshot[T]
	closed atomic.Bool
}

func (s *Subscription[T]) Key() string { return s.l.key }

func (s *Subscription[T]) Latest() Snapshot[T] {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	return s.l.latest
}

func (s *Subscription[T]) Updates() <-chan Snapshot[T] { return s.ch }

func (s *Subscription[T]) Close() {
	if s.closed.Swap(true) {
		return
	}
	s.p.release(s)
}

// offer is called with the loop lock held.
func (s *Subscription[T]) offer(snap Snapshot[T]) {
	select {
	case s.ch <- snap:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- snap:
	default:
	}
}
