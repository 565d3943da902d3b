// Package watch implements the observer side of the local store: a
// subscriber receives the current snapshot as soon as it subscribes and a
// fresh snapshot after every write to the underlying table.
package watch

import (
	"context"
	"errors"
	"sync"
)

// LoadFunc produces one snapshot. It must read everything it returns in a
// single query so the snapshot is consistent.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// Hub fans snapshots out to subscribers. Delivery is latest-wins: a slow
// subscriber skips intermediate snapshots but never misses the newest one.
type Hub[T any] struct {
	mu   sync.Mutex
	next uint64
	subs map[uint64]*subscription[T]

	// loading is held from load to offer so a later write's snapshot is
	// never overtaken by an earlier one.
	loading sync.Mutex
}

func NewHub[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[uint64]*subscription[T])}
}

type subscription[T any] struct {
	load LoadFunc[T]

	mu     sync.Mutex
	ch     chan T
	closed bool
}

// Subscribe loads the first snapshot and registers load for later writes.
// The returned channel is closed once ctx is done.
func (h *Hub[T]) Subscribe(ctx context.Context, load LoadFunc[T]) (<-chan T, error) {
	h.loading.Lock()
	first, err := load(ctx)
	if err != nil {
		h.loading.Unlock()
		return nil, err
	}

	s := &subscription[T]{load: load, ch: make(chan T, 1)}
	s.ch <- first

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = s
	h.mu.Unlock()
	h.loading.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
		s.close()
	}()

	return s.ch, nil
}

// Notify reloads every subscriber's snapshot and delivers it. Subscribers
// whose load fails keep their previous snapshot; the errors are returned
// joined.
func (h *Hub[T]) Notify(ctx context.Context) error {
	h.loading.Lock()
	defer h.loading.Unlock()

	h.mu.Lock()
	subs := make([]*subscription[T], 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	var errs []error
	for _, s := range subs {
		v, err := s.load(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		s.offer(v)
	}
	return errors.Join(errs...)
}

// Len returns the number of live subscribers.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (s *subscription[T]) offer(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- v
}

func (s *subscription[T]) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
