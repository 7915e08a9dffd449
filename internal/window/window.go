// Package window holds time-bounded sample history.
package window

import (
	"time"
)

// Window is an append-only sequence ordered by time and bounded both by
// retention (relative to the newest entry) and by capacity. Eviction is
// oldest first. A Window is not safe for concurrent use.
type Window[T any] struct {
	retention time.Duration
	capacity  int
	stamp     func(T) time.Time
	items     []T
}

// New returns a Window. A zero retention or capacity disables that bound.
func New[T any](retention time.Duration, capacity int, stamp func(T) time.Time) *Window[T] {
	return &Window[T]{
		retention: retention,
		capacity:  capacity,
		stamp:     stamp,
	}
}

// Push appends v and evicts entries that exceed either bound.
func (w *Window[T]) Push(v T) {
	w.items = append(w.items, v)
	w.evict(w.stamp(v))
}

func (w *Window[T]) evict(newest time.Time) {
	drop := 0
	if w.retention > 0 {
		cutoff := newest.Add(-w.retention)
		for drop < len(w.items) && w.stamp(w.items[drop]).Before(cutoff) {
			drop++
		}
	}
	if w.capacity > 0 && len(w.items)-drop > w.capacity {
		drop = len(w.items) - w.capacity
	}
	if drop == 0 {
		return
	}
	// Copy down so the backing array does not grow without bound.
	n := copy(w.items, w.items[drop:])
	clear(w.items[n:])
	w.items = w.items[:n]
}

// Len returns the number of retained entries.
func (w *Window[T]) Len() int {
	return len(w.items)
}

// Snapshot returns a copy of the window, oldest first.
func (w *Window[T]) Snapshot() []T {
	out := make([]T, len(w.items))
	copy(out, w.items)
	return out
}

// Since returns a copy of the entries stamped at or after cutoff.
func (w *Window[T]) Since(cutoff time.Time) []T {
	out := make([]T, 0, len(w.items))
	for _, v := range w.items {
		if !w.stamp(v).Before(cutoff) {
			out = append(out, v)
		}
	}
	return out
}

// Each calls fn for every entry, oldest first.
func (w *Window[T]) Each(fn func(T)) {
	for _, v := range w.items {
		fn(v)
	}
}

// Retention returns the configured retention.
func (w *Window[T]) Retention() time.Duration {
	return w.retention
}

// Capacity returns the configured capacity.
func (w *Window[T]) Capacity() int {
	return w.capacity
}
