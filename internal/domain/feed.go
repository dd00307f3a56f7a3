package domain

import "sync"

// Snapshot is one full-collection event pushed by a Feed. A snapshot replaces
// whatever the consumer held before; there is no incremental diff.
type Snapshot[T any] struct {
	Items []T
	Err   error
}

// Feed is a cancellable stream of snapshots for a collection
type Feed[T any] struct {
	events <-chan Snapshot[T]
	cancel func()
	once   sync.Once
}

// NewFeed wraps an event channel and the teardown that stops its producer.
// The producer must close events once it observes the teardown.
func NewFeed[T any](events <-chan Snapshot[T], cancel func()) *Feed[T] {
	return &Feed[T]{events: events, cancel: cancel}
}

// Events returns the snapshot channel. It is closed after Cancel.
func (f *Feed[T]) Events() <-chan Snapshot[T] {
	return f.events
}

// Cancel stops the feed. Safe to call more than once; teardown runs exactly once.
func (f *Feed[T]) Cancel() {
	f.once.Do(func() {
		if f.cancel != nil {
			f.cancel()
		}
	})
}
