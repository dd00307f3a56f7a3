package repository

import (
	"context"
	"log"
	"reflect"
	"time"

	"github.com/mansoorceksport/gymdesk/internal/domain"
	"go.mongodb.org/mongo-driver/mongo"
)

// watchCollection pushes a full snapshot of coll, produced by load, once on
// start and again after every change. It uses a change stream when the server
// supports one (replica sets) and otherwise polls every interval, emitting only
// when the snapshot differs from the previous one.
func watchCollection[T any](parent context.Context, coll *mongo.Collection, interval time.Duration, load func(context.Context) ([]T, error)) *domain.Feed[T] {
	ctx, cancel := context.WithCancel(parent)
	events := make(chan domain.Snapshot[T], 1)

	go func() {
		defer close(events)

		var last []T
		emit := func(onlyChanges bool) bool {
			items, err := load(ctx)
			if ctx.Err() != nil {
				return false
			}
			if err != nil {
				err = domain.LoadError("watch "+coll.Name(), err)
			} else if onlyChanges && reflect.DeepEqual(items, last) {
				return true
			} else {
				last = items
			}
			select {
			case events <- domain.Snapshot[T]{Items: items, Err: err}:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit(false) {
			return
		}

		stream, err := coll.Watch(ctx, mongo.Pipeline{})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Change stream on %s unavailable, polling every %s: %v", coll.Name(), interval, err)
			pollCollection(ctx, interval, emit)
			return
		}
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			if !emit(false) {
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
		log.Printf("Change stream on %s closed, polling every %s: %v", coll.Name(), interval, stream.Err())
		pollCollection(ctx, interval, emit)
	}()

	return domain.NewFeed(events, cancel)
}

func pollCollection(ctx context.Context, interval time.Duration, emit func(onlyChanges bool) bool) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !emit(true) {
				return
			}
		}
	}
}
