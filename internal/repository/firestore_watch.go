package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/mansoorceksport/gymdesk/internal/domain"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// watchQuery turns the realtime listener of q into a snapshot feed. Listener
// errors are terminal: the error is delivered once and the feed closes.
func watchQuery[T any](parent context.Context, q firestore.Query, decode func(*firestore.DocumentSnapshot) (T, error)) *domain.Feed[T] {
	ctx, cancel := context.WithCancel(parent)
	it := q.Snapshots(ctx)
	events := make(chan domain.Snapshot[T], 1)

	go func() {
		defer close(events)
		defer it.Stop()

		for {
			qs, err := it.Next()
			if ctx.Err() != nil || status.Code(err) == codes.Canceled || err == iterator.Done {
				return
			}

			var snap domain.Snapshot[T]
			if err != nil {
				snap.Err = domain.LoadError("watch", err)
			} else {
				snap.Items, snap.Err = decodeDocuments(qs.Documents, decode)
			}

			select {
			case events <- snap:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	return domain.NewFeed(events, cancel)
}

func decodeDocuments[T any](iter *firestore.DocumentIterator, decode func(*firestore.DocumentSnapshot) (T, error)) ([]T, error) {
	defer iter.Stop()

	items := make([]T, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			return items, nil
		}
		if err != nil {
			return nil, err
		}
		item, err := decode(doc)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
}

func isFirestoreNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}
