package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/mansoorceksport/gymdesk/internal/domain"
)

type firestoreExercise struct {
	Name      string    `firestore:"name"`
	Reps      string    `firestore:"reps,omitempty"`
	Weight    string    `firestore:"weight,omitempty"`
	Duration  string    `firestore:"duration,omitempty"`
	Rest      string    `firestore:"rest,omitempty"`
	CreatedAt time.Time `firestore:"created_at,serverTimestamp"`
}

func decodeFirestoreExercise(doc *firestore.DocumentSnapshot) (*domain.Exercise, error) {
	var fe firestoreExercise
	if err := doc.DataTo(&fe); err != nil {
		return nil, fmt.Errorf("decode exercise %s: %w", doc.Ref.ID, err)
	}
	return &domain.Exercise{
		ID:        doc.Ref.ID,
		Name:      fe.Name,
		Reps:      fe.Reps,
		Weight:    fe.Weight,
		Duration:  fe.Duration,
		Rest:      fe.Rest,
		CreatedAt: fe.CreatedAt,
	}, nil
}

// FirestoreExerciseRepository implements domain.ExerciseRepository on Cloud Firestore
type FirestoreExerciseRepository struct {
	collection *firestore.CollectionRef
}

func NewFirestoreExerciseRepository(client *firestore.Client) *FirestoreExerciseRepository {
	return &FirestoreExerciseRepository{collection: client.Collection("exercises")}
}

func (r *FirestoreExerciseRepository) byName() firestore.Query {
	return r.collection.OrderBy("name", firestore.Asc)
}

func (r *FirestoreExerciseRepository) List(ctx context.Context) ([]*domain.Exercise, error) {
	exercises, err := decodeDocuments(r.byName().Documents(ctx), decodeFirestoreExercise)
	if err != nil {
		return nil, fmt.Errorf("failed to list exercises: %w", err)
	}
	return exercises, nil
}

func (r *FirestoreExerciseRepository) Create(ctx context.Context, ex *domain.Exercise) error {
	ref, wr, err := r.collection.Add(ctx, firestoreExercise{
		Name:     ex.Name,
		Reps:     ex.Reps,
		Weight:   ex.Weight,
		Duration: ex.Duration,
		Rest:     ex.Rest,
	})
	if err != nil {
		return fmt.Errorf("failed to create exercise: %w", err)
	}
	ex.ID = ref.ID
	ex.CreatedAt = wr.UpdateTime
	return nil
}

func (r *FirestoreExerciseRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.collection.Doc(id).Delete(ctx, firestore.Exists); err != nil {
		if isFirestoreNotFound(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to delete exercise: %w", err)
	}
	return nil
}

func (r *FirestoreExerciseRepository) Watch(ctx context.Context) (*domain.Feed[*domain.Exercise], error) {
	return watchQuery(ctx, r.byName(), decodeFirestoreExercise), nil
}
