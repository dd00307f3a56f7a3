package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/mansoorceksport/gymdesk/internal/domain"
)

type firestoreRoutine struct {
	Name       string                              `firestore:"name"`
	Discipline string                              `firestore:"discipline"`
	Days       map[string][]domain.RoutineExercise `firestore:"days"`
	CreatedAt  time.Time                           `firestore:"created_at,serverTimestamp"`
	UpdatedAt  time.Time                           `firestore:"updated_at,serverTimestamp"`
}

func decodeFirestoreRoutine(doc *firestore.DocumentSnapshot) (*domain.Routine, error) {
	var fr firestoreRoutine
	if err := doc.DataTo(&fr); err != nil {
		return nil, fmt.Errorf("decode routine %s: %w", doc.Ref.ID, err)
	}
	return &domain.Routine{
		ID:         doc.Ref.ID,
		Name:       fr.Name,
		Discipline: domain.Discipline(fr.Discipline),
		Days:       loadedDays(fr.Days),
		CreatedAt:  fr.CreatedAt,
		UpdatedAt:  fr.UpdatedAt,
	}, nil
}

// FirestoreRoutineRepository implements domain.RoutineRepository on Cloud Firestore
type FirestoreRoutineRepository struct {
	collection *firestore.CollectionRef
}

func NewFirestoreRoutineRepository(client *firestore.Client) *FirestoreRoutineRepository {
	return &FirestoreRoutineRepository{collection: client.Collection("routines")}
}

func (r *FirestoreRoutineRepository) byName() firestore.Query {
	return r.collection.OrderBy("name", firestore.Asc)
}

func (r *FirestoreRoutineRepository) List(ctx context.Context) ([]*domain.Routine, error) {
	routines, err := decodeDocuments(r.byName().Documents(ctx), decodeFirestoreRoutine)
	if err != nil {
		return nil, fmt.Errorf("failed to list routines: %w", err)
	}
	return routines, nil
}

func (r *FirestoreRoutineRepository) GetByID(ctx context.Context, id string) (*domain.Routine, error) {
	doc, err := r.collection.Doc(id).Get(ctx)
	if err != nil {
		if isFirestoreNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get routine: %w", err)
	}
	return decodeFirestoreRoutine(doc)
}

func (r *FirestoreRoutineRepository) Create(ctx context.Context, routine *domain.Routine) error {
	ref, wr, err := r.collection.Add(ctx, firestoreRoutine{
		Name:       routine.Name,
		Discipline: string(routine.Discipline),
		Days:       storedDays(routine.Days),
	})
	if err != nil {
		return fmt.Errorf("failed to create routine: %w", err)
	}
	routine.ID = ref.ID
	routine.CreatedAt = wr.UpdateTime
	routine.UpdatedAt = wr.UpdateTime
	return nil
}

func (r *FirestoreRoutineRepository) Replace(ctx context.Context, routine *domain.Routine) error {
	wr, err := r.collection.Doc(routine.ID).Update(ctx, []firestore.Update{
		{Path: "name", Value: routine.Name},
		{Path: "discipline", Value: string(routine.Discipline)},
		{Path: "days", Value: storedDays(routine.Days)},
		{Path: "updated_at", Value: firestore.ServerTimestamp},
	})
	if err != nil {
		if isFirestoreNotFound(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to replace routine: %w", err)
	}
	routine.UpdatedAt = wr.UpdateTime
	return nil
}

func (r *FirestoreRoutineRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.collection.Doc(id).Delete(ctx, firestore.Exists); err != nil {
		if isFirestoreNotFound(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to delete routine: %w", err)
	}
	return nil
}

func (r *FirestoreRoutineRepository) Watch(ctx context.Context) (*domain.Feed[*domain.Routine], error) {
	return watchQuery(ctx, r.byName(), decodeFirestoreRoutine), nil
}
