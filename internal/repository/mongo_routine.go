package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mansoorceksport/gymdesk/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type routineDocument struct {
	ID         primitive.ObjectID                  `bson:"_id,omitempty"`
	Name       string                              `bson:"name"`
	Discipline string                              `bson:"discipline"`
	Days       map[string][]domain.RoutineExercise `bson:"days"`
	CreatedAt  time.Time                           `bson:"created_at"`
	UpdatedAt  time.Time                           `bson:"updated_at"`
}

// storedDays flattens the weekday map to string keys, always writing all five days
func storedDays(days map[domain.Weekday][]domain.RoutineExercise) map[string][]domain.RoutineExercise {
	out := make(map[string][]domain.RoutineExercise, len(domain.Weekdays))
	for d, exs := range domain.NormalizeDays(days) {
		out[string(d)] = exs
	}
	return out
}

func loadedDays(days map[string][]domain.RoutineExercise) map[domain.Weekday][]domain.RoutineExercise {
	in := make(map[domain.Weekday][]domain.RoutineExercise, len(days))
	for k, exs := range days {
		in[domain.Weekday(k)] = exs
	}
	return domain.NormalizeDays(in)
}

func (d *routineDocument) toDomain() *domain.Routine {
	return &domain.Routine{
		ID:         d.ID.Hex(),
		Name:       d.Name,
		Discipline: domain.Discipline(d.Discipline),
		Days:       loadedDays(d.Days),
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

// MongoRoutineRepository implements domain.RoutineRepository
type MongoRoutineRepository struct {
	collection   *mongo.Collection
	pollInterval time.Duration
}

func NewMongoRoutineRepository(db *mongo.Database, pollInterval time.Duration) *MongoRoutineRepository {
	coll := db.Collection("routines")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}},
		{Keys: bson.D{{Key: "discipline", Value: 1}}},
	})

	return &MongoRoutineRepository{
		collection:   coll,
		pollInterval: pollInterval,
	}
}

func (r *MongoRoutineRepository) List(ctx context.Context) ([]*domain.Routine, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list routines: %w", err)
	}
	defer cursor.Close(ctx)

	routines := make([]*domain.Routine, 0)
	for cursor.Next(ctx) {
		var doc routineDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode routine: %w", err)
		}
		routines = append(routines, doc.toDomain())
	}
	return routines, cursor.Err()
}

func (r *MongoRoutineRepository) GetByID(ctx context.Context, id string) (*domain.Routine, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	var doc routineDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get routine: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *MongoRoutineRepository) Create(ctx context.Context, routine *domain.Routine) error {
	now := time.Now().UTC()
	doc := routineDocument{
		ID:         primitive.NewObjectID(),
		Name:       routine.Name,
		Discipline: string(routine.Discipline),
		Days:       storedDays(routine.Days),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create routine: %w", err)
	}

	routine.ID = doc.ID.Hex()
	routine.CreatedAt = now
	routine.UpdatedAt = now
	return nil
}

// Replace overwrites name, discipline and days. created_at is preserved.
func (r *MongoRoutineRepository) Replace(ctx context.Context, routine *domain.Routine) error {
	objID, err := primitive.ObjectIDFromHex(routine.ID)
	if err != nil {
		return domain.ErrInvalidID
	}

	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"name":       routine.Name,
			"discipline": string(routine.Discipline),
			"days":       storedDays(routine.Days),
			"updated_at": now,
		},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	if err != nil {
		return fmt.Errorf("failed to replace routine: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	routine.UpdatedAt = now
	return nil
}

func (r *MongoRoutineRepository) Delete(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrInvalidID
	}
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return fmt.Errorf("failed to delete routine: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Watch streams every routine sorted by name
func (r *MongoRoutineRepository) Watch(ctx context.Context) (*domain.Feed[*domain.Routine], error) {
	return watchCollection(ctx, r.collection, r.pollInterval, r.List), nil
}
