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

type exerciseDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Reps      string             `bson:"reps,omitempty"`
	Weight    string             `bson:"weight,omitempty"`
	Duration  string             `bson:"duration,omitempty"`
	Rest      string             `bson:"rest,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (d *exerciseDocument) toDomain() *domain.Exercise {
	return &domain.Exercise{
		ID:        d.ID.Hex(),
		Name:      d.Name,
		Reps:      d.Reps,
		Weight:    d.Weight,
		Duration:  d.Duration,
		Rest:      d.Rest,
		CreatedAt: d.CreatedAt,
	}
}

// MongoExerciseRepository implements domain.ExerciseRepository
type MongoExerciseRepository struct {
	collection   *mongo.Collection
	pollInterval time.Duration
}

// NewMongoExerciseRepository creates the catalog repository. pollInterval is
// used by Watch when the server has no change streams.
func NewMongoExerciseRepository(db *mongo.Database, pollInterval time.Duration) *MongoExerciseRepository {
	coll := db.Collection("exercises")

	// Create Index
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "name", Value: 1}},
	})

	return &MongoExerciseRepository{
		collection:   coll,
		pollInterval: pollInterval,
	}
}

func (r *MongoExerciseRepository) List(ctx context.Context) ([]*domain.Exercise, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list exercises: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []exerciseDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode exercises: %w", err)
	}

	exercises := make([]*domain.Exercise, len(docs))
	for i := range docs {
		exercises[i] = docs[i].toDomain()
	}
	return exercises, nil
}

func (r *MongoExerciseRepository) Create(ctx context.Context, ex *domain.Exercise) error {
	ex.CreatedAt = time.Now().UTC()

	doc := exerciseDocument{
		ID:        primitive.NewObjectID(),
		Name:      ex.Name,
		Reps:      ex.Reps,
		Weight:    ex.Weight,
		Duration:  ex.Duration,
		Rest:      ex.Rest,
		CreatedAt: ex.CreatedAt,
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create exercise: %w", err)
	}
	ex.ID = doc.ID.Hex()
	return nil
}

func (r *MongoExerciseRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrInvalidID
	}
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete exercise: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Watch streams the catalog sorted by name
func (r *MongoExerciseRepository) Watch(ctx context.Context) (*domain.Feed[*domain.Exercise], error) {
	return watchCollection(ctx, r.collection, r.pollInterval, r.List), nil
}
