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

// memberDocument is the stored shape of a member. Subscription dates are kept
// as UTC-midnight timestamps so they sort and compare natively.
type memberDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	FirstName  string             `bson:"first_name"`
	LastName   string             `bson:"last_name"`
	NationalID string             `bson:"national_id"`
	Discipline string             `bson:"discipline"`
	StartDate  time.Time          `bson:"start_date,omitempty"`
	EndDate    time.Time          `bson:"end_date,omitempty"`
	CreatedAt  time.Time          `bson:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at,omitempty"`
}

func toMemberDocument(m *domain.Member) (*memberDocument, error) {
	start, err := domain.DateToStorage(m.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := domain.DateToStorage(m.EndDate)
	if err != nil {
		return nil, err
	}
	return &memberDocument{
		FirstName:  m.FirstName,
		LastName:   m.LastName,
		NationalID: m.NationalID,
		Discipline: string(m.Discipline),
		StartDate:  start,
		EndDate:    end,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}, nil
}

func (d *memberDocument) toDomain() *domain.Member {
	return &domain.Member{
		ID:         d.ID.Hex(),
		FirstName:  d.FirstName,
		LastName:   d.LastName,
		NationalID: d.NationalID,
		Discipline: domain.Discipline(d.Discipline),
		StartDate:  domain.DateFromStorage(d.StartDate),
		EndDate:    domain.DateFromStorage(d.EndDate),
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

// MongoMemberRepository implements domain.MemberRepository
type MongoMemberRepository struct {
	collection *mongo.Collection
}

func NewMongoMemberRepository(db *mongo.Database) *MongoMemberRepository {
	coll := db.Collection("members")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// national_id is not unique; the index only serves lookups
	coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "national_id", Value: 1}}},
		{Keys: bson.D{{Key: "end_date", Value: 1}}},
	})

	return &MongoMemberRepository{collection: coll}
}

func (r *MongoMemberRepository) List(ctx context.Context) ([]*domain.Member, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer cursor.Close(ctx)

	members := make([]*domain.Member, 0)
	for cursor.Next(ctx) {
		var doc memberDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode member: %w", err)
		}
		members = append(members, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

func (r *MongoMemberRepository) Create(ctx context.Context, member *domain.Member) error {
	member.CreatedAt = time.Now().UTC()
	member.UpdatedAt = member.CreatedAt

	doc, err := toMemberDocument(member)
	if err != nil {
		return err
	}
	doc.ID = primitive.NewObjectID()

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create member: %w", err)
	}
	member.ID = doc.ID.Hex()
	return nil
}

func (r *MongoMemberRepository) Replace(ctx context.Context, member *domain.Member) error {
	objID, err := primitive.ObjectIDFromHex(member.ID)
	if err != nil {
		return domain.ErrInvalidID
	}

	doc, err := toMemberDocument(member)
	if err != nil {
		return err
	}
	doc.ID = objID

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": objID}, doc)
	if err != nil {
		return fmt.Errorf("failed to replace member: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MongoMemberRepository) Delete(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrInvalidID
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
