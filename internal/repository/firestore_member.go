package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/mansoorceksport/gymdesk/internal/domain"
)

type firestoreMember struct {
	FirstName  string    `firestore:"first_name"`
	LastName   string    `firestore:"last_name"`
	NationalID string    `firestore:"national_id"`
	Discipline string    `firestore:"discipline"`
	StartDate  time.Time `firestore:"start_date,omitempty"`
	EndDate    time.Time `firestore:"end_date,omitempty"`
	CreatedAt  time.Time `firestore:"created_at,serverTimestamp"`
	UpdatedAt  time.Time `firestore:"updated_at,omitempty"`
}

func decodeFirestoreMember(doc *firestore.DocumentSnapshot) (*domain.Member, error) {
	var fm firestoreMember
	if err := doc.DataTo(&fm); err != nil {
		return nil, fmt.Errorf("decode member %s: %w", doc.Ref.ID, err)
	}
	return &domain.Member{
		ID:         doc.Ref.ID,
		FirstName:  fm.FirstName,
		LastName:   fm.LastName,
		NationalID: fm.NationalID,
		Discipline: domain.Discipline(fm.Discipline),
		StartDate:  domain.DateFromStorage(fm.StartDate),
		EndDate:    domain.DateFromStorage(fm.EndDate),
		CreatedAt:  fm.CreatedAt,
		UpdatedAt:  fm.UpdatedAt,
	}, nil
}

// storageDateValue maps an empty date to a field deletion
func storageDateValue(s string) (interface{}, error) {
	if s == "" {
		return firestore.Delete, nil
	}
	return domain.DateToStorage(s)
}

// FirestoreMemberRepository implements domain.MemberRepository on Cloud Firestore
type FirestoreMemberRepository struct {
	collection *firestore.CollectionRef
}

func NewFirestoreMemberRepository(client *firestore.Client) *FirestoreMemberRepository {
	return &FirestoreMemberRepository{collection: client.Collection("members")}
}

// List returns the members in document order
func (r *FirestoreMemberRepository) List(ctx context.Context) ([]*domain.Member, error) {
	members, err := decodeDocuments(r.collection.Documents(ctx), decodeFirestoreMember)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

func (r *FirestoreMemberRepository) Create(ctx context.Context, member *domain.Member) error {
	start, err := domain.DateToStorage(member.StartDate)
	if err != nil {
		return err
	}
	end, err := domain.DateToStorage(member.EndDate)
	if err != nil {
		return err
	}

	ref, wr, err := r.collection.Add(ctx, firestoreMember{
		FirstName:  member.FirstName,
		LastName:   member.LastName,
		NationalID: member.NationalID,
		Discipline: string(member.Discipline),
		StartDate:  start,
		EndDate:    end,
	})
	if err != nil {
		return fmt.Errorf("failed to create member: %w", err)
	}

	member.ID = ref.ID
	member.CreatedAt = wr.UpdateTime
	member.UpdatedAt = time.Time{}
	return nil
}

// Replace rewrites every member field. A missing document is ErrNotFound.
func (r *FirestoreMemberRepository) Replace(ctx context.Context, member *domain.Member) error {
	start, err := storageDateValue(member.StartDate)
	if err != nil {
		return err
	}
	end, err := storageDateValue(member.EndDate)
	if err != nil {
		return err
	}

	_, err = r.collection.Doc(member.ID).Update(ctx, []firestore.Update{
		{Path: "first_name", Value: member.FirstName},
		{Path: "last_name", Value: member.LastName},
		{Path: "national_id", Value: member.NationalID},
		{Path: "discipline", Value: string(member.Discipline)},
		{Path: "start_date", Value: start},
		{Path: "end_date", Value: end},
		{Path: "updated_at", Value: member.UpdatedAt},
	})
	if err != nil {
		if isFirestoreNotFound(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to replace member: %w", err)
	}
	return nil
}

func (r *FirestoreMemberRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.collection.Doc(id).Delete(ctx, firestore.Exists); err != nil {
		if isFirestoreNotFound(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to delete member: %w", err)
	}
	return nil
}
