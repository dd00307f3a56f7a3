package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mansoorceksport/gymdesk/internal/domain"
	"github.com/mansoorceksport/gymdesk/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMemberRepo is an in-memory domain.MemberRepository with switchable failures
type fakeMemberRepo struct {
	mu       sync.Mutex
	members  []*domain.Member
	nextID   int
	failList error
	failAll  error
	block    chan struct{}
}

func (r *fakeMemberRepo) List(ctx context.Context) ([]*domain.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failList != nil {
		return nil, r.failList
	}
	out := make([]*domain.Member, len(r.members))
	for i, m := range r.members {
		out[i] = m.Clone()
	}
	return out, nil
}

func (r *fakeMemberRepo) Create(ctx context.Context, m *domain.Member) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return r.failAll
	}
	r.nextID++
	m.ID = fmt.Sprintf("m%d", r.nextID)
	m.CreatedAt = time.Now()
	r.members = append(r.members, m.Clone())
	return nil
}

func (r *fakeMemberRepo) Replace(ctx context.Context, m *domain.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return r.failAll
	}
	for i, existing := range r.members {
		if existing.ID == m.ID {
			r.members[i] = m.Clone()
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *fakeMemberRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll != nil {
		return r.failAll
	}
	for i, existing := range r.members {
		if existing.ID == id {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func newTestMembership(t *testing.T, today string) (*MembershipService, *fakeMemberRepo) {
	t.Helper()
	repo := &fakeMemberRepo{}
	svc := NewMembershipService(repo, time.UTC)
	now, err := time.ParseInLocation("2006-01-02 15:04", today+" 10:30", time.UTC)
	require.NoError(t, err)
	svc.SetClock(func() time.Time { return now })
	return svc, repo
}

func input(first, last, nid string) domain.MemberInput {
	return domain.MemberInput{FirstName: first, LastName: last, NationalID: nid}
}

func TestMembership_AddDefaultsEndDate(t *testing.T) {
	svc, _ := newTestMembership(t, "2024-05-01")
	ctx := context.Background()

	in := input("Lucia", "Fernandez", "30111222")
	in.StartDate = "2024-01-01"
	m, err := svc.Add(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-31", m.EndDate)
	assert.NotEmpty(t, m.ID)

	members, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "2024-01-01", members[0].StartDate)
	assert.Equal(t, "2024-01-31", members[0].EndDate)
}

func TestMembership_AddDefaultsStartToToday(t *testing.T) {
	svc, _ := newTestMembership(t, "2024-05-01")

	m, err := svc.Add(context.Background(), input("Ana", "Lucero", "40123123"))
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", m.StartDate)
	assert.Equal(t, "2024-05-31", m.EndDate)
}

func TestMembership_AddValidation(t *testing.T) {
	svc, repo := newTestMembership(t, "2024-05-01")

	_, err := svc.Add(context.Background(), input("Ana", "Lucero", "40-123"))
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "national id must contain digits only", err.Error())
	assert.Empty(t, repo.members)
	assert.Empty(t, svc.Search(""))
}

func TestMembership_ListFailureKeepsCache(t *testing.T) {
	svc, repo := newTestMembership(t, "2024-05-01")
	ctx := context.Background()

	_, err := svc.List(ctx)
	require.NoError(t, err)
	_, err = svc.Add(ctx, input("Ana", "Lucero", "40123123"))
	require.NoError(t, err)

	repo.failList = errors.New("connection reset")
	_, err = svc.List(ctx)
	require.ErrorIs(t, err, domain.ErrLoad)

	members, err := svc.Members(ctx)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestMembership_PersistFailureLeavesCache(t *testing.T) {
	svc, repo := newTestMembership(t, "2024-05-01")
	ctx := context.Background()

	m, err := svc.Add(ctx, input("Ana", "Lucero", "40123123"))
	require.NoError(t, err)

	repo.failAll = errors.New("quota exceeded")

	_, err = svc.Add(ctx, input("Pedro", "Gomez", "35555111"))
	assert.ErrorIs(t, err, domain.ErrPersist)

	last := "Paz"
	_, err = svc.Update(ctx, m.ID, domain.MemberPatch{LastName: &last})
	assert.ErrorIs(t, err, domain.ErrPersist)

	assert.ErrorIs(t, svc.Remove(ctx, m.ID), domain.ErrPersist)

	cached, ok := svc.FindByID(m.ID)
	require.True(t, ok)
	assert.Equal(t, "Lucero", cached.LastName)
	assert.Len(t, svc.Search(""), 1)
	assert.False(t, svc.Busy())
}

func TestMembership_UpdateAndRemove(t *testing.T) {
	svc, repo := newTestMembership(t, "2024-05-01")
	ctx := context.Background()

	m, err := svc.Add(ctx, input("Ana", "Lucero", "40123123"))
	require.NoError(t, err)

	disc := domain.DisciplineStrength
	updated, err := svc.Update(ctx, m.ID, domain.MemberPatch{Discipline: &disc})
	require.NoError(t, err)
	assert.Equal(t, domain.DisciplineStrength, updated.Discipline)
	assert.False(t, updated.UpdatedAt.IsZero())
	assert.Equal(t, domain.DisciplineStrength, repo.members[0].Discipline)

	_, err = svc.Update(ctx, "missing", domain.MemberPatch{Discipline: &disc})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Update(ctx, m.ID, domain.MemberPatch{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, svc.Remove(ctx, m.ID))
	assert.ErrorIs(t, svc.Remove(ctx, m.ID), domain.ErrNotFound)
	assert.Empty(t, repo.members)
	_, ok := svc.FindByID(m.ID)
	assert.False(t, ok)
}

func TestMembership_ExtendPolicies(t *testing.T) {
	svc, _ := newTestMembership(t, "2024-03-10")
	ctx := context.Background()

	in := input("Ana", "Lucero", "40123123")
	in.StartDate = "2024-02-25"
	in.EndDate = "2024-03-20"
	m, err := svc.Add(ctx, in)
	require.NoError(t, err)

	ext, err := svc.ExtendFromCurrentEnd(ctx, m.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.Extension{EndDate: "2024-04-19"}, ext)

	got, _ := svc.FindByID(m.ID)
	assert.Equal(t, "2024-02-25", got.StartDate, "start date untouched")
	assert.Equal(t, "2024-04-19", got.EndDate)

	ext, err = svc.ExtendFromToday(ctx, m.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.Extension{StartDate: "2024-03-10", EndDate: "2024-05-09"}, ext)

	got, _ = svc.FindByID(m.ID)
	assert.Equal(t, "2024-03-10", got.StartDate)
	assert.Equal(t, "2024-05-09", got.EndDate)
}

func TestMembership_ExtendFromCurrentEndAfterExpiry(t *testing.T) {
	svc, _ := newTestMembership(t, "2024-03-10")
	ctx := context.Background()

	in := input("Ana", "Lucero", "40123123")
	in.StartDate = "2024-01-01"
	in.EndDate = "2024-01-31"
	m, err := svc.Add(ctx, in)
	require.NoError(t, err)

	ext, err := svc.ExtendFromCurrentEnd(ctx, m.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "2024-04-09", ext.EndDate)
}

func TestMembership_ExtendRejectsBadMonths(t *testing.T) {
	svc, _ := newTestMembership(t, "2024-03-10")
	ctx := context.Background()

	m, err := svc.Add(ctx, input("Ana", "Lucero", "40123123"))
	require.NoError(t, err)

	_, err = svc.ExtendFromToday(ctx, m.ID, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.ExtendFromToday(ctx, "unknown", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMembership_Search(t *testing.T) {
	svc, _ := newTestMembership(t, "2024-03-10")
	ctx := context.Background()

	for _, in := range []domain.MemberInput{
		input("Lucia", "Fernandez", "30111222"),
		input("Marcos", "Paz", "28999000"),
	} {
		_, err := svc.Add(ctx, in)
		require.NoError(t, err)
	}

	assert.Len(t, svc.Search(""), 2)
	assert.Len(t, svc.Search("fern"), 1)
	assert.Len(t, svc.Search("2899"), 1)
	assert.Empty(t, svc.Search("zzz"))
}

func TestMembership_BusyWhileWriting(t *testing.T) {
	svc, repo := newTestMembership(t, "2024-03-10")
	ctx := context.Background()
	_, err := svc.List(ctx)
	require.NoError(t, err)

	repo.block = make(chan struct{})
	done := make(chan error)
	go func() {
		_, err := svc.Add(ctx, input("Ana", "Lucero", "40123123"))
		done <- err
	}()

	require.Eventually(t, svc.Busy, time.Second, 5*time.Millisecond)
	close(repo.block)
	require.NoError(t, <-done)
	assert.False(t, svc.Busy())
}

func TestMembership_AddWhileListUnavailable(t *testing.T) {
	svc, repo := newTestMembership(t, "2024-05-01")
	ctx := context.Background()

	repo.failList = errors.New("list down")
	m, err := svc.Add(ctx, input("Ana", "Lucero", "40123123"))
	require.NoError(t, err)
	assert.Len(t, repo.members, 1)

	_, ok := svc.FindByID(m.ID)
	assert.True(t, ok)

	// the first successful load replaces the partial cache
	repo.failList = nil
	repo.members = append(repo.members, &domain.Member{ID: "external", FirstName: "Pedro", LastName: "Gomez", NationalID: "35555111"})
	members, err := svc.Members(ctx)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestMembership_ReloadBypassesRedisCopy(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := &fakeMemberRepo{}
	cached := repository.NewCachedMemberRepository(store, repository.NewRedisCacheRepository(client), time.Hour)
	svc := NewMembershipService(cached, time.UTC)
	ctx := context.Background()

	_, err := svc.Add(ctx, input("Ana", "Lucero", "40123123"))
	require.NoError(t, err)
	members, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.True(t, mr.Exists("members:all"))

	// another writer goes straight to the store
	require.NoError(t, store.Create(ctx, &domain.Member{FirstName: "Pedro", LastName: "Gomez", NationalID: "35555111"}))

	members, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestMembership_LazyLoadUsesRepositoryCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := &fakeMemberRepo{}
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, &domain.Member{FirstName: "Ana", LastName: "Lucero", NationalID: "40123123"}))

	cached := repository.NewCachedMemberRepository(store, repository.NewRedisCacheRepository(client), time.Hour)
	_, err := cached.List(ctx)
	require.NoError(t, err)

	// a store write the cache does not know about stays hidden on the lazy path
	require.NoError(t, store.Create(ctx, &domain.Member{FirstName: "Pedro", LastName: "Gomez", NationalID: "35555111"}))

	svc := NewMembershipService(cached, time.UTC)
	members, err := svc.Members(ctx)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}
