package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mansoorceksport/gymdesk/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MembershipService owns the in-memory member list and every member mutation.
// Reads are served from the cache; writes go to the repository first and only
// touch the cache once the repository accepted them.
type MembershipService struct {
	repo domain.MemberRepository
	loc  *time.Location
	now  func() time.Time

	mu      sync.RWMutex
	members []*domain.Member
	loaded  bool

	inFlight atomic.Int32

	writes     metric.Int64Counter
	extensions metric.Int64Counter
}

// NewMembershipService creates the service. loc is the gym's calendar
// timezone used to decide what "today" is.
func NewMembershipService(repo domain.MemberRepository, loc *time.Location) *MembershipService {
	if loc == nil {
		loc = time.Local
	}
	meter := otel.Meter("gymdesk/membership")

	return &MembershipService{
		repo:       repo,
		loc:        loc,
		now:        time.Now,
		members:    []*domain.Member{},
		writes:     newCounter(meter, "gymdesk.member.writes", "Member create, update and delete operations"),
		extensions: newCounter(meter, "gymdesk.subscription.extensions", "Subscription renewals by policy"),
	}
}

func newCounter(meter metric.Meter, name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		log.Printf("Warning: failed to create counter %s: %v", name, err)
		return noop.Int64Counter{}
	}
	return c
}

// SetClock replaces the time source. Used by tests.
func (s *MembershipService) SetClock(now func() time.Time) {
	s.now = now
}

// Today is midnight of the current day in the gym's timezone
func (s *MembershipService) Today() time.Time {
	return domain.StartOfDay(s.now().In(s.loc))
}

// Busy reports whether any mutating call is in progress. Advisory only.
func (s *MembershipService) Busy() bool {
	return s.inFlight.Load() > 0
}

func (s *MembershipService) track() func() {
	s.inFlight.Add(1)
	return func() { s.inFlight.Add(-1) }
}

// cacheInvalidator is implemented by repositories that keep their own copy of
// the member list, such as repository.CachedMemberRepository
type cacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// List reloads every member from the external store and replaces the cache.
// A repository-level cache is dropped first so the reload reads the store.
// On failure the cache is left as it was.
func (s *MembershipService) List(ctx context.Context) ([]*domain.Member, error) {
	if inv, ok := s.repo.(cacheInvalidator); ok {
		inv.Invalidate(ctx)
	}
	return s.load(ctx)
}

// load fills the cache from the repository, honouring any repository-level cache
func (s *MembershipService) load(ctx context.Context) ([]*domain.Member, error) {
	members, err := s.repo.List(ctx)
	if err != nil {
		return nil, domain.LoadError("list members", err)
	}
	if members == nil {
		members = []*domain.Member{}
	}

	s.mu.Lock()
	s.members = members
	s.loaded = true
	s.mu.Unlock()

	return cloneMembers(members), nil
}

// Members returns a copy of the cached list, loading it on first use
func (s *MembershipService) Members(ctx context.Context) ([]*domain.Member, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMembers(s.members), nil
}

func (s *MembershipService) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	_, err := s.load(ctx)
	return err
}

// FindByID returns a copy of the cached member
func (s *MembershipService) FindByID(id string) (*domain.Member, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.members[i].Clone(), true
	}
	return nil, false
}

// Get is FindByID with a lazy first load. Unknown ids are ErrNotFound.
func (s *MembershipService) Get(ctx context.Context, id string) (*domain.Member, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	m, ok := s.FindByID(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m, nil
}

// Search matches the cached members by name or national id. An empty term returns all.
func (s *MembershipService) Search(term string) []*domain.Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMembers(domain.SearchMembers(s.members, term))
}

// Add validates input, fills date defaults, persists the member and appends it to the cache
func (s *MembershipService) Add(ctx context.Context, in domain.MemberInput) (*domain.Member, error) {
	defer s.track()()

	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	member := &domain.Member{
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		NationalID: in.NationalID,
		Discipline: in.Discipline,
		StartDate:  in.StartDate,
		EndDate:    in.EndDate,
	}
	if member.StartDate == "" {
		member.StartDate = domain.ToISODate(s.Today())
	}
	if member.EndDate == "" {
		start, err := domain.ParseISODate(member.StartDate, s.loc)
		if err != nil {
			return nil, domain.NewValidationError("start_date", err.Error())
		}
		member.EndDate = domain.ToISODate(domain.DefaultEndDate(start))
	}

	if err := s.repo.Create(ctx, member); err != nil {
		return nil, persistError("create member", err)
	}
	s.writes.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "create")))

	// appending before the first load is fine, the load replaces the whole list
	s.mu.Lock()
	s.members = append(s.members, member.Clone())
	s.mu.Unlock()

	return member, nil
}

// Update merges patch onto the cached member and replaces the stored document
func (s *MembershipService) Update(ctx context.Context, id string, patch domain.MemberPatch) (*domain.Member, error) {
	defer s.track()()

	patch.Normalize()
	if patch.IsEmpty() {
		return nil, domain.NewValidationError("body", "no fields to update")
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, "update member", func(m *domain.Member) error {
		patch.ApplyTo(m)
		return nil
	})
}

// Remove deletes the member from the store and then from the cache
func (s *MembershipService) Remove(ctx context.Context, id string) error {
	defer s.track()()

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	if _, ok := s.FindByID(id); !ok {
		return domain.ErrNotFound
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return persistError("delete member", err)
	}
	s.writes.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "delete")))

	s.mu.Lock()
	if i := s.indexOf(id); i >= 0 {
		s.members = append(s.members[:i:i], s.members[i+1:]...)
	}
	s.mu.Unlock()
	return nil
}

// ExtendFromToday restarts the subscription today for months*30 days
func (s *MembershipService) ExtendFromToday(ctx context.Context, id string, months int) (domain.Extension, error) {
	return s.Extend(ctx, id, months, domain.PolicyFromToday)
}

// ExtendFromCurrentEnd stacks months*30 days on the later of the current end date and today
func (s *MembershipService) ExtendFromCurrentEnd(ctx context.Context, id string, months int) (domain.Extension, error) {
	return s.Extend(ctx, id, months, domain.PolicyFromCurrentEnd)
}

// Extend renews a subscription with the given policy
func (s *MembershipService) Extend(ctx context.Context, id string, months int, policy domain.ExtensionPolicy) (domain.Extension, error) {
	defer s.track()()

	if err := domain.ValidateMonths(months); err != nil {
		return domain.Extension{}, err
	}

	var ext domain.Extension
	_, err := s.mutate(ctx, id, "extend subscription", func(m *domain.Member) error {
		today := s.Today()
		switch policy {
		case domain.PolicyFromToday:
			ext = domain.RenewFromToday(today, months)
			m.StartDate = ext.StartDate
		case domain.PolicyFromCurrentEnd:
			ext = domain.ExtendFromEnd(m.EndDate, today, months)
		default:
			return domain.NewValidationError("policy", "unknown extension policy")
		}
		m.EndDate = ext.EndDate
		return nil
	})
	if err != nil {
		return domain.Extension{}, err
	}

	s.extensions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("policy", string(policy)),
		attribute.Int("months", months),
	))
	return ext, nil
}

// mutate applies change to a copy of the cached member, persists it with a
// full replace and swaps it into the cache on success
func (s *MembershipService) mutate(ctx context.Context, id, op string, change func(*domain.Member) error) (*domain.Member, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	member, ok := s.FindByID(id)
	if !ok {
		return nil, domain.ErrNotFound
	}

	if err := change(member); err != nil {
		return nil, err
	}
	member.UpdatedAt = s.now().UTC()

	if err := s.repo.Replace(ctx, member); err != nil {
		return nil, persistError(op, err)
	}
	s.writes.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "update")))

	s.mu.Lock()
	if i := s.indexOf(id); i >= 0 {
		s.members[i] = member.Clone()
	}
	s.mu.Unlock()

	return member, nil
}

// indexOf must be called with mu held
func (s *MembershipService) indexOf(id string) int {
	for i, m := range s.members {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func cloneMembers(members []*domain.Member) []*domain.Member {
	out := make([]*domain.Member, len(members))
	for i, m := range members {
		out[i] = m.Clone()
	}
	return out
}

// persistError classifies a repository write failure. Missing records and bad
// ids keep their own sentinel.
func persistError(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidID) {
		return err
	}
	return domain.PersistError(op, err)
}
