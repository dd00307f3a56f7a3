package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/mansoorceksport/gymdesk/internal/domain"
	"golang.org/x/sync/errgroup"
)

// RoutineService keeps live copies of the exercise catalog and the routines
// (fed by repository snapshots) and owns the single routine draft being edited.
type RoutineService struct {
	exerciseRepo domain.ExerciseRepository
	routineRepo  domain.RoutineRepository

	mu        sync.RWMutex
	exercises []*domain.Exercise
	routines  []*domain.Routine

	draftMu sync.Mutex
	draft   domain.Routine

	cancels   []func()
	wg        sync.WaitGroup
	closeOnce sync.Once

	routineSubs *broadcaster[[]*domain.Routine]
}

func NewRoutineService(exerciseRepo domain.ExerciseRepository, routineRepo domain.RoutineRepository) *RoutineService {
	return &RoutineService{
		exerciseRepo: exerciseRepo,
		routineRepo:  routineRepo,
		exercises:    []*domain.Exercise{},
		routines:     []*domain.Routine{},
		draft:        domain.NewDraftRoutine(domain.DefaultRoutineDiscipline),
		routineSubs:  newBroadcaster[[]*domain.Routine](),
	}
}

// Start subscribes to both collections and waits for their first snapshot.
// Later snapshots replace the caches in the background until Close.
func (s *RoutineService) Start(ctx context.Context) error {
	var exerciseFeed *domain.Feed[*domain.Exercise]
	var routineFeed *domain.Feed[*domain.Routine]

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		feed, err := s.exerciseRepo.Watch(context.Background())
		if err != nil {
			return domain.LoadError("watch exercises", err)
		}
		exerciseFeed = feed
		return awaitFirst(gCtx, feed, s.replaceExercises)
	})
	g.Go(func() error {
		feed, err := s.routineRepo.Watch(context.Background())
		if err != nil {
			return domain.LoadError("watch routines", err)
		}
		routineFeed = feed
		return awaitFirst(gCtx, feed, s.replaceRoutines)
	})

	err := g.Wait()
	if exerciseFeed != nil {
		s.cancels = append(s.cancels, exerciseFeed.Cancel)
	}
	if routineFeed != nil {
		s.cancels = append(s.cancels, routineFeed.Cancel)
	}
	if err != nil {
		s.Close()
		return err
	}

	consume(s, exerciseFeed, s.replaceExercises, "exercises")
	consume(s, routineFeed, s.replaceRoutines, "routines")
	log.Println("✓ Routine feeds started")
	return nil
}

func awaitFirst[T any](ctx context.Context, feed *domain.Feed[T], apply func([]T)) error {
	select {
	case snap, ok := <-feed.Events():
		if !ok {
			return domain.LoadError("watch", errors.New("feed closed before first snapshot"))
		}
		if snap.Err != nil {
			return snap.Err
		}
		apply(snap.Items)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func consume[T any](s *RoutineService, feed *domain.Feed[T], apply func([]T), name string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for snap := range feed.Events() {
			if snap.Err != nil {
				log.Printf("Warning: %s feed error: %v", name, snap.Err)
				continue
			}
			apply(snap.Items)
		}
	}()
}

// Close tears down both subscriptions. Safe to call more than once.
func (s *RoutineService) Close() {
	s.closeOnce.Do(func() {
		for _, cancel := range s.cancels {
			cancel()
		}
		s.wg.Wait()
		s.routineSubs.close()
	})
}

func (s *RoutineService) replaceExercises(items []*domain.Exercise) {
	sorted := append([]*domain.Exercise(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	s.mu.Lock()
	s.exercises = sorted
	s.mu.Unlock()
}

func (s *RoutineService) replaceRoutines(items []*domain.Routine) {
	sorted := append([]*domain.Routine(nil), items...)
	sortRoutines(sorted)

	s.mu.Lock()
	s.routines = sorted
	s.mu.Unlock()

	s.routineSubs.publish(cloneRoutines(sorted))
}

func sortRoutines(rs []*domain.Routine) {
	sort.SliceStable(rs, func(i, j int) bool { return rs[i].Name < rs[j].Name })
}

// SubscribeRoutines delivers the routine list after every change. Slow
// receivers only see the latest list. The returned func unsubscribes.
func (s *RoutineService) SubscribeRoutines() (<-chan []*domain.Routine, func()) {
	ch, unsubscribe := s.routineSubs.subscribe()
	s.mu.RLock()
	current := cloneRoutines(s.routines)
	s.mu.RUnlock()
	s.routineSubs.offer(ch, current)
	return ch, unsubscribe
}

// ListExercises returns the cached catalog sorted by name
func (s *RoutineService) ListExercises() []*domain.Exercise {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Exercise, len(s.exercises))
	for i, ex := range s.exercises {
		c := *ex
		out[i] = &c
	}
	return out
}

// ListRoutines returns the cached routines sorted by name, optionally narrowed to a discipline
func (s *RoutineService) ListRoutines(discipline domain.Discipline) []*domain.Routine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Routine, 0, len(s.routines))
	for _, r := range s.routines {
		if discipline != domain.DisciplineNone && r.Discipline != discipline {
			continue
		}
		c := r.Clone()
		out = append(out, &c)
	}
	return out
}

// AddExercise validates and stores a catalog entry
func (s *RoutineService) AddExercise(ctx context.Context, in domain.ExerciseInput) (*domain.Exercise, error) {
	ex, err := in.ToExercise()
	if err != nil {
		return nil, err
	}
	if err := s.exerciseRepo.Create(ctx, ex); err != nil {
		return nil, persistError("create exercise", err)
	}

	s.mu.Lock()
	s.exercises = append(s.exercises, ex)
	sort.SliceStable(s.exercises, func(i, j int) bool { return s.exercises[i].Name < s.exercises[j].Name })
	s.mu.Unlock()

	c := *ex
	return &c, nil
}

// DeleteExercise removes a catalog entry. Routines keep their embedded copies.
func (s *RoutineService) DeleteExercise(ctx context.Context, id string) error {
	if err := s.exerciseRepo.Delete(ctx, id); err != nil {
		return persistError("delete exercise", err)
	}

	s.mu.Lock()
	for i, ex := range s.exercises {
		if ex.ID == id {
			s.exercises = append(s.exercises[:i:i], s.exercises[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	return nil
}

func (s *RoutineService) findExercise(id string) (*domain.Exercise, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ex := range s.exercises {
		if ex.ID == id {
			return ex, true
		}
	}
	return nil, false
}

func (s *RoutineService) findRoutine(id string) (domain.Routine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.routines {
		if r.ID == id {
			return r.Clone(), true
		}
	}
	return domain.Routine{}, false
}

// Draft returns a copy of the draft buffer
func (s *RoutineService) Draft() domain.Routine {
	s.draftMu.Lock()
	defer s.draftMu.Unlock()
	return s.draft.Clone()
}

// NewDraft discards the buffer and starts a fresh routine
func (s *RoutineService) NewDraft(discipline domain.Discipline) (domain.Routine, error) {
	if discipline != domain.DisciplineNone && !discipline.IsValid() {
		return domain.Routine{}, domain.NewValidationError("discipline", fmt.Sprintf("unknown discipline %q", discipline))
	}
	s.draftMu.Lock()
	defer s.draftMu.Unlock()
	s.draft = domain.NewDraftRoutine(discipline)
	return s.draft.Clone(), nil
}

// LoadDraft copies the stored routine into the buffer. When the store cannot be
// reached the cached copy is used. When id is unknown the buffer is left
// unchanged and false is returned.
func (s *RoutineService) LoadDraft(ctx context.Context, id string) (domain.Routine, bool) {
	r, ok := s.fetchRoutine(ctx, id)

	s.draftMu.Lock()
	defer s.draftMu.Unlock()
	if ok {
		s.draft = r
	}
	return s.draft.Clone(), ok
}

func (s *RoutineService) fetchRoutine(ctx context.Context, id string) (domain.Routine, bool) {
	stored, err := s.routineRepo.GetByID(ctx, id)
	switch {
	case err == nil:
		r := stored.Clone()
		r.ID = id
		return r, true
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidID):
		return domain.Routine{}, false
	}
	log.Printf("Warning: failed to read routine %s, using cached copy: %v", id, err)
	return s.findRoutine(id)
}

// SetMeta sets the draft's name or discipline
func (s *RoutineService) SetMeta(field, value string) (domain.Routine, error) {
	return s.editDraft(func(d *domain.Routine) error {
		return d.SetMeta(field, value)
	})
}

// SetDay replaces the exercises of one weekday
func (s *RoutineService) SetDay(day domain.Weekday, exercises []domain.RoutineExercise) (domain.Routine, error) {
	return s.editDraft(func(d *domain.Routine) error {
		return d.SetDay(day, exercises)
	})
}

// AddExerciseToDay appends a snapshot of a catalog entry to day
func (s *RoutineService) AddExerciseToDay(day domain.Weekday, exerciseID string) (domain.Routine, error) {
	ex, ok := s.findExercise(exerciseID)
	if !ok {
		return domain.Routine{}, fmt.Errorf("exercise %s: %w", exerciseID, domain.ErrNotFound)
	}
	return s.editDraft(func(d *domain.Routine) error {
		key, err := domain.ParseWeekday(string(day))
		if err != nil {
			return err
		}
		return d.SetDay(key, append(d.Days[key], domain.SnapshotExercise(ex)))
	})
}

// UpdateDayExercise changes the prescription of the exercise at index on day
func (s *RoutineService) UpdateDayExercise(day domain.Weekday, index int, fields domain.RoutineExerciseFields) (domain.Routine, error) {
	return s.editDraft(func(d *domain.Routine) error {
		key, err := domain.ParseWeekday(string(day))
		if err != nil {
			return err
		}
		exs, err := d.WithDayExerciseUpdated(key, index, fields)
		if err != nil {
			return err
		}
		return d.SetDay(key, exs)
	})
}

// RemoveExerciseFromDay drops the exercise at index on day
func (s *RoutineService) RemoveExerciseFromDay(day domain.Weekday, index int) (domain.Routine, error) {
	return s.editDraft(func(d *domain.Routine) error {
		key, err := domain.ParseWeekday(string(day))
		if err != nil {
			return err
		}
		exs, err := d.WithDayExerciseRemoved(key, index)
		if err != nil {
			return err
		}
		return d.SetDay(key, exs)
	})
}

// editDraft applies edit to a copy and keeps it only when edit succeeds
func (s *RoutineService) editDraft(edit func(*domain.Routine) error) (domain.Routine, error) {
	s.draftMu.Lock()
	defer s.draftMu.Unlock()

	next := s.draft.Clone()
	if err := edit(&next); err != nil {
		return domain.Routine{}, err
	}
	s.draft = next
	return s.draft.Clone(), nil
}

// Save persists the draft. A new draft is created and receives its id;
// a loaded draft replaces name, discipline and days of the stored routine.
func (s *RoutineService) Save(ctx context.Context) (domain.Routine, error) {
	s.draftMu.Lock()
	defer s.draftMu.Unlock()

	if err := s.draft.Validate(); err != nil {
		return domain.Routine{}, err
	}

	r := s.draft.Clone()
	r.Name = strings.TrimSpace(r.Name)
	if r.IsDraft() {
		if err := s.routineRepo.Create(ctx, &r); err != nil {
			return domain.Routine{}, persistError("create routine", err)
		}
	} else {
		if err := s.routineRepo.Replace(ctx, &r); err != nil {
			return domain.Routine{}, persistError("save routine", err)
		}
	}

	s.draft = r
	s.upsertRoutine(r.Clone())
	return r.Clone(), nil
}

func (s *RoutineService) upsertRoutine(r domain.Routine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.routines {
		if existing.ID == r.ID {
			s.routines[i] = &r
			sortRoutines(s.routines)
			return
		}
	}
	s.routines = append(s.routines, &r)
	sortRoutines(s.routines)
}

// DeleteRoutine removes a routine. Deleting the drafted routine resets the
// draft to a fresh one with the same discipline.
func (s *RoutineService) DeleteRoutine(ctx context.Context, id string) error {
	if err := s.routineRepo.Delete(ctx, id); err != nil {
		return persistError("delete routine", err)
	}

	s.mu.Lock()
	for i, r := range s.routines {
		if r.ID == id {
			s.routines = append(s.routines[:i:i], s.routines[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.draftMu.Lock()
	if s.draft.ID == id {
		s.draft = domain.NewDraftRoutine(s.draft.Discipline)
	}
	s.draftMu.Unlock()
	return nil
}

func cloneRoutines(rs []*domain.Routine) []*domain.Routine {
	out := make([]*domain.Routine, len(rs))
	for i, r := range rs {
		c := r.Clone()
		out[i] = &c
	}
	return out
}
