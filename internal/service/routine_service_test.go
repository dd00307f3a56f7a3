package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mansoorceksport/gymdesk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCollection is an in-memory collection that pushes a snapshot to every
// watcher after each write
type fakeCollection[T any] struct {
	mu       sync.Mutex
	items    map[string]T
	order    []string
	nextID   int
	watchers []chan domain.Snapshot[T]
	cancels  int
	failNext error
}

func newFakeCollection[T any]() *fakeCollection[T] {
	return &fakeCollection[T]{items: make(map[string]T)}
}

func (c *fakeCollection[T]) snapshotLocked() []T {
	out := make([]T, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id])
	}
	return out
}

func (c *fakeCollection[T]) notifyLocked() {
	snap := domain.Snapshot[T]{Items: c.snapshotLocked()}
	for _, w := range c.watchers {
		select {
		case <-w:
		default:
		}
		w <- snap
	}
}

func (c *fakeCollection[T]) insert(item T, setID func(string)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure(); err != nil {
		return err
	}
	c.nextID++
	id := fmt.Sprintf("id%d", c.nextID)
	setID(id)
	c.items[id] = item
	c.order = append(c.order, id)
	c.notifyLocked()
	return nil
}

func (c *fakeCollection[T]) replace(id string, item T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure(); err != nil {
		return err
	}
	if _, ok := c.items[id]; !ok {
		return domain.ErrNotFound
	}
	c.items[id] = item
	c.notifyLocked()
	return nil
}

func (c *fakeCollection[T]) remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure(); err != nil {
		return err
	}
	if _, ok := c.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(c.items, id)
	for i, o := range c.order {
		if o == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.notifyLocked()
	return nil
}

func (c *fakeCollection[T]) takeFailure() error {
	err := c.failNext
	c.failNext = nil
	return err
}

func (c *fakeCollection[T]) watch() *domain.Feed[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	in := make(chan domain.Snapshot[T], 1)
	in <- domain.Snapshot[T]{Items: c.snapshotLocked()}
	c.watchers = append(c.watchers, in)

	out := make(chan domain.Snapshot[T])
	stop := make(chan struct{})
	go func() {
		defer close(out)
		for {
			select {
			case snap := <-in:
				select {
				case out <- snap:
				case <-stop:
					return
				}
			case <-stop:
				return
			}
		}
	}()
	return domain.NewFeed(out, func() {
		c.mu.Lock()
		c.cancels++
		c.mu.Unlock()
		close(stop)
	})
}

type fakeExerciseRepo struct {
	*fakeCollection[*domain.Exercise]
}

func (r fakeExerciseRepo) List(ctx context.Context) ([]*domain.Exercise, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked(), nil
}
func (r fakeExerciseRepo) Create(ctx context.Context, ex *domain.Exercise) error {
	c := *ex
	return r.insert(&c, func(id string) { ex.ID, c.ID = id, id })
}
func (r fakeExerciseRepo) Delete(ctx context.Context, id string) error { return r.remove(id) }
func (r fakeExerciseRepo) Watch(ctx context.Context) (*domain.Feed[*domain.Exercise], error) {
	return r.watch(), nil
}

type fakeRoutineRepo struct {
	*fakeCollection[*domain.Routine]
}

func (r fakeRoutineRepo) List(ctx context.Context) ([]*domain.Routine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked(), nil
}
func (r fakeRoutineRepo) GetByID(ctx context.Context, id string) (*domain.Routine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFailure(); err != nil {
		return nil, err
	}
	if rt, ok := r.items[id]; ok {
		return rt, nil
	}
	return nil, domain.ErrNotFound
}
func (r fakeRoutineRepo) Create(ctx context.Context, rt *domain.Routine) error {
	c := rt.Clone()
	return r.insert(&c, func(id string) { rt.ID, c.ID = id, id })
}
func (r fakeRoutineRepo) Replace(ctx context.Context, rt *domain.Routine) error {
	c := rt.Clone()
	return r.replace(rt.ID, &c)
}
func (r fakeRoutineRepo) Delete(ctx context.Context, id string) error { return r.remove(id) }
func (r fakeRoutineRepo) Watch(ctx context.Context) (*domain.Feed[*domain.Routine], error) {
	return r.watch(), nil
}

func startRoutineService(t *testing.T) (*RoutineService, fakeExerciseRepo, fakeRoutineRepo) {
	t.Helper()
	exRepo := fakeExerciseRepo{newFakeCollection[*domain.Exercise]()}
	rtRepo := fakeRoutineRepo{newFakeCollection[*domain.Routine]()}
	svc := NewRoutineService(exRepo, rtRepo)
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(svc.Close)
	return svc, exRepo, rtRepo
}

func TestRoutineService_FeedsReplaceCaches(t *testing.T) {
	svc, _, rtRepo := startRoutineService(t)
	ctx := context.Background()

	r := domain.NewDraftRoutine(domain.DisciplineCrossfit)
	r.Name = "WOD"
	require.NoError(t, rtRepo.Create(ctx, &r))

	require.Eventually(t, func() bool { return len(svc.ListRoutines("")) == 1 }, time.Second, 5*time.Millisecond)
	assert.Len(t, svc.ListRoutines(domain.DisciplineCrossfit), 1)
	assert.Empty(t, svc.ListRoutines(domain.DisciplineStrength))
}

func TestRoutineService_ExerciseCatalog(t *testing.T) {
	svc, _, _ := startRoutineService(t)
	ctx := context.Background()

	_, err := svc.AddExercise(ctx, domain.ExerciseInput{Name: ""})
	assert.ErrorIs(t, err, domain.ErrValidation)

	squat, err := svc.AddExercise(ctx, domain.ExerciseInput{Name: "Squat", Reps: "5x5"})
	require.NoError(t, err)
	_, err = svc.AddExercise(ctx, domain.ExerciseInput{Name: "Bench"})
	require.NoError(t, err)

	names := func() []string {
		var out []string
		for _, ex := range svc.ListExercises() {
			out = append(out, ex.Name)
		}
		return out
	}
	require.Eventually(t, func() bool {
		got := names()
		return len(got) == 2 && got[0] == "Bench" && got[1] == "Squat"
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, svc.DeleteExercise(ctx, squat.ID))
	require.Eventually(t, func() bool {
		got := names()
		return len(got) == 1 && got[0] == "Bench"
	}, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, svc.DeleteExercise(ctx, squat.ID), domain.ErrNotFound)
}

func TestRoutineService_DraftLifecycle(t *testing.T) {
	svc, _, rtRepo := startRoutineService(t)
	ctx := context.Background()

	squat, err := svc.AddExercise(ctx, domain.ExerciseInput{Name: "Squat", Reps: "5x5"})
	require.NoError(t, err)

	d, err := svc.NewDraft("")
	require.NoError(t, err)
	assert.Equal(t, domain.DisciplineFunctional, d.Discipline)

	_, err = svc.Save(ctx)
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "routine name is required", err.Error())

	_, err = svc.SetMeta("name", "  Legs  ")
	require.NoError(t, err)
	_, err = svc.SetMeta("id", "x")
	assert.ErrorIs(t, err, domain.ErrValidation)

	d, err = svc.AddExerciseToDay("monday", squat.ID)
	require.NoError(t, err)
	require.Len(t, d.Days[domain.Monday], 1)
	assert.Equal(t, "Squat", d.Days[domain.Monday][0].Name)

	_, err = svc.AddExerciseToDay("monday", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.SetDay("saturday", nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	saved, err := svc.Save(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)
	assert.Equal(t, "Legs", saved.Name)
	assert.Equal(t, saved.ID, svc.Draft().ID)

	// catalog deletion leaves the embedded copy alone
	require.NoError(t, svc.DeleteExercise(ctx, squat.ID))
	stored, err := rtRepo.GetByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Squat", stored.Days[domain.Monday][0].Name)

	reps := "3x12"
	_, err = svc.UpdateDayExercise(domain.Monday, 0, domain.RoutineExerciseFields{Reps: &reps})
	require.NoError(t, err)
	again, err := svc.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, again.ID)

	stored, err = rtRepo.GetByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "3x12", stored.Days[domain.Monday][0].Reps)

	d, err = svc.RemoveExerciseFromDay(domain.Monday, 0)
	require.NoError(t, err)
	assert.Empty(t, d.Days[domain.Monday])
	_, err = svc.RemoveExerciseFromDay(domain.Monday, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRoutineService_LoadDraft(t *testing.T) {
	svc, _, rtRepo := startRoutineService(t)
	ctx := context.Background()

	r := domain.NewDraftRoutine(domain.DisciplineStrength)
	r.Name = "Push"
	require.NoError(t, rtRepo.Create(ctx, &r))
	require.Eventually(t, func() bool { return len(svc.ListRoutines("")) == 1 }, time.Second, 5*time.Millisecond)

	_, err := svc.SetMeta("name", "unsaved")
	require.NoError(t, err)

	d, ok := svc.LoadDraft(ctx, "unknown")
	assert.False(t, ok)
	assert.Equal(t, "unsaved", d.Name)

	d, ok = svc.LoadDraft(ctx, r.ID)
	require.True(t, ok)
	assert.Equal(t, "Push", d.Name)
	assert.Equal(t, r.ID, d.ID)

	// editing the draft never touches the cached routine
	_, err = svc.SetMeta("name", "Push v2")
	require.NoError(t, err)
	assert.Equal(t, "Push", svc.ListRoutines("")[0].Name)
}

func TestRoutineService_LoadDraftReadsStore(t *testing.T) {
	svc, _, rtRepo := startRoutineService(t)
	ctx := context.Background()

	r := domain.NewDraftRoutine(domain.DisciplineCrossfit)
	r.Name = "WOD"
	require.NoError(t, rtRepo.Create(ctx, &r))
	require.Eventually(t, func() bool { return len(svc.ListRoutines("")) == 1 }, time.Second, 5*time.Millisecond)

	// a stored change the cache has not seen yet
	rtRepo.mu.Lock()
	stored := rtRepo.items[r.ID].Clone()
	stored.Name = "WOD v2"
	rtRepo.items[r.ID] = &stored
	rtRepo.mu.Unlock()

	d, ok := svc.LoadDraft(ctx, r.ID)
	require.True(t, ok)
	assert.Equal(t, "WOD v2", d.Name)

	// store unavailable: the cached copy is used
	rtRepo.mu.Lock()
	rtRepo.failNext = errors.New("unavailable")
	rtRepo.mu.Unlock()
	d, ok = svc.LoadDraft(ctx, r.ID)
	require.True(t, ok)
	assert.Equal(t, "WOD", d.Name)
	assert.Equal(t, r.ID, d.ID)
}

func TestRoutineService_DeleteDraftedRoutineResetsDraft(t *testing.T) {
	svc, _, _ := startRoutineService(t)
	ctx := context.Background()

	_, err := svc.NewDraft(domain.DisciplineCrossfit)
	require.NoError(t, err)
	_, err = svc.SetMeta("name", "Engine")
	require.NoError(t, err)
	saved, err := svc.Save(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRoutine(ctx, saved.ID))

	d := svc.Draft()
	assert.True(t, d.IsDraft())
	assert.Equal(t, "", d.Name)
	assert.Equal(t, domain.DisciplineCrossfit, d.Discipline)
	assert.Len(t, d.Days, 5)
	require.Eventually(t, func() bool { return len(svc.ListRoutines("")) == 0 }, time.Second, 5*time.Millisecond)
}

func TestRoutineService_SaveFailureKeepsDraft(t *testing.T) {
	svc, _, rtRepo := startRoutineService(t)
	ctx := context.Background()

	_, err := svc.SetMeta("name", "Legs")
	require.NoError(t, err)

	rtRepo.mu.Lock()
	rtRepo.failNext = errors.New("unavailable")
	rtRepo.mu.Unlock()

	_, err = svc.Save(ctx)
	require.ErrorIs(t, err, domain.ErrPersist)
	assert.True(t, svc.Draft().IsDraft())
	assert.Equal(t, "Legs", svc.Draft().Name)
}

func TestRoutineService_CloseIsIdempotent(t *testing.T) {
	exRepo := fakeExerciseRepo{newFakeCollection[*domain.Exercise]()}
	rtRepo := fakeRoutineRepo{newFakeCollection[*domain.Routine]()}
	svc := NewRoutineService(exRepo, rtRepo)
	require.NoError(t, svc.Start(context.Background()))

	updates, unsubscribe := svc.SubscribeRoutines()
	defer unsubscribe()
	<-updates

	svc.Close()
	svc.Close()

	assert.Equal(t, 1, exRepo.cancels)
	assert.Equal(t, 1, rtRepo.cancels)
	_, open := <-updates
	assert.False(t, open)
}

func TestRoutineService_SubscribeRoutines(t *testing.T) {
	svc, _, rtRepo := startRoutineService(t)
	ctx := context.Background()

	updates, unsubscribe := svc.SubscribeRoutines()
	defer unsubscribe()
	assert.Empty(t, <-updates)

	r := domain.NewDraftRoutine(domain.DisciplineNone)
	r.Name = "Core"
	require.NoError(t, rtRepo.Create(ctx, &r))

	select {
	case list := <-updates:
		require.Len(t, list, 1)
		assert.Equal(t, "Core", list[0].Name)
	case <-time.After(time.Second):
		t.Fatal("no routine update")
	}
}
