package handler

import (
	"bufio"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/gymdesk/internal/domain"
	"github.com/mansoorceksport/gymdesk/internal/service"
	"github.com/oklog/ulid/v2"
	"github.com/valyala/fasthttp"
)

const streamHeartbeat = 30 * time.Second

// RoutineHandler serves the exercise catalog, saved routines and the routine editor draft
type RoutineHandler struct {
	routines *service.RoutineService
}

func NewRoutineHandler(routines *service.RoutineService) *RoutineHandler {
	return &RoutineHandler{routines: routines}
}

// ListExercises handles GET /v1/exercises
func (h *RoutineHandler) ListExercises(c *fiber.Ctx) error {
	return c.JSON(h.routines.ListExercises())
}

// CreateExercise handles POST /v1/exercises
func (h *RoutineHandler) CreateExercise(c *fiber.Ctx) error {
	var in domain.ExerciseInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}

	ex, err := h.routines.AddExercise(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(ex)
}

// DeleteExercise handles DELETE /v1/exercises/:id
func (h *RoutineHandler) DeleteExercise(c *fiber.Ctx) error {
	if err := h.routines.DeleteExercise(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListRoutines handles GET /v1/routines?discipline=
func (h *RoutineHandler) ListRoutines(c *fiber.Ctx) error {
	return c.JSON(h.routines.ListRoutines(domain.Discipline(c.Query("discipline"))))
}

// DeleteRoutine handles DELETE /v1/routines/:id
func (h *RoutineHandler) DeleteRoutine(c *fiber.Ctx) error {
	if err := h.routines.DeleteRoutine(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// StreamRoutines handles GET /v1/routines/stream
// Server-sent events: one "routines" event per change of the saved routine list.
func (h *RoutineHandler) StreamRoutines(c *fiber.Ctx) error {
	updates, cancel := h.routines.SubscribeRoutines()

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("Transfer-Encoding", "chunked")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()

		heartbeat := time.NewTicker(streamHeartbeat)
		defer heartbeat.Stop()

		for {
			select {
			case routines, ok := <-updates:
				if !ok {
					return
				}
				if err := writeEvent(w, "routines", routines); err != nil {
					log.Printf("Routine stream client disconnected: %v", err)
					return
				}
			case <-heartbeat.C:
				fmt.Fprintf(w, ": heartbeat\n\n")
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))

	return nil
}

func writeEvent(w *bufio.Writer, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader)
	fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", id, event, payload)
	return w.Flush()
}

// GetDraft handles GET /v1/draft
func (h *RoutineHandler) GetDraft(c *fiber.Ctx) error {
	return c.JSON(h.routines.Draft())
}

// NewDraft handles POST /v1/draft/new
func (h *RoutineHandler) NewDraft(c *fiber.Ctx) error {
	var req struct {
		Discipline domain.Discipline `json:"discipline"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badBody(c)
		}
	}

	draft, err := h.routines.NewDraft(req.Discipline)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(draft)
}

// LoadDraft handles POST /v1/draft/load/:id
func (h *RoutineHandler) LoadDraft(c *fiber.Ctx) error {
	draft, ok := h.routines.LoadDraft(c.UserContext(), c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "routine not found"})
	}
	return c.JSON(draft)
}

// SetMeta handles PATCH /v1/draft/meta
// Body: {"field": "name" | "discipline", "value": "..."}
func (h *RoutineHandler) SetMeta(c *fiber.Ctx) error {
	var req struct {
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	draft, err := h.routines.SetMeta(req.Field, req.Value)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(draft)
}

// SetDay handles PUT /v1/draft/days/:day
func (h *RoutineHandler) SetDay(c *fiber.Ctx) error {
	var exercises []domain.RoutineExercise
	if err := c.BodyParser(&exercises); err != nil {
		return badBody(c)
	}

	draft, err := h.routines.SetDay(domain.Weekday(c.Params("day")), exercises)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(draft)
}

// AddDayExercise handles POST /v1/draft/days/:day/exercises
// Body: {"exercise_id": "..."}
func (h *RoutineHandler) AddDayExercise(c *fiber.Ctx) error {
	var req struct {
		ExerciseID string `json:"exercise_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	draft, err := h.routines.AddExerciseToDay(domain.Weekday(c.Params("day")), req.ExerciseID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(draft)
}

// UpdateDayExercise handles PATCH /v1/draft/days/:day/exercises/:index
func (h *RoutineHandler) UpdateDayExercise(c *fiber.Ctx) error {
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "index must be a number"})
	}

	var fields domain.RoutineExerciseFields
	if err := c.BodyParser(&fields); err != nil {
		return badBody(c)
	}

	draft, err := h.routines.UpdateDayExercise(domain.Weekday(c.Params("day")), index, fields)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(draft)
}

// RemoveDayExercise handles DELETE /v1/draft/days/:day/exercises/:index
func (h *RoutineHandler) RemoveDayExercise(c *fiber.Ctx) error {
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "index must be a number"})
	}

	draft, err := h.routines.RemoveExerciseFromDay(domain.Weekday(c.Params("day")), index)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(draft)
}

// SaveDraft handles POST /v1/draft/save
func (h *RoutineHandler) SaveDraft(c *fiber.Ctx) error {
	routine, err := h.routines.Save(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(routine)
}
