package server

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/mansoorceksport/gymdesk/internal/config"
	"github.com/mansoorceksport/gymdesk/internal/handler"
	"github.com/mansoorceksport/gymdesk/internal/middleware"
	"github.com/mansoorceksport/gymdesk/internal/service"
	"github.com/mansoorceksport/gymdesk/internal/telemetry"
	"github.com/redis/go-redis/v9"
)

// AppDependencies holds the dependencies required to start the application
type AppDependencies struct {
	Config         *config.Config
	MemberService  *service.MembershipService
	RoutineService *service.RoutineService
	ExportService  *service.ExportService
	// RedisClient enables idempotent replay of writes; nil disables it
	RedisClient *redis.Client
}

// NewApp creates and configures the Fiber application with the given dependencies
func NewApp(deps AppDependencies) *fiber.App {
	memberHandler := handler.NewMemberHandler(deps.MemberService, deps.ExportService)
	routineHandler := handler.NewRoutineHandler(deps.RoutineService)

	app := fiber.New(fiber.Config{
		AppName:      "GymDesk API",
		ErrorHandler: customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, " + middleware.CorrelationIDHeader,
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))
	if deps.Config.OTEL.Enabled {
		app.Use(telemetry.FiberMiddleware())
	}

	app.Get("/health", handler.Health)

	v1 := app.Group("/v1")

	// Static paths are registered before /:id so they win the match
	members := v1.Group("/members")
	if deps.RedisClient != nil {
		members.Use(middleware.Idempotency(deps.RedisClient, deps.Config.Server.IdempotencyTTL))
	}
	members.Get("/", memberHandler.List)
	members.Get("/stats", memberHandler.Stats)
	members.Get("/search", memberHandler.Search)
	members.Get("/busy", memberHandler.Busy)
	members.Post("/reload", memberHandler.Reload)
	members.Post("/export", memberHandler.Export)
	members.Post("/", memberHandler.Create)
	members.Get("/:id", memberHandler.Get)
	members.Patch("/:id", memberHandler.Update)
	members.Delete("/:id", memberHandler.Delete)
	members.Post("/:id/extend", memberHandler.Extend)

	exercises := v1.Group("/exercises")
	exercises.Get("/", routineHandler.ListExercises)
	exercises.Post("/", routineHandler.CreateExercise)
	exercises.Delete("/:id", routineHandler.DeleteExercise)

	routines := v1.Group("/routines")
	routines.Get("/", routineHandler.ListRoutines)
	routines.Get("/stream", routineHandler.StreamRoutines)
	routines.Delete("/:id", routineHandler.DeleteRoutine)

	draft := v1.Group("/draft")
	draft.Get("/", routineHandler.GetDraft)
	draft.Post("/new", routineHandler.NewDraft)
	draft.Post("/load/:id", routineHandler.LoadDraft)
	draft.Patch("/meta", routineHandler.SetMeta)
	draft.Put("/days/:day", routineHandler.SetDay)
	draft.Post("/days/:day/exercises", routineHandler.AddDayExercise)
	draft.Patch("/days/:day/exercises/:index", routineHandler.UpdateDayExercise)
	draft.Delete("/days/:day/exercises/:index", routineHandler.RemoveDayExercise)
	draft.Post("/save", routineHandler.SaveDraft)

	return app
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	log.Printf("Error: %v", err)
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
