package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mansoorceksport/gymdesk/internal/config"
	"github.com/mansoorceksport/gymdesk/internal/domain"
	"github.com/mansoorceksport/gymdesk/internal/repository"
	"github.com/mansoorceksport/gymdesk/internal/server"
	"github.com/mansoorceksport/gymdesk/internal/service"
	"github.com/mansoorceksport/gymdesk/internal/telemetry"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Println("Starting GymDesk API...")

	ctx := context.Background()

	otelProvider, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:    cfg.OTEL.ServiceName,
		ServiceVersion: cfg.OTEL.ServiceVersion,
		Environment:    cfg.OTEL.Environment,
		OTLPEndpoint:   cfg.OTEL.Endpoint,
		OTLPHeaders:    telemetry.BasicAuthHeaders(cfg.OTEL.InstanceID, cfg.OTEL.Token),
		Enabled:        cfg.OTEL.Enabled,
		StoreDriver:    cfg.Store.Driver,
	})
	if err != nil {
		log.Printf("Warning: Failed to initialize OpenTelemetry: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		otelProvider.Shutdown(shutdownCtx)
	}()

	stores, err := repository.OpenStores(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Store.Driver, err)
	}
	defer func() {
		if err := stores.Close(context.Background()); err != nil {
			log.Printf("Error closing store: %v", err)
		}
	}()

	var redisClient *redis.Client
	var memberRepo domain.MemberRepository = stores.Members
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       0,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		log.Println("✓ Redis connected")

		cache := repository.NewRedisCacheRepository(redisClient)
		memberRepo = repository.NewCachedMemberRepository(stores.Members, cache, cfg.Redis.MemberCacheTTL)
	}

	var files domain.FileRepository
	if cfg.S3.Enabled() {
		s3Repo, err := repository.NewSeaweedS3Repository(ctx, cfg.S3)
		if err != nil {
			log.Printf("Warning: Failed to initialize S3 repository, exports disabled: %v", err)
		} else {
			files = s3Repo
		}
	}

	memberService := service.NewMembershipService(memberRepo, cfg.Gym.Location)
	if _, err := memberService.List(ctx); err != nil {
		log.Printf("Warning: initial member load failed: %v", err)
	}

	routineService := service.NewRoutineService(stores.Exercises, stores.Routines)
	startCtx, cancelStart := context.WithTimeout(ctx, 15*time.Second)
	err = routineService.Start(startCtx)
	cancelStart()
	if err != nil {
		log.Fatalf("Failed to start routine feeds: %v", err)
	}
	defer routineService.Close()

	app := server.NewApp(server.AppDependencies{
		Config:         cfg,
		MemberService:  memberService,
		RoutineService: routineService,
		ExportService:  service.NewExportService(memberService, files),
		RedisClient:    redisClient,
	})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down gracefully...")
		routineService.Close()
		app.Shutdown()
	}()

	log.Printf("🚀 Server starting on port %s", cfg.Server.Port)
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
