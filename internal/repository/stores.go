package repository

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mansoorceksport/gymdesk/internal/config"
	"github.com/mansoorceksport/gymdesk/internal/domain"
	"github.com/mansoorceksport/gymdesk/internal/infrastructure/firebase"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
)

// Stores bundles the repositories of the configured document store
type Stores struct {
	Members   domain.MemberRepository
	Exercises domain.ExerciseRepository
	Routines  domain.RoutineRepository

	close func(context.Context) error
}

// Close releases the underlying client
func (s *Stores) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// OpenStores connects to the driver selected by cfg.Store.Driver
func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	switch cfg.Store.Driver {
	case config.DriverMongo:
		return openMongo(ctx, cfg)
	case config.DriverFirestore:
		return openFirestore(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func openMongo(ctx context.Context, cfg *config.Config) (*Stores, error) {
	ctxMongo, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	mongoOpts := options.Client().ApplyURI(cfg.MongoDB.URI)
	if cfg.OTEL.Enabled {
		mongoOpts.SetMonitor(otelmongo.NewMonitor())
	}

	client, err := mongo.Connect(ctxMongo, mongoOpts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctxMongo, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	log.Println("✓ MongoDB connected")

	db := client.Database(cfg.MongoDB.Database)
	return &Stores{
		Members:   NewMongoMemberRepository(db),
		Exercises: NewMongoExerciseRepository(db, cfg.Store.WatchPollInterval),
		Routines:  NewMongoRoutineRepository(db, cfg.Store.WatchPollInterval),
		close:     client.Disconnect,
	}, nil
}

func openFirestore(ctx context.Context, cfg *config.Config) (*Stores, error) {
	app, err := firebase.InitApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.PrivateKey, cfg.Firebase.ClientEmail)
	if err != nil {
		return nil, err
	}
	client, err := firebase.NewFirestoreClient(ctx, app)
	if err != nil {
		return nil, err
	}
	log.Println("✓ Firestore connected")

	return &Stores{
		Members:   NewFirestoreMemberRepository(client),
		Exercises: NewFirestoreExerciseRepository(client),
		Routines:  NewFirestoreRoutineRepository(client),
		close: func(context.Context) error {
			return client.Close()
		},
	}, nil
}
