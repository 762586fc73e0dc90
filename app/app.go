// Package app assembles the scribe service from its configuration.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/scribe/api"
	"github.com/kbukum/scribe/auth"
	"github.com/kbukum/scribe/auth/jwt"
	"github.com/kbukum/scribe/bootstrap"
	"github.com/kbukum/scribe/database"
	"github.com/kbukum/scribe/encryption"
	"github.com/kbukum/scribe/kafka/producer"
	"github.com/kbukum/scribe/observability"
	"github.com/kbukum/scribe/recording"
	"github.com/kbukum/scribe/redis"
	"github.com/kbukum/scribe/server"
	"github.com/kbukum/scribe/server/middleware"
	"github.com/kbukum/scribe/session"
	"github.com/kbukum/scribe/session/redisstore"
	"github.com/kbukum/scribe/session/sqlstore"
	"github.com/kbukum/scribe/storage"
	"github.com/kbukum/scribe/transcription"

	_ "github.com/kbukum/scribe/storage/memory"
)

// App is the assembled service.
type App struct {
	*bootstrap.App[*Config]

	storage  *storage.Component
	sessions func() session.Registry
	kafka    *producer.Component
	server   *server.Server
	service  *recording.Service
}

// New builds the infrastructure components for cfg. The business layer and
// the HTTP server are built once those components have started.
func New(cfg *Config, opts ...bootstrap.Option) (*App, error) {
	b, err := bootstrap.NewApp(cfg, opts...)
	if err != nil {
		return nil, err
	}
	a := &App{App: b}
	log := b.Logger

	obs := observability.NewComponent(cfg.Observability, observability.Resource{
		ServiceName: cfg.Name,
		Version:     cfg.Version,
		Environment: cfg.Environment,
	}, log)
	a.storage = storage.NewComponent(cfg.Storage.Config, cfg.Storage.Backend(), log)
	if err := b.RegisterComponent(obs); err != nil {
		return nil, err
	}
	if err := b.RegisterComponent(a.storage); err != nil {
		return nil, err
	}

	switch cfg.Registry.Backend {
	case RegistryRedis:
		rc := redis.NewComponent(cfg.Redis, log)
		if err := b.RegisterComponent(rc); err != nil {
			return nil, err
		}
		a.sessions = func() session.Registry { return redisstore.New(rc.Client()) }
	case RegistrySQL:
		dc := database.NewComponent(cfg.Database, log).WithMigrations(sqlstore.Migrations())
		if err := b.RegisterComponent(dc); err != nil {
			return nil, err
		}
		a.sessions = func() session.Registry { return sqlstore.New(dc.DB()) }
	default:
		a.sessions = func() session.Registry { return session.NewMemoryRegistry() }
	}

	if key := cfg.Registry.EncryptionKey; key != "" {
		c, err := encryption.New(key, encryption.WithAlgorithm(cfg.Registry.EncryptionAlgorithm))
		if err != nil {
			return nil, fmt.Errorf("registry encryption: %w", err)
		}
		plain := a.sessions
		a.sessions = func() session.Registry { return session.NewSealedRegistry(plain(), c) }
	}

	if cfg.Kafka.Enabled {
		a.kafka = producer.NewComponent(cfg.Kafka.Config, log)
		if err := b.RegisterComponent(a.kafka); err != nil {
			return nil, err
		}
	}

	b.OnConfigure(a.configure)
	return a, nil
}

// Service returns the orchestrator, or nil before start.
func (a *App) Service() *recording.Service { return a.service }

// Addr returns the HTTP listen address, or "" before start.
func (a *App) Addr() string {
	if a.server == nil {
		return ""
	}
	return a.server.Addr()
}

func (a *App) configure(_ context.Context, b *bootstrap.App[*Config]) error {
	cfg, log := b.Cfg, b.Logger

	backend, err := transcription.New(cfg.Transcription.Provider, transcription.Options{
		Backend: cfg.Transcription.Backend(),
		Log:     log,
	})
	if err != nil {
		return fmt.Errorf("transcription backend: %w", err)
	}
	blobs := a.storage.Gateway()
	transcriber := transcription.NewGateway(backend, blobs, cfg.Transcription.Config, log)

	opts := []recording.Option{recording.WithMeter(observability.Meter())}
	if a.kafka != nil {
		opts = append(opts, recording.WithEventPublisher(newKafkaEvents(
			producer.NewPublisher(a.kafka.Producer(), log), a.kafka.Topic(), cfg.Name,
		)))
	}
	a.service = recording.NewService(a.sessions(), blobs, transcriber, cfg.Recording, log, opts...)
	if err := b.RegisterComponent(recording.NewReaper(a.service, log)); err != nil {
		return err
	}

	tokens, err := jwt.NewService(cfg.Auth, func() *auth.Claims { return &auth.Claims{} })
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	srv := server.New(cfg.Server, log)
	var metrics *observability.HTTPMetrics
	if cfg.Observability.Enabled {
		if metrics, err = observability.NewHTTPMetrics(observability.Meter()); err != nil {
			return fmt.Errorf("http metrics: %w", err)
		}
	}
	srv.ApplyMiddleware(metrics)
	srv.RegisterHealthEndpoints(cfg.Name, cfg.Version, b.Components.HealthAll)
	a.registerRoutes(srv.Engine(), tokens)

	a.server = srv
	return b.RegisterComponent(server.NewComponent(srv))
}

func (a *App) registerRoutes(e *gin.Engine, tokens *jwt.Service[*auth.Claims]) {
	cfg, log := a.Cfg, a.Logger

	// Browser uploads to the local backend carry a grant instead of a bearer token.
	if blobs := api.NewBlobHandler(a.storage.Store(), log); blobs != nil {
		blobs.Register(e)
	}

	authed := e.Group("/",
		middleware.Auth(middleware.AuthConfig{Validator: tokens.Validator()}),
		middleware.RateLimit(cfg.Server.RateLimit),
	)
	api.NewHandler(a.service, cfg.Recording.MaxWholeFileBytes, log).Register(authed)
}
