package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/dhos/janitor/internal/client"
	"github.com/dhos/janitor/internal/config"
	"github.com/dhos/janitor/internal/domain/populate"
	"github.com/dhos/janitor/internal/domain/reset"
	"github.com/dhos/janitor/internal/domain/token"
	"github.com/dhos/janitor/internal/fixtures"
	"github.com/dhos/janitor/internal/platform/auth"
	"github.com/dhos/janitor/internal/platform/db"
	"github.com/dhos/janitor/internal/platform/jobs"
)

// app is the wired dependency graph shared by every command.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger

	jwtConfig auth.JWTConfig
	clients   *client.Repository
	tokens    *token.Service
	store     jobs.Store
	reset     *reset.Service
	populate  *populate.Service

	pool *pgxpool.Pool
	rdb  *redis.Client
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newApp connects the task store and builds the services.
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	seed, err := fixtures.Load()
	if err != nil {
		return nil, fmt.Errorf("load fixtures: %w", err)
	}
	clients, err := client.New(cfg.ClientConfig(), logger)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		clients: clients,
		jwtConfig: auth.JWTConfig{
			Issuer:     auth.IssuerFor(cfg.ProxyURL),
			Audience:   cfg.ProxyURL,
			SigningKey: []byte(cfg.HSKey),
			Skipper:    auth.AuthSkipper,
		},
	}
	a.tokens = token.NewService(token.Config{
		SystemLifetime:    seconds(cfg.SystemJWTLifetimeSeconds),
		ClinicianLifetime: seconds(cfg.ClinicianJWTLifetimeSec),
		PatientLifetime:   seconds(cfg.PatientJWTLifetimeSeconds),
		TTLCoefficient:    cfg.JWTTTLCoefficient,
	}, auth.NewSigner(a.jwtConfig), seed, clients, logger)
	a.reset = reset.NewService(clients, a.tokens, seed, cfg.GlucoseProfile, logger)
	a.populate = populate.NewService(clients, a.tokens, cfg.GlucoseProfile, logger)

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	retention := a.cfg.TaskRetention()
	switch a.cfg.TaskStore {
	case config.TaskStoreRedis:
		rdb, err := jobs.NewRedisClient(ctx, a.cfg.RedisURL)
		if err != nil {
			return err
		}
		a.rdb = rdb
		a.store = jobs.NewRedisStore(rdb, retention, jobs.DefaultLockTTL)
		a.logger.Info().Msg("using redis task store")
	case config.TaskStorePostgres:
		pool, err := db.NewPool(ctx, a.cfg.DatabaseURL, a.cfg.DBMaxConns, a.cfg.DBMinConns)
		if err != nil {
			return err
		}
		a.pool = pool
		n, err := jobs.Migrate(ctx, pool)
		if err != nil {
			return fmt.Errorf("migrate task store: %w", err)
		}
		a.store = jobs.NewPGStore(pool, retention)
		a.logger.Info().Int("migrations", n).Msg("using postgres task store")
	default:
		a.store = jobs.NewMemoryStore(retention)
	}
	return nil
}

func (a *app) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.rdb != nil {
		a.rdb.Close()
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
