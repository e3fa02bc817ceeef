package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dhos/janitor/internal/domain/populate"
	"github.com/dhos/janitor/internal/domain/reset"
	"github.com/dhos/janitor/internal/domain/token"
	"github.com/dhos/janitor/internal/platform/auth"
	"github.com/dhos/janitor/internal/platform/db"
	"github.com/dhos/janitor/internal/platform/jobs"
	"github.com/dhos/janitor/internal/platform/middleware"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

const tokenCleanupInterval = time.Minute

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the janitor HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	a.tokens.StartCleanup(ctx, tokenCleanupInterval)

	e := newServer(a)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Str("task_store", cfg.TaskStore).Msg("starting janitor server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// newServer registers every route on a fresh echo instance.
func newServer(a *app) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = httpErrorHandler(a.logger)

	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.logger))

	e.GET("/running", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.GET("/version", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"version": version})
	})
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "task_store": a.cfg.TaskStore})
	})
	if a.pool != nil {
		e.GET("/health/db", db.HealthHandler(a.pool))
	}

	api := e.Group("/dhos/v1")
	api.Use(authMiddleware(a))
	api.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: a.cfg.RateLimitRPS,
		BurstSize:         a.cfg.RateLimitBurst,
	}))

	token.NewHandler(a.tokens).RegisterRoutes(api)

	tasks := api.Group("", auth.RequireSystem())
	reset.NewHandler(a.reset, a.store, a.cfg.AllowDropData, a.logger).RegisterRoutes(tasks)
	populate.NewHandler(a.populate, a.store, a.logger).RegisterRoutes(tasks)
	tasks.GET("/task/:task_id", jobs.StatusHandler(a.store))

	return e
}

// authMiddleware validates system JWTs, or accepts every caller as a dev
// system when auth is disabled.
func authMiddleware(a *app) echo.MiddlewareFunc {
	if a.cfg.AuthDisabled {
		a.logger.Warn().Msg("authentication disabled")
		return auth.DevAuthMiddleware()
	}
	return auth.JWTMiddleware(a.jwtConfig)
}

// httpErrorHandler renders errors as {"code", "message"}. Errors that are not
// already echo.HTTPErrors are mapped by classification so failed downstream
// calls surface as 503 and bad input as 400.
func httpErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if !errors.As(err, &he) {
			switch jobs.Classify(err) {
			case jobs.ClassValidation:
				he = echo.NewHTTPError(http.StatusBadRequest, err.Error())
			case jobs.ClassServiceUnavailable:
				he = echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
			default:
				logger.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
				he = echo.NewHTTPError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			}
		}

		msg := he.Message
		if m, ok := msg.(string); ok {
			msg = map[string]any{"code": he.Code, "message": m}
		}
		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(he.Code)
		} else {
			werr = c.JSON(he.Code, msg)
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("failed to write error response")
		}
	}
}
