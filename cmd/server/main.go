package main

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-router"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/goayu/ayushya"
	"github.com/goayu/ayushya/config"
	"github.com/goayu/ayushya/consultation"
	"github.com/goayu/ayushya/dosha"
	"github.com/goayu/ayushya/middleware/jwtware"
	"github.com/goayu/ayushya/notifier"
)

func main() {
	logger := newLogger()

	cfg, err := config.New()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	defer stop()

	repo, err := withPersistence(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize persistence")
	}

	auther := ayushya.NewAuthenticator(repo, cfg).
		WithLogger(zerologAdapter{logger.With().Str("component", "auth").Logger()}).
		WithActivitySink(ayushya.NewStoreActivitySink(repo.Activity()))

	if mailCfg, err := notifier.NewConfig(); err == nil && mailCfg.Validate() == nil {
		mail, err := notifier.New(mailCfg, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize notifier")
		}
		auther.WithNotifier(mail)
	} else {
		logger.Warn().Msg("smtp not configured, one-time codes will only be logged")
	}

	httpAuth, err := ayushya.NewHTTPAuthenticator(auther, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize http auth")
	}

	httpAuth.OnTokenValidated(func(ctx router.Context, claims jwtware.AuthClaims) error {
		logger.Debug().
			Str("subject", claims.Subject()).
			Str("path", ctx.Path()).
			Msg("authenticated request")
		return nil
	})

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:  true,
			StrictRouting: false,
			AppName:       "ayushya",
		}))
	})

	protected := httpAuth.ProtectedRoute(cfg, httpAuth.MakeAuthErrorHandler(false))
	admin := httpAuth.AdminRoute(cfg, httpAuth.MakeAuthErrorHandler(false))

	ayushya.RegisterAuthRoutes(srv.Router().Group("/"),
		ayushya.WithControllerRepo(repo),
		ayushya.WithControllerAuther(auther),
		ayushya.WithControllerMiddleware(protected, admin),
		ayushya.WithControllerContextKey(cfg.GetContextKey()),
		ayushya.WithControllerLogger(zerologAdapter{logger.With().Str("component", "auth:ctrl").Logger()}),
	)

	registerWellnessRoutes(srv.Router().Group("/"), logger, protected)

	sweeper := ayushya.NewSweeper(auther,
		ayushya.WithSweepInterval(cfg.SweepInterval),
		ayushya.WithSweeperLogger(zerologAdapter{logger.With().Str("component", "sweeper").Logger()}),
	)
	go func() {
		if err := sweeper.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("sweeper stopped")
		}
	}()

	go func() {
		logger.Info().Str("addr", cfg.ServerAddr).Msg("starting server")
		srv.Serve(cfg.ServerAddr)
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
}

func withPersistence(ctx context.Context, cfg *config.App, logger zerolog.Logger) (ayushya.RepositoryManager, error) {
	db, err := sql.Open(sqliteshim.ShimName, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	persistence.RegisterModel((*ayushya.User)(nil))
	persistence.RegisterModel((*ayushya.Challenge)(nil))
	persistence.RegisterModel((*ayushya.Session)(nil))
	persistence.RegisterModel((*ayushya.ActivityRecord)(nil))

	client, err := persistence.New(cfg.GetPersistence(), db, sqlitedialect.New())
	if err != nil {
		return nil, err
	}

	migrationsFS, err := fs.Sub(ayushya.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return nil, err
	}
	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)
	if err := client.ValidateDialects(ctx); err != nil {
		return nil, err
	}

	if err := client.Migrate(ctx); err != nil {
		return nil, err
	}

	logger.Info().Str("dsn", cfg.DatabaseDSN).Msg("database ready")

	// Lifecycle transitions performed through the users repository land in
	// the activity log alongside the auth events.
	sink := ayushya.NewStoreActivitySink(ayushya.NewActivityRepository(client.DB()))

	return ayushya.NewRepositoryManager(client.DB(),
		ayushya.WithUsersStateMachineOptions(ayushya.WithStateMachineActivitySink(sink)),
	), nil
}

// registerWellnessRoutes mounts the questionnaire scoring and daily tip
// endpoints next to the auth API.
func registerWellnessRoutes[T any](app router.Router[T], logger zerolog.Logger, protected router.MiddlewareFunc) {
	advice := consultation.NewService(
		consultation.AdviceClientFunc(func(ctx context.Context, prompt string) (string, error) {
			// Generation backend is wired per deployment; without one the
			// consultation endpoints degrade to their fallback payloads.
			return "", errors.New("no generation backend configured")
		}),
		logger,
	)

	score := func(ctx router.Context) error {
		payload := new(dosha.QuestionnaireResponse)
		if err := ctx.Bind(payload); err != nil {
			return ctx.JSON(router.StatusBadRequest, map[string]any{
				"error": map[string]any{
					"message":   "failed to parse request body",
					"text_code": "BAD_REQUEST",
				},
			})
		}

		if err := payload.Validate(); err != nil {
			return ctx.JSON(router.StatusBadRequest, map[string]any{
				"error": map[string]any{
					"message":   "validation failed",
					"text_code": "VALIDATION_FAILED",
					"fields":    ayushya.FormatValidationErrorToMap(err),
				},
			})
		}

		return ctx.JSON(router.StatusOK, map[string]any{
			"analysis": dosha.Score(*payload),
		})
	}

	tip := func(ctx router.Context) error {
		userDosha := ctx.Query("dosha", "")
		return ctx.JSON(router.StatusOK, map[string]any{
			"tip": advice.GenerateDailyTip(ctx.Context(), userDosha),
		})
	}

	app.Post("/questionnaire/score", score, protected).SetName("questionnaire.score.post")
	app.Get("/wellness/daily-tip", tip).SetName("wellness.daily-tip.get")
}

// zerologAdapter bridges zerolog to the auth package's printf-style logger.
type zerologAdapter struct {
	l zerolog.Logger
}

func (z zerologAdapter) Debug(format string, args ...any) { z.l.Debug().Msgf(format, args...) }
func (z zerologAdapter) Info(format string, args ...any)  { z.l.Info().Msgf(format, args...) }
func (z zerologAdapter) Warn(format string, args ...any)  { z.l.Warn().Msgf(format, args...) }
func (z zerologAdapter) Error(format string, args ...any) { z.l.Error().Msgf(format, args...) }

func newLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		With().
		Timestamp().
		Logger()
}
