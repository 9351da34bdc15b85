package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	nethttp "net/http"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/Vishnukv66991/pyshort/internal/adapter/delivery/http"
	"github.com/Vishnukv66991/pyshort/internal/adapter/qr"
	"github.com/Vishnukv66991/pyshort/internal/adapter/repository/postgres"
	"github.com/Vishnukv66991/pyshort/internal/config"
	"github.com/Vishnukv66991/pyshort/internal/usecase"
	"github.com/Vishnukv66991/pyshort/migrations"
	"github.com/Vishnukv66991/pyshort/pkg/middleware/ratelimit"
	pgdb "github.com/Vishnukv66991/pyshort/pkg/postgres"
)

const shutdownTimeout = 10 * time.Second

// NewLogger builds the request logger: JSON in prod, text elsewhere.
func NewLogger(cfg *config.Config) (*httplog.Logger, error) {
	const op = "app.NewLogger"

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return nil, fmt.Errorf("%s: invalid log level: %w", op, err)
	}

	return httplog.NewLogger("pyshort", httplog.Options{
		LogLevel: level,
		JSON:     cfg.Env == config.EnvProd,
		Concise:  cfg.Env == config.EnvDev,
		Tags: map[string]string{
			"env": cfg.Env,
		},
		QuietDownRoutes: []string{"/health"},
		QuietDownPeriod: 10 * time.Second,
	}), nil
}

// NewHandler wires the repository, use case and QR store into the HTTP router.
func NewHandler(cfg *config.Config, db *sqlx.DB, logger *httplog.Logger) (nethttp.Handler, error) {
	const op = "app.NewHandler"

	linkRepo := postgres.NewLinkRepository(db)
	linkUseCase := usecase.New(linkRepo, postgres.NewTransactor(db))
	qrStore := qr.New(cfg.QRDir)

	routerOpts := []http.Option{
		http.WithBaseURL(cfg.BaseURL),
		http.WithPreferredScheme(cfg.PreferredURLScheme),
	}
	if cfg.RateLimit.Enabled() {
		limiter := ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		routerOpts = append(routerOpts, http.WithShortenLimiter(limiter.Handler()))
	}
	if cfg.HTTPServer.TrustProxy {
		routerOpts = append(routerOpts, http.WithTrustedProxy())
	}

	router, err := http.NewRouter(logger, linkUseCase, qrStore, routerOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build router: %w", op, err)
	}

	return router, nil
}

func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	logger, err := NewLogger(cfg)
	if err != nil {
		return err
	}

	db, err := pgdb.New(
		ctx,
		cfg.Postgres.DSN(),
		pgdb.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
		pgdb.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
		pgdb.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
		pgdb.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}
	defer db.Close()

	if err := pgdb.RunMigrations(migrations.FS, cfg.Postgres.DSN()); err != nil {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}
	logger.Info("migrations applied")

	router, err := NewHandler(cfg, db, logger)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	server := &nethttp.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        router,
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server", slog.String("addr", server.Addr), slog.String("env", cfg.Env))

		var err error

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}
