// Package server assembles the registry from configuration: storage backend,
// event sinks, session tokens and error reporting.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/authentify/internal/common"
	"github.com/dmitrijs2005/authentify/internal/logging"
	"github.com/dmitrijs2005/authentify/internal/observability"
	"github.com/dmitrijs2005/authentify/internal/server/auth"
	"github.com/dmitrijs2005/authentify/internal/server/config"
	"github.com/dmitrijs2005/authentify/internal/server/events"
	"github.com/dmitrijs2005/authentify/internal/server/models"
	"github.com/dmitrijs2005/authentify/internal/server/repositories/memory"
	"github.com/dmitrijs2005/authentify/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authentify/internal/server/services"
	"github.com/dmitrijs2005/authentify/internal/timex"
)

// Seams for tests.
var (
	openPostgres = func(ctx context.Context, dsn string) (repomanager.RepositoryManager, error) {
		return repomanager.OpenPostgres(ctx, dsn)
	}

	newArchiveSink = func(ctx context.Context, c events.S3Config) (events.Sink, error) {
		return events.NewS3Sink(ctx, c)
	}
)

// App is a configured registry together with its storage and token minting.
type App struct {
	config   *config.Config
	logger   logging.Logger
	repos    repomanager.RepositoryManager
	registry *services.Registry
	tokens   auth.TokenGenerator
	clock    timex.Clock
}

// NewApp builds an App from c, logging JSON to stdout.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	return newApp(ctx, c, logging.NewJSONLogger(slog.LevelInfo))
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if err := observability.InitSentry(c.SentryDSN, c.Environment); err != nil {
		logger.Error(ctx, "sentry init error", "error", err)
	}

	tokens, err := newTokenGenerator(c)
	if err != nil {
		return nil, err
	}

	repos, err := openStorage(ctx, c)
	if err != nil {
		return nil, err
	}

	sink, err := newSink(ctx, c, logger, repos)
	if err != nil {
		_ = repos.Close()
		return nil, err
	}

	registry, err := services.NewRegistry(ctx, repos, models.AccountRef(c.AdminAccount), c.Policy(),
		services.WithLogger(logger),
		services.WithSink(sink),
		services.WithTokenGenerator(tokens),
		services.WithViolationHandler(observability.ViolationReporter(logger)),
	)
	if err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("registry init error: %w", err)
	}

	return &App{
		config:   c,
		logger:   logger,
		repos:    repos,
		registry: registry,
		tokens:   tokens,
		clock:    timex.SystemClock{},
	}, nil
}

func openStorage(ctx context.Context, c *config.Config) (repomanager.RepositoryManager, error) {
	switch c.StorageDriver {
	case config.StorageMemory:
		return memory.NewStore(), nil
	case config.StoragePostgres:
		repos, err := openPostgres(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		if err := repos.RunMigrations(ctx); err != nil {
			_ = repos.Close()
			return nil, fmt.Errorf("db migration error: %w", err)
		}
		return repos, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}
}

func newTokenGenerator(c *config.Config) (auth.TokenGenerator, error) {
	switch c.TokenFormat {
	case config.TokenFormatHex:
		return auth.HexTokenGenerator{}, nil
	case config.TokenFormatJWT:
		return auth.NewJWTTokenGenerator([]byte(c.SecretKey)), nil
	default:
		return nil, fmt.Errorf("unknown token format %q", c.TokenFormat)
	}
}

// newSink logs every event and appends it to the audit log. The S3 archive
// is added when a bucket is configured.
func newSink(ctx context.Context, c *config.Config, logger logging.Logger, repos repomanager.RepositoryManager) (events.Sink, error) {
	sinks := events.Multi{
		events.NewLogSink(logger),
		events.NewStoreSink(repos.Repositories().AuditLog),
	}

	if c.S3Bucket == "" {
		return sinks, nil
	}

	archive, err := newArchiveSink(ctx, events.S3Config{
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("event archive init error: %w", err)
	}
	return append(sinks, archive), nil
}

// Registry is the registry for embedding hosts.
func (app *App) Registry() *services.Registry { return app.registry }

// Tokens mints session tokens in the configured format.
func (app *App) Tokens() auth.TokenGenerator { return app.tokens }

// Clock supplies the timestamps hosts pass to the registry.
func (app *App) Clock() timex.Clock { return app.clock }

// SessionDuration is the configured session lifetime in registry units.
func (app *App) SessionDuration() models.Duration { return app.config.SessionSeconds() }

// AuditTrail returns up to limit persisted registry events, newest first.
func (app *App) AuditTrail(ctx context.Context, limit int) ([]models.AuditRecord, error) {
	recs, err := app.repos.Repositories().AuditLog.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("audit log read error: %w", err)
	}
	return recs, nil
}

// ValidateSession checks token against the registry at the current time.
// In JWT mode the signature and claimed account are checked first.
func (app *App) ValidateSession(ctx context.Context, token string) (models.AccountRef, error) {
	var claimed models.AccountRef
	if app.config.TokenFormat == config.TokenFormatJWT {
		acc, err := auth.AccountFromToken(token, []byte(app.config.SecretKey))
		if err != nil {
			return "", err
		}
		claimed = acc
	}

	acc, err := app.registry.ValidateSession(ctx, token, app.clock.Now())
	if err != nil {
		return "", err
	}
	if claimed != "" && claimed != acc {
		return "", common.ErrInvalidToken
	}
	return acc, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Run blocks until ctx is cancelled or a termination signal arrives, then
// closes the storage.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...",
		"storage", app.config.StorageDriver,
		"admin", app.registry.Admin(),
		"users", app.registry.TotalUsers(),
	)

	app.initSignalHandler(ctx, cancelFunc)

	<-ctx.Done()

	app.logger.Info(context.Background(), "Stopping app...")
	if err := app.Close(); err != nil {
		app.logger.Error(context.Background(), "shutdown error", "error", err)
	}
}

// Close flushes error reporting and closes the storage.
func (app *App) Close() error {
	observability.FlushSentry()
	return app.repos.Close()
}
