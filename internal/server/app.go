// Package server initializes and runs the chat backend: it opens the
// database, applies migrations, wires the services, and drives the periodic
// cleanup sweeps until shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/secrypt/secrypt/internal/dbx"
	"github.com/secrypt/secrypt/internal/logging"
	"github.com/secrypt/secrypt/internal/server/config"
	"github.com/secrypt/secrypt/internal/server/repositories/repomanager"
	"github.com/secrypt/secrypt/internal/server/services"
	"github.com/secrypt/secrypt/internal/server/sweeper"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB

	Identities    *services.IdentityService
	Conversations *services.ConversationService
	Memberships   *services.MembershipService
	Contents      *services.ContentService
	Reactions     *services.ReactionService
	Attachments   *services.AttachmentService

	sweeper *sweeper.Sweeper
}

// NewApp opens the database, runs migrations, and wires every service.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	err = dbx.WithRetry(ctx, func(ctx context.Context) error {
		return db.PingContext(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	app := &App{
		config:        cfg,
		logger:        logger,
		db:            db,
		Identities:    services.NewIdentityService(db, m, cfg),
		Conversations: services.NewConversationService(db, m, cfg),
		Memberships:   services.NewMembershipService(db, m, cfg),
		Contents:      services.NewContentService(db, m, cfg),
		Reactions:     services.NewReactionService(db, m, cfg),
		Attachments:   services.NewAttachmentService(db, m, cfg),
	}
	app.sweeper = sweeper.New(cfg.SweepInterval, cfg.AccessLogRetention, app.Attachments, app.Reactions, logger)

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run blocks until the context is cancelled or a termination signal
// arrives, then closes the database.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app", "sweep_interval", app.config.SweepInterval.String())

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.sweeper.Run(ctx)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "app stopped")
}
