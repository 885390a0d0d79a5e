// Package main boots the Conference Central HTTP API, its task workers and
// the announcement refresher.
//
// @title Conference Central API
// @version 1.0
// @description Conferences, sessions, speakers, registrations and wishlists.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"conferencecentral/config"
	_ "conferencecentral/docs"
	"conferencecentral/internal/adapters/auth"
	"conferencecentral/internal/adapters/email"
	"conferencecentral/internal/cache"
	httpapi "conferencecentral/internal/delivery/http"
	"conferencecentral/internal/delivery/http/controllers"
	"conferencecentral/internal/delivery/http/middleware"
	"conferencecentral/internal/domain"
	"conferencecentral/internal/queue"
	"conferencecentral/internal/repository/dynamo"
	"conferencecentral/internal/repository/memory"
	"conferencecentral/internal/repository/postgres"
	"conferencecentral/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("service stopped with error", "err", err)
		os.Exit(1)
	}
}

// backends holds the storage clients selected by configuration.
type backends struct {
	store domain.EntityStore
	cache domain.Cache
	db    *sql.DB
}

func (b *backends) close() {
	if b.db != nil {
		_ = b.db.Close()
	}
}

func openPostgres(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	b := &backends{}
	if cfg.StoreBackend == config.BackendPostgres || cfg.CacheBackend == config.BackendPostgres {
		db, err := openPostgres(ctx, cfg.DBUrl)
		if err != nil {
			return nil, err
		}
		b.db = db
	}

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		b.store = postgres.NewEntityStore(b.db, cfg.TxMaxAttempts)
	case config.BackendDynamoDB:
		client, err := dynamo.NewClient(ctx, cfg.AWSRegion)
		if err != nil {
			b.close()
			return nil, err
		}
		b.store = dynamo.NewEntityStore(client, cfg.DynamoDBTable, cfg.TxMaxAttempts)
	default:
		b.store = memory.NewEntityStore(cfg.TxMaxAttempts)
	}

	if cfg.CacheBackend == config.BackendPostgres {
		b.cache = postgres.NewCache(b.db)
	} else {
		b.cache = cache.NewMemoryCache()
	}
	return b, nil
}

// refreshAnnouncements recomputes the announcement now and on every tick
// until ctx is done.
func refreshAnnouncements(ctx context.Context, svc domain.AnnouncementService, interval time.Duration, logger *slog.Logger) {
	refresh := func() {
		text, err := svc.Refresh(ctx)
		if err != nil {
			logger.WarnContext(ctx, "announcement refresh failed", "err", err)
			return
		}
		logger.DebugContext(ctx, "announcement refreshed", "announcement", text)
	}
	refresh()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("service starting", "store", cfg.StoreBackend, "cache", cfg.CacheBackend, "env", cfg.Environment)

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close()

	mailer, err := email.NewMailer(ctx, email.MailerConfig{
		Provider:    cfg.EmailProvider,
		FromAddress: cfg.EmailFromAddress,
		FromName:    cfg.EmailFromName,
		SES: email.SESConfig{
			Region:          cfg.SESRegion,
			AccessKeyID:     cfg.SESAccessKeyID,
			SecretAccessKey: cfg.SESSecretAccessKey,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("create mailer: %w", err)
	}
	emailService := services.NewEmailService(mailer, email.NewTemplateRenderer(), logger)

	q := queue.New(cfg.QueueBuffer, logger)
	tasks := queue.NewManager(queue.Config{
		Workers:       cfg.QueueWorkers,
		MaxAttempts:   cfg.TaskMaxAttempts,
		RetryDelay:    cfg.TaskRetryDelay,
		HighWatermark: cfg.QueueBuffer * 4,
	}, q, logger)
	tasks.Handle(domain.TaskSetFeaturedSpeaker, services.NewFeaturedSpeakerHandler(b.store, b.cache, logger).Handle)
	tasks.Handle(domain.TaskSendConfirmationEmail, services.NewConfirmationEmailHandler(emailService))

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	tasks.Start(workerCtx)

	timeout := cfg.RequestTimeout
	registrations := services.NewRegistrationService(b.store, timeout)
	sessions := services.NewSessionService(b.store, tasks, logger, timeout)
	announcements := services.NewAnnouncementService(b.store, b.cache, timeout)

	go refreshAnnouncements(ctx, announcements, cfg.AnnouncementInterval, logger)

	mux := httpapi.NewRouter(httpapi.Controllers{
		Profile: controllers.NewProfileController(logger, services.NewProfileService(b.store, timeout)),
		Conference: controllers.NewConferenceController(logger,
			services.NewConferenceService(b.store, tasks, logger, timeout),
			registrations,
			announcements),
		Session:  controllers.NewSessionController(logger, sessions),
		Speaker:  controllers.NewSpeakerController(logger, services.NewSpeakerService(b.store, b.cache, timeout)),
		Wishlist: controllers.NewWishlistController(logger, registrations),
	}, middleware.RequireAuth(auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer), logger))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           middleware.CORS(cfg.CORSAllowedOrigins, middleware.LoggingMiddleware(logger, mux)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		tasks.Stop()
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "err", err)
	}

	tasks.CloseIntake()
	_, _, backlog, depth := tasks.QueueMetrics()
	logger.Info("draining tasks", "backlog_size", backlog, "queue_depth", depth)
	if !tasks.DrainUntil(shutdownCtx) {
		logger.Warn("task drain timed out")
	}
	tasks.Stop()
	logger.Info("service stopped")
	return nil
}
