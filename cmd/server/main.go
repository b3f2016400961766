package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	auditstore "eventdesk/internal/audit/store"
	notifcache "eventdesk/internal/notification/cache"
	notifhandler "eventdesk/internal/notification/handler"
	notifservice "eventdesk/internal/notification/service"
	notifstore "eventdesk/internal/notification/store"
	proposalhandler "eventdesk/internal/proposal/handler"
	proposalservice "eventdesk/internal/proposal/service"
	proposalstore "eventdesk/internal/proposal/store"
	userstore "eventdesk/internal/user/store"

	"eventdesk/internal/audit"
	"eventdesk/internal/platform/config"
	"eventdesk/internal/platform/httpserver"
	"eventdesk/internal/platform/logger"
	"eventdesk/internal/platform/metrics"
	"eventdesk/internal/platform/middleware"
	platformredis "eventdesk/internal/platform/redis"
	"eventdesk/internal/platform/scheduler"
)

func main() {
	// Missing .env is fine; the environment wins either way.
	_ = godotenv.Load()

	log := logger.New()
	slog.SetDefault(log)

	cfg := config.FromEnv()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Store selection: postgres when a DSN is configured, in-memory
	// otherwise. The in-memory stores back local development and demos.
	var (
		proposals     proposalservice.Store
		auditEntries  audit.Store
		resolver      audit.ProposalResolver
		notifications notifservice.Store
		users         *userDirectory
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		db.SetMaxOpenConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err != nil {
			return err
		}

		ps := proposalstore.NewPostgres(db)
		proposals, resolver = ps, ps
		auditEntries = auditstore.NewPostgres(db)
		notifications = notifstore.NewPostgres(db)
		users = &userDirectory{store: userstore.NewPostgres(db)}
		log.Info("using postgres stores")
	} else {
		ps := proposalstore.NewInMemory()
		proposals, resolver = ps, ps
		auditEntries = auditstore.NewInMemory()
		notifications = notifstore.NewInMemory()
		users = &userDirectory{store: userstore.NewInMemory()}
		log.Warn("no database configured, using in-memory stores")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		// The cache is an optimization; the service runs without it.
		log.Warn("redis unavailable, unread counts served from the store", "error", err.Error())
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	recorder := audit.NewRecorder(auditEntries, resolver,
		audit.WithLogger(log),
		audit.WithMetrics(m),
	)

	notifOpts := []notifservice.Option{
		notifservice.WithLogger(log),
		notifservice.WithMetrics(m),
		notifservice.WithRetention(cfg.NotificationRetention),
	}
	if redisClient != nil {
		notifOpts = append(notifOpts, notifservice.WithUnreadCache(
			notifcache.NewUnread(redisClient, cfg.Redis.TTL)))
	}
	dispatcher := notifservice.New(notifications, users, notifOpts...)

	workflow := proposalservice.New(proposals, recorder, dispatcher, users,
		proposalservice.WithLogger(log),
		proposalservice.WithMetrics(m),
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())
	proposalhandler.New(workflow, recorder, log).Register(r)
	notifhandler.New(dispatcher, log).Register(r)

	sched := scheduler.New(dispatcher, cfg.CleanupSpec, log)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	srv := httpserver.New(cfg.Addr, r)
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// userDirectory adapts the user store to the directory interfaces the
// proposal and notification services declare.
type userDirectory struct {
	store interface {
		FindAdminID(ctx context.Context) (int64, error)
		ListApprovedIDs(ctx context.Context) ([]int64, error)
	}
}

func (d *userDirectory) FindAdminID(ctx context.Context) (int64, error) {
	return d.store.FindAdminID(ctx)
}

func (d *userDirectory) ListApprovedIDs(ctx context.Context) ([]int64, error) {
	return d.store.ListApprovedIDs(ctx)
}
