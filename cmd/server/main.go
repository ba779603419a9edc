package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"convene/internal/deletion/handler"
	deletionService "convene/internal/deletion/service"
	"convene/internal/deletion/store/archive"
	"convene/internal/deletion/store/grant"
	"convene/internal/deletion/store/pending"
	"convene/internal/deletion/store/txrunner"
	"convene/internal/deletion/sweeper"
	"convene/internal/platform/config"
	"convene/internal/platform/httpserver"
	"convene/internal/platform/logger"
	"convene/internal/platform/metrics"
	"convene/internal/platform/postgres"
	registrationHandler "convene/internal/registration/handler"
	registrationService "convene/internal/registration/service"
	"convene/internal/registration/store/account"
	"convene/internal/registration/store/event"
	"convene/internal/registration/store/feedback"
	"convene/internal/registration/store/registration"
	httptransport "convene/internal/transport/http"
	auditpg "convene/pkg/platform/audit/store/postgres"
	"convene/pkg/requestcontext"
)

// main wires dependencies and keeps the server lifecycle small. Lifecycle
// rules live in the internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(cfg.PostgresDSN)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	m := metrics.New()

	accounts := account.NewPostgres(db)
	events := event.NewPostgres(db)
	registrations := registration.NewPostgres(db)
	feedbackStore := feedback.NewPostgres(db)
	pendingStore := pending.NewPostgres(db)
	archiveStore := archive.NewPostgres(db)
	grantStore := grant.NewPostgres(db)
	auditStore := auditpg.New(db)

	regSvc, err := registrationService.New(accounts, events, registrations,
		registrationService.WithLogger(log),
		registrationService.WithAudit(auditStore),
		registrationService.WithMetrics(m),
	)
	if err != nil {
		log.Error("failed to build registration service", "error", err)
		os.Exit(1)
	}

	delSvc, err := deletionService.New(
		accounts, registrations, pendingStore, archiveStore, grantStore,
		feedbackStore, auditStore, txrunner.NewPostgres(db),
		deletionService.WithLogger(log),
		deletionService.WithMetrics(m),
	)
	if err != nil {
		log.Error("failed to build deletion service", "error", err)
		os.Exit(1)
	}

	sweep, err := sweeper.New(pendingStore, delSvc, auditStore,
		sweeper.WithLogger(log),
		sweeper.WithMetrics(m),
		sweeper.WithConcurrency(cfg.SweepConcurrency),
	)
	if err != nil {
		log.Error("failed to build sweeper", "error", err)
		os.Exit(1)
	}

	router := httptransport.NewRouter(
		registrationHandler.New(regSvc, log),
		handler.New(delSvc, sweep, log),
		log,
	)
	srv := httpserver.New(cfg.Addr, router)

	go runSweepLoop(ctx, sweep, cfg.SweepInterval, log)

	go func() {
		log.Info("starting server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// runSweepLoop triggers the batch sweeper on a fixed cadence. An external
// scheduler hitting POST /internal/sweep serves the same purpose; both paths
// are safe to run together since a pending row is only due once.
func runSweepLoop(ctx context.Context, sweep *sweeper.Sweeper, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCtx := requestcontext.WithRequestID(ctx, "sweep-"+time.Now().UTC().Format(time.RFC3339))
			if _, err := sweep.RunDue(runCtx, time.Now().UTC()); err != nil {
				log.ErrorContext(runCtx, "scheduled sweep failed", "error", err)
			}
		}
	}
}
