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

	"github.com/gorilla/mux"
	"github.com/partyof4/platform/pkg/common/config"
	"github.com/partyof4/platform/pkg/common/database"
	"github.com/partyof4/platform/pkg/common/kafka"
	"github.com/partyof4/platform/pkg/common/logger"
	"github.com/partyof4/platform/pkg/common/models"
	"github.com/partyof4/platform/pkg/lock"
	"github.com/partyof4/platform/pkg/matching"
	"github.com/partyof4/platform/pkg/observability/metrics"
	"github.com/partyof4/platform/pkg/schedule"
)

type MatchingApp struct {
	coordinator *matching.Coordinator
	catalog     schedule.Catalog
	consumer    *kafka.Consumer
}

func main() {
	logger.Init()
	metrics.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	repo := matching.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate matching tables")
	}

	catalog, err := schedule.Load(cfg.ScheduleCatalogPath)
	if err != nil {
		logger.Log.WithError(err).Warn("falling back to default schedule catalog")
	}

	lockManager := lock.NewManager(database.GetRedis())
	locker := matching.NewRedisSlotLocker(lockManager, cfg.MatchLockTTL, cfg.MatchLockRetries, cfg.MatchLockRetryWait)

	producer := kafka.NewProducer(cfg.MatchTopic)
	defer producer.Close()

	var dlq *kafka.Producer
	if cfg.MatchDLQTopic != "" {
		dlq = kafka.NewProducer(cfg.MatchDLQTopic)
		defer dlq.Close()
	}

	coordinator := matching.NewCoordinator(repo, locker, catalog, producer, publisherOrNil(dlq), cfg.MatchReleaseOnCancel)

	app := &MatchingApp{coordinator: coordinator, catalog: catalog}
	app.consumer = kafka.NewConsumer(cfg.RegistrationTopic, "matching-service")
	defer app.consumer.Close()

	sweeper := matching.NewSweeper(repo, coordinator, cfg.MatchSweepInterval, cfg.MatchSweepHorizon)
	sweeper.Start()
	defer sweeper.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := app.consumer.Consume(ctx, app.handleEvent); err != nil && !errors.Is(err, context.Canceled) {
			logger.Log.WithError(err).Fatal("consumer error")
		}
	}()

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	matching.NewHTTPHandler(coordinator, catalog, cfg.MaxRequestBody).Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, "8082"),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": "8082",
		}).Info("Matching Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Matching Service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	logger.Log.Info("Matching Service stopped")
}

// handleEvent reacts to a new registration by trying the affected slot.
func (a *MatchingApp) handleEvent(ctx context.Context, event models.Event) error {
	if event.Type != "candidate_registered" {
		return nil
	}

	raw, ok := event.Data["slot"].(string)
	if !ok {
		return fmt.Errorf("slot missing from event %s", event.ID)
	}
	slot, err := a.catalog.ParseSlot(raw)
	if err != nil {
		return err
	}

	_, err = a.coordinator.AttemptMatch(ctx, slot)
	if errors.Is(err, matching.ErrSlotBusy) {
		// Another attempt is already working the slot; the sweep retries.
		return nil
	}
	return err
}

func publisherOrNil(p *kafka.Producer) matching.Publisher {
	if p == nil {
		return nil
	}
	return p
}
