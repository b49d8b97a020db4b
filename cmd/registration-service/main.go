package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/partyof4/platform/pkg/common/auth"
	"github.com/partyof4/platform/pkg/common/config"
	"github.com/partyof4/platform/pkg/common/database"
	"github.com/partyof4/platform/pkg/common/kafka"
	"github.com/partyof4/platform/pkg/common/logger"
	"github.com/partyof4/platform/pkg/matching"
	"github.com/partyof4/platform/pkg/registration"
	"github.com/partyof4/platform/pkg/schedule"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	repo := matching.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate candidate tables")
	}

	catalog, err := schedule.Load(cfg.ScheduleCatalogPath)
	if err != nil {
		logger.Log.WithError(err).Warn("falling back to default schedule catalog")
	}

	producer := kafka.NewProducer(cfg.RegistrationTopic)
	defer producer.Close()

	var dlq *kafka.Producer
	if cfg.RegistrationDLQTopic != "" {
		dlq = kafka.NewProducer(cfg.RegistrationDLQTopic)
		defer dlq.Close()
	}

	validator := registration.NewValidator(catalog)
	svc := registration.NewService(validator, repo, producer, publisherOrNil(dlq))
	handler := registration.NewHTTPHandler(svc, catalog, cfg.MaxRequestBody)

	var authenticator *auth.MessengerAuthenticator
	if cfg.MessengerIssuer != "" {
		authenticator, err = auth.NewMessengerAuthenticator(cfg.MessengerIssuer, cfg.MessengerClientID, cfg.MessengerClientSecret)
		if err != nil {
			logger.Log.WithError(err).Fatal("failed to configure messenger login")
		}
	} else {
		logger.Log.Warn("messenger login not configured, intake API is unauthenticated")
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(auth.Middleware(authenticator))
	handler.Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, "8081"),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": "8081",
		}).Info("Registration Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Registration Service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	logger.Log.Info("Registration Service stopped")
}

func publisherOrNil(p *kafka.Producer) registration.Publisher {
	if p == nil {
		return nil
	}
	return p
}
