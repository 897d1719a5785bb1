package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ctf-labs/lab-publisher/pkg/common/config"
	"github.com/ctf-labs/lab-publisher/pkg/common/kafka"
	"github.com/ctf-labs/lab-publisher/pkg/common/logger"
	"github.com/ctf-labs/lab-publisher/pkg/credentials"
	"github.com/ctf-labs/lab-publisher/pkg/issue"
	"github.com/ctf-labs/lab-publisher/pkg/lab"
	"github.com/ctf-labs/lab-publisher/pkg/observability/metrics"
	"github.com/ctf-labs/lab-publisher/pkg/publisher"
	"github.com/ctf-labs/lab-publisher/pkg/store"
	"github.com/ctf-labs/lab-publisher/pkg/webhook"
	"github.com/gorilla/mux"
)

func main() {
	logger.Init()
	cfg := config.Load()

	if cfg.GitHubWebhookSecret == "" {
		if !cfg.AllowUnsigned {
			logger.Log.Fatal("GITHUB_WEBHOOK_SECRET is required (set ALLOW_UNSIGNED_WEBHOOKS=true for local development)")
		}
		logger.Log.Warn("ALLOW_UNSIGNED_WEBHOOKS set, webhook signatures will not be verified")
	}

	tpl, err := issue.LoadTemplate(cfg.IssueTemplatePath)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load issue template")
	}
	extractor, err := issue.NewExtractor(tpl)
	if err != nil {
		logger.Log.WithError(err).Fatal("invalid issue template")
	}

	var sa *credentials.ServiceAccount
	if cfg.StoreDriver == config.DriverFirestore {
		if err := config.RequireEnv(config.EnvServiceAccount); err != nil {
			logger.Log.WithError(err).Fatal("missing store credentials")
		}
		sa, err = credentials.Parse(cfg.ServiceAccountJSON)
		if err != nil {
			logger.Log.WithError(err).Fatal("failed to load store credentials")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writer, err := store.Open(ctx, cfg, sa)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to open document store")
	}
	defer writer.Close()

	var notifier publisher.Notifier
	if cfg.NotificationsEnabled() {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.LabEventsTopic)
		defer producer.Close()
		notifier = producer
	}

	svc := publisher.NewService(extractor, lab.NewBuilder(time.Now), writer, notifier, cfg.LabsCollection).
		WithNotifyTimeout(cfg.NotifyTimeout)
	handler := webhook.NewHTTPHandler(svc, cfg.GitHubWebhookSecret, cfg.ApprovalLabel, cfg.MaxRequestBody)
	if cfg.AllowUnsigned {
		handler.AllowUnsigned()
	}

	router := mux.NewRouter()
	webhook.Use(router)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	handler.Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.WithFields(map[string]interface{}{
			"host":   cfg.ServerHost,
			"port":   cfg.ServerPort,
			"driver": cfg.StoreDriver,
		}).Info("Lab webhook started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down lab webhook...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	logger.Log.Info("Lab webhook stopped")
}
