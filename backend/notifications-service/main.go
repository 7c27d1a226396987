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

	"taskboard/backend/notifications-service/handlers"
	"taskboard/backend/notifications-service/repositories"
	"taskboard/backend/notifications-service/services"
	"taskboard/backend/utils/config"
	"taskboard/backend/utils/httpx"
	"taskboard/backend/utils/logging"
	"taskboard/backend/utils/metrics"
	"taskboard/backend/utils/notify"

	"github.com/gorilla/mux"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logging.InitLogger(logging.Options{SystemName: "notifications-service", FilePath: cfg.Log.FilePath, Level: cfg.Log.Level, Timezone: cfg.Log.Timezone})

	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting Notifications Service...")
	if err := cfg.Validate(config.Cassandra, config.Topic); err != nil {
		logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: %v", err)
	}

	repo, err := repositories.NewNotificationRepo(cfg.Cassandra)
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: Failed to initialize repository: %v", err)
	}
	defer repo.CloseSession()

	if err := repo.CreateTable(); err != nil {
		logging.Logger.Fatalf("Event ID: DB_SCHEMA_FAILED, Description: %v", err)
	}

	service := services.NewNotificationService(repo)
	handler := handlers.NewNotificationHandler(service)

	conn, err := notify.Connect(cfg.Notifications.NATSURL, "notifications-service")
	if err != nil {
		logging.Logger.Fatalf("Event ID: NATS_CONNECTION_FAILED, Description: %v", err)
	}
	defer conn.Drain()

	sub, err := conn.Subscribe(cfg.Notifications.TopicSubject, handler.Subscriber(5*time.Second))
	if err != nil {
		logging.Logger.Fatalf("Event ID: NATS_SUBSCRIBE_FAILED, Description: Could not subscribe to %s: %v", cfg.Notifications.TopicSubject, err)
	}
	logging.Logger.Infof("Event ID: NATS_SUBSCRIBED, Description: Listening on %s", sub.Subject)

	r := mux.NewRouter()
	r.Use(metrics.Middleware("notifications-service"))
	handler.Register(r)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Notifications service is running"))
	}).Methods(http.MethodGet)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           httpx.EnableCORS(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost%s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Server failed to start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	if err := sub.Unsubscribe(); err != nil {
		logging.Logger.Warnf("Event ID: NATS_UNSUBSCRIBE_FAILED, Description: %v", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Logger.Errorf("Event ID: SERVER_SHUTDOWN_FAILED, Description: %v", err)
	}
	logging.Logger.Info("Event ID: SERVICE_STOP, Description: Notifications Service stopped")
}
