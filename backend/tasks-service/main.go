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

	"taskboard/backend/tasks-service/handlers"
	"taskboard/backend/tasks-service/repositories"
	"taskboard/backend/tasks-service/services"
	"taskboard/backend/utils"
	"taskboard/backend/utils/config"
	"taskboard/backend/utils/directory"
	"taskboard/backend/utils/httpx"
	"taskboard/backend/utils/logging"
	"taskboard/backend/utils/metrics"
	"taskboard/backend/utils/notify"

	"github.com/gorilla/mux"
	"github.com/nats-io/nats.go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logging.InitLogger(logging.Options{SystemName: "tasks-service", FilePath: cfg.Log.FilePath, Level: cfg.Log.Level, Timezone: cfg.Log.Timezone})

	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting Tasks Service...")
	if err := cfg.Validate(config.Store, config.Directory); err != nil {
		logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: Database connection for MongoDB failed: %v", err)
	}
	defer client.Disconnect(context.Background())

	if err := client.Ping(ctx, nil); err != nil {
		logging.Logger.Fatalf("Event ID: DB_PING_FAILED, Description: MongoDB connection ping error: %v", err)
	}
	logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Successfully connected to MongoDB at %s.", cfg.Mongo.URI)

	db := client.Database(cfg.Mongo.Database)
	taskRepo := repositories.NewTaskRepository(db.Collection(cfg.Mongo.TaskTable))
	if err := taskRepo.EnsureIndexes(ctx); err != nil {
		logging.Logger.Warnf("Event ID: DB_INDEX_FAILED, Description: %v", err)
	}
	logging.Logger.Infof("Event ID: DB_COLLECTION_SET, Description: Using MongoDB collection: %s/%s", cfg.Mongo.Database, cfg.Mongo.TaskTable)

	users := directory.NewMongoDirectory(db.Collection(cfg.Directory.UserPoolID), nil)

	mailer := notify.NewEmailSender(cfg.Notifications, utils.NewBreaker("email-cb", 5*time.Second))

	var conn *nats.Conn
	if cfg.Notifications.TopicEnabled() {
		conn, err = notify.Connect(cfg.Notifications.NATSURL, "tasks-service")
		if err != nil {
			logging.Logger.Errorf("Event ID: NATS_CONNECTION_FAILED, Description: Status notifications disabled: %v", err)
		} else {
			defer conn.Close()
		}
	}
	var publisher notify.Publisher
	if conn != nil {
		publisher = conn
	}
	notifier := notify.NewTopicPublisher(publisher, cfg.Notifications.TopicSubject, utils.NewBreaker("topic-cb", 5*time.Second), users)

	taskService := services.NewTaskService(taskRepo, users, mailer, notifier)
	taskHandler := handlers.NewTaskHandler(taskService)

	r := mux.NewRouter()
	r.Use(metrics.Middleware("tasks-service"))
	taskHandler.Register(r)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

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

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Logger.Errorf("Event ID: SERVER_SHUTDOWN_FAILED, Description: %v", err)
	}
	logging.Logger.Info("Event ID: SERVICE_STOP, Description: Tasks Service stopped")
}
