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

	"taskboard/backend/users-service/handlers"
	"taskboard/backend/users-service/services"
	"taskboard/backend/utils"
	"taskboard/backend/utils/auth"
	"taskboard/backend/utils/config"
	"taskboard/backend/utils/directory"
	"taskboard/backend/utils/httpx"
	"taskboard/backend/utils/logging"
	"taskboard/backend/utils/metrics"
	"taskboard/backend/utils/notify"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logging.InitLogger(logging.Options{SystemName: "users-service", FilePath: cfg.Log.FilePath, Level: cfg.Log.Level, Timezone: cfg.Log.Timezone})

	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting Users Service...")
	if err := cfg.Validate(config.Directory, config.Auth, config.Admin); err != nil {
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

	var mailer directory.WelcomeMailer
	sender := notify.NewEmailSender(cfg.Notifications, utils.NewBreaker("email-cb", 5*time.Second))
	if sender.Enabled() {
		mailer = sender
	} else {
		logging.Logger.Warn("Event ID: EMAIL_DISABLED, Description: Welcome emails disabled, SENDER_EMAIL_ADDRESS or SMTP_HOST not set")
	}

	dir := directory.NewMongoDirectory(client.Database(cfg.Mongo.Database).Collection(cfg.Directory.UserPoolID), mailer)
	if err := dir.EnsureIndexes(ctx); err != nil {
		logging.Logger.Fatalf("Event ID: DB_INDEX_FAILED, Description: %v", err)
	}

	if cfg.Directory.DefaultTemporaryPassword == config.DefaultTemporaryPassword {
		logging.Logger.Warn("Event ID: WEAK_DEFAULT_PASSWORD, Description: DEFAULT_TEMP_PASSWORD is not set, new users fall back to the built-in temporary password")
	}

	issuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	userService := services.NewUserService(dir, issuer, cfg.Directory.DefaultTemporaryPassword)
	if cfg.Directory.PasswordBlackListFile != "" {
		blackList, err := services.LoadBlackListFile(cfg.Directory.PasswordBlackListFile)
		if err != nil {
			logging.Logger.Fatalf("Event ID: BLACKLIST_LOAD_FAILED, Description: %v", err)
		}
		userService.WithBlackList(blackList)
		logging.Logger.Infof("Event ID: BLACKLIST_LOADED, Description: Loaded %d blacklisted passwords", len(blackList))
	}

	if cfg.Directory.AdminUsername != "" {
		admin := directory.NewIdentity{
			Username:          cfg.Directory.AdminUsername,
			Email:             cfg.Directory.AdminEmail,
			TemporaryPassword: cfg.Directory.AdminPassword,
		}
		if err := userService.EnsureAdmin(ctx, admin); err != nil {
			logging.Logger.Fatalf("Event ID: ADMIN_BOOTSTRAP_FAILED, Description: %v", err)
		}
	}

	r := mux.NewRouter()
	r.Use(metrics.Middleware("users-service"))
	handlers.NewUserHandler(userService).Register(r)
	handlers.NewLoginHandler(userService).Register(r)
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
	logging.Logger.Info("Event ID: SERVICE_STOP, Description: Users Service stopped")
}
