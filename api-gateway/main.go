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

	"taskboard/backend/utils/auth"
	"taskboard/backend/utils/config"
	"taskboard/backend/utils/httpx"
	"taskboard/backend/utils/logging"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logging.InitLogger(logging.Options{SystemName: "api-gateway", FilePath: cfg.Log.FilePath, Level: cfg.Log.Level, Timezone: cfg.Log.Timezone})

	if err := cfg.Validate(config.Auth, config.Gateway); err != nil {
		logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: %v", err)
	}

	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	r, err := newRouter(cfg.Gateway, tokens)
	if err != nil {
		logging.Logger.Fatalf("Event ID: CONFIG_ERROR, Description: %v", err)
	}

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           httpx.EnableCORS(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Gateway listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Logger.Fatalf("Event ID: SERVER_FATAL_ERROR, Description: Gateway failed to start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logging.Logger.Errorf("Event ID: SERVER_SHUTDOWN_FAILED, Description: %v", err)
	}
	logging.Logger.Info("Event ID: SERVICE_STOP, Description: Gateway stopped")
}
