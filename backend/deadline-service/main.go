package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskboard/backend/deadline-service/services"
	"taskboard/backend/tasks-service/repositories"
	"taskboard/backend/utils"
	"taskboard/backend/utils/config"
	"taskboard/backend/utils/logging"
	"taskboard/backend/utils/metrics"
	"taskboard/backend/utils/notify"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var rootCmd = &cobra.Command{
	Use:           "deadline-service",
	Short:         "Alert assignees of tasks nearing their deadline",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scan once and print the alerts sent",
	RunE:  runOnce,
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Scan on DEADLINE_SCHEDULE until interrupted",
	RunE:  runSchedule,
}

var envFile string

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional env file loaded before the environment")
	rootCmd.AddCommand(runCmd, scheduleCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type deps struct {
	cfg     *config.Config
	scanner *services.DeadlineService
	close   func()
}

func setup(ctx context.Context) (*deps, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	logging.InitLogger(logging.Options{SystemName: "deadline-service", FilePath: cfg.Log.FilePath, Level: cfg.Log.Level, Timezone: cfg.Log.Timezone})
	if err := cfg.Validate(config.Store, config.Topic, config.Deadline); err != nil {
		return nil, err
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}
	logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Successfully connected to MongoDB at %s.", cfg.Mongo.URI)

	conn, err := notify.Connect(cfg.Notifications.NATSURL, "deadline-service")
	if err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	tasks := repositories.NewTaskRepository(client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.TaskTable))
	alerts := notify.NewTopicPublisher(conn, cfg.Notifications.TopicSubject, utils.NewBreaker("topic-cb", 5*time.Second), nil)

	return &deps{
		cfg:     cfg,
		scanner: services.NewDeadlineService(tasks, alerts, cfg.Deadline.Window),
		close: func() {
			if err := conn.Drain(); err != nil {
				conn.Close()
			}
			client.Disconnect(context.Background())
		},
	}, nil
}

func runOnce(cmd *cobra.Command, _ []string) error {
	d, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer d.close()

	result, err := d.scanner.Run(cmd.Context())
	if err != nil {
		logging.Logger.Errorf("Event ID: DEADLINE_SCAN_FAILED, Description: %v", err)
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := setup(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	scheduler := cron.New()
	_, err = scheduler.AddFunc(d.cfg.Deadline.Schedule, func() {
		runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		if _, err := d.scanner.Run(runCtx); err != nil {
			logging.Logger.Errorf("Event ID: DEADLINE_SCAN_FAILED, Description: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid DEADLINE_SCHEDULE %q: %w", d.cfg.Deadline.Schedule, err)
	}
	scheduler.Start()
	logging.Logger.Infof("Event ID: DEADLINE_SCHEDULER_STARTED, Description: Deadline scan scheduled at %q (window %s)", d.cfg.Deadline.Schedule, d.cfg.Deadline.Window)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	server := &http.Server{Addr: ":" + d.cfg.ServerPort, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Logger.Errorf("Event ID: METRICS_SERVER_FAILED, Description: %v", err)
		}
	}()

	<-ctx.Done()
	logging.Logger.Info("Event ID: SERVICE_STOP, Description: Stopping deadline scheduler")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	<-scheduler.Stop().Done()
	return server.Shutdown(shutdownCtx)
}
