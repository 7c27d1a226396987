// Package config loads the process environment into one Config value. It is
// the only place that reads environment variables; every component receives
// the sub-struct it needs from main.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultServerPort        = "8080"
	DefaultMongoDatabase     = "taskboard"
	DefaultTaskCollection    = "tasks"
	DefaultUserPoolID        = "users"
	DefaultSMTPPort          = "587"
	DefaultTopicSubject      = "taskboard.notifications"
	DefaultTokenTTL          = 2 * time.Hour
	DefaultCassandraKeyspace = "notifications"
	DefaultDeadlineSchedule  = "@hourly"
	DefaultDeadlineWindow    = time.Hour
	// DefaultTemporaryPassword is used for new identities when the caller
	// does not pick one. It is shared by every such account until first login.
	DefaultTemporaryPassword = "TempPassword123!"
)

type Config struct {
	ServerPort    string
	Mongo         MongoConfig
	Directory     DirectoryConfig
	Notifications NotificationConfig
	Auth          AuthConfig
	Cassandra     CassandraConfig
	Gateway       GatewayConfig
	Deadline      DeadlineConfig
	Log           LogConfig
}

type MongoConfig struct {
	URI      string
	Database string
	// TaskTable names the collection that holds task records.
	TaskTable string
}

type DirectoryConfig struct {
	// UserPoolID names the collection that backs the identity directory.
	UserPoolID               string
	DefaultTemporaryPassword string
	// Bootstrap admin, created at users-service start when absent.
	AdminUsername string
	AdminEmail    string
	AdminPassword string
	// PasswordBlackListFile lists passwords rejected as temporary passwords.
	PasswordBlackListFile string
}

type NotificationConfig struct {
	SenderEmail  string
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	NATSURL      string
	TopicSubject string
}

// EmailEnabled reports whether the email channel has a sender configured.
func (n NotificationConfig) EmailEnabled() bool {
	return n.SenderEmail != "" && n.SMTPHost != ""
}

// TopicEnabled reports whether the publish/subscribe channel is configured.
func (n NotificationConfig) TopicEnabled() bool {
	return n.NATSURL != "" && n.TopicSubject != ""
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type CassandraConfig struct {
	Hosts    []string
	Keyspace string
}

type GatewayConfig struct {
	TasksServiceURL         string
	UsersServiceURL         string
	NotificationsServiceURL string
}

type DeadlineConfig struct {
	Schedule string
	Window   time.Duration
}

type LogConfig struct {
	FilePath string
	Level    string
	Timezone string
}

// Load reads the optional env files (missing files are ignored) and then the
// process environment.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	tokenTTL, err := durationEnv("TOKEN_TTL", DefaultTokenTTL)
	if err != nil {
		return nil, err
	}
	window, err := durationEnv("DEADLINE_WINDOW", DefaultDeadlineWindow)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerPort: stringEnv("SERVER_PORT", DefaultServerPort),
		Mongo: MongoConfig{
			URI:       os.Getenv("MONGO_URI"),
			Database:  stringEnv("MONGO_DB_NAME", DefaultMongoDatabase),
			TaskTable: stringEnv("TASK_TABLE", DefaultTaskCollection),
		},
		Directory: DirectoryConfig{
			UserPoolID:               stringEnv("USER_POOL_ID", DefaultUserPoolID),
			DefaultTemporaryPassword: stringEnv("DEFAULT_TEMP_PASSWORD", DefaultTemporaryPassword),
			AdminUsername:            os.Getenv("ADMIN_USERNAME"),
			AdminEmail:               os.Getenv("ADMIN_EMAIL"),
			AdminPassword:            os.Getenv("ADMIN_PASSWORD"),
			PasswordBlackListFile:    os.Getenv("PASSWORD_BLACKLIST_FILE"),
		},
		Notifications: NotificationConfig{
			SenderEmail:  os.Getenv("SENDER_EMAIL_ADDRESS"),
			SMTPHost:     os.Getenv("SMTP_HOST"),
			SMTPPort:     stringEnv("SMTP_PORT", DefaultSMTPPort),
			SMTPUsername: os.Getenv("SMTP_USERNAME"),
			SMTPPassword: os.Getenv("EMAIL_PASSWORD"),
			NATSURL:      os.Getenv("NATS_URL"),
			TopicSubject: stringEnv("NOTIFICATION_TOPIC", DefaultTopicSubject),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
			TokenTTL:  tokenTTL,
		},
		Cassandra: CassandraConfig{
			Hosts:    listEnv("CASS_DB"),
			Keyspace: stringEnv("CASS_KEYSPACE", DefaultCassandraKeyspace),
		},
		Gateway: GatewayConfig{
			TasksServiceURL:         os.Getenv("TASKS_SERVICE_URL"),
			UsersServiceURL:         os.Getenv("USERS_SERVICE_URL"),
			NotificationsServiceURL: os.Getenv("NOTIFICATIONS_SERVICE_URL"),
		},
		Deadline: DeadlineConfig{
			Schedule: stringEnv("DEADLINE_SCHEDULE", DefaultDeadlineSchedule),
			Window:   window,
		},
		Log: LogConfig{
			FilePath: os.Getenv("LOG_FILE"),
			Level:    stringEnv("LOG_LEVEL", "info"),
			Timezone: os.Getenv("LOG_TIMEZONE"),
		},
	}
	return cfg, nil
}

// Requirement checks that one component has what it needs.
type Requirement func(*Config) error

// Validate runs every requirement and reports all failures at once.
func (c *Config) Validate(reqs ...Requirement) error {
	var errs []error
	for _, req := range reqs {
		if err := req(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func Store(c *Config) error {
	if c.Mongo.URI == "" {
		return errors.New("MONGO_URI is required")
	}
	if c.Mongo.TaskTable == "" {
		return errors.New("TASK_TABLE is required")
	}
	return nil
}

func Directory(c *Config) error {
	if c.Mongo.URI == "" {
		return errors.New("MONGO_URI is required for the identity directory")
	}
	if c.Directory.UserPoolID == "" {
		return errors.New("USER_POOL_ID is required")
	}
	return nil
}

// Topic is required by components that cannot run without the topic, such
// as the deadline scanner. Request handlers treat the topic as optional.
func Topic(c *Config) error {
	if !c.Notifications.TopicEnabled() {
		return errors.New("NATS_URL and NOTIFICATION_TOPIC are required")
	}
	return nil
}

// Admin checks the bootstrap administrator. It is optional, but a username
// without a password or email cannot be created.
func Admin(c *Config) error {
	d := c.Directory
	if d.AdminUsername == "" {
		return nil
	}
	var missing []string
	if d.AdminPassword == "" {
		missing = append(missing, "ADMIN_PASSWORD")
	}
	if d.AdminEmail == "" {
		missing = append(missing, "ADMIN_EMAIL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s required when ADMIN_USERNAME is set", strings.Join(missing, ", "))
	}
	return nil
}

func Auth(c *Config) error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	return nil
}

func Cassandra(c *Config) error {
	if len(c.Cassandra.Hosts) == 0 {
		return errors.New("CASS_DB is required")
	}
	return nil
}

func Gateway(c *Config) error {
	var missing []string
	if c.Gateway.TasksServiceURL == "" {
		missing = append(missing, "TASKS_SERVICE_URL")
	}
	if c.Gateway.UsersServiceURL == "" {
		missing = append(missing, "USERS_SERVICE_URL")
	}
	if c.Gateway.NotificationsServiceURL == "" {
		missing = append(missing, "NOTIFICATIONS_SERVICE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s required", strings.Join(missing, ", "))
	}
	return nil
}

func Deadline(c *Config) error {
	if c.Deadline.Schedule == "" {
		return errors.New("DEADLINE_SCHEDULE is required")
	}
	if c.Deadline.Window <= 0 {
		return errors.New("DEADLINE_WINDOW must be positive")
	}
	return nil
}

func stringEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func listEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
