package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SERVER_PORT", "MONGO_URI", "MONGO_DB_NAME", "TASK_TABLE", "USER_POOL_ID",
		"DEFAULT_TEMP_PASSWORD", "SENDER_EMAIL_ADDRESS", "SMTP_HOST", "SMTP_PORT",
		"SMTP_USERNAME", "EMAIL_PASSWORD", "NATS_URL", "NOTIFICATION_TOPIC",
		"JWT_SECRET", "TOKEN_TTL", "CASS_DB", "CASS_KEYSPACE", "TASKS_SERVICE_URL",
		"USERS_SERVICE_URL", "NOTIFICATIONS_SERVICE_URL", "DEADLINE_SCHEDULE",
		"DEADLINE_WINDOW", "LOG_FILE", "LOG_LEVEL", "ADMIN_USERNAME", "ADMIN_EMAIL",
		"ADMIN_PASSWORD", "PASSWORD_BLACKLIST_FILE", "LOG_TIMEZONE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultServerPort, cfg.ServerPort)
	assert.Equal(t, DefaultTaskCollection, cfg.Mongo.TaskTable)
	assert.Equal(t, DefaultUserPoolID, cfg.Directory.UserPoolID)
	assert.Equal(t, DefaultTemporaryPassword, cfg.Directory.DefaultTemporaryPassword)
	assert.Equal(t, DefaultTokenTTL, cfg.Auth.TokenTTL)
	assert.Equal(t, DefaultDeadlineSchedule, cfg.Deadline.Schedule)
	assert.Equal(t, time.Hour, cfg.Deadline.Window)
	assert.False(t, cfg.Notifications.EmailEnabled())
	assert.False(t, cfg.Notifications.TopicEnabled())
	assert.Empty(t, cfg.Cassandra.Hosts)
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("MONGO_URI", "mongodb://mongo:27017")
	t.Setenv("TASK_TABLE", "TaskTable")
	t.Setenv("SENDER_EMAIL_ADDRESS", "noreply@example.com")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("NATS_URL", "nats://nats:4222")
	t.Setenv("CASS_DB", "cass-1, cass-2,")
	t.Setenv("DEADLINE_WINDOW", "30m")
	t.Setenv("LOG_TIMEZONE", "Europe/Belgrade")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mongodb://mongo:27017", cfg.Mongo.URI)
	assert.Equal(t, "TaskTable", cfg.Mongo.TaskTable)
	assert.True(t, cfg.Notifications.EmailEnabled())
	assert.True(t, cfg.Notifications.TopicEnabled())
	assert.Equal(t, []string{"cass-1", "cass-2"}, cfg.Cassandra.Hosts)
	assert.Equal(t, 30*time.Minute, cfg.Deadline.Window)
	assert.Equal(t, "Europe/Belgrade", cfg.Log.Timezone)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("JWT_SECRET")
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET=from-file\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("JWT_SECRET") })

	cfg, err := Load(path, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
}

func TestLoad_InvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("TOKEN_TTL", "forever")

	_, err := Load()
	assert.ErrorContains(t, err, "TOKEN_TTL")
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.Validate(Store, Auth, Topic, Gateway, Cassandra)
	require.Error(t, err)
	assert.ErrorContains(t, err, "MONGO_URI")
	assert.ErrorContains(t, err, "JWT_SECRET")
	assert.ErrorContains(t, err, "NATS_URL")
	assert.ErrorContains(t, err, "TASKS_SERVICE_URL")
	assert.ErrorContains(t, err, "CASS_DB")

	cfg.Mongo.URI = "mongodb://localhost:27017"
	cfg.Auth.JWTSecret = "secret"
	assert.NoError(t, cfg.Validate(Store, Directory, Auth, Deadline))
}

func TestValidate_Admin(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	assert.NoError(t, cfg.Validate(Admin), "no bootstrap admin configured")

	cfg.Directory.AdminUsername = "root"
	err = cfg.Validate(Admin)
	assert.ErrorContains(t, err, "ADMIN_PASSWORD")
	assert.ErrorContains(t, err, "ADMIN_EMAIL")

	cfg.Directory.AdminPassword = "Adm1n.Pass"
	err = cfg.Validate(Admin)
	assert.ErrorContains(t, err, "ADMIN_EMAIL")
	assert.NotContains(t, err.Error(), "ADMIN_PASSWORD")

	cfg.Directory.AdminEmail = "root@example.com"
	assert.NoError(t, cfg.Validate(Admin))
}
