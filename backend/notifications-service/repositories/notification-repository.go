package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskboard/backend/notifications-service/models"
	"taskboard/backend/utils/config"
	"taskboard/backend/utils/logging"

	"github.com/gocql/gocql"
)

var ErrNotificationNotFound = errors.New("notification not found")

type NotificationRepo struct {
	session *gocql.Session
}

// NewNotificationRepo creates the keyspace when missing and opens a session
// on it.
func NewNotificationRepo(cfg config.CassandraConfig) (*NotificationRepo, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = "system"
	cluster.Timeout = 5 * time.Second
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect to cassandra: %w", err)
	}

	err = session.Query(fmt.Sprintf(
		`CREATE KEYSPACE IF NOT EXISTS %s
         WITH replication = {
             'class': 'SimpleStrategy',
             'replication_factor': 1
         }`, cfg.Keyspace)).Exec()
	session.Close()
	if err != nil {
		return nil, fmt.Errorf("create keyspace %s: %w", cfg.Keyspace, err)
	}

	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = gocql.One
	session, err = cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect to keyspace %s: %w", cfg.Keyspace, err)
	}

	logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Connected to Cassandra keyspace %s.", cfg.Keyspace)
	return &NotificationRepo{session: session}, nil
}

func (nr *NotificationRepo) CloseSession() {
	nr.session.Close()
	logging.Logger.Info("Event ID: DB_SESSION_CLOSED, Description: Cassandra session closed.")
}

// CreateTable partitions notifications by assignee, newest first.
func (nr *NotificationRepo) CreateTable() error {
	err := nr.session.Query(
		`CREATE TABLE IF NOT EXISTS notifications (
			id TIMEUUID,
			assigned_to TEXT,
			task_id TEXT,
			event_type TEXT,
			subject TEXT,
			message TEXT,
			created_at TIMESTAMP,
			is_read BOOLEAN,
			PRIMARY KEY ((assigned_to), created_at, id)
		) WITH CLUSTERING ORDER BY (created_at DESC, id ASC)`).Exec()
	if err != nil {
		return fmt.Errorf("create notifications table: %w", err)
	}
	return nil
}

func (nr *NotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	id := gocql.UUIDFromTime(n.CreatedAt)
	if n.ID != "" {
		parsed, err := gocql.ParseUUID(n.ID)
		if err != nil {
			return fmt.Errorf("invalid notification id %q: %w", n.ID, err)
		}
		id = parsed
	}
	n.ID = id.String()

	err := nr.session.Query(
		`INSERT INTO notifications (id, assigned_to, task_id, event_type, subject, message, created_at, is_read)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, n.AssignedTo, n.TaskID, n.EventType, n.Subject, n.Message, n.CreatedAt, n.IsRead,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (nr *NotificationRepo) ListByAssignee(ctx context.Context, assignedTo string) ([]models.Notification, error) {
	iter := nr.session.Query(
		`SELECT id, assigned_to, task_id, event_type, subject, message, created_at, is_read
		 FROM notifications WHERE assigned_to = ?`, assignedTo,
	).WithContext(ctx).Iter()

	notifications := []models.Notification{}
	var (
		n  models.Notification
		id gocql.UUID
	)
	for iter.Scan(&id, &n.AssignedTo, &n.TaskID, &n.EventType, &n.Subject, &n.Message, &n.CreatedAt, &n.IsRead) {
		n.ID = id.String()
		notifications = append(notifications, n)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("list notifications for %s: %w", assignedTo, err)
	}
	return notifications, nil
}

// MarkRead flags one row as read. Rows that do not exist are not created.
func (nr *NotificationRepo) MarkRead(ctx context.Context, assignedTo string, id gocql.UUID, createdAt time.Time) error {
	applied, err := nr.session.Query(
		`UPDATE notifications SET is_read = true
		 WHERE assigned_to = ? AND created_at = ? AND id = ? IF EXISTS`,
		assignedTo, createdAt, id,
	).WithContext(ctx).ScanCAS()
	if err != nil {
		return fmt.Errorf("mark notification %s read: %w", id, err)
	}
	if !applied {
		return ErrNotificationNotFound
	}
	return nil
}
