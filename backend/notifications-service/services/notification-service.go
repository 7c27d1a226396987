package services

import (
	"context"
	"errors"
	"time"

	"taskboard/backend/notifications-service/models"
	"taskboard/backend/notifications-service/repositories"
	"taskboard/backend/utils/apperrors"
	"taskboard/backend/utils/auth"
	"taskboard/backend/utils/logging"
	"taskboard/backend/utils/notify"

	"github.com/gocql/gocql"
)

type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByAssignee(ctx context.Context, assignedTo string) ([]models.Notification, error)
	MarkRead(ctx context.Context, assignedTo string, id gocql.UUID, createdAt time.Time) error
}

type NotificationService struct {
	repo NotificationStore
	now  func() time.Time
}

func NewNotificationService(repo NotificationStore) *NotificationService {
	return &NotificationService{repo: repo, now: time.Now}
}

// HandleMessage stores one topic message in the assignee's history. Messages
// without an assignee have no partition to live in and are dropped.
func (ns *NotificationService) HandleMessage(ctx context.Context, msg notify.Message) error {
	if msg.AssignedTo == "" {
		logging.Logger.Warnf("Event ID: NOTIFICATION_DROPPED, Description: Message for task %q has no assignee", msg.TaskID)
		return nil
	}

	n := &models.Notification{
		AssignedTo: msg.AssignedTo,
		TaskID:     msg.TaskID,
		EventType:  msg.EventType,
		Subject:    msg.Subject,
		Message:    msg.Body,
		CreatedAt:  ns.now().UTC().Truncate(time.Millisecond),
	}
	if err := ns.repo.Create(ctx, n); err != nil {
		return err
	}
	logging.Logger.Infof("Event ID: NOTIFICATION_STORED, Description: Stored %s notification %s for %s", n.EventType, n.ID, n.AssignedTo)
	return nil
}

// List returns the caller's notifications. Admins may read another
// assignee's history.
func (ns *NotificationService) List(ctx context.Context, caller auth.Identity, assignedTo string) ([]models.Notification, error) {
	target := caller.Sub
	if assignedTo != "" && assignedTo != caller.Sub {
		if !caller.IsAdmin() {
			return nil, apperrors.Forbidden("Unauthorized. You can only read your own notifications.")
		}
		target = assignedTo
	}

	notifications, err := ns.repo.ListByAssignee(ctx, target)
	if err != nil {
		return nil, apperrors.Internal(err, "Could not list notifications")
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	return notifications, nil
}

func (ns *NotificationService) MarkRead(ctx context.Context, caller auth.Identity, req models.MarkReadRequest) error {
	if req.ID == "" || req.CreatedAt == "" {
		return apperrors.BadRequest("id and createdAt are required")
	}
	id, err := gocql.ParseUUID(req.ID)
	if err != nil {
		return apperrors.BadRequest("invalid notification id")
	}
	createdAt, err := time.Parse(time.RFC3339Nano, req.CreatedAt)
	if err != nil {
		return apperrors.BadRequest("createdAt must be an RFC 3339 timestamp")
	}

	if err := ns.repo.MarkRead(ctx, caller.Sub, id, createdAt); err != nil {
		if errors.Is(err, repositories.ErrNotificationNotFound) {
			return apperrors.NotFound("Notification not found")
		}
		return apperrors.Internal(err, "Could not update notification")
	}
	return nil
}
