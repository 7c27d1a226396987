package notify

import (
	"context"
	"errors"
	"fmt"

	"taskboard/backend/utils/directory"
	"taskboard/backend/utils/logging"
	"taskboard/backend/utils/metrics"

	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker"
)

const (
	EventStatusChanged = "status_changed"
	EventDeadlineAlert = "deadline_alert"

	HeaderSubject    = "Subject"
	HeaderEventType  = "Event-Type"
	HeaderTaskID     = "Task-Id"
	HeaderAssignedTo = "Assigned-To"
)

var ErrTopicDisabled = errors.New("notification topic not configured")

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	PublishMsg(m *nats.Msg) error
}

// UserLookup resolves the friendly name of an assignee.
type UserLookup interface {
	GetUser(ctx context.Context, usernameOrSub string) (*directory.Identity, error)
}

type TopicPublisher struct {
	conn    Publisher
	subject string
	breaker *gobreaker.CircuitBreaker
	users   UserLookup
}

// NewTopicPublisher returns a publisher on subject. conn may be nil when the
// topic is not configured; users may be nil to skip name enrichment.
func NewTopicPublisher(conn Publisher, subject string, breaker *gobreaker.CircuitBreaker, users UserLookup) *TopicPublisher {
	return &TopicPublisher{conn: conn, subject: subject, breaker: breaker, users: users}
}

func (p *TopicPublisher) Enabled() bool {
	return p != nil && p.conn != nil && p.subject != ""
}

// Message is one notification as carried on the topic.
type Message struct {
	Subject    string
	Body       string
	EventType  string
	TaskID     string
	AssignedTo string
}

type StatusChange struct {
	TaskID      string
	Description string
	OldStatus   string
	NewStatus   string
	ChangedBy   string
	AssignedTo  string
}

type DeadlineAlert struct {
	TaskID      string
	Description string
	AssignedTo  string
}

func StatusChangeSubject(description string) string {
	runes := []rune(description)
	if len(runes) > 50 {
		runes = runes[:50]
	}
	return "Task Status Updated: " + string(runes)
}

func DeadlineAlertBody(a DeadlineAlert) string {
	return fmt.Sprintf("Task '%s' assigned to %s is nearing its deadline.", a.Description, a.AssignedTo)
}

func (p *TopicPublisher) statusChangeBody(ctx context.Context, c StatusChange) string {
	body := fmt.Sprintf("Task Update: '%s' (ID: %s) status changed from '%s' to '%s' by user %s.",
		c.Description, c.TaskID, c.OldStatus, c.NewStatus, c.ChangedBy)
	if c.AssignedTo == "" {
		return body
	}
	if p.users == nil {
		return body + fmt.Sprintf(" Task is assigned to sub: %s.", c.AssignedTo)
	}

	user, err := p.users.GetUser(ctx, c.AssignedTo)
	if err != nil {
		logging.Logger.Warnf("Event ID: NOTIFY_LOOKUP_FAILED, Description: Could not fetch assigned user's username for %s: %v", c.AssignedTo, err)
		return body + fmt.Sprintf(" Task is assigned to sub: %s.", c.AssignedTo)
	}
	name := user.Attribute(directory.AttrPreferredUsername)
	if name == "" {
		name = c.AssignedTo
	}
	return body + fmt.Sprintf(" Task is assigned to: %s (sub: %s).", name, c.AssignedTo)
}

// PublishStatusChange reports whether the notification was published.
// Failures are logged and never returned.
func (p *TopicPublisher) PublishStatusChange(ctx context.Context, c StatusChange) bool {
	if !p.Enabled() {
		logging.Logger.Info("Event ID: TOPIC_DISABLED, Description: Notification topic not configured. Skipping status notification.")
		return false
	}

	msg := Message{
		Subject:    StatusChangeSubject(c.Description),
		Body:       p.statusChangeBody(ctx, c),
		EventType:  EventStatusChanged,
		TaskID:     c.TaskID,
		AssignedTo: c.AssignedTo,
	}
	if err := p.publish(msg); err != nil {
		logging.Logger.Errorf("Event ID: TOPIC_PUBLISH_FAILED, Description: Failed to publish status change for task %s: %v", c.TaskID, err)
		return false
	}
	logging.Logger.Infof("Event ID: TOPIC_PUBLISHED, Description: Sent status change notification for task %s", c.TaskID)
	return true
}

// PublishDeadlineAlert returns the publish error so the caller can fail the
// whole scan.
func (p *TopicPublisher) PublishDeadlineAlert(ctx context.Context, a DeadlineAlert) error {
	if !p.Enabled() {
		return ErrTopicDisabled
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.publish(Message{
		Body:       DeadlineAlertBody(a),
		EventType:  EventDeadlineAlert,
		TaskID:     a.TaskID,
		AssignedTo: a.AssignedTo,
	})
}

func (p *TopicPublisher) publish(m Message) error {
	natsMsg := nats.NewMsg(p.subject)
	natsMsg.Data = []byte(m.Body)
	if m.Subject != "" {
		natsMsg.Header.Set(HeaderSubject, m.Subject)
	}
	natsMsg.Header.Set(HeaderEventType, m.EventType)
	natsMsg.Header.Set(HeaderTaskID, m.TaskID)
	natsMsg.Header.Set(HeaderAssignedTo, m.AssignedTo)

	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, p.conn.PublishMsg(natsMsg)
	})
	metrics.NotificationsTotal.WithLabelValues(ChannelTopic, metrics.Result(err == nil)).Inc()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", p.subject, err)
	}
	return nil
}

// DecodeMessage reads a notification back from a topic message.
func DecodeMessage(m *nats.Msg) Message {
	msg := Message{Body: string(m.Data)}
	if m.Header != nil {
		msg.Subject = m.Header.Get(HeaderSubject)
		msg.EventType = m.Header.Get(HeaderEventType)
		msg.TaskID = m.Header.Get(HeaderTaskID)
		msg.AssignedTo = m.Header.Get(HeaderAssignedTo)
	}
	return msg
}
