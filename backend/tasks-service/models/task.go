package models

import (
	"fmt"
	"time"
)

const (
	StatusNew       = "New"
	StatusCompleted = "Completed"
)

// DeadlineLayout is the stored deadline form. Deadlines in this layout
// compare chronologically as plain strings.
const DeadlineLayout = "2006-01-02T15:04:05Z"

type Task struct {
	TaskID      string `json:"taskId" bson:"_id"`
	AssignedTo  string `json:"assignedTo" bson:"assignedTo"`
	Status      string `json:"status" bson:"status"`
	Deadline    string `json:"deadline" bson:"deadline"`
	Description string `json:"description" bson:"description"`
	CreatedBy   string `json:"createdBy" bson:"createdBy"`
	CreatedAt   string `json:"createdAt" bson:"createdAt"`
	UpdatedAt   string `json:"updatedAt" bson:"updatedAt"`
}

type CreateTaskRequest struct {
	AssignedTo  string `json:"assignedTo"`
	Deadline    string `json:"deadline"`
	Description string `json:"description"`
}

type UpdateTaskRequest struct {
	TaskID string `json:"taskId"`
	Status string `json:"status"`
}

type UpdateTaskResponse struct {
	Message     string `json:"message"`
	UpdatedTask *Task  `json:"updatedTask"`
}

// NormalizeDeadline accepts RFC 3339 timestamps (with or without fractional
// seconds or offset) as well as a bare date, and returns the UTC form in
// DeadlineLayout.
func NormalizeDeadline(raw string) (string, error) {
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Format(DeadlineLayout), nil
		}
	}
	return "", fmt.Errorf("deadline %q is not an ISO-8601 timestamp", raw)
}

// FormatTimestamp renders t the way record timestamps are stored.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(DeadlineLayout)
}
