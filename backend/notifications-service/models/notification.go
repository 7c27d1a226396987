package models

import "time"

type Notification struct {
	ID         string    `json:"id"`
	AssignedTo string    `json:"assignedTo"`
	TaskID     string    `json:"taskId"`
	EventType  string    `json:"eventType"`
	Subject    string    `json:"subject,omitempty"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"createdAt"`
	IsRead     bool      `json:"isRead"`
}

// MarkReadRequest identifies a row by its clustering columns. CreatedAt is
// RFC 3339.
type MarkReadRequest struct {
	ID        string `json:"id"`
	CreatedAt string `json:"createdAt"`
}
