package services

import (
	"context"
	"fmt"
	"time"

	"taskboard/backend/tasks-service/models"
	"taskboard/backend/tasks-service/repositories"
	"taskboard/backend/utils/logging"
	"taskboard/backend/utils/metrics"
	"taskboard/backend/utils/notify"
)

type TaskScanner interface {
	Scan(ctx context.Context, filter repositories.ScanFilter) ([]models.Task, error)
}

type AlertPublisher interface {
	PublishDeadlineAlert(ctx context.Context, a notify.DeadlineAlert) error
}

// ScanResult lists the alert messages published by one run.
type ScanResult struct {
	AlertsSent []string `json:"alertsSent"`
}

type DeadlineService struct {
	tasks  TaskScanner
	alerts AlertPublisher
	window time.Duration
	now    func() time.Time
}

func NewDeadlineService(tasks TaskScanner, alerts AlertPublisher, window time.Duration) *DeadlineService {
	return &DeadlineService{tasks: tasks, alerts: alerts, window: window, now: time.Now}
}

// Due reports whether task needs an alert at cutoff. Overdue tasks stay due
// until they are completed.
func Due(task models.Task, cutoff string) bool {
	return task.Status != models.StatusCompleted && task.Deadline <= cutoff
}

// Run scans every task once and publishes an alert for each one that is due
// within the window. Any scan or publish failure aborts the run.
func (s *DeadlineService) Run(ctx context.Context) (*ScanResult, error) {
	cutoff := models.FormatTimestamp(s.now().Add(s.window))

	tasks, err := s.tasks.Scan(ctx, repositories.ScanFilter{})
	if err != nil {
		metrics.DeadlineScansTotal.WithLabelValues(metrics.Result(false)).Inc()
		return nil, fmt.Errorf("scan tasks: %w", err)
	}

	result := &ScanResult{AlertsSent: []string{}}
	for _, task := range tasks {
		if !Due(task, cutoff) {
			continue
		}

		alert := notify.DeadlineAlert{
			TaskID:      task.TaskID,
			Description: task.Description,
			AssignedTo:  task.AssignedTo,
		}
		if err := s.alerts.PublishDeadlineAlert(ctx, alert); err != nil {
			metrics.DeadlineScansTotal.WithLabelValues(metrics.Result(false)).Inc()
			return nil, fmt.Errorf("publish alert for task %s: %w", task.TaskID, err)
		}
		metrics.DeadlineAlertsTotal.Inc()
		result.AlertsSent = append(result.AlertsSent, notify.DeadlineAlertBody(alert))
	}

	metrics.DeadlineScansTotal.WithLabelValues(metrics.Result(true)).Inc()
	logging.Logger.Infof("Event ID: DEADLINE_SCAN_COMPLETED, Description: Scanned %d tasks, sent %d alerts (cutoff %s)", len(tasks), len(result.AlertsSent), cutoff)
	return result, nil
}
