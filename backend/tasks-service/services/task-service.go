package services

import (
	"context"
	"errors"
	"time"

	"taskboard/backend/tasks-service/models"
	"taskboard/backend/tasks-service/repositories"
	"taskboard/backend/utils/apperrors"
	"taskboard/backend/utils/auth"
	"taskboard/backend/utils/directory"
	"taskboard/backend/utils/logging"
	"taskboard/backend/utils/notify"

	"github.com/google/uuid"
)

type TaskStore interface {
	Get(ctx context.Context, taskID string) (*models.Task, error)
	Insert(ctx context.Context, task *models.Task) error
	Put(ctx context.Context, task *models.Task) error
	Scan(ctx context.Context, filter repositories.ScanFilter) ([]models.Task, error)
}

type UserDirectory interface {
	FindUsers(ctx context.Context, filter directory.Filter) ([]directory.Identity, error)
}

type AssignmentMailer interface {
	SendTaskAssignment(ctx context.Context, a notify.Assignment) bool
}

type StatusNotifier interface {
	PublishStatusChange(ctx context.Context, c notify.StatusChange) bool
}

type TaskService struct {
	store    TaskStore
	users    UserDirectory
	mailer   AssignmentMailer
	notifier StatusNotifier
	now      func() time.Time
	newID    func() string
}

func NewTaskService(store TaskStore, users UserDirectory, mailer AssignmentMailer, notifier StatusNotifier) *TaskService {
	return &TaskService{
		store:    store,
		users:    users,
		mailer:   mailer,
		notifier: notifier,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// ListTasks returns every task to admins and only their own tasks to
// everyone else.
func (s *TaskService) ListTasks(ctx context.Context, caller auth.Identity) ([]models.Task, error) {
	filter := repositories.ScanFilter{}
	if !caller.IsAdmin() {
		filter.AssignedTo = caller.Sub
	}

	tasks, err := s.store.Scan(ctx, filter)
	if err != nil {
		return nil, apperrors.Internal(err, "Could not list tasks")
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

func (s *TaskService) CreateTask(ctx context.Context, caller auth.Identity, req models.CreateTaskRequest) (*models.Task, error) {
	if !caller.IsAdmin() {
		return nil, apperrors.Forbidden("Unauthorized. Only admins can create tasks.")
	}
	if req.AssignedTo == "" {
		return nil, apperrors.BadRequest("assignedTo (user sub) is required")
	}
	if req.Deadline == "" || req.Description == "" {
		return nil, apperrors.BadRequest("deadline and description are required")
	}
	deadline, err := models.NormalizeDeadline(req.Deadline)
	if err != nil {
		return nil, apperrors.BadRequest("deadline must be an ISO-8601 timestamp")
	}

	matches, err := s.users.FindUsers(ctx, directory.Filter{Attribute: directory.AttrSub, Value: req.AssignedTo})
	if err != nil {
		return nil, apperrors.Internal(err, "Error verifying assigned user")
	}
	if len(matches) != 1 {
		logging.Logger.Warnf("Event ID: TASK_ASSIGNEE_NOT_FOUND, Description: User with sub %s not found or ambiguous (%d matches)", req.AssignedTo, len(matches))
		return nil, apperrors.NotFound("Assigned user (sub: %s) not found.", req.AssignedTo)
	}
	assignee := matches[0]
	email := assignee.Email()
	if email == "" {
		logging.Logger.Warnf("Event ID: TASK_ASSIGNEE_NO_EMAIL, Description: User sub %s (username %s) does not have an email address", req.AssignedTo, assignee.Username)
		return nil, apperrors.BadRequest("Assigned user (sub: %s) does not have an email address.", req.AssignedTo)
	}

	now := models.FormatTimestamp(s.now())
	task := &models.Task{
		TaskID:      s.newID(),
		AssignedTo:  req.AssignedTo,
		Status:      models.StatusNew,
		Deadline:    deadline,
		Description: req.Description,
		CreatedBy:   caller.Username,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Insert(ctx, task); err != nil {
		return nil, apperrors.Internal(err, "Could not create task in database.")
	}
	logging.Logger.Infof("Event ID: TASK_CREATED, Description: Task %s assigned to %s by %s", task.TaskID, task.AssignedTo, caller.Username)

	s.mailer.SendTaskAssignment(ctx, notify.Assignment{
		Email:       email,
		Username:    assignee.Username,
		Description: task.Description,
		Deadline:    task.Deadline,
	})
	return task, nil
}

// UpdateTask changes the status of a task. Only the assignee and admins may
// do so.
func (s *TaskService) UpdateTask(ctx context.Context, caller auth.Identity, req models.UpdateTaskRequest) (*models.Task, error) {
	if req.TaskID == "" || req.Status == "" {
		return nil, apperrors.BadRequest("taskId and status are required")
	}

	task, err := s.store.Get(ctx, req.TaskID)
	if err != nil {
		if errors.Is(err, repositories.ErrTaskNotFound) {
			return nil, apperrors.NotFound("Task not found")
		}
		return nil, apperrors.Internal(err, "Could not retrieve task")
	}

	if !caller.IsAdmin() && task.AssignedTo != caller.Sub {
		return nil, apperrors.Forbidden("Unauthorized. You can only update tasks assigned to you.")
	}

	oldStatus := task.Status
	task.Status = req.Status
	task.UpdatedAt = models.FormatTimestamp(s.now())
	if err := s.store.Put(ctx, task); err != nil {
		return nil, apperrors.Internal(err, "Could not update task")
	}
	logging.Logger.Infof("Event ID: TASK_UPDATED, Description: Task %s status '%s' -> '%s' by %s", task.TaskID, oldStatus, task.Status, caller.Username)

	if task.Status != oldStatus {
		s.notifier.PublishStatusChange(ctx, notify.StatusChange{
			TaskID:      task.TaskID,
			Description: task.Description,
			OldStatus:   oldStatus,
			NewStatus:   task.Status,
			ChangedBy:   caller.Username,
			AssignedTo:  task.AssignedTo,
		})
	}
	return task, nil
}
