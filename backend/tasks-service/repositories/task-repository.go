package repositories

import (
	"context"
	"errors"
	"fmt"

	"taskboard/backend/tasks-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrTaskExists   = errors.New("task already exists")
)

// ScanFilter narrows a scan. The zero value matches every task.
type ScanFilter struct {
	AssignedTo string
}

type TaskRepository struct {
	collection *mongo.Collection
}

func NewTaskRepository(collection *mongo.Collection) *TaskRepository {
	return &TaskRepository{collection: collection}
}

// EnsureIndexes indexes assignedTo, the only attribute scans filter on.
func (r *TaskRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "assignedTo", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create index on assignedTo: %w", err)
	}
	return nil
}

func (r *TaskRepository) Get(ctx context.Context, taskID string) (*models.Task, error) {
	var task models.Task
	if err := r.collection.FindOne(ctx, bson.M{"_id": taskID}).Decode(&task); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task %s: %w", taskID, err)
	}
	return &task, nil
}

// Insert stores a new record and fails with ErrTaskExists if the id is
// already taken.
func (r *TaskRepository) Insert(ctx context.Context, task *models.Task) error {
	if _, err := r.collection.InsertOne(ctx, task); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrTaskExists, task.TaskID)
		}
		return fmt.Errorf("failed to insert task %s: %w", task.TaskID, err)
	}
	return nil
}

// Put writes the whole record, inserting it when absent. There is no
// version check, so concurrent writers race and the last one wins.
func (r *TaskRepository) Put(ctx context.Context, task *models.Task) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": task.TaskID}, task, opts); err != nil {
		return fmt.Errorf("failed to save task %s: %w", task.TaskID, err)
	}
	return nil
}

func (r *TaskRepository) Scan(ctx context.Context, filter ScanFilter) ([]models.Task, error) {
	query := bson.M{}
	if filter.AssignedTo != "" {
		query["assignedTo"] = filter.AssignedTo
	}

	cursor, err := r.collection.Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to scan tasks: %w", err)
	}
	defer cursor.Close(ctx)

	tasks := []models.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %w", err)
	}
	return tasks, nil
}
