package repositories

import (
	"context"
	"testing"

	"taskboard/backend/tasks-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func taskDoc(id, assignedTo, status string) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "assignedTo", Value: assignedTo},
		{Key: "status", Value: status},
		{Key: "deadline", Value: "2030-01-01T10:00:00Z"},
		{Key: "description", Value: "Write report"},
		{Key: "createdBy", Value: "admin"},
	}
}

func TestTaskRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("get", func(mt *mtest.T) {
		repo := NewTaskRepository(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, taskDoc("t-1", "sub-1", "New")))

		task, err := repo.Get(context.Background(), "t-1")
		require.NoError(mt, err)
		assert.Equal(mt, "t-1", task.TaskID)
		assert.Equal(mt, "sub-1", task.AssignedTo)
		assert.Equal(mt, "2030-01-01T10:00:00Z", task.Deadline)
	})

	mt.Run("get missing", func(mt *mtest.T) {
		repo := NewTaskRepository(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.Get(context.Background(), "nope")
		assert.ErrorIs(mt, err, ErrTaskNotFound)
	})

	mt.Run("scan", func(mt *mtest.T) {
		repo := NewTaskRepository(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			taskDoc("t-1", "sub-1", "New"),
			taskDoc("t-2", "sub-1", "Completed"),
		))

		tasks, err := repo.Scan(context.Background(), ScanFilter{AssignedTo: "sub-1"})
		require.NoError(mt, err)
		require.Len(mt, tasks, 2)
		assert.Equal(mt, "Completed", tasks[1].Status)
	})

	mt.Run("scan empty", func(mt *mtest.T) {
		repo := NewTaskRepository(mt.Coll)
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		tasks, err := repo.Scan(context.Background(), ScanFilter{})
		require.NoError(mt, err)
		assert.NotNil(mt, tasks)
		assert.Empty(mt, tasks)
	})

	mt.Run("put", func(mt *mtest.T) {
		repo := NewTaskRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		err := repo.Put(context.Background(), &models.Task{TaskID: "t-1", Status: "Completed"})
		assert.NoError(mt, err)
	})

	mt.Run("put failure", func(mt *mtest.T) {
		repo := NewTaskRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    11000,
			Message: "duplicate key error",
			Name:    "DuplicateKey",
		}))

		err := repo.Put(context.Background(), &models.Task{TaskID: "t-1"})
		require.Error(mt, err)
		assert.True(mt, mongo.IsDuplicateKeyError(err))
	})

	mt.Run("insert", func(mt *mtest.T) {
		repo := NewTaskRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		err := repo.Insert(context.Background(), &models.Task{TaskID: "t-1", Status: "New"})
		assert.NoError(mt, err)
	})

	mt.Run("insert existing id", func(mt *mtest.T) {
		repo := NewTaskRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))

		err := repo.Insert(context.Background(), &models.Task{TaskID: "t-1"})
		assert.ErrorIs(mt, err, ErrTaskExists)
	})
}
