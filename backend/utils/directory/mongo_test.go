package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"golang.org/x/crypto/bcrypt"
)

func namespace(mt *mtest.T) string {
	return mt.Coll.Database().Name() + "." + mt.Coll.Name()
}

func identityDoc(sub, username, email string, groups ...string) bson.D {
	attrs := bson.D{{Key: "sub", Value: sub}}
	if email != "" {
		attrs = append(attrs, bson.E{Key: "email", Value: email})
	}
	g := bson.A{}
	for _, group := range groups {
		g = append(g, group)
	}
	return bson.D{
		{Key: "_id", Value: sub},
		{Key: "username", Value: username},
		{Key: "attributes", Value: attrs},
		{Key: "enabled", Value: true},
		{Key: "userStatus", Value: StatusConfirmed},
		{Key: "groups", Value: g},
	}
}

func commandNames(mt *mtest.T) []string {
	var names []string
	for _, evt := range mt.GetAllStartedEvents() {
		names = append(names, evt.CommandName)
	}
	return names
}

func TestMongoDirectory(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("find users by sub", func(mt *mtest.T) {
		dir := NewMongoDirectory(mt.Coll, nil)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch,
			identityDoc("sub-1", "alice", "alice@example.com", "member"),
		))

		users, err := dir.FindUsers(context.Background(), Filter{Attribute: AttrSub, Value: "sub-1"})
		require.NoError(mt, err)
		require.Len(mt, users, 1)
		assert.Equal(mt, "alice", users[0].Username)
		assert.Equal(mt, "alice@example.com", users[0].Email())
		assert.Equal(mt, []string{"member"}, users[0].Groups)
	})

	mt.Run("list users empty", func(mt *mtest.T) {
		dir := NewMongoDirectory(mt.Coll, nil)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))

		users, err := dir.ListUsers(context.Background())
		require.NoError(mt, err)
		assert.NotNil(mt, users)
		assert.Empty(mt, users)
	})

	mt.Run("get user not found", func(mt *mtest.T) {
		dir := NewMongoDirectory(mt.Coll, nil)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))

		_, err := dir.GetUser(context.Background(), "ghost")
		assert.ErrorIs(mt, err, ErrUserNotFound)
	})

	mt.Run("add to group for unknown user", func(mt *mtest.T) {
		dir := NewMongoDirectory(mt.Coll, nil)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		err := dir.AddUserToGroup(context.Background(), "ghost", "member")
		assert.ErrorIs(mt, err, ErrUserNotFound)
	})

	mt.Run("authenticate", func(mt *mtest.T) {
		dir := NewMongoDirectory(mt.Coll, nil)
		hash, err := bcrypt.GenerateFromPassword([]byte("Secret123!"), bcrypt.MinCost)
		require.NoError(mt, err)

		doc := append(identityDoc("sub-1", "alice", "alice@example.com", "admin"),
			bson.E{Key: "passwordHash", Value: string(hash)})
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch, doc),
			mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch, doc),
		)

		id, err := dir.Authenticate(context.Background(), "alice", "Secret123!")
		require.NoError(mt, err)
		assert.Equal(mt, "sub-1", id.Sub)

		_, err = dir.Authenticate(context.Background(), "alice", "wrong")
		assert.ErrorIs(mt, err, ErrInvalidCredentials)
	})

	mt.Run("change password", func(mt *mtest.T) {
		dir := NewMongoDirectory(mt.Coll, nil)
		hash, err := bcrypt.GenerateFromPassword([]byte("TempPassword123!"), bcrypt.MinCost)
		require.NoError(mt, err)

		doc := append(identityDoc("sub-1", "alice", "alice@example.com", "member"),
			bson.E{Key: "passwordHash", Value: string(hash)})
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch, doc),
			mtest.CreateSuccessResponse(
				bson.E{Key: "n", Value: 1},
				bson.E{Key: "nModified", Value: 1},
			),
		)

		require.NoError(mt, dir.ChangePassword(context.Background(), "alice", "TempPassword123!", "N3w.Password"))

		assert.Equal(mt, []string{"find", "update"}, commandNames(mt))
	})

	mt.Run("change password with wrong old password", func(mt *mtest.T) {
		dir := NewMongoDirectory(mt.Coll, nil)
		hash, err := bcrypt.GenerateFromPassword([]byte("TempPassword123!"), bcrypt.MinCost)
		require.NoError(mt, err)

		doc := append(identityDoc("sub-1", "alice", "alice@example.com"),
			bson.E{Key: "passwordHash", Value: string(hash)})
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch, doc))

		err = dir.ChangePassword(context.Background(), "alice", "wrong", "N3w.Password")
		assert.ErrorIs(mt, err, ErrInvalidCredentials)
		assert.Equal(mt, []string{"find"}, commandNames(mt))
	})

	mt.Run("change password for unknown user", func(mt *mtest.T) {
		dir := NewMongoDirectory(mt.Coll, nil)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))

		err := dir.ChangePassword(context.Background(), "ghost", "a", "b")
		assert.ErrorIs(mt, err, ErrUserNotFound)
	})
}

func TestFilterDocument(t *testing.T) {
	assert.Equal(t, bson.M{"_id": "s"}, filterDocument(Filter{Attribute: AttrSub, Value: "s"}))
	assert.Equal(t, bson.M{"username": "u"}, filterDocument(Filter{Attribute: "username", Value: "u"}))
	assert.Equal(t, bson.M{"attributes.email": "e"}, filterDocument(Filter{Attribute: AttrEmail, Value: "e"}))
}
