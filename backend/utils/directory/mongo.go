package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskboard/backend/utils/logging"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

type MongoDirectory struct {
	users  *mongo.Collection
	mailer WelcomeMailer
	now    func() time.Time
}

// NewMongoDirectory wraps the user collection. mailer may be nil, in which
// case new accounts receive no welcome message.
func NewMongoDirectory(users *mongo.Collection, mailer WelcomeMailer) *MongoDirectory {
	return &MongoDirectory{users: users, mailer: mailer, now: time.Now}
}

// EnsureIndexes creates the unique username index.
func (d *MongoDirectory) EnsureIndexes(ctx context.Context) error {
	indexModel := mongo.IndexModel{
		Keys:    bson.M{"username": 1},
		Options: options.Index().SetUnique(true),
	}
	if _, err := d.users.Indexes().CreateOne(ctx, indexModel); err != nil {
		return fmt.Errorf("failed to create unique index on username: %w", err)
	}
	return nil
}

func (d *MongoDirectory) ListUsers(ctx context.Context) ([]Identity, error) {
	return d.find(ctx, bson.M{})
}

func (d *MongoDirectory) FindUsers(ctx context.Context, filter Filter) ([]Identity, error) {
	return d.find(ctx, filterDocument(filter))
}

func (d *MongoDirectory) GetUser(ctx context.Context, usernameOrSub string) (*Identity, error) {
	var id Identity
	query := bson.M{"$or": bson.A{
		bson.M{"_id": usernameOrSub},
		bson.M{"username": usernameOrSub},
	}}
	if err := d.users.FindOne(ctx, query).Decode(&id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %s: %w", usernameOrSub, err)
	}
	return &id, nil
}

func (d *MongoDirectory) CreateUser(ctx context.Context, in NewIdentity) (*Identity, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.TemporaryPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	sub := uuid.New().String()
	id := Identity{
		Sub:      sub,
		Username: in.Username,
		Attributes: map[string]string{
			AttrSub:           sub,
			AttrEmail:         in.Email,
			AttrEmailVerified: "true",
		},
		Enabled:      true,
		UserStatus:   StatusForceChangePassword,
		Groups:       []string{},
		PasswordHash: string(hash),
		CreatedAt:    d.now().UTC(),
	}

	if _, err := d.users.InsertOne(ctx, id); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrUsernameExists
		}
		return nil, fmt.Errorf("failed to save user: %w", err)
	}
	logging.Logger.Infof("Event ID: DIRECTORY_USER_CREATED, Description: Created identity %s (sub %s)", id.Username, id.Sub)

	if d.mailer != nil {
		if err := d.mailer.SendWelcome(ctx, in.Email, in.Username, in.TemporaryPassword); err != nil {
			logging.Logger.Warnf("Event ID: DIRECTORY_WELCOME_FAILED, Description: Welcome message for %s not delivered: %v", in.Username, err)
		}
	}
	return &id, nil
}

// AddUserToGroup records membership once; repeating the call is a no-op.
func (d *MongoDirectory) AddUserToGroup(ctx context.Context, username, group string) error {
	res, err := d.users.UpdateOne(ctx,
		bson.M{"username": username},
		bson.M{"$addToSet": bson.M{"groups": group}},
	)
	if err != nil {
		return fmt.Errorf("add %s to group %s: %w", username, group, err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (d *MongoDirectory) ListGroupsForUser(ctx context.Context, username string) ([]string, error) {
	var id Identity
	opts := options.FindOne().SetProjection(bson.M{"groups": 1})
	if err := d.users.FindOne(ctx, bson.M{"username": username}, opts).Decode(&id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("list groups for %s: %w", username, err)
	}
	if id.Groups == nil {
		return []string{}, nil
	}
	return id.Groups, nil
}

func (d *MongoDirectory) Authenticate(ctx context.Context, username, password string) (*Identity, error) {
	var id Identity
	if err := d.users.FindOne(ctx, bson.M{"username": username}).Decode(&id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("authenticate %s: %w", username, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(id.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !id.Enabled {
		return nil, ErrUserDisabled
	}
	return &id, nil
}

func (d *MongoDirectory) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	var id Identity
	if err := d.users.FindOne(ctx, bson.M{"username": username}).Decode(&id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrUserNotFound
		}
		return fmt.Errorf("change password for %s: %w", username, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(id.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	res, err := d.users.UpdateOne(ctx,
		bson.M{"username": username},
		bson.M{"$set": bson.M{"passwordHash": string(hash), "userStatus": StatusConfirmed}},
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	logging.Logger.Infof("Event ID: DIRECTORY_PASSWORD_CHANGED, Description: Password changed for %s", username)
	return nil
}

func (d *MongoDirectory) find(ctx context.Context, filter bson.M) ([]Identity, error) {
	cursor, err := d.users.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}
	defer cursor.Close(ctx)

	identities := []Identity{}
	if err := cursor.All(ctx, &identities); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return identities, nil
}

func filterDocument(f Filter) bson.M {
	switch f.Attribute {
	case AttrSub:
		return bson.M{"_id": f.Value}
	case "username":
		return bson.M{"username": f.Value}
	default:
		return bson.M{"attributes." + f.Attribute: f.Value}
	}
}
