// Package directory is the identity directory used for authentication,
// group membership and user lookups. Directory is the port handlers depend
// on; MongoDirectory is the adapter to the hosted user collection.
package directory

import (
	"context"
	"errors"
	"time"
)

const (
	AttrSub               = "sub"
	AttrEmail             = "email"
	AttrEmailVerified     = "email_verified"
	AttrPreferredUsername = "preferred_username"
)

const (
	StatusForceChangePassword = "FORCE_CHANGE_PASSWORD"
	StatusConfirmed           = "CONFIRMED"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserDisabled       = errors.New("user is disabled")
)

// Identity is one directory entry.
type Identity struct {
	Sub          string            `bson:"_id" json:"sub"`
	Username     string            `bson:"username" json:"username"`
	Attributes   map[string]string `bson:"attributes" json:"attributes"`
	Enabled      bool              `bson:"enabled" json:"enabled"`
	UserStatus   string            `bson:"userStatus" json:"userStatus"`
	Groups       []string          `bson:"groups" json:"groups"`
	PasswordHash string            `bson:"passwordHash" json:"-"`
	CreatedAt    time.Time         `bson:"createdAt" json:"createdAt"`
}

func (i Identity) Attribute(name string) string {
	if name == AttrSub {
		return i.Sub
	}
	return i.Attributes[name]
}

func (i Identity) Email() string {
	return i.Attribute(AttrEmail)
}

// Filter selects identities whose attribute equals Value.
type Filter struct {
	Attribute string
	Value     string
}

// NewIdentity describes an account to be created by an administrator.
type NewIdentity struct {
	Username          string
	Email             string
	TemporaryPassword string
}

type Directory interface {
	ListUsers(ctx context.Context) ([]Identity, error)
	FindUsers(ctx context.Context, filter Filter) ([]Identity, error)
	// GetUser resolves either a directory identifier or a username.
	GetUser(ctx context.Context, usernameOrSub string) (*Identity, error)
	CreateUser(ctx context.Context, in NewIdentity) (*Identity, error)
	AddUserToGroup(ctx context.Context, username, group string) error
	ListGroupsForUser(ctx context.Context, username string) ([]string, error)
	Authenticate(ctx context.Context, username, password string) (*Identity, error)
	// ChangePassword replaces the credential after checking the current one
	// and marks the identity CONFIRMED.
	ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error
}

// WelcomeMailer delivers the temporary credential for new accounts.
type WelcomeMailer interface {
	SendWelcome(ctx context.Context, email, username, temporaryPassword string) error
}
