package services

import (
	"context"
	"errors"
	"fmt"

	"taskboard/backend/users-service/models"
	"taskboard/backend/utils/apperrors"
	"taskboard/backend/utils/auth"
	"taskboard/backend/utils/directory"
	"taskboard/backend/utils/logging"
)

type TokenIssuer interface {
	Issue(id auth.Identity) (string, error)
}

type UserService struct {
	directory       directory.Directory
	tokens          TokenIssuer
	defaultPassword string
	blackList       map[string]bool
}

// NewUserService uses defaultPassword for accounts created without an
// explicit temporary password.
func NewUserService(dir directory.Directory, tokens TokenIssuer, defaultPassword string) *UserService {
	return &UserService{directory: dir, tokens: tokens, defaultPassword: defaultPassword}
}

func requireAdmin(caller auth.Identity, action string) error {
	if !caller.IsAdmin() {
		return apperrors.Forbidden("Unauthorized. Only admins can %s users.", action)
	}
	return nil
}

// ListUsers returns every directory identity together with its groups. Each
// identity costs one extra directory call.
func (s *UserService) ListUsers(ctx context.Context, caller auth.Identity) ([]models.UserSummary, error) {
	if err := requireAdmin(caller, "list"); err != nil {
		return nil, err
	}

	identities, err := s.directory.ListUsers(ctx)
	if err != nil {
		return nil, apperrors.Internal(err, "Could not list users")
	}

	users := make([]models.UserSummary, 0, len(identities))
	for _, id := range identities {
		groups, err := s.directory.ListGroupsForUser(ctx, id.Username)
		if err != nil {
			return nil, apperrors.Internal(err, "Could not list users")
		}

		attributes := make(map[string]string, len(id.Attributes)+1)
		for k, v := range id.Attributes {
			attributes[k] = v
		}
		attributes[directory.AttrSub] = id.Sub

		users = append(users, models.UserSummary{
			Username:   id.Username,
			Attributes: attributes,
			Enabled:    id.Enabled,
			UserStatus: id.UserStatus,
			Groups:     groups,
		})
	}
	return users, nil
}

// CreateUser creates an identity with a temporary credential and places it
// in the member group.
func (s *UserService) CreateUser(ctx context.Context, caller auth.Identity, req models.CreateUserRequest) (string, error) {
	if err := requireAdmin(caller, "create"); err != nil {
		return "", err
	}
	if req.Username == "" || req.Email == "" {
		return "", apperrors.BadRequest("username and email are required.")
	}

	password := req.TemporaryPassword
	if password == "" {
		logging.Logger.Warnf("Event ID: USER_DEFAULT_PASSWORD, Description: No temporary password supplied for %s, using the configured default", req.Username)
		password = s.defaultPassword
	} else if err := s.checkPassword(password); err != nil {
		return "", err
	}

	if _, err := s.directory.CreateUser(ctx, directory.NewIdentity{
		Username:          req.Username,
		Email:             req.Email,
		TemporaryPassword: password,
	}); err != nil {
		if errors.Is(err, directory.ErrUsernameExists) {
			return "", apperrors.Conflict("User %s already exists.", req.Username)
		}
		return "", apperrors.Internal(err, "Could not create user")
	}

	if err := s.directory.AddUserToGroup(ctx, req.Username, auth.GroupMember); err != nil {
		return "", apperrors.Internal(err, "Could not add user to member group")
	}
	logging.Logger.Infof("Event ID: USER_CREATED, Description: User %s created by %s and added to %s", req.Username, caller.Username, auth.GroupMember)

	return fmt.Sprintf("User %s created and added to member group.", req.Username), nil
}

func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, apperrors.BadRequest("username and password are required")
	}

	id, err := s.directory.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, directory.ErrInvalidCredentials):
			return nil, apperrors.Unauthorized("Invalid username or password")
		case errors.Is(err, directory.ErrUserDisabled):
			return nil, apperrors.Unauthorized("User is disabled")
		}
		return nil, apperrors.Internal(err, "Could not sign in")
	}

	groups := id.Groups
	if groups == nil {
		groups = []string{}
	}
	token, err := s.tokens.Issue(auth.Identity{Sub: id.Sub, Username: id.Username, Groups: groups})
	if err != nil {
		return nil, apperrors.Internal(err, "Could not sign in")
	}
	logging.Logger.Infof("Event ID: USER_LOGIN, Description: User %s signed in", id.Username)

	return &models.LoginResponse{Token: token, Username: id.Username, Groups: groups}, nil
}

// ChangePassword replaces the caller's temporary or current password.
func (s *UserService) ChangePassword(ctx context.Context, caller auth.Identity, req models.ChangePasswordRequest) error {
	if req.OldPassword == "" || req.NewPassword == "" {
		return apperrors.BadRequest("oldPassword and newPassword are required")
	}
	if req.NewPassword != req.ConfirmPassword {
		return apperrors.BadRequest("new password and confirmation do not match")
	}
	if req.NewPassword == req.OldPassword {
		return apperrors.BadRequest("new password must differ from the old one")
	}
	if err := s.checkPassword(req.NewPassword); err != nil {
		return err
	}

	if err := s.directory.ChangePassword(ctx, caller.Username, req.OldPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, directory.ErrInvalidCredentials):
			return apperrors.BadRequest("old password is incorrect")
		case errors.Is(err, directory.ErrUserNotFound):
			return apperrors.NotFound("User %s not found", caller.Username)
		}
		return apperrors.Internal(err, "Could not change password")
	}
	logging.Logger.Infof("Event ID: PASSWORD_CHANGED, Description: User %s changed their password", caller.Username)
	return nil
}

// EnsureAdmin creates the bootstrap administrator when it does not exist yet
// and makes sure it belongs to both groups.
func (s *UserService) EnsureAdmin(ctx context.Context, admin directory.NewIdentity) error {
	if _, err := s.directory.GetUser(ctx, admin.Username); err != nil {
		if !errors.Is(err, directory.ErrUserNotFound) {
			return fmt.Errorf("look up admin %s: %w", admin.Username, err)
		}
		if _, err := s.directory.CreateUser(ctx, admin); err != nil && !errors.Is(err, directory.ErrUsernameExists) {
			return fmt.Errorf("create admin %s: %w", admin.Username, err)
		}
		logging.Logger.Infof("Event ID: ADMIN_BOOTSTRAPPED, Description: Created administrator %s", admin.Username)
	}

	for _, group := range []string{auth.GroupAdmin, auth.GroupMember} {
		if err := s.directory.AddUserToGroup(ctx, admin.Username, group); err != nil {
			return fmt.Errorf("add admin %s to %s: %w", admin.Username, group, err)
		}
	}
	return nil
}
