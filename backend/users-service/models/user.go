package models

// UserSummary is one entry of the admin user listing.
type UserSummary struct {
	Username   string            `json:"username"`
	Attributes map[string]string `json:"attributes"`
	Enabled    bool              `json:"enabled"`
	UserStatus string            `json:"userStatus"`
	Groups     []string          `json:"groups"`
}

type CreateUserRequest struct {
	Username          string `json:"username"`
	Email             string `json:"email"`
	TemporaryPassword string `json:"temporaryPassword,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token    string   `json:"token"`
	Username string   `json:"username"`
	Groups   []string `json:"groups"`
}

type ChangePasswordRequest struct {
	OldPassword     string `json:"oldPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}
