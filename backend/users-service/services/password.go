package services

import (
	"strings"
	"unicode"

	"taskboard/backend/utils/apperrors"
)

const passwordSpecialChars = "!@#$%^&*.,"

// ValidatePassword enforces the password policy on administrator supplied
// temporary passwords.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return apperrors.BadRequest("password must be at least 8 characters long")
	}

	var hasUpper, hasDigit, hasSpecial bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsDigit(char):
			hasDigit = true
		case strings.ContainsRune(passwordSpecialChars, char):
			hasSpecial = true
		}
	}

	if !hasUpper {
		return apperrors.BadRequest("password must contain at least one uppercase letter")
	}
	if !hasDigit {
		return apperrors.BadRequest("password must contain at least one number")
	}
	if !hasSpecial {
		return apperrors.BadRequest("password must contain at least one special character (%s)", passwordSpecialChars)
	}
	return nil
}
