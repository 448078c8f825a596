package auth

import (
	"strings"
	"unicode"

	appErrors "github.com/KGR33N-dev/Portfolio-Backend/pkg/errors"
)

// passwordSpecials is the set of characters accepted as "special".
const passwordSpecials = "!@#$%^&*()_+-=[]{}|;:,.<>?"

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// ValidatePassword enforces the password policy. It returns a 422 AppError
// naming the first unmet rule so clients can show it verbatim.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return appErrors.NewValidation("Password must be at least 8 characters long")
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSpecials, r):
			hasSpecial = true
		}
	}

	switch {
	case !hasUpper:
		return appErrors.NewValidation("Password must contain at least one uppercase letter")
	case !hasLower:
		return appErrors.NewValidation("Password must contain at least one lowercase letter")
	case !hasDigit:
		return appErrors.NewValidation("Password must contain at least one number")
	case !hasSpecial:
		return appErrors.NewValidation("Password must contain at least one special character")
	}

	return nil
}
