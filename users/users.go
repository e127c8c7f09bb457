package users

import (
	"fmt"
	"time"

	"unicode"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	ID           string    `json:"id,omitempty"`        // Unique identifier for the user
	Username     string    `json:"username,omitempty"`  // Unique username
	Email        string    `json:"email,omitempty"`     // User's email address
	FullName     string    `json:"full_name,omitempty"` // Full display name
	PasswordHash string    `json:"-"`                   // Hashed version of the user's password - never serialize
	CreatedAt    time.Time `json:"created_at,omitempty"`

	// Password recovery
	RecoveryCode     string `json:"-"` // One-time numeric code, rotated on use
	RecoveryAttempts int    `json:"-"` // Failed verification attempts against the current code

	// Remember-me functionality
	RememberToken string    `json:"-"` // Opaque long-lived credential, empty when not remembered
	TokenExpiry   time.Time `json:"-"` // Expiry of the remember token

	Active bool `json:"is_active"` // Inactive users cannot authenticate
}

// Remembered reports whether the user has a live remember token at the given time.
func (u *User) Remembered(now time.Time) bool {
	return u.RememberToken != "" && now.Before(u.TokenExpiry)
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
