package server

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/labtrack/labtrack-auth/internal/config"
	"github.com/rs/zerolog/log"
)

const defaultAdminUsername = "admin"

// InitialiseSystem seeds an initial admin user when the user store is empty,
// so a fresh install can be logged into. The generated password is printed
// once and must be changed by the operator.
func (s *Server) InitialiseSystem(cfg config.Config) error {
	count, err := s.repos.Users.Count()
	if err != nil {
		return fmt.Errorf("[Server InitialiseSystem] failed to count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	password, err := generatePassword()
	if err != nil {
		return fmt.Errorf("[Server InitialiseSystem] failed to generate password: %w", err)
	}

	adminEmail := config.GetEnv("ADMIN_EMAIL", "admin@localhost")
	result, err := s.auth.Register(defaultAdminUsername, adminEmail, "Administrator", password)
	if err != nil {
		return fmt.Errorf("[Server InitialiseSystem] failed to create admin user: %w", err)
	}

	log.Info().
		Str("username", defaultAdminUsername).
		Str("password", password).
		Str("recovery_code", result.RecoveryCode).
		Msg("initial admin user created - change this password after first login")
	return nil
}

func generatePassword() (string, error) {
	bytes := make([]byte, 12)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	// Prefix keeps the generated value within the password strength rules
	return "Aa1" + base64.RawURLEncoding.EncodeToString(bytes), nil
}
