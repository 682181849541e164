package auth

import (
	"fmt"

	"clonerp/internal/app"
	"clonerp/internal/models"
)

// RequireMember passes any authenticated session.
func RequireMember(s *models.Session) error {
	if s == nil {
		return fmt.Errorf("%w: login required", app.ErrUnauthorized)
	}
	return nil
}

// RequireAdmin passes only sessions opened with the admin role.
func RequireAdmin(s *models.Session) error {
	if err := RequireMember(s); err != nil {
		return err
	}
	if !s.IsAdmin() {
		return fmt.Errorf("%w: admin role required", app.ErrUnauthorized)
	}
	return nil
}
