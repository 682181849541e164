package auth

import (
	"context"
	"fmt"
	"sort"

	"clonerp/internal/app"
	"clonerp/internal/models"
	"clonerp/internal/store"
)

// SetRole changes target's role on behalf of an admin actor. Sessions that
// are already open keep the role they were created with.
func (s *Service) SetRole(ctx context.Context, actor *models.Session, target, role string) error {
	if err := RequireAdmin(actor); err != nil {
		return err
	}
	if err := s.AssignRole(ctx, target, role); err != nil {
		return err
	}
	s.log.Info().Str("actor", actor.Username).Str("username", target).Str("role", role).Msg("role updated")
	return nil
}

// AssignRole changes a role without an actor check. It backs the operator
// CLI, which runs against the store directly.
func (s *Service) AssignRole(ctx context.Context, target, role string) error {
	r, ok := models.ParseRole(role)
	if !ok {
		return fmt.Errorf("%w: unknown role %q", app.ErrValidation, role)
	}
	return s.users.Update(ctx, func(doc *store.Accounts) error {
		acc, ok := (*doc)[target]
		if !ok {
			return fmt.Errorf("%w: user %q", app.ErrNotFound, target)
		}
		acc.Role = r
		(*doc)[target] = acc
		return nil
	})
}

// Users lists every account ordered by username.
func (s *Service) Users() []models.User {
	var out []models.User
	s.users.Read(func(doc store.Accounts) {
		out = make([]models.User, 0, len(doc))
		for name, acc := range doc {
			out = append(out, models.User{Username: name, Email: acc.Email, Role: acc.Role})
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}

// Admins returns the usernames holding the admin role.
func (s *Service) Admins() []string {
	var out []string
	for _, u := range s.Users() {
		if u.Role == models.RoleAdmin {
			out = append(out, u.Username)
		}
	}
	return out
}
