// internal/auth/auth.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"clonerp/internal/app"
	"clonerp/internal/metrics"
	"clonerp/internal/models"
	"clonerp/internal/store"
)

// ----------------------------
// Context helpers for middleware and handlers
// ----------------------------

type ctxKeySession struct{}

func WithSession(ctx context.Context, s *models.Session) context.Context {
	return context.WithValue(ctx, ctxKeySession{}, s)
}

func SessionFrom(ctx context.Context) (*models.Session, bool) {
	s, _ := ctx.Value(ctxKeySession{}).(*models.Session)
	return s, s != nil
}

// ----------------------------
// Service
// ----------------------------

type Options struct {
	Secret          string
	SessionLifetime time.Duration
	BcryptCost      int
	Logger          zerolog.Logger
	Now             func() time.Time
}

// Service is the credential manager: accounts live in the users collection,
// sessions only in memory.
type Service struct {
	users    *store.Collection[store.Accounts]
	sessions *Sessions
	cost     int
	log      zerolog.Logger
}

func NewService(users *store.Collection[store.Accounts], opts Options) *Service {
	cost := opts.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		users:    users,
		sessions: NewSessions(opts.Secret, opts.SessionLifetime, opts.Now),
		cost:     cost,
		log:      opts.Logger.With().Str("component", "auth").Logger(),
	}
}

// ----------------------------
// Register
// ----------------------------

func (s *Service) Register(ctx context.Context, username, email, password string) error {
	email = strings.TrimSpace(email)
	if strings.TrimSpace(username) == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", app.ErrValidation)
	}

	// bcrypt runs outside the collection lock
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return fmt.Errorf("%w: password is longer than 72 bytes", app.ErrValidation)
	}
	if err != nil {
		return err
	}

	err = s.users.Update(ctx, func(doc *store.Accounts) error {
		if _, exists := (*doc)[username]; exists {
			return fmt.Errorf("%w: %q", app.ErrDuplicateUser, username)
		}
		(*doc)[username] = models.Account{
			Email:        email,
			PasswordHash: string(hash),
			Role:         models.RoleMember,
		}
		return nil
	})
	if err != nil {
		return err
	}
	metrics.Registrations.Inc()
	s.log.Info().Str("username", username).Msg("account registered")
	return nil
}

// ----------------------------
// Login / Logout
// ----------------------------

// Login checks the password and opens a session bound to the account's role
// at this moment. The returned token is what the client presents later.
func (s *Service) Login(ctx context.Context, username, password string) (*models.Session, string, error) {
	var (
		acc models.Account
		ok  bool
	)
	s.users.Read(func(doc store.Accounts) { acc, ok = doc[username] })
	if !ok {
		metrics.Logins.WithLabelValues("unknown_user").Inc()
		s.log.Debug().Str("username", username).Msg("login: no such user")
		return nil, "", fmt.Errorf("%w: user %q", app.ErrNotFound, username)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		metrics.Logins.WithLabelValues("bad_password").Inc()
		s.log.Info().Str("username", username).Msg("login: bad password")
		return nil, "", app.ErrInvalidCredential
	}

	sess, token, err := s.sessions.Create(username, acc.Role)
	if err != nil {
		return nil, "", err
	}
	metrics.Logins.WithLabelValues("ok").Inc()
	s.log.Info().Str("username", username).Str("role", string(acc.Role)).Msg("login ok")
	return sess, token, nil
}

// Logout destroys the session behind token, if there is one.
func (s *Service) Logout(token string) {
	s.sessions.Destroy(token)
}

// Authenticate resolves a token to its live session.
func (s *Service) Authenticate(token string) (*models.Session, error) {
	return s.sessions.Lookup(token)
}
