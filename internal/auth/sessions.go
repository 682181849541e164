package auth

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"clonerp/internal/app"
	"clonerp/internal/models"
)

// Sessions is the in-memory session table. Clients hold an HS256 token whose
// jti names the session, so a forged or stale cookie never reaches the table
// and a destroyed session cannot be revived by replaying its token.
type Sessions struct {
	mu       sync.Mutex
	byID     map[string]models.Session
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

func NewSessions(secret string, lifetime time.Duration, now func() time.Time) *Sessions {
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &Sessions{
		byID:     map[string]models.Session{},
		secret:   []byte(secret),
		lifetime: lifetime,
		now:      now,
	}
}

func (s *Sessions) Create(username string, role models.Role) (*models.Session, string, error) {
	now := s.now()
	sess := models.Session{
		ID:        uuid.New().String(),
		Username:  username,
		Role:      role,
		ExpiresAt: now.Add(s.lifetime),
	}
	claims := jwt.RegisteredClaims{
		ID:        sess.ID,
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, "", fmt.Errorf("sign session: %w", err)
	}

	s.mu.Lock()
	s.sweepLocked(now)
	s.byID[sess.ID] = sess
	s.mu.Unlock()

	return &sess, token, nil
}

func (s *Sessions) Lookup(token string) (*models.Session, error) {
	claims, err := s.parse(token, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", app.ErrUnauthorized, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[claims.ID]
	if !ok {
		return nil, fmt.Errorf("%w: session not found", app.ErrUnauthorized)
	}
	if !s.now().Before(sess.ExpiresAt) {
		delete(s.byID, claims.ID)
		return nil, fmt.Errorf("%w: session expired", app.ErrUnauthorized)
	}
	return &sess, nil
}

// Destroy forgets the session named by token. Expired tokens are accepted so
// logout always clears server state.
func (s *Sessions) Destroy(token string) {
	claims, err := s.parse(token, jwt.WithoutClaimsValidation())
	if err != nil {
		return
	}
	s.mu.Lock()
	delete(s.byID, claims.ID)
	s.mu.Unlock()
}

// Len reports the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

func (s *Sessions) parse(token string, opts ...jwt.ParserOption) (*jwt.RegisteredClaims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !tok.Valid || claims.ID == "" {
		return nil, fmt.Errorf("invalid session token")
	}
	return claims, nil
}

func (s *Sessions) sweepLocked(now time.Time) {
	for id, sess := range s.byID {
		if !now.Before(sess.ExpiresAt) {
			delete(s.byID, id)
		}
	}
}
