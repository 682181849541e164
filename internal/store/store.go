package store

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"clonerp/internal/models"
)

// Collection names as seen by backends.
const (
	CollectionUsers  = "users"
	CollectionTopics = "topics"
	CollectionLogs   = "logs"
)

// Accounts is the users document: username -> account.
type Accounts = map[string]models.Account

// Store owns the three collections of the application. It is opened once at
// process start and closed at shutdown.
type Store struct {
	Users  *Collection[Accounts]
	Topics *Collection[[]models.Topic]
	Logs   *Collection[[]models.LogEntry]

	backend Backend
}

// Open loads every collection from the backend. A corrupt users or topics
// document is an error; a corrupt request log is replaced by an empty one.
func Open(ctx context.Context, backend Backend, logger zerolog.Logger) (*Store, error) {
	s := &Store{
		Users:   newCollection(CollectionUsers, backend, fixAccounts),
		Topics:  newCollection(CollectionTopics, backend, fixSlice[models.Topic]),
		Logs:    newCollection(CollectionLogs, backend, fixSlice[models.LogEntry]),
		backend: backend,
	}
	if err := s.Users.load(ctx); err != nil {
		return nil, err
	}
	if err := s.Topics.load(ctx); err != nil {
		return nil, err
	}
	if err := s.Logs.load(ctx); err != nil {
		if !errors.Is(err, ErrCorrupt) {
			return nil, err
		}
		logger.Warn().Err(err).Msg("request log unreadable, starting with an empty log")
		if err := s.Logs.reset(ctx); err != nil {
			return nil, err
		}
	}
	logger.Debug().Msg("store opened")
	return s, nil
}

func (s *Store) Close() error {
	return s.backend.Close()
}

func fixAccounts(m *Accounts) {
	if *m == nil {
		*m = Accounts{}
	}
	for name, acc := range *m {
		if norm := acc.Role.Normalize(); norm != acc.Role {
			acc.Role = norm
			(*m)[name] = acc
		}
	}
}

func fixSlice[E any](s *[]E) {
	if *s == nil {
		*s = []E{}
	}
}
