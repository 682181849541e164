package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"clonerp/internal/store"
)

// OpenStore opens a file backed store in a fresh temp directory.
// The store is closed through t.Cleanup.
func OpenStore(t *testing.T) (*store.Store, *store.FileBackend) {
	t.Helper()
	b, err := store.NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("file backend: %v", err)
	}
	s, err := store.Open(context.Background(), b, zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, b
}

// Clock is a settable time source for code that takes a now func.
type Clock struct {
	T time.Time
}

func NewClock() *Clock {
	return &Clock{T: time.Date(2025, 11, 14, 20, 30, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time { return c.T }

func (c *Clock) Advance(d time.Duration) { c.T = c.T.Add(d) }
