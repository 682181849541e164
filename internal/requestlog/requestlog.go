// Package requestlog keeps the append-only record of every request served.
package requestlog

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"clonerp/internal/auth"
	"clonerp/internal/metrics"
	"clonerp/internal/models"
	"clonerp/internal/store"
)

// writeTimeout bounds one append. It starts when Record is called, not when
// the request did.
const writeTimeout = 3 * time.Second

type Recorder struct {
	logs *store.Collection[[]models.LogEntry]
	now  func() time.Time
	log  zerolog.Logger
}

func NewRecorder(logs *store.Collection[[]models.LogEntry], logger zerolog.Logger, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{
		logs: logs,
		now:  now,
		log:  logger.With().Str("component", "requestlog").Logger(),
	}
}

// Record appends one entry. Failures are logged and swallowed: the request
// being logged must go on regardless. The append outlives a cancelled or
// timed-out request context.
func (r *Recorder) Record(ctx context.Context, ip, endpoint string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	entry := models.LogEntry{
		IP:       ip,
		Endpoint: endpoint,
		Time:     r.now().Format(models.LogTimeLayout),
	}
	err := r.logs.Update(ctx, func(doc *[]models.LogEntry) error {
		*doc = append(*doc, entry)
		return nil
	})
	if err != nil {
		metrics.RequestLogFailures.Inc()
		r.log.Warn().Err(err).Str("endpoint", endpoint).Msg("request log append failed")
	}
}

// List returns every entry in arrival order. Only admins may read the log.
func (r *Recorder) List(actor *models.Session) ([]models.LogEntry, error) {
	if err := auth.RequireAdmin(actor); err != nil {
		return nil, err
	}
	var out []models.LogEntry
	r.logs.Read(func(doc []models.LogEntry) {
		out = append([]models.LogEntry(nil), doc...)
	})
	return out, nil
}
