package generation

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"reelforge/internal/domain"
	"reelforge/internal/infra"
)

// NotifyChannel is the Postgres channel workers LISTEN on for queue wake-ups.
const NotifyChannel = "generation_jobs"

// Event identifies a dispatched unit of work. The job row is the durable
// record; the event only carries enough to wake a handler.
type Event struct {
	JobID string
	Type  domain.JobType
}

// Dispatcher publishes fire-and-forget work events. Submission must never
// block on execution; the job row already exists when Dispatch is called.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event) error
}

// NotifyDispatcher wakes workers through pg_notify on the pool the job store
// already holds. A lost notification is harmless: workers fall back to a
// short claim poll, so delivery costs at most one poll interval.
type NotifyDispatcher struct {
	pool   *pgxpool.Pool
	logger infra.Logger
}

// NewNotifyDispatcher constructs a dispatcher over the shared pool.
func NewNotifyDispatcher(pool *pgxpool.Pool, logger infra.Logger) *NotifyDispatcher {
	return &NotifyDispatcher{pool: pool, logger: logger}
}

// Dispatch publishes the event. Errors are logged, not returned: the queued
// row is the source of truth and the poll fallback will pick it up.
func (d *NotifyDispatcher) Dispatch(ctx context.Context, ev Event) error {
	if _, err := d.pool.Exec(ctx, `SELECT pg_notify($1, $2);`, NotifyChannel, ev.JobID); err != nil {
		d.logger.Warn().Err(err).
			Str("job_id", ev.JobID).
			Str("job_type", string(ev.Type)).
			Msg("dispatch notify failed, worker poll will pick the job up")
	}
	return nil
}

var _ Dispatcher = (*NotifyDispatcher)(nil)
