package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/fantabid/go/internal/apperr"
	"github.com/mcdev12/fantabid/go/internal/sqlutil"
)

// Queries reads and acknowledges notification_outbox rows.
type Queries struct {
	db sqlutil.DBTX
}

func New(db sqlutil.DBTX) *Queries {
	return &Queries{db: db}
}

const eventColumns = `id, room, event_type, payload, created_at`

func scanEvent(row interface{ Scan(...any) error }) (Event, error) {
	var (
		ev      Event
		payload []byte
	)
	if err := row.Scan(&ev.ID, &ev.Room, &ev.EventType, &payload, &ev.CreatedAt); err != nil {
		return ev, err
	}
	ev.Payload = payload
	return ev, nil
}

// FetchUnsentByID returns an event that has not been published yet.
func (q *Queries) FetchUnsentByID(ctx context.Context, id uuid.UUID) (Event, error) {
	ev, err := scanEvent(q.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+`
		FROM notification_outbox
		WHERE id = $1 AND sent_at IS NULL`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ev, apperr.NotFound("outbox event not found or already sent")
		}
		return ev, fmt.Errorf("failed to fetch outbox event: %w", err)
	}
	return ev, nil
}

// FetchUnsent returns the oldest unpublished events.
func (q *Queries) FetchUnsent(ctx context.Context, limit int) ([]Event, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM notification_outbox
		WHERE sent_at IS NULL
		ORDER BY created_at
		LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// MarkSent records a successful publish.
func (q *Queries) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE notification_outbox SET sent_at = $2
		WHERE id = $1 AND sent_at IS NULL`, id, at,
	)
	if err != nil {
		return fmt.Errorf("failed to mark outbox event as sent: %w", err)
	}
	return nil
}
