package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/fantabid/go/internal/sqlutil"
)

// Queries holds the user session statements.
type Queries struct {
	db sqlutil.DBTX
}

func New(db sqlutil.DBTX) *Queries {
	return &Queries{db: db}
}

// Open starts a session for the user. An already open session is kept as is
// and reported with opened false.
func (q *Queries) Open(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO user_sessions (user_id, session_start, session_end, first_login)
		VALUES ($1, $2, NULL, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET session_start = EXCLUDED.session_start, session_end = NULL
		WHERE user_sessions.session_end IS NOT NULL`,
		userID, now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to open session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to open session: %w", err)
	}
	return n > 0, nil
}

// Close ends the user's open session, if any.
func (q *Queries) Close(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE user_sessions SET session_end = $2
		WHERE user_id = $1 AND session_end IS NULL`,
		userID, now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to close session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to close session: %w", err)
	}
	return n > 0, nil
}

// IsOnline reports whether the user has an open session.
func (q *Queries) IsOnline(ctx context.Context, userID uuid.UUID) (bool, error) {
	var online bool
	err := q.db.QueryRowContext(ctx, `
		SELECT EXISTS (
		  SELECT 1 FROM user_sessions WHERE user_id = $1 AND session_end IS NULL
		)`,
		userID,
	).Scan(&online)
	if err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return online, nil
}

// HasEverLoggedIn reports whether the user has any session record.
func (q *Queries) HasEverLoggedIn(ctx context.Context, userID uuid.UUID) (bool, error) {
	var seen bool
	err := q.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM user_sessions WHERE user_id = $1)`,
		userID,
	).Scan(&seen)
	if err != nil {
		return false, fmt.Errorf("failed to check session history: %w", err)
	}
	return seen, nil
}

// Get reads the user's session record, or nil when they never logged in.
func (q *Queries) Get(ctx context.Context, userID uuid.UUID) (*Session, error) {
	var (
		s   = Session{UserID: userID}
		end sql.NullTime
	)
	err := q.db.QueryRowContext(ctx, `
		SELECT session_start, session_end, first_login
		FROM user_sessions WHERE user_id = $1`,
		userID,
	).Scan(&s.Start, &end, &s.FirstLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	s.End = sqlutil.FromSqlTime(end)
	return &s, nil
}
