package session

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Session is a user's presence record. End is nil while they are online.
type Session struct {
	UserID     uuid.UUID  `json:"user_id"`
	Start      time.Time  `json:"session_start"`
	End        *time.Time `json:"session_end,omitempty"`
	FirstLogin time.Time  `json:"first_login"`
}

// Online reports whether the session is open.
func (s Session) Online() bool {
	return s.End == nil
}

// Store answers presence questions from the session table
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) IsOnline(ctx context.Context, userID uuid.UUID) (bool, error) {
	return New(s.db).IsOnline(ctx, userID)
}

func (s *Store) HasEverLoggedIn(ctx context.Context, userID uuid.UUID) (bool, error) {
	return New(s.db).HasEverLoggedIn(ctx, userID)
}

// TimerActivator defines what login needs from the response timers
type TimerActivator interface {
	ExpireForUser(ctx context.Context, userID uuid.UUID) (int, error)
	ActivateForUser(ctx context.Context, userID uuid.UUID, at time.Time) (int, error)
}

// App tracks logins and logouts
type App struct {
	store  *Store
	clock  clockwork.Clock
	timers TimerActivator
}

// NewApp creates a new session App
func NewApp(store *Store, clock clockwork.Clock, timers TimerActivator) *App {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &App{
		store:  store,
		clock:  clock,
		timers: timers,
	}
}

// RecordLogin opens the user's session, settles any response timer that ran
// out while they were away and starts the countdown on the dormant ones.
func (a *App) RecordLogin(ctx context.Context, userID uuid.UUID) error {
	now := a.clock.Now()
	opened, err := New(a.store.db).Open(ctx, userID, now)
	if err != nil {
		return err
	}
	if opened {
		log.Info().Str("user_id", userID.String()).Msg("session opened")
	}

	expired, err := a.timers.ExpireForUser(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.String()).Msg("failed to expire response timers at login")
	} else if expired > 0 {
		log.Info().Str("user_id", userID.String()).Int("count", expired).Msg("expired response timers at login")
	}

	if _, err := a.timers.ActivateForUser(ctx, userID, now); err != nil {
		return err
	}
	return nil
}

// RecordLogout closes the user's open session.
func (a *App) RecordLogout(ctx context.Context, userID uuid.UUID) error {
	closed, err := New(a.store.db).Close(ctx, userID, a.clock.Now())
	if err != nil {
		return err
	}
	if !closed {
		log.Warn().Str("user_id", userID.String()).Msg("logout without an open session")
		return nil
	}
	log.Info().Str("user_id", userID.String()).Msg("session closed")
	return nil
}

// IsOnline reports whether the user has an open session.
func (a *App) IsOnline(ctx context.Context, userID uuid.UUID) (bool, error) {
	return a.store.IsOnline(ctx, userID)
}

// HasEverLoggedIn reports whether the user ever opened a session.
func (a *App) HasEverLoggedIn(ctx context.Context, userID uuid.UUID) (bool, error) {
	return a.store.HasEverLoggedIn(ctx, userID)
}

// GetSession returns the user's session record, or nil.
func (a *App) GetSession(ctx context.Context, userID uuid.UUID) (*Session, error) {
	return New(a.store.db).Get(ctx, userID)
}
