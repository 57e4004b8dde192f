// Package dbtest runs tests against a real Postgres. Every database gets a
// private schema with the auction schema applied, dropped at cleanup.
// Tests are skipped unless DATABASE_URL is set.
package dbtest

import (
	"context"
	"database/sql"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/mcdev12/fantabid/go/internal/dbconfig"
	"github.com/mcdev12/fantabid/go/internal/dbschema"
	"github.com/mcdev12/fantabid/go/internal/models"
	"github.com/mcdev12/fantabid/go/internal/notify"
	"github.com/peterldowns/testy/assert"
)

// Open returns a connection bound to a fresh schema.
func Open(t *testing.T) *sql.DB {
	t.Helper()
	base := dbconfig.NewConfigFromEnv()
	if base.URL == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()

	admin, err := base.Open(ctx)
	assert.NoError(t, err)
	schema := "fantabid_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	_, err = admin.ExecContext(ctx, `CREATE SCHEMA `+schema)
	assert.NoError(t, err)

	scoped := base
	scoped.URL = withSearchPath(t, base.URL, schema)
	db, err := scoped.Open(ctx)
	assert.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
		if _, err := admin.ExecContext(ctx, `DROP SCHEMA `+schema+` CASCADE`); err != nil {
			t.Logf("failed to drop schema %s: %v", schema, err)
		}
		admin.Close()
	})

	_, err = db.ExecContext(ctx, dbschema.SQL)
	assert.NoError(t, err)
	return db
}

func withSearchPath(t *testing.T, raw, schema string) string {
	t.Helper()
	u, err := url.Parse(raw)
	assert.NoError(t, err)
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	return u.String()
}

// LeagueOption adjusts a seeded league.
type LeagueOption func(*models.League)

// WithStatus seeds the league in status.
func WithStatus(status models.LeagueStatus) LeagueOption {
	return func(l *models.League) { l.Status = status }
}

// SeedLeague inserts a bidding league with a 500 credit budget, 24h
// auctions and a 3/8/8/6 roster.
func SeedLeague(t *testing.T, db *sql.DB, opts ...LeagueOption) models.League {
	t.Helper()
	l := models.League{
		ID:                   uuid.New(),
		Name:                 "test league",
		Status:               models.LeagueStatusDraftActive,
		InitialBudget:        500,
		MinBid:               1,
		MinBidRule:           models.MinBidRuleFixed,
		TimerDurationMinutes: 1440,
		ActiveAuctionRoles:   "ALL",
		Slots: map[models.Role]int{
			models.RoleGoalkeeper: 3,
			models.RoleDefender:   8,
			models.RoleMidfielder: 8,
			models.RoleForward:    6,
		},
	}
	for _, opt := range opts {
		opt(&l)
	}
	_, err := db.Exec(`
		INSERT INTO leagues (
		  id, name, status, initial_budget, min_bid, min_bid_rule,
		  timer_duration_minutes, active_auction_roles,
		  slots_p, slots_d, slots_c, slots_a
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		l.ID, l.Name, string(l.Status), l.InitialBudget, l.MinBid, string(l.MinBidRule),
		l.TimerDurationMinutes, l.ActiveAuctionRoles,
		l.Slots[models.RoleGoalkeeper], l.Slots[models.RoleDefender],
		l.Slots[models.RoleMidfielder], l.Slots[models.RoleForward],
	)
	assert.NoError(t, err)
	return l
}

// SeedPlayer inserts a player into the catalog.
func SeedPlayer(t *testing.T, db *sql.DB, name string, role models.Role, quotation int) models.Player {
	t.Helper()
	p := models.Player{ID: uuid.New(), Name: name, Team: "Inter", Role: role, Quotation: quotation}
	_, err := db.Exec(`INSERT INTO players (id, name, team, role, quotation) VALUES ($1,$2,$3,$4,$5)`,
		p.ID, p.Name, p.Team, string(p.Role), p.Quotation)
	assert.NoError(t, err)
	return p
}

// SeedParticipant joins a new user to the league with the league budget.
func SeedParticipant(t *testing.T, db *sql.DB, league models.League) uuid.UUID {
	t.Helper()
	userID := uuid.New()
	_, err := db.Exec(`INSERT INTO league_participants (league_id, user_id, current_budget) VALUES ($1,$2,$3)`,
		league.ID, userID, league.InitialBudget)
	assert.NoError(t, err)
	return userID
}

// Budget reads the stored budget and locked credits of a participant.
func Budget(t *testing.T, db *sql.DB, leagueID, userID uuid.UUID) (budget, locked int) {
	t.Helper()
	err := db.QueryRow(`
		SELECT current_budget, locked_credits FROM league_participants
		WHERE league_id = $1 AND user_id = $2`, leagueID, userID,
	).Scan(&budget, &locked)
	assert.NoError(t, err)
	return budget, locked
}

// Count runs a COUNT query.
func Count(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	assert.NoError(t, db.QueryRow(query, args...).Scan(&n))
	return n
}

// Recorder is a notify.Dispatcher that keeps every event.
type Recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *Recorder) Emit(_ context.Context, ev notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Of returns the recorded events of one type.
func (r *Recorder) Of(eventType notify.EventType) []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Event
	for _, ev := range r.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}
