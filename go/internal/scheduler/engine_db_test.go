package scheduler

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fantabid/go/internal/apperr"
	"github.com/mcdev12/fantabid/go/internal/auction"
	"github.com/mcdev12/fantabid/go/internal/compliance"
	"github.com/mcdev12/fantabid/go/internal/dbtest"
	"github.com/mcdev12/fantabid/go/internal/models"
	"github.com/mcdev12/fantabid/go/internal/notify"
	"github.com/mcdev12/fantabid/go/internal/responsetimer"
	"github.com/mcdev12/fantabid/go/internal/session"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

type engine struct {
	db       *sql.DB
	clock    *clockwork.FakeClock
	events   *dbtest.Recorder
	auctions *auction.App
	timers   *responsetimer.App
	sessions *session.App
	sweeper  *Scheduler
}

// newEngine wires the apps the way the server does, on one fake clock.
func newEngine(t *testing.T) *engine {
	t.Helper()
	db := dbtest.Open(t)
	clock := clockwork.NewFakeClockAt(t0)
	events := &dbtest.Recorder{}

	store := session.NewStore(db)
	timers := responsetimer.NewApp(db, clock, responsetimer.DefaultConfig(), store, events)
	sessions := session.NewApp(store, clock, timers)
	comp := compliance.NewApp(db, clock, compliance.DefaultConfig(), store, events)
	auctions := auction.NewApp(db, clock, timers, comp, sessions, events)

	return &engine{
		db:       db,
		clock:    clock,
		events:   events,
		auctions: auctions,
		timers:   timers,
		sessions: sessions,
		sweeper:  New(auctions, timers, comp, clock, Config{Workers: 1, BatchSize: 10}),
	}
}

func (e *engine) timer(t *testing.T, auctionID, userID uuid.UUID) (models.TimerStatus, *time.Time) {
	t.Helper()
	var (
		status   string
		deadline sql.NullTime
	)
	err := e.db.QueryRow(`
		SELECT status, response_deadline FROM response_timers
		WHERE auction_id = $1 AND user_id = $2`, auctionID, userID,
	).Scan(&status, &deadline)
	assert.NoError(t, err)
	if !deadline.Valid {
		return models.TimerStatus(status), nil
	}
	return models.TimerStatus(status), &deadline.Time
}

func TestEngine_OfflineOutbidUserExpiresAfterLogin(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	league := dbtest.SeedLeague(t, e.db)
	player := dbtest.SeedPlayer(t, e.db, "Calhanoglu", models.RoleMidfielder, 12)
	offline := dbtest.SeedParticipant(t, e.db, league)
	rival := dbtest.SeedParticipant(t, e.db, league)

	started, err := e.auctions.StartAuction(ctx, auction.StartAuctionRequest{LeagueID: league.ID, PlayerID: player.ID, UserID: offline, Amount: 10})
	assert.NoError(t, err)
	auctionID := started.Auction.ID

	e.clock.Advance(time.Minute)
	_, err = e.auctions.PlaceBid(ctx, auction.PlaceBidRequest{LeagueID: league.ID, PlayerID: player.ID, UserID: rival, Amount: 11, Type: models.BidTypeManual})
	assert.NoError(t, err)

	status, deadline := e.timer(t, auctionID, offline)
	check.Equal(t, models.TimerStatusPending, status)
	check.Nil(t, deadline)

	// a dormant timer never expires, however long the user stays away
	e.clock.Advance(2 * time.Hour)
	report := e.sweeper.RunOnce(ctx)
	check.Equal(t, 0, report.TimersExpired)

	loginAt := e.clock.Now()
	assert.NoError(t, e.sessions.RecordLogin(ctx, offline))
	status, deadline = e.timer(t, auctionID, offline)
	check.Equal(t, models.TimerStatusPending, status)
	assert.NotNil(t, deadline)
	check.Equal(t, loginAt.Add(time.Hour), *deadline)
	check.Equal(t, 1, len(e.events.Of(notify.EventResponseTimerStarted)))

	e.clock.Advance(59 * time.Minute)
	report = e.sweeper.RunOnce(ctx)
	check.Equal(t, 0, report.TimersExpired)

	e.clock.Advance(time.Minute)
	expiredAt := e.clock.Now()
	report = e.sweeper.RunOnce(ctx)
	check.Equal(t, 1, report.TimersExpired)
	check.Equal(t, 0, len(report.Errors))

	status, _ = e.timer(t, auctionID, offline)
	check.Equal(t, models.TimerStatusExpired, status)
	cooldown, err := e.timers.ActiveCooldown(ctx, league.ID, offline, player.ID)
	assert.NoError(t, err)
	assert.NotNil(t, cooldown)
	check.Equal(t, expiredAt.Add(48*time.Hour), cooldown.ExpiresAt)

	open, err := auction.New(e.db).GetOpenAuction(ctx, league.ID, player.ID)
	assert.NoError(t, err)
	assert.NotNil(t, open)
	check.Equal(t, expiredAt.Add(24*time.Hour), open.ScheduledEndTime)
	check.Equal(t, 2, len(e.events.Of(notify.EventTimerExpired)))

	// sweeping again changes nothing
	e.clock.Advance(time.Minute)
	report = e.sweeper.RunOnce(ctx)
	check.Equal(t, 0, report.TimersExpired)
	check.Equal(t, 0, report.AuctionsSold)
	again, err := e.timers.ActiveCooldown(ctx, league.ID, offline, player.ID)
	assert.NoError(t, err)
	assert.NotNil(t, again)
	check.Equal(t, cooldown.ExpiresAt, again.ExpiresAt)
	check.Equal(t, 2, len(e.events.Of(notify.EventTimerExpired)))

	_, err = e.auctions.PlaceBid(ctx, auction.PlaceBidRequest{LeagueID: league.ID, PlayerID: player.ID, UserID: offline, Amount: 20, Type: models.BidTypeManual})
	check.True(t, apperr.Is(err, apperr.KindCooldownActive))

	_, locked := dbtest.Budget(t, e.db, league.ID, offline)
	check.Equal(t, 0, locked)
	_, locked = dbtest.Budget(t, e.db, league.ID, rival)
	check.Equal(t, 11, locked)
}

func TestEngine_SweepResolvesEachAuctionOnce(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	league := dbtest.SeedLeague(t, e.db)
	sold := dbtest.SeedPlayer(t, e.db, "Bastoni", models.RoleDefender, 14)
	buyer := dbtest.SeedParticipant(t, e.db, league)

	_, err := e.auctions.StartAuction(ctx, auction.StartAuctionRequest{LeagueID: league.ID, PlayerID: sold.ID, UserID: buyer, Amount: 14})
	assert.NoError(t, err)

	e.clock.Advance(24 * time.Hour)
	report := e.sweeper.RunOnce(ctx)
	check.Equal(t, 1, report.AuctionsSold)
	check.Equal(t, 0, len(report.Errors))

	report = e.sweeper.RunOnce(ctx)
	check.Equal(t, 0, report.AuctionsSold)
	check.Equal(t, 0, report.AuctionsSkipped)

	budget, locked := dbtest.Budget(t, e.db, league.ID, buyer)
	check.Equal(t, 486, budget+penalties(t, e.db, league.ID, buyer))
	check.Equal(t, 0, locked)
	check.Equal(t, 1, dbtest.Count(t, e.db, `SELECT COUNT(*) FROM player_assignments WHERE league_id = $1`, league.ID))
}

// penalties is the compliance total charged to the user.
func penalties(t *testing.T, db *sql.DB, leagueID, userID uuid.UUID) int {
	t.Helper()
	return dbtest.Count(t, db, `
		SELECT COALESCE(SUM(amount), 0) FROM budget_transactions
		WHERE league_id = $1 AND user_id = $2 AND transaction_type = 'penalty_requirement'`,
		leagueID, userID)
}
