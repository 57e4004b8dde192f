package auction

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fantabid/go/internal/apperr"
	"github.com/mcdev12/fantabid/go/internal/dbtest"
	"github.com/mcdev12/fantabid/go/internal/models"
	"github.com/mcdev12/fantabid/go/internal/notify"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

type nopTimers struct{}

func (nopTimers) CancelForUser(context.Context, uuid.UUID, uuid.UUID) error { return nil }
func (nopTimers) Create(context.Context, uuid.UUID, uuid.UUID) error        { return nil }

type nopCompliance struct{}

func (nopCompliance) Check(context.Context, uuid.UUID, uuid.UUID) error { return nil }

type nopSessions struct{}

func (nopSessions) RecordLogin(context.Context, uuid.UUID) error { return nil }

func newDBApp(t *testing.T) (*App, *sql.DB, *clockwork.FakeClock, *dbtest.Recorder) {
	t.Helper()
	db := dbtest.Open(t)
	clock := clockwork.NewFakeClockAt(t0)
	rec := &dbtest.Recorder{}
	return NewApp(db, clock, nopTimers{}, nopCompliance{}, nopSessions{}, rec), db, clock, rec
}

// checkLocked compares every participant's stored locked credits with the
// value recomputed from auctions and proxies.
func checkLocked(t *testing.T, db *sql.DB, leagueID uuid.UUID, users ...uuid.UUID) map[uuid.UUID]int {
	t.Helper()
	out := make(map[uuid.UUID]int, len(users))
	for _, u := range users {
		_, stored := dbtest.Budget(t, db, leagueID, u)
		computed, err := New(db).Ledger.ComputeLockedCredits(context.Background(), leagueID, u)
		assert.NoError(t, err)
		check.Equal(t, computed, stored)
		out[u] = stored
	}
	return out
}

func TestApp_LockedCreditsFollowEveryCommit(t *testing.T) {
	app, db, clock, rec := newDBApp(t)
	ctx := context.Background()
	league := dbtest.SeedLeague(t, db)
	player := dbtest.SeedPlayer(t, db, "Barella", models.RoleMidfielder, 10)
	a := dbtest.SeedParticipant(t, db, league)
	b := dbtest.SeedParticipant(t, db, league)
	c := dbtest.SeedParticipant(t, db, league)

	started, err := app.StartAuction(ctx, StartAuctionRequest{LeagueID: league.ID, PlayerID: player.ID, UserID: a, Amount: 10, ProxyMax: intPtr(30)})
	assert.NoError(t, err)
	locked := checkLocked(t, db, league.ID, a, b, c)
	check.Equal(t, 30, locked[a])
	check.Equal(t, 1, len(rec.Of(notify.EventAuctionCreated)))

	clock.Advance(time.Minute)
	res, err := app.PlaceBid(ctx, PlaceBidRequest{LeagueID: league.ID, PlayerID: player.ID, UserID: b, Amount: 20, Type: models.BidTypeManual})
	assert.NoError(t, err)
	check.Equal(t, a, res.FinalBidderID)
	check.Equal(t, 21, res.FinalAmount)
	locked = checkLocked(t, db, league.ID, a, b, c)
	check.Equal(t, 30, locked[a])
	check.Equal(t, 0, locked[b])

	clock.Advance(time.Minute)
	res, err = app.PlaceBid(ctx, PlaceBidRequest{LeagueID: league.ID, PlayerID: player.ID, UserID: c, Amount: 25, Type: models.BidTypeManual, ProxyMax: intPtr(50)})
	assert.NoError(t, err)
	check.Equal(t, c, res.FinalBidderID)
	check.Equal(t, 31, res.FinalAmount)
	locked = checkLocked(t, db, league.ID, a, b, c)
	check.Equal(t, 0, locked[a])
	check.Equal(t, 50, locked[c])

	res, err = app.PlaceBid(ctx, PlaceBidRequest{LeagueID: league.ID, PlayerID: player.ID, UserID: b, Amount: 31, Type: models.BidTypeManual})
	assert.NoError(t, err)
	check.Equal(t, 32, res.FinalAmount)
	checkLocked(t, db, league.ID, a, b, c)

	// a rejected bid rolls back without touching the ledger
	_, err = app.PlaceBid(ctx, PlaceBidRequest{LeagueID: league.ID, PlayerID: player.ID, UserID: a, Amount: 600, Type: models.BidTypeManual})
	check.True(t, apperr.Is(err, apperr.KindBudgetInsufficient))
	checkLocked(t, db, league.ID, a, b, c)

	clock.Advance(25 * time.Hour)
	sweep, err := app.ResolveExpiredAuction(ctx, started.Auction.ID)
	assert.NoError(t, err)
	check.Equal(t, models.AuctionStatusSold, sweep.Status)
	check.Equal(t, c, *sweep.WinnerID)
	check.Equal(t, 32, sweep.Price)
	locked = checkLocked(t, db, league.ID, a, b, c)
	for _, u := range []uuid.UUID{a, b, c} {
		check.Equal(t, 0, locked[u])
	}
	budget, _ := dbtest.Budget(t, db, league.ID, c)
	check.Equal(t, 468, budget)
}

func TestApp_OneOpenAuctionPerPlayer(t *testing.T) {
	app, db, _, _ := newDBApp(t)
	ctx := context.Background()
	league := dbtest.SeedLeague(t, db)
	player := dbtest.SeedPlayer(t, db, "Lautaro", models.RoleForward, 30)

	t.Run("a second insert maps to a state conflict", func(t *testing.T) {
		other := dbtest.SeedPlayer(t, db, "Thuram", models.RoleForward, 25)
		params := InsertAuctionParams{
			LeagueID:         league.ID,
			PlayerID:         other.ID,
			BidderID:         uuid.New(),
			Amount:           5,
			StartTime:        t0,
			ScheduledEndTime: t0.Add(24 * time.Hour),
		}
		_, err := New(db).InsertAuction(ctx, params)
		assert.NoError(t, err)
		_, err = New(db).InsertAuction(ctx, params)
		check.True(t, apperr.Is(err, apperr.KindStateConflict))
	})

	t.Run("racing openers", func(t *testing.T) {
		const racers = 8
		users := make([]uuid.UUID, racers)
		for i := range users {
			users[i] = dbtest.SeedParticipant(t, db, league)
		}

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
			errs []error
		)
		start := make(chan struct{})
		for _, u := range users {
			wg.Add(1)
			go func(u uuid.UUID) {
				defer wg.Done()
				<-start
				_, err := app.StartAuction(ctx, StartAuctionRequest{LeagueID: league.ID, PlayerID: player.ID, UserID: u, Amount: 30})
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					wins++
					return
				}
				errs = append(errs, err)
			}(u)
		}
		close(start)
		wg.Wait()

		check.Equal(t, 1, wins)
		for _, err := range errs {
			check.True(t, apperr.Is(err, apperr.KindStateConflict))
		}
		check.Equal(t, 1, dbtest.Count(t, db, `
			SELECT COUNT(*) FROM auctions
			WHERE league_id = $1 AND player_id = $2 AND status IN ('active', 'closing')`,
			league.ID, player.ID))
		checkLocked(t, db, league.ID, users...)
	})
}

func TestApp_ResolveExpiredAuctionTwice(t *testing.T) {
	app, db, clock, rec := newDBApp(t)
	ctx := context.Background()
	league := dbtest.SeedLeague(t, db)
	player := dbtest.SeedPlayer(t, db, "Maignan", models.RoleGoalkeeper, 15)
	user := dbtest.SeedParticipant(t, db, league)

	started, err := app.StartAuction(ctx, StartAuctionRequest{LeagueID: league.ID, PlayerID: player.ID, UserID: user, Amount: 15})
	assert.NoError(t, err)

	sweep, err := app.ResolveExpiredAuction(ctx, started.Auction.ID)
	assert.NoError(t, err)
	check.True(t, sweep.Skipped)

	clock.Advance(24 * time.Hour)
	sweep, err = app.ResolveExpiredAuction(ctx, started.Auction.ID)
	assert.NoError(t, err)
	check.False(t, sweep.Skipped)
	check.Equal(t, models.AuctionStatusSold, sweep.Status)

	clock.Advance(time.Hour)
	again, err := app.ResolveExpiredAuction(ctx, started.Auction.ID)
	assert.NoError(t, err)
	check.True(t, again.Skipped)

	budget, locked := dbtest.Budget(t, db, league.ID, user)
	check.Equal(t, 485, budget)
	check.Equal(t, 0, locked)
	check.Equal(t, 1, dbtest.Count(t, db, `SELECT COUNT(*) FROM player_assignments WHERE league_id = $1`, league.ID))
	check.Equal(t, 1, dbtest.Count(t, db, `
		SELECT COUNT(*) FROM budget_transactions
		WHERE league_id = $1 AND transaction_type = 'win_auction_debit'`, league.ID))
	check.Equal(t, 1, dbtest.Count(t, db, `
		SELECT players_p_acquired FROM league_participants
		WHERE league_id = $1 AND user_id = $2`, league.ID, user))
	check.Equal(t, 1, len(rec.Of(notify.EventAuctionClosed)))
}
