package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fantabid/go/internal/auction"
	"github.com/mcdev12/fantabid/go/internal/compliance"
	"github.com/mcdev12/fantabid/go/internal/models"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

var t0 = time.Date(2025, 8, 20, 18, 0, 0, 0, time.UTC)

type fakeAuctions struct {
	mu       sync.Mutex
	due      []uuid.UUID
	results  map[uuid.UUID]auction.SweepResult
	errs     map[uuid.UUID]error
	listErr  error
	next     *time.Time
	listed   chan struct{}
	resolved chan uuid.UUID
}

func newFakeAuctions(due ...uuid.UUID) *fakeAuctions {
	return &fakeAuctions{
		due:      due,
		results:  map[uuid.UUID]auction.SweepResult{},
		errs:     map[uuid.UUID]error{},
		listed:   make(chan struct{}, 16),
		resolved: make(chan uuid.UUID, 16),
	}
}

func (f *fakeAuctions) ListExpiredAuctions(context.Context, int) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case f.listed <- struct{}{}:
	default:
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	due := f.due
	f.due = nil
	return due, nil
}

func (f *fakeAuctions) NextAuctionDeadline(context.Context) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.next, nil
}

func (f *fakeAuctions) ResolveExpiredAuction(_ context.Context, id uuid.UUID) (auction.SweepResult, error) {
	f.mu.Lock()
	res, err := f.results[id], f.errs[id]
	f.mu.Unlock()
	f.resolved <- id
	return res, err
}

type fakeTimers struct {
	due     []uuid.UUID
	expired map[uuid.UUID]bool
	errs    map[uuid.UUID]error
}

func (f *fakeTimers) ListExpired(context.Context, int) ([]uuid.UUID, error) {
	return f.due, nil
}

func (f *fakeTimers) NextDeadline(context.Context) (*time.Time, error) {
	return nil, nil
}

func (f *fakeTimers) Expire(_ context.Context, id uuid.UUID) (bool, error) {
	return f.expired[id], f.errs[id]
}

type fakeCompliance struct {
	due     []compliance.DueUser
	results map[uuid.UUID]compliance.Result
	errs    map[uuid.UUID]error
	listErr error
}

func (f *fakeCompliance) ListDue(context.Context) ([]compliance.DueUser, error) {
	return f.due, f.listErr
}

func (f *fakeCompliance) Process(_ context.Context, _, userID uuid.UUID) (compliance.Result, error) {
	return f.results[userID], f.errs[userID]
}

func TestRunOnce_IsolatesFailures(t *testing.T) {
	sold, broken, gone, unsold := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	winner := uuid.New()
	auctions := newFakeAuctions(sold, broken, gone, unsold)
	auctions.results[sold] = auction.SweepResult{AuctionID: sold, Status: models.AuctionStatusSold, WinnerID: &winner, Price: 30}
	auctions.results[gone] = auction.SweepResult{AuctionID: gone, Skipped: true}
	auctions.results[unsold] = auction.SweepResult{AuctionID: unsold, Status: models.AuctionStatusNotSold}
	auctions.errs[broken] = errors.New("deadlock")

	t1, t2, t3 := uuid.New(), uuid.New(), uuid.New()
	timers := &fakeTimers{
		due:     []uuid.UUID{t1, t2, t3},
		expired: map[uuid.UUID]bool{t1: true},
		errs:    map[uuid.UUID]error{t2: errors.New("timeout")},
	}

	league, u1, u2 := uuid.New(), uuid.New(), uuid.New()
	comp := &fakeCompliance{
		due:     []compliance.DueUser{{LeagueID: league, UserID: u1}, {LeagueID: league, UserID: u2}},
		results: map[uuid.UUID]compliance.Result{u1: {AppliedPenaltyAmount: 10}},
		errs:    map[uuid.UUID]error{u2: errors.New("boom")},
	}

	s := New(auctions, timers, comp, clockwork.NewFakeClockAt(t0), Config{})
	report := s.RunOnce(context.Background())

	check.Equal(t, 1, report.AuctionsSold)
	check.Equal(t, 1, report.AuctionsNotSold)
	check.Equal(t, 1, report.AuctionsSkipped)
	check.Equal(t, 1, report.TimersExpired)
	check.Equal(t, 1, report.ComplianceChecked)
	check.Equal(t, 10, report.PenaltyCredits)
	check.Equal(t, 3, len(report.Errors))
}

func TestRunOnce_ListFailuresDoNotStopOtherSweeps(t *testing.T) {
	auctions := newFakeAuctions()
	auctions.listErr = errors.New("connection refused")
	timers := &fakeTimers{due: []uuid.UUID{uuid.New()}}
	timers.expired = map[uuid.UUID]bool{timers.due[0]: true}
	comp := &fakeCompliance{listErr: errors.New("connection refused")}

	s := New(auctions, timers, comp, clockwork.NewFakeClockAt(t0), Config{})
	report := s.RunOnce(context.Background())

	check.Equal(t, 1, report.TimersExpired)
	check.Equal(t, 2, len(report.Errors))
}

func TestRunOnce_SkipsAuctionInFlight(t *testing.T) {
	id := uuid.New()
	auctions := newFakeAuctions(id)
	s := New(auctions, &fakeTimers{}, &fakeCompliance{}, clockwork.NewFakeClockAt(t0), Config{})

	assert.True(t, s.claim(id))
	report := s.RunOnce(context.Background())
	check.Equal(t, 1, report.AuctionsSkipped)
	check.Equal(t, 0, len(auctions.resolved))

	s.release(id)
	check.True(t, s.claim(id))
}

func TestNextWait(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	auctions := newFakeAuctions()
	s := New(auctions, &fakeTimers{}, &fakeCompliance{}, clock, Config{Interval: 5 * time.Second})
	ctx := context.Background()

	check.Equal(t, 5*time.Second, s.nextWait(ctx))

	soon := t0.Add(2 * time.Second)
	auctions.next = &soon
	check.Equal(t, 2*time.Second, s.nextWait(ctx))

	late := t0.Add(time.Hour)
	auctions.next = &late
	check.Equal(t, 5*time.Second, s.nextWait(ctx))

	past := t0.Add(-time.Minute)
	auctions.next = &past
	check.Equal(t, minWait, s.nextWait(ctx))
}

func TestRun_ResolvesDueAuctionsAndWakes(t *testing.T) {
	first := uuid.New()
	auctions := newFakeAuctions(first)
	s := New(auctions, &fakeTimers{}, &fakeCompliance{}, nil, Config{Interval: time.Minute, Workers: 2})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case id := <-auctions.resolved:
		check.Equal(t, first, id)
	case <-time.After(2 * time.Second):
		t.Fatal("expired auction was not resolved")
	}
	<-auctions.listed

	second := uuid.New()
	auctions.mu.Lock()
	auctions.due = []uuid.UUID{second}
	auctions.mu.Unlock()
	s.Wake()

	select {
	case id := <-auctions.resolved:
		check.Equal(t, second, id)
	case <-time.After(2 * time.Second):
		t.Fatal("wake did not trigger a sweep")
	}

	cancel()
	select {
	case err := <-done:
		check.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
