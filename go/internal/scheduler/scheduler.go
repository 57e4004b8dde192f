package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/fantabid/go/internal/auction"
	"github.com/mcdev12/fantabid/go/internal/compliance"
	"github.com/rs/zerolog/log"
)

// AuctionSweeper defines what the scheduler needs from the auction app
type AuctionSweeper interface {
	ListExpiredAuctions(ctx context.Context, limit int) ([]uuid.UUID, error)
	NextAuctionDeadline(ctx context.Context) (*time.Time, error)
	ResolveExpiredAuction(ctx context.Context, auctionID uuid.UUID) (auction.SweepResult, error)
}

// TimerSweeper defines what the scheduler needs from the response timers
type TimerSweeper interface {
	ListExpired(ctx context.Context, limit int) ([]uuid.UUID, error)
	NextDeadline(ctx context.Context) (*time.Time, error)
	Expire(ctx context.Context, timerID uuid.UUID) (bool, error)
}

// ComplianceSweeper defines what the scheduler needs from the compliance app
type ComplianceSweeper interface {
	ListDue(ctx context.Context) ([]compliance.DueUser, error)
	Process(ctx context.Context, leagueID, userID uuid.UUID) (compliance.Result, error)
}

// Config tunes the sweep loop.
type Config struct {
	// Interval is the longest the loop sleeps between sweeps.
	Interval  time.Duration
	Workers   int
	BatchSize int
}

func DefaultConfig() Config {
	return Config{
		Interval:  5 * time.Second,
		Workers:   4,
		BatchSize: 100,
	}
}

// SweepReport summarizes one pass over the three sweeps.
type SweepReport struct {
	AuctionsSold      int      `json:"auctions_sold"`
	AuctionsNotSold   int      `json:"auctions_not_sold"`
	AuctionsSkipped   int      `json:"auctions_skipped"`
	TimersExpired     int      `json:"timers_expired"`
	ComplianceChecked int      `json:"compliance_checked"`
	PenaltyCredits    int      `json:"penalty_credits"`
	Errors            []string `json:"errors,omitempty"`
}

func (r *SweepReport) fail(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Scheduler resolves expired auctions, response timers and compliance
// timers. It sleeps until the earliest known deadline or Interval,
// whichever comes first, and can be woken early with Wake.
type Scheduler struct {
	auctions   AuctionSweeper
	timers     TimerSweeper
	compliance ComplianceSweeper
	clock      clockwork.Clock
	cfg        Config
	wakeCh     chan struct{}
	instanceID string

	workCh chan uuid.UUID

	// Track in-flight auctions to prevent duplicate processing
	inFlight   map[uuid.UUID]bool
	inFlightMu sync.Mutex

	// serializes the timer and compliance sweeps between Run and RunOnce
	sweepMu sync.Mutex
}

// New creates a scheduler. A nil clock means the real clock.
func New(auctions AuctionSweeper, timers TimerSweeper, comp ComplianceSweeper, clock clockwork.Clock, cfg Config) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	defaults := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	return &Scheduler{
		auctions:   auctions,
		timers:     timers,
		compliance: comp,
		clock:      clock,
		cfg:        cfg,
		wakeCh:     make(chan struct{}, 1),
		instanceID: uuid.New().String()[:8],
		workCh:     make(chan uuid.UUID, cfg.Workers*2),
		inFlight:   make(map[uuid.UUID]bool),
	}
}

// Wake makes a sleeping Run loop sweep immediately.
func (s *Scheduler) Wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

// Run sweeps until ctx is cancelled. Auction resolution is spread over the
// worker pool, the other sweeps run on the loop goroutine.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Info().Str("instance", s.instanceID).Int("workers", s.cfg.Workers).Msg("scheduler started")

	var wg sync.WaitGroup
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go s.worker(workerCtx, &wg, i)
	}
	defer func() {
		log.Info().Str("instance", s.instanceID).Msg("shutting down workers")
		cancelWorkers()
		wg.Wait()
		log.Info().Str("instance", s.instanceID).Msg("all workers shut down")
	}()

	timer := s.clock.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-timer.Chan():
		case <-s.wakeCh:
			log.Debug().Str("instance", s.instanceID).Msg("woken up early")
			stopAndDrainTimer(timer)
		case <-ctx.Done():
			log.Info().Str("instance", s.instanceID).Msg("scheduler shutdown requested")
			return nil
		}

		if err := s.queueExpiredAuctions(ctx); err != nil {
			log.Error().Err(err).Str("instance", s.instanceID).Msg("auction sweep failed")
		}
		report := &SweepReport{}
		s.sweepTimersAndCompliance(ctx, report)
		for _, e := range report.Errors {
			log.Warn().Str("instance", s.instanceID).Str("error", e).Msg("sweep item failed")
		}

		timer.Reset(s.nextWait(ctx))
	}
}

// minWait keeps a due item that is still in flight from spinning the loop.
const minWait = 250 * time.Millisecond

// nextWait is the time until the earliest known deadline, capped at
// Interval.
func (s *Scheduler) nextWait(ctx context.Context) time.Duration {
	wait := s.cfg.Interval
	now := s.clock.Now()

	for _, next := range []func(context.Context) (*time.Time, error){
		s.auctions.NextAuctionDeadline,
		s.timers.NextDeadline,
	} {
		deadline, err := next(ctx)
		if err != nil {
			log.Error().Err(err).Str("instance", s.instanceID).Msg("failed to read next deadline")
			continue
		}
		if deadline == nil {
			continue
		}
		if d := deadline.Sub(now); d < wait {
			wait = d
		}
	}
	if wait < minWait {
		wait = minWait
	}
	return wait
}

// queueExpiredAuctions hands due auctions to the worker pool, skipping any
// already in flight.
func (s *Scheduler) queueExpiredAuctions(ctx context.Context) error {
	ids, err := s.auctions.ListExpiredAuctions(ctx, s.cfg.BatchSize)
	if err != nil {
		return err
	}
	if len(ids) > 0 {
		log.Info().
			Int("count_due", len(ids)).
			Str("instance", s.instanceID).
			Msg("queueing expired auctions")
	}
	for _, id := range ids {
		if !s.claim(id) {
			log.Debug().Str("auction_id", id.String()).Msg("skipping auction already in flight")
			continue
		}
		select {
		case s.workCh <- id:
		case <-ctx.Done():
			s.release(id)
			return nil
		}
	}
	return nil
}

func (s *Scheduler) worker(ctx context.Context, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			log.Debug().
				Str("instance", s.instanceID).
				Int("worker_id", workerID).
				Msg("worker shutting down")
			return
		case id := <-s.workCh:
			if _, err := s.resolve(ctx, id); err != nil {
				log.Error().
					Err(err).
					Str("auction_id", id.String()).
					Int("worker_id", workerID).
					Msg("failed to resolve auction")
			}
			s.release(id)
		}
	}
}

func (s *Scheduler) resolve(ctx context.Context, id uuid.UUID) (auction.SweepResult, error) {
	res, err := s.auctions.ResolveExpiredAuction(ctx, id)
	if err != nil {
		return res, err
	}
	if !res.Skipped {
		log.Info().
			Str("auction_id", id.String()).
			Str("status", string(res.Status)).
			Int("price", res.Price).
			Msg("expired auction resolved")
	}
	return res, nil
}

func (s *Scheduler) claim(id uuid.UUID) bool {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	if s.inFlight[id] {
		return false
	}
	s.inFlight[id] = true
	return true
}

func (s *Scheduler) release(id uuid.UUID) {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	delete(s.inFlight, id)
}

// RunOnce performs all three sweeps synchronously and reports what it did.
// One failing item never stops the rest of its sweep.
func (s *Scheduler) RunOnce(ctx context.Context) SweepReport {
	report := SweepReport{}

	ids, err := s.auctions.ListExpiredAuctions(ctx, s.cfg.BatchSize)
	if err != nil {
		report.fail("list expired auctions: %v", err)
	}
	for _, id := range ids {
		if !s.claim(id) {
			report.AuctionsSkipped++
			continue
		}
		res, err := s.resolve(ctx, id)
		s.release(id)
		switch {
		case err != nil:
			report.fail("auction %s: %v", id, err)
		case res.Skipped:
			report.AuctionsSkipped++
		case res.WinnerID != nil:
			report.AuctionsSold++
		default:
			report.AuctionsNotSold++
		}
	}

	s.sweepTimersAndCompliance(ctx, &report)
	return report
}

func (s *Scheduler) sweepTimersAndCompliance(ctx context.Context, report *SweepReport) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	timerIDs, err := s.timers.ListExpired(ctx, s.cfg.BatchSize)
	if err != nil {
		report.fail("list expired response timers: %v", err)
	}
	for _, id := range timerIDs {
		expired, err := s.timers.Expire(ctx, id)
		if err != nil {
			report.fail("response timer %s: %v", id, err)
			continue
		}
		if expired {
			report.TimersExpired++
		}
	}

	due, err := s.compliance.ListDue(ctx)
	if err != nil {
		report.fail("list due compliance timers: %v", err)
	}
	for _, d := range due {
		res, err := s.compliance.Process(ctx, d.LeagueID, d.UserID)
		if err != nil {
			report.fail("compliance %s/%s: %v", d.LeagueID, d.UserID, err)
			continue
		}
		report.ComplianceChecked++
		report.PenaltyCredits += res.AppliedPenaltyAmount
	}
}

// stopAndDrainTimer stops a timer and drains a pending fire.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
