package main

import (
	"database/sql"
	"fmt"

	"github.com/mcdev12/fantabid/go/internal/auction"
	"github.com/mcdev12/fantabid/go/internal/compliance"
	"github.com/mcdev12/fantabid/go/internal/leagues"
	"github.com/mcdev12/fantabid/go/internal/ledger"
	"github.com/mcdev12/fantabid/go/internal/notify"
	"github.com/mcdev12/fantabid/go/internal/player"
	"github.com/mcdev12/fantabid/go/internal/responsetimer"
	"github.com/mcdev12/fantabid/go/internal/roster"
	"github.com/mcdev12/fantabid/go/internal/scheduler"
	"github.com/mcdev12/fantabid/go/internal/session"
)

type Services struct {
	Auction    *auction.Service
	Session    *session.Service
	Timers     *responsetimer.Service
	Compliance *compliance.Service
	Ledger     *ledger.Service
	Leagues    *leagues.Service
	Players    *player.Service
	Rosters    *roster.Service
	Scheduler  *scheduler.Service

	// Sweeper runs in the background for the life of the process.
	Sweeper *scheduler.Scheduler
}

func setupServices(database *sql.DB, config *Config) (*Services, error) {
	// Wire up dependency injection chain
	// Database → App layer → Service layer

	var sink notify.Dispatcher = notify.LogDispatcher{}
	if config.Notifications.Outbox {
		sink = notify.NewOutboxDispatcher(database)
	}
	notifier, err := notify.NewThrottle(sink, config.Notifications.DedupeWindow, config.Notifications.DedupeSize, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification throttle: %w", err)
	}

	// Sessions back presence for the timers and login history for compliance
	sessionStore := session.NewStore(database)

	timerApp := responsetimer.NewApp(database, nil, config.timerConfig(), sessionStore, notifier)
	sessionApp := session.NewApp(sessionStore, nil, timerApp)
	complianceApp := compliance.NewApp(database, nil, config.complianceConfig(), sessionStore, notifier)
	auctionApp := auction.NewApp(database, nil, timerApp, complianceApp, sessionApp, notifier)
	ledgerApp := ledger.NewApp(database)
	leaguesApp := leagues.NewApp(database, nil, complianceApp, notifier)

	var bidLimiter *auction.BidLimiter
	if config.BidLimits.CacheSize > 0 {
		if bidLimiter, err = auction.NewBidLimiter(config.bidLimits(), config.BidLimits.CacheSize, nil); err != nil {
			return nil, fmt.Errorf("failed to create bid limiter: %w", err)
		}
	}

	sweeper := scheduler.New(auctionApp, timerApp, complianceApp, nil, config.schedulerConfig())

	return &Services{
		Auction:    auction.NewService(auctionApp, timerApp, bidLimiter),
		Session:    session.NewService(sessionApp),
		Timers:     responsetimer.NewService(timerApp),
		Compliance: compliance.NewService(complianceApp),
		Ledger:     ledger.NewService(ledgerApp),
		Leagues:    leagues.NewService(leaguesApp),
		Players:    player.NewService(player.NewApp(database)),
		Rosters:    roster.NewService(roster.NewApp(database, nil, complianceApp, notifier)),
		Scheduler:  scheduler.NewService(sweeper),
		Sweeper:    sweeper,
	}, nil
}
