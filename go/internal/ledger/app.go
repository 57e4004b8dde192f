package ledger

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/mcdev12/fantabid/go/internal/models"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// App serves read access to participant budgets
type App struct {
	db *sql.DB
}

// NewApp creates a new ledger App
func NewApp(db *sql.DB) *App {
	return &App{db: db}
}

// Budget returns the participant's current budget and locked credits.
func (a *App) Budget(ctx context.Context, leagueID, userID uuid.UUID) (models.BudgetUpdate, error) {
	return New(a.db).Snapshot(ctx, leagueID, userID)
}

// History returns the participant's budget transactions, newest first.
func (a *App) History(ctx context.Context, leagueID, userID uuid.UUID, limit int) ([]models.BudgetTransaction, error) {
	return New(a.db).ListTransactions(ctx, leagueID, userID, historyLimit(limit))
}

func historyLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	return min(limit, maxHistoryLimit)
}
