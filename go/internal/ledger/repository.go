package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/fantabid/go/internal/apperr"
	"github.com/mcdev12/fantabid/go/internal/models"
	"github.com/mcdev12/fantabid/go/internal/sqlutil"
	"github.com/sqlc-dev/pqtype"
)

// Queries holds the participant ledger statements. Bind it to the same
// transaction as the state change that could invalidate locked credits.
type Queries struct {
	db sqlutil.DBTX
}

func New(db sqlutil.DBTX) *Queries {
	return &Queries{db: db}
}

// lockedCreditsSQL is the authoritative definition of locked credits: the
// max of every active proxy on an open auction, plus the current price of
// every open auction the user leads without an active proxy.
const lockedCreditsSQL = `
SELECT
  COALESCE((
    SELECT SUM(ab.max_amount)
    FROM auto_bids ab
    JOIN auctions a ON a.id = ab.auction_id
    WHERE a.league_id = $1 AND ab.user_id = $2 AND ab.is_active
      AND a.status IN ('active', 'closing')
  ), 0)
  +
  COALESCE((
    SELECT SUM(a.current_highest_bid_amount)
    FROM auctions a
    LEFT JOIN auto_bids ab ON ab.auction_id = a.id AND ab.user_id = $2 AND ab.is_active
    WHERE a.league_id = $1 AND a.current_highest_bidder_id = $2
      AND ab.id IS NULL
      AND a.status IN ('active', 'closing')
  ), 0)`

// ComputeLockedCredits evaluates the locked-credit definition without writing.
func (q *Queries) ComputeLockedCredits(ctx context.Context, leagueID, userID uuid.UUID) (int, error) {
	var locked int
	if err := q.db.QueryRowContext(ctx, lockedCreditsSQL, leagueID, userID).Scan(&locked); err != nil {
		return 0, fmt.Errorf("failed to compute locked credits: %w", err)
	}
	return locked, nil
}

// RecomputeLockedCredits overwrites the participant's locked credits with the
// authoritative value and returns it. It never adjusts incrementally.
func (q *Queries) RecomputeLockedCredits(ctx context.Context, leagueID, userID uuid.UUID) (int, error) {
	var locked int
	err := q.db.QueryRowContext(ctx, `
		UPDATE league_participants
		SET locked_credits = (`+lockedCreditsSQL+`), updated_at = now()
		WHERE league_id = $1 AND user_id = $2
		RETURNING locked_credits`,
		leagueID, userID,
	).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperr.NotFound("participant not found in league")
		}
		return 0, fmt.Errorf("failed to recompute locked credits: %w", err)
	}
	return locked, nil
}

// RecomputeMany recomputes every listed participant and returns their ledger
// snapshots, skipping duplicates.
func (q *Queries) RecomputeMany(ctx context.Context, leagueID uuid.UUID, userIDs []uuid.UUID) ([]models.BudgetUpdate, error) {
	seen := make(map[uuid.UUID]bool, len(userIDs))
	updates := make([]models.BudgetUpdate, 0, len(userIDs))
	for _, userID := range userIDs {
		if seen[userID] {
			continue
		}
		seen[userID] = true
		if _, err := q.RecomputeLockedCredits(ctx, leagueID, userID); err != nil {
			return nil, err
		}
		snap, err := q.Snapshot(ctx, leagueID, userID)
		if err != nil {
			return nil, err
		}
		updates = append(updates, snap)
	}
	return updates, nil
}

// Snapshot reads the participant's current budget and locked credits.
func (q *Queries) Snapshot(ctx context.Context, leagueID, userID uuid.UUID) (models.BudgetUpdate, error) {
	snap := models.BudgetUpdate{UserID: userID}
	err := q.db.QueryRowContext(ctx, `
		SELECT current_budget, locked_credits
		FROM league_participants
		WHERE league_id = $1 AND user_id = $2`,
		leagueID, userID,
	).Scan(&snap.Budget, &snap.LockedCredits)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return snap, apperr.NotFound("participant not found in league")
		}
		return snap, fmt.Errorf("failed to read participant budget: %w", err)
	}
	return snap, nil
}

// Debit subtracts amount from the participant's budget and returns the new
// balance.
func (q *Queries) Debit(ctx context.Context, leagueID, userID uuid.UUID, amount int) (int, error) {
	return q.adjustBudget(ctx, leagueID, userID, -amount)
}

// Credit adds amount to the participant's budget and returns the new
// balance.
func (q *Queries) Credit(ctx context.Context, leagueID, userID uuid.UUID, amount int) (int, error) {
	return q.adjustBudget(ctx, leagueID, userID, amount)
}

func (q *Queries) adjustBudget(ctx context.Context, leagueID, userID uuid.UUID, delta int) (int, error) {
	var balance int
	err := q.db.QueryRowContext(ctx, `
		UPDATE league_participants
		SET current_budget = current_budget + $3, updated_at = now()
		WHERE league_id = $1 AND user_id = $2
		RETURNING current_budget`,
		leagueID, userID, delta,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperr.NotFound("participant not found in league")
		}
		return 0, fmt.Errorf("failed to update budget: %w", err)
	}
	return balance, nil
}

// TransactionParams describes one audit row.
type TransactionParams struct {
	LeagueID      uuid.UUID
	UserID        uuid.UUID
	Type          models.TransactionType
	Amount        int
	Description   string
	RelatedPlayer *uuid.UUID
	BalanceAfter  int
	Metadata      map[string]any
	At            time.Time
}

// InsertTransaction appends an audit row to budget_transactions.
func (q *Queries) InsertTransaction(ctx context.Context, p TransactionParams) error {
	meta := pqtype.NullRawMessage{}
	if len(p.Metadata) > 0 {
		raw, err := json.Marshal(p.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal transaction metadata: %w", err)
		}
		meta = pqtype.NullRawMessage{RawMessage: raw, Valid: true}
	}

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO budget_transactions (
		  id, league_id, user_id, transaction_type, amount, description,
		  related_player_id, balance_after, metadata, transaction_time
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		uuid.New(), p.LeagueID, p.UserID, string(p.Type), p.Amount, p.Description,
		sqlutil.ToNullUUID(p.RelatedPlayer), p.BalanceAfter, meta, p.At,
	)
	if err != nil {
		return fmt.Errorf("failed to insert budget transaction: %w", err)
	}
	return nil
}

// TotalByType sums a user's transactions of one type in a league.
func (q *Queries) TotalByType(ctx context.Context, leagueID, userID uuid.UUID, txType models.TransactionType) (int, error) {
	var total int
	err := q.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM budget_transactions
		WHERE league_id = $1 AND user_id = $2 AND transaction_type = $3`,
		leagueID, userID, string(txType),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum budget transactions: %w", err)
	}
	return total, nil
}

// ListTransactions returns a participant's audit trail, newest first.
func (q *Queries) ListTransactions(ctx context.Context, leagueID, userID uuid.UUID, limit int) ([]models.BudgetTransaction, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, league_id, user_id, transaction_type, amount, description,
		       related_player_id, balance_after, metadata, transaction_time
		FROM budget_transactions
		WHERE league_id = $1 AND user_id = $2
		ORDER BY transaction_time DESC
		LIMIT $3`,
		leagueID, userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list budget transactions: %w", err)
	}
	defer rows.Close()

	var out []models.BudgetTransaction
	for rows.Next() {
		var (
			tx      models.BudgetTransaction
			txType  string
			desc    sql.NullString
			related uuid.NullUUID
			meta    pqtype.NullRawMessage
		)
		if err := rows.Scan(&tx.ID, &tx.LeagueID, &tx.UserID, &txType, &tx.Amount, &desc,
			&related, &tx.BalanceAfter, &meta, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan budget transaction: %w", err)
		}
		tx.Type = models.TransactionType(txType)
		tx.Description = sqlutil.FromSqlString(desc, "")
		tx.RelatedPlayer = sqlutil.FromNullUUID(related)
		if meta.Valid {
			tx.Metadata = meta.RawMessage
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}
