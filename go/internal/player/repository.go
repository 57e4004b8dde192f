package player

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mcdev12/fantabid/go/internal/models"
	"github.com/mcdev12/fantabid/go/internal/sqlutil"
)

type Queries struct {
	db sqlutil.DBTX
}

func New(db sqlutil.DBTX) *Queries {
	return &Queries{db: db}
}

// filters builds the WHERE clause shared by the page and count queries.
// Its positional parameters follow the first `skip` ones.
func filters(p SearchParams, skip int) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)+skip))
	}
	if p.Name != "" {
		add("p.name ILIKE $%d", "%"+p.Name+"%")
	}
	if p.Team != "" {
		add("p.team ILIKE $%d", "%"+p.Team+"%")
	}
	if p.Role != "" {
		add("p.role = $%d", string(p.Role))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// Count returns how many players match the filters.
func (q *Queries) Count(ctx context.Context, p SearchParams) (int, error) {
	where, args := filters(p, 0)
	var total int
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM players p`+where, args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count players: %w", err)
	}
	return total, nil
}

// Search returns one page of players with their state in the league.
func (q *Queries) Search(ctx context.Context, p SearchParams) ([]Listing, error) {
	where, args := filters(p, 1)
	order := "ASC"
	if p.Desc {
		order = "DESC"
	}
	args = append([]any{p.LeagueID}, args...)
	args = append(args, p.Limit, p.offset())

	rows, err := q.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT p.id, p.name, p.team, p.role, p.quotation,
		       pa.user_id, a.id, a.current_highest_bid_amount, a.scheduled_end_time
		FROM players p
		LEFT JOIN player_assignments pa ON pa.player_id = p.id AND pa.league_id = $1
		LEFT JOIN auctions a ON a.player_id = p.id AND a.league_id = $1
		     AND a.status IN ('active', 'closing')
		%s
		ORDER BY %s %s, p.id %s
		LIMIT $%d OFFSET $%d`,
		where, sortColumns[p.SortBy], order, order, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search players: %w", err)
	}
	defer rows.Close()

	out := []Listing{}
	for rows.Next() {
		var (
			l         Listing
			role      string
			assignee  uuid.NullUUID
			auctionID uuid.NullUUID
			bid       sql.NullInt64
			endTime   sql.NullTime
		)
		if err := rows.Scan(&l.ID, &l.Name, &l.Team, &role, &l.Quotation,
			&assignee, &auctionID, &bid, &endTime); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		l.Role = models.Role(role)
		l.AssignedTo = sqlutil.FromNullUUID(assignee)
		l.AuctionID = sqlutil.FromNullUUID(auctionID)
		l.ScheduledEndTime = sqlutil.FromSqlTime(endTime)
		if bid.Valid {
			amount := int(bid.Int64)
			l.CurrentBid = &amount
		}
		l.State = stateOf(l)
		out = append(out, l)
	}
	return out, rows.Err()
}

func stateOf(l Listing) AuctionState {
	switch {
	case l.AssignedTo != nil:
		return StateAssigned
	case l.AuctionID != nil:
		return StateActiveAuction
	default:
		return StateNoAuction
	}
}

// LeagueExists reports whether the league is known.
func (q *Queries) LeagueExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM leagues WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check league: %w", err)
	}
	return exists, nil
}
