package player

import (
	"context"
	"database/sql"

	"github.com/mcdev12/fantabid/go/internal/apperr"
)

// App serves the player catalog
type App struct {
	db *sql.DB
}

// NewApp creates a new player App
func NewApp(db *sql.DB) *App {
	return &App{db: db}
}

// SearchPlayers pages through the catalog with each player's auction state
// in the league.
func (a *App) SearchPlayers(ctx context.Context, params SearchParams) (SearchResult, error) {
	params, err := params.normalize()
	if err != nil {
		return SearchResult{}, err
	}

	q := New(a.db)
	exists, err := q.LeagueExists(ctx, params.LeagueID)
	if err != nil {
		return SearchResult{}, err
	}
	if !exists {
		return SearchResult{}, apperr.NotFound("league not found")
	}

	total, err := q.Count(ctx, params)
	if err != nil {
		return SearchResult{}, err
	}
	players, err := q.Search(ctx, params)
	if err != nil {
		return SearchResult{}, err
	}
	return SearchResult{
		Players:    players,
		Total:      total,
		Page:       params.Page,
		TotalPages: (total + params.Limit - 1) / params.Limit,
	}, nil
}
