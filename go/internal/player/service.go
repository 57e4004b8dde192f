package player

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/mcdev12/fantabid/go/internal/models"
	"github.com/mcdev12/fantabid/go/internal/rpc"
)

// ServiceName is the connect service path prefix
const ServiceName = "fantabid.player.v1.PlayerService"

const SearchPlayersProcedure = "/" + ServiceName + "/SearchPlayers"

// PlayerApp defines what the service layer needs from the player application
type PlayerApp interface {
	SearchPlayers(ctx context.Context, params SearchParams) (SearchResult, error)
}

// Service exposes the player catalog over connect
type Service struct {
	app PlayerApp
}

// NewService creates a new player connect service
func NewService(app PlayerApp) *Service {
	return &Service{app: app}
}

// Handler returns the service path and its routes.
func (s *Service) Handler() (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(SearchPlayersProcedure, connect.NewUnaryHandler(SearchPlayersProcedure, s.SearchPlayers, rpc.HandlerOptions()...))
	return "/" + ServiceName + "/", mux
}

type SearchPlayersMsg struct {
	LeagueID string `json:"league_id"`
	Name     string `json:"name,omitempty"`
	Team     string `json:"team,omitempty"`
	Role     string `json:"role,omitempty"`
	SortBy   string `json:"sort_by,omitempty"`
	Desc     bool   `json:"desc,omitempty"`
	Page     int    `json:"page,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// SearchPlayers lists players with their auction state in a league
func (s *Service) SearchPlayers(ctx context.Context, req *connect.Request[SearchPlayersMsg]) (*connect.Response[SearchResult], error) {
	leagueID, err := rpc.ParseID("league_id", req.Msg.LeagueID)
	if err != nil {
		return nil, err
	}
	res, err := s.app.SearchPlayers(ctx, SearchParams{
		LeagueID: leagueID,
		Name:     req.Msg.Name,
		Team:     req.Msg.Team,
		Role:     models.Role(req.Msg.Role),
		SortBy:   req.Msg.SortBy,
		Desc:     req.Msg.Desc,
		Page:     req.Msg.Page,
		Limit:    req.Msg.Limit,
	})
	if err != nil {
		return nil, rpc.Error(err)
	}
	return connect.NewResponse(&res), nil
}
