package roster

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/fantabid/go/internal/rpc"
)

// ServiceName is the connect service path prefix
const ServiceName = "fantabid.roster.v1.RosterService"

const (
	GetManagerRosterProcedure = "/" + ServiceName + "/GetManagerRoster"
	DiscardPlayerProcedure    = "/" + ServiceName + "/DiscardPlayer"
)

// RosterApp defines what the service layer needs from the roster application
type RosterApp interface {
	GetManagerRoster(ctx context.Context, leagueID, userID uuid.UUID) (ManagerRoster, error)
	DiscardPlayer(ctx context.Context, leagueID, userID, playerID uuid.UUID) (DiscardResult, error)
}

// Service exposes manager rosters over connect
type Service struct {
	app RosterApp
}

// NewService creates a new roster connect service
func NewService(app RosterApp) *Service {
	return &Service{app: app}
}

// Handler returns the service path and its routes.
func (s *Service) Handler() (string, http.Handler) {
	opts := rpc.HandlerOptions()
	mux := http.NewServeMux()
	mux.Handle(GetManagerRosterProcedure, connect.NewUnaryHandler(GetManagerRosterProcedure, s.GetManagerRoster, opts...))
	mux.Handle(DiscardPlayerProcedure, connect.NewUnaryHandler(DiscardPlayerProcedure, s.DiscardPlayer, opts...))
	return "/" + ServiceName + "/", mux
}

type GetManagerRosterMsg struct {
	LeagueID string `json:"league_id"`
	UserID   string `json:"user_id"`
}

type DiscardPlayerMsg struct {
	LeagueID string `json:"league_id"`
	UserID   string `json:"user_id"`
	PlayerID string `json:"player_id"`
}

// GetManagerRoster returns one participant's squad
func (s *Service) GetManagerRoster(ctx context.Context, req *connect.Request[GetManagerRosterMsg]) (*connect.Response[ManagerRoster], error) {
	leagueID, err := rpc.ParseID("league_id", req.Msg.LeagueID)
	if err != nil {
		return nil, err
	}
	userID, err := rpc.ParseID("user_id", req.Msg.UserID)
	if err != nil {
		return nil, err
	}
	roster, err := s.app.GetManagerRoster(ctx, leagueID, userID)
	if err != nil {
		return nil, rpc.Error(err)
	}
	return connect.NewResponse(&roster), nil
}

// DiscardPlayer releases a player from the caller's roster during repair
func (s *Service) DiscardPlayer(ctx context.Context, req *connect.Request[DiscardPlayerMsg]) (*connect.Response[DiscardResult], error) {
	leagueID, err := rpc.ParseID("league_id", req.Msg.LeagueID)
	if err != nil {
		return nil, err
	}
	userID, err := rpc.ParseID("user_id", req.Msg.UserID)
	if err != nil {
		return nil, err
	}
	playerID, err := rpc.ParseID("player_id", req.Msg.PlayerID)
	if err != nil {
		return nil, err
	}
	res, err := s.app.DiscardPlayer(ctx, leagueID, userID, playerID)
	if err != nil {
		return nil, rpc.Error(err)
	}
	return connect.NewResponse(&res), nil
}
