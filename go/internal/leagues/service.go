package leagues

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/fantabid/go/internal/models"
	"github.com/mcdev12/fantabid/go/internal/rpc"
)

// ServiceName is the connect service path prefix
const ServiceName = "fantabid.league.v1.LeagueService"

const (
	GetLeagueProcedure             = "/" + ServiceName + "/GetLeague"
	UpdateLeagueStatusProcedure    = "/" + ServiceName + "/UpdateLeagueStatus"
	SetActiveAuctionRolesProcedure = "/" + ServiceName + "/SetActiveAuctionRoles"
)

// LeaguesApp defines what the service layer needs from the leagues application
type LeaguesApp interface {
	GetLeague(ctx context.Context, id uuid.UUID) (LeagueDetails, error)
	UpdateLeagueStatus(ctx context.Context, id uuid.UUID, status models.LeagueStatus) (models.League, error)
	SetActiveAuctionRoles(ctx context.Context, id uuid.UUID, roles string) (models.League, error)
}

// Service exposes league administration over connect
type Service struct {
	app LeaguesApp
}

// NewService creates a new leagues connect service
func NewService(app LeaguesApp) *Service {
	return &Service{app: app}
}

// Handler returns the service path and its routes.
func (s *Service) Handler() (string, http.Handler) {
	opts := rpc.HandlerOptions()
	mux := http.NewServeMux()
	mux.Handle(GetLeagueProcedure, connect.NewUnaryHandler(GetLeagueProcedure, s.GetLeague, opts...))
	mux.Handle(UpdateLeagueStatusProcedure, connect.NewUnaryHandler(UpdateLeagueStatusProcedure, s.UpdateLeagueStatus, opts...))
	mux.Handle(SetActiveAuctionRolesProcedure, connect.NewUnaryHandler(SetActiveAuctionRolesProcedure, s.SetActiveAuctionRoles, opts...))
	return "/" + ServiceName + "/", mux
}

type GetLeagueMsg struct {
	LeagueID string `json:"league_id"`
}

type UpdateLeagueStatusMsg struct {
	LeagueID string `json:"league_id"`
	Status   string `json:"status"`
}

type SetActiveAuctionRolesMsg struct {
	LeagueID string `json:"league_id"`
	Roles    string `json:"active_auction_roles"`
}

type LeagueResponse struct {
	League models.League `json:"league"`
}

// GetLeague returns the league configuration and its participants
func (s *Service) GetLeague(ctx context.Context, req *connect.Request[GetLeagueMsg]) (*connect.Response[LeagueDetails], error) {
	id, err := rpc.ParseID("league_id", req.Msg.LeagueID)
	if err != nil {
		return nil, err
	}
	details, err := s.app.GetLeague(ctx, id)
	if err != nil {
		return nil, rpc.Error(err)
	}
	return connect.NewResponse(&details), nil
}

// UpdateLeagueStatus moves a league to another status
func (s *Service) UpdateLeagueStatus(ctx context.Context, req *connect.Request[UpdateLeagueStatusMsg]) (*connect.Response[LeagueResponse], error) {
	id, err := rpc.ParseID("league_id", req.Msg.LeagueID)
	if err != nil {
		return nil, err
	}
	league, err := s.app.UpdateLeagueStatus(ctx, id, models.LeagueStatus(req.Msg.Status))
	if err != nil {
		return nil, rpc.Error(err)
	}
	return connect.NewResponse(&LeagueResponse{League: league}), nil
}

// SetActiveAuctionRoles opens bidding for a set of roles
func (s *Service) SetActiveAuctionRoles(ctx context.Context, req *connect.Request[SetActiveAuctionRolesMsg]) (*connect.Response[LeagueResponse], error) {
	id, err := rpc.ParseID("league_id", req.Msg.LeagueID)
	if err != nil {
		return nil, err
	}
	league, err := s.app.SetActiveAuctionRoles(ctx, id, req.Msg.Roles)
	if err != nil {
		return nil, rpc.Error(err)
	}
	return connect.NewResponse(&LeagueResponse{League: league}), nil
}
