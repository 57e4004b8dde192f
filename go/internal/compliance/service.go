package compliance

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/fantabid/go/internal/rpc"
)

// ServiceName is the connect service path prefix
const ServiceName = "fantabid.compliance.v1.ComplianceService"

const (
	GetLeagueComplianceProcedure = "/" + ServiceName + "/GetLeagueCompliance"
	ProcessComplianceProcedure   = "/" + ServiceName + "/ProcessCompliance"
)

// ComplianceApp defines what the service layer needs from the compliance application
type ComplianceApp interface {
	Process(ctx context.Context, leagueID, userID uuid.UUID) (Result, error)
	LeagueStatus(ctx context.Context, leagueID uuid.UUID) ([]UserStatus, error)
}

// Service exposes compliance reads and on-demand evaluation over connect
type Service struct {
	app ComplianceApp
}

// NewService creates a new compliance connect service
func NewService(app ComplianceApp) *Service {
	return &Service{app: app}
}

// Handler returns the service path and its routes.
func (s *Service) Handler() (string, http.Handler) {
	opts := rpc.HandlerOptions()
	mux := http.NewServeMux()
	mux.Handle(GetLeagueComplianceProcedure, connect.NewUnaryHandler(GetLeagueComplianceProcedure, s.GetLeagueCompliance, opts...))
	mux.Handle(ProcessComplianceProcedure, connect.NewUnaryHandler(ProcessComplianceProcedure, s.ProcessCompliance, opts...))
	return "/" + ServiceName + "/", mux
}

type GetLeagueComplianceMsg struct {
	LeagueID string `json:"league_id"`
}

type LeagueComplianceResponse struct {
	Users []UserStatus `json:"users"`
}

type ProcessComplianceMsg struct {
	LeagueID string `json:"league_id"`
	UserID   string `json:"user_id"`
}

// GetLeagueCompliance lists every participant's standing in the current phase
func (s *Service) GetLeagueCompliance(ctx context.Context, req *connect.Request[GetLeagueComplianceMsg]) (*connect.Response[LeagueComplianceResponse], error) {
	leagueID, err := rpc.ParseID("league_id", req.Msg.LeagueID)
	if err != nil {
		return nil, err
	}
	users, err := s.app.LeagueStatus(ctx, leagueID)
	if err != nil {
		return nil, rpc.Error(err)
	}
	return connect.NewResponse(&LeagueComplianceResponse{Users: users}), nil
}

// ProcessCompliance evaluates one participant and applies any penalty owed
func (s *Service) ProcessCompliance(ctx context.Context, req *connect.Request[ProcessComplianceMsg]) (*connect.Response[Result], error) {
	leagueID, err := rpc.ParseID("league_id", req.Msg.LeagueID)
	if err != nil {
		return nil, err
	}
	userID, err := rpc.ParseID("user_id", req.Msg.UserID)
	if err != nil {
		return nil, err
	}
	res, err := s.app.Process(ctx, leagueID, userID)
	if err != nil {
		return nil, rpc.Error(err)
	}
	return connect.NewResponse(&res), nil
}
