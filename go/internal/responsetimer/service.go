package responsetimer

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/fantabid/go/internal/models"
	"github.com/mcdev12/fantabid/go/internal/rpc"
)

// ServiceName is the connect service path prefix
const ServiceName = "fantabid.timer.v1.ResponseTimerService"

const (
	ListActiveTimersProcedure = "/" + ServiceName + "/ListActiveTimers"
	GetCooldownProcedure      = "/" + ServiceName + "/GetCooldown"
)

// TimerReader defines what the service layer needs from the timer application
type TimerReader interface {
	ActiveTimers(ctx context.Context, userID uuid.UUID) ([]models.ResponseTimer, error)
	ActiveCooldown(ctx context.Context, leagueID, userID, playerID uuid.UUID) (*models.Cooldown, error)
}

// Service exposes a participant's timers and cooldowns over connect
type Service struct {
	app TimerReader
}

// NewService creates a new response timer connect service
func NewService(app TimerReader) *Service {
	return &Service{app: app}
}

// Handler returns the service path and its routes.
func (s *Service) Handler() (string, http.Handler) {
	opts := rpc.HandlerOptions()
	mux := http.NewServeMux()
	mux.Handle(ListActiveTimersProcedure, connect.NewUnaryHandler(ListActiveTimersProcedure, s.ListActiveTimers, opts...))
	mux.Handle(GetCooldownProcedure, connect.NewUnaryHandler(GetCooldownProcedure, s.GetCooldown, opts...))
	return "/" + ServiceName + "/", mux
}

type ListActiveTimersMsg struct {
	UserID string `json:"user_id"`
}

type ActiveTimersResponse struct {
	Timers []models.ResponseTimer `json:"timers"`
}

type GetCooldownMsg struct {
	LeagueID string `json:"league_id"`
	UserID   string `json:"user_id"`
	PlayerID string `json:"player_id"`
}

type CooldownResponse struct {
	Active   bool             `json:"active"`
	Cooldown *models.Cooldown `json:"cooldown,omitempty"`
}

// ListActiveTimers returns the user's running response timers
func (s *Service) ListActiveTimers(ctx context.Context, req *connect.Request[ListActiveTimersMsg]) (*connect.Response[ActiveTimersResponse], error) {
	userID, err := rpc.ParseID("user_id", req.Msg.UserID)
	if err != nil {
		return nil, err
	}
	timers, err := s.app.ActiveTimers(ctx, userID)
	if err != nil {
		return nil, rpc.Error(err)
	}
	return connect.NewResponse(&ActiveTimersResponse{Timers: timers}), nil
}

// GetCooldown reports whether the user is locked out of bidding on a player
func (s *Service) GetCooldown(ctx context.Context, req *connect.Request[GetCooldownMsg]) (*connect.Response[CooldownResponse], error) {
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

	cd, err := s.app.ActiveCooldown(ctx, leagueID, userID, playerID)
	if err != nil {
		return nil, rpc.Error(err)
	}
	return connect.NewResponse(&CooldownResponse{Active: cd != nil, Cooldown: cd}), nil
}
