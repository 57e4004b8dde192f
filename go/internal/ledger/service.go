package ledger

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/fantabid/go/internal/models"
	"github.com/mcdev12/fantabid/go/internal/rpc"
)

// ServiceName is the connect service path prefix
const ServiceName = "fantabid.ledger.v1.LedgerService"

const GetBudgetProcedure = "/" + ServiceName + "/GetBudget"

// LedgerApp defines what the service layer needs from the ledger application
type LedgerApp interface {
	Budget(ctx context.Context, leagueID, userID uuid.UUID) (models.BudgetUpdate, error)
	History(ctx context.Context, leagueID, userID uuid.UUID, limit int) ([]models.BudgetTransaction, error)
}

// Service exposes participant budgets over connect
type Service struct {
	app LedgerApp
}

// NewService creates a new ledger connect service
func NewService(app LedgerApp) *Service {
	return &Service{app: app}
}

// Handler returns the service path and its routes.
func (s *Service) Handler() (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(GetBudgetProcedure, connect.NewUnaryHandler(GetBudgetProcedure, s.GetBudget, rpc.HandlerOptions()...))
	return "/" + ServiceName + "/", mux
}

type GetBudgetMsg struct {
	LeagueID     string `json:"league_id"`
	UserID       string `json:"user_id"`
	HistoryLimit int    `json:"history_limit"`
}

type BudgetResponse struct {
	Budget          int                        `json:"budget"`
	LockedCredits   int                        `json:"locked_credits"`
	AvailableBudget int                        `json:"available_budget"`
	Transactions    []models.BudgetTransaction `json:"transactions"`
}

// GetBudget returns the participant's balance and audit trail
func (s *Service) GetBudget(ctx context.Context, req *connect.Request[GetBudgetMsg]) (*connect.Response[BudgetResponse], error) {
	leagueID, err := rpc.ParseID("league_id", req.Msg.LeagueID)
	if err != nil {
		return nil, err
	}
	userID, err := rpc.ParseID("user_id", req.Msg.UserID)
	if err != nil {
		return nil, err
	}

	snap, err := s.app.Budget(ctx, leagueID, userID)
	if err != nil {
		return nil, rpc.Error(err)
	}
	txs, err := s.app.History(ctx, leagueID, userID, req.Msg.HistoryLimit)
	if err != nil {
		return nil, rpc.Error(err)
	}

	return connect.NewResponse(&BudgetResponse{
		Budget:          snap.Budget,
		LockedCredits:   snap.LockedCredits,
		AvailableBudget: snap.Budget - snap.LockedCredits,
		Transactions:    txs,
	}), nil
}
