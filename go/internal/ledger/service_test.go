package ledger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/fantabid/go/internal/apperr"
	"github.com/mcdev12/fantabid/go/internal/models"
	"github.com/mcdev12/fantabid/go/internal/rpc"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

type fakeLedgerApp struct {
	snap      models.BudgetUpdate
	txs       []models.BudgetTransaction
	lastLimit int
}

func (f *fakeLedgerApp) Budget(_ context.Context, _, userID uuid.UUID) (models.BudgetUpdate, error) {
	if userID != f.snap.UserID {
		return models.BudgetUpdate{}, apperr.NotFound("participant not found in league")
	}
	return f.snap, nil
}

func (f *fakeLedgerApp) History(_ context.Context, _, _ uuid.UUID, limit int) ([]models.BudgetTransaction, error) {
	f.lastLimit = limit
	return f.txs, nil
}

func TestService_GetBudget(t *testing.T) {
	user := uuid.New()
	app := &fakeLedgerApp{
		snap: models.BudgetUpdate{UserID: user, Budget: 480, LockedCredits: 35},
		txs: []models.BudgetTransaction{
			{ID: uuid.New(), UserID: user, Type: models.TransactionPenaltyRequirement, Amount: 5, BalanceAfter: 480},
		},
	}
	mux := http.NewServeMux()
	mux.Handle(NewService(app).Handler())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := connect.NewClient[GetBudgetMsg, BudgetResponse](srv.Client(), srv.URL+GetBudgetProcedure, rpc.ClientOptions()...)
	ctx := context.Background()

	res, err := client.CallUnary(ctx, connect.NewRequest(&GetBudgetMsg{
		LeagueID:     uuid.NewString(),
		UserID:       user.String(),
		HistoryLimit: 10,
	}))
	assert.NoError(t, err)
	check.Equal(t, 480, res.Msg.Budget)
	check.Equal(t, 445, res.Msg.AvailableBudget)
	check.Equal(t, 1, len(res.Msg.Transactions))
	check.Equal(t, 10, app.lastLimit)

	_, err = client.CallUnary(ctx, connect.NewRequest(&GetBudgetMsg{LeagueID: uuid.NewString(), UserID: uuid.NewString()}))
	check.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestHistoryLimit(t *testing.T) {
	check.Equal(t, defaultHistoryLimit, historyLimit(0))
	check.Equal(t, 20, historyLimit(20))
	check.Equal(t, maxHistoryLimit, historyLimit(5000))
}
