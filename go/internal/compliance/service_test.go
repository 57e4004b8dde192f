package compliance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/fantabid/go/internal/apperr"
	"github.com/mcdev12/fantabid/go/internal/rpc"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

type fakeComplianceApp struct {
	leagues map[uuid.UUID][]UserStatus
	result  Result
}

func (f *fakeComplianceApp) Process(context.Context, uuid.UUID, uuid.UUID) (Result, error) {
	return f.result, nil
}

func (f *fakeComplianceApp) LeagueStatus(_ context.Context, leagueID uuid.UUID) ([]UserStatus, error) {
	users, ok := f.leagues[leagueID]
	if !ok {
		return nil, apperr.NotFound("league not found")
	}
	return users, nil
}

func TestService_Compliance(t *testing.T) {
	league, user := uuid.New(), uuid.New()
	start := t0
	app := &fakeComplianceApp{
		leagues: map[uuid.UUID][]UserStatus{
			league: {{UserID: user, TimerStartAt: &start, PenaltiesCycle: 2}},
		},
		result: Result{AppliedPenaltyAmount: 10, TotalPenaltyAmount: 15, Message: "applied 10 credits in penalties"},
	}
	mux := http.NewServeMux()
	mux.Handle(NewService(app).Handler())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	ctx := context.Background()

	list := connect.NewClient[GetLeagueComplianceMsg, LeagueComplianceResponse](srv.Client(), srv.URL+GetLeagueComplianceProcedure, rpc.ClientOptions()...)
	res, err := list.CallUnary(ctx, connect.NewRequest(&GetLeagueComplianceMsg{LeagueID: league.String()}))
	assert.NoError(t, err)
	assert.Equal(t, 1, len(res.Msg.Users))
	check.Equal(t, 2, res.Msg.Users[0].PenaltiesCycle)

	_, err = list.CallUnary(ctx, connect.NewRequest(&GetLeagueComplianceMsg{LeagueID: uuid.NewString()}))
	check.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	process := connect.NewClient[ProcessComplianceMsg, Result](srv.Client(), srv.URL+ProcessComplianceProcedure, rpc.ClientOptions()...)
	out, err := process.CallUnary(ctx, connect.NewRequest(&ProcessComplianceMsg{LeagueID: league.String(), UserID: user.String()}))
	assert.NoError(t, err)
	check.Equal(t, 10, out.Msg.AppliedPenaltyAmount)
	check.Equal(t, 15, out.Msg.TotalPenaltyAmount)

	_, err = process.CallUnary(ctx, connect.NewRequest(&ProcessComplianceMsg{LeagueID: league.String(), UserID: "x"}))
	check.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}
