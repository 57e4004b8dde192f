package roster

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

func TestSlotsRemaining(t *testing.T) {
	slots := map[models.Role]int{models.RoleGoalkeeper: 1, models.RoleDefender: 3, models.RoleMidfielder: 3, models.RoleForward: 2}
	assigned := []RosterPlayer{{Role: models.RoleGoalkeeper}, {Role: models.RoleDefender}}
	winning := []RosterPlayer{{Role: models.RoleGoalkeeper}, {Role: models.RoleForward}}

	got := slotsRemaining(slots, assigned, winning)
	check.Equal(t, 0, got[models.RoleGoalkeeper])
	check.Equal(t, 2, got[models.RoleDefender])
	check.Equal(t, 3, got[models.RoleMidfielder])
	check.Equal(t, 1, got[models.RoleForward])
}

type fakeRosterApp struct {
	rosters   map[uuid.UUID]ManagerRoster
	discarded []uuid.UUID
}

func (f *fakeRosterApp) DiscardPlayer(_ context.Context, leagueID, userID, playerID uuid.UUID) (DiscardResult, error) {
	r, ok := f.rosters[userID]
	if !ok || r.LeagueID != leagueID {
		return DiscardResult{}, apperr.NotFound("player is not in your roster")
	}
	for _, p := range r.Assigned {
		if p.PlayerID == playerID {
			f.discarded = append(f.discarded, playerID)
			return DiscardResult{PlayerID: playerID, PlayerName: p.Name, RefundAmount: 18, NewBudget: 118}, nil
		}
	}
	return DiscardResult{}, apperr.NotFound("player is not in your roster")
}

func (f *fakeRosterApp) GetManagerRoster(_ context.Context, leagueID, userID uuid.UUID) (ManagerRoster, error) {
	r, ok := f.rosters[userID]
	if !ok || r.LeagueID != leagueID {
		return ManagerRoster{}, apperr.NotFound("user is not a participant of this league")
	}
	return r, nil
}

func TestDiscardRefund(t *testing.T) {
	owner := uuid.New()
	op := ownedPlayer{OwnerID: owner, Name: "Dimarco", Role: models.RoleDefender, Quotation: 18}

	refund, err := discardRefund(models.LeagueStatusRepairActive, op, owner)
	assert.NoError(t, err)
	check.Equal(t, 18, refund)

	_, err = discardRefund(models.LeagueStatusDraftActive, op, owner)
	check.True(t, apperr.Is(err, apperr.KindStateConflict))

	_, err = discardRefund(models.LeagueStatusRepairActive, op, uuid.New())
	check.True(t, apperr.Is(err, apperr.KindNotFound))

	op.Quotation = -3
	refund, err = discardRefund(models.LeagueStatusRepairActive, op, owner)
	assert.NoError(t, err)
	check.Equal(t, 0, refund)
}

func TestService_DiscardPlayer(t *testing.T) {
	league, user, player := uuid.New(), uuid.New(), uuid.New()
	app := &fakeRosterApp{rosters: map[uuid.UUID]ManagerRoster{
		user: {
			LeagueID: league,
			UserID:   user,
			Assigned: []RosterPlayer{{PlayerID: player, Name: "Dimarco", Role: models.RoleDefender, Price: 30}},
		},
	}}
	mux := http.NewServeMux()
	mux.Handle(NewService(app).Handler())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := connect.NewClient[DiscardPlayerMsg, DiscardResult](srv.Client(), srv.URL+DiscardPlayerProcedure, rpc.ClientOptions()...)
	res, err := client.CallUnary(context.Background(), connect.NewRequest(&DiscardPlayerMsg{
		LeagueID: league.String(), UserID: user.String(), PlayerID: player.String(),
	}))
	assert.NoError(t, err)
	check.Equal(t, 18, res.Msg.RefundAmount)
	check.Equal(t, "Dimarco", res.Msg.PlayerName)
	check.Equal(t, []uuid.UUID{player}, app.discarded)

	_, err = client.CallUnary(context.Background(), connect.NewRequest(&DiscardPlayerMsg{
		LeagueID: league.String(), UserID: user.String(), PlayerID: uuid.NewString(),
	}))
	check.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	_, err = client.CallUnary(context.Background(), connect.NewRequest(&DiscardPlayerMsg{
		LeagueID: league.String(), UserID: user.String(), PlayerID: "dimarco",
	}))
	check.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestService_GetManagerRoster(t *testing.T) {
	league, user := uuid.New(), uuid.New()
	app := &fakeRosterApp{rosters: map[uuid.UUID]ManagerRoster{
		user: {
			LeagueID:   league,
			UserID:     user,
			Assigned:   []RosterPlayer{{PlayerID: uuid.New(), Name: "Maignan", Role: models.RoleGoalkeeper, Price: 40}},
			TotalSpent: 40,
		},
	}}
	mux := http.NewServeMux()
	mux.Handle(NewService(app).Handler())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := connect.NewClient[GetManagerRosterMsg, ManagerRoster](srv.Client(), srv.URL+GetManagerRosterProcedure, rpc.ClientOptions()...)
	res, err := client.CallUnary(context.Background(), connect.NewRequest(&GetManagerRosterMsg{LeagueID: league.String(), UserID: user.String()}))
	assert.NoError(t, err)
	check.Equal(t, 40, res.Msg.TotalSpent)
	check.Equal(t, "Maignan", res.Msg.Assigned[0].Name)

	_, err = client.CallUnary(context.Background(), connect.NewRequest(&GetManagerRosterMsg{LeagueID: league.String(), UserID: uuid.NewString()}))
	check.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}
