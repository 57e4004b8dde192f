package leagues

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

type fakeLeaguesApp struct {
	leagues map[uuid.UUID]*models.League
}

func (f *fakeLeaguesApp) GetLeague(_ context.Context, id uuid.UUID) (LeagueDetails, error) {
	l, ok := f.leagues[id]
	if !ok {
		return LeagueDetails{}, apperr.NotFound("league not found")
	}
	return LeagueDetails{League: *l, Participants: []models.Participant{{LeagueID: id, UserID: uuid.New(), Budget: 500}}}, nil
}

func (f *fakeLeaguesApp) UpdateLeagueStatus(_ context.Context, id uuid.UUID, status models.LeagueStatus) (models.League, error) {
	if err := validateStatus(status); err != nil {
		return models.League{}, err
	}
	l, ok := f.leagues[id]
	if !ok {
		return models.League{}, apperr.NotFound("league not found")
	}
	if l.Status == status {
		return models.League{}, apperr.StateConflict("league is already %s", status)
	}
	l.Status = status
	return *l, nil
}

func (f *fakeLeaguesApp) SetActiveAuctionRoles(_ context.Context, id uuid.UUID, raw string) (models.League, error) {
	roles, err := normalizeRoles(raw)
	if err != nil {
		return models.League{}, err
	}
	l := f.leagues[id]
	l.ActiveAuctionRoles = roles
	return *l, nil
}

func TestService_LeagueAdministration(t *testing.T) {
	id := uuid.New()
	app := &fakeLeaguesApp{leagues: map[uuid.UUID]*models.League{
		id: {ID: id, Name: "Serie A", Status: models.LeagueStatusParticipantsJoining, ActiveAuctionRoles: "ALL"},
	}}
	mux := http.NewServeMux()
	mux.Handle(NewService(app).Handler())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	ctx := context.Background()

	get := connect.NewClient[GetLeagueMsg, LeagueDetails](srv.Client(), srv.URL+GetLeagueProcedure, rpc.ClientOptions()...)
	details, err := get.CallUnary(ctx, connect.NewRequest(&GetLeagueMsg{LeagueID: id.String()}))
	assert.NoError(t, err)
	check.Equal(t, "Serie A", details.Msg.League.Name)
	check.Equal(t, 1, len(details.Msg.Participants))

	_, err = get.CallUnary(ctx, connect.NewRequest(&GetLeagueMsg{LeagueID: uuid.NewString()}))
	check.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	status := connect.NewClient[UpdateLeagueStatusMsg, LeagueResponse](srv.Client(), srv.URL+UpdateLeagueStatusProcedure, rpc.ClientOptions()...)
	res, err := status.CallUnary(ctx, connect.NewRequest(&UpdateLeagueStatusMsg{LeagueID: id.String(), Status: "draft_active"}))
	assert.NoError(t, err)
	check.Equal(t, models.LeagueStatusDraftActive, res.Msg.League.Status)

	_, err = status.CallUnary(ctx, connect.NewRequest(&UpdateLeagueStatusMsg{LeagueID: id.String(), Status: "draft_active"}))
	check.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))

	_, err = status.CallUnary(ctx, connect.NewRequest(&UpdateLeagueStatusMsg{LeagueID: id.String(), Status: "paused"}))
	check.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	roles := connect.NewClient[SetActiveAuctionRolesMsg, LeagueResponse](srv.Client(), srv.URL+SetActiveAuctionRolesProcedure, rpc.ClientOptions()...)
	res, err = roles.CallUnary(ctx, connect.NewRequest(&SetActiveAuctionRolesMsg{LeagueID: id.String(), Roles: "a, p"}))
	assert.NoError(t, err)
	check.Equal(t, "P,A", res.Msg.League.ActiveAuctionRoles)
}
