package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/fantabid/go/internal/rpc"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

var t0 = time.Date(2025, 8, 20, 18, 0, 0, 0, time.UTC)

type fakeSessionApp struct {
	sessions map[uuid.UUID]*Session
	loginErr error
}

func newFakeSessionApp() *fakeSessionApp {
	return &fakeSessionApp{sessions: map[uuid.UUID]*Session{}}
}

func (f *fakeSessionApp) RecordLogin(_ context.Context, userID uuid.UUID) error {
	if f.loginErr != nil {
		return f.loginErr
	}
	if s, ok := f.sessions[userID]; ok {
		s.End = nil
		return nil
	}
	f.sessions[userID] = &Session{UserID: userID, Start: t0, FirstLogin: t0}
	return nil
}

func (f *fakeSessionApp) RecordLogout(_ context.Context, userID uuid.UUID) error {
	if s, ok := f.sessions[userID]; ok {
		end := t0.Add(time.Hour)
		s.End = &end
	}
	return nil
}

func (f *fakeSessionApp) GetSession(_ context.Context, userID uuid.UUID) (*Session, error) {
	return f.sessions[userID], nil
}

func newTestServer(t *testing.T, app SessionApp) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.Handle(NewService(app).Handler())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestService_LoginLogout(t *testing.T) {
	app := newFakeSessionApp()
	srv := newTestServer(t, app)
	login := connect.NewClient[UserMsg, SessionResponse](srv.Client(), srv.URL+LoginProcedure, rpc.ClientOptions()...)
	logout := connect.NewClient[UserMsg, SessionResponse](srv.Client(), srv.URL+LogoutProcedure, rpc.ClientOptions()...)
	get := connect.NewClient[UserMsg, SessionResponse](srv.Client(), srv.URL+GetSessionProcedure, rpc.ClientOptions()...)

	user := uuid.NewString()
	ctx := context.Background()

	res, err := get.CallUnary(ctx, connect.NewRequest(&UserMsg{UserID: user}))
	assert.NoError(t, err)
	check.False(t, res.Msg.Online)
	check.Nil(t, res.Msg.Session)

	res, err = login.CallUnary(ctx, connect.NewRequest(&UserMsg{UserID: user}))
	assert.NoError(t, err)
	check.True(t, res.Msg.Online)
	assert.NotNil(t, res.Msg.Session)
	check.True(t, res.Msg.Session.FirstLogin.Equal(t0))

	res, err = logout.CallUnary(ctx, connect.NewRequest(&UserMsg{UserID: user}))
	assert.NoError(t, err)
	check.False(t, res.Msg.Online)
}

func TestService_LoginErrors(t *testing.T) {
	app := newFakeSessionApp()
	app.loginErr = errors.New("connection reset")
	srv := newTestServer(t, app)
	login := connect.NewClient[UserMsg, SessionResponse](srv.Client(), srv.URL+LoginProcedure, rpc.ClientOptions()...)

	_, err := login.CallUnary(context.Background(), connect.NewRequest(&UserMsg{UserID: "nope"}))
	check.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = login.CallUnary(context.Background(), connect.NewRequest(&UserMsg{UserID: uuid.NewString()}))
	check.Equal(t, connect.CodeInternal, connect.CodeOf(err))
}

func TestSession_Online(t *testing.T) {
	end := t0
	check.True(t, Session{}.Online())
	check.False(t, Session{End: &end}.Online())
}
