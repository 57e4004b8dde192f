package session

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/fantabid/go/internal/rpc"
)

// ServiceName is the connect service path prefix
const ServiceName = "fantabid.session.v1.SessionService"

const (
	LoginProcedure      = "/" + ServiceName + "/Login"
	LogoutProcedure     = "/" + ServiceName + "/Logout"
	GetSessionProcedure = "/" + ServiceName + "/GetSession"
)

// SessionApp defines what the service layer needs from the session application
type SessionApp interface {
	RecordLogin(ctx context.Context, userID uuid.UUID) error
	RecordLogout(ctx context.Context, userID uuid.UUID) error
	GetSession(ctx context.Context, userID uuid.UUID) (*Session, error)
}

// Service exposes login and logout over connect
type Service struct {
	app SessionApp
}

// NewService creates a new session connect service
func NewService(app SessionApp) *Service {
	return &Service{app: app}
}

// Handler returns the service path and its routes.
func (s *Service) Handler() (string, http.Handler) {
	opts := rpc.HandlerOptions()
	mux := http.NewServeMux()
	mux.Handle(LoginProcedure, connect.NewUnaryHandler(LoginProcedure, s.Login, opts...))
	mux.Handle(LogoutProcedure, connect.NewUnaryHandler(LogoutProcedure, s.Logout, opts...))
	mux.Handle(GetSessionProcedure, connect.NewUnaryHandler(GetSessionProcedure, s.GetSession, opts...))
	return "/" + ServiceName + "/", mux
}

type UserMsg struct {
	UserID string `json:"user_id"`
}

type SessionResponse struct {
	Online  bool     `json:"online"`
	Session *Session `json:"session,omitempty"`
}

// Login records a login and starts the user's dormant response timers
func (s *Service) Login(ctx context.Context, req *connect.Request[UserMsg]) (*connect.Response[SessionResponse], error) {
	userID, err := rpc.ParseID("user_id", req.Msg.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.app.RecordLogin(ctx, userID); err != nil {
		return nil, rpc.Error(err)
	}
	return s.respond(ctx, userID)
}

// Logout closes the user's session
func (s *Service) Logout(ctx context.Context, req *connect.Request[UserMsg]) (*connect.Response[SessionResponse], error) {
	userID, err := rpc.ParseID("user_id", req.Msg.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.app.RecordLogout(ctx, userID); err != nil {
		return nil, rpc.Error(err)
	}
	return s.respond(ctx, userID)
}

// GetSession returns the user's presence record
func (s *Service) GetSession(ctx context.Context, req *connect.Request[UserMsg]) (*connect.Response[SessionResponse], error) {
	userID, err := rpc.ParseID("user_id", req.Msg.UserID)
	if err != nil {
		return nil, err
	}
	return s.respond(ctx, userID)
}

func (s *Service) respond(ctx context.Context, userID uuid.UUID) (*connect.Response[SessionResponse], error) {
	sess, err := s.app.GetSession(ctx, userID)
	if err != nil {
		return nil, rpc.Error(err)
	}
	return connect.NewResponse(&SessionResponse{
		Online:  sess != nil && sess.Online(),
		Session: sess,
	}), nil
}
