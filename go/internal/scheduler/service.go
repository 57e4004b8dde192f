package scheduler

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"github.com/mcdev12/fantabid/go/internal/rpc"
)

// ServiceName is the connect service path prefix
const ServiceName = "fantabid.scheduler.v1.SchedulerService"

const RunExpirySweepProcedure = "/" + ServiceName + "/RunExpirySweep"

// Sweeper runs one synchronous sweep
type Sweeper interface {
	RunOnce(ctx context.Context) SweepReport
}

// Service exposes a manual sweep trigger over connect
type Service struct {
	sweeper Sweeper
}

// NewService creates a new scheduler connect service
func NewService(sweeper Sweeper) *Service {
	return &Service{sweeper: sweeper}
}

// Handler returns the service path and its routes.
func (s *Service) Handler() (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(RunExpirySweepProcedure, connect.NewUnaryHandler(RunExpirySweepProcedure, s.RunExpirySweep, rpc.HandlerOptions()...))
	return "/" + ServiceName + "/", mux
}

type RunExpirySweepMsg struct{}

// RunExpirySweep resolves everything currently due and reports the outcome
func (s *Service) RunExpirySweep(ctx context.Context, _ *connect.Request[RunExpirySweepMsg]) (*connect.Response[SweepReport], error) {
	report := s.sweeper.RunOnce(ctx)
	return connect.NewResponse(&report), nil
}
