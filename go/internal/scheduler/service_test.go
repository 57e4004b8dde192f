package scheduler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/mcdev12/fantabid/go/internal/rpc"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

type stubSweeper struct {
	calls  int
	report SweepReport
}

func (s *stubSweeper) RunOnce(context.Context) SweepReport {
	s.calls++
	return s.report
}

func TestService_RunExpirySweep(t *testing.T) {
	sweeper := &stubSweeper{report: SweepReport{AuctionsSold: 2, TimersExpired: 1, Errors: []string{"auction x: boom"}}}
	mux := http.NewServeMux()
	mux.Handle(NewService(sweeper).Handler())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := connect.NewClient[RunExpirySweepMsg, SweepReport](srv.Client(), srv.URL+RunExpirySweepProcedure, rpc.ClientOptions()...)
	res, err := client.CallUnary(context.Background(), connect.NewRequest(&RunExpirySweepMsg{}))
	assert.NoError(t, err)

	check.Equal(t, 1, sweeper.calls)
	check.Equal(t, 2, res.Msg.AuctionsSold)
	check.Equal(t, 1, res.Msg.TimersExpired)
	check.Equal(t, []string{"auction x: boom"}, res.Msg.Errors)
}
