package auction

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/mcdev12/fantabid/go/internal/models"
	"github.com/mcdev12/fantabid/go/internal/rpc"
)

// ServiceName is the connect service path prefix
const ServiceName = "fantabid.auction.v1.AuctionService"

const (
	StartAuctionProcedure                = "/" + ServiceName + "/StartAuction"
	PlaceBidProcedure                    = "/" + ServiceName + "/PlaceBid"
	AbandonAuctionProcedure              = "/" + ServiceName + "/AbandonAuction"
	GetAuctionStatusProcedure            = "/" + ServiceName + "/GetAuctionStatus"
	GetParticipantAuctionStatesProcedure = "/" + ServiceName + "/GetParticipantAuctionStates"
	GetCurrentAuctionProcedure           = "/" + ServiceName + "/GetCurrentAuction"
)

// AuctionApp defines what the service layer needs from the auction application
type AuctionApp interface {
	StartAuction(ctx context.Context, req StartAuctionRequest) (*BidResult, error)
	PlaceBid(ctx context.Context, req PlaceBidRequest) (*BidResult, error)
	GetAuctionStatus(ctx context.Context, leagueID, playerID uuid.UUID) (*StatusView, error)
	GetParticipantAuctionStates(ctx context.Context, userID, leagueID uuid.UUID) ([]ParticipantAuctionState, error)
	CurrentAuction(ctx context.Context, leagueID uuid.UUID) (*models.Auction, error)
}

// Abandoner folds a participant out of an auction they were outbid on
type Abandoner interface {
	Abandon(ctx context.Context, leagueID, playerID, userID uuid.UUID) error
}

// Service exposes the auction operations over connect
type Service struct {
	app       AuctionApp
	abandoner Abandoner
	limiter   *BidLimiter
}

// NewService creates a new auction connect service. A nil limiter lets
// every bid through.
func NewService(app AuctionApp, abandoner Abandoner, limiter *BidLimiter) *Service {
	return &Service{
		app:       app,
		abandoner: abandoner,
		limiter:   limiter,
	}
}

// allowBid applies the per-type bid cap for userID.
func (s *Service) allowBid(userID uuid.UUID, bidType models.BidType) error {
	if s.limiter == nil {
		return nil
	}
	if bidType == "" {
		bidType = models.BidTypeManual
	}
	ok, wait := s.limiter.Allow(userID, bidType)
	if ok {
		return nil
	}
	secs := int(math.Ceil(wait.Seconds()))
	err := connect.NewError(connect.CodeResourceExhausted,
		fmt.Errorf("too many %s bids, retry in %d seconds", bidType, secs))
	err.Meta().Set("Retry-After", strconv.Itoa(secs))
	return err
}

// Handler returns the service path and its routes.
func (s *Service) Handler() (string, http.Handler) {
	opts := rpc.HandlerOptions()
	mux := http.NewServeMux()
	mux.Handle(StartAuctionProcedure, connect.NewUnaryHandler(StartAuctionProcedure, s.StartAuction, opts...))
	mux.Handle(PlaceBidProcedure, connect.NewUnaryHandler(PlaceBidProcedure, s.PlaceBid, opts...))
	mux.Handle(AbandonAuctionProcedure, connect.NewUnaryHandler(AbandonAuctionProcedure, s.AbandonAuction, opts...))
	mux.Handle(GetAuctionStatusProcedure, connect.NewUnaryHandler(GetAuctionStatusProcedure, s.GetAuctionStatus, opts...))
	mux.Handle(GetParticipantAuctionStatesProcedure, connect.NewUnaryHandler(GetParticipantAuctionStatesProcedure, s.GetParticipantAuctionStates, opts...))
	mux.Handle(GetCurrentAuctionProcedure, connect.NewUnaryHandler(GetCurrentAuctionProcedure, s.GetCurrentAuction, opts...))
	return "/" + ServiceName + "/", mux
}

// Wire messages

type StartAuctionMsg struct {
	LeagueID  string `json:"league_id"`
	PlayerID  string `json:"player_id"`
	UserID    string `json:"user_id"`
	Amount    int    `json:"amount"`
	MaxAmount *int   `json:"max_amount,omitempty"`
}

type PlaceBidMsg struct {
	LeagueID  string `json:"league_id"`
	PlayerID  string `json:"player_id"`
	UserID    string `json:"user_id"`
	Amount    int    `json:"amount"`
	BidType   string `json:"bid_type,omitempty"`
	MaxAmount *int   `json:"max_amount,omitempty"`
}

type BidResponse struct {
	AuctionID        string                `json:"auction_id"`
	PlayerID         string                `json:"player_id"`
	CurrentBid       int                   `json:"current_bid"`
	HighestBidderID  string                `json:"highest_bidder_id"`
	ScheduledEndTime time.Time             `json:"scheduled_end_time"`
	BidType          string                `json:"bid_type"`
	AutoBidActivated bool                  `json:"auto_bid_activated"`
	BudgetUpdates    []models.BudgetUpdate `json:"budget_updates,omitempty"`
	Message          string                `json:"message"`
}

type AbandonAuctionMsg struct {
	LeagueID string `json:"league_id"`
	PlayerID string `json:"player_id"`
	UserID   string `json:"user_id"`
}

type AbandonAuctionResponse struct {
	Success bool `json:"success"`
}

type GetAuctionStatusMsg struct {
	LeagueID string `json:"league_id"`
	PlayerID string `json:"player_id"`
}

type GetParticipantAuctionStatesMsg struct {
	LeagueID string `json:"league_id"`
	UserID   string `json:"user_id"`
}

type ParticipantAuctionStatesResponse struct {
	States []ParticipantAuctionState `json:"states"`
}

type GetCurrentAuctionMsg struct {
	LeagueID string `json:"league_id"`
}

type CurrentAuctionResponse struct {
	Auction *models.Auction `json:"auction,omitempty"`
}

// StartAuction opens an auction with a first bid
func (s *Service) StartAuction(ctx context.Context, req *connect.Request[StartAuctionMsg]) (*connect.Response[BidResponse], error) {
	ids, err := parseIDs("league_id", req.Msg.LeagueID, "player_id", req.Msg.PlayerID, "user_id", req.Msg.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.allowBid(ids[2], models.BidTypeManual); err != nil {
		return nil, err
	}

	result, err := s.app.StartAuction(ctx, StartAuctionRequest{
		LeagueID: ids[0],
		PlayerID: ids[1],
		UserID:   ids[2],
		Amount:   req.Msg.Amount,
		ProxyMax: req.Msg.MaxAmount,
	})
	if err != nil {
		return nil, rpc.Error(err)
	}
	return connect.NewResponse(bidResultToResponse(result, "auction started")), nil
}

// PlaceBid bids on an open auction
func (s *Service) PlaceBid(ctx context.Context, req *connect.Request[PlaceBidMsg]) (*connect.Response[BidResponse], error) {
	ids, err := parseIDs("league_id", req.Msg.LeagueID, "player_id", req.Msg.PlayerID, "user_id", req.Msg.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.allowBid(ids[2], models.BidType(req.Msg.BidType)); err != nil {
		return nil, err
	}

	result, err := s.app.PlaceBid(ctx, PlaceBidRequest{
		LeagueID: ids[0],
		PlayerID: ids[1],
		UserID:   ids[2],
		Amount:   req.Msg.Amount,
		Type:     models.BidType(req.Msg.BidType),
		ProxyMax: req.Msg.MaxAmount,
	})
	if err != nil {
		return nil, rpc.Error(err)
	}

	msg := "bid placed"
	if result.AutoBidActivated {
		msg = "auto-bid battle resolved"
	}
	return connect.NewResponse(bidResultToResponse(result, msg)), nil
}

// AbandonAuction folds the participant out of an auction
func (s *Service) AbandonAuction(ctx context.Context, req *connect.Request[AbandonAuctionMsg]) (*connect.Response[AbandonAuctionResponse], error) {
	ids, err := parseIDs("league_id", req.Msg.LeagueID, "player_id", req.Msg.PlayerID, "user_id", req.Msg.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.abandoner.Abandon(ctx, ids[0], ids[1], ids[2]); err != nil {
		return nil, rpc.Error(err)
	}
	return connect.NewResponse(&AbandonAuctionResponse{Success: true}), nil
}

// GetAuctionStatus returns the open auction on a player
func (s *Service) GetAuctionStatus(ctx context.Context, req *connect.Request[GetAuctionStatusMsg]) (*connect.Response[StatusView], error) {
	ids, err := parseIDs("league_id", req.Msg.LeagueID, "player_id", req.Msg.PlayerID)
	if err != nil {
		return nil, err
	}
	view, err := s.app.GetAuctionStatus(ctx, ids[0], ids[1])
	if err != nil {
		return nil, rpc.Error(err)
	}
	return connect.NewResponse(view), nil
}

// GetParticipantAuctionStates lists a participant's open auctions
func (s *Service) GetParticipantAuctionStates(ctx context.Context, req *connect.Request[GetParticipantAuctionStatesMsg]) (*connect.Response[ParticipantAuctionStatesResponse], error) {
	ids, err := parseIDs("league_id", req.Msg.LeagueID, "user_id", req.Msg.UserID)
	if err != nil {
		return nil, err
	}
	states, err := s.app.GetParticipantAuctionStates(ctx, ids[1], ids[0])
	if err != nil {
		return nil, rpc.Error(err)
	}
	return connect.NewResponse(&ParticipantAuctionStatesResponse{States: states}), nil
}

// GetCurrentAuction returns the league's most recently active auction
func (s *Service) GetCurrentAuction(ctx context.Context, req *connect.Request[GetCurrentAuctionMsg]) (*connect.Response[CurrentAuctionResponse], error) {
	leagueID, err := rpc.ParseID("league_id", req.Msg.LeagueID)
	if err != nil {
		return nil, err
	}
	auc, err := s.app.CurrentAuction(ctx, leagueID)
	if err != nil {
		return nil, rpc.Error(err)
	}
	return connect.NewResponse(&CurrentAuctionResponse{Auction: auc}), nil
}

// Conversion helpers

// parseIDs parses alternating field name / value pairs.
func parseIDs(pairs ...string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		id, err := rpc.ParseID(pairs[i], pairs[i+1])
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func bidResultToResponse(r *BidResult, msg string) *BidResponse {
	return &BidResponse{
		AuctionID:        r.Auction.ID.String(),
		PlayerID:         r.Auction.PlayerID.String(),
		CurrentBid:       r.FinalAmount,
		HighestBidderID:  r.FinalBidderID.String(),
		ScheduledEndTime: r.Auction.ScheduledEndTime,
		BidType:          string(r.BidType),
		AutoBidActivated: r.AutoBidActivated,
		BudgetUpdates:    r.BudgetUpdates,
		Message:          msg,
	}
}
