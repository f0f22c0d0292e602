package handler

import (
	"errors"
	"strconv"

	"carbid/internal/config"
	"carbid/internal/infrastructure/lock"
	"carbid/internal/model"
	"carbid/internal/repository"
	"carbid/internal/service"
	"carbid/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handler bundles all service dependencies behind the HTTP surface.
type Handler struct {
	accountService *service.AccountService
	bidService     *service.BidService
	outcomeService *service.OutcomeService
	auctionRepo    *repository.AuctionRepository
}

func NewHandler(db *gorm.DB, locker lock.Locker, cfg *config.Config) *Handler {
	settlementSvc := service.NewSettlementService(db, locker, cfg.Business, cfg.Kafka.Topic.SettlementResult)
	return &Handler{
		accountService: service.NewAccountService(db),
		bidService:     service.NewBidService(db, locker, cfg.Business),
		outcomeService: service.NewOutcomeService(db, settlementSvc),
		auctionRepo:    repository.NewAuctionRepository(db),
	}
}

// ============================================================
// Mock bid endpoints
// ============================================================

// SubmitBidRequest is the mock-bid submission payload.
type SubmitBidRequest struct {
	UserID    int64  `json:"user_id" binding:"required"`
	AuctionNo string `json:"auction_no" binding:"required"`
	SaleDate  string `json:"sale_date" binding:"required"` // YYYY-MM-DD
	BidAmount int64  `json:"bid_amount" binding:"required,gt=0"`
}

// SubmitBid creates or updates a user's prediction.
// POST /api/v1/mockbid/submit
func (h *Handler) SubmitBid(c *gin.Context) {
	var req SubmitBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	saleDate, err := model.ParseSaleDate(req.SaleDate)
	if err != nil {
		response.ParamError(c, "sale_date must be YYYY-MM-DD")
		return
	}

	bid, err := h.bidService.SubmitBid(c.Request.Context(), req.UserID, req.AuctionNo, saleDate, req.BidAmount)
	if err != nil {
		h.writeBidError(c, err)
		return
	}

	response.Success(c, bid)
}

// writeBidError maps bid submission failures to user-actionable responses.
// These are expected outcomes of the game rules, not server faults.
func (h *Handler) writeBidError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrAuctionNotFound):
		response.BusinessError(c, response.CodeAuctionNotFound, "auction not found")
	case errors.Is(err, service.ErrSaleDateMismatch):
		response.ParamError(c, "sale date does not match the auction schedule, reload the auction")
	case errors.Is(err, service.ErrBiddingClosed):
		response.BusinessError(c, response.CodeBiddingClosed, "bidding for this auction is closed")
	case errors.Is(err, service.ErrBelowMinimum):
		response.BusinessError(c, response.CodeBelowMinimum, "bid amount is below the minimum bid price")
	case errors.Is(err, repository.ErrNotEnoughPoints):
		response.BusinessError(c, response.CodeNotEnoughPoints, "not enough points for the entry fee")
	case errors.Is(err, service.ErrBidSettled):
		response.BusinessError(c, response.CodeBidSettled, "this bid has already been settled")
	default:
		response.ServerError(c, "failed to submit bid")
	}
}

// ListUserBids returns a user's bid history, newest first.
// GET /api/v1/mockbid/list?user_id=xxx
func (h *Handler) ListUserBids(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid user_id")
		return
	}

	bids, err := h.bidService.ListUserBids(c.Request.Context(), userID)
	if err != nil {
		response.ServerError(c, "failed to list bids")
		return
	}

	response.Success(c, gin.H{"list": bids, "total": len(bids)})
}

// ListAuctionBids returns all bids on one auction instance, highest first.
// GET /api/v1/mockbid/auction?auction_no=xxx&sale_date=YYYY-MM-DD
func (h *Handler) ListAuctionBids(c *gin.Context) {
	auctionNo := c.Query("auction_no")
	if auctionNo == "" {
		response.ParamError(c, "auction_no is required")
		return
	}
	saleDate, err := model.ParseSaleDate(c.Query("sale_date"))
	if err != nil {
		response.ParamError(c, "sale_date must be YYYY-MM-DD")
		return
	}

	bids, err := h.bidService.ListAuctionBids(c.Request.Context(), auctionNo, saleDate)
	if err != nil {
		if errors.Is(err, repository.ErrAuctionNotFound) {
			response.BusinessError(c, response.CodeAuctionNotFound, "auction not found")
			return
		}
		response.ServerError(c, "failed to list bids")
		return
	}

	response.Success(c, gin.H{"list": bids, "total": len(bids)})
}

// ============================================================
// Auction endpoints
// ============================================================

// SubmitOutcomeRequest is the crawler's outcome notification payload.
type SubmitOutcomeRequest struct {
	AuctionNo string `json:"auction_no" binding:"required"`
	SaleDate  string `json:"sale_date" binding:"required"` // YYYY-MM-DD
	Outcome   string `json:"outcome"`                      // raw label; empty/unknown settles as pass-through
	SalePrice *int64 `json:"sale_price"`
}

// SubmitOutcome records an auction result and triggers async settlement.
// POST /api/v1/auction/outcome
//
// Settlement failures are not surfaced here: the caller's write already
// succeeded and the batch is retried internally.
func (h *Handler) SubmitOutcome(c *gin.Context) {
	var req SubmitOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	saleDate, err := model.ParseSaleDate(req.SaleDate)
	if err != nil {
		response.ParamError(c, "sale_date must be YYYY-MM-DD")
		return
	}

	outcome, err := h.outcomeService.SubmitOutcome(c.Request.Context(), req.AuctionNo, saleDate, req.Outcome, req.SalePrice)
	if err != nil {
		if errors.Is(err, repository.ErrAuctionNotFound) {
			response.BusinessError(c, response.CodeAuctionNotFound, "auction not found")
			return
		}
		response.ServerError(c, "failed to submit outcome")
		return
	}

	response.Success(c, outcome)
}

// GetAuction returns one catalog entry with its stored outcome, if any.
// GET /api/v1/auction/detail?auction_no=xxx
func (h *Handler) GetAuction(c *gin.Context) {
	auctionNo := c.Query("auction_no")
	if auctionNo == "" {
		response.ParamError(c, "auction_no is required")
		return
	}

	auction, err := h.auctionRepo.GetByAuctionNo(c.Request.Context(), auctionNo)
	if err != nil {
		if errors.Is(err, repository.ErrAuctionNotFound) {
			response.BusinessError(c, response.CodeAuctionNotFound, "auction not found")
			return
		}
		response.ServerError(c, "failed to load auction")
		return
	}

	outcome, err := h.outcomeService.GetOutcome(c.Request.Context(), auctionNo)
	if err != nil {
		response.ServerError(c, "failed to load auction outcome")
		return
	}

	response.Success(c, gin.H{"auction": auction, "outcome": outcome})
}

// ============================================================
// Account endpoints
// ============================================================

// GetBalance returns a user's point and experience balances.
// GET /api/v1/account/balance?user_id=xxx
func (h *Handler) GetBalance(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid user_id")
		return
	}

	account, err := h.accountService.GetAccount(c.Request.Context(), userID)
	if err != nil {
		response.ServerError(c, "failed to load account")
		return
	}

	response.Success(c, gin.H{
		"user_id":    account.UserID,
		"points":     account.Points,
		"experience": account.Experience,
	})
}

// RechargeRequest tops up a user's points (ops tooling / purchase flow).
type RechargeRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// Recharge credits points to an account.
// POST /api/v1/account/recharge
func (h *Handler) Recharge(c *gin.Context) {
	var req RechargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	if err := h.accountService.Recharge(c.Request.Context(), req.UserID, req.Amount); err != nil {
		response.ServerError(c, "failed to recharge")
		return
	}

	response.Success(c, gin.H{"message": "recharged"})
}

// ListChanges returns a user's balance ledger, newest first.
// GET /api/v1/account/changes?user_id=xxx&page=1&page_size=10
func (h *Handler) ListChanges(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid user_id")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	changes, total, err := h.accountService.ListChanges(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		response.ServerError(c, "failed to list balance changes")
		return
	}

	response.Success(c, gin.H{
		"list":      changes,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
