package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"carbid/internal/config"
	"carbid/internal/infrastructure/lock"
	"carbid/internal/model"
	"carbid/internal/repository"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SettlementService finalizes mock bids once an auction's real-world result is
// known. Three policies, dispatched on the normalized outcome category:
//
//   - SOLD with a sale price: competitive ranking and reward split.
//   - CANCELLED / SUSPENDED: entry-fee refund plus a flat consolation xp.
//   - everything else (UNSOLD, UNKNOWN, SOLD without a price): pass-through,
//     bids are closed out with no rank and no reward.
//
// Every balance-affecting batch runs in one all-or-nothing transaction; a
// failed batch leaves all of its bids unprocessed and is safe to replay.
type SettlementService struct {
	db          *gorm.DB
	locker      lock.Locker
	business    config.BusinessConfig
	resultTopic string

	bidRepo     *repository.MockBidRepository
	outcomeRepo *repository.OutcomeRepository
	outboxRepo  *repository.OutboxRepository
	accountSvc  *AccountService

	bandRate decimal.Decimal // eligible bids may overshoot the sale price up to this multiplier
	poolRate decimal.Decimal // share of each loser's entry fee paid into the winner pool
}

func NewSettlementService(db *gorm.DB, locker lock.Locker, business config.BusinessConfig, resultTopic string) *SettlementService {
	return &SettlementService{
		db:          db,
		locker:      locker,
		business:    business,
		resultTopic: resultTopic,
		bidRepo:     repository.NewMockBidRepository(db),
		outcomeRepo: repository.NewOutcomeRepository(db),
		outboxRepo:  repository.NewOutboxRepository(db),
		accountSvc:  NewAccountService(db),
		bandRate:    parseRate(business.EligibleBandRate, "1.10"),
		poolRate:    parseRate(business.LoserPoolRate, "0.8"),
	}
}

func parseRate(s, fallback string) decimal.Decimal {
	if s == "" {
		s = fallback
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		log.WithField("rate", s).Warn("invalid rate in config, using default")
		d = decimal.RequireFromString(fallback)
	}
	return d
}

// Settle runs the settlement batch for one stored outcome. The per-auction
// lock serializes overlapping submissions for the same auction so two batches
// cannot both read a bid as unprocessed.
func (s *SettlementService) Settle(ctx context.Context, outcome *model.AuctionOutcome) error {
	release, err := s.locker.Acquire(ctx, lock.SettlementKey(outcome.AuctionNo))
	if err != nil {
		return fmt.Errorf("acquire settlement lock: %w", err)
	}
	defer release()

	switch outcome.Outcome {
	case model.OutcomeSold:
		if outcome.SalePrice == nil {
			// sold but the price was not reported: degrade to pass-through
			// instead of blocking the batch
			log.WithField("auction_no", outcome.AuctionNo).Warn("sold outcome without sale price, settling as pass-through")
			return s.settlePassThrough(ctx, outcome)
		}
		return s.settleSold(ctx, outcome)
	case model.OutcomeCancelled, model.OutcomeSuspended:
		return s.settleCancelled(ctx, outcome)
	default:
		return s.settlePassThrough(ctx, outcome)
	}
}

// SettleAndRecord runs Settle and tracks the result on the outcome row so the
// retry job can find batches that still need work.
func (s *SettlementService) SettleAndRecord(ctx context.Context, outcome *model.AuctionOutcome) error {
	err := s.Settle(ctx, outcome)
	if err != nil {
		log.WithFields(log.Fields{
			"auction_no": outcome.AuctionNo,
			"sale_date":  outcome.SaleDate.Format("2006-01-02"),
			"outcome":    outcome.Outcome,
		}).WithError(err).Error("settlement failed")
		if e := s.outcomeRepo.UpdateSettleStatus(ctx, outcome.ID, model.SettleFailed); e != nil {
			log.WithError(e).Error("mark outcome failed")
		}
		if e := s.outcomeRepo.IncrementRetryCount(ctx, outcome.ID); e != nil {
			log.WithError(e).Error("increment outcome retry count")
		}
		return err
	}
	return s.outcomeRepo.UpdateSettleStatus(ctx, outcome.ID, model.SettleDone)
}

// rankedBid pairs a bid with its dense competition rank.
type rankedBid struct {
	bid  *model.MockBid
	rank int
}

// settleSold applies the ranking and reward policy.
//
// Scope note: the batch covers every unprocessed bid for the auction across
// all sale dates, while the cancel and pass-through policies scope to one
// date. The asymmetry is intentional: an auction may be unsold and rescheduled
// several times, and only the sale that finally completes is ranked, over the
// full accumulated field of predictions.
func (s *SettlementService) settleSold(ctx context.Context, outcome *model.AuctionOutcome) error {
	bids, err := s.bidRepo.GetUnprocessedByAuction(ctx, nil, outcome.AuctionNo)
	if err != nil {
		return fmt.Errorf("load unprocessed bids: %w", err)
	}
	if len(bids) == 0 {
		return nil
	}

	salePrice := *outcome.SalePrice
	totalParticipants := countDistinctUsers(bids)

	// eligible: salePrice <= amount <= salePrice * bandRate
	upper := decimal.NewFromInt(salePrice).Mul(s.bandRate)
	var eligible []*model.MockBid
	for _, b := range bids {
		if b.BidAmount >= salePrice && decimal.NewFromInt(b.BidAmount).LessThanOrEqual(upper) {
			eligible = append(eligible, b)
		}
	}

	if len(eligible) == 0 {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			for _, b := range bids {
				if err := s.bidRepo.MarkSettled(ctx, tx, b.ID, model.RankIneligible, 0); err != nil {
					return err
				}
			}
			return s.enqueueResult(ctx, tx, outcome, map[string]interface{}{
				"participants": totalParticipants,
				"winners":      0,
				"processed":    len(bids),
			})
		})
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"auction_no":   outcome.AuctionNo,
			"sale_price":   salePrice,
			"participants": totalParticipants,
		}).Info("sold settlement finished with no eligible bids")
		return nil
	}

	ranked := rankEligible(eligible)

	var winners []rankedBid
	for _, rb := range ranked {
		if rb.rank == model.RankWinner {
			winners = append(winners, rb)
		}
	}
	numberOfWinners := int64(len(winners))

	// xpPerWinner = round(participants / winners)
	xpPerWinner := decimal.NewFromInt(int64(totalParticipants)).
		DivRound(decimal.NewFromInt(numberOfWinners), 0).
		IntPart()

	// pointsPool = cost*winners + (participants-winners)*cost*poolRate:
	// winners get their own fee back plus a share of the losers' fees, with
	// the platform keeping the remainder.
	cost := decimal.NewFromInt(s.business.MockBidCost)
	winnersDec := decimal.NewFromInt(numberOfWinners)
	nonWinners := decimal.NewFromInt(int64(totalParticipants) - numberOfWinners)
	pointsPool := cost.Mul(winnersDec).Add(nonWinners.Mul(cost).Mul(s.poolRate))
	pointsPerWinner := pointsPool.Div(winnersDec).Floor().IntPart()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		rankByID := make(map[int64]int, len(ranked))
		for _, rb := range ranked {
			rankByID[rb.bid.ID] = rb.rank
		}

		for _, b := range bids {
			rank, isEligible := rankByID[b.ID]
			switch {
			case isEligible && rank == model.RankWinner:
				if err := s.bidRepo.MarkSettled(ctx, tx, b.ID, rank, xpPerWinner); err != nil {
					return err
				}
				points := int64(0)
				if pointsPerWinner > 0 {
					points = pointsPerWinner
				}
				_, err := s.accountSvc.AdjustBalance(ctx, tx, b.UserID,
					points, xpPerWinner,
					model.ChangeTypeWinReward,
					fmt.Sprintf("mock bid win reward (%s)", outcome.AuctionNo),
					&b.ID)
				if err != nil {
					return fmt.Errorf("pay winner user=%d: %w", b.UserID, err)
				}
			case isEligible:
				if err := s.bidRepo.MarkSettled(ctx, tx, b.ID, rank, 0); err != nil {
					return err
				}
			default:
				if err := s.bidRepo.MarkSettled(ctx, tx, b.ID, model.RankIneligible, 0); err != nil {
					return err
				}
			}
		}
		return s.enqueueResult(ctx, tx, outcome, map[string]interface{}{
			"participants":      totalParticipants,
			"eligible":          len(eligible),
			"winners":           numberOfWinners,
			"xp_per_winner":     xpPerWinner,
			"points_per_winner": pointsPerWinner,
			"processed":         len(bids),
		})
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"auction_no":        outcome.AuctionNo,
		"sale_price":        salePrice,
		"participants":      totalParticipants,
		"eligible":          len(eligible),
		"winners":           numberOfWinners,
		"xp_per_winner":     xpPerWinner,
		"points_per_winner": pointsPerWinner,
	}).Info("sold settlement finished")

	return nil
}

// settleCancelled refunds the entry fee and grants flat consolation xp to
// every unprocessed bid on the cancelled or suspended instance.
func (s *SettlementService) settleCancelled(ctx context.Context, outcome *model.AuctionOutcome) error {
	bids, err := s.bidRepo.GetUnprocessedByAuctionAndDate(ctx, nil, outcome.AuctionNo, outcome.SaleDate)
	if err != nil {
		return fmt.Errorf("load unprocessed bids: %w", err)
	}
	if len(bids) == 0 {
		return nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, b := range bids {
			if err := s.bidRepo.MarkSettled(ctx, tx, b.ID, model.RankIneligible, s.business.CancelRewardXP); err != nil {
				return err
			}
			_, err := s.accountSvc.AdjustBalance(ctx, tx, b.UserID,
				s.business.CancelRefundPoints, s.business.CancelRewardXP,
				model.ChangeTypeCancelRefund,
				fmt.Sprintf("mock bid refund, auction %s (%s)", outcome.AuctionNo, outcome.Outcome),
				&b.ID)
			if err != nil {
				return fmt.Errorf("refund user=%d: %w", b.UserID, err)
			}
		}
		return s.enqueueResult(ctx, tx, outcome, map[string]interface{}{
			"processed": len(bids),
			"refunded":  len(bids),
		})
	})
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"auction_no": outcome.AuctionNo,
		"sale_date":  outcome.SaleDate.Format("2006-01-02"),
		"outcome":    outcome.Outcome,
		"refunded":   len(bids),
	}).Info("cancel settlement finished")

	return nil
}

// settlePassThrough closes out bids with no rank and no reward. A single
// guarded UPDATE is enough: it only sets terminal flags, so replaying it is
// harmless.
func (s *SettlementService) settlePassThrough(ctx context.Context, outcome *model.AuctionOutcome) error {
	affected, err := s.bidRepo.SettleAllNoReward(ctx, outcome.AuctionNo, outcome.SaleDate)
	if err != nil {
		return fmt.Errorf("pass-through settle: %w", err)
	}
	if affected == 0 {
		return nil
	}

	log.WithFields(log.Fields{
		"auction_no": outcome.AuctionNo,
		"sale_date":  outcome.SaleDate.Format("2006-01-02"),
		"outcome":    outcome.Outcome,
		"processed":  affected,
	}).Info("pass-through settlement finished")

	// best effort: the pass-through update already committed and losing the
	// event only affects downstream consumers
	if err := s.enqueueResult(ctx, nil, outcome, map[string]interface{}{"processed": affected}); err != nil {
		log.WithError(err).WithField("auction_no", outcome.AuctionNo).Error("stage settlement result event")
	}
	return nil
}

// enqueueResult stages a settlement-completed event for the outbox sender in
// the caller's transaction, so the event exists if and only if the batch
// committed.
func (s *SettlementService) enqueueResult(ctx context.Context, tx *gorm.DB, outcome *model.AuctionOutcome, summary map[string]interface{}) error {
	payload := map[string]interface{}{
		"auction_no": outcome.AuctionNo,
		"sale_date":  outcome.SaleDate.Format("2006-01-02"),
		"outcome":    outcome.Outcome,
	}
	if outcome.SalePrice != nil {
		payload["sale_price"] = *outcome.SalePrice
	}
	for k, v := range summary {
		payload[k] = v
	}
	payloadBytes, _ := json.Marshal(payload)

	msg := &model.OutboxMessage{
		MessageKey: outcome.AuctionNo,
		Topic:      s.resultTopic,
		Payload:    string(payloadBytes),
		Status:     model.OutboxStatusPending,
	}
	return s.outboxRepo.Create(ctx, tx, msg)
}

// rankEligible sorts ascending by amount and assigns dense competition ranks:
// ties share the rank of their first occurrence, the next distinct amount gets
// index+1. Amounts [100,100,200] rank as [1,1,3].
func rankEligible(eligible []*model.MockBid) []rankedBid {
	sorted := make([]*model.MockBid, len(eligible))
	copy(sorted, eligible)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].BidAmount < sorted[j].BidAmount
	})

	ranked := make([]rankedBid, len(sorted))
	for i, b := range sorted {
		rank := i + 1
		if i > 0 && b.BidAmount == sorted[i-1].BidAmount {
			rank = ranked[i-1].rank
		}
		ranked[i] = rankedBid{bid: b, rank: rank}
	}
	return ranked
}

func countDistinctUsers(bids []*model.MockBid) int {
	seen := make(map[int64]struct{}, len(bids))
	for _, b := range bids {
		seen[b.UserID] = struct{}{}
	}
	return len(seen)
}
