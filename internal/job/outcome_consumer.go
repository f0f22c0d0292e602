package job

import (
	"context"
	"encoding/json"
	"errors"

	"carbid/internal/config"
	"carbid/internal/model"
	"carbid/internal/repository"
	"carbid/internal/service"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

// OutcomeConsumer reads auction result events published by the crawling
// pipeline and feeds them into the outcome receiver. The crawler republishes
// results whenever it rescans an auction, so duplicates and stale messages are
// normal input here, handled by SubmitOutcome's never-regress rule.
type OutcomeConsumer struct {
	group      sarama.ConsumerGroup
	topic      string
	outcomeSvc *service.OutcomeService
}

func NewOutcomeConsumer(group sarama.ConsumerGroup, cfg *config.KafkaConfig, outcomeSvc *service.OutcomeService) *OutcomeConsumer {
	return &OutcomeConsumer{
		group:      group,
		topic:      cfg.Topic.AuctionOutcome,
		outcomeSvc: outcomeSvc,
	}
}

func (c *OutcomeConsumer) Start(ctx context.Context) {
	log.WithField("topic", c.topic).Info("[OutcomeConsumer] started")

	for {
		if err := c.group.Consume(ctx, []string{c.topic}, c); err != nil {
			log.WithError(err).Error("[OutcomeConsumer] consume")
		}
		if ctx.Err() != nil {
			log.Info("[OutcomeConsumer] stopped")
			return
		}
	}
}

func (c *OutcomeConsumer) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (c *OutcomeConsumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// outcomeEvent is the crawler's wire format.
type outcomeEvent struct {
	AuctionNo string `json:"auction_no"`
	SaleDate  string `json:"sale_date"` // YYYY-MM-DD
	Outcome   string `json:"outcome"`   // raw label, e.g. 매각 / 유찰 / 취소
	SalePrice *int64 `json:"sale_price"`
}

func (c *OutcomeConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		c.handleMessage(session.Context(), msg)
		session.MarkMessage(msg, "")
	}
	return nil
}

// handleMessage processes one event. Bad messages are logged and skipped;
// a malformed event must never wedge the partition.
func (c *OutcomeConsumer) handleMessage(ctx context.Context, msg *sarama.ConsumerMessage) {
	var event outcomeEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.WithError(err).WithField("offset", msg.Offset).Warn("[OutcomeConsumer] malformed event, skipping")
		return
	}

	saleDate, err := model.ParseSaleDate(event.SaleDate)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"auction_no": event.AuctionNo,
			"sale_date":  event.SaleDate,
		}).Warn("[OutcomeConsumer] unparseable sale date, skipping")
		return
	}

	_, err = c.outcomeSvc.SubmitOutcome(ctx, event.AuctionNo, saleDate, event.Outcome, event.SalePrice)
	if err != nil {
		if errors.Is(err, repository.ErrAuctionNotFound) {
			// the catalog row may simply not be crawled yet; the crawler
			// will republish on its next pass
			log.WithField("auction_no", event.AuctionNo).Warn("[OutcomeConsumer] outcome for unknown auction, skipping")
			return
		}
		log.WithError(err).WithField("auction_no", event.AuctionNo).Error("[OutcomeConsumer] submit outcome")
	}
}
