package job

import (
	"context"
	"time"

	"carbid/internal/config"
	"carbid/internal/infrastructure/mq"
	"carbid/internal/model"
	"carbid/internal/repository"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// OutboxSender ships staged settlement-result events to kafka. Events are
// written in the same transaction as the settlement batch, so this job is the
// only place a publish can fail without losing consistency: the row just stays
// PENDING and is retried.
type OutboxSender struct {
	db         *gorm.DB
	outboxRepo *repository.OutboxRepository
	cfg        *config.Config
	interval   time.Duration
	batchSize  int
}

func NewOutboxSender(db *gorm.DB, cfg *config.Config) *OutboxSender {
	return &OutboxSender{
		db:         db,
		outboxRepo: repository.NewOutboxRepository(db),
		cfg:        cfg,
		interval:   500 * time.Millisecond,
		batchSize:  100,
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	log.Info("[OutboxSender] started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("[OutboxSender] stopped")
			return
		case <-ticker.C:
			s.processPendingMessages(ctx)
		}
	}
}

func (s *OutboxSender) processPendingMessages(ctx context.Context) {
	messages, err := s.outboxRepo.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		log.WithError(err).Error("[OutboxSender] query pending messages")
		return
	}

	for _, msg := range messages {
		s.sendMessage(ctx, msg)
	}
}

func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) {
	err := mq.SendMessage(msg.Topic, msg.MessageKey, msg.Payload)
	if err == nil {
		if updateErr := s.outboxRepo.UpdateStatus(ctx, msg.ID, model.OutboxStatusSent); updateErr != nil {
			log.WithError(updateErr).WithField("id", msg.ID).Error("[OutboxSender] mark sent")
		}
		return
	}

	log.WithError(err).WithFields(log.Fields{
		"id":    msg.ID,
		"topic": msg.Topic,
		"key":   msg.MessageKey,
	}).Error("[OutboxSender] send failed")

	if msg.RetryCount+1 >= s.cfg.Business.MaxRetryCount {
		if err := s.outboxRepo.MarkAsFailed(ctx, msg.ID); err != nil {
			log.WithError(err).WithField("id", msg.ID).Error("[OutboxSender] mark failed")
		}
		return
	}
	if err := s.outboxRepo.IncrementRetryCount(ctx, msg.ID); err != nil {
		log.WithError(err).WithField("id", msg.ID).Error("[OutboxSender] bump retry count")
	}
}
