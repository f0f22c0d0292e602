package job

import (
	"context"
	"time"

	"carbid/internal/config"
	"carbid/internal/repository"
	"carbid/internal/service"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SettlementRetryJob re-runs settlement for outcomes stuck in PENDING or
// FAILED. A batch can get stuck when the process died between storing the
// outcome and settling it, or when the settlement transaction rolled back;
// either way the bids are untouched and the batch replays cleanly.
type SettlementRetryJob struct {
	db            *gorm.DB
	outcomeRepo   *repository.OutcomeRepository
	settlementSvc *service.SettlementService
	cfg           *config.Config
	interval      time.Duration
	grace         time.Duration
	batchSize     int
}

func NewSettlementRetryJob(db *gorm.DB, settlementSvc *service.SettlementService, cfg *config.Config) *SettlementRetryJob {
	interval := time.Duration(cfg.Business.SettleRetrySeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	grace := time.Duration(cfg.Business.SettleRetryGraceSecs) * time.Second
	if grace <= 0 {
		grace = time.Minute
	}
	return &SettlementRetryJob{
		db:            db,
		outcomeRepo:   repository.NewOutcomeRepository(db),
		settlementSvc: settlementSvc,
		cfg:           cfg,
		interval:      interval,
		grace:         grace,
		batchSize:     50,
	}
}

func (j *SettlementRetryJob) Start(ctx context.Context) {
	log.Info("[SettlementRetry] started")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("[SettlementRetry] stopped")
			return
		case <-ticker.C:
			j.ProcessUnsettled(ctx)
		}
	}
}

// ProcessUnsettled settles every outcome past the grace period. Exported so a
// one-shot run can be triggered from tooling.
func (j *SettlementRetryJob) ProcessUnsettled(ctx context.Context) {
	before := time.Now().Add(-j.grace)
	outcomes, err := j.outcomeRepo.GetUnsettled(ctx, before, j.cfg.Business.MaxRetryCount, j.batchSize)
	if err != nil {
		log.WithError(err).Error("[SettlementRetry] query unsettled outcomes")
		return
	}
	if len(outcomes) == 0 {
		return
	}

	log.WithField("count", len(outcomes)).Info("[SettlementRetry] retrying stuck settlements")

	for _, outcome := range outcomes {
		// errors already logged and recorded on the row; keep going
		_ = j.settlementSvc.SettleAndRecord(ctx, outcome)
	}
}
