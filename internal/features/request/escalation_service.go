package request

import (
	"context"
	"errors"
	"time"

	"github.com/NCGHoldings/StoresONE-sub000/internal/common/errs"
	"github.com/NCGHoldings/StoresONE-sub000/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// EscalationClock periodically scans for pending requests whose current step
// deadline has elapsed and hands each to the request service. Timeouts are
// therefore applied by scan, never by in-process timers, so a restart loses
// nothing.
type EscalationClock struct {
	repo      RequestRepository
	service   RequestService
	log       *zap.Logger
	schedule  string
	batchSize int64

	scheduler *cron.Cron
	entryID   cron.EntryID
}

func NewEscalationClock(repo RequestRepository, service RequestService, cfg *config.Config, log *zap.Logger) *EscalationClock {
	return &EscalationClock{
		repo:      repo,
		service:   service,
		log:       log,
		schedule:  cfg.EscalationCron,
		batchSize: cfg.EscalationBatch,
	}
}

func (c *EscalationClock) Start(ctx context.Context) error {
	c.scheduler = cron.New()
	entryID, err := c.scheduler.AddFunc(c.schedule, func() {
		c.Sweep(context.Background())
	})
	if err != nil {
		return err
	}
	c.entryID = entryID
	c.scheduler.Start()
	c.log.Info("escalation clock started", zap.String("schedule", c.schedule))
	return nil
}

func (c *EscalationClock) Stop(ctx context.Context) error {
	if c.scheduler != nil {
		stopCtx := c.scheduler.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
		}
	}
	c.log.Info("escalation clock stopped")
	return nil
}

// Sweep runs one scan pass. Failures on individual requests are logged and
// skipped; ErrStaleState means another writer beat the clock and needs no
// retry since the next tick re-reads the state.
func (c *EscalationClock) Sweep(ctx context.Context) {
	due, err := c.repo.FindDueForEscalation(ctx, time.Now(), c.batchSize)
	if err != nil {
		c.log.Error("escalation scan failed", zap.Error(err))
		return
	}

	for i := range due {
		id := due[i].ID.Hex()
		if _, err := c.service.Escalate(ctx, id); err != nil {
			if errors.Is(err, errs.ErrStaleState) || errors.Is(err, errs.ErrInvalidTransition) {
				continue
			}
			c.log.Error("escalation failed",
				zap.String("request_id", id),
				zap.Error(err))
		}
	}
}
