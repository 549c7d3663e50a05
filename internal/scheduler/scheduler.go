package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/roxx/auction-server/internal/models"
	"github.com/roxx/auction-server/internal/utils"
)

// Settler runs one settlement sweep. Satisfied by the service layer.
type Settler interface {
	Settle(ctx context.Context) (*models.SettlementReport, error)
}

// settleTimeout bounds a single settlement sweep. Generous because a
// sweep locks every active bid row.
const settleTimeout = 5 * time.Minute

// Scheduler triggers the settlement sweep on a cron schedule. It owns
// timing only: the sweep itself is an ordinary service call, and the
// admin API may invoke the same call on demand. cron computes each
// next fire time from the wall clock, so a slow sweep does not shift
// the schedule.
type Scheduler struct {
	cron     *cron.Cron
	svc      Settler
	logger   *utils.Logger
	schedule string
}

// NewScheduler creates a scheduler that settles on the given cron
// schedule.
func NewScheduler(svc Settler, logger *utils.Logger, schedule string) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Slog().Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:     c,
		svc:      svc,
		logger:   logger,
		schedule: schedule,
	}
}

// Start registers the settlement job and starts the cron scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.runSettlement); err != nil {
		return err
	}

	s.logger.Info("scheduled settlement job", "schedule", s.schedule)
	s.cron.Start()
	return nil
}

// Stop gracefully stops the cron scheduler. The returned context is
// done once any running job has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) runSettlement() {
	ctx, cancel := context.WithTimeout(context.Background(), settleTimeout)
	defer cancel()

	if _, err := s.svc.Settle(ctx); err != nil {
		s.logger.Error("scheduled settlement failed", "error", err)
	}
}
