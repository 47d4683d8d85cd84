// Package jobs runs periodic housekeeping over live rooms.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper is implemented by service.GameService.
type Sweeper interface {
	EvictStalePlayers(now time.Time) int
	PruneRooms(now time.Time) int
}

type Cleaner struct {
	cron    *cron.Cron
	sweeper Sweeper
	now     func() time.Time
	logger  *zap.Logger
}

// NewCleaner schedules a sweep on spec, a standard five-field cron expression or a
// descriptor such as "@every 30s".
func NewCleaner(sweeper Sweeper, spec string, logger *zap.Logger) (*Cleaner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Cleaner{
		cron:    cron.New(),
		sweeper: sweeper,
		now:     time.Now,
		logger:  logger.Named("cleaner"),
	}
	if _, err := c.cron.AddFunc(spec, c.Sweep); err != nil {
		return nil, fmt.Errorf("schedule sweep %q: %w", spec, err)
	}
	return c, nil
}

// Sweep evicts players past their grace period and prunes orphaned or ended rooms.
func (c *Cleaner) Sweep() {
	now := c.now()
	evicted := c.sweeper.EvictStalePlayers(now)
	pruned := c.sweeper.PruneRooms(now)
	if evicted > 0 || pruned > 0 {
		c.logger.Info("sweep finished",
			zap.Int("players_evicted", evicted),
			zap.Int("rooms_pruned", pruned),
		)
	}
}

func (c *Cleaner) Start() {
	c.cron.Start()
}

// Stop halts scheduling and waits for a running sweep, or for ctx to end.
func (c *Cleaner) Stop(ctx context.Context) {
	select {
	case <-c.cron.Stop().Done():
	case <-ctx.Done():
	}
}
