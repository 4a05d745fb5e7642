package jobs

import (
	"go.uber.org/zap"
)

// CacheSweepJobName is the name of the in-memory cache eviction job
const CacheSweepJobName = "cache_sweep"

// Sweeper evicts expired entries and reports how many were removed
type Sweeper interface {
	Sweep() int
}

// RegisterCacheSweepJob evicts expired workspace snapshots and revoked token
// markers from an in-process cache. Redis expires keys on its own and needs no sweep.
func RegisterCacheSweepJob(scheduler *Scheduler, sweeper Sweeper, logger *zap.Logger, cronExpr string) error {
	return scheduler.AddJob(CacheSweepJobName, cronExpr, func() {
		if removed := sweeper.Sweep(); removed > 0 {
			logger.Debug("evicted expired cache entries", zap.Int("removed", removed))
		}
	})
}
