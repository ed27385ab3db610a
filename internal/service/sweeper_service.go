package service

import (
	"context"
	"time"

	"monitoring-workspace-be/internal/pkg/logger"
)

type ISweeperService interface {
	// Run blocks until ctx is cancelled.
	Run(ctx context.Context)
	SweepOnce(ctx context.Context) int
}

type sweeperService struct {
	workspace IWorkspaceService
	interval  time.Duration
	logger    logger.ILogger
}

func NewSweeperService(ws IWorkspaceService, interval time.Duration, log logger.ILogger) ISweeperService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &sweeperService{workspace: ws, interval: interval, logger: log}
}

func (s *sweeperService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Sweeper", "Stale site override sweeper started", map[string]interface{}{
		"interval": s.interval.String(),
	})
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

func (s *sweeperService) SweepOnce(ctx context.Context) int {
	removed, err := s.workspace.SweepStale(ctx)
	if err != nil {
		s.logger.Error("Sweeper", "Sweep finished with errors", map[string]interface{}{
			"removed": removed,
			"error":   err,
		})
		return removed
	}
	if removed > 0 {
		s.logger.Info("Sweeper", "Evicted stale site overrides", map[string]interface{}{"removed": removed})
	}
	return removed
}
