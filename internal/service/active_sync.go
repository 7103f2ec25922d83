package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunActiveGaugeSync keeps the active-conversations gauge aligned with the
// store, which matters after restarts and when several instances share it.
func (s *Service) RunActiveGaugeSync(ctx context.Context) {
	s.syncActiveGauge(ctx)
	if s.config.ActiveSyncInterval <= 0 {
		return
	}

	ticker := time.NewTicker(s.config.ActiveSyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.syncActiveGauge(ctx)
		}
	}
}

func (s *Service) syncActiveGauge(ctx context.Context) {
	syncCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	n, err := s.store.CountActive(syncCtx)
	if err != nil {
		s.logger.Warn("active conversation sync failed", zap.Error(err))
		return
	}
	s.metrics.SetActive(n)
}
