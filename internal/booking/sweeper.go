package booking

import (
	"context"
	"time"
)

const DefaultSweepInterval = time.Minute

// RunExpirySweeper periodically marks lapsed PENDING holds as EXPIRED.
// Claims already reap lazily inside the critical section, so the sweep only
// bounds how long an abandoned hold lingers in the store and keeps the audit
// trail current for seats nobody is contending. Blocks until ctx is done.
func (s *Service) RunExpirySweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reaped, err := s.reservations.ReapAllExpired(ctx, s.now())
			if err != nil {
				s.logger.Error("expiry sweep failed", "error", err)
				continue
			}

			if reaped > 0 {
				s.logger.Info("expired lapsed holds", "count", reaped)
			}
		}
	}
}
