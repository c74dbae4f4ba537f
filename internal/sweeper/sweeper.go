package sweeper

import (
	"context"
	"time"

	"github.com/borderdesk/visatrack/internal/service"
	"github.com/borderdesk/visatrack/pkg/logger"
)

// Sweeper runs the daily reminder sweep. It polls the clock on a short
// interval and fires once per calendar day when the configured hour is
// reached. A restart loses lastRun and may re-fire the same day, which is
// harmless because every sweep mutation is guarded.
type Sweeper struct {
	tourists service.TouristService
	hour     int
	interval time.Duration
	lastRun  time.Time
}

func New(tourists service.TouristService, hour int, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		tourists: tourists,
		hour:     hour,
		interval: interval,
	}
}

// Start launches the scheduler goroutine. It stops when ctx is canceled.
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		logger.Info("Sweep scheduler started", "hour", s.hour, "check_interval", s.interval.String())

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				logger.Info("Sweep scheduler stopped")
				return
			case now := <-ticker.C:
				if !s.due(now) {
					continue
				}
				s.lastRun = now

				if _, err := s.tourists.Sweep(ctx, now); err != nil {
					// Guarded mutations make a failed run self-healing: the
					// next scheduled sweep picks up whatever this one missed.
					logger.Error("Scheduled sweep failed", "error", err)
				}
			}
		}
	}()
}

func (s *Sweeper) due(now time.Time) bool {
	if now.Hour() < s.hour {
		return false
	}
	return !sameDay(s.lastRun, now)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
