package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/hygiapro/bookings/pkg/logger"
)

// StaleCounter counts bookings still pending after olderThan.
type StaleCounter interface {
	CountStalePending(ctx context.Context, olderThan time.Duration) (int, error)
}

// StaleReport logs pending bookings that never settled. It only reports;
// the slots they hold are released by an operator.
type StaleReport struct {
	counter   StaleCounter
	olderThan time.Duration
}

func NewStaleReport(counter StaleCounter, olderThan time.Duration) *StaleReport {
	return &StaleReport{counter: counter, olderThan: olderThan}
}

// Run performs one pass and returns the count it found.
func (r *StaleReport) Run(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	n, err := r.counter.CountStalePending(ctx, r.olderThan)
	if err != nil {
		logger.Error("[CRON] Stale booking report failed", "error", err)
		return 0, err
	}
	if n > 0 {
		logger.Warn("[CRON] Pending bookings never settled",
			"count", n, "older_than", r.olderThan.String())
	} else {
		logger.Debug("[CRON] No stale pending bookings")
	}
	return n, nil
}

// Start schedules Run every interval on a new scheduler. The caller owns the
// returned scheduler and must Shutdown it.
func (r *StaleReport) Start(interval time.Duration, loc *time.Location) (gocron.Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	s, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			_, _ = r.Run(context.Background())
		}),
		gocron.WithName("stale-pending-report"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to schedule stale report: %w", err)
	}

	s.Start()
	logger.Info("Stale booking report scheduled", "interval", interval.String())
	return s, nil
}
