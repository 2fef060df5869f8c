package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/codr1/courtbook/internal/config"
)

const (
	CompletionJobName = "booking_completion"
	ExpiryJobName     = "pending_booking_expiry"

	jobTimeout = 2 * time.Minute
)

// LedgerJobs is implemented by the booking service.
type LedgerJobs interface {
	CompleteFinished(ctx context.Context) (int64, error)
	ExpireStalePending(ctx context.Context) (int64, error)
}

// RegisterBookingJobs schedules the completion job and, when a pending hold
// is configured, the expiry job.
func RegisterBookingJobs(s *Service, jobs LedgerJobs, cfg config.SchedulerConfig, pendingHold time.Duration) error {
	if jobs == nil {
		return fmt.Errorf("booking jobs require a booking service")
	}

	if err := register(s, CompletionJobName, cfg.CompletionCron, "booking_completion_job", jobs.CompleteFinished,
		"Completed finished bookings"); err != nil {
		return err
	}
	if pendingHold <= 0 {
		log.Info().Msg("Pending booking expiry disabled")
		return nil
	}
	return register(s, ExpiryJobName, cfg.ExpiryCron, "pending_booking_expiry_job", jobs.ExpireStalePending,
		"Expired stale pending bookings")
}

func register(s *Service, name, cronExpr, component string, run func(context.Context) (int64, error), doneMsg string) error {
	jobLogger := log.With().
		Str("component", component).
		Str("job_name", name).
		Str("cron", cronExpr).
		Logger()

	_, err := s.AddJob(name, cronExpr, func() {
		runJob(&jobLogger, run, doneMsg)
	})
	if err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	return nil
}

func runJob(logger *zerolog.Logger, run func(context.Context) (int64, error), doneMsg string) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	ctx = logger.WithContext(ctx)

	affected, err := run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Scheduler job failed")
		return
	}
	if affected > 0 {
		logger.Info().Int64("bookings", affected).Msg(doneMsg)
	}
}
