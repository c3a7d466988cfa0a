/*
scheduler.go - Nightly stale-register check

PURPOSE:
  Watches for a ledger left ACTIVE past its own business day. The register
  should be counted and closed every night; a day still open the next
  morning means someone forgot, and every new-day creation will 409 until
  it is closed. The scheduler does not auto-close (the declared cash count
  has to come from a human); it logs loudly so the operator notices.

DESIGN:
  - robfig/cron with a standard 5-field expression
  - Default schedule: 03:00 every day, after any plausible closing time
  - Safe to run concurrently with requests; it only reads

USAGE:
  sched := NewStaleCheckScheduler(store, logger)
  sched.Start()
  // ... later
  sched.Stop()

SEE ALSO:
  - handlers.go: CloseLedger endpoint (the manual fix)
  - cmd/server/main.go: wiring and schedule override
*/
package api

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fonda/opsledger/ledger"
)

// DefaultStaleCheckSchedule runs at 03:00 local time every day.
const DefaultStaleCheckSchedule = "0 3 * * *"

// StaleCheckScheduler periodically flags a forgotten ACTIVE ledger.
type StaleCheckScheduler struct {
	Ledgers  ledger.Store
	Schedule string

	log  *zap.Logger
	cron *cron.Cron
}

// NewStaleCheckScheduler creates a scheduler with the default nightly run.
func NewStaleCheckScheduler(ledgers ledger.Store, log *zap.Logger) *StaleCheckScheduler {
	return &StaleCheckScheduler{
		Ledgers:  ledgers,
		Schedule: DefaultStaleCheckSchedule,
		log:      log,
	}
}

// Start registers the cron job and begins the schedule.
func (s *StaleCheckScheduler) Start() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.Schedule, s.check); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("stale-register check scheduled", zap.String("schedule", s.Schedule))
	return nil
}

// Stop halts the schedule and waits for an in-flight check to finish.
func (s *StaleCheckScheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// check looks for an ACTIVE ledger dated before today.
func (s *StaleCheckScheduler) check() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	l, err := s.Ledgers.GetActiveLedger(ctx)
	if err != nil {
		if ledger.IsNotFound(err) {
			return
		}
		s.log.Error("stale-register check failed", zap.Error(err))
		return
	}
	if l.Date.Before(ledger.Today()) {
		s.log.Warn("ledger left open past its business day, close it to open a new one",
			zap.String("id", l.ID),
			zap.String("date", l.Date.String()))
	}
}
