// Package scheduler runs periodic auto-detect and auto-download jobs on a
// cron expression, grounded on the teacher's pkg/cron schedule engine but
// driven here by robfig/cron's own dispatcher instead of a manual
// next-run-time computation.
package scheduler

import (
	"time"

	cronlib "github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler wraps a robfig/cron engine with snapindex's logging.
type Scheduler struct {
	cron *cronlib.Cron
	log  zerolog.Logger
}

// New constructs a Scheduler; jobs run in UTC with minute resolution.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cronlib.New(cronlib.WithLocation(time.UTC)),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// AddJob registers fn to run on the given standard 5-field cron expression.
// Panics from fn are recovered and logged so one bad run cannot kill the
// scheduler.
func (s *Scheduler) AddJob(expr string, name string, fn func()) (cronlib.EntryID, error) {
	wrapped := func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error().Str("job", name).Interface("panic", r).Msg("scheduled job panicked")
			}
		}()
		s.log.Info().Str("job", name).Msg("running scheduled job")
		fn()
	}
	id, err := s.cron.AddFunc(expr, wrapped)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// RemoveJob cancels a previously registered job.
func (s *Scheduler) RemoveJob(id cronlib.EntryID) {
	s.cron.Remove(id)
}

// Start begins dispatching jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler, waiting for any in-flight job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
