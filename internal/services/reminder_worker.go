package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ridealong/internal/utils"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ReminderWorker runs the dispatcher on a cron schedule. A tick that fires
// while the previous cycle is still running is skipped, not queued.
type ReminderWorker struct {
	dispatcher *ReminderDispatcher
	cron       *cron.Cron
	recover    cron.JobWrapper
	schedule   string
	runOnStart bool
	lg         zerolog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	initial sync.WaitGroup
}

// NewReminderWorker prepares a worker; call Start to begin dispatching
func NewReminderWorker(dispatcher *ReminderDispatcher, schedule string, runOnStart bool, lg zerolog.Logger) *ReminderWorker {
	lg = lg.With().Str("component", "reminder_worker").Logger()
	cronLogger := utils.CronLogger{Logger: lg}

	return &ReminderWorker{
		dispatcher: dispatcher,
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		recover:    cron.Recover(cronLogger),
		schedule:   schedule,
		runOnStart: runOnStart,
		lg:         lg,
	}
}

// Start registers the job and starts the scheduler. Cycles are cancelled
// when ctx is done or Stop is called.
func (w *ReminderWorker) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	if _, err := w.cron.AddFunc(w.schedule, w.runCycle); err != nil {
		w.cancel()
		return fmt.Errorf("invalid reminder schedule %q: %w", w.schedule, err)
	}

	if w.runOnStart {
		w.initial.Add(1)
		job := w.recover(cron.FuncJob(w.runCycle))
		go func() {
			defer w.initial.Done()
			job.Run()
		}()
	}

	w.cron.Start()
	w.lg.Info().Str("schedule", w.schedule).Bool("run_on_start", w.runOnStart).Msg("reminder worker started")
	return nil
}

// Stop halts the schedule and waits for a running cycle to finish
func (w *ReminderWorker) Stop() {
	stopped := w.cron.Stop()
	<-stopped.Done()
	w.initial.Wait()
	if w.cancel != nil {
		w.cancel()
	}
	w.lg.Info().Msg("reminder worker stopped")
}

func (w *ReminderWorker) runCycle() {
	_, err := w.dispatcher.RunCycle(w.ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrCycleInProgress), errors.Is(err, ErrLeaseHeld):
		w.lg.Debug().Err(err).Msg("skipping reminder cycle")
	default:
		w.lg.Error().Err(err).Msg("reminder cycle failed")
	}
}
