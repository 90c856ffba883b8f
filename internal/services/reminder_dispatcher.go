package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"ridealong/internal/models"
	"ridealong/internal/utils"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var (
	// ErrCycleInProgress is returned when a cycle is started while another
	// one in this process has not finished
	ErrCycleInProgress = errors.New("reminder dispatch cycle already running")
	// ErrLeaseHeld is returned when another process holds the dispatch lease
	ErrLeaseHeld = errors.New("reminder dispatch lease held by another process")
)

// CycleResult summarizes one dispatch cycle
type CycleResult struct {
	Rides  int // assigned future rides scanned
	Due    int // reminders due and not yet sent
	Sent   int
	Failed int
}

// ReminderDispatcher sends each due reminder of every assigned future ride
// once. A reminder is recorded as sent only after its message was accepted,
// so a failed send is retried on the next cycle.
type ReminderDispatcher struct {
	db          *gorm.DB
	senders     map[string]Sender
	loc         *time.Location
	now         func() time.Time
	lease       *Lease
	concurrency int
	sendTimeout time.Duration
	lg          zerolog.Logger

	running atomic.Bool
}

// DispatcherOption customizes a ReminderDispatcher
type DispatcherOption func(*ReminderDispatcher)

// WithClock replaces time.Now
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *ReminderDispatcher) { d.now = now }
}

// WithLease guards every cycle with a durable lease
func WithLease(l *Lease) DispatcherOption {
	return func(d *ReminderDispatcher) { d.lease = l }
}

// WithConcurrency bounds the number of sends in flight
func WithConcurrency(n int) DispatcherOption {
	return func(d *ReminderDispatcher) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithSendTimeout bounds a single send
func WithSendTimeout(timeout time.Duration) DispatcherOption {
	return func(d *ReminderDispatcher) { d.sendTimeout = timeout }
}

// WithLocation sets the time zone used to render scheduled times
func WithLocation(loc *time.Location) DispatcherOption {
	return func(d *ReminderDispatcher) { d.loc = loc }
}

// WithLogger sets the dispatcher's logger
func WithLogger(lg zerolog.Logger) DispatcherOption {
	return func(d *ReminderDispatcher) { d.lg = lg }
}

// NewReminderDispatcher builds a dispatcher. senders is keyed by channel
// ("email", "sms"); an email sender is required.
func NewReminderDispatcher(db *gorm.DB, senders map[string]Sender, opts ...DispatcherOption) *ReminderDispatcher {
	d := &ReminderDispatcher{
		db:          db,
		senders:     senders,
		loc:         time.UTC,
		now:         time.Now,
		concurrency: 4,
		sendTimeout: 30 * time.Second,
		lg:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.lg = d.lg.With().Str("component", "reminders").Logger()
	return d
}

// RunCycle performs one dispatch cycle. Send failures are logged and counted,
// never returned; only failing to load rides (or the lease) aborts the cycle.
func (d *ReminderDispatcher) RunCycle(ctx context.Context) (CycleResult, error) {
	var result CycleResult

	if !d.running.CompareAndSwap(false, true) {
		return result, ErrCycleInProgress
	}
	defer d.running.Store(false)

	if d.lease != nil {
		ok, err := d.lease.Acquire(ctx)
		if err != nil {
			return result, err
		}
		if !ok {
			return result, ErrLeaseHeld
		}
		defer func() {
			if err := d.lease.Release(context.WithoutCancel(ctx)); err != nil {
				d.lg.Warn().Err(err).Msg("failed to release dispatch lease")
			}
		}()

		var lost context.CancelFunc
		ctx, lost = context.WithCancel(ctx)
		defer lost()
		stop := d.keepLease(ctx, lost)
		defer stop()
	}

	now := d.now()

	rides, err := d.loadRides(ctx, now)
	if err != nil {
		return result, err
	}
	result.Rides = len(rides)

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	g.SetLimit(d.concurrency)

	for i := range rides {
		ride := &rides[i]
		for _, cfg := range DueReminders(ride, now) {
			result.Due++
			g.Go(func() error {
				err := d.safeDeliver(ctx, ride, cfg, now)
				mu.Lock()
				if err != nil {
					result.Failed++
				} else {
					result.Sent++
				}
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()

	if result.Due > 0 {
		d.lg.Info().
			Int("rides", result.Rides).
			Int("due", result.Due).
			Int("sent", result.Sent).
			Int("failed", result.Failed).
			Msg("reminder cycle finished")
	}
	return result, nil
}

// keepLease renews the lease every RenewInterval until the returned stop
// func is called. When a renewal fails, lost cancels the cycle so no further
// reminders go out while another process may hold the lease.
func (d *ReminderDispatcher) keepLease(ctx context.Context, lost context.CancelFunc) (stop func()) {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(d.lease.RenewInterval())
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				ok, err := d.lease.Renew(ctx)
				if err == nil && ok {
					continue
				}
				if err == nil {
					err = ErrLeaseHeld
				}
				d.lg.Error().Err(err).Msg("lost dispatch lease, stopping cycle")
				lost()
				return
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}

// checkLease confirms the cycle may still send
func (d *ReminderDispatcher) checkLease(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.lease == nil {
		return nil
	}
	ok, err := d.lease.Renew(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLeaseHeld
	}
	return nil
}

// loadRides returns assigned rides scheduled after now, with everything a
// reminder needs preloaded
func (d *ReminderDispatcher) loadRides(ctx context.Context, now time.Time) ([]models.Ride, error) {
	var rides []models.Ride
	err := d.db.WithContext(ctx).
		Preload("Volunteer.User").
		Preload("Volunteer.Reminders").
		Preload("Client.User").
		Preload("SentReminders").
		Where("status = ?", models.RideAssigned).
		Where("scheduled_time > ?", now.UTC()).
		Where("volunteer_id IS NOT NULL").
		Order("scheduled_time").
		Find(&rides).Error
	if err != nil {
		return nil, fmt.Errorf("load assigned rides: %w", err)
	}
	return rides, nil
}

// DueReminders returns the volunteer's reminder configs for ride whose
// threshold (scheduled time minus lead time) has passed and which have no
// sent record for this ride. Rides that are not assigned, have no volunteer,
// or are not in the future yield nothing.
func DueReminders(ride *models.Ride, now time.Time) []models.ReminderConfig {
	if ride.Status != models.RideAssigned || ride.Volunteer == nil || !ride.AssignedTo(ride.Volunteer.ID) {
		return nil
	}
	if !ride.ScheduledTime.After(now) {
		return nil
	}

	sent := make(map[string]bool, len(ride.SentReminders))
	for _, sr := range ride.SentReminders {
		sent[sr.ReminderConfigID] = true
	}

	var due []models.ReminderConfig
	for _, cfg := range ride.Volunteer.Reminders {
		threshold := ride.ScheduledTime.Add(-cfg.Lead())
		if now.Before(threshold) {
			continue
		}
		if sent[cfg.ID] {
			continue
		}
		due = append(due, cfg)
	}
	return due
}

// safeDeliver turns a panic in a sender into a failed send
func (d *ReminderDispatcher) safeDeliver(ctx context.Context, ride *models.Ride, cfg models.ReminderConfig, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while sending reminder: %v", r)
			d.lg.Error().Err(err).Str("ride_id", ride.ID).Str("reminder_id", cfg.ID).Msg("failed to send reminder")
		}
	}()
	return d.deliver(ctx, ride, cfg, now)
}

// deliver sends one reminder and records it. The record is written with a
// context that survives cancellation: once a message went out, losing the
// record would only cause a duplicate.
func (d *ReminderDispatcher) deliver(ctx context.Context, ride *models.Ride, cfg models.ReminderConfig, now time.Time) error {
	lg := d.lg.With().
		Str("ride_id", ride.ID).
		Str("reminder_id", cfg.ID).
		Int("minutes_before", cfg.MinutesBefore).
		Logger()

	channel, to, sender := d.route(ride, cfg)
	if sender == nil {
		lg.Error().Str("channel", channel).Msg("no sender configured")
		return ErrNoSender
	}
	if to == "" {
		err := fmt.Errorf("volunteer has no %s address", channel)
		lg.Warn().Err(err).Msg("failed to send reminder")
		return err
	}

	if err := d.checkLease(ctx); err != nil {
		lg.Warn().Err(err).Msg("not sending reminder")
		return err
	}

	msg := ReminderMessage(ride, d.loc)

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	err := sender.Send(sendCtx, to, msg.Subject, msg.Body)
	cancel()
	if err != nil {
		lg.Warn().Err(err).Str("channel", channel).Msg("failed to send reminder, will retry next cycle")
		return err
	}

	record := models.SentReminder{
		RideID:           ride.ID,
		ReminderConfigID: cfg.ID,
		Type:             strconv.Itoa(cfg.MinutesBefore),
		SentAt:           now.UTC(),
	}
	if err := d.db.WithContext(context.WithoutCancel(ctx)).Create(&record).Error; err != nil {
		lg.Error().Err(err).Msg("reminder sent but not recorded, it may be sent again")
		return nil
	}

	lg.Info().Str("channel", channel).Str("to", to).Msg("sent reminder")
	return nil
}

// route picks the channel, recipient and sender for a reminder. SMS falls
// back to email when the volunteer has no complete phone number or no SMS
// sender exists.
func (d *ReminderDispatcher) route(ride *models.Ride, cfg models.ReminderConfig) (string, string, Sender) {
	user := ride.Volunteer.User

	if cfg.Channel == models.ChannelSMS && utils.E164(user.Phone) != "" {
		if sender, ok := d.senders[models.ChannelSMS]; ok {
			return models.ChannelSMS, user.Phone, sender
		}
	}
	return models.ChannelEmail, user.EmailAddress(), d.senders[models.ChannelEmail]
}
