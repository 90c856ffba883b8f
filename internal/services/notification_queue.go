package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrQueueFull   = errors.New("notification queue is full")
	ErrQueueClosed = errors.New("notification queue is closed")
)

// Notification is one queued message
type Notification struct {
	To      string
	Kind    string // e.g. "ride_assigned"
	RideID  string
	Message Message
}

// NotificationFailure reports a notification that could not be delivered
type NotificationFailure struct {
	Notification
	Err error
}

// NotificationQueue sends state-transition emails off the request path.
// Delivery failures are published on Failures(); they are never silently dropped
// unless the failure channel itself is full.
type NotificationQueue struct {
	sender   Sender
	timeout  time.Duration
	jobs     chan Notification
	failures chan NotificationFailure
	lg       zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewNotificationQueue builds a queue holding up to size pending notifications
func NewNotificationQueue(sender Sender, size int, timeout time.Duration, lg zerolog.Logger) *NotificationQueue {
	return &NotificationQueue{
		sender:   sender,
		timeout:  timeout,
		jobs:     make(chan Notification, size),
		failures: make(chan NotificationFailure, size),
		lg:       lg.With().Str("component", "notifications").Logger(),
	}
}

// Start launches the delivery worker
func (q *NotificationQueue) Start() {
	q.wg.Add(1)
	go q.run()
}

// Enqueue schedules n for delivery without blocking
func (q *NotificationQueue) Enqueue(n Notification) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.jobs <- n:
		return nil
	default:
		return ErrQueueFull
	}
}

// Failures returns the channel of undelivered notifications. It is closed by Close.
func (q *NotificationQueue) Failures() <-chan NotificationFailure {
	return q.failures
}

// Close stops accepting work, delivers what is pending and waits for the worker
func (q *NotificationQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
	close(q.failures)
}

func (q *NotificationQueue) run() {
	defer q.wg.Done()

	for n := range q.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		err := q.sender.Send(ctx, n.To, n.Message.Subject, n.Message.Body)
		cancel()

		if err == nil {
			q.lg.Debug().Str("kind", n.Kind).Str("ride_id", n.RideID).Msg("notification sent")
			continue
		}

		select {
		case q.failures <- NotificationFailure{Notification: n, Err: err}:
		default:
			q.lg.Error().Err(err).Str("kind", n.Kind).Str("ride_id", n.RideID).Msg("notification failed and failure channel is full")
		}
	}
}
