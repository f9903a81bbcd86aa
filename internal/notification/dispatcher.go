package notification

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultSendTimeout = 5 * time.Second

// Observer is told the outcome of every delivery attempt.
type Observer interface {
	NotificationSent(err error)
}

// Dispatcher fans messages out to a Notifier without blocking the caller.
// Delivery failures are logged and never surface to the operation that
// produced them.
type Dispatcher struct {
	notifier Notifier
	logger   *slog.Logger
	observer Observer
	timeout  time.Duration
}

// NewDispatcher builds a dispatcher. A nil notifier drops every message.
func NewDispatcher(notifier Notifier, logger *slog.Logger, observer Observer) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{notifier: notifier, logger: logger, observer: observer, timeout: defaultSendTimeout}
}

// Dispatch sends messages in the background. Messages with no destination
// are skipped.
func (d *Dispatcher) Dispatch(messages ...Message) {
	if d == nil || d.notifier == nil || len(messages) == 0 {
		return
	}
	go d.deliver(messages)
}

// DispatchWait sends messages and blocks until every attempt has finished.
func (d *Dispatcher) DispatchWait(messages ...Message) {
	if d == nil || d.notifier == nil {
		return
	}
	d.deliver(messages)
}

func (d *Dispatcher) deliver(messages []Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	var g errgroup.Group
	for _, msg := range messages {
		if msg.Destination == "" {
			continue
		}
		msg := msg
		g.Go(func() error {
			err := d.notifier.Send(ctx, msg)
			if d.observer != nil {
				d.observer.NotificationSent(err)
			}
			if err != nil {
				d.logger.Warn("notification delivery failed", "kind", msg.Kind, "destination", msg.Destination, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}
