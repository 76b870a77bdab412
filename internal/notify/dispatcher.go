// Package notify fans Event Bus topics out to external channels (Slack,
// Telegram, email, a generic signed webhook) for operators who aren't
// watching the CLI or the terminal dashboard.
package notify

import (
	"context"
	"log/slog"

	"github.com/dupeforge/dupeforge/internal/config"
	"github.com/dupeforge/dupeforge/internal/eventbus"
	"github.com/dupeforge/dupeforge/models"
)

// defaultTopics is the set of events that trigger notifications when
// cfg.Events is empty: a scan finishing, failing, or a job giving up.
var defaultTopics = []models.EventType{
	models.EventScanCompleted,
	models.EventScanFailed,
	models.EventJobFailed,
}

// Dispatcher subscribes to the Event Bus and fans matching events out to
// every configured channel.
type Dispatcher struct {
	channels []Channel
	bus      *eventbus.Bus
	sub      *eventbus.Subscription
}

// NewDispatcher creates a Dispatcher from cfg. Only channels with
// IsConfigured() == true are active; if none are, the Dispatcher still
// subscribes but notify is a no-op.
func NewDispatcher(cfg config.NotifyChannelConfig, bus *eventbus.Bus) *Dispatcher {
	d := &Dispatcher{bus: bus}

	channels := []Channel{
		NewSlack(cfg.Slack),
		NewTelegram(cfg.Telegram),
		NewEmail(cfg.Email),
		NewWebhook(cfg.Webhook),
	}
	for _, ch := range channels {
		if ch.IsConfigured() {
			d.channels = append(d.channels, ch)
		}
	}

	topics := defaultTopics
	if len(cfg.Events) > 0 {
		topics = make([]models.EventType, len(cfg.Events))
		for i, e := range cfg.Events {
			topics[i] = models.EventType(e)
		}
	}
	d.sub = bus.Subscribe(eventbus.Topics(topics...))
	return d
}

// IsAnyConfigured returns true if at least one channel is ready to send.
func (d *Dispatcher) IsAnyConfigured() bool {
	return len(d.channels) > 0
}

// Run drains the subscription until ctx is canceled, forwarding every
// matching event to every configured channel. Call it in its own goroutine.
func (d *Dispatcher) Run(ctx context.Context) {
	defer d.sub.Unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-d.sub.Events:
			if !ok {
				return
			}
			d.notify(ctx, evt)
		}
	}
}

// notify sends evt to all configured channels. A channel failing is logged
// but never propagated: one broken channel must not affect the others or
// the scan the event describes.
func (d *Dispatcher) notify(ctx context.Context, evt models.Event) {
	for _, ch := range d.channels {
		if err := ch.Send(ctx, evt); err != nil {
			slog.Warn("notify: channel send failed", "channel", ch.Name(), "event", evt.Type, "error", err)
		}
	}
}
