package hub

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rushapp/rushcast/internal/bus"
	"github.com/rushapp/rushcast/internal/snapshot"
)

var ErrFeedClosed = errors.New("notification feed closed")

// Listener owns the process's single bus subscription. Notifications are handled one at a
// time in bus order, so two quick changes to a topic are never broadcast out of order.
type Listener struct {
	sub   bus.Subscriber
	table *snapshot.Table
	hub   *Hub
	log   *slog.Logger
}

func NewListener(sub bus.Subscriber, table *snapshot.Table, h *Hub, log *slog.Logger) *Listener {
	return &Listener{sub: sub, table: table, hub: h, log: log.With("component", "listener")}
}

// Run subscribes to every known topic and processes notifications until ctx is done. It
// returns nil on cancellation and ErrFeedClosed if the bus stops delivering first.
func (l *Listener) Run(ctx context.Context) error {
	channels := snapshot.Channels(snapshot.All())
	feed, err := l.sub.Subscribe(ctx, channels...)
	if err != nil {
		return err
	}
	l.log.Info("listening", "topics", channels)

	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-feed:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrFeedClosed
			}
			l.handle(ctx, n)
		}
	}
}

func (l *Listener) handle(ctx context.Context, n bus.Notification) {
	topic, fetch, ok := l.table.Lookup(n.Topic)
	if !ok {
		l.log.Debug("ignoring notification", "topic", n.Topic)
		return
	}
	l.hub.stats.notification(topic)
	l.log.Debug("notification", "topic", n.Topic, "payload", n.Payload)
	l.hub.refresh(ctx, topic, fetch)
}
