// Package natsbus implements the notification bus on core NATS subjects.
package natsbus

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/rushapp/rushcast/internal/bus"
)

type Bus struct {
	nc     *nats.Conn
	prefix string
	log    *slog.Logger
}

func Connect(url, prefix string, log *slog.Logger) (*Bus, error) {
	log = log.With("component", "natsbus")
	nc, err := nats.Connect(url,
		nats.Name("rushcast"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &Bus{nc: nc, prefix: prefix, log: log}, nil
}

var _ bus.Bus = (*Bus)(nil)

func (b *Bus) Publish(ctx context.Context, topic, payload string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.nc.Publish(b.subject(topic), []byte(payload)); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Subscribe funnels every topic subscription into one channel. NATS delivers each
// subscription in order, so per-topic order survives the merge.
func (b *Bus) Subscribe(ctx context.Context, topics ...string) (<-chan bus.Notification, error) {
	msgs := make(chan *nats.Msg, 64)
	subs := make([]*nats.Subscription, 0, len(topics))
	for _, t := range topics {
		s, err := b.nc.ChanSubscribe(b.subject(t), msgs)
		if err != nil {
			for _, s := range subs {
				_ = s.Unsubscribe()
			}
			return nil, fmt.Errorf("subscribe %s: %w", t, err)
		}
		subs = append(subs, s)
	}

	out := make(chan bus.Notification, 64)
	go func() {
		defer close(out)
		defer func() {
			for _, s := range subs {
				_ = s.Unsubscribe()
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case m := <-msgs:
				n := bus.Notification{Topic: b.topic(m.Subject), Payload: string(m.Data)}
				select {
				case out <- n:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (b *Bus) Close() error {
	b.nc.Close()
	return nil
}

func (b *Bus) subject(topic string) string { return b.prefix + topic }

func (b *Bus) topic(subject string) string { return strings.TrimPrefix(subject, b.prefix) }
