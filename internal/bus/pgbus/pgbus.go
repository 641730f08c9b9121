// Package pgbus implements the notification bus on Postgres LISTEN/NOTIFY.
package pgbus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rushapp/rushcast/internal/bus"
	"github.com/rushapp/rushcast/internal/db"
)

type Bus struct {
	db      *db.DB
	log     *slog.Logger
	backoff bus.Backoff
}

func New(d *db.DB, log *slog.Logger) *Bus {
	return &Bus{db: d, log: log.With("component", "pgbus"), backoff: bus.DefaultBackoff()}
}

var _ bus.Bus = (*Bus)(nil)

func (b *Bus) Publish(ctx context.Context, topic, payload string) error {
	if _, err := b.db.Pool.Exec(ctx, `SELECT pg_notify($1, $2)`, topic, payload); err != nil {
		return fmt.Errorf("notify %s: %w", topic, err)
	}
	return nil
}

// Subscribe holds one dedicated connection outside the pool. When that connection drops it
// reconnects with backoff and, once listening again, emits a resync notification for every
// topic because anything published during the gap was lost.
func (b *Bus) Subscribe(ctx context.Context, topics ...string) (<-chan bus.Notification, error) {
	if len(topics) == 0 {
		return nil, fmt.Errorf("subscribe: no topics")
	}
	out := make(chan bus.Notification, 64)
	go b.run(ctx, topics, out)
	return out, nil
}

// Close is a no-op; the pool belongs to the caller.
func (b *Bus) Close() error { return nil }

func (b *Bus) run(ctx context.Context, topics []string, out chan<- bus.Notification) {
	defer close(out)

	attempt := 0
	first := true
	for {
		err := b.listen(ctx, topics, out, !first, func() { attempt = 0 })
		first = false
		if ctx.Err() != nil {
			return
		}
		delay := b.backoff.NextDelay(attempt)
		attempt++
		b.log.Warn("listener connection lost", "error", err, "retry_in", delay)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (b *Bus) listen(ctx context.Context, topics []string, out chan<- bus.Notification, resync bool, connected func()) error {
	conn, err := pgx.ConnectConfig(ctx, b.db.Pool.Config().ConnConfig)
	if err != nil {
		return fmt.Errorf("connect listener: %w", err)
	}
	defer conn.Close(context.Background())

	for _, t := range topics {
		if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{t}.Sanitize()); err != nil {
			return fmt.Errorf("listen %s: %w", t, err)
		}
	}
	connected()
	b.log.Info("listening", "topics", topics)

	if resync {
		for _, t := range topics {
			if err := send(ctx, out, bus.Notification{Topic: t, Payload: bus.PayloadResync}); err != nil {
				return err
			}
		}
	}

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		if err := send(ctx, out, bus.Notification{Topic: n.Channel, Payload: n.Payload}); err != nil {
			return err
		}
	}
}

func send(ctx context.Context, out chan<- bus.Notification, n bus.Notification) error {
	select {
	case out <- n:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
