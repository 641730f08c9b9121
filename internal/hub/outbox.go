package hub

import (
	"errors"
	"sync"
)

var (
	ErrQueueFull   = errors.New("subscriber queue full")
	ErrQueueClosed = errors.New("subscriber queue closed")
)

// Outbox is a bounded FIFO of encoded envelopes owned by one session. The message channel
// is never closed; Done signals retirement instead, so a racing TrySend cannot panic.
type Outbox struct {
	ch   chan []byte
	done chan struct{}
	once sync.Once
}

func NewOutbox(size int) *Outbox {
	if size <= 0 {
		size = 1
	}
	return &Outbox{ch: make(chan []byte, size), done: make(chan struct{})}
}

var _ Sender = (*Outbox)(nil)

// TrySend never blocks. A full queue returns ErrQueueFull and leaves the message dropped.
func (o *Outbox) TrySend(msg []byte) error {
	select {
	case <-o.done:
		return ErrQueueClosed
	default:
	}
	select {
	case o.ch <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

func (o *Outbox) Close() {
	o.once.Do(func() { close(o.done) })
}

func (o *Outbox) Messages() <-chan []byte { return o.ch }

func (o *Outbox) Done() <-chan struct{} { return o.done }

func (o *Outbox) Closed() bool {
	select {
	case <-o.done:
		return true
	default:
		return false
	}
}
