package hub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/looplab/fsm"
)

const (
	StateConnecting = "connecting"
	StateActive     = "active"
	StateClosing    = "closing"
	StateClosed     = "closed"

	eventActivate = "activate"
	eventClose    = "close"
	eventFinish   = "finish"
)

var (
	errRetired   = errors.New("subscriber retired")
	errHubClosed = errors.New("hub closed")
)

// Session bridges one websocket connection to its outbox. It registers itself on Run and
// deregisters when either the writer or the reader stops.
type Session struct {
	ID string

	hub  *Hub
	aud  *Audience
	conn *websocket.Conn
	out  *Outbox
	fsm  *fsm.FSM
	log  *slog.Logger
}

// NewSession prepares a session for conn. requestedID may be empty, in which case the
// audience assigns one.
func (h *Hub) NewSession(a *Audience, conn *websocket.Conn, requestedID string) *Session {
	s := &Session{
		ID:   a.AssignID(requestedID),
		hub:  h,
		aud:  a,
		conn: conn,
		out:  NewOutbox(h.opts.QueueSize),
	}
	s.log = h.log.With("audience", a.Name, "subscriber", s.ID)
	s.fsm = fsm.NewFSM(
		StateConnecting,
		fsm.Events{
			{Name: eventActivate, Src: []string{StateConnecting}, Dst: StateActive},
			{Name: eventClose, Src: []string{StateConnecting, StateActive}, Dst: StateClosing},
			{Name: eventFinish, Src: []string{StateClosing}, Dst: StateClosed},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				s.log.Debug("session state", "from", e.Src, "to", e.Dst)
			},
		},
	)
	return s
}

func (s *Session) State() string { return s.fsm.Current() }

// Run drives the session until the connection ends or ctx is done. The session registers
// first and starts draining its outbox before it queues the initial snapshots, so
// broadcasts that land while it primes cannot fill the queue. The writer, the reader and
// priming race; whichever fails first tears the session down and the rest are abandoned.
func (s *Session) Run(ctx context.Context) {
	if err := s.register(); err != nil {
		s.teardown(err)
		return
	}

	done := make(chan error, 3)
	go func() { done <- s.writeLoop(ctx) }()
	go func() { done <- s.readLoop() }()
	go func() {
		if err := s.activate(ctx); err != nil {
			done <- err
		}
	}()

	s.teardown(<-done)
}

func (s *Session) register() error {
	if prev, replaced := s.aud.Registry.Insert(s.ID, s.out); replaced && prev != Sender(s.out) {
		prev.Close()
		s.log.Info("replacing existing subscriber with the same id")
	}
	// Checked after inserting: a concurrent Hub.Close either sees this entry or has
	// already set the flag.
	if s.hub.closed.Load() {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
		_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.hub.opts.WriteTimeout))
		return errHubClosed
	}
	return nil
}

func (s *Session) activate(ctx context.Context) error {
	if err := s.hub.prime(ctx, s.aud, s.out, s.log); err != nil {
		return err
	}
	if err := s.fsm.Event(context.Background(), eventActivate); err != nil {
		return fmt.Errorf("activate session: %w", err)
	}
	s.log.Info("subscriber connected", "remote", s.conn.RemoteAddr().String())
	return nil
}

func (s *Session) teardown(cause error) {
	if err := s.fsm.Event(context.Background(), eventClose); err != nil {
		s.log.Debug("close transition", "error", err)
	}
	s.out.Close()
	_ = s.conn.Close()
	s.aud.Registry.RemoveIf(s.ID, s.out)
	if err := s.fsm.Event(context.Background(), eventFinish); err != nil {
		s.log.Debug("finish transition", "error", err)
	}

	switch {
	case cause == nil,
		errors.Is(cause, context.Canceled),
		websocket.IsCloseError(cause, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		s.log.Info("subscriber disconnected")
	default:
		s.log.Info("subscriber disconnected", "reason", cause)
	}
}

func (s *Session) writeLoop(ctx context.Context) error {
	timeout := s.hub.opts.WriteTimeout

	var ping <-chan time.Time
	if s.hub.opts.PingInterval > 0 {
		t := time.NewTicker(s.hub.opts.PingInterval)
		defer t.Stop()
		ping = t.C
	}

	for {
		select {
		case msg := <-s.out.Messages():
			_ = s.conn.SetWriteDeadline(time.Now().Add(timeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return fmt.Errorf("write: %w", err)
			}
		case <-ping:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(timeout)); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		case <-s.out.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
			_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(timeout))
			return errRetired
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// readLoop only watches for close and errors. Application frames of any size are
// discarded.
func (s *Session) readLoop() error {
	if pi := s.hub.opts.PingInterval; pi > 0 {
		wait := 2 * pi
		_ = s.conn.SetReadDeadline(time.Now().Add(wait))
		s.conn.SetPongHandler(func(string) error {
			return s.conn.SetReadDeadline(time.Now().Add(wait))
		})
	}

	for {
		_, r, err := s.conn.NextReader()
		if err != nil {
			return err
		}
		if _, err := io.Copy(io.Discard, r); err != nil {
			return err
		}
	}
}
