// Package voting applies writes to the vote log and live state, then announces each change
// on the bus so the hub re-broadcasts the affected topic.
package voting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rushapp/rushcast/internal/bus"
	"github.com/rushapp/rushcast/internal/domain"
	"github.com/rushapp/rushcast/internal/snapshot"
	"github.com/rushapp/rushcast/internal/store"
)

// ErrInvalid wraps every validation failure; callers map it to a 400.
var ErrInvalid = errors.New("invalid request")

// Ballot is a vote submission as received from a brother's client.
type Ballot struct {
	BrotherID string `json:"brother_id" validate:"required,max=64"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Vote      string `json:"vote" validate:"required"`
}

type rusheeRef struct {
	GTID string `json:"gtid" validate:"required,max=64"`
}

type eligibilityRequest struct {
	GTID string `validate:"required,max=64"`
}

type questionRequest struct {
	Question string `validate:"max=500"`
}

type Service struct {
	st  store.Store
	pub bus.Publisher
	v   *validator.Validate
	log *slog.Logger
}

func NewService(st store.Store, pub bus.Publisher, log *slog.Logger) *Service {
	return &Service{st: st, pub: pub, v: validator.New(), log: log.With("component", "voting")}
}

func (s *Service) validate(payload any) error {
	if err := s.v.Struct(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Submit records b unless the voter is ineligible or has already voted. Duplicate and
// ineligible submissions are outcomes, not errors, and leave the tally untouched.
func (s *Service) Submit(ctx context.Context, b Ballot) (domain.Outcome, error) {
	if err := s.validate(b); err != nil {
		return "", err
	}
	opt, err := domain.ParseVoteOption(b.Vote)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	ineligible, err := s.st.IsIneligible(ctx, b.BrotherID)
	if err != nil {
		return "", err
	}
	if ineligible {
		return domain.OutcomeIneligible, nil
	}

	voted, err := s.st.HasVoted(ctx, b.BrotherID)
	if err != nil {
		return "", err
	}
	if voted {
		return domain.OutcomeDuplicate, nil
	}

	record, err := json.Marshal(domain.Vote{
		BrotherID: b.BrotherID,
		FirstName: b.FirstName,
		LastName:  b.LastName,
		Vote:      opt,
	})
	if err != nil {
		return "", fmt.Errorf("encode vote: %w", err)
	}
	// A concurrent submission for the same voter can pass HasVoted; the conditional insert
	// settles it.
	written, err := s.st.RecordVote(ctx, b.BrotherID, string(record))
	if err != nil {
		return "", err
	}
	if !written {
		return domain.OutcomeDuplicate, nil
	}

	s.announce(ctx, snapshot.Votes, bus.PayloadUpdated)
	return domain.OutcomeSuccess, nil
}

// ChangeRushee makes record the current rushee. record must be a JSON object carrying a
// non-empty gtid.
func (s *Service) ChangeRushee(ctx context.Context, record json.RawMessage) error {
	var ref rusheeRef
	if err := json.Unmarshal(record, &ref); err != nil {
		return fmt.Errorf("%w: rushee must be a JSON object: %v", ErrInvalid, err)
	}
	if err := s.validate(ref); err != nil {
		return err
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, record); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := s.st.Set(ctx, store.KeyRushee, compact.String()); err != nil {
		return err
	}
	s.announce(ctx, snapshot.Rushee, bus.PayloadUpdated)
	return nil
}

// SetQuestion posts the active question. A blank question clears it.
func (s *Service) SetQuestion(ctx context.Context, question string) error {
	q := strings.TrimSpace(question)
	if err := s.validate(questionRequest{Question: q}); err != nil {
		return err
	}

	var err error
	if q == "" {
		err = s.st.Delete(ctx, store.KeyQuestion)
	} else {
		err = s.st.Set(ctx, store.KeyQuestion, q)
	}
	if err != nil {
		return err
	}
	s.announce(ctx, snapshot.Question, bus.PayloadUpdated)
	return nil
}

func (s *Service) ClearVotes(ctx context.Context) error {
	if err := s.st.ClearVotes(ctx); err != nil {
		return err
	}
	s.announce(ctx, snapshot.Votes, bus.PayloadCleared)
	return nil
}

func (s *Service) SetEligibility(ctx context.Context, gtid string, eligible bool) error {
	gtid = strings.TrimSpace(gtid)
	if err := s.validate(eligibilityRequest{GTID: gtid}); err != nil {
		return err
	}
	return s.st.SetIneligible(ctx, gtid, !eligible)
}

func (s *Service) Ineligible(ctx context.Context) ([]string, error) {
	return s.st.ListIneligible(ctx)
}

// announce publishes a change notification. The write has already landed, so a publish
// failure only delays subscribers until the next change and is logged rather than returned.
func (s *Service) announce(ctx context.Context, t snapshot.Topic, payload string) {
	if err := s.pub.Publish(ctx, t.Channel(), payload); err != nil {
		s.log.Warn("publish change notification failed", "topic", t.Channel(), "error", err)
	}
}
