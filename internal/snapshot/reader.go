package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/rushapp/rushcast/internal/domain"
	"github.com/rushapp/rushcast/internal/store"
)

// Reader fetches authoritative state for each topic. A missing key yields a null payload,
// never an error.
type Reader struct {
	store store.Store
	log   *slog.Logger
}

func NewReader(st store.Store, log *slog.Logger) *Reader {
	return &Reader{store: st, log: log.With("component", "snapshot")}
}

// Votes returns the full tally. Records that are not a complete vote are skipped.
func (r *Reader) Votes(ctx context.Context) (VoteUpdate, error) {
	entries, err := r.store.Tally(ctx)
	if err != nil {
		return VoteUpdate{}, fmt.Errorf("fetch tally: %w", err)
	}
	votes := make([]domain.Vote, 0, len(entries))
	for _, e := range entries {
		v, err := decodeVote(e.Record)
		if err != nil {
			r.log.Warn("skipping unreadable vote", "voter", e.VoterID, "error", err)
			continue
		}
		votes = append(votes, v)
	}
	return NewVoteUpdate(votes), nil
}

func (r *Reader) Rushee(ctx context.Context) (RusheeUpdate, error) {
	v, ok, err := r.store.Get(ctx, store.KeyRushee)
	if err != nil {
		return RusheeUpdate{}, fmt.Errorf("fetch rushee: %w", err)
	}
	if !ok {
		return NewRusheeUpdate(nil), nil
	}
	if !json.Valid([]byte(v)) {
		return RusheeUpdate{}, fmt.Errorf("decode rushee: stored value is not JSON")
	}
	return NewRusheeUpdate(json.RawMessage(v)), nil
}

func (r *Reader) Question(ctx context.Context) (QuestionUpdate, error) {
	v, ok, err := r.store.Get(ctx, store.KeyQuestion)
	if err != nil {
		return QuestionUpdate{}, fmt.Errorf("fetch question: %w", err)
	}
	if !ok {
		return NewQuestionUpdate(nil), nil
	}
	return NewQuestionUpdate(&v), nil
}

// decodeVote accepts only a record naming its voter and carrying a known option. JSON
// null and empty objects decode cleanly, so they are checked here rather than left to
// the decoder.
func decodeVote(record string) (domain.Vote, error) {
	var v domain.Vote
	if err := json.Unmarshal([]byte(record), &v); err != nil {
		return domain.Vote{}, err
	}
	if v.BrotherID == "" {
		return domain.Vote{}, fmt.Errorf("vote has no brother_id")
	}
	opt, err := domain.ParseVoteOption(string(v.Vote))
	if err != nil {
		return domain.Vote{}, err
	}
	v.Vote = opt
	return v, nil
}
