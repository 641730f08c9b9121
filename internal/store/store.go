package store

import (
	"context"

	"github.com/rushapp/rushcast/internal/db"
)

// Keys of the single-value live state.
const (
	KeyRushee   = "rushee"
	KeyQuestion = "question"
)

// VoteEntry is one row of the vote log. Record is the serialized vote as it was written;
// readers must not assume it decodes.
type VoteEntry struct {
	VoterID string `json:"voter_id"`
	Record  string `json:"record"`
}

// Store is the authoritative state behind the broadcast hub.
type Store interface {
	Tally(ctx context.Context) ([]VoteEntry, error)
	HasVoted(ctx context.Context, voterID string) (bool, error)
	// RecordVote writes the vote only if voterID has none yet and reports whether it did.
	RecordVote(ctx context.Context, voterID, record string) (bool, error)
	ClearVotes(ctx context.Context) error

	IsIneligible(ctx context.Context, voterID string) (bool, error)
	SetIneligible(ctx context.Context, voterID string, ineligible bool) error
	ListIneligible(ctx context.Context) ([]string, error)

	// Get returns ok=false when key has no value.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type Postgres struct{ db *db.DB }

func NewPostgres(d *db.DB) *Postgres { return &Postgres{db: d} }

var _ Store = (*Postgres)(nil)
