package snapshot

import (
	"encoding/json"

	"github.com/rushapp/rushcast/internal/domain"
)

// Envelope is a wire message. Encoding one with encoding/json yields the frame sent to
// subscribers.
type Envelope interface {
	Topic() Topic
}

type VoteUpdate struct {
	Type  string        `json:"type"`
	Votes []domain.Vote `json:"votes"`
}

func (VoteUpdate) Topic() Topic { return Votes }

// RusheeUpdate carries the stored rushee record verbatim; a nil Rushee encodes as null.
type RusheeUpdate struct {
	Type   string          `json:"type"`
	Rushee json.RawMessage `json:"rushee"`
}

func (RusheeUpdate) Topic() Topic { return Rushee }

type QuestionUpdate struct {
	Type     string  `json:"type"`
	Question *string `json:"question"`
}

func (QuestionUpdate) Topic() Topic { return Question }

func NewVoteUpdate(votes []domain.Vote) VoteUpdate {
	if votes == nil {
		votes = []domain.Vote{}
	}
	return VoteUpdate{Type: Votes.EnvelopeType(), Votes: votes}
}

func NewRusheeUpdate(raw json.RawMessage) RusheeUpdate {
	return RusheeUpdate{Type: Rushee.EnvelopeType(), Rushee: raw}
}

func NewQuestionUpdate(q *string) QuestionUpdate {
	return QuestionUpdate{Type: Question.EnvelopeType(), Question: q}
}

func Encode(e Envelope) ([]byte, error) {
	return json.Marshal(e)
}
