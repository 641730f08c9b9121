package domain

import (
	"fmt"
	"strings"
)

type VoteOption string

const (
	VoteYes     VoteOption = "Yes"
	VoteNo      VoteOption = "No"
	VoteAbstain VoteOption = "Abstain"
)

// ParseVoteOption accepts yes/no/abstain in any case.
func ParseVoteOption(s string) (VoteOption, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes":
		return VoteYes, nil
	case "no":
		return VoteNo, nil
	case "abstain":
		return VoteAbstain, nil
	}
	return "", fmt.Errorf("invalid vote option %q", s)
}

// Vote is the record stored in the vote log and delivered in vote_update envelopes.
type Vote struct {
	BrotherID string     `json:"brother_id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Vote      VoteOption `json:"vote"`
}

// Outcome is the result of a vote submission. Only OutcomeSuccess changes the tally.
type Outcome string

const (
	OutcomeSuccess    Outcome = "success"
	OutcomeDuplicate  Outcome = "duplicate"
	OutcomeIneligible Outcome = "ineligible"
)
