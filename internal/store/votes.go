package store

import (
	"context"
	"fmt"
)

func (s *Postgres) Tally(ctx context.Context) ([]VoteEntry, error) {
	rows, err := s.db.Pool.Query(ctx, `SELECT voter_id, record FROM vote_log ORDER BY created_at, voter_id`)
	if err != nil {
		return nil, fmt.Errorf("read tally: %w", err)
	}
	defer rows.Close()
	out := []VoteEntry{}
	for rows.Next() {
		var e VoteEntry
		if err := rows.Scan(&e.VoterID, &e.Record); err != nil {
			return nil, fmt.Errorf("scan vote: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Postgres) HasVoted(ctx context.Context, voterID string) (bool, error) {
	var exists bool
	err := s.db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM vote_log WHERE voter_id=$1)`, voterID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check vote: %w", err)
	}
	return exists, nil
}

func (s *Postgres) RecordVote(ctx context.Context, voterID, record string) (bool, error) {
	tag, err := s.db.Pool.Exec(ctx, `
INSERT INTO vote_log(voter_id, record)
VALUES ($1, $2)
ON CONFLICT (voter_id) DO NOTHING;
`, voterID, record)
	if err != nil {
		return false, fmt.Errorf("record vote: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Postgres) ClearVotes(ctx context.Context) error {
	if _, err := s.db.Pool.Exec(ctx, `DELETE FROM vote_log`); err != nil {
		return fmt.Errorf("clear votes: %w", err)
	}
	return nil
}
