package store

import (
	"context"
	"fmt"
)

func (s *Postgres) IsIneligible(ctx context.Context, voterID string) (bool, error) {
	var exists bool
	err := s.db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM ineligible_voters WHERE voter_id=$1)`, voterID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check eligibility: %w", err)
	}
	return exists, nil
}

func (s *Postgres) SetIneligible(ctx context.Context, voterID string, ineligible bool) error {
	var err error
	if ineligible {
		_, err = s.db.Pool.Exec(ctx, `INSERT INTO ineligible_voters(voter_id) VALUES ($1) ON CONFLICT (voter_id) DO NOTHING`, voterID)
	} else {
		_, err = s.db.Pool.Exec(ctx, `DELETE FROM ineligible_voters WHERE voter_id=$1`, voterID)
	}
	if err != nil {
		return fmt.Errorf("set eligibility: %w", err)
	}
	return nil
}

func (s *Postgres) ListIneligible(ctx context.Context) ([]string, error) {
	rows, err := s.db.Pool.Query(ctx, `SELECT voter_id FROM ineligible_voters ORDER BY voter_id`)
	if err != nil {
		return nil, fmt.Errorf("list ineligible: %w", err)
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
