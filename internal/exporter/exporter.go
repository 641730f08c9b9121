package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"

	"github.com/rushapp/rushcast/internal/domain"
	"github.com/rushapp/rushcast/internal/snapshot"
)

// TallySource is satisfied by *snapshot.Reader.
type TallySource interface {
	Votes(ctx context.Context) (snapshot.VoteUpdate, error)
}

type Summary struct {
	Yes     int `json:"yes"`
	No      int `json:"no"`
	Abstain int `json:"abstain"`
	Total   int `json:"total"`
}

type TallyExport struct {
	Summary Summary       `json:"summary"`
	Votes   []domain.Vote `json:"votes"`
}

func Summarize(votes []domain.Vote) Summary {
	var s Summary
	for _, v := range votes {
		switch v.Vote {
		case domain.VoteYes:
			s.Yes++
		case domain.VoteNo:
			s.No++
		case domain.VoteAbstain:
			s.Abstain++
		}
	}
	s.Total = len(votes)
	return s
}

// Export renders the tally in format ("json" or "csv") and returns the body with its
// content type.
func Export(ctx context.Context, src TallySource, format string) ([]byte, string, error) {
	switch format {
	case "", "json":
		return ExportTallyJSON(ctx, src)
	case "csv":
		return ExportTallyCSV(ctx, src)
	default:
		return nil, "", fmt.Errorf("unknown format %q (use json|csv)", format)
	}
}

func ExportTallyJSON(ctx context.Context, src TallySource) ([]byte, string, error) {
	upd, err := src.Votes(ctx)
	if err != nil {
		return nil, "", err
	}
	b, err := json.MarshalIndent(TallyExport{Summary: Summarize(upd.Votes), Votes: upd.Votes}, "", "  ")
	if err != nil {
		return nil, "", err
	}
	return b, "application/json", nil
}

func ExportTallyCSV(ctx context.Context, src TallySource) ([]byte, string, error) {
	upd, err := src.Votes(ctx)
	if err != nil {
		return nil, "", err
	}
	buf := new(bytes.Buffer)
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"brother_id", "first_name", "last_name", "vote"})
	for _, v := range upd.Votes {
		_ = w.Write([]string{v.BrotherID, v.FirstName, v.LastName, string(v.Vote)})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "text/csv", nil
}
