package exporter

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rushapp/rushcast/internal/logging"
	"github.com/rushapp/rushcast/internal/snapshot"
	"github.com/rushapp/rushcast/internal/store"
)

func seeded() *snapshot.Reader {
	st := store.NewMemory()
	st.PutRawVote("a", `{"brother_id":"a","first_name":"Ann","last_name":"Lee","vote":"Yes"}`)
	st.PutRawVote("b", `{"brother_id":"b","first_name":"Bo","last_name":"Diaz, Jr.","vote":"No"}`)
	st.PutRawVote("c", `{"brother_id":"c","first_name":"Cy","last_name":"Park","vote":"Yes"}`)
	st.PutRawVote("d", `null`)
	return snapshot.NewReader(st, logging.Discard())
}

func TestExportJSON(t *testing.T) {
	b, ct, err := Export(context.Background(), seeded(), "json")
	if err != nil {
		t.Fatal(err)
	}
	if ct != "application/json" {
		t.Errorf("unexpected content type %s", ct)
	}
	var out TallyExport
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatal(err)
	}
	if out.Summary != (Summary{Yes: 2, No: 1, Total: 3}) {
		t.Errorf("unexpected summary %+v", out.Summary)
	}
	if len(out.Votes) != 3 {
		t.Errorf("expected 3 votes, got %d", len(out.Votes))
	}
}

func TestExportCSV(t *testing.T) {
	b, ct, err := Export(context.Background(), seeded(), "csv")
	if err != nil {
		t.Fatal(err)
	}
	if ct != "text/csv" {
		t.Errorf("unexpected content type %s", ct)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header + 3 rows, got %q", b)
	}
	if lines[0] != "brother_id,first_name,last_name,vote" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[2] != `b,Bo,"Diaz, Jr.",No` {
		t.Errorf("expected quoted field, got %q", lines[2])
	}
}

func TestExportEmptyTally(t *testing.T) {
	b, _, err := Export(context.Background(), snapshot.NewReader(store.NewMemory(), logging.Discard()), "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"votes": []`) {
		t.Errorf("empty tally should export an empty list: %s", b)
	}
}

func TestExportUnknownFormat(t *testing.T) {
	if _, _, err := Export(context.Background(), seeded(), "graphml"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
