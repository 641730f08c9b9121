package cli

import (
	"bytes"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashTokenFromArg(t *testing.T) {
	root := newRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"hash-token", "--cost", "4", "letmein"})

	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	hash := strings.TrimSpace(out.String())
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("letmein")); err != nil {
		t.Fatalf("hash does not match token: %v", err)
	}
}

func TestHashTokenFromStdin(t *testing.T) {
	root := newRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetIn(strings.NewReader("from-stdin\n"))
	root.SetArgs([]string{"hash-token", "--cost", "4"})

	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out.String())), []byte("from-stdin")); err != nil {
		t.Fatalf("hash does not match token: %v", err)
	}
}

func TestRejectsMemoryStore(t *testing.T) {
	t.Setenv("RUSHCAST_STORE_DRIVER", "memory")
	t.Setenv("RUSHCAST_BUS_DRIVER", "memory")

	root := newRoot()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"clear-votes"})

	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "store.driver=postgres") {
		t.Fatalf("expected a driver error, got %v", err)
	}
}

func TestTallyRejectsUnknownFormat(t *testing.T) {
	root := newRoot()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"tally", "--format", "graphml"})

	if err := root.Execute(); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
