package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/rushapp/rushcast/internal/backend"
	"github.com/rushapp/rushcast/internal/config"
	"github.com/rushapp/rushcast/internal/logging"
)

func TestServeStopsOnCancel(t *testing.T) {
	t.Setenv("RUSHCAST_STORE_DRIVER", "memory")
	t.Setenv("RUSHCAST_BUS_DRIVER", "memory")
	t.Setenv("RUSHCAST_API_LISTEN", "127.0.0.1:0")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	log := logging.Discard()
	b, err := backend.Open(context.Background(), cfg, false, log)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, b, log) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}
