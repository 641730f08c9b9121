package backend

import (
	"context"
	"testing"

	"github.com/rushapp/rushcast/internal/bus"
	"github.com/rushapp/rushcast/internal/config"
	"github.com/rushapp/rushcast/internal/logging"
	"github.com/rushapp/rushcast/internal/store"
)

func TestOpenMemory(t *testing.T) {
	cfg := &config.Config{}
	cfg.Store.Driver = config.DriverMemory
	cfg.Bus.Driver = config.DriverMemory

	s, err := Open(context.Background(), cfg, true, logging.Discard())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if s.DB != nil {
		t.Error("memory drivers should not open a database")
	}
	if _, ok := s.Store.(*store.Memory); !ok {
		t.Errorf("expected memory store, got %T", s.Store)
	}
	if _, ok := s.Bus.(*bus.Memory); !ok {
		t.Errorf("expected memory bus, got %T", s.Bus)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	cfg := &config.Config{}
	cfg.Store.Driver = "mongo"
	cfg.Bus.Driver = config.DriverMemory

	if _, err := Open(context.Background(), cfg, false, logging.Discard()); err == nil {
		t.Fatal("expected error for unknown store driver")
	}
}
