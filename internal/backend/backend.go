// Package backend opens the store and bus selected by configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rushapp/rushcast/internal/bus"
	"github.com/rushapp/rushcast/internal/bus/natsbus"
	"github.com/rushapp/rushcast/internal/bus/pgbus"
	"github.com/rushapp/rushcast/internal/config"
	"github.com/rushapp/rushcast/internal/db"
	"github.com/rushapp/rushcast/internal/store"
)

type Set struct {
	DB    *db.DB
	Store store.Store
	Bus   bus.Bus
}

// Open connects every configured backend. When migrate is set and a database is in use,
// pending migrations are applied before returning.
func Open(ctx context.Context, cfg *config.Config, migrate bool, log *slog.Logger) (*Set, error) {
	s := &Set{}

	if cfg.NeedsDB() {
		d, err := db.Open(ctx, cfg.DB.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		s.DB = d
		if migrate {
			if err := db.ApplyMigrations(ctx, d); err != nil {
				d.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
		}
	}

	switch cfg.Store.Driver {
	case config.DriverPostgres:
		s.Store = store.NewPostgres(s.DB)
	case config.DriverMemory:
		s.Store = store.NewMemory()
	default:
		s.Close()
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	switch cfg.Bus.Driver {
	case config.DriverPostgres:
		s.Bus = pgbus.New(s.DB, log)
	case config.DriverNATS:
		nb, err := natsbus.Connect(cfg.Bus.NATSURL, cfg.Bus.SubjectPrefix, log)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Bus = nb
	case config.DriverMemory:
		s.Bus = bus.NewMemory()
	default:
		s.Close()
		return nil, fmt.Errorf("unknown bus driver %q", cfg.Bus.Driver)
	}

	log.Info("backends ready", "store", cfg.Store.Driver, "bus", cfg.Bus.Driver)
	return s, nil
}

func (s *Set) Close() {
	if s.Bus != nil {
		_ = s.Bus.Close()
	}
	s.DB.Close()
}
