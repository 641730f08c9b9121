package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rushapp/rushcast/internal/api"
	"github.com/rushapp/rushcast/internal/backend"
	"github.com/rushapp/rushcast/internal/config"
	"github.com/rushapp/rushcast/internal/db"
	"github.com/rushapp/rushcast/internal/hub"
	"github.com/rushapp/rushcast/internal/logging"
	"github.com/rushapp/rushcast/internal/snapshot"
	"github.com/rushapp/rushcast/internal/voting"
)

func Main() {
	var cfgPath string

	root := &cobra.Command{Use: "rushcastd", Short: "rushcast daemon (websocket hub + voting API)"}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (yaml)")

	root.AddCommand(migrateCmd(&cfgPath))
	root.AddCommand(serveCmd(&cfgPath))

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func migrateCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if cfg.DB.DSN == "" {
				return fmt.Errorf("db.dsn is required to migrate")
			}
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			dbConn, err := db.Open(ctx, cfg.DB.DSN)
			if err != nil {
				return err
			}
			defer dbConn.Close()
			return db.ApplyMigrations(ctx, dbConn)
		},
	}
}

func serveCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the hub, the notification listener and the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			log := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
			slog.SetDefault(log)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			backends, err := backend.Open(openCtx, cfg, true, log)
			cancel()
			if err != nil {
				return err
			}
			defer backends.Close()

			return serve(ctx, cfg, backends, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, backends *backend.Set, log *slog.Logger) error {
	reader := snapshot.NewReader(backends.Store, log)
	table := snapshot.NewTable(reader)
	h := hub.New(table, hub.Options{
		QueueSize:    cfg.Hub.QueueSize,
		WriteTimeout: cfg.Hub.WriteTimeout,
		PingInterval: cfg.Hub.PingInterval,
	}, log)
	listener := hub.NewListener(backends.Bus, table, h, log)
	votes := voting.NewService(backends.Store, backends.Bus, log)

	srv := &http.Server{
		Addr:              cfg.API.Listen,
		Handler:           api.New(cfg, h, votes, reader, log).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := listener.Run(gctx); err != nil {
			return fmt.Errorf("listener: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("rushcastd listening", "addr", cfg.API.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// Stop accepting upgrades before retiring the subscribers already connected.
		err := srv.Shutdown(shCtx)
		h.Close()
		if err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
