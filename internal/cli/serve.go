package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/auction-room-backend/internal/ai"
	"github.com/DoyleJ11/auction-room-backend/internal/config"
	"github.com/DoyleJ11/auction-room-backend/internal/history"
	"github.com/DoyleJ11/auction-room-backend/internal/httpapi"
	"github.com/DoyleJ11/auction-room-backend/internal/hub"
	"github.com/DoyleJ11/auction-room-backend/internal/room"
	"github.com/DoyleJ11/auction-room-backend/internal/snapshot"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg.Log)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) (err error) {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, closeDB(db)) }()

	provider, err := newCatalogProvider(cfg, db)
	if err != nil {
		return err
	}
	// A broken default season should stop the server, not every room.
	if _, err := provider.Load(ctx, cfg.Catalog.Season); err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	opts := room.Options{
		Logger:       log,
		Clock:        clockwork.NewRealClock(),
		Strategy:     ai.NewBudgeted(),
		IdleTimeout:  cfg.Room.IdleTimeout,
		AIThinkDelay: cfg.Room.AIThinkDelay,
	}
	if db != nil && cfg.Postgres.History {
		rec := history.NewGormRecorder(db, log)
		if err := rec.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate history: %w", err)
		}
		opts.Recorder = rec
	}

	var (
		watchers []hub.Watcher
		snaps    httpapi.SnapshotReader
	)
	if cfg.Redis.URL != "" {
		scfg := snapshot.DefaultConfig()
		scfg.URL = cfg.Redis.URL
		scfg.TTL = cfg.Redis.SnapshotTTL
		store, serr := snapshot.New(scfg, log)
		if serr != nil {
			return fmt.Errorf("connect redis: %w", serr)
		}
		defer func() { err = multierr.Append(err, store.Close()) }()
		watchers = append(watchers, store)
		snaps = store
	}

	// The hub outlives ctx so shutdown can drain rooms in order.
	h := hub.NewHub(context.Background(), opts, watchers...)
	srv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Hub:       h,
			Catalogs:  provider,
			Rules:     cfg.Rules.Engine(),
			Season:    cfg.Catalog.Season,
			Snapshots: snaps,
			Log:       log,
		}),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return multierr.Combine(srv.Shutdown(sctx), h.Shutdown(sctx))
	})
	return g.Wait()
}
