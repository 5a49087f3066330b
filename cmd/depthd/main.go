package main

import (
	"context"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"depthd/internal/api/rest"
	"depthd/internal/book"
	"depthd/internal/broadcast"
	"depthd/internal/config"
	"depthd/internal/feed"
	"depthd/internal/infra/health"
	"depthd/internal/infra/http/middleware"
	"depthd/internal/infra/log"
	"depthd/internal/infra/metrics"
	"depthd/internal/infra/netutil"
	"depthd/internal/infra/runner"
	"depthd/internal/infra/version"
	"depthd/internal/snapshot"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()
	logger := log.NewLogger(cfg)

	registry := metrics.Init(logger)

	store, err := snapshot.Open(cfg.Snapshot.Dir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.Snapshot.Dir).Msg("open snapshot store")
	}

	b := book.New(cfg.Grid.MaxLevels, cfg.Grid.PriceScale)
	applier := feed.NewApplier(cfg.Instrument, b, logger)

	// Warm start: restore the last persisted book so readiness does not
	// wait for the next feed snapshot. A feed snapshot still supersedes
	// this state when it arrives.
	if snap, ok, err := store.Load(cfg.Instrument); err != nil {
		logger.Warn().Err(err).Msg("load snapshot")
	} else if ok {
		if err := applier.Restore(snap.Bids, snap.Asks, snap.Sequence); err != nil {
			logger.Warn().Err(err).Uint64("seq", snap.Sequence).Msg("restore snapshot")
		} else {
			logger.Info().Uint64("seq", snap.Sequence).Time("taken", snap.Time).Msg("warm start from snapshot")
		}
	}

	var caster *broadcast.Broadcaster
	if cfg.Broadcast.Enabled {
		caster, err = broadcast.New(cfg.Broadcast.Brokers, cfg.Broadcast.Topic, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("start broadcaster")
		}
		applier.OnTouch(caster.Publish)
	}

	mux := http.NewServeMux()
	// admin endpoints (metrics, pprof) behind IP allowlist gate
	adminCIDRs := netutil.MustParseCIDRs(cfg.Server.AdminAllowCIDRs)
	mux.Handle("/metrics", middleware.AdminGate(adminCIDRs, metrics.Handler(registry)))
	mux.HandleFunc("/healthz", health.Healthz)
	mux.HandleFunc("/readyz", health.Readyz)
	mux.HandleFunc("/version", version.Handler)
	mux.Handle("/", rest.New(applier).Handler())
	if cfg.Server.Pprof {
		mux.Handle("/debug/pprof/", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Index)))
		mux.Handle("/debug/pprof/cmdline", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Cmdline)))
		mux.Handle("/debug/pprof/profile", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Profile)))
		mux.Handle("/debug/pprof/symbol", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Symbol)))
		mux.Handle("/debug/pprof/trace", middleware.AdminGate(adminCIDRs, http.HandlerFunc(pprof.Trace)))
	}

	handler := middleware.RequestID(middleware.Logger(logger)(mux))

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	logger.Info().Str("addr", cfg.Server.Addr).Str("topic", cfg.Feed.Topic).Msg("depthd started")

	g := &runner.Group{}

	source := feed.NewKafkaSource(cfg.Feed.Brokers, cfg.Feed.Topic, cfg.Feed.Group, applier, logger)
	feedErrCh := g.Go(ctx, source.Run)

	snapshotErrCh := g.Go(ctx, func(ctx context.Context) error {
		ticker := time.NewTicker(time.Duration(cfg.Snapshot.IntervalSeconds) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if !applier.Synced() {
					continue
				}
				persistSnapshot(store, applier, logger)
			}
		}
	})

	// Ready only once the book is synced; a cold start stays 503 on
	// /readyz until the first snapshot lands.
	health.SetReady(applier.Synced())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-ctx.Done():
	case s := <-sigCh:
		logger.Info().Str("signal", s.String()).Msg("shutdown signal received")
	case err := <-feedErrCh:
		if err != nil {
			logger.Error().Err(err).Msg("feed worker error")
			health.SetReady(false)
		}
	case err := <-snapshotErrCh:
		if err != nil {
			logger.Error().Err(err).Msg("snapshot worker error")
			health.SetReady(false)
		}
	}

	health.SetReady(false)
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	if err := source.Close(); err != nil {
		logger.Warn().Err(err).Msg("close feed source")
	}
	g.Wait()

	// Final snapshot so the next start resumes from the freshest state.
	if applier.Synced() {
		persistSnapshot(store, applier, logger)
	}
	if caster != nil {
		if err := caster.Close(); err != nil {
			logger.Warn().Err(err).Msg("close broadcaster")
		}
	}
	if err := store.Close(); err != nil {
		logger.Warn().Err(err).Msg("close snapshot store")
	}
	logger.Info().Msg("shutdown complete")
}

func persistSnapshot(store *snapshot.Store, applier *feed.Applier, logger log.Logger) {
	bids, asks, seq := applier.State()
	err := store.Save(applier.Instrument(), snapshot.Snapshot{
		Sequence: seq,
		Time:     time.Now().UTC(),
		Bids:     bids,
		Asks:     asks,
	})
	if err != nil {
		metrics.SnapshotWriteErrorsTotal.Inc()
		logger.Warn().Err(err).Uint64("seq", seq).Msg("persist snapshot")
		return
	}
	metrics.SnapshotWritesTotal.Inc()
	logger.Debug().Uint64("seq", seq).Int("bids", len(bids)).Int("asks", len(asks)).Msg("snapshot persisted")
}
