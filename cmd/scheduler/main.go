// Command scheduler runs the station-side packet batching scheduler:
// the periodic and random producers, the deadline-triggered batcher, the
// TX-power controller, and the HTTP/WebSocket control surface, all
// rooted under one errgroup so a single signal-driven shutdown stops
// every task deterministically.
package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sprintradio/txsched/internal/batcher"
	"github.com/sprintradio/txsched/internal/clock"
	"github.com/sprintradio/txsched/internal/config"
	"github.com/sprintradio/txsched/internal/control"
	"github.com/sprintradio/txsched/internal/frame"
	"github.com/sprintradio/txsched/internal/producer"
	"github.com/sprintradio/txsched/internal/radio"
	"github.com/sprintradio/txsched/internal/receiver"
	"github.com/sprintradio/txsched/internal/sched"
	"github.com/sprintradio/txsched/internal/txpower"
)

func main() {
	devMode := flag.Bool("dev", false, "use a development zap logger instead of the production config")
	flag.Parse()

	logger := newLogger(*devMode)
	defer logger.Sync()

	cfg := config.Load()
	logger.Info("scheduler: starting", zap.String("node_id", cfg.NodeID))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	clk := clock.NewSystem()
	sc := sched.New(clk, logger, cfg.Classes, cfg.Random, cfg.ThresholdMs)

	r := radio.NewZMQRadio(cfg.RadioEndpointURLs(), func(context.Context) (int8, error) {
		return -60, nil
	}, logger)
	defer r.Close()

	// rx/sub model the AP-side receive pipeline tapping this station's own
	// injection endpoint, giving a single demo binary both sides of the
	// link for end-to-end smoke testing without a second process.
	rx := receiver.New(clk, logger, cfg.PeerMAC, frame.DirUplink, nil)
	sub := radio.NewZMQSubscriber(cfg.RadioEndpoint, logger)

	b := batcher.New(sc, r, frame.DirUplink, cfg.SelfMAC, cfg.PeerMAC, cfg.BSSID)
	typedProd := producer.NewTyped(sc)
	randomProd := producer.NewRandom(sc, nil)
	tx := txpower.New(r, txpower.DefaultThresholds(), logger)

	ctrl := control.New(sc, r, tx, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.Run(gctx) })
	g.Go(func() error { return typedProd.Run(gctx) })
	g.Go(func() error { return randomProd.Run(gctx) })
	g.Go(func() error { return tx.Run(gctx, cfg.TXPowerInterval) })
	g.Go(func() error { ctrl.BroadcastLoop(batcher.TickInterval); return nil })
	g.Go(func() error { return sub.Run(gctx, rx.Handle) })

	controlSrv := &http.Server{Addr: cfg.ControlAddr, Handler: ctrl.Router()}
	g.Go(func() error { return runHTTP(gctx, controlSrv, logger, "control") })

	if cfg.EnableMetrics {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux}
		g.Go(func() error { return runHTTP(gctx, metricsSrv, logger, "metrics") })
	}

	if err := g.Wait(); err != nil && gctx.Err() == nil {
		logger.Error("scheduler: task group exited with error", zap.Error(err))
	}
	ctrl.Stop()
	logger.Info("scheduler: shutdown complete")
}

// runHTTP serves srv until ctx is canceled, then shuts it down gracefully,
// matching the ListenAndServe-plus-signal-wait shutdown shape.
func runHTTP(ctx context.Context, srv *http.Server, logger *zap.Logger, name string) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("scheduler: http server listening", zap.String("server", name), zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("scheduler: http server shutdown error", zap.String("server", name), zap.Error(err))
		}
		return nil
	case err := <-errCh:
		return err
	}
}

func newLogger(dev bool) *zap.Logger {
	if dev {
		l, err := zap.NewDevelopment()
		if err != nil {
			return zap.NewNop()
		}
		return l
	}
	l, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return l
}
