package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/cart-offers/internal/domain/offer"
	"github.com/xenking/cart-offers/internal/storage/memory"
	"github.com/xenking/cart-offers/pkg/health"
	"github.com/xenking/cart-offers/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	offers := memory.NewOfferStore()
	segments := memory.NewSegmentStore()

	svc, err := offer.NewService(offers, segments, m.TracerProvider(), m.MeterProvider())
	if err != nil {
		return errors.Wrap(err, "create offer service")
	}

	healthSvc := health.New(lg.Named("health"))
	healthSvc.Add(health.Check{
		Name: "goroutines",
		Kind: health.Liveness,
		Func: health.GoroutineCountCheck(cfg.Health.MaxGoroutines),
	})
	healthSvc.Add(health.Check{
		Name: "gc_pause",
		Kind: health.Liveness,
		Func: health.GCMaxPauseCheck(cfg.Health.MaxGCPause),
	})
	healthSvc.Add(health.Check{
		Name: "offer_store",
		Kind: health.Readiness,
		Func: health.CapacityCheck(offers, cfg.Health.MaxEntries),
	})
	healthSvc.Add(health.Check{
		Name: "segment_store",
		Kind: health.Readiness,
		Func: health.CapacityCheck(segments, cfg.Health.MaxEntries),
	})
	healthSvc.Start(ctx, cfg.Health.Interval)
	healthSvc.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: NewRouter(ctx, RouterConfig{
			Logger:       zctx.From(ctx),
			Telemetry:    m,
			Health:       healthSvc,
			Service:      svc,
			MaxBodyBytes: cfg.MaxBodyBytes,
			RateLimit: httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			},
		}),
	}

	// Graceful shutdown: drop readiness, wait for load balancers, then drain.
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()

		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone

	lg.Info("Server stopped",
		zap.Int("offers", offers.Len()),
		zap.Int("segments", segments.Len()),
	)
	return nil
}
