package app

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xenking/cart-offers/internal/handler"
	"github.com/xenking/cart-offers/pkg/health"
	"github.com/xenking/cart-offers/pkg/httpmiddleware"
)

// RouterConfig holds the dependencies of NewRouter.
type RouterConfig struct {
	Logger       *zap.Logger
	Telemetry    httpmiddleware.Telemetry
	Health       *health.Health
	Service      handler.Service
	MaxBodyBytes int64
	RateLimit    httpmiddleware.RateLimitConfig
}

// NewRouter builds the HTTP handler: probe endpoints plus the offer API,
// behind the shared middleware chain. Background work stops with ctx.
func NewRouter(ctx context.Context, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(
		httpmiddleware.Recovery(),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(cfg.Logger),
		httpmiddleware.Instrument("offers", httpmiddleware.ChiRoute, cfg.Telemetry),
		httpmiddleware.LogRequests(httpmiddleware.ChiRoute),
		httpmiddleware.RateLimit(ctx, cfg.RateLimit),
	)
	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	r.Get("/livez", cfg.Health.LiveEndpoint)
	r.Get("/readyz", cfg.Health.ReadyEndpoint)
	r.Get("/health", cfg.Health.HealthEndpoint)

	h := handler.NewHandler(handler.HandlerConfig{MaxBodyBytes: cfg.MaxBodyBytes}, cfg.Service)
	h.Register(r)

	return r
}
