package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/cart-offers/internal/domain/offer"
)

// Service is the set of offer operations exposed over HTTP.
type Service interface {
	SetOffer(ctx context.Context, req offer.SetOfferRequest) error
	SetSegment(ctx context.Context, userID int64, segment offer.Segment) error
	GetSegment(ctx context.Context, userID int64) (offer.Segment, error)
	ApplyOffer(ctx context.Context, req offer.ApplyOfferRequest) (offer.Result, error)
}

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// MaxBodyBytes limits request body size. Zero means 1 MiB.
	MaxBodyBytes int64
}

// Handler translates HTTP requests into Service calls and maps the results
// (or errors) back to JSON responses.
type Handler struct {
	svc          Service
	maxBodyBytes int64
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig, svc Service) *Handler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	return &Handler{
		svc:          svc,
		maxBodyBytes: cfg.MaxBodyBytes,
	}
}

// Register mounts the API routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/offer", h.SetOffer)
		r.Post("/cart/apply_offer", h.ApplyOffer)
		r.Get("/user_segment", h.GetUserSegment)
		r.Post("/user_segment", h.SetUserSegment)
	})
}

// NotFound responds to unknown routes.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}

// MethodNotAllowed responds to known routes called with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// readBody returns the size-limited request body.
func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var mbErr *http.MaxBytesError
		if errors.As(err, &mbErr) {
			return nil, &offer.ValidationError{Reason: "request body too large"}
		}
		return nil, errors.Wrap(err, "read body")
	}
	return data, nil
}

var successBody = func() []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("response_msg", func(e *jx.Encoder) { e.Str("success") })
	})
	return e.Bytes()
}()

func writeSuccess(w http.ResponseWriter) {
	writeBody(w, http.StatusOK, successBody)
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	encode(e)
	writeBody(w, status, e.Bytes())
}

func writeBody(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Status is already written; a failed write means the client went away.
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("error", func(e *jx.Encoder) { e.Str(msg) })
		})
	})
}

// mapError converts domain errors to HTTP responses. Unknown errors are
// logged and reported as 500 without leaking their text.
func mapError(ctx context.Context, w http.ResponseWriter, err error) {
	var vErr *offer.ValidationError
	if errors.As(err, &vErr) {
		writeError(w, http.StatusBadRequest, vErr.Error())
		return
	}

	var nfErr *offer.NotFoundError
	if errors.As(err, &nfErr) {
		writeError(w, http.StatusNotFound, nfErr.Error())
		return
	}

	zctx.From(ctx).Error("Request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error")
}
