package offer

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/xenking/cart-offers/internal/domain/offer"

// Apply outcomes recorded on the offers.apply.requests counter.
const (
	OutcomeDiscounted     = "discounted"
	OutcomeNoOffer        = "no_offer"
	OutcomeSegmentMissing = "segment_missing"
	OutcomeInvalid        = "invalid"
)

// OfferRepository stores offers keyed by restaurant and segment.
type OfferRepository interface {
	OfferLookup
	SetOffer(restaurantID int64, t OfferType, value decimal.Decimal, segments []Segment) error
}

// SegmentRepository stores the segment assigned to each user.
type SegmentRepository interface {
	SegmentLookup
	SetSegment(userID int64, segment Segment) error
}

// SetOfferRequest holds the input for creating or overwriting offers.
type SetOfferRequest struct {
	RestaurantID int64
	Type         OfferType
	Value        decimal.Decimal
	Segments     []Segment
}

// ApplyOfferRequest holds the input for applying an offer to a cart.
type ApplyOfferRequest struct {
	CartValue    decimal.Decimal
	UserID       int64
	RestaurantID int64
}

// Service exposes the offer operations to the transport layer.
type Service struct {
	offers   OfferRepository
	segments SegmentRepository
	engine   *Engine

	tracer        trace.Tracer
	applyRequests metric.Int64Counter
	offerWrites   metric.Int64Counter
	segmentWrites metric.Int64Counter
}

// NewService creates a Service backed by the given repositories.
func NewService(
	offers OfferRepository,
	segments SegmentRepository,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) (*Service, error) {
	meter := mp.Meter(instrumentationName)

	applyRequests, err := meter.Int64Counter("offers.apply.requests",
		metric.WithDescription("Offer applications by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create apply counter")
	}
	offerWrites, err := meter.Int64Counter("offers.set.requests",
		metric.WithDescription("Offer writes by result"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create offer write counter")
	}
	segmentWrites, err := meter.Int64Counter("segments.set.requests",
		metric.WithDescription("Segment assignments by result"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create segment write counter")
	}

	return &Service{
		offers:        offers,
		segments:      segments,
		engine:        NewEngine(offers, segments),
		tracer:        tp.Tracer(instrumentationName),
		applyRequests: applyRequests,
		offerWrites:   offerWrites,
		segmentWrites: segmentWrites,
	}, nil
}

// SetOffer writes the offer for every requested segment of the restaurant.
// Either all segments are written or none.
func (s *Service) SetOffer(ctx context.Context, req SetOfferRequest) (rerr error) {
	ctx, span := s.tracer.Start(ctx, "offer.SetOffer", trace.WithAttributes(
		attribute.Int64("restaurant.id", req.RestaurantID),
		attribute.String("offer.type", string(req.Type)),
		attribute.Int("offer.segments", len(req.Segments)),
	))
	defer func() {
		s.offerWrites.Add(ctx, 1, metric.WithAttributes(resultAttr(rerr)))
		endSpan(span, rerr)
	}()

	if err := validateID("restaurant_id", req.RestaurantID); err != nil {
		return err
	}
	if err := s.offers.SetOffer(req.RestaurantID, req.Type, req.Value, req.Segments); err != nil {
		return err
	}

	zctx.From(ctx).Info("Offer stored",
		zap.Int64("restaurant_id", req.RestaurantID),
		zap.String("offer_type", string(req.Type)),
		zap.Stringer("offer_value", req.Value),
		zap.Int("segments", len(req.Segments)),
	)
	return nil
}

// SetSegment assigns a segment to a user, replacing any previous assignment.
func (s *Service) SetSegment(ctx context.Context, userID int64, segment Segment) (rerr error) {
	ctx, span := s.tracer.Start(ctx, "offer.SetSegment", trace.WithAttributes(
		attribute.Int64("user.id", userID),
		attribute.String("user.segment", string(segment)),
	))
	defer func() {
		s.segmentWrites.Add(ctx, 1, metric.WithAttributes(resultAttr(rerr)))
		endSpan(span, rerr)
	}()

	if err := validateID("user_id", userID); err != nil {
		return err
	}
	if err := s.segments.SetSegment(userID, segment); err != nil {
		return err
	}

	zctx.From(ctx).Debug("Segment assigned",
		zap.Int64("user_id", userID),
		zap.String("segment", string(segment)),
	)
	return nil
}

// GetSegment returns the user's segment or ErrSegmentNotFound. Any integer is
// a valid lookup key; IDs that can never be assigned simply miss.
func (s *Service) GetSegment(ctx context.Context, userID int64) (_ Segment, rerr error) {
	_, span := s.tracer.Start(ctx, "offer.GetSegment", trace.WithAttributes(
		attribute.Int64("user.id", userID),
	))
	defer func() { endSpan(span, rerr) }()

	seg, ok := s.segments.GetSegment(userID)
	if !ok {
		return "", ErrSegmentNotFound
	}
	span.SetAttributes(attribute.String("user.segment", string(seg)))
	return seg, nil
}

// ApplyOffer computes the discounted cart value for the request.
func (s *Service) ApplyOffer(ctx context.Context, req ApplyOfferRequest) (res Result, rerr error) {
	ctx, span := s.tracer.Start(ctx, "offer.ApplyOffer", trace.WithAttributes(
		attribute.Int64("user.id", req.UserID),
		attribute.Int64("restaurant.id", req.RestaurantID),
	))
	defer func() {
		s.applyRequests.Add(ctx, 1, metric.WithAttributes(
			attribute.String("outcome", applyOutcome(res, rerr)),
		))
		endSpan(span, rerr)
	}()

	if err := validateID("user_id", req.UserID); err != nil {
		return Result{}, err
	}
	if err := validateID("restaurant_id", req.RestaurantID); err != nil {
		return Result{}, err
	}

	res, err := s.engine.Apply(req.CartValue, req.UserID, req.RestaurantID)
	if err != nil {
		return Result{}, err
	}

	lg := zctx.From(ctx)
	if res.Applied() {
		lg.Debug("Offer applied",
			zap.Int64("user_id", req.UserID),
			zap.Int64("restaurant_id", req.RestaurantID),
			zap.String("segment", string(res.Segment)),
			zap.String("offer_type", string(res.Offer.Type)),
			zap.Stringer("cart_value", req.CartValue),
			zap.Stringer("final_cart_value", res.CartValue),
		)
	} else {
		lg.Debug("No offer for segment",
			zap.Int64("restaurant_id", req.RestaurantID),
			zap.String("segment", string(res.Segment)),
		)
	}
	return res, nil
}

func validateID(field string, id int64) error {
	if id <= 0 {
		return &ValidationError{Field: field, Reason: "must be a positive integer"}
	}
	return nil
}

func applyOutcome(res Result, err error) string {
	var nfErr *NotFoundError
	switch {
	case err == nil && res.Applied():
		return OutcomeDiscounted
	case err == nil:
		return OutcomeNoOffer
	case errors.As(err, &nfErr):
		return OutcomeSegmentMissing
	default:
		return OutcomeInvalid
	}
}

func resultAttr(err error) attribute.KeyValue {
	if err != nil {
		return attribute.String("result", "rejected")
	}
	return attribute.String("result", "ok")
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
