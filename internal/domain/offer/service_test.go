package offer

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// --- Fakes ---

type fakeOfferRepo struct {
	fakeOffers
	setErr error
	calls  int
}

func (f *fakeOfferRepo) SetOffer(restaurantID int64, t OfferType, value decimal.Decimal, segments []Segment) error {
	f.calls++
	if f.setErr != nil {
		return f.setErr
	}
	for _, seg := range segments {
		f.fakeOffers[offerKey{restaurantID, seg}] = Offer{Type: t, Value: value}
	}
	return nil
}

type fakeSegmentRepo struct {
	fakeSegments
	setErr error
}

func (f *fakeSegmentRepo) SetSegment(userID int64, segment Segment) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.fakeSegments[userID] = segment
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeOfferRepo, *fakeSegmentRepo) {
	t.Helper()

	offers := &fakeOfferRepo{fakeOffers: fakeOffers{}}
	segments := &fakeSegmentRepo{fakeSegments: fakeSegments{}}
	svc, err := NewService(offers, segments, tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
	require.NoError(t, err)
	return svc, offers, segments
}

// --- Tests ---

func TestService_ApplyOffer(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	require.NoError(t, svc.SetOffer(ctx, SetOfferRequest{
		RestaurantID: 1,
		Type:         FlatPercent,
		Value:        d("10"),
		Segments:     []Segment{SegmentP2},
	}))
	require.NoError(t, svc.SetSegment(ctx, 2, SegmentP2))

	res, err := svc.ApplyOffer(ctx, ApplyOfferRequest{
		CartValue:    d("200"),
		UserID:       2,
		RestaurantID: 1,
	})
	require.NoError(t, err)
	assert.True(t, d("180").Equal(res.CartValue), "got %s", res.CartValue)
	assert.Equal(t, SegmentP2, res.Segment)
	require.NotNil(t, res.Offer)
	assert.Equal(t, FlatPercent, res.Offer.Type)
}

func TestService_SetOffer_Overwrite(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	require.NoError(t, svc.SetSegment(ctx, 1, SegmentP1))
	require.NoError(t, svc.SetOffer(ctx, SetOfferRequest{
		RestaurantID: 1, Type: FlatAmount, Value: d("10"), Segments: []Segment{SegmentP1},
	}))
	require.NoError(t, svc.SetOffer(ctx, SetOfferRequest{
		RestaurantID: 1, Type: FlatPercent, Value: d("10"), Segments: []Segment{SegmentP1},
	}))

	res, err := svc.ApplyOffer(ctx, ApplyOfferRequest{CartValue: d("200"), UserID: 1, RestaurantID: 1})
	require.NoError(t, err)
	assert.True(t, d("180").Equal(res.CartValue), "got %s", res.CartValue)
}

func TestService_InvalidIDs(t *testing.T) {
	ctx := context.Background()
	svc, offers, _ := newTestService(t)

	var vErr *ValidationError

	err := svc.SetOffer(ctx, SetOfferRequest{
		RestaurantID: 0, Type: FlatAmount, Value: d("10"), Segments: []Segment{SegmentP1},
	})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "restaurant_id", vErr.Field)
	assert.Zero(t, offers.calls, "repository must not be touched on invalid input")

	require.ErrorAs(t, svc.SetSegment(ctx, -1, SegmentP1), &vErr)
	assert.Equal(t, "user_id", vErr.Field)

	_, err = svc.ApplyOffer(ctx, ApplyOfferRequest{CartValue: d("1"), UserID: 1, RestaurantID: 0})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "restaurant_id", vErr.Field)
}

func TestService_GetSegment(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	for _, id := range []int64{7, 0, -1} {
		_, err := svc.GetSegment(ctx, id)
		require.ErrorIs(t, err, ErrSegmentNotFound, "user %d", id)
	}

	require.NoError(t, svc.SetSegment(ctx, 7, SegmentP3))
	seg, err := svc.GetSegment(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, SegmentP3, seg)
}

func TestService_Spans(t *testing.T) {
	ctx := context.Background()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(ctx) })

	segments := &fakeSegmentRepo{fakeSegments: fakeSegments{}}
	svc, err := NewService(&fakeOfferRepo{fakeOffers: fakeOffers{}}, segments, tp, metricnoop.NewMeterProvider())
	require.NoError(t, err)

	require.NoError(t, svc.SetSegment(ctx, 1, SegmentP1))
	_, err = svc.GetSegment(ctx, 1)
	require.NoError(t, err)
	_, err = svc.GetSegment(ctx, 2)
	require.ErrorIs(t, err, ErrSegmentNotFound)

	spans := exporter.GetSpans()
	require.Len(t, spans, 3)
	assert.Equal(t, "offer.SetSegment", spans[0].Name)
	assert.Equal(t, "offer.GetSegment", spans[1].Name)
	assert.Equal(t, codes.Unset, spans[1].Status.Code)
	assert.Equal(t, "offer.GetSegment", spans[2].Name)
	assert.Equal(t, codes.Error, spans[2].Status.Code)
}

func TestService_RepositoryErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	svc, offers, segments := newTestService(t)
	offers.setErr = errors.New("offer store failed")
	segments.setErr = errors.New("segment store failed")

	err := svc.SetOffer(ctx, SetOfferRequest{
		RestaurantID: 1, Type: FlatAmount, Value: d("10"), Segments: []Segment{SegmentP1},
	})
	require.EqualError(t, err, "offer store failed")

	err = svc.SetSegment(ctx, 1, SegmentP1)
	require.EqualError(t, err, "segment store failed")
}

func TestApplyOutcome(t *testing.T) {
	o := Offer{Type: FlatAmount, Value: d("1")}
	assert.Equal(t, OutcomeDiscounted, applyOutcome(Result{Offer: &o}, nil))
	assert.Equal(t, OutcomeNoOffer, applyOutcome(Result{}, nil))
	assert.Equal(t, OutcomeSegmentMissing, applyOutcome(Result{}, ErrSegmentNotFound))
	assert.Equal(t, OutcomeInvalid, applyOutcome(Result{}, &ValidationError{Field: "cart_value"}))
}
