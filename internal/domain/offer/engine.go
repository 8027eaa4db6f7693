package offer

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// OfferLookup returns the offer for a restaurant and segment, if any.
type OfferLookup interface {
	GetOffer(restaurantID int64, segment Segment) (Offer, bool)
}

// SegmentLookup returns the segment assigned to a user, if any.
type SegmentLookup interface {
	GetSegment(userID int64) (Segment, bool)
}

// Result describes the outcome of applying an offer to a cart.
type Result struct {
	CartValue decimal.Decimal
	Segment   Segment
	// Offer is nil when no offer matched the restaurant and segment.
	Offer *Offer
}

// Applied reports whether an offer matched.
func (r Result) Applied() bool {
	return r.Offer != nil
}

// Engine applies stored offers to cart values. It holds no state of its own.
type Engine struct {
	offers   OfferLookup
	segments SegmentLookup
}

// NewEngine creates an Engine over the given lookups.
func NewEngine(offers OfferLookup, segments SegmentLookup) *Engine {
	return &Engine{offers: offers, segments: segments}
}

// Apply computes the final cart value for a user ordering from a restaurant.
//
// A user without a segment is a NotFoundError. A restaurant without an offer
// for the user's segment is not an error: the cart value is returned unchanged.
func (e *Engine) Apply(cartValue decimal.Decimal, userID, restaurantID int64) (Result, error) {
	if cartValue.IsNegative() {
		return Result{}, &ValidationError{Field: "cart_value", Reason: "must be non-negative"}
	}
	if err := CheckAmount("cart_value", cartValue); err != nil {
		return Result{}, err
	}

	segment, ok := e.segments.GetSegment(userID)
	if !ok {
		return Result{}, ErrSegmentNotFound
	}

	o, ok := e.offers.GetOffer(restaurantID, segment)
	if !ok {
		return Result{CartValue: cartValue, Segment: segment}, nil
	}

	return Result{
		CartValue: FinalValue(o, cartValue),
		Segment:   segment,
		Offer:     &o,
	}, nil
}

// Discount returns the raw discount of o against cartValue. Percentages are
// not clamped to 100, so the discount may exceed the cart value.
func Discount(o Offer, cartValue decimal.Decimal) decimal.Decimal {
	switch o.Type {
	case FlatAmount:
		return o.Value
	case FlatPercent:
		return cartValue.Mul(o.Value).Div(hundred)
	default:
		return decimal.Zero
	}
}

// FinalValue returns cartValue minus the discount, floored at zero and
// rounded half away from zero to 2 decimal places. The result never exceeds
// cartValue, even when rounding a sub-cent cart value would push it upwards.
func FinalValue(o Offer, cartValue decimal.Decimal) decimal.Decimal {
	final := cartValue.Sub(Discount(o, cartValue))
	if final.IsNegative() {
		return decimal.Zero
	}
	final = final.Round(2)
	if final.GreaterThan(cartValue) {
		return cartValue
	}
	return final
}
