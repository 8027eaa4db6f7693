package offer

import (
	"github.com/shopspring/decimal"
)

// OfferType enumerates the supported discount kinds.
type OfferType string

const (
	// FlatAmount deducts a fixed amount from the cart value.
	FlatAmount OfferType = "FLATX"
	// FlatPercent deducts a percentage of the cart value.
	FlatPercent OfferType = "FLAT%"
)

// Valid reports whether t is one of the known offer types.
func (t OfferType) Valid() bool {
	return t == FlatAmount || t == FlatPercent
}

// ParseOfferType converts a wire value into an OfferType.
func ParseOfferType(s string) (OfferType, error) {
	t := OfferType(s)
	if !t.Valid() {
		return "", &ValidationError{
			Field:  "offer_type",
			Reason: "must be 'FLATX' or 'FLAT%'",
		}
	}
	return t, nil
}

// Segment is a customer tier used to target offers.
type Segment string

const (
	SegmentP1 Segment = "p1"
	SegmentP2 Segment = "p2"
	SegmentP3 Segment = "p3"
)

// Segments lists every known segment in tier order.
var Segments = []Segment{SegmentP1, SegmentP2, SegmentP3}

// Valid reports whether s is one of the known segments.
func (s Segment) Valid() bool {
	switch s {
	case SegmentP1, SegmentP2, SegmentP3:
		return true
	default:
		return false
	}
}

// ParseSegment converts a wire value into a Segment.
func ParseSegment(s string) (Segment, error) {
	if s == "" {
		return "", &ValidationError{Field: "segment", Reason: "is required"}
	}
	seg := Segment(s)
	if !seg.Valid() {
		return "", &ValidationError{
			Field:  "segment",
			Reason: "invalid segment " + s + ", must be one of [p1 p2 p3]",
		}
	}
	return seg, nil
}

// Amount bounds. Values are kept well inside float64 range so responses always
// carry a finite number, and exponents are capped so rounding stays cheap.
const (
	maxAmountExponent = 15
	minAmountExponent = -32
)

var maxAmount = decimal.New(1, maxAmountExponent)

// CheckAmount rejects money values whose magnitude exceeds 1e15 or whose
// scale is finer than 1e-32. Sign is not checked.
func CheckAmount(field string, v decimal.Decimal) error {
	exp := v.Exponent()
	if exp > maxAmountExponent || exp < minAmountExponent || v.Abs().GreaterThan(maxAmount) {
		return &ValidationError{Field: field, Reason: "is out of range"}
	}
	return nil
}

// Offer is a discount definition scoped to one restaurant and one segment.
type Offer struct {
	Type  OfferType
	Value decimal.Decimal
}

// Validate checks the offer invariants: a known type and a non-negative value
// within CheckAmount bounds. Percentages above 100 are handled by the engine.
func (o Offer) Validate() error {
	if !o.Type.Valid() {
		return &ValidationError{Field: "offer_type", Reason: "must be 'FLATX' or 'FLAT%'"}
	}
	if err := CheckAmount("offer_value", o.Value); err != nil {
		return err
	}
	if o.Value.IsNegative() {
		return &ValidationError{Field: "offer_value", Reason: "must be non-negative"}
	}
	return nil
}
