package offer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Fakes ---

type offerKey struct {
	restaurantID int64
	segment      Segment
}

type fakeOffers map[offerKey]Offer

func (f fakeOffers) GetOffer(restaurantID int64, segment Segment) (Offer, bool) {
	o, ok := f[offerKey{restaurantID, segment}]
	return o, ok
}

type fakeSegments map[int64]Segment

func (f fakeSegments) GetSegment(userID int64) (Segment, bool) {
	s, ok := f[userID]
	return s, ok
}

// --- Helpers ---

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// --- Tests ---

func TestEngine_Apply(t *testing.T) {
	tests := []struct {
		name         string
		offers       fakeOffers
		segments     fakeSegments
		cartValue    decimal.Decimal
		userID       int64
		restaurantID int64
		want         decimal.Decimal
		wantApplied  bool
	}{
		{
			name:         "flat amount for p1",
			offers:       fakeOffers{{1, SegmentP1}: {Type: FlatAmount, Value: d("10")}},
			segments:     fakeSegments{1: SegmentP1},
			cartValue:    d("200"),
			userID:       1,
			restaurantID: 1,
			want:         d("190"),
			wantApplied:  true,
		},
		{
			name:         "flat percent for p2",
			offers:       fakeOffers{{1, SegmentP2}: {Type: FlatPercent, Value: d("10")}},
			segments:     fakeSegments{2: SegmentP2},
			cartValue:    d("200"),
			userID:       2,
			restaurantID: 1,
			want:         d("180"),
			wantApplied:  true,
		},
		{
			name:         "flat amount larger than cart floors at zero",
			offers:       fakeOffers{{1, SegmentP1}: {Type: FlatAmount, Value: d("50")}},
			segments:     fakeSegments{1: SegmentP1},
			cartValue:    d("30"),
			userID:       1,
			restaurantID: 1,
			want:         d("0"),
			wantApplied:  true,
		},
		{
			name:         "percent over 100 floors at zero",
			offers:       fakeOffers{{1, SegmentP1}: {Type: FlatPercent, Value: d("101")}},
			segments:     fakeSegments{1: SegmentP1},
			cartValue:    d("200"),
			userID:       1,
			restaurantID: 1,
			want:         d("0"),
			wantApplied:  true,
		},
		{
			name:         "fractional percent rounds half up",
			offers:       fakeOffers{{1, SegmentP1}: {Type: FlatPercent, Value: d("12.5")}},
			segments:     fakeSegments{1: SegmentP1},
			cartValue:    d("100.50"),
			userID:       1,
			restaurantID: 1,
			// 100.50 - 12.5625 = 87.9375
			want:        d("87.94"),
			wantApplied: true,
		},
		{
			name:         "exact discount yields zero",
			offers:       fakeOffers{{1, SegmentP1}: {Type: FlatAmount, Value: d("10")}},
			segments:     fakeSegments{1: SegmentP1},
			cartValue:    d("10"),
			userID:       1,
			restaurantID: 1,
			want:         d("0"),
			wantApplied:  true,
		},
		{
			name:         "zero value offer keeps cart value",
			offers:       fakeOffers{{1, SegmentP1}: {Type: FlatAmount, Value: d("0")}},
			segments:     fakeSegments{1: SegmentP1},
			cartValue:    d("200"),
			userID:       1,
			restaurantID: 1,
			want:         d("200"),
			wantApplied:  true,
		},
		{
			name:         "zero cart value is accepted",
			offers:       fakeOffers{{1, SegmentP1}: {Type: FlatPercent, Value: d("10")}},
			segments:     fakeSegments{1: SegmentP1},
			cartValue:    d("0"),
			userID:       1,
			restaurantID: 1,
			want:         d("0"),
			wantApplied:  true,
		},
		{
			name:         "restaurant without offers passes through",
			offers:       fakeOffers{},
			segments:     fakeSegments{1: SegmentP1},
			cartValue:    d("200"),
			userID:       1,
			restaurantID: 2,
			want:         d("200"),
		},
		{
			name:         "restaurant without offer for segment passes through",
			offers:       fakeOffers{{1, SegmentP1}: {Type: FlatAmount, Value: d("10")}},
			segments:     fakeSegments{3: SegmentP3},
			cartValue:    d("200"),
			userID:       3,
			restaurantID: 1,
			want:         d("200"),
		},
		{
			name: "each segment gets its own offer",
			offers: fakeOffers{
				{1, SegmentP1}: {Type: FlatAmount, Value: d("10")},
				{1, SegmentP2}: {Type: FlatPercent, Value: d("10")},
			},
			segments:     fakeSegments{1: SegmentP1, 2: SegmentP2},
			cartValue:    d("200"),
			userID:       1,
			restaurantID: 1,
			want:         d("190"),
			wantApplied:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(tt.offers, tt.segments)

			got, err := e.Apply(tt.cartValue, tt.userID, tt.restaurantID)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got.CartValue),
				"expected cart value %s, got %s", tt.want, got.CartValue)
			assert.Equal(t, tt.wantApplied, got.Applied())
		})
	}
}

func TestEngine_Apply_SegmentMissing(t *testing.T) {
	// The restaurant has offers for every segment; the user has none.
	offers := fakeOffers{}
	for _, seg := range Segments {
		offers[offerKey{1, seg}] = Offer{Type: FlatAmount, Value: d("10")}
	}
	e := NewEngine(offers, fakeSegments{})

	_, err := e.Apply(d("200"), 999, 1)

	var nfErr *NotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, "user segment", nfErr.Resource)
}

func TestEngine_Apply_NegativeCartValue(t *testing.T) {
	e := NewEngine(fakeOffers{}, fakeSegments{1: SegmentP1})

	_, err := e.Apply(d("-1"), 1, 1)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "cart_value", vErr.Field)
}

func TestEngine_Apply_CartValueOutOfRange(t *testing.T) {
	e := NewEngine(fakeOffers{{1, SegmentP1}: {Type: FlatPercent, Value: d("10")}}, fakeSegments{1: SegmentP1})

	for _, v := range []string{"1e400", "1e5000000", "1e-5000000"} {
		_, err := e.Apply(d(v), 1, 1)

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr, v)
		assert.Equal(t, "cart_value", vErr.Field)
	}
}

func TestFinalValue_Bounds(t *testing.T) {
	carts := []string{"0", "0.01", "10", "30", "99.999", "100.50", "200", "999999"}
	offers := []Offer{
		{Type: FlatAmount, Value: d("0")},
		{Type: FlatAmount, Value: d("0.01")},
		{Type: FlatAmount, Value: d("10")},
		{Type: FlatAmount, Value: d("999999")},
		{Type: FlatPercent, Value: d("0")},
		{Type: FlatPercent, Value: d("12.5")},
		{Type: FlatPercent, Value: d("100")},
		{Type: FlatPercent, Value: d("101")},
		{Type: FlatPercent, Value: d("999999")},
	}

	for _, c := range carts {
		cart := d(c)
		for _, o := range offers {
			got := FinalValue(o, cart)
			assert.False(t, got.IsNegative(), "%s %s on %s: negative result %s", o.Type, o.Value, cart, got)
			assert.True(t, got.LessThanOrEqual(cart), "%s %s on %s: %s exceeds cart", o.Type, o.Value, cart, got)
		}
	}
}

func TestDiscount_PercentNotClamped(t *testing.T) {
	got := Discount(Offer{Type: FlatPercent, Value: d("101")}, d("200"))
	assert.True(t, d("202").Equal(got), "expected 202, got %s", got)
}
