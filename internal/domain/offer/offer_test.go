package offer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOfferType(t *testing.T) {
	for _, in := range []string{"FLATX", "FLAT%"} {
		got, err := ParseOfferType(in)
		require.NoError(t, err)
		assert.Equal(t, OfferType(in), got)
	}

	for _, in := range []string{"", "INVALID", "flatx", "FLAT"} {
		_, err := ParseOfferType(in)
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr, "input %q", in)
		assert.Equal(t, "offer_type", vErr.Field)
	}
}

func TestParseSegment(t *testing.T) {
	for _, seg := range Segments {
		got, err := ParseSegment(string(seg))
		require.NoError(t, err)
		assert.Equal(t, seg, got)
	}

	t.Run("empty", func(t *testing.T) {
		_, err := ParseSegment("")
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "segment is required", vErr.Error())
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := ParseSegment("p4")
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Error(), "p4")
	})
}

func TestOffer_Validate(t *testing.T) {
	require.NoError(t, Offer{Type: FlatAmount, Value: d("0")}.Validate())
	require.NoError(t, Offer{Type: FlatPercent, Value: d("101")}.Validate())
	require.NoError(t, Offer{Type: FlatAmount, Value: d("999999")}.Validate())

	var vErr *ValidationError
	require.ErrorAs(t, Offer{Type: FlatAmount, Value: d("-10")}.Validate(), &vErr)
	assert.Equal(t, "offer_value", vErr.Field)

	require.ErrorAs(t, Offer{Type: "BOGUS", Value: d("10")}.Validate(), &vErr)
	assert.Equal(t, "offer_type", vErr.Field)
}

func TestCheckAmount(t *testing.T) {
	tests := []struct {
		value string
		ok    bool
	}{
		{value: "0", ok: true},
		{value: "100.50", ok: true},
		{value: "1e15", ok: true},
		{value: "1000000000000000", ok: true},
		{value: "-1000000000000000", ok: true},
		{value: "0.00000000000000000000000000000001", ok: true},
		{value: "1000000000000001", ok: false},
		{value: "1e16", ok: false},
		{value: "1e400", ok: false},
		{value: "-1e400", ok: false},
		{value: "0e400", ok: false},
		{value: "1e5000000", ok: false},
		{value: "1e-33", ok: false},
		{value: "1e-5000000", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			err := CheckAmount("cart_value", d(tt.value))
			if tt.ok {
				require.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, "cart_value", vErr.Field)
		})
	}
}

func TestOffer_Validate_OutOfRange(t *testing.T) {
	var vErr *ValidationError
	require.ErrorAs(t, Offer{Type: FlatPercent, Value: d("1e400")}.Validate(), &vErr)
	assert.Equal(t, "offer_value", vErr.Field)
	assert.Equal(t, "is out of range", vErr.Reason)
}
