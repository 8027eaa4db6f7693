package handler

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/cart-offers/internal/domain/offer"
)

// setOfferBody is the decoded body of POST /api/v1/offer.
type setOfferBody struct {
	RestaurantID    optInt
	OfferType       optString
	OfferValue      optDecimal
	CustomerSegment []string
	hasSegment      bool
}

type applyOfferBody struct {
	CartValue    optDecimal
	UserID       optInt
	RestaurantID optInt
}

type setSegmentBody struct {
	UserID  optInt
	Segment optString
}

type optInt struct {
	Value int64
	Set   bool
}

type optString struct {
	Value string
	Set   bool
}

type optDecimal struct {
	Value decimal.Decimal
	Set   bool
}

func required(field string) error {
	return &offer.ValidationError{Field: field, Reason: "is required"}
}

func (b *setOfferBody) Decode(data []byte) error {
	return decodeObject(data, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "restaurant_id":
			b.RestaurantID, err = readID(d, key)
		case "offer_type":
			b.OfferType, err = readString(d, key)
		case "offer_value":
			b.OfferValue, err = readDecimal(d, key)
		case "customer_segment":
			b.CustomerSegment, b.hasSegment, err = readStrings(d, key)
		default:
			err = d.Skip()
		}
		return err
	})
}

// Request validates presence of every field and converts the body into a
// service request. Domain-level checks (value sign, segment names) are left
// to the service.
func (b *setOfferBody) Request() (offer.SetOfferRequest, error) {
	switch {
	case !b.RestaurantID.Set:
		return offer.SetOfferRequest{}, required("restaurant_id")
	case !b.OfferType.Set:
		return offer.SetOfferRequest{}, required("offer_type")
	case !b.OfferValue.Set:
		return offer.SetOfferRequest{}, required("offer_value")
	case !b.hasSegment || len(b.CustomerSegment) == 0:
		return offer.SetOfferRequest{}, &offer.ValidationError{Field: "customer_segment", Reason: "must not be empty"}
	}

	t, err := offer.ParseOfferType(b.OfferType.Value)
	if err != nil {
		return offer.SetOfferRequest{}, err
	}
	segments := make([]offer.Segment, len(b.CustomerSegment))
	for i, s := range b.CustomerSegment {
		segments[i] = offer.Segment(s)
	}

	return offer.SetOfferRequest{
		RestaurantID: b.RestaurantID.Value,
		Type:         t,
		Value:        b.OfferValue.Value,
		Segments:     segments,
	}, nil
}

func (b *applyOfferBody) Decode(data []byte) error {
	return decodeObject(data, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "cart_value":
			b.CartValue, err = readDecimal(d, key)
		case "user_id":
			b.UserID, err = readID(d, key)
		case "restaurant_id":
			b.RestaurantID, err = readID(d, key)
		default:
			err = d.Skip()
		}
		return err
	})
}

func (b *applyOfferBody) Request() (offer.ApplyOfferRequest, error) {
	switch {
	case !b.CartValue.Set:
		return offer.ApplyOfferRequest{}, required("cart_value")
	case !b.UserID.Set:
		return offer.ApplyOfferRequest{}, required("user_id")
	case !b.RestaurantID.Set:
		return offer.ApplyOfferRequest{}, required("restaurant_id")
	}
	return offer.ApplyOfferRequest{
		CartValue:    b.CartValue.Value,
		UserID:       b.UserID.Value,
		RestaurantID: b.RestaurantID.Value,
	}, nil
}

func (b *setSegmentBody) Decode(data []byte) error {
	return decodeObject(data, func(d *jx.Decoder, key string) (err error) {
		switch key {
		case "user_id":
			b.UserID, err = readID(d, key)
		case "segment":
			b.Segment, err = readString(d, key)
		default:
			err = d.Skip()
		}
		return err
	})
}

func (b *setSegmentBody) Request() (int64, offer.Segment, error) {
	if !b.UserID.Set {
		return 0, "", required("user_id")
	}
	if !b.Segment.Set {
		return 0, "", required("segment")
	}
	seg, err := offer.ParseSegment(b.Segment.Value)
	if err != nil {
		return 0, "", err
	}
	return b.UserID.Value, seg, nil
}

// decodeObject walks the top-level JSON object in data, calling fn per key.
// Syntax errors and trailing data are reported as validation errors.
func decodeObject(data []byte, fn func(d *jx.Decoder, key string) error) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return &offer.ValidationError{Reason: "request body is required"}
	}
	if jx.DecodeBytes(data).Next() != jx.Object {
		return &offer.ValidationError{Reason: "request body must be a JSON object"}
	}

	// The object must span the whole body.
	obj, err := jx.DecodeBytes(data).Raw()
	if err != nil || len(obj) != len(data) {
		return &offer.ValidationError{Reason: "malformed JSON body"}
	}

	err = jx.DecodeBytes(obj).ObjBytes(func(d *jx.Decoder, key []byte) error {
		return fn(d, string(key))
	})
	if err != nil {
		var vErr *offer.ValidationError
		if errors.As(err, &vErr) {
			return vErr
		}
		return &offer.ValidationError{Reason: "malformed JSON body"}
	}
	return nil
}

func invalid(d *jx.Decoder, field, reason string) error {
	if err := d.Skip(); err != nil {
		return err
	}
	return &offer.ValidationError{Field: field, Reason: reason}
}

// readID reads a JSON integer. null is treated as absent.
func readID(d *jx.Decoder, field string) (optInt, error) {
	switch d.Next() {
	case jx.Null:
		return optInt{}, d.Null()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return optInt{}, err
		}
		v, err := strconv.ParseInt(string(n), 10, 64)
		if err != nil {
			return optInt{}, &offer.ValidationError{Field: field, Reason: "must be an integer"}
		}
		return optInt{Value: v, Set: true}, nil
	default:
		return optInt{}, invalid(d, field, "must be an integer")
	}
}

// maxNumberLen caps the textual length of a numeric value before parsing.
const maxNumberLen = 64

// readDecimal reads a JSON number or a numeric string. null is treated as absent.
func readDecimal(d *jx.Decoder, field string) (optDecimal, error) {
	var raw string
	switch d.Next() {
	case jx.Null:
		return optDecimal{}, d.Null()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return optDecimal{}, err
		}
		raw = string(n)
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return optDecimal{}, err
		}
		raw = strings.TrimSpace(s)
	default:
		return optDecimal{}, invalid(d, field, "must be a number")
	}

	if len(raw) > maxNumberLen {
		return optDecimal{}, &offer.ValidationError{Field: field, Reason: "is out of range"}
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return optDecimal{}, &offer.ValidationError{Field: field, Reason: "must be a number"}
	}
	if err := offer.CheckAmount(field, v); err != nil {
		return optDecimal{}, err
	}
	return optDecimal{Value: v, Set: true}, nil
}

// readString reads a JSON string. null and "" are treated as absent.
func readString(d *jx.Decoder, field string) (optString, error) {
	switch d.Next() {
	case jx.Null:
		return optString{}, d.Null()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return optString{}, err
		}
		return optString{Value: s, Set: s != ""}, nil
	default:
		return optString{}, invalid(d, field, "must be a string")
	}
}

// readStrings reads a JSON array of strings. null is treated as absent.
func readStrings(d *jx.Decoder, field string) ([]string, bool, error) {
	switch d.Next() {
	case jx.Null:
		return nil, false, d.Null()
	case jx.Array:
		var out []string
		err := d.Arr(func(d *jx.Decoder) error {
			if d.Next() != jx.String {
				return invalid(d, field, "must be an array of strings")
			}
			s, err := d.Str()
			if err != nil {
				return err
			}
			out = append(out, s)
			return nil
		})
		return out, true, err
	default:
		return nil, false, invalid(d, field, "must be an array of strings")
	}
}
