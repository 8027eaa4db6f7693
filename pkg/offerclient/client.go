// Package offerclient is an HTTP client for the cart offer API.
package offerclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Offer types accepted by the API.
const (
	FlatAmount  = "FLATX"
	FlatPercent = "FLAT%"
)

// Offer is a restaurant offer for one or more customer segments.
type Offer struct {
	RestaurantID int64
	Type         string
	Value        decimal.Decimal
	Segments     []string
}

// Cart identifies a cart to apply offers to.
type Cart struct {
	Value        decimal.Decimal
	UserID       int64
	RestaurantID int64
}

// Client talks to the offer server.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.http.Timeout = d }
}

// New creates a Client for baseURL, e.g. "http://localhost:5001".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddOffer creates or replaces an offer.
func (c *Client) AddOffer(ctx context.Context, o Offer) error {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("restaurant_id", func(e *jx.Encoder) { e.Int64(o.RestaurantID) })
		e.Field("offer_type", func(e *jx.Encoder) { e.Str(o.Type) })
		e.Field("offer_value", func(e *jx.Encoder) { e.Raw([]byte(o.Value.String())) })
		e.Field("customer_segment", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, s := range o.Segments {
					e.Str(s)
				}
			})
		})
	})
	return c.do(ctx, http.MethodPost, "/api/v1/offer", e.Bytes(), nil)
}

// ApplyOffer returns the cart value after the matching offer, if any.
func (c *Client) ApplyOffer(ctx context.Context, cart Cart) (decimal.Decimal, error) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("cart_value", func(e *jx.Encoder) { e.Raw([]byte(cart.Value.String())) })
		e.Field("user_id", func(e *jx.Encoder) { e.Int64(cart.UserID) })
		e.Field("restaurant_id", func(e *jx.Encoder) { e.Int64(cart.RestaurantID) })
	})

	var value decimal.Decimal
	err := c.do(ctx, http.MethodPost, "/api/v1/cart/apply_offer", e.Bytes(), func(d *jx.Decoder) error {
		return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			if string(key) != "cart_value" {
				return d.Skip()
			}
			n, err := d.Num()
			if err != nil {
				return err
			}
			value, err = decimal.NewFromString(string(n))
			return err
		})
	})
	if err != nil {
		return decimal.Decimal{}, err
	}
	return value, nil
}

// GetUserSegment returns the segment assigned to userID.
func (c *Client) GetUserSegment(ctx context.Context, userID int64) (string, error) {
	path := "/api/v1/user_segment?" + url.Values{"user_id": {strconv.FormatInt(userID, 10)}}.Encode()

	var segment string
	err := c.do(ctx, http.MethodGet, path, nil, func(d *jx.Decoder) error {
		return d.ObjBytes(func(d *jx.Decoder, key []byte) (err error) {
			if string(key) != "segment" {
				return d.Skip()
			}
			segment, err = d.Str()
			return err
		})
	})
	if err != nil {
		return "", err
	}
	return segment, nil
}

// SetUserSegment assigns segment to userID.
func (c *Client) SetUserSegment(ctx context.Context, userID int64, segment string) error {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("user_id", func(e *jx.Encoder) { e.Int64(userID) })
		e.Field("segment", func(e *jx.Encoder) { e.Str(segment) })
	})
	return c.do(ctx, http.MethodPost, "/api/v1/user_segment", e.Bytes(), nil)
}

// Health returns nil when the server reports itself healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, decode func(d *jx.Decoder) error) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, data)
	}
	if decode == nil {
		return nil
	}
	if err := decode(jx.DecodeBytes(data)); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}
