package offerclient

import (
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("offer api: %d %s", e.StatusCode, e.Message)
}

// newAPIError extracts the "error" field from body, falling back to the
// status text.
func newAPIError(status int, body []byte) *APIError {
	msg := ""
	_ = jx.DecodeBytes(body).ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "error" || d.Next() != jx.String {
			return d.Skip()
		}
		s, err := d.Str()
		msg = s
		return err
	})
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg}
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsBadRequest reports whether err is an APIError with status 400.
func IsBadRequest(err error) bool {
	return hasStatus(err, http.StatusBadRequest)
}

func hasStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
