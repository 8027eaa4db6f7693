package offer

import "fmt"

// ValidationError reports malformed or out-of-domain input. It is always
// returned before any state is mutated.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// NotFoundError reports that a key required by the operation is absent.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Resource)
}

// ErrSegmentNotFound is the NotFoundError returned for users without a segment.
var ErrSegmentNotFound = &NotFoundError{Resource: "user segment"}
