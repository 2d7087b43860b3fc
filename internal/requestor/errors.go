package requestor

import (
	"errors"
	"fmt"
)

// StatusError captures a non-success HTTP response from the flag
// service. Any error that is not a StatusError is a transport-level
// (I/O) failure.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "flag service returned an error"
	}
	return fmt.Sprintf("%s (status=%d)", msg, e.Code)
}

// AsStatusError attempts to unwrap an error into a StatusError.
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
