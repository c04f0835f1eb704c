package upstream

import (
	"errors"
	"fmt"
)

// ErrResponseTooLarge is returned when the users payload exceeds the read limit.
// It is a payload failure, not a transport one.
var ErrResponseTooLarge = errors.New("users response too large")

// TransportError is a failure recognized by the request layer: the call never
// produced a usable response (dial, timeout, body read) or the server answered
// with a non-2xx status.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("request failed with status code %d", e.StatusCode)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "network error"
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is, or wraps, a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// TransportMessage returns the message of the wrapped TransportError, or ""
// if err is not a transport failure.
func TransportMessage(err error) string {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Error()
	}
	return ""
}
