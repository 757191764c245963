package reliability

import (
	"errors"
	"fmt"
)

var (
	// ErrBodyNotRepeatable is returned when retries are requested for a
	// body that can be sent only once
	ErrBodyNotRepeatable = errors.New("request body is not repeatable")
	// ErrUnknownMessage is returned for message IDs a store does not hold
	ErrUnknownMessage = errors.New("unknown message")
)

// StatusError reports a non-2xx HTTP response
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d: %s", e.StatusCode, string(e.Body))
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks an error as not worth retrying. Response decoders use it
// for answers that will not change on resend.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

func unwrapPermanent(err error) error {
	var p *permanentError
	if errors.As(err, &p) {
		return p.err
	}
	return err
}
