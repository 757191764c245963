package msh

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirosfoundation/go-as4-reliability/pkg/message"
	"github.com/sirosfoundation/go-as4-reliability/pkg/profile"
)

var (
	// ErrMSHNotStarted is returned when operations are attempted on a stopped MSH
	ErrMSHNotStarted = errors.New("MSH not started")
	// ErrMSHAlreadyStarted is returned when Start is called on a running MSH
	ErrMSHAlreadyStarted = errors.New("MSH already started")
	// ErrInvalidMessage is returned for malformed messages
	ErrInvalidMessage = errors.New("invalid message")
	// ErrNoPMode is returned when no P-Mode matches a message
	ErrNoPMode = errors.New("no matching P-Mode")
)

// ValidationError is returned when a P-Mode or message violates the
// configured profile
type ValidationError struct {
	ProfileID string
	MessageID string
	Findings  *profile.Findings
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("message %s violates profile %s: %s", e.MessageID, e.ProfileID, e.Findings.String())
}

// SignalError is returned when the receiver answers with an ebMS error
type SignalError struct {
	MessageID string
	Signal    *message.SignalMessage
}

func (e *SignalError) Error() string {
	parts := make([]string, 0, len(e.Signal.Errors))
	for _, err := range e.Signal.Errors {
		parts = append(parts, err.String())
	}
	return fmt.Sprintf("message %s rejected: %s", e.MessageID, strings.Join(parts, "; "))
}

// Codes returns the ebMS error codes of the signal
func (e *SignalError) Codes() []string {
	codes := make([]string, 0, len(e.Signal.Errors))
	for _, err := range e.Signal.Errors {
		codes = append(codes, err.ErrorCode)
	}
	return codes
}
