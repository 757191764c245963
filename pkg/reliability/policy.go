package reliability

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/sirosfoundation/go-as4-reliability/pkg/pmode"
)

// DefaultIncreaseFactor keeps the retry interval constant
const DefaultIncreaseFactor = 1.0

// RetryPolicy controls how often and how patiently a message is resent
type RetryPolicy struct {
	MaxRetries     int           `json:"maxRetries"`
	BaseDelay      time.Duration `json:"baseDelay"`
	IncreaseFactor float64       `json:"increaseFactor"`
}

// NoRetry sends exactly once
var NoRetry = RetryPolicy{IncreaseFactor: DefaultIncreaseFactor}

// Validate checks the policy bounds
func (p RetryPolicy) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.MaxRetries, validation.Min(0)),
		validation.Field(&p.BaseDelay, validation.Min(time.Duration(0))),
	)
}

// MaxAttempts is the total number of sends, the first one included
func (p RetryPolicy) MaxAttempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return 1 + p.MaxRetries
}

// nextWait scales the wait by the increase factor. A factor of zero or
// below collapses the wait to zero.
func (p RetryPolicy) nextWait(wait time.Duration) time.Duration {
	if p.IncreaseFactor <= 0 {
		return 0
	}
	return time.Duration(float64(wait) * p.IncreaseFactor)
}

// PolicyFromReceptionAwareness derives the retry policy of a P-Mode. With
// reception awareness or retry switched off the message is sent once.
func PolicyFromReceptionAwareness(ra *pmode.ReceptionAwareness, increaseFactor float64) RetryPolicy {
	if !ra.RetryEnabled() || ra.MaxRetries <= 0 {
		return RetryPolicy{IncreaseFactor: increaseFactor}
	}
	delay := ra.RetryInterval
	if delay < 0 {
		delay = 0
	}
	return RetryPolicy{
		MaxRetries:     ra.MaxRetries,
		BaseDelay:      delay,
		IncreaseFactor: increaseFactor,
	}
}
