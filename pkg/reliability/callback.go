package reliability

import (
	"io"
	"net/http"
	"time"
)

// RetryDecision is returned by a RetryCallback
type RetryDecision int

const (
	// Continue goes on with the next attempt
	Continue RetryDecision = iota
	// Stop gives up and returns the last error
	Stop
)

// RetryCallback is invoked after a failed attempt, before waiting for the
// next one. attempt is the zero based index of the attempt that failed.
type RetryCallback interface {
	OnBeforeRetry(messageID, url string, attempt, maxAttempts int, wait time.Duration, cause error) RetryDecision
}

// RetryCallbackFunc adapts a function to RetryCallback
type RetryCallbackFunc func(messageID, url string, attempt, maxAttempts int, wait time.Duration, cause error) RetryDecision

func (f RetryCallbackFunc) OnBeforeRetry(messageID, url string, attempt, maxAttempts int, wait time.Duration, cause error) RetryDecision {
	return f(messageID, url, attempt, maxAttempts, wait, cause)
}

// MessageMode tells a Dumper which direction is being dumped
type MessageMode int

const (
	ModeRequest MessageMode = iota
	ModeResponse
)

func (m MessageMode) String() string {
	if m == ModeResponse {
		return "response"
	}
	return "request"
}

// Dumper receives a copy of the bytes of every send attempt
type Dumper interface {
	// OnBeginRequest returns the sink for one attempt, or nil to skip it
	OnBeginRequest(mode MessageMode, messageID string, header http.Header, attempt int) (io.WriteCloser, error)
	// OnEndRequest is called once per attempt after the sink was closed;
	// err is the outcome of the attempt
	OnEndRequest(mode MessageMode, messageID string, err error)
}
