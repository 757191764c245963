package reliability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// HTTPClient is the transport used by the Sender. *http.Client satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ResponseDecoder turns an HTTP response into a Response. A returned error
// is retried unless it is marked Permanent.
type ResponseDecoder func(resp *http.Response) (*Response, error)

// Request is one outbound message with its retry settings
type Request struct {
	URL           string
	Header        http.Header
	ContentType   string
	Body          Entity
	MessageID     string
	Mode          MessageMode
	Policy        RetryPolicy
	Decoder       ResponseDecoder
	Dumper        Dumper
	RetryCallback RetryCallback
}

// Response is a decoded HTTP response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// DecodeResponse reads the full body and rejects non-2xx status codes
func DecodeResponse(resp *http.Response) (*Response, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: body}
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// Sender posts messages and retries failed attempts with increasing waits
type Sender struct {
	client  HTTPClient
	logger  *slog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
	tracker *MessageTracker
}

// SenderOption configures a Sender
type SenderOption func(*Sender)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) SenderOption {
	return func(s *Sender) {
		s.logger = logger
	}
}

// WithSleep replaces the wait between attempts
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) SenderOption {
	return func(s *Sender) {
		s.sleep = sleep
	}
}

// WithTracker records attempts in the given tracker
func WithTracker(tracker *MessageTracker) SenderOption {
	return func(s *Sender) {
		s.tracker = tracker
	}
}

// NewSender creates a sender on top of client
func NewSender(client HTTPClient, opts ...SenderOption) *Sender {
	s := &Sender{
		client: client,
		logger: slog.Default(),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tracker returns the tracker, which may be nil
func (s *Sender) Tracker() *MessageTracker {
	return s.tracker
}

// Send posts the request, retrying up to req.Policy.MaxRetries times. The
// first two retries wait BaseDelay; from then on the wait is multiplied by
// IncreaseFactor before every retry. The error of the last attempt is
// returned as is.
func (s *Sender) Send(ctx context.Context, req *Request) (*Response, error) {
	if req.Body == nil {
		return nil, errors.New("request has no body")
	}
	if err := req.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry policy: %w", err)
	}
	if req.Policy.MaxRetries > 0 && !req.Body.Repeatable() {
		return nil, fmt.Errorf("%w: message %s requests %d retries", ErrBodyNotRepeatable, req.MessageID, req.Policy.MaxRetries)
	}

	decoder := req.Decoder
	if decoder == nil {
		decoder = DecodeResponse
	}
	maxAttempts := req.Policy.MaxAttempts()
	wait := req.Policy.BaseDelay
	logger := s.logger.With("message_id", req.MessageID, "url", req.URL)

	s.track(func(t *MessageTracker) error {
		t.Track(req.MessageID, maxAttempts)
		return nil
	})

	for try := 0; try < maxAttempts; try++ {
		if try > 0 {
			logger.Info("retrying message", "retry", try, "max_retries", maxAttempts-1)
		}
		s.track(func(t *MessageTracker) error { return t.MarkSending(req.MessageID) })

		resp, err := s.attempt(ctx, req, try, decoder)
		if err == nil {
			s.track(func(t *MessageTracker) error { return t.MarkAwaitingReceipt(req.MessageID) })
			return resp, nil
		}

		if IsPermanent(err) || ctx.Err() != nil {
			logger.Error("message send failed permanently", "attempt", try, "error", err)
			s.track(func(t *MessageTracker) error { return t.MarkFailed(req.MessageID, err) })
			return nil, unwrapPermanent(err)
		}
		if try == maxAttempts-1 {
			logger.Error("message send failed, no retries left", "attempts", maxAttempts, "error", err)
			s.track(func(t *MessageTracker) error { return t.MarkFailed(req.MessageID, err) })
			return nil, err
		}

		if try > 1 {
			wait = req.Policy.nextWait(wait)
		}
		if req.RetryCallback != nil &&
			req.RetryCallback.OnBeforeRetry(req.MessageID, req.URL, try, maxAttempts, wait, err) == Stop {
			logger.Warn("retry stopped by callback", "attempt", try, "error", err)
			s.track(func(t *MessageTracker) error { return t.MarkFailed(req.MessageID, err) })
			return nil, err
		}

		logger.Warn("message send failed, waiting before retry", "attempt", try, "wait", wait, "error", err)
		s.track(func(t *MessageTracker) error { return t.RecordError(req.MessageID, err) })

		if serr := s.sleep(ctx, wait); serr != nil {
			s.track(func(t *MessageTracker) error { return t.MarkFailed(req.MessageID, serr) })
			return nil, fmt.Errorf("retry wait interrupted: %w; last attempt: %w", serr, err)
		}
	}

	// MaxAttempts is never below one
	return nil, fmt.Errorf("message %s was not sent", req.MessageID)
}

// attempt performs a single send. The dump sink is opened and closed
// around it.
func (s *Sender) attempt(ctx context.Context, req *Request, try int, decoder ResponseDecoder) (resp *Response, err error) {
	var sink io.WriteCloser
	if req.Dumper != nil {
		defer func() {
			if sink != nil {
				if cerr := sink.Close(); cerr != nil {
					s.logger.Warn("failed to close dump sink", "message_id", req.MessageID, "error", cerr)
				}
			}
			req.Dumper.OnEndRequest(req.Mode, req.MessageID, err)
		}()

		var derr error
		sink, derr = req.Dumper.OnBeginRequest(req.Mode, req.MessageID, req.Header, try)
		if derr != nil {
			s.logger.Warn("failed to open dump sink", "message_id", req.MessageID, "error", derr)
			sink = nil
		}
	}

	body, err := req.Body.Open()
	if err != nil {
		return nil, Permanent(fmt.Errorf("failed to open request body: %w", err))
	}
	defer body.Close()

	var reader io.Reader = body
	if sink != nil {
		reader = io.TeeReader(body, sink)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, reader)
	if err != nil {
		return nil, Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	if n := req.Body.ContentLength(); n >= 0 {
		httpReq.ContentLength = n
	}
	for name, values := range req.Header {
		httpReq.Header[name] = append([]string(nil), values...)
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	httpResp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	return decoder(httpResp)
}

func (s *Sender) track(fn func(*MessageTracker) error) {
	if s.tracker == nil {
		return
	}
	if err := fn(s.tracker); err != nil {
		s.logger.Debug("tracker update failed", "error", err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
