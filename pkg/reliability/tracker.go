package reliability

import (
	"fmt"
	"sync"
	"time"
)

// MessageState is the delivery state of an outbound message
type MessageState int

const (
	StateSubmitted       MessageState = iota // Accepted, not yet sent
	StateSending                             // Attempt in progress
	StateAwaitingReceipt                     // Transport succeeded, no receipt yet
	StateReceived                            // Receipt received
	StateFailed                              // Gave up
)

func (s MessageState) String() string {
	switch s {
	case StateSubmitted:
		return "submitted"
	case StateSending:
		return "sending"
	case StateAwaitingReceipt:
		return "awaiting-receipt"
	case StateReceived:
		return "received"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("MessageState(%d)", int(s))
	}
}

// Finished reports whether no further transition is expected
func (s MessageState) Finished() bool {
	return s == StateReceived || s == StateFailed
}

// MessageTracker records the delivery progress of outbound messages
type MessageTracker struct {
	mu       sync.RWMutex
	messages map[string]*TrackedMessage
	now      func() time.Time
}

// TrackedMessage is a snapshot of one outbound message
type TrackedMessage struct {
	MessageID     string
	State         MessageState
	SubmittedAt   time.Time
	LastAttemptAt time.Time
	AttemptCount  int
	MaxAttempts   int
	Receipt       []byte
	Errors        []string
}

// NewMessageTracker creates an empty tracker
func NewMessageTracker() *MessageTracker {
	return &MessageTracker{
		messages: make(map[string]*TrackedMessage),
		now:      time.Now,
	}
}

// Track starts tracking a message. Tracking an ID again resets it.
func (t *MessageTracker) Track(messageID string, maxAttempts int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.messages[messageID] = &TrackedMessage{
		MessageID:   messageID,
		State:       StateSubmitted,
		SubmittedAt: t.now(),
		MaxAttempts: maxAttempts,
	}
}

func (t *MessageTracker) update(messageID string, fn func(*TrackedMessage)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	msg, exists := t.messages[messageID]
	if !exists {
		return fmt.Errorf("%w: %s not tracked", ErrUnknownMessage, messageID)
	}
	fn(msg)
	return nil
}

// MarkSending records the start of an attempt
func (t *MessageTracker) MarkSending(messageID string) error {
	return t.update(messageID, func(msg *TrackedMessage) {
		msg.State = StateSending
		msg.LastAttemptAt = t.now()
		msg.AttemptCount++
	})
}

// MarkAwaitingReceipt records a successful transport exchange
func (t *MessageTracker) MarkAwaitingReceipt(messageID string) error {
	return t.update(messageID, func(msg *TrackedMessage) {
		msg.State = StateAwaitingReceipt
	})
}

// RecordReceipt records the receipt for a message
func (t *MessageTracker) RecordReceipt(messageID string, receipt []byte) error {
	return t.update(messageID, func(msg *TrackedMessage) {
		msg.State = StateReceived
		msg.Receipt = receipt
	})
}

// RecordError records a failed attempt. The message goes back to
// submitted while attempts remain, otherwise it is failed.
func (t *MessageTracker) RecordError(messageID string, err error) error {
	return t.update(messageID, func(msg *TrackedMessage) {
		msg.Errors = append(msg.Errors, err.Error())
		if msg.AttemptCount >= msg.MaxAttempts {
			msg.State = StateFailed
		} else {
			msg.State = StateSubmitted
		}
	})
}

// MarkFailed fails a message regardless of remaining attempts
func (t *MessageTracker) MarkFailed(messageID string, err error) error {
	return t.update(messageID, func(msg *TrackedMessage) {
		if err != nil {
			msg.Errors = append(msg.Errors, err.Error())
		}
		msg.State = StateFailed
	})
}

// GetMessage returns a copy of the tracked message
func (t *MessageTracker) GetMessage(messageID string) (TrackedMessage, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	msg, exists := t.messages[messageID]
	if !exists {
		return TrackedMessage{}, false
	}
	c := *msg
	c.Errors = append([]string(nil), msg.Errors...)
	return c, true
}

// RemoveMessage stops tracking a message
func (t *MessageTracker) RemoveMessage(messageID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.messages, messageID)
}

// Prune removes finished messages submitted before the cutoff and returns
// how many were removed
func (t *MessageTracker) Prune(before time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, msg := range t.messages {
		if msg.State.Finished() && msg.SubmittedAt.Before(before) {
			delete(t.messages, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked messages
func (t *MessageTracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.messages)
}
