package msh

import (
	"context"
	"time"

	"github.com/sirosfoundation/go-as4-reliability/pkg/message"
	"github.com/sirosfoundation/go-as4-reliability/pkg/pmode"
	"github.com/sirosfoundation/go-as4-reliability/pkg/reliability"
)

// MessageStatus represents the current state of a message
type MessageStatus string

const (
	// MessageStatusPending indicates the message is queued for sending
	MessageStatusPending MessageStatus = "PENDING"
	// MessageStatusSending indicates the message is being transmitted
	MessageStatusSending MessageStatus = "SENDING"
	// MessageStatusSent indicates the message was sent but no receipt came back
	MessageStatusSent MessageStatus = "SENT"
	// MessageStatusAcknowledged indicates a receipt was received
	MessageStatusAcknowledged MessageStatus = "ACKNOWLEDGED"
	// MessageStatusReceived indicates an inbound message was accepted
	MessageStatusReceived MessageStatus = "RECEIVED"
	// MessageStatusDuplicate indicates an inbound message was seen before
	MessageStatusDuplicate MessageStatus = "DUPLICATE"
	// MessageStatusRejected indicates an inbound message was answered with an error
	MessageStatusRejected MessageStatus = "REJECTED"
	// MessageStatusFailed indicates the message failed to send
	MessageStatusFailed MessageStatus = "FAILED"
)

// Finished reports whether no further transition is expected
func (s MessageStatus) Finished() bool {
	switch s {
	case MessageStatusPending, MessageStatusSending:
		return false
	default:
		return true
	}
}

// MessageDirection indicates whether this is an outbound or inbound message
type MessageDirection string

const (
	// MessageDirectionOutbound for messages being sent
	MessageDirectionOutbound MessageDirection = "OUTBOUND"
	// MessageDirectionInbound for messages being received
	MessageDirectionInbound MessageDirection = "INBOUND"
)

// MessageMetadata contains metadata about a message being processed
type MessageMetadata struct {
	MessageID      string
	ConversationID string
	RefToMessageID string
	Direction      MessageDirection
	Status         MessageStatus
	PModeID        string
	Endpoint       string
	LastError      string
	FromPartyID    string
	ToPartyID      string
	Service        string
	Action         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OutboundMessage is a user message to send
type OutboundMessage struct {
	UserMessage *message.UserMessage
	// PModeID selects the P-Mode. If empty the AgreementRef pmode attribute
	// is used, then service and action.
	PModeID       string
	Dumper        reliability.Dumper
	RetryCallback reliability.RetryCallback
}

// MessageID returns the ID of the wrapped user message
func (o *OutboundMessage) MessageID() string {
	if o == nil {
		return ""
	}
	return o.UserMessage.ID()
}

// SendResult is the outcome of a successful exchange
type SendResult struct {
	MessageID string
	PModeID   string
	Endpoint  string
	// Signal is the synchronous response, nil if the receiver answered
	// without a body
	Signal *message.SignalMessage
	Raw    []byte
}

// InboundMessage is a received user message handed to the MessageHandler
type InboundMessage struct {
	UserMessage *message.UserMessage
	PMode       *pmode.PMode
	Raw         []byte
	ReceivedAt  time.Time
}

// MessageEvent represents an event in the message lifecycle
type MessageEvent struct {
	Type      string
	MessageID string
	Timestamp time.Time
	Status    MessageStatus
	Direction MessageDirection
	Error     error
	Data      map[string]interface{}
}

// MessageHandler delivers a received user message to the business
// application. A returned error is reported to the sender.
type MessageHandler func(ctx context.Context, msg *InboundMessage) error

// EventHandler is the callback function for message lifecycle events
type EventHandler func(MessageEvent)

// ErrorHandler is the callback function for asynchronous send failures
type ErrorHandler func(messageID string, err error)
