// Package message provides AS4 message structure and ebMS3 headers implementation.
package message

import "time"

// Namespace constants for AS4/ebMS3
const (
	NsSOAPEnv = "http://www.w3.org/2003/05/soap-envelope"
	NsSOAP11  = "http://schemas.xmlsoap.org/soap/envelope/"
	NsEbMS    = "http://docs.oasis-open.org/ebxml-msg/ebms/v3.0/ns/core/200704/"
	NsXML     = "http://www.w3.org/XML/1998/namespace"
)

// Default role and test service constants
const (
	DefaultRole = NsEbMS + "defaultRole"
	TestService = NsEbMS + "service"
	TestAction  = NsEbMS + "test"
)

// Messaging is the content of the ebMS3 Messaging header. At most one of
// UserMessage and SignalMessage is set.
type Messaging struct {
	UserMessage   *UserMessage
	SignalMessage *SignalMessage
}

// UserMessage represents an ebMS3 UserMessage
type UserMessage struct {
	MPC               string
	MessageInfo       *MessageInfo
	PartyInfo         *PartyInfo
	CollaborationInfo *CollaborationInfo
	MessageProperties *MessageProperties
	PayloadInfo       *PayloadInfo
}

// ID returns the message id, or "" if MessageInfo is missing
func (m *UserMessage) ID() string {
	if m == nil || m.MessageInfo == nil {
		return ""
	}
	return m.MessageInfo.MessageId
}

// MessageInfo contains message identification and timestamps
type MessageInfo struct {
	Timestamp      time.Time
	MessageId      string
	RefToMessageId string
}

// PartyInfo contains sender and receiver party information
type PartyInfo struct {
	From *Party
	To   *Party
}

// Party represents a messaging party
type Party struct {
	PartyId []PartyId
	Role    string
}

// PartyId represents a party identifier with type
type PartyId struct {
	Type  string
	Value string
}

// CollaborationInfo contains service and action information
type CollaborationInfo struct {
	AgreementRef   *AgreementRef
	Service        Service
	Action         string
	ConversationId string
}

// AgreementRef references a business agreement and optionally a P-Mode
type AgreementRef struct {
	Type  string
	Pmode string
	Value string
}

// Service identifies the service
type Service struct {
	Type  string
	Value string
}

// MessageProperties contains custom message properties
type MessageProperties struct {
	Property []Property
}

// Property represents a message property
type Property struct {
	Name  string
	Type  string
	Value string
}

// PayloadInfo contains references to payload parts
type PayloadInfo struct {
	PartInfo []PartInfo
}

// PartInfo describes a payload part
type PartInfo struct {
	Href           string
	PartProperties *PartProperties
}

// PartProperties contains properties for a payload part
type PartProperties struct {
	Property []Property
}

// SignalMessage represents an ebMS3 SignalMessage. A well formed signal
// carries exactly one of Receipt, Errors and PullRequest.
type SignalMessage struct {
	MessageInfo *MessageInfo
	Receipt     *Receipt
	Errors      []Error
	PullRequest *PullRequest
}

// ID returns the message id, or "" if MessageInfo is missing
func (s *SignalMessage) ID() string {
	if s == nil || s.MessageInfo == nil {
		return ""
	}
	return s.MessageInfo.MessageId
}

// RefToMessageID returns the id of the message this signal answers
func (s *SignalMessage) RefToMessageID() string {
	if s == nil || s.MessageInfo == nil {
		return ""
	}
	return s.MessageInfo.RefToMessageId
}

// HasFailure reports whether any error has severity failure
func (s *SignalMessage) HasFailure() bool {
	for _, e := range s.Errors {
		if e.IsFailure() {
			return true
		}
	}
	return false
}

// Receipt acknowledges a user message. For non-repudiation-less receipts the
// acknowledged UserMessage header is echoed back.
type Receipt struct {
	UserMessage *UserMessage
}

// PullRequest asks the responder for a message from an MPC
type PullRequest struct {
	MPC string
}

// Error represents an ebMS3 error
type Error struct {
	ErrorCode           string
	Severity            string
	ShortDescription    string
	Category            string
	Origin              string
	RefToMessageInError string
	Description         string
	ErrorDetail         string
}

// IsFailure reports whether the error is fatal for the referenced message
func (e Error) IsFailure() bool {
	return e.Severity != SeverityWarning
}

func (e Error) String() string {
	s := e.ErrorCode + " " + e.ShortDescription
	if e.Description != "" {
		s += ": " + e.Description
	}
	return s
}
