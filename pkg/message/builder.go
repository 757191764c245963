package message

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UserMessageBuilder helps construct AS4 UserMessages
type UserMessageBuilder struct {
	msg *UserMessage
}

// Option represents a functional option for UserMessageBuilder
type Option func(*UserMessageBuilder)

// NewUserMessage creates a new UserMessage with the given options
func NewUserMessage(opts ...Option) *UserMessageBuilder {
	builder := &UserMessageBuilder{
		msg: &UserMessage{
			MessageInfo: &MessageInfo{
				Timestamp: time.Now().UTC(),
				MessageId: NewMessageID(),
			},
			PartyInfo: &PartyInfo{
				From: &Party{Role: DefaultRole},
				To:   &Party{Role: DefaultRole},
			},
			CollaborationInfo: &CollaborationInfo{
				ConversationId: uuid.New().String(),
			},
		},
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder
}

// WithMessageId overrides the generated message id
func WithMessageId(id string) Option {
	return func(b *UserMessageBuilder) {
		b.msg.MessageInfo.MessageId = id
	}
}

// WithMPC sets the message partition channel
func WithMPC(mpc string) Option {
	return func(b *UserMessageBuilder) {
		b.msg.MPC = mpc
	}
}

// WithFrom sets the sender party information
func WithFrom(partyId, partyType string) Option {
	return func(b *UserMessageBuilder) {
		b.msg.PartyInfo.From.PartyId = []PartyId{{Type: partyType, Value: partyId}}
	}
}

// WithTo sets the receiver party information
func WithTo(partyId, partyType string) Option {
	return func(b *UserMessageBuilder) {
		b.msg.PartyInfo.To.PartyId = []PartyId{{Type: partyType, Value: partyId}}
	}
}

// WithFromRole sets the sender role
func WithFromRole(role string) Option {
	return func(b *UserMessageBuilder) {
		b.msg.PartyInfo.From.Role = role
	}
}

// WithToRole sets the receiver role
func WithToRole(role string) Option {
	return func(b *UserMessageBuilder) {
		b.msg.PartyInfo.To.Role = role
	}
}

// WithService sets the service information
func WithService(service string) Option {
	return func(b *UserMessageBuilder) {
		b.msg.CollaborationInfo.Service.Value = service
	}
}

// WithServiceType sets the service type attribute
func WithServiceType(serviceType string) Option {
	return func(b *UserMessageBuilder) {
		b.msg.CollaborationInfo.Service.Type = serviceType
	}
}

// WithAction sets the action
func WithAction(action string) Option {
	return func(b *UserMessageBuilder) {
		b.msg.CollaborationInfo.Action = action
	}
}

// WithConversationId sets a custom conversation ID
func WithConversationId(convId string) Option {
	return func(b *UserMessageBuilder) {
		b.msg.CollaborationInfo.ConversationId = convId
	}
}

// WithRefToMessageId sets the RefToMessageId for responses
func WithRefToMessageId(refId string) Option {
	return func(b *UserMessageBuilder) {
		b.msg.MessageInfo.RefToMessageId = refId
	}
}

// WithAgreementRef sets the agreement reference
func WithAgreementRef(agreementRef string) Option {
	return func(b *UserMessageBuilder) {
		if b.msg.CollaborationInfo.AgreementRef == nil {
			b.msg.CollaborationInfo.AgreementRef = &AgreementRef{}
		}
		b.msg.CollaborationInfo.AgreementRef.Value = agreementRef
	}
}

// WithPModeRef names the P-Mode in the agreement reference
func WithPModeRef(pmodeID string) Option {
	return func(b *UserMessageBuilder) {
		if b.msg.CollaborationInfo.AgreementRef == nil {
			b.msg.CollaborationInfo.AgreementRef = &AgreementRef{}
		}
		b.msg.CollaborationInfo.AgreementRef.Pmode = pmodeID
	}
}

// WithMessageProperty adds a message property
func WithMessageProperty(name, value string) Option {
	return func(b *UserMessageBuilder) {
		if b.msg.MessageProperties == nil {
			b.msg.MessageProperties = &MessageProperties{
				Property: make([]Property, 0),
			}
		}
		b.msg.MessageProperties.Property = append(b.msg.MessageProperties.Property, Property{
			Name:  name,
			Value: value,
		})
	}
}

// AddPartInfo references a payload carried outside the envelope
func (b *UserMessageBuilder) AddPartInfo(href, mimeType string) *UserMessageBuilder {
	if b.msg.PayloadInfo == nil {
		b.msg.PayloadInfo = &PayloadInfo{
			PartInfo: make([]PartInfo, 0),
		}
	}

	part := PartInfo{Href: href}
	if mimeType != "" {
		part.PartProperties = &PartProperties{
			Property: []Property{{Name: "MimeType", Value: mimeType}},
		}
	}
	b.msg.PayloadInfo.PartInfo = append(b.msg.PayloadInfo.PartInfo, part)

	return b
}

// Build returns the constructed UserMessage
func (b *UserMessageBuilder) Build() (*UserMessage, error) {
	if b.msg.MessageInfo.MessageId == "" {
		return nil, errors.New("message ID is required")
	}
	if len(b.msg.PartyInfo.From.PartyId) == 0 {
		return nil, errors.New("sender party ID is required")
	}
	if len(b.msg.PartyInfo.To.PartyId) == 0 {
		return nil, errors.New("receiver party ID is required")
	}
	if b.msg.CollaborationInfo.Service.Value == "" {
		return nil, errors.New("service is required")
	}
	if b.msg.CollaborationInfo.Action == "" {
		return nil, errors.New("action is required")
	}

	return b.msg, nil
}

// NewMessageID generates a unique message ID in RFC 2822 msg-id form
func NewMessageID() string {
	return fmt.Sprintf("%s@go-as4", uuid.New().String())
}

// NewReceipt creates a receipt signal message for a given UserMessage
func NewReceipt(um *UserMessage) *SignalMessage {
	return &SignalMessage{
		MessageInfo: &MessageInfo{
			Timestamp:      time.Now().UTC(),
			MessageId:      NewMessageID(),
			RefToMessageId: um.ID(),
		},
		Receipt: &Receipt{UserMessage: um},
	}
}

// NewError creates an error signal message
func NewError(refMessageId string, code ErrorCode, description string) *SignalMessage {
	return &SignalMessage{
		MessageInfo: &MessageInfo{
			Timestamp:      time.Now().UTC(),
			MessageId:      NewMessageID(),
			RefToMessageId: refMessageId,
		},
		Errors: []Error{code.New(refMessageId, description)},
	}
}

// NewPullRequest creates a pull request signal for the MPC
func NewPullRequest(mpc string) *SignalMessage {
	return &SignalMessage{
		MessageInfo: &MessageInfo{
			Timestamp: time.Now().UTC(),
			MessageId: NewMessageID(),
		},
		PullRequest: &PullRequest{MPC: mpc},
	}
}
