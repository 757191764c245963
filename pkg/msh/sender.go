package msh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirosfoundation/go-as4-reliability/pkg/message"
	"github.com/sirosfoundation/go-as4-reliability/pkg/pmode"
	"github.com/sirosfoundation/go-as4-reliability/pkg/profile"
	"github.com/sirosfoundation/go-as4-reliability/pkg/reliability"
	"github.com/sirosfoundation/go-as4-reliability/pkg/transport"
)

const soapContentType = transport.ContentTypeSOAP + "; charset=utf-8"

func newOutboundMetadata(msg *OutboundMessage, now time.Time) *MessageMetadata {
	um := msg.UserMessage
	md := &MessageMetadata{
		MessageID: um.ID(),
		Direction: MessageDirectionOutbound,
		PModeID:   msg.PModeID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if um.MessageInfo != nil {
		md.RefToMessageID = um.MessageInfo.RefToMessageId
	}
	if um.PartyInfo != nil {
		md.FromPartyID = firstPartyID(um.PartyInfo.From)
		md.ToPartyID = firstPartyID(um.PartyInfo.To)
	}
	if ci := um.CollaborationInfo; ci != nil {
		md.ConversationID = ci.ConversationId
		md.Service = ci.Service.Value
		md.Action = ci.Action
	}
	return md
}

// Send pushes a user message on leg 1 of its P-Mode and waits for the
// synchronous response. The P-Mode and the message are checked against the
// profile first; retries follow the P-Mode reception awareness. A negative
// ebMS response is returned as *SignalError together with the result.
func (m *MSH) Send(ctx context.Context, msg *OutboundMessage) (*SendResult, error) {
	if err := validateOutboundMessage(msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	um := msg.UserMessage
	id := um.ID()
	logger := m.logger.With("message_id", id)

	md := newOutboundMetadata(msg, m.now())
	m.setStatus(md, MessageStatusSending)

	pm, err := resolvePMode(ctx, m.pmodes, msg.PModeID, um)
	if err != nil {
		m.updateStatus(id, MessageStatusFailed, err)
		return nil, err
	}
	logger = logger.With("pmode", pm.ID)
	if pm.Leg1 == nil {
		err := fmt.Errorf("%w: P-Mode %s has no leg 1", ErrNoPMode, pm.ID)
		m.updateStatus(id, MessageStatusFailed, err)
		return nil, err
	}

	applyPMode(um, pm)

	if err := m.checkOutbound(pm, um); err != nil {
		logger.Warn("message rejected by profile", "error", err)
		m.updateStatus(id, MessageStatusFailed, err)
		return nil, err
	}

	endpoint, err := m.endpoint(ctx, pm, um)
	if err != nil {
		m.updateStatus(id, MessageStatusFailed, err)
		return nil, err
	}
	m.setStatus(&MessageMetadata{MessageID: id, Direction: MessageDirectionOutbound, PModeID: pm.ID, Endpoint: endpoint, UpdatedAt: m.now()}, MessageStatusSending)

	envelope, err := message.EncodeUserMessage(um)
	if err != nil {
		err = fmt.Errorf("envelope building failed: %w", err)
		m.updateStatus(id, MessageStatusFailed, err)
		return nil, err
	}

	dumper := msg.Dumper
	if dumper == nil {
		dumper = m.dumper
	}
	policy := reliability.PolicyFromReceptionAwareness(pm.ReceptionAwareness, m.increaseFactor)
	logger.Debug("sending message", "endpoint", endpoint, "max_retries", policy.MaxRetries)

	resp, err := m.sender.Send(ctx, &reliability.Request{
		URL:           endpoint,
		ContentType:   soapContentType,
		Body:          reliability.BytesEntity(envelope),
		MessageID:     id,
		Mode:          reliability.ModeRequest,
		Policy:        policy,
		Dumper:        dumper,
		RetryCallback: msg.RetryCallback,
	})
	if err != nil {
		m.updateStatus(id, MessageStatusFailed, err)
		return nil, err
	}

	result := &SendResult{MessageID: id, PModeID: pm.ID, Endpoint: endpoint, Raw: resp.Body}
	if len(resp.Body) == 0 {
		if pm.Leg1.Security.ReceiptRequested() {
			logger.Warn("receiver returned no receipt")
		}
		m.updateStatus(id, MessageStatusSent, nil)
		m.emitEvent(MessageEvent{Type: "message.sent", MessageID: id, Direction: MessageDirectionOutbound, Status: MessageStatusSent})
		return result, nil
	}

	ms, err := message.ParseEnvelope(resp.Body)
	if err != nil {
		err = fmt.Errorf("invalid response to %s: %w", id, err)
		m.updateStatus(id, MessageStatusFailed, err)
		m.markTrackerFailed(id, err)
		return nil, err
	}
	if ms.SignalMessage == nil {
		err := fmt.Errorf("%w: response to %s carries no signal message", ErrInvalidMessage, id)
		m.updateStatus(id, MessageStatusFailed, err)
		m.markTrackerFailed(id, err)
		return nil, err
	}
	result.Signal = ms.SignalMessage

	if ms.SignalMessage.HasFailure() {
		serr := &SignalError{MessageID: id, Signal: ms.SignalMessage}
		logger.Error("message rejected by receiver", "codes", serr.Codes())
		m.updateStatus(id, MessageStatusFailed, serr)
		m.markTrackerFailed(id, serr)
		return result, serr
	}

	if ms.SignalMessage.Receipt != nil {
		if err := m.tracker.RecordReceipt(id, resp.Body); err != nil {
			logger.Debug("tracker update failed", "error", err)
		}
		m.updateStatus(id, MessageStatusAcknowledged, nil)
		m.emitEvent(MessageEvent{Type: "message.acknowledged", MessageID: id, Direction: MessageDirectionOutbound, Status: MessageStatusAcknowledged})
		logger.Info("message acknowledged", "receipt_id", ms.SignalMessage.ID())
		return result, nil
	}

	m.updateStatus(id, MessageStatusSent, nil)
	m.emitEvent(MessageEvent{Type: "message.sent", MessageID: id, Direction: MessageDirectionOutbound, Status: MessageStatusSent})
	return result, nil
}

// applyPMode fills the parts of a user message that the P-Mode determines
// and the caller left empty
func applyPMode(um *message.UserMessage, pm *pmode.PMode) {
	if um.CollaborationInfo == nil {
		um.CollaborationInfo = &message.CollaborationInfo{}
	}
	ci := um.CollaborationInfo
	if ci.AgreementRef == nil && pm.Agreement != "" {
		ci.AgreementRef = &message.AgreementRef{Value: pm.Agreement}
	}
	if ci.AgreementRef != nil && ci.AgreementRef.Pmode == "" {
		ci.AgreementRef.Pmode = pm.ID
	}

	if bi := pm.Leg1.BusinessInfo; bi != nil {
		if ci.Service.Value == "" {
			ci.Service = message.Service{Type: bi.ServiceType, Value: bi.Service}
		}
		if ci.Action == "" {
			ci.Action = bi.Action
		}
		if um.MPC == "" && bi.MPC != "" && bi.MPC != pmode.DefaultMPC {
			um.MPC = bi.MPC
		}
	}
}

func (m *MSH) checkOutbound(pm *pmode.PMode, um *message.UserMessage) error {
	if m.profile == nil {
		return nil
	}
	findings := profile.CheckPMode(m.profile.Validator, pm, profile.ModeUserMessage)
	findings.Merge(profile.CheckUserMessage(m.profile.Validator, um))
	if findings.ContainsError() {
		return &ValidationError{ProfileID: m.profile.ID, MessageID: um.ID(), Findings: findings}
	}
	if !findings.Empty() {
		m.logger.Warn("profile warnings", "message_id", um.ID(), "findings", findings.String())
	}
	return nil
}

func (m *MSH) endpoint(ctx context.Context, pm *pmode.PMode, um *message.UserMessage) (string, error) {
	if p := pm.Leg1.Protocol; p != nil && p.Address != "" {
		return p.Address, nil
	}
	if m.resolver == nil {
		return "", fmt.Errorf("%w: P-Mode %s has no address", ErrEndpointNotFound, pm.ID)
	}

	var partyID string
	if um.PartyInfo != nil {
		partyID = firstPartyID(um.PartyInfo.To)
	}
	info, err := m.resolver.ResolveEndpoint(ctx, partyID, um.CollaborationInfo.Service.Value, um.CollaborationInfo.Action)
	if err != nil {
		return "", err
	}
	if info.URL == "" {
		return "", fmt.Errorf("%w: empty URL for %s", ErrEndpointNotFound, partyID)
	}
	return info.URL, nil
}

func (m *MSH) markTrackerFailed(id string, err error) {
	if terr := m.tracker.MarkFailed(id, err); terr != nil && !errors.Is(terr, reliability.ErrUnknownMessage) {
		m.logger.Debug("tracker update failed", "message_id", id, "error", terr)
	}
}
