package msh

import (
	"context"
	"fmt"

	"github.com/sirosfoundation/go-as4-reliability/pkg/message"
	"github.com/sirosfoundation/go-as4-reliability/pkg/pmode"
	"github.com/sirosfoundation/go-as4-reliability/pkg/profile"
)

// HandleMessage processes an inbound envelope and returns the synchronous
// response. It implements transport.AS4Handler. Processing problems are
// answered with an ebMS error signal; a returned error means no response
// could be produced at all.
func (m *MSH) HandleMessage(ctx context.Context, data []byte) ([]byte, error) {
	ms, err := message.ParseEnvelope(data)
	if err != nil {
		m.logger.Warn("rejecting unparsable message", "error", err)
		return m.errorResponse("", message.ErrorInvalidHeader, err.Error())
	}

	if ms.UserMessage == nil {
		return m.handleSignal(ms.SignalMessage)
	}
	return m.handleUserMessage(ctx, ms.UserMessage, data)
}

func (m *MSH) handleUserMessage(ctx context.Context, um *message.UserMessage, raw []byte) ([]byte, error) {
	id := um.ID()
	if id == "" {
		return m.errorResponse("", message.ErrorInvalidHeader, "MessageId is missing")
	}
	logger := m.logger.With("message_id", id)

	md := &MessageMetadata{
		MessageID: id,
		Direction: MessageDirectionInbound,
		CreatedAt: m.now(),
		UpdatedAt: m.now(),
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

	pm, err := resolvePMode(ctx, m.pmodes, "", um)
	if err != nil {
		logger.Warn("no P-Mode for inbound message", "error", err)
		md.LastError = err.Error()
		m.reject(md)
		return m.errorResponse(id, message.ErrorProcessingModeMismatch, err.Error())
	}
	md.PModeID = pm.ID
	logger = logger.With("pmode", pm.ID)

	if m.profile != nil {
		findings := profile.CheckUserMessage(m.profile.Validator, um)
		if findings.ContainsError() {
			logger.Warn("inbound message violates profile", "profile", m.profile.ID, "findings", findings.String())
			md.LastError = findings.String()
			m.reject(md)
			return m.errorResponse(id, message.ErrorValueInconsistent, findings.String())
		}
	}

	dedup := pm.ReceptionAwareness.DuplicateDetectionEnabled()
	if dedup {
		res := m.store.CheckAndRecord(id)
		if res.IsDuplicate() {
			return m.handleDuplicate(ctx, md, res.Outcome, res.InFlight)
		}
	}

	if m.messageHandler != nil {
		in := &InboundMessage{UserMessage: um, PMode: pm, Raw: raw, ReceivedAt: md.CreatedAt}
		if err := m.messageHandler(ctx, in); err != nil {
			logger.Error("message delivery failed", "error", err)
			if dedup {
				m.store.Forget(id)
			}
			md.LastError = err.Error()
			m.reject(md)
			return m.errorResponse(id, message.ErrorDeliveryFailure, err.Error())
		}
	}

	var response []byte
	if receiptRequested(pm) {
		response, err = message.EncodeSignalMessage(message.NewReceipt(um))
		if err != nil {
			if dedup {
				m.store.Forget(id)
			}
			return nil, fmt.Errorf("receipt generation failed: %w", err)
		}
	}
	if dedup {
		if err := m.store.RecordOutcome(id, response); err != nil {
			logger.Warn("failed to record outcome", "error", err)
		}
	}

	m.setStatus(md, MessageStatusReceived)
	m.emitEvent(MessageEvent{Type: "message.received", MessageID: id, Direction: MessageDirectionInbound, Status: MessageStatusReceived})
	logger.Info("message received", "receipt", len(response) > 0)
	return response, nil
}

func (m *MSH) handleDuplicate(ctx context.Context, md *MessageMetadata, outcome []byte, inFlight bool) ([]byte, error) {
	logger := m.logger.With("message_id", md.MessageID, "pmode", md.PModeID)
	logger.Info("duplicate message", "in_flight", inFlight)
	m.emitEvent(MessageEvent{Type: "message.duplicate", MessageID: md.MessageID, Direction: MessageDirectionInbound, Status: MessageStatusDuplicate})

	if m.replayReceipts {
		if inFlight {
			var err error
			if outcome, err = m.store.Wait(ctx, md.MessageID); err != nil {
				logger.Debug("first reception did not complete", "error", err)
			}
		}
		if len(outcome) > 0 {
			return outcome, nil
		}
	}
	return m.errorResponse(md.MessageID, message.ErrorOther, "Duplicate message: already received")
}

// handleSignal accepts receipts and errors for messages sent earlier.
// Pull requests are answered with an empty partition warning.
func (m *MSH) handleSignal(sm *message.SignalMessage) ([]byte, error) {
	if m.profile != nil {
		findings := profile.CheckSignalMessage(m.profile.Validator, sm)
		if findings.ContainsError() {
			m.logger.Warn("inbound signal violates profile", "findings", findings.String())
			return m.errorResponse(sm.ID(), message.ErrorValueInconsistent, findings.String())
		}
	}

	ref := sm.RefToMessageID()
	switch {
	case sm.PullRequest != nil:
		return m.errorResponse(sm.ID(), message.ErrorEmptyMessagePartition, fmt.Sprintf("Nothing to pull from %s", mpcName(sm.PullRequest.MPC)))
	case sm.Receipt != nil:
		if err := m.tracker.RecordReceipt(ref, nil); err != nil {
			m.logger.Debug("receipt for untracked message", "ref_to_message_id", ref)
		} else {
			m.updateStatus(ref, MessageStatusAcknowledged, nil)
		}
	case sm.HasFailure():
		serr := &SignalError{MessageID: ref, Signal: sm}
		m.markTrackerFailed(ref, serr)
		m.updateStatus(ref, MessageStatusFailed, serr)
	}
	return nil, nil
}

func (m *MSH) reject(md *MessageMetadata) {
	md.UpdatedAt = m.now()
	m.setStatus(md, MessageStatusRejected)
	m.emitEvent(MessageEvent{Type: "message.rejected", MessageID: md.MessageID, Direction: MessageDirectionInbound, Status: MessageStatusRejected})
}

func (m *MSH) errorResponse(ref string, code message.ErrorCode, description string) ([]byte, error) {
	data, err := message.EncodeSignalMessage(message.NewError(ref, code, description))
	if err != nil {
		return nil, fmt.Errorf("error signal generation failed: %w", err)
	}
	return data, nil
}

func receiptRequested(pm *pmode.PMode) bool {
	return pm.Leg1 != nil && pm.Leg1.Security.ReceiptRequested()
}

func mpcName(mpc string) string {
	if mpc == "" {
		return pmode.DefaultMPC
	}
	return mpc
}
