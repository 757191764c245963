// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package message provides AS4 message structures, builders and the SOAP 1.2
envelope codec.

This package implements the message structures defined in the OASIS ebXML
Messaging Services Version 3.0 specification, with extensions for the
AS4 profile.

# Message Types

UserMessage - Business messages containing:
  - MessageInfo: Message ID, timestamp, RefToMessageId
  - PartyInfo: Sender and receiver party identification
  - CollaborationInfo: Agreement, service, action, conversation ID
  - MessageProperties: Custom properties
  - PayloadInfo: References to payloads carried outside the envelope

SignalMessage - Protocol signals, exactly one of:
  - Receipt: Acknowledgment of a received user message
  - Error: One or more ebMS3 errors
  - PullRequest: Request for a message from a partition channel

# Building Messages

	msg, err := message.NewUserMessage(
	    message.WithFrom("sender", "urn:oasis:names:tc:ebcore:partyid-type:unregistered"),
	    message.WithTo("receiver", "urn:oasis:names:tc:ebcore:partyid-type:unregistered"),
	    message.WithService("http://example.com/service"),
	    message.WithAction("processDocument"),
	    message.WithPModeRef("orders-oneway"),
	).Build()

# Envelopes

Messages are written with eb: and S12: prefixes, as WSS4J based peers
expect, and parsed by local name so default namespace declarations are
accepted too:

	data, err := message.EncodeUserMessage(msg)
	messaging, err := message.ParseEnvelope(data)

	receipt := message.NewReceipt(messaging.UserMessage)
	fault := message.NewError(msg.ID(), message.ErrorOther, "duplicate")

# References

  - OASIS ebMS 3.0 Core: https://docs.oasis-open.org/ebxml-msg/ebms/v3.0/core/os/
  - ebCore Party ID Types: https://docs.oasis-open.org/ebcore/PartyIdType/v1.0/
*/
package message
