// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package msh implements the Message Service Handler for AS4.

The MSH ties the P-Mode manager, a conformance profile, the reliable
sender and the duplicate detection store together.

# Outgoing Messages

Send resolves the P-Mode of a user message (explicit ID, AgreementRef pmode
attribute, then service and action), checks P-Mode and message against the
profile, and pushes the envelope to the leg 1 address. Retries follow the
P-Mode reception awareness:

	m, err := msh.NewMSH(msh.MSHConfig{
	    PModes:  pmodes,
	    Profile: profile.ESENS(),
	})
	result, err := m.Send(ctx, &msh.OutboundMessage{UserMessage: um})

An ebMS error on the response is returned as *SignalError, a profile
violation as *ValidationError. SendMessage queues the message for the
worker pool started by Start instead.

# Incoming Messages

The MSH implements transport.AS4Handler:

	server := transport.NewHTTPSServer(":8443", tlsConfig, m)

Inbound user messages are checked against the profile (EBMS:0003 on
violation), filtered through duplicate detection (EBMS:0004, or the
original receipt when ReplayReceipts is set) and handed to the
MessageHandler. A receipt is returned when the leg requests one on the
HTTP response.

# References

  - OASIS ebMS 3.0 Processing: https://docs.oasis-open.org/ebxml-msg/ebms/v3.0/core/os/
*/
package msh
