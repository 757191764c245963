// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package goas4reliability implements the reliable messaging core of an AS4
(ebMS 3.0) message service handler.

# Overview

go-as4-reliability covers the parts of an AS4 gateway that decide whether a
message is allowed, get it across an unreliable network and make sure the
receiver processes it exactly once:

  - Processing Modes (P-Modes) describing each exchange
  - Interoperability profiles (e-SENS, BDEW, eDelivery AS4 2.0) that check
    P-Modes and messages and report findings
  - A reliable sender with incremental backoff, retry callbacks and
    outgoing message dumps
  - A duplicate detection store with a configurable disposal window

Signing, encryption, MIME packaging and SMP discovery are left to the
embedding gateway.

# Specifications Implemented

  - OASIS AS4 Profile of ebMS 3.0 Version 1.0: https://docs.oasis-open.org/ebxml-msg/ebms/v3.0/profiles/AS4-profile/v1.0/
  - OASIS ebXML Messaging Services v3.0: https://docs.oasis-open.org/ebxml-msg/ebms/v3.0/core/os/
  - eDelivery AS4 2.0: https://ec.europa.eu/digital-building-blocks/sites/spaces/DIGITAL/pages/845480153/eDelivery+AS4+-+2.0

# Package Structure

	github.com/sirosfoundation/go-as4-reliability/pkg/pmode       - Processing Mode model, YAML codec and manager
	github.com/sirosfoundation/go-as4-reliability/pkg/profile     - Profile validators and findings
	github.com/sirosfoundation/go-as4-reliability/pkg/reliability - Reliable sender, tracker and duplicate detection
	github.com/sirosfoundation/go-as4-reliability/pkg/message     - ebMS3 messages and SOAP envelope codec
	github.com/sirosfoundation/go-as4-reliability/pkg/transport   - HTTPS transport with TLS 1.2/1.3
	github.com/sirosfoundation/go-as4-reliability/pkg/msh         - Message Service Handler
	github.com/sirosfoundation/go-as4-reliability/cmd/as4d        - Receiver daemon and P-Mode validator

# Quick Start

To send a message reliably:

	pm := profile.ESENS().NewPMode(initiator, responder, "https://receiver.example.com/as4")
	pm.Leg1.BusinessInfo.Service = "http://example.com/service"
	pm.Leg1.BusinessInfo.Action = "processOrder"

	pmodes := pmode.NewMemoryManager()
	_ = pmodes.Create(ctx, pm)

	handler, _ := msh.NewMSH(msh.MSHConfig{
	    PModes:  pmodes,
	    Profile: profile.ESENS(),
	})

	um, _ := message.NewUserMessage(
	    message.WithFrom("sender-id", ""),
	    message.WithTo("receiver-id", ""),
	    message.WithService("http://example.com/service"),
	    message.WithAction("processOrder"),
	).Build()

	result, err := handler.Send(ctx, &msh.OutboundMessage{UserMessage: um})

The send is retried as the P-Mode's reception awareness allows; result
carries the receipt. The receiving side serves the same MSH through
transport.NewHTTPSServer, which detects duplicates and answers with a
receipt or an ebMS error signal.

# License

BSD-2-Clause License
*/
package goas4reliability
