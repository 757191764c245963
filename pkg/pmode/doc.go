// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package pmode provides Processing Mode (P-Mode) configuration for AS4.

A P-Mode is the agreed configuration that governs one message exchange
between an initiator and a responder: the message exchange pattern and its
binding, and for each leg the transport protocol, business information,
error handling and security policy, plus the reception awareness settings
that drive retries and duplicate detection.

# P-Mode Structure

	type PMode struct {
	    ID                 string
	    Initiator          *Party
	    Responder          *Party
	    Agreement          string
	    MEP                MEP      // OneWay or TwoWay
	    Binding            Binding  // Push, Pull, PushPush, PushPull, PullPush, Sync
	    Leg1               *Leg     // mandatory
	    Leg2               *Leg     // two-way only
	    PayloadService     *PayloadService
	    ReceptionAwareness *ReceptionAwareness
	}

# Tri-state flags

Flags that a profile must be able to tell apart from "not configured" are
modelled with [TriState] instead of bool:

	sec := pmode.NewSecurity().
	    WithPModeAuthorize(pmode.False).
	    WithSendReceipt(pmode.True)

	sec.SendReceiptNonRepudiation.IsDefined() // false

# Legs are values

Legs, security and error-handling sections are treated as immutable once
attached to a P-Mode. To probe a variation, build a copy:

	leg := pm.Leg1.WithSecurity(pm.Leg1.Security.WithSignatureAlgorithm(pmode.AlgoRSASHA512))
	variant := pm.WithLeg1(leg)

# P-Mode Manager

[Manager] is the lookup/persistence contract. [MemoryManager] keeps P-Modes
in memory; a MongoDB implementation lives in internal/storage/mongodb.

	manager := pmode.NewMemoryManager()
	_ = manager.Create(ctx, pm)
	found, err := manager.Find(ctx, service, action)

# YAML

P-Modes can be loaded from YAML documents with [LoadFile] and [Decode].

# References

  - OASIS ebMS 3.0 Core, Appendix D: https://docs.oasis-open.org/ebxml-msg/ebms/v3.0/core/os/
  - OASIS AS4 Profile: https://docs.oasis-open.org/ebxml-msg/ebms/v3.0/profiles/AS4-profile/v1.0/
*/
package pmode
