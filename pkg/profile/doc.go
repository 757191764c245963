// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package profile validates P-Modes and ebMS3 messages against AS4
interoperability profiles.

A profile is a named Validator. Validation never fails: every violation is
appended to an ordered Findings collection with a severity, a field path
and a message, and the caller decides whether an ERROR blocks processing.

# Built-in Profiles

	esens       e-SENS: RSA-SHA256, SHA-256, AES-128-GCM
	bdew        BDEW: ECDSA-SHA256, one-way push only, fixed agreement,
	            service and action whitelists, default MPC only
	edelivery2  eDelivery AS4 2.0: Ed25519, SHA-256, AES-128-GCM

All of them require HTTPS, SOAP 1.2, WS-Security 1.1.1, PModeAuthorize
false and signed receipts on the HTTP response.

# Usage

	p, err := profile.Get(profile.ESENSID)
	findings := profile.CheckPMode(p.Validator, pm, profile.ModeUserMessage)
	if findings.ContainsError() {
	    fmt.Println(findings)
	}

	// A conformant starting point
	pm := p.NewPMode(initiator, responder, "https://ap.example.com/as4")

A Findings collection belongs to the call that fills it; handing a nil or
already populated collection to a Validator panics.
*/
package profile
