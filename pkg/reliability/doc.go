// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package reliability provides reception awareness for AS4 messaging.

# Retransmission

A Sender posts a message and retries failed attempts. The number of
retries, the base delay and the increase factor come from a RetryPolicy,
usually derived from the P-Mode:

	policy := reliability.PolicyFromReceptionAwareness(pm.ReceptionAwareness, 1.5)
	sender := reliability.NewSender(http.DefaultClient, reliability.WithTracker(reliability.NewMessageTracker()))

	resp, err := sender.Send(ctx, &reliability.Request{
	    URL:         pm.Leg1.Protocol.Address,
	    ContentType: "application/soap+xml",
	    Body:        reliability.BytesEntity(envelope),
	    MessageID:   id,
	    Policy:      policy,
	})

The first two retries wait the base delay, every later retry multiplies
the previous wait by the increase factor. A RetryCallback may stop the
loop early and a Dumper receives a copy of every attempt.

Streaming bodies (ReaderEntity) can only be sent once; asking for retries
with such a body fails with ErrBodyNotRepeatable.

# Duplicate Detection

A DuplicateStore remembers the IDs of received messages together with the
response that was produced for them:

	store := reliability.NewDuplicateStore(reliability.WithDisposalWindow(time.Hour))
	go store.Run(ctx, time.Minute)

	res := store.CheckAndRecord(id)
	if res.IsDuplicate() {
	    // replay res.Outcome, or store.Wait(ctx, id) while res.InFlight
	}
	...
	store.RecordOutcome(id, receipt)

Records older than the disposal window are evicted, records still being
processed are never evicted.

# References

  - OASIS AS4 Reception Awareness: https://docs.oasis-open.org/ebxml-msg/ebms/v3.0/profiles/AS4-profile/v1.0/
*/
package reliability
