package message

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUserMessage(t *testing.T) *UserMessage {
	t.Helper()
	b := NewUserMessage(
		WithMessageId("order-1@example.com"),
		WithFrom("sender", "urn:oasis:names:tc:ebcore:partyid-type:unregistered"),
		WithTo("receiver", "urn:oasis:names:tc:ebcore:partyid-type:unregistered"),
		WithService("urn:example:orders"),
		WithServiceType("urn:example:type"),
		WithAction("submitOrder"),
		WithAgreementRef("urn:agreement"),
		WithPModeRef("orders-oneway"),
		WithConversationId("conv-1"),
		WithMessageProperty("originalSender", "urn:sender"),
		WithMPC(NsEbMS+"defaultMPC"),
	)
	b.AddPartInfo("cid:payload@example.com", "application/xml")
	um, err := b.Build()
	require.NoError(t, err)
	um.MessageInfo.Timestamp = um.MessageInfo.Timestamp.Truncate(time.Millisecond)
	return um
}

func TestEncodeUserMessage_Prefixes(t *testing.T) {
	data, err := EncodeUserMessage(testUserMessage(t))
	require.NoError(t, err)

	xml := string(data)
	assert.True(t, strings.HasPrefix(xml, "<?xml"))
	assert.Contains(t, xml, `<S12:Envelope xmlns:S12="`+NsSOAPEnv+`"`)
	assert.Contains(t, xml, `<eb:Messaging S12:mustUnderstand="true">`)
	assert.Contains(t, xml, `<eb:AgreementRef pmode="orders-oneway">urn:agreement</eb:AgreementRef>`)
	assert.Contains(t, xml, "<S12:Body/>")
}

func TestUserMessage_RoundTrip(t *testing.T) {
	um := testUserMessage(t)
	data, err := EncodeUserMessage(um)
	require.NoError(t, err)

	parsed, err := ParseEnvelope(data)
	require.NoError(t, err)
	require.NotNil(t, parsed.UserMessage)
	assert.Nil(t, parsed.SignalMessage)

	got := parsed.UserMessage
	assert.True(t, um.MessageInfo.Timestamp.Equal(got.MessageInfo.Timestamp))
	got.MessageInfo.Timestamp = um.MessageInfo.Timestamp
	assert.Equal(t, um, got)
}

func TestSignalMessage_RoundTrip(t *testing.T) {
	um := testUserMessage(t)

	t.Run("receipt", func(t *testing.T) {
		receipt := NewReceipt(um)
		data, err := EncodeSignalMessage(receipt)
		require.NoError(t, err)

		parsed, err := ParseEnvelope(data)
		require.NoError(t, err)
		sm := parsed.SignalMessage
		require.NotNil(t, sm)
		assert.Equal(t, receipt.ID(), sm.ID())
		assert.Equal(t, um.ID(), sm.RefToMessageID())
		require.NotNil(t, sm.Receipt)
		require.NotNil(t, sm.Receipt.UserMessage)
		assert.Equal(t, um.ID(), sm.Receipt.UserMessage.ID())
		assert.Empty(t, sm.Errors)
	})

	t.Run("error", func(t *testing.T) {
		errSignal := NewError(um.ID(), ErrorValueInconsistent, "PMode.Leg1 is missing")
		errSignal.Errors[0].ErrorDetail = "detail"
		data, err := EncodeSignalMessage(errSignal)
		require.NoError(t, err)

		parsed, err := ParseEnvelope(data)
		require.NoError(t, err)
		sm := parsed.SignalMessage
		require.NotNil(t, sm)
		assert.Nil(t, sm.Receipt)
		require.Len(t, sm.Errors, 1)
		assert.Equal(t, errSignal.Errors[0], sm.Errors[0])
	})

	t.Run("pull request", func(t *testing.T) {
		data, err := EncodeSignalMessage(NewPullRequest("urn:mpc:1"))
		require.NoError(t, err)

		parsed, err := ParseEnvelope(data)
		require.NoError(t, err)
		require.NotNil(t, parsed.SignalMessage.PullRequest)
		assert.Equal(t, "urn:mpc:1", parsed.SignalMessage.PullRequest.MPC)
	})
}

func TestParseEnvelope_Errors(t *testing.T) {
	tests := map[string]struct {
		input string
		want  error
	}{
		"not xml":      {input: "not xml at all <", want: ErrInvalidEnvelope},
		"wrong root":   {input: "<foo/>", want: ErrInvalidEnvelope},
		"no header":    {input: `<S:Envelope xmlns:S="` + NsSOAPEnv + `"><S:Body/></S:Envelope>`, want: ErrNoMessaging},
		"no messaging": {input: `<S:Envelope xmlns:S="` + NsSOAPEnv + `"><S:Header/><S:Body/></S:Envelope>`, want: ErrNoMessaging},
		"empty messaging": {
			input: `<S:Envelope xmlns:S="` + NsSOAPEnv + `" xmlns:eb="` + NsEbMS + `"><S:Header><eb:Messaging/></S:Header></S:Envelope>`,
			want:  ErrNoMessaging,
		},
		"bad timestamp": {
			input: `<S:Envelope xmlns:S="` + NsSOAPEnv + `" xmlns:eb="` + NsEbMS + `"><S:Header><eb:Messaging><eb:SignalMessage>` +
				`<eb:MessageInfo><eb:Timestamp>yesterday</eb:Timestamp><eb:MessageId>x</eb:MessageId></eb:MessageInfo>` +
				`</eb:SignalMessage></eb:Messaging></S:Header></S:Envelope>`,
			want: ErrInvalidEnvelope,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseEnvelope([]byte(tt.input))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseEnvelope_DefaultNamespace(t *testing.T) {
	input := `<Envelope xmlns="` + NsSOAPEnv + `"><Header><Messaging xmlns="` + NsEbMS + `"><UserMessage>` +
		`<MessageInfo><Timestamp>2024-05-01T10:00:00Z</Timestamp><MessageId>m1</MessageId></MessageInfo>` +
		`<PartyInfo><From><PartyId>a</PartyId><PartyId>b</PartyId><Role>r</Role></From><To><PartyId>c</PartyId><Role>r</Role></To></PartyInfo>` +
		`</UserMessage></Messaging></Header><Body/></Envelope>`

	parsed, err := ParseEnvelope([]byte(input))
	require.NoError(t, err)
	um := parsed.UserMessage
	require.NotNil(t, um)
	assert.Equal(t, "m1", um.ID())
	assert.Len(t, um.PartyInfo.From.PartyId, 2)
	assert.Nil(t, um.CollaborationInfo)
}

func TestEncode_Nil(t *testing.T) {
	_, err := EncodeUserMessage(nil)
	assert.Error(t, err)
	_, err = EncodeSignalMessage(nil)
	assert.Error(t, err)
}
