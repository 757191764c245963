package profile

import "github.com/sirosfoundation/go-as4-reliability/pkg/pmode"

// ESENSID is the registry ID of the e-SENS AS4 profile
const ESENSID = "esens"

func esensRules() *ruleSet {
	return &ruleSet{
		exchanges: []exchange{
			{pmode.OneWay, pmode.Push},
			{pmode.TwoWay, pmode.PushPush},
			{pmode.TwoWay, pmode.PushPull},
			{pmode.TwoWay, pmode.PullPush},
		},
		scheme: "https",
		soap:   pmode.SOAP12,
		wss:    pmode.WSS111,

		signatureAlgorithm:    pmode.AlgoRSASHA256,
		hashFunction:          pmode.HashSHA256,
		encryptionAlgorithm:   pmode.DataAlgoAES128GCM,
		minEncryptionStrength: 128,

		pmodeAuthorize:            false,
		sendReceipt:               true,
		sendReceiptNonRepudiation: true,
		replyPattern:              pmode.ReplyResponse,
		errorHandling: errorFlags{
			asResponse:                     true,
			processErrorNotifyConsumer:     true,
			processErrorNotifyProducer:     true,
			deliveryFailuresNotifyProducer: true,
		},
		compression: pmode.CompressionGzip,
	}
}

// ESENS returns the e-SENS AS4 profile used by CEF eDelivery and PEPPOL
// style networks
func ESENS() *Profile {
	r := esensRules()
	return &Profile{
		ID:          ESENSID,
		DisplayName: "e-SENS",
		Validator:   r,
		NewPMode:    r.newPMode,
	}
}
