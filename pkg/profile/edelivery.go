package profile

import "github.com/sirosfoundation/go-as4-reliability/pkg/pmode"

// EDelivery2ID is the registry ID of the eDelivery AS4 2.0 common profile
const EDelivery2ID = "edelivery2"

func edelivery2Rules() *ruleSet {
	return &ruleSet{
		exchanges: []exchange{
			{pmode.OneWay, pmode.Push},
			{pmode.TwoWay, pmode.PushPush},
		},
		scheme: "https",
		soap:   pmode.SOAP12,
		wss:    pmode.WSS111,

		signatureAlgorithm:    pmode.AlgoEd25519,
		hashFunction:          pmode.HashSHA256,
		encryptionAlgorithm:   pmode.DataAlgoAES128GCM,
		minEncryptionStrength: 128,

		pmodeAuthorize:            false,
		sendReceipt:               true,
		sendReceiptNonRepudiation: true,
		replyPattern:              pmode.ReplyResponse,
		errorHandling: errorFlags{
			asResponse:                     true,
			processErrorNotifyProducer:     true,
			deliveryFailuresNotifyProducer: true,
		},
		compression: pmode.CompressionGzip,
	}
}

// EDelivery2 returns the eDelivery AS4 2.0 common profile (EdDSA signatures)
func EDelivery2() *Profile {
	r := edelivery2Rules()
	return &Profile{
		ID:          EDelivery2ID,
		DisplayName: "eDelivery AS4 2.0",
		Validator:   r,
		NewPMode:    r.newPMode,
	}
}
