package profile

import (
	"github.com/sirosfoundation/go-as4-reliability/pkg/message"
	"github.com/sirosfoundation/go-as4-reliability/pkg/pmode"
)

// BDEWID is the registry ID of the German energy market AS4 profile
const BDEWID = "bdew"

// BDEW constants
const (
	BDEWAgreement = "https://www.bdew.de/as4/communication/agreement"

	BDEWServiceFP = "https://www.bdew.de/as4/communication/services/FP"
	BDEWServiceMP = "https://www.bdew.de/as4/communication/services/MP"
	BDEWServiceSO = "https://www.bdew.de/as4/communication/services/SO"

	BDEWActionDefault = "http://docs.oasis-open.org/ebxml-msg/as4/200902/action"

	PartyIDTypeGLN  = "urn:oasis:names:tc:ebcore:partyid-type:iso6523:0088"
	PartyIDTypeBDEW = "urn:oasis:names:tc:ebcore:partyid-type:unregistered:BDEW"
	PartyIDTypeDVGW = "urn:oasis:names:tc:ebcore:partyid-type:unregistered:DVGW"
)

func bdewRules() *ruleSet {
	return &ruleSet{
		exchanges: []exchange{
			{pmode.OneWay, pmode.Push},
		},
		scheme: "https",
		soap:   pmode.SOAP12,
		wss:    pmode.WSS111,

		signatureAlgorithm:    pmode.AlgoECDSASHA256,
		hashFunction:          pmode.HashSHA256,
		encryptionAlgorithm:   pmode.DataAlgoAES128GCM,
		minEncryptionStrength: 128,

		pmodeAuthorize:            false,
		sendReceipt:               true,
		sendReceiptNonRepudiation: true,
		replyPattern:              pmode.ReplyResponse,
		errorHandling: errorFlags{
			asResponse: true,
		},
		compression: pmode.CompressionGzip,

		agreement:    BDEWAgreement,
		services:     []string{message.TestService, BDEWServiceFP, BDEWServiceMP, BDEWServiceSO},
		actions:      []string{message.TestAction, BDEWActionDefault},
		mpcs:         []string{pmode.DefaultMPC},
		partyIDTypes: []string{PartyIDTypeGLN, PartyIDTypeBDEW, PartyIDTypeDVGW},
	}
}

// BDEW returns the BDEW AS4 profile of the German energy market
func BDEW() *Profile {
	r := bdewRules()
	return &Profile{
		ID:          BDEWID,
		DisplayName: "BDEW",
		Validator:   r,
		NewPMode:    r.newPMode,
	}
}
