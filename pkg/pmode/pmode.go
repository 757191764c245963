// Package pmode implements Processing Mode configuration for AS4

package pmode

import (
	"net/url"
	"reflect"
	"strings"
	"time"
)

// Signature algorithms
type SignatureAlgorithm string

const (
	AlgoEd25519     SignatureAlgorithm = "http://www.w3.org/2021/04/xmldsig-more#eddsa-ed25519"
	AlgoRSASHA256   SignatureAlgorithm = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
	AlgoRSASHA384   SignatureAlgorithm = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha384"
	AlgoRSASHA512   SignatureAlgorithm = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha512"
	AlgoECDSASHA256 SignatureAlgorithm = "http://www.w3.org/2001/04/xmldsig-more#ecdsa-sha256"
)

// Hash algorithms used for signature digests
type HashAlgorithm string

const (
	HashSHA256 HashAlgorithm = "http://www.w3.org/2001/04/xmlenc#sha256"
	HashSHA384 HashAlgorithm = "http://www.w3.org/2001/04/xmldsig-more#sha384"
	HashSHA512 HashAlgorithm = "http://www.w3.org/2001/04/xmlenc#sha512"
)

// Data encryption algorithms
type DataEncryptionAlgorithm string

const (
	DataAlgoAES128GCM DataEncryptionAlgorithm = "http://www.w3.org/2009/xmlenc11#aes128-gcm"
	DataAlgoAES256GCM DataEncryptionAlgorithm = "http://www.w3.org/2009/xmlenc11#aes256-gcm"
	DataAlgoAES128CBC DataEncryptionAlgorithm = "http://www.w3.org/2001/04/xmlenc#aes128-cbc"
	DataAlgoAES256CBC DataEncryptionAlgorithm = "http://www.w3.org/2001/04/xmlenc#aes256-cbc"
)

// KeySize returns the symmetric key size in bits, or 0 if unknown
func (a DataEncryptionAlgorithm) KeySize() int {
	switch a {
	case DataAlgoAES128GCM, DataAlgoAES128CBC:
		return 128
	case DataAlgoAES256GCM, DataAlgoAES256CBC:
		return 256
	default:
		return 0
	}
}

// SOAPVersion of the envelope carried on a leg
type SOAPVersion string

const (
	SOAP11 SOAPVersion = "1.1"
	SOAP12 SOAPVersion = "1.2"
)

// WSSVersion is the WS-Security version applied on a leg
type WSSVersion string

const (
	WSS10  WSSVersion = "1.0"
	WSS111 WSSVersion = "1.1.1"
)

// ReplyPattern defines how receipts are returned
type ReplyPattern string

const (
	ReplyResponse ReplyPattern = "response"
	ReplyCallback ReplyPattern = "callback"
)

// CompressionType for the payload service
type CompressionType string

const (
	CompressionNone CompressionType = ""
	CompressionGzip CompressionType = "application/gzip"
)

// DefaultMPC is the ebMS3 default Message Partition Channel
const DefaultMPC = ebmsNS + "defaultMPC"

// Party identifies the initiator or responder of an exchange
type Party struct {
	IDType string `yaml:"idType,omitempty"`
	ID     string `yaml:"id"`
	Role   string `yaml:"role,omitempty"`
}

// PMode is the processing mode of one agreed message exchange
type PMode struct {
	ID                 string              `yaml:"id"`
	Initiator          *Party              `yaml:"initiator,omitempty"`
	Responder          *Party              `yaml:"responder,omitempty"`
	Agreement          string              `yaml:"agreement,omitempty"`
	MEP                MEP                 `yaml:"mep,omitempty"`
	Binding            Binding             `yaml:"binding,omitempty"`
	Leg1               *Leg                `yaml:"leg1,omitempty"`
	Leg2               *Leg                `yaml:"leg2,omitempty"`
	PayloadService     *PayloadService     `yaml:"payloadService,omitempty"`
	ReceptionAwareness *ReceptionAwareness `yaml:"receptionAwareness,omitempty"`
}

// Leg returns leg n (1 or 2), or nil
func (pm *PMode) Leg(n int) *Leg {
	switch n {
	case 1:
		return pm.Leg1
	case 2:
		return pm.Leg2
	default:
		return nil
	}
}

// WithLeg1 returns a shallow copy of the P-Mode with leg 1 replaced
func (pm *PMode) WithLeg1(leg *Leg) *PMode {
	c := *pm
	c.Leg1 = leg
	return &c
}

// WithLeg2 returns a shallow copy of the P-Mode with leg 2 replaced
func (pm *PMode) WithLeg2(leg *Leg) *PMode {
	c := *pm
	c.Leg2 = leg
	return &c
}

// Clone returns a deep copy
func (pm *PMode) Clone() *PMode {
	if pm == nil {
		return nil
	}
	c := *pm
	if pm.Initiator != nil {
		p := *pm.Initiator
		c.Initiator = &p
	}
	if pm.Responder != nil {
		p := *pm.Responder
		c.Responder = &p
	}
	c.Leg1 = pm.Leg1.Clone()
	c.Leg2 = pm.Leg2.Clone()
	if pm.PayloadService != nil {
		ps := *pm.PayloadService
		c.PayloadService = &ps
	}
	if pm.ReceptionAwareness != nil {
		ra := *pm.ReceptionAwareness
		c.ReceptionAwareness = &ra
	}
	return &c
}

// Equal reports structural equality
func (pm *PMode) Equal(other *PMode) bool {
	return reflect.DeepEqual(pm, other)
}

// Leg is one leg of a message exchange
type Leg struct {
	Protocol      *Protocol      `yaml:"protocol,omitempty"`
	BusinessInfo  *BusinessInfo  `yaml:"businessInfo,omitempty"`
	ErrorHandling *ErrorHandling `yaml:"errorHandling,omitempty"`
	Security      *Security      `yaml:"security,omitempty"`
}

// NewLeg creates a leg from its sections
func NewLeg(protocol *Protocol, businessInfo *BusinessInfo, errorHandling *ErrorHandling, security *Security) *Leg {
	return &Leg{
		Protocol:      protocol,
		BusinessInfo:  businessInfo,
		ErrorHandling: errorHandling,
		Security:      security,
	}
}

// WithProtocol returns a copy of the leg with the protocol replaced
func (l *Leg) WithProtocol(p *Protocol) *Leg {
	c := *l
	c.Protocol = p
	return &c
}

// WithBusinessInfo returns a copy of the leg with the business info replaced
func (l *Leg) WithBusinessInfo(bi *BusinessInfo) *Leg {
	c := *l
	c.BusinessInfo = bi
	return &c
}

// WithErrorHandling returns a copy of the leg with the error handling replaced
func (l *Leg) WithErrorHandling(eh *ErrorHandling) *Leg {
	c := *l
	c.ErrorHandling = eh
	return &c
}

// WithSecurity returns a copy of the leg with the security replaced
func (l *Leg) WithSecurity(s *Security) *Leg {
	c := *l
	c.Security = s
	return &c
}

// Clone returns a deep copy
func (l *Leg) Clone() *Leg {
	if l == nil {
		return nil
	}
	c := *l
	if l.Protocol != nil {
		p := *l.Protocol
		c.Protocol = &p
	}
	c.BusinessInfo = l.BusinessInfo.Clone()
	c.ErrorHandling = l.ErrorHandling.Clone()
	c.Security = l.Security.Clone()
	return &c
}

// Equal reports structural equality
func (l *Leg) Equal(other *Leg) bool {
	return reflect.DeepEqual(l, other)
}

// Protocol contains transport parameters of a leg
type Protocol struct {
	Address     string      `yaml:"address"`
	SOAPVersion SOAPVersion `yaml:"soapVersion,omitempty"`
}

// Scheme returns the lower-cased URL scheme of the address, or "" if it
// cannot be determined
func (p *Protocol) Scheme() string {
	u, err := url.Parse(p.Address)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Scheme)
}

// BusinessInfo contains business-level message information
type BusinessInfo struct {
	Service             string           `yaml:"service,omitempty"`
	ServiceType         string           `yaml:"serviceType,omitempty"`
	Action              string           `yaml:"action,omitempty"`
	Properties          []Property       `yaml:"properties,omitempty"`
	PayloadProfiles     []PayloadProfile `yaml:"payloadProfiles,omitempty"`
	PayloadProfileMaxKB int              `yaml:"payloadProfileMaxKB,omitempty"`
	MPC                 string           `yaml:"mpc,omitempty"`
}

// Clone returns a deep copy
func (bi *BusinessInfo) Clone() *BusinessInfo {
	if bi == nil {
		return nil
	}
	c := *bi
	c.Properties = append([]Property(nil), bi.Properties...)
	c.PayloadProfiles = append([]PayloadProfile(nil), bi.PayloadProfiles...)
	return &c
}

// Property is a message property the exchange expects
type Property struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	DataType    string `yaml:"dataType,omitempty"`
	Required    bool   `yaml:"required,omitempty"`
}

// PayloadProfile constrains one payload part
type PayloadProfile struct {
	Name        string `yaml:"name"`
	MimeType    string `yaml:"mimeType,omitempty"`
	XSDFilename string `yaml:"xsdFilename,omitempty"`
	MaxSizeKB   int    `yaml:"maxSizeKB,omitempty"`
	Required    bool   `yaml:"required,omitempty"`
}

// ErrorHandling contains error reporting configuration
type ErrorHandling struct {
	ReportSenderErrorsTo   []string `yaml:"reportSenderErrorsTo,omitempty"`
	ReportReceiverErrorsTo []string `yaml:"reportReceiverErrorsTo,omitempty"`

	ReportAsResponse                     TriState `yaml:"reportAsResponse,omitempty"`
	ReportProcessErrorNotifyConsumer     TriState `yaml:"reportProcessErrorNotifyConsumer,omitempty"`
	ReportProcessErrorNotifyProducer     TriState `yaml:"reportProcessErrorNotifyProducer,omitempty"`
	ReportDeliveryFailuresNotifyProducer TriState `yaml:"reportDeliveryFailuresNotifyProducer,omitempty"`
}

// NewErrorHandling creates an error handling section with the four
// notification flags set
func NewErrorHandling(asResponse, processErrorNotifyConsumer, processErrorNotifyProducer, deliveryFailuresNotifyProducer TriState) *ErrorHandling {
	return &ErrorHandling{
		ReportAsResponse:                     asResponse,
		ReportProcessErrorNotifyConsumer:     processErrorNotifyConsumer,
		ReportProcessErrorNotifyProducer:     processErrorNotifyProducer,
		ReportDeliveryFailuresNotifyProducer: deliveryFailuresNotifyProducer,
	}
}

// Clone returns a deep copy
func (eh *ErrorHandling) Clone() *ErrorHandling {
	if eh == nil {
		return nil
	}
	c := *eh
	c.ReportSenderErrorsTo = append([]string(nil), eh.ReportSenderErrorsTo...)
	c.ReportReceiverErrorsTo = append([]string(nil), eh.ReportReceiverErrorsTo...)
	return &c
}

func (eh *ErrorHandling) WithReportAsResponse(v TriState) *ErrorHandling {
	c := eh.Clone()
	c.ReportAsResponse = v
	return c
}

func (eh *ErrorHandling) WithReportProcessErrorNotifyConsumer(v TriState) *ErrorHandling {
	c := eh.Clone()
	c.ReportProcessErrorNotifyConsumer = v
	return c
}

func (eh *ErrorHandling) WithReportProcessErrorNotifyProducer(v TriState) *ErrorHandling {
	c := eh.Clone()
	c.ReportProcessErrorNotifyProducer = v
	return c
}

func (eh *ErrorHandling) WithReportDeliveryFailuresNotifyProducer(v TriState) *ErrorHandling {
	c := eh.Clone()
	c.ReportDeliveryFailuresNotifyProducer = v
	return c
}

// PayloadService contains payload handling configuration
type PayloadService struct {
	Compression CompressionType `yaml:"compression,omitempty"`
}

// ReceptionAwareness contains reliability parameters. It is read, never
// written, by the sender and the duplicate detection store.
type ReceptionAwareness struct {
	Enabled            TriState      `yaml:"enabled,omitempty"`
	Retry              TriState      `yaml:"retry,omitempty"`
	MaxRetries         int           `yaml:"maxRetries,omitempty"`
	RetryInterval      time.Duration `yaml:"retryInterval,omitempty"`
	DuplicateDetection TriState      `yaml:"duplicateDetection,omitempty"`
}

// DefaultReceptionAwareness returns reception awareness with retries and
// duplicate detection enabled
func DefaultReceptionAwareness() *ReceptionAwareness {
	return &ReceptionAwareness{
		Enabled:            True,
		Retry:              True,
		MaxRetries:         3,
		RetryInterval:      time.Minute,
		DuplicateDetection: True,
	}
}

// RetryEnabled reports whether both reception awareness and retry are on
func (ra *ReceptionAwareness) RetryEnabled() bool {
	return ra != nil && ra.Enabled.IsTrue() && ra.Retry.IsTrue()
}

// DuplicateDetectionEnabled reports whether both reception awareness and
// duplicate detection are on
func (ra *ReceptionAwareness) DuplicateDetectionEnabled() bool {
	return ra != nil && ra.Enabled.IsTrue() && ra.DuplicateDetection.IsTrue()
}
