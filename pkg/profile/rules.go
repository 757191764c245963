package profile

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sirosfoundation/go-as4-reliability/pkg/message"
	"github.com/sirosfoundation/go-as4-reliability/pkg/pmode"
)

// exchange is a legal MEP and binding pair
type exchange struct {
	mep     pmode.MEP
	binding pmode.Binding
}

func (e exchange) String() string {
	return e.mep.Name() + "/" + e.binding.Name()
}

// errorFlags are the required values of the four error handling flags
type errorFlags struct {
	asResponse                     bool
	processErrorNotifyConsumer     bool
	processErrorNotifyProducer     bool
	deliveryFailuresNotifyProducer bool
}

// ruleSet is a table driven Validator; each profile is one ruleSet value
type ruleSet struct {
	exchanges []exchange
	scheme    string
	soap      pmode.SOAPVersion
	wss       pmode.WSSVersion

	signatureAlgorithm    pmode.SignatureAlgorithm
	hashFunction          pmode.HashAlgorithm
	encryptionAlgorithm   pmode.DataEncryptionAlgorithm
	minEncryptionStrength int

	pmodeAuthorize            bool
	sendReceipt               bool
	sendReceiptNonRepudiation bool
	replyPattern              pmode.ReplyPattern
	errorHandling             errorFlags
	compression               pmode.CompressionType

	// Empty values and nil lists mean "anything goes"
	agreement    string
	services     []string
	actions      []string
	mpcs         []string
	partyIDTypes []string
}

var _ Validator = (*ruleSet)(nil)

// ValidatePMode checks a P-Mode
func (r *ruleSet) ValidatePMode(pm *pmode.PMode, f *Findings, mode Mode) {
	requireFresh(f)
	if pm == nil {
		f.AddError("PMode", "PMode is missing")
		return
	}

	r.checkExchange(pm, f)

	if pm.Leg1 == nil {
		f.AddError("PMode.Leg1", "PMode is missing Leg 1")
	} else {
		r.checkLeg(pm.Leg1, "PMode.Leg1", f, mode)
	}

	switch {
	case pm.MEP.IsTwoWay() && pm.Leg2 == nil:
		f.AddError("PMode.Leg2", "PMode is missing Leg 2")
	case pm.MEP.IsOneWay() && pm.Leg2 != nil:
		f.AddError("PMode.Leg2", "One-way PMode must not define Leg 2")
	case pm.Leg2 != nil:
		r.checkLeg(pm.Leg2, "PMode.Leg2", f, mode)
	}

	if r.agreement != "" && pm.Agreement != r.agreement {
		f.AddError("PMode.Agreement", "Agreement must be '%s'", r.agreement)
	}

	if ps := pm.PayloadService; ps != nil && ps.Compression != pmode.CompressionNone && ps.Compression != r.compression {
		f.AddError("PMode.PayloadService.Compression", "Compression '%s' is unsupported, only '%s' is allowed", ps.Compression, r.compression)
	}

	r.checkReceptionAwareness(pm.ReceptionAwareness, f)
}

func (r *ruleSet) checkExchange(pm *pmode.PMode, f *Findings) {
	if !pm.MEP.IsValid() {
		if pm.MEP == "" {
			f.AddError("PMode.MEP", "MEP is missing")
		} else {
			f.AddError("PMode.MEP", "MEP '%s' is unsupported", pm.MEP)
		}
		return
	}
	if !pm.Binding.IsValid() {
		if pm.Binding == "" {
			f.AddError("PMode.MEPBinding", "MEP binding is missing")
		} else {
			f.AddError("PMode.MEPBinding", "MEP binding '%s' is unsupported", pm.Binding)
		}
		return
	}
	if !pm.Binding.CompatibleWith(pm.MEP) {
		f.AddError("PMode.MEPBinding", "MEP binding '%s' needs %d legs and cannot be used with MEP '%s'",
			pm.Binding.Name(), pm.Binding.RequiredLegs(), pm.MEP.Name())
		return
	}
	if !slices.Contains(r.exchanges, exchange{pm.MEP, pm.Binding}) {
		allowed := make([]string, len(r.exchanges))
		for i, e := range r.exchanges {
			allowed[i] = e.String()
		}
		f.AddError("PMode.MEPBinding", "MEP '%s' with binding '%s' is not allowed, use one of %s",
			pm.MEP.Name(), pm.Binding.Name(), strings.Join(allowed, ", "))
	}
}

func (r *ruleSet) checkLeg(leg *pmode.Leg, path string, f *Findings, mode Mode) {
	if leg.Protocol == nil {
		f.AddError(path+".Protocol", "Protocol is missing")
	} else {
		r.checkProtocol(leg.Protocol, path+".Protocol", f)
	}

	if mode == ModeUserMessage && leg.BusinessInfo != nil {
		r.checkBusinessInfo(leg.BusinessInfo, path+".BusinessInfo", f)
	}

	if leg.ErrorHandling == nil {
		f.AddError(path+".ErrorHandling", "ErrorHandling is missing but its parameters are mandatory")
	} else {
		eh, p := leg.ErrorHandling, path+".ErrorHandling."
		want := r.errorHandling
		checkTriState(f, p+"ReportAsResponse", eh.ReportAsResponse, want.asResponse)
		checkTriState(f, p+"ReportProcessErrorNotifyConsumer", eh.ReportProcessErrorNotifyConsumer, want.processErrorNotifyConsumer)
		checkTriState(f, p+"ReportProcessErrorNotifyProducer", eh.ReportProcessErrorNotifyProducer, want.processErrorNotifyProducer)
		checkTriState(f, p+"ReportDeliveryFailuresNotifyProducer", eh.ReportDeliveryFailuresNotifyProducer, want.deliveryFailuresNotifyProducer)
	}

	if leg.Security == nil {
		f.AddError(path+".Security", "Security is missing")
	} else {
		r.checkSecurity(leg.Security, path+".Security", f, mode)
	}
}

func (r *ruleSet) checkProtocol(p *pmode.Protocol, path string, f *Findings) {
	if p.Address == "" {
		f.AddError(path+".Address", "AddressProtocol is missing")
	} else if scheme := p.Scheme(); scheme != r.scheme {
		f.AddError(path+".Address", "AddressProtocol '%s' is unsupported, only '%s' is allowed", scheme, r.scheme)
	}

	// An unset SOAP version means the AS4 default of 1.2
	if p.SOAPVersion != "" && p.SOAPVersion != r.soap {
		f.AddError(path+".SOAPVersion", "SOAPVersion '%s' is unsupported, must be '%s'", p.SOAPVersion, r.soap)
	}
}

func (r *ruleSet) checkBusinessInfo(bi *pmode.BusinessInfo, path string, f *Findings) {
	if bi.Service != "" && r.services != nil && !slices.Contains(r.services, bi.Service) {
		f.AddError(path+".Service", "Service '%s' is not allowed", bi.Service)
	}
	if bi.Action != "" && r.actions != nil && !slices.Contains(r.actions, bi.Action) {
		f.AddError(path+".Action", "Action '%s' is not allowed", bi.Action)
	}
	if !r.mpcAllowed(bi.MPC) {
		f.AddError(path+".MPC", "MPC '%s' is not allowed, use '%s'", bi.MPC, strings.Join(r.mpcs, "', '"))
	}
}

func (r *ruleSet) mpcAllowed(mpc string) bool {
	if r.mpcs == nil {
		return true
	}
	if mpc == "" {
		mpc = pmode.DefaultMPC
	}
	return slices.Contains(r.mpcs, mpc)
}

func (r *ruleSet) checkSecurity(s *pmode.Security, path string, f *Findings, mode Mode) {
	p := path + "."

	if s.WSSVersion != "" && s.WSSVersion != r.wss {
		f.AddError(p+"WSSVersion", "WSSVersion '%s' is unsupported, must be '%s'", s.WSSVersion, r.wss)
	}

	checkValue(f, p+"X509SignatureAlgorithm", string(s.X509SignatureAlgorithm), string(r.signatureAlgorithm))
	checkValue(f, p+"X509SignatureHashFunction", string(s.X509SignatureHashFunction), string(r.hashFunction))

	if mode == ModeUserMessage {
		checkValue(f, p+"X509EncryptionAlgorithm", string(s.X509EncryptionAlgorithm), string(r.encryptionAlgorithm))
		if n := s.X509EncryptionMinimumStrength; n > 0 && n < r.minEncryptionStrength {
			f.AddError(p+"X509EncryptionMinimumStrength", "X509EncryptionMinimumStrength must be at least %d (is %d)", r.minEncryptionStrength, n)
		}
	}

	checkTriState(f, p+"PModeAuthorize", s.PModeAuthorize, r.pmodeAuthorize)
	checkTriState(f, p+"SendReceipt", s.SendReceipt, r.sendReceipt)
	if s.SendReceiptReplyPattern != r.replyPattern {
		f.AddError(p+"SendReceiptReplyPattern", "SendReceiptReplyPattern must be '%s'", r.replyPattern)
	}
	checkTriState(f, p+"SendReceiptNonRepudiation", s.SendReceiptNonRepudiation, r.sendReceiptNonRepudiation)
}

func (r *ruleSet) checkReceptionAwareness(ra *pmode.ReceptionAwareness, f *Findings) {
	const path = "PMode.ReceptionAwareness"
	if ra == nil {
		f.AddWarning(path, "ReceptionAwareness is missing, messages are neither retried nor checked for duplicates")
		return
	}
	if ra.MaxRetries < 0 {
		f.AddError(path+".MaxRetries", "MaxRetries must not be negative (is %d)", ra.MaxRetries)
	}
	if ra.RetryInterval < 0 {
		f.AddError(path+".RetryInterval", "RetryInterval must not be negative (is %s)", ra.RetryInterval)
	}
}

// ValidateUserMessage checks a user message
func (r *ruleSet) ValidateUserMessage(msg *message.UserMessage, f *Findings) {
	requireFresh(f)
	if msg == nil {
		f.AddError("UserMessage", "UserMessage is missing")
		return
	}

	checkMessageInfo(msg.MessageInfo, "UserMessage", f)

	if msg.PartyInfo == nil {
		f.AddError("UserMessage.PartyInfo", "PartyInfo is missing")
	} else {
		r.checkParty(msg.PartyInfo.From, "From", f)
		r.checkParty(msg.PartyInfo.To, "To", f)
	}

	if ci := msg.CollaborationInfo; ci == nil {
		f.AddError("UserMessage.CollaborationInfo", "CollaborationInfo is missing")
	} else {
		const path = "UserMessage.CollaborationInfo."
		if r.agreement != "" && (ci.AgreementRef == nil || ci.AgreementRef.Value != r.agreement) {
			f.AddError(path+"AgreementRef", "AgreementRef must be '%s'", r.agreement)
		}
		if ci.Service.Value == "" {
			f.AddError(path+"Service", "Service is missing")
		} else if r.services != nil && !slices.Contains(r.services, ci.Service.Value) {
			f.AddError(path+"Service", "Service '%s' is not allowed", ci.Service.Value)
		}
		if ci.Action == "" {
			f.AddError(path+"Action", "Action is missing")
		} else if r.actions != nil && !slices.Contains(r.actions, ci.Action) {
			f.AddError(path+"Action", "Action '%s' is not allowed", ci.Action)
		}
	}

	if !r.mpcAllowed(msg.MPC) {
		f.AddError("UserMessage.MPC", "MPC '%s' is not allowed", msg.MPC)
	}
}

func (r *ruleSet) checkParty(p *message.Party, name string, f *Findings) {
	path := "UserMessage.PartyInfo." + name
	switch {
	case p == nil:
		f.AddError(path, "PartyInfo/%s is missing", name)
		return
	case len(p.PartyId) == 0:
		f.AddError(path+".PartyId", "PartyInfo/%s must contain a PartyId", name)
		return
	case len(p.PartyId) > 1:
		f.AddError(path+".PartyId", "Only 1 PartyId is allowed in PartyInfo/%s (found %d)", name, len(p.PartyId))
	}
	if r.partyIDTypes != nil {
		for _, id := range p.PartyId {
			if !slices.Contains(r.partyIDTypes, id.Type) {
				f.AddError(path+".PartyId", "PartyInfo/%s PartyId type '%s' is not allowed", name, id.Type)
			}
		}
	}
}

// ValidateSignalMessage checks a signal message
func (r *ruleSet) ValidateSignalMessage(msg *message.SignalMessage, f *Findings) {
	requireFresh(f)
	if msg == nil {
		f.AddError("SignalMessage", "SignalMessage is missing")
		return
	}

	checkMessageInfo(msg.MessageInfo, "SignalMessage", f)

	n := 0
	if msg.Receipt != nil {
		n++
	}
	if len(msg.Errors) > 0 {
		n++
	}
	if msg.PullRequest != nil {
		n++
	}
	switch {
	case n == 0:
		f.AddError("SignalMessage", "SignalMessage must contain a Receipt, an Error or a PullRequest")
	case n > 1:
		f.AddError("SignalMessage", "SignalMessage must contain only one of Receipt, Error and PullRequest")
	}

	if msg.PullRequest != nil && !r.mpcAllowed(msg.PullRequest.MPC) {
		f.AddError("SignalMessage.PullRequest.MPC", "MPC '%s' is not allowed", msg.PullRequest.MPC)
	}
}

func checkMessageInfo(mi *message.MessageInfo, path string, f *Findings) {
	if mi == nil {
		f.AddError(path+".MessageInfo", "MessageInfo is missing")
		return
	}
	if mi.MessageId == "" {
		f.AddError(path+".MessageInfo.MessageId", "MessageInfo/MessageId is missing")
	}
}

func fieldName(path string) string {
	return path[strings.LastIndexByte(path, '.')+1:]
}

// checkValue reports a missing value and a wrong value differently. Only
// the expected value is quoted.
func checkValue(f *Findings, path, got, want string) {
	switch {
	case got == "":
		f.AddError(path, "%s is missing", fieldName(path))
	case got != want:
		f.AddError(path, "%s must be '%s'", fieldName(path), want)
	}
}

func checkTriState(f *Findings, path string, got pmode.TriState, want bool) {
	switch {
	case !got.IsDefined():
		f.AddError(path, "%s is a mandatory parameter", fieldName(path))
	case got.IsTrue() != want:
		f.AddError(path, "%s must be %s (is '%s')", fieldName(path), pmode.TriStateOf(want), got)
	}
}

// newPMode builds the conformant default P-Mode of a rule set
func (r *ruleSet) newPMode(initiator, responder pmode.Party, address string) *pmode.PMode {
	e := r.exchanges[0]
	sec := pmode.NewSecurity().
		WithWSSVersion(r.wss).
		WithSignatureAlgorithm(r.signatureAlgorithm).
		WithSignatureHashFunction(r.hashFunction).
		WithEncryptionAlgorithm(r.encryptionAlgorithm).
		WithEncryptionMinimumStrength(r.minEncryptionStrength).
		WithPModeAuthorize(pmode.TriStateOf(r.pmodeAuthorize)).
		WithSendReceipt(pmode.TriStateOf(r.sendReceipt)).
		WithSendReceiptReplyPattern(r.replyPattern).
		WithSendReceiptNonRepudiation(pmode.TriStateOf(r.sendReceiptNonRepudiation))
	eh := pmode.NewErrorHandling(
		pmode.TriStateOf(r.errorHandling.asResponse),
		pmode.TriStateOf(r.errorHandling.processErrorNotifyConsumer),
		pmode.TriStateOf(r.errorHandling.processErrorNotifyProducer),
		pmode.TriStateOf(r.errorHandling.deliveryFailuresNotifyProducer),
	)

	return &pmode.PMode{
		ID:        fmt.Sprintf("%s-%s", initiator.ID, responder.ID),
		Initiator: &initiator,
		Responder: &responder,
		Agreement: r.agreement,
		MEP:       e.mep,
		Binding:   e.binding,
		Leg1: pmode.NewLeg(
			&pmode.Protocol{Address: address, SOAPVersion: r.soap},
			&pmode.BusinessInfo{MPC: pmode.DefaultMPC},
			eh,
			sec,
		),
		PayloadService:     &pmode.PayloadService{Compression: r.compression},
		ReceptionAwareness: pmode.DefaultReceptionAwareness(),
	}
}
