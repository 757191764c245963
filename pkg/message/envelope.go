package message

import (
	"errors"
	"fmt"
	"time"

	"github.com/beevik/etree"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

var (
	// ErrInvalidEnvelope is returned for input that is not a SOAP envelope
	ErrInvalidEnvelope = errors.New("invalid SOAP envelope")
	// ErrNoMessaging is returned when the envelope has no ebMS3 Messaging header
	ErrNoMessaging = errors.New("no ebMS Messaging header")
)

// EncodeUserMessage serialises a user message into a SOAP 1.2 envelope
func EncodeUserMessage(um *UserMessage) ([]byte, error) {
	if um == nil {
		return nil, errors.New("user message is nil")
	}
	doc, messaging := newEnvelope()
	writeUserMessage(messaging, um)
	return doc.WriteToBytes()
}

// EncodeSignalMessage serialises a signal message into a SOAP 1.2 envelope
func EncodeSignalMessage(sm *SignalMessage) ([]byte, error) {
	if sm == nil {
		return nil, errors.New("signal message is nil")
	}
	doc, messaging := newEnvelope()
	writeSignalMessage(messaging, sm)
	return doc.WriteToBytes()
}

func newEnvelope() (*etree.Document, *etree.Element) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	env := doc.CreateElement("S12:Envelope")
	env.CreateAttr("xmlns:S12", NsSOAPEnv)
	env.CreateAttr("xmlns:eb", NsEbMS)

	header := env.CreateElement("S12:Header")
	messaging := header.CreateElement("eb:Messaging")
	messaging.CreateAttr("S12:mustUnderstand", "true")

	env.CreateElement("S12:Body")
	return doc, messaging
}

func writeMessageInfo(parent *etree.Element, mi *MessageInfo) {
	if mi == nil {
		return
	}
	el := parent.CreateElement("eb:MessageInfo")
	el.CreateElement("eb:Timestamp").SetText(mi.Timestamp.UTC().Format(timestampLayout))
	el.CreateElement("eb:MessageId").SetText(mi.MessageId)
	if mi.RefToMessageId != "" {
		el.CreateElement("eb:RefToMessageId").SetText(mi.RefToMessageId)
	}
}

func writeParty(parent *etree.Element, tag string, p *Party) {
	if p == nil {
		return
	}
	el := parent.CreateElement(tag)
	for _, id := range p.PartyId {
		pid := el.CreateElement("eb:PartyId")
		if id.Type != "" {
			pid.CreateAttr("type", id.Type)
		}
		pid.SetText(id.Value)
	}
	el.CreateElement("eb:Role").SetText(p.Role)
}

func writeProperties(parent *etree.Element, tag string, props []Property) {
	el := parent.CreateElement(tag)
	for _, p := range props {
		prop := el.CreateElement("eb:Property")
		prop.CreateAttr("name", p.Name)
		if p.Type != "" {
			prop.CreateAttr("type", p.Type)
		}
		prop.SetText(p.Value)
	}
}

func writeUserMessage(parent *etree.Element, um *UserMessage) {
	el := parent.CreateElement("eb:UserMessage")
	if um.MPC != "" {
		el.CreateAttr("mpc", um.MPC)
	}
	writeMessageInfo(el, um.MessageInfo)

	if um.PartyInfo != nil {
		pi := el.CreateElement("eb:PartyInfo")
		writeParty(pi, "eb:From", um.PartyInfo.From)
		writeParty(pi, "eb:To", um.PartyInfo.To)
	}

	if ci := um.CollaborationInfo; ci != nil {
		cel := el.CreateElement("eb:CollaborationInfo")
		if ar := ci.AgreementRef; ar != nil {
			are := cel.CreateElement("eb:AgreementRef")
			if ar.Type != "" {
				are.CreateAttr("type", ar.Type)
			}
			if ar.Pmode != "" {
				are.CreateAttr("pmode", ar.Pmode)
			}
			are.SetText(ar.Value)
		}
		svc := cel.CreateElement("eb:Service")
		if ci.Service.Type != "" {
			svc.CreateAttr("type", ci.Service.Type)
		}
		svc.SetText(ci.Service.Value)
		cel.CreateElement("eb:Action").SetText(ci.Action)
		cel.CreateElement("eb:ConversationId").SetText(ci.ConversationId)
	}

	if um.MessageProperties != nil && len(um.MessageProperties.Property) > 0 {
		writeProperties(el, "eb:MessageProperties", um.MessageProperties.Property)
	}

	if um.PayloadInfo != nil && len(um.PayloadInfo.PartInfo) > 0 {
		pl := el.CreateElement("eb:PayloadInfo")
		for _, part := range um.PayloadInfo.PartInfo {
			pe := pl.CreateElement("eb:PartInfo")
			if part.Href != "" {
				pe.CreateAttr("href", part.Href)
			}
			if part.PartProperties != nil && len(part.PartProperties.Property) > 0 {
				writeProperties(pe, "eb:PartProperties", part.PartProperties.Property)
			}
		}
	}
}

func writeSignalMessage(parent *etree.Element, sm *SignalMessage) {
	el := parent.CreateElement("eb:SignalMessage")
	writeMessageInfo(el, sm.MessageInfo)

	if sm.PullRequest != nil {
		pr := el.CreateElement("eb:PullRequest")
		if sm.PullRequest.MPC != "" {
			pr.CreateAttr("mpc", sm.PullRequest.MPC)
		}
	}

	if sm.Receipt != nil {
		r := el.CreateElement("eb:Receipt")
		if sm.Receipt.UserMessage != nil {
			writeUserMessage(r, sm.Receipt.UserMessage)
		}
	}

	for _, e := range sm.Errors {
		ee := el.CreateElement("eb:Error")
		ee.CreateAttr("errorCode", e.ErrorCode)
		ee.CreateAttr("severity", e.Severity)
		if e.ShortDescription != "" {
			ee.CreateAttr("shortDescription", e.ShortDescription)
		}
		if e.Category != "" {
			ee.CreateAttr("category", e.Category)
		}
		if e.Origin != "" {
			ee.CreateAttr("origin", e.Origin)
		}
		if e.RefToMessageInError != "" {
			ee.CreateAttr("refToMessageInError", e.RefToMessageInError)
		}
		if e.Description != "" {
			d := ee.CreateElement("eb:Description")
			d.CreateAttr("xml:lang", "en")
			d.SetText(e.Description)
		}
		if e.ErrorDetail != "" {
			ee.CreateElement("eb:ErrorDetail").SetText(e.ErrorDetail)
		}
	}
}

// ParseEnvelope extracts the ebMS3 Messaging header from a SOAP envelope
func ParseEnvelope(data []byte) (*Messaging, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}

	root := doc.Root()
	if root == nil || root.Tag != "Envelope" {
		return nil, ErrInvalidEnvelope
	}
	header := child(root, "Header")
	if header == nil {
		return nil, ErrNoMessaging
	}
	messaging := child(header, "Messaging")
	if messaging == nil {
		return nil, ErrNoMessaging
	}

	result := &Messaging{}
	if el := child(messaging, "UserMessage"); el != nil {
		um, err := readUserMessage(el)
		if err != nil {
			return nil, err
		}
		result.UserMessage = um
	}
	if el := child(messaging, "SignalMessage"); el != nil {
		sm, err := readSignalMessage(el)
		if err != nil {
			return nil, err
		}
		result.SignalMessage = sm
	}
	if result.UserMessage == nil && result.SignalMessage == nil {
		return nil, fmt.Errorf("%w: Messaging header is empty", ErrNoMessaging)
	}
	return result, nil
}

func child(e *etree.Element, tag string) *etree.Element {
	for _, c := range e.ChildElements() {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

func children(e *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	for _, c := range e.ChildElements() {
		if c.Tag == tag {
			out = append(out, c)
		}
	}
	return out
}

func childText(e *etree.Element, tag string) string {
	if c := child(e, tag); c != nil {
		return c.Text()
	}
	return ""
}

func readMessageInfo(e *etree.Element) (*MessageInfo, error) {
	el := child(e, "MessageInfo")
	if el == nil {
		return nil, nil
	}
	mi := &MessageInfo{
		MessageId:      childText(el, "MessageId"),
		RefToMessageId: childText(el, "RefToMessageId"),
	}
	if ts := childText(el, "Timestamp"); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("%w: bad timestamp %q", ErrInvalidEnvelope, ts)
		}
		mi.Timestamp = t
	}
	return mi, nil
}

func readParty(e *etree.Element, tag string) *Party {
	el := child(e, tag)
	if el == nil {
		return nil
	}
	p := &Party{Role: childText(el, "Role")}
	for _, pid := range children(el, "PartyId") {
		p.PartyId = append(p.PartyId, PartyId{
			Type:  pid.SelectAttrValue("type", ""),
			Value: pid.Text(),
		})
	}
	return p
}

func readProperties(e *etree.Element) []Property {
	var props []Property
	for _, p := range children(e, "Property") {
		props = append(props, Property{
			Name:  p.SelectAttrValue("name", ""),
			Type:  p.SelectAttrValue("type", ""),
			Value: p.Text(),
		})
	}
	return props
}

func readUserMessage(el *etree.Element) (*UserMessage, error) {
	mi, err := readMessageInfo(el)
	if err != nil {
		return nil, err
	}
	um := &UserMessage{
		MPC:         el.SelectAttrValue("mpc", ""),
		MessageInfo: mi,
	}

	if pi := child(el, "PartyInfo"); pi != nil {
		um.PartyInfo = &PartyInfo{
			From: readParty(pi, "From"),
			To:   readParty(pi, "To"),
		}
	}

	if ci := child(el, "CollaborationInfo"); ci != nil {
		info := &CollaborationInfo{
			Action:         childText(ci, "Action"),
			ConversationId: childText(ci, "ConversationId"),
		}
		if ar := child(ci, "AgreementRef"); ar != nil {
			info.AgreementRef = &AgreementRef{
				Type:  ar.SelectAttrValue("type", ""),
				Pmode: ar.SelectAttrValue("pmode", ""),
				Value: ar.Text(),
			}
		}
		if svc := child(ci, "Service"); svc != nil {
			info.Service = Service{
				Type:  svc.SelectAttrValue("type", ""),
				Value: svc.Text(),
			}
		}
		um.CollaborationInfo = info
	}

	if mp := child(el, "MessageProperties"); mp != nil {
		um.MessageProperties = &MessageProperties{Property: readProperties(mp)}
	}

	if pl := child(el, "PayloadInfo"); pl != nil {
		um.PayloadInfo = &PayloadInfo{}
		for _, pe := range children(pl, "PartInfo") {
			part := PartInfo{Href: pe.SelectAttrValue("href", "")}
			if pp := child(pe, "PartProperties"); pp != nil {
				part.PartProperties = &PartProperties{Property: readProperties(pp)}
			}
			um.PayloadInfo.PartInfo = append(um.PayloadInfo.PartInfo, part)
		}
	}
	return um, nil
}

func readSignalMessage(el *etree.Element) (*SignalMessage, error) {
	mi, err := readMessageInfo(el)
	if err != nil {
		return nil, err
	}
	sm := &SignalMessage{MessageInfo: mi}

	if pr := child(el, "PullRequest"); pr != nil {
		sm.PullRequest = &PullRequest{MPC: pr.SelectAttrValue("mpc", "")}
	}

	if r := child(el, "Receipt"); r != nil {
		sm.Receipt = &Receipt{}
		if u := child(r, "UserMessage"); u != nil {
			um, err := readUserMessage(u)
			if err != nil {
				return nil, err
			}
			sm.Receipt.UserMessage = um
		}
	}

	for _, ee := range children(el, "Error") {
		sm.Errors = append(sm.Errors, Error{
			ErrorCode:           ee.SelectAttrValue("errorCode", ""),
			Severity:            ee.SelectAttrValue("severity", ""),
			ShortDescription:    ee.SelectAttrValue("shortDescription", ""),
			Category:            ee.SelectAttrValue("category", ""),
			Origin:              ee.SelectAttrValue("origin", ""),
			RefToMessageInError: ee.SelectAttrValue("refToMessageInError", ""),
			Description:         childText(ee, "Description"),
			ErrorDetail:         childText(ee, "ErrorDetail"),
		})
	}
	return sm, nil
}
