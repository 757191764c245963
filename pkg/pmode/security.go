package pmode

// Security contains the WS-Security policy of a leg
type Security struct {
	WSSVersion WSSVersion `yaml:"wssVersion,omitempty"`

	X509SignatureCertificate  string             `yaml:"x509SignatureCertificate,omitempty"`
	X509SignatureAlgorithm    SignatureAlgorithm `yaml:"x509SignatureAlgorithm,omitempty"`
	X509SignatureHashFunction HashAlgorithm      `yaml:"x509SignatureHashFunction,omitempty"`

	X509EncryptionCertificate     string                  `yaml:"x509EncryptionCertificate,omitempty"`
	X509EncryptionAlgorithm       DataEncryptionAlgorithm `yaml:"x509EncryptionAlgorithm,omitempty"`
	X509EncryptionMinimumStrength int                     `yaml:"x509EncryptionMinimumStrength,omitempty"`

	UsernameTokenUsername string   `yaml:"usernameTokenUsername,omitempty"`
	UsernameTokenPassword string   `yaml:"usernameTokenPassword,omitempty"`
	UsernameTokenDigest   TriState `yaml:"usernameTokenDigest,omitempty"`
	UsernameTokenNonce    TriState `yaml:"usernameTokenNonce,omitempty"`
	UsernameTokenCreated  TriState `yaml:"usernameTokenCreated,omitempty"`

	PModeAuthorize            TriState     `yaml:"pmodeAuthorize,omitempty"`
	SendReceipt               TriState     `yaml:"sendReceipt,omitempty"`
	SendReceiptReplyPattern   ReplyPattern `yaml:"sendReceiptReplyPattern,omitempty"`
	SendReceiptNonRepudiation TriState     `yaml:"sendReceiptNonRepudiation,omitempty"`
}

// NewSecurity returns an empty security section; every flag is Undefined
func NewSecurity() *Security {
	return &Security{}
}

// Clone returns a copy
func (s *Security) Clone() *Security {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// HasUsernameToken reports whether a username token is configured
func (s *Security) HasUsernameToken() bool {
	return s.UsernameTokenUsername != ""
}

// ReceiptRequested reports whether receipts are returned on the HTTP response
func (s *Security) ReceiptRequested() bool {
	return s != nil && s.SendReceipt.IsTrue() &&
		(s.SendReceiptReplyPattern == ReplyResponse || s.SendReceiptReplyPattern == "")
}

func (s *Security) WithWSSVersion(v WSSVersion) *Security {
	c := s.Clone()
	c.WSSVersion = v
	return c
}

func (s *Security) WithSignatureCertificate(ref string) *Security {
	c := s.Clone()
	c.X509SignatureCertificate = ref
	return c
}

func (s *Security) WithSignatureAlgorithm(a SignatureAlgorithm) *Security {
	c := s.Clone()
	c.X509SignatureAlgorithm = a
	return c
}

func (s *Security) WithSignatureHashFunction(h HashAlgorithm) *Security {
	c := s.Clone()
	c.X509SignatureHashFunction = h
	return c
}

func (s *Security) WithEncryptionCertificate(ref string) *Security {
	c := s.Clone()
	c.X509EncryptionCertificate = ref
	return c
}

func (s *Security) WithEncryptionAlgorithm(a DataEncryptionAlgorithm) *Security {
	c := s.Clone()
	c.X509EncryptionAlgorithm = a
	return c
}

func (s *Security) WithEncryptionMinimumStrength(bits int) *Security {
	c := s.Clone()
	c.X509EncryptionMinimumStrength = bits
	return c
}

// WithUsernameToken sets the username token credentials
func (s *Security) WithUsernameToken(username, password string, digest, nonce, created TriState) *Security {
	c := s.Clone()
	c.UsernameTokenUsername = username
	c.UsernameTokenPassword = password
	c.UsernameTokenDigest = digest
	c.UsernameTokenNonce = nonce
	c.UsernameTokenCreated = created
	return c
}

func (s *Security) WithPModeAuthorize(v TriState) *Security {
	c := s.Clone()
	c.PModeAuthorize = v
	return c
}

func (s *Security) WithSendReceipt(v TriState) *Security {
	c := s.Clone()
	c.SendReceipt = v
	return c
}

func (s *Security) WithSendReceiptReplyPattern(p ReplyPattern) *Security {
	c := s.Clone()
	c.SendReceiptReplyPattern = p
	return c
}

func (s *Security) WithSendReceiptNonRepudiation(v TriState) *Security {
	c := s.Clone()
	c.SendReceiptNonRepudiation = v
	return c
}
