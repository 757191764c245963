package pmode

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const ebmsNS = "http://docs.oasis-open.org/ebxml-msg/ebms/v3.0/ns/core/200704/"

// MEP is a Message Exchange Pattern URI
type MEP string

const (
	// OneWay is the ebMS3 one-way MEP
	OneWay MEP = ebmsNS + "oneWay"
	// TwoWay is the ebMS3 two-way MEP
	TwoWay MEP = ebmsNS + "twoWay"
)

// IsOneWay reports whether m is the one-way MEP
func (m MEP) IsOneWay() bool { return m == OneWay }

// IsTwoWay reports whether m is the two-way MEP
func (m MEP) IsTwoWay() bool { return m == TwoWay }

// IsValid reports whether m is a known MEP
func (m MEP) IsValid() bool { return m == OneWay || m == TwoWay }

// Name returns the short name used in configuration and diagnostics
func (m MEP) Name() string {
	switch m {
	case OneWay:
		return "oneWay"
	case TwoWay:
		return "twoWay"
	case "":
		return "undefined"
	default:
		return string(m)
	}
}

// ParseMEP accepts a short name ("oneWay", "one-way", "ONE_WAY") or the full URI
func ParseMEP(s string) (MEP, error) {
	switch normalizeName(s) {
	case "", "undefined":
		return "", nil
	case "oneway":
		return OneWay, nil
	case "twoway":
		return TwoWay, nil
	}
	if m := MEP(s); m.IsValid() {
		return m, nil
	}
	return "", fmt.Errorf("unknown MEP %q", s)
}

// UnmarshalYAML decodes a MEP via ParseMEP
func (m *MEP) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParseMEP(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*m = v
	return nil
}

// Binding is a MEP binding URI
type Binding string

const (
	Push     Binding = ebmsNS + "push"
	Pull     Binding = ebmsNS + "pull"
	Sync     Binding = ebmsNS + "sync"
	PushPush Binding = ebmsNS + "pushAndPush"
	PushPull Binding = ebmsNS + "pushAndPull"
	PullPush Binding = ebmsNS + "pullAndPush"
)

var bindingNames = map[Binding]string{
	Push:     "push",
	Pull:     "pull",
	Sync:     "sync",
	PushPush: "pushAndPush",
	PushPull: "pushAndPull",
	PullPush: "pullAndPush",
}

// IsValid reports whether b is a known binding
func (b Binding) IsValid() bool {
	_, ok := bindingNames[b]
	return ok
}

// Name returns the short name used in configuration and diagnostics
func (b Binding) Name() string {
	if n, ok := bindingNames[b]; ok {
		return n
	}
	if b == "" {
		return "undefined"
	}
	return string(b)
}

// RequiredLegs returns the number of legs a P-Mode using this binding needs
func (b Binding) RequiredLegs() int {
	switch b {
	case Push, Pull:
		return 1
	case Sync, PushPush, PushPull, PullPush:
		return 2
	default:
		return 0
	}
}

// IsSynchronous reports whether the binding carries both legs on one HTTP exchange
func (b Binding) IsSynchronous() bool { return b == Sync }

// UsesPull reports whether any leg of the binding is pulled
func (b Binding) UsesPull() bool {
	return b == Pull || b == PushPull || b == PullPush
}

// CompatibleWith reports whether the binding is legal for the given MEP.
// Single-leg bindings belong to one-way MEPs, all others to two-way.
func (b Binding) CompatibleWith(m MEP) bool {
	switch b.RequiredLegs() {
	case 1:
		return m == OneWay
	case 2:
		return m == TwoWay
	default:
		return false
	}
}

// ParseBinding accepts a short name ("push", "pushAndPull", "PUSH_PULL") or the full URI
func ParseBinding(s string) (Binding, error) {
	n := normalizeName(s)
	if n == "" || n == "undefined" {
		return "", nil
	}
	for b, name := range bindingNames {
		if normalizeName(name) == n || normalizeName(strings.ReplaceAll(name, "And", "")) == n {
			return b, nil
		}
	}
	if b := Binding(s); b.IsValid() {
		return b, nil
	}
	return "", fmt.Errorf("unknown MEP binding %q", s)
}

// UnmarshalYAML decodes a binding via ParseBinding
func (b *Binding) UnmarshalYAML(node *yaml.Node) error {
	v, err := ParseBinding(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*b = v
	return nil
}

// normalizeName lower-cases and strips separators so that "PUSH_PULL",
// "push-pull" and "pushPull" compare equal. URIs are left as-is.
func normalizeName(s string) string {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "://") {
		return s
	}
	s = strings.ToLower(s)
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}

// MarshalYAML encodes known MEPs by short name
func (m MEP) MarshalYAML() (interface{}, error) {
	if m.IsValid() {
		return m.Name(), nil
	}
	return string(m), nil
}

// MarshalYAML encodes known bindings by short name
func (b Binding) MarshalYAML() (interface{}, error) {
	if b.IsValid() {
		return b.Name(), nil
	}
	return string(b), nil
}
