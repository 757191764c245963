package pmode

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// TriState is a configuration flag that can be true, false or not set.
// The zero value is Undefined.
type TriState int

const (
	Undefined TriState = iota
	True
	False
)

// TriStateOf converts a bool into a defined TriState
func TriStateOf(b bool) TriState {
	if b {
		return True
	}
	return False
}

// IsDefined reports whether the flag was explicitly set
func (t TriState) IsDefined() bool {
	return t == True || t == False
}

// IsTrue reports whether the flag is explicitly true
func (t TriState) IsTrue() bool {
	return t == True
}

// IsFalse reports whether the flag is explicitly false
func (t TriState) IsFalse() bool {
	return t == False
}

// Bool returns the flag value, or def when undefined
func (t TriState) Bool(def bool) bool {
	switch t {
	case True:
		return true
	case False:
		return false
	default:
		return def
	}
}

func (t TriState) String() string {
	switch t {
	case True:
		return "True"
	case False:
		return "False"
	default:
		return "Undefined"
	}
}

// ParseTriState parses "true", "false" or "" / "undefined" (case-insensitive)
func ParseTriState(s string) (TriState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return True, nil
	case "false":
		return False, nil
	case "", "undefined", "~", "null":
		return Undefined, nil
	default:
		return Undefined, fmt.Errorf("invalid tri-state value %q", s)
	}
}

// MarshalYAML encodes defined flags as booleans; Undefined is emitted as null
func (t TriState) MarshalYAML() (interface{}, error) {
	switch t {
	case True:
		return true, nil
	case False:
		return false, nil
	default:
		return nil, nil
	}
}

// UnmarshalYAML accepts booleans, null and the string forms of ParseTriState
func (t *TriState) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: tri-state must be a scalar", node.Line)
	}
	v, err := ParseTriState(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*t = v
	return nil
}
