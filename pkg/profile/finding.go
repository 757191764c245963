package profile

import (
	"fmt"
	"strings"
)

// Severity of a finding
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "ERROR"
	case SeverityWarning:
		return "WARNING"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Finding is one validation result
type Finding struct {
	Severity Severity
	Field    string
	Message  string
}

// IsError reports whether the finding has ERROR severity
func (f Finding) IsError() bool {
	return f.Severity == SeverityError
}

func (f Finding) String() string {
	if f.Field == "" {
		return f.Severity.String() + " " + f.Message
	}
	return fmt.Sprintf("%s [%s] %s", f.Severity, f.Field, f.Message)
}

// Findings is an ordered collection of validation results. It is not safe
// for concurrent use; each validation call gets its own collection.
type Findings struct {
	items []Finding
}

// NewFindings creates an empty collection
func NewFindings() *Findings {
	return &Findings{}
}

// AddError appends an ERROR finding
func (f *Findings) AddError(field, format string, args ...any) {
	f.add(SeverityError, field, format, args...)
}

// AddWarning appends a WARNING finding
func (f *Findings) AddWarning(field, format string, args ...any) {
	f.add(SeverityWarning, field, format, args...)
}

func (f *Findings) add(sev Severity, field, format string, args ...any) {
	f.items = append(f.items, Finding{
		Severity: sev,
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Merge appends all findings of other
func (f *Findings) Merge(other *Findings) {
	if other == nil {
		return
	}
	f.items = append(f.items, other.items...)
}

// Empty reports whether no finding was recorded
func (f *Findings) Empty() bool {
	return f == nil || len(f.items) == 0
}

// Len returns the number of findings
func (f *Findings) Len() int {
	if f == nil {
		return 0
	}
	return len(f.items)
}

// Any reports whether any finding matches pred
func (f *Findings) Any(pred func(Finding) bool) bool {
	if f == nil {
		return false
	}
	for _, item := range f.items {
		if pred(item) {
			return true
		}
	}
	return false
}

// ContainsError reports whether any finding has ERROR severity
func (f *Findings) ContainsError() bool {
	return f.Any(Finding.IsError)
}

// All returns a copy of the findings in emission order
func (f *Findings) All() []Finding {
	if f == nil {
		return nil
	}
	return append([]Finding(nil), f.items...)
}

func (f *Findings) String() string {
	if f.Empty() {
		return "no findings"
	}
	lines := make([]string, len(f.items))
	for i, item := range f.items {
		lines[i] = item.String()
	}
	return strings.Join(lines, "\n")
}

// MessageContains returns a predicate matching findings whose message
// contains s, ignoring case
func MessageContains(s string) func(Finding) bool {
	s = strings.ToLower(s)
	return func(f Finding) bool {
		return strings.Contains(strings.ToLower(f.Message), s)
	}
}

// OnField returns a predicate matching findings for the given field path
func OnField(field string) func(Finding) bool {
	return func(f Finding) bool {
		return f.Field == field
	}
}
