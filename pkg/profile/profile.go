package profile

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirosfoundation/go-as4-reliability/pkg/message"
	"github.com/sirosfoundation/go-as4-reliability/pkg/pmode"
)

// Mode selects which P-Mode checks apply
type Mode int

const (
	// ModeUserMessage applies every check
	ModeUserMessage Mode = iota
	// ModeSignalMessage skips business info and encryption checks; signals
	// are signed but never encrypted
	ModeSignalMessage
)

func (m Mode) String() string {
	if m == ModeSignalMessage {
		return "signal"
	}
	return "user"
}

// Validator checks P-Modes and messages against an interoperability
// profile. Findings are appended to the collection passed in, which must be
// empty; invalid input never causes an error or panic, only findings.
// Implementations are safe for concurrent use.
type Validator interface {
	ValidatePMode(pm *pmode.PMode, findings *Findings, mode Mode)
	ValidateUserMessage(msg *message.UserMessage, findings *Findings)
	ValidateSignalMessage(msg *message.SignalMessage, findings *Findings)
}

// PModeFactory creates a P-Mode that conforms to a profile
type PModeFactory func(initiator, responder pmode.Party, address string) *pmode.PMode

// Profile is a named validator with its default P-Mode
type Profile struct {
	ID          string
	DisplayName string
	Validator   Validator
	NewPMode    PModeFactory
}

// requireFresh fails loudly when a validator is handed a collection it
// does not own
func requireFresh(findings *Findings) {
	if findings == nil {
		panic("profile: nil findings collection")
	}
	if findings.Len() > 0 {
		panic("profile: findings collection is already populated")
	}
}

// CheckPMode validates a P-Mode into a new collection
func CheckPMode(v Validator, pm *pmode.PMode, mode Mode) *Findings {
	f := NewFindings()
	v.ValidatePMode(pm, f, mode)
	return f
}

// CheckUserMessage validates a user message into a new collection
func CheckUserMessage(v Validator, msg *message.UserMessage) *Findings {
	f := NewFindings()
	v.ValidateUserMessage(msg, f)
	return f
}

// CheckSignalMessage validates a signal message into a new collection
func CheckSignalMessage(v Validator, msg *message.SignalMessage) *Findings {
	f := NewFindings()
	v.ValidateSignalMessage(msg, f)
	return f
}

var (
	// ErrUnknownProfile is returned for unregistered profile IDs
	ErrUnknownProfile = errors.New("unknown profile")
	// ErrDuplicateProfile is returned when registering a taken ID
	ErrDuplicateProfile = errors.New("profile already registered")
)

// Registry holds profiles by case-insensitive ID
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

// NewRegistry creates a registry with the given profiles. It panics on
// duplicate IDs.
func NewRegistry(profiles ...*Profile) *Registry {
	r := &Registry{profiles: make(map[string]*Profile)}
	for _, p := range profiles {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a profile
func (r *Registry) Register(p *Profile) error {
	if p == nil || p.ID == "" || p.Validator == nil {
		return errors.New("profile needs an ID and a validator")
	}
	key := strings.ToLower(p.ID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateProfile, p.ID)
	}
	r.profiles[key] = p
	return nil
}

// Get returns the profile with the given ID
func (r *Registry) Get(id string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[strings.ToLower(id)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProfile, id)
	}
	return p, nil
}

// All returns the registered profiles ordered by ID
func (r *Registry) All() []*Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var defaultRegistry = NewRegistry(ESENS(), BDEW(), EDelivery2())

// Default returns the registry with the built-in profiles
func Default() *Registry {
	return defaultRegistry
}

// Get looks a profile up in the default registry
func Get(id string) (*Profile, error) {
	return defaultRegistry.Get(id)
}
