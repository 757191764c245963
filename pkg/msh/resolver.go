package msh

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirosfoundation/go-as4-reliability/pkg/message"
	"github.com/sirosfoundation/go-as4-reliability/pkg/pmode"
)

// ErrEndpointNotFound is returned when no endpoint can be resolved
var ErrEndpointNotFound = errors.New("endpoint not found")

// EndpointInfo contains information about a message endpoint
type EndpointInfo struct {
	URL        string
	PartyID    string
	Properties map[string]string
}

// EndpointResolver resolves the receiving endpoint of a party. It is
// consulted when the P-Mode leaves the leg 1 address empty.
type EndpointResolver interface {
	ResolveEndpoint(ctx context.Context, partyID, service, action string) (*EndpointInfo, error)
}

// StaticEndpointResolver implements a simple static configuration resolver
type StaticEndpointResolver struct {
	mu        sync.RWMutex
	endpoints map[string]*EndpointInfo
}

// NewStaticEndpointResolver creates a new static resolver
func NewStaticEndpointResolver() *StaticEndpointResolver {
	return &StaticEndpointResolver{
		endpoints: make(map[string]*EndpointInfo),
	}
}

// RegisterEndpoint registers a static endpoint mapping
func (r *StaticEndpointResolver) RegisterEndpoint(partyID string, info *EndpointInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints[partyID] = info
}

// RemoveEndpoint deletes the mapping of a party
func (r *StaticEndpointResolver) RemoveEndpoint(partyID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.endpoints, partyID)
}

// ResolveEndpoint implements EndpointResolver
func (r *StaticEndpointResolver) ResolveEndpoint(_ context.Context, partyID, _, _ string) (*EndpointInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, ok := r.endpoints[partyID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEndpointNotFound, partyID)
	}
	return info, nil
}

// MultiResolver tries multiple resolvers in order
type MultiResolver struct {
	resolvers []EndpointResolver
}

// NewMultiResolver creates a resolver that tries multiple resolvers in order
func NewMultiResolver(resolvers ...EndpointResolver) *MultiResolver {
	return &MultiResolver{resolvers: resolvers}
}

// ResolveEndpoint implements EndpointResolver by trying each resolver in order
func (r *MultiResolver) ResolveEndpoint(ctx context.Context, partyID, service, action string) (*EndpointInfo, error) {
	for _, resolver := range r.resolvers {
		if info, err := resolver.ResolveEndpoint(ctx, partyID, service, action); err == nil {
			return info, nil
		}
	}
	return nil, fmt.Errorf("%w: %s (tried %d resolvers)", ErrEndpointNotFound, partyID, len(r.resolvers))
}

// resolvePMode finds the P-Mode of a user message: an explicit ID first,
// then the AgreementRef pmode attribute, then leg 1 service and action
func resolvePMode(ctx context.Context, pmodes pmode.Manager, id string, um *message.UserMessage) (*pmode.PMode, error) {
	ci := um.CollaborationInfo
	if id == "" && ci != nil && ci.AgreementRef != nil {
		id = ci.AgreementRef.Pmode
	}

	if id != "" {
		pm, err := pmodes.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoPMode, err)
		}
		return pm, nil
	}

	if ci == nil {
		return nil, fmt.Errorf("%w: message has no CollaborationInfo", ErrNoPMode)
	}
	pm, err := pmodes.Find(ctx, ci.Service.Value, ci.Action)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoPMode, err)
	}
	return pm, nil
}

// firstPartyID returns the first party id value, or ""
func firstPartyID(p *message.Party) string {
	if p == nil || len(p.PartyId) == 0 {
		return ""
	}
	return p.PartyId[0].Value
}
