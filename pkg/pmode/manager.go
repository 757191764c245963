package pmode

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrNotFound is returned when no P-Mode matches
	ErrNotFound = errors.New("pmode not found")
	// ErrExists is returned when creating a P-Mode whose ID is taken
	ErrExists = errors.New("pmode already exists")
	// ErrInvalidID is returned for P-Modes without an ID
	ErrInvalidID = errors.New("pmode ID is required")
)

// Manager stores and resolves processing modes
type Manager interface {
	// Create adds a new P-Mode; ErrExists if its ID is taken
	Create(ctx context.Context, pm *PMode) error
	// Update replaces an existing P-Mode; ErrNotFound if absent
	Update(ctx context.Context, pm *PMode) error
	// CreateOrUpdate stores the P-Mode unconditionally
	CreateOrUpdate(ctx context.Context, pm *PMode) error
	// Delete removes a P-Mode; ErrNotFound if absent
	Delete(ctx context.Context, id string) error
	// Get returns the P-Mode with the given ID
	Get(ctx context.Context, id string) (*PMode, error)
	// IDs lists all P-Mode IDs in ascending order
	IDs(ctx context.Context) ([]string, error)
	// Find returns the P-Mode whose leg 1 carries the service and action
	Find(ctx context.Context, service, action string) (*PMode, error)
}

// MemoryManager is an in-memory Manager, safe for concurrent use. Stored
// P-Modes are cloned on the way in and out.
type MemoryManager struct {
	mu     sync.RWMutex
	pmodes map[string]*PMode
}

// NewMemoryManager creates an empty in-memory manager
func NewMemoryManager() *MemoryManager {
	return &MemoryManager{
		pmodes: make(map[string]*PMode),
	}
}

// Create adds a processing mode
func (m *MemoryManager) Create(_ context.Context, pm *PMode) error {
	if pm == nil || pm.ID == "" {
		return ErrInvalidID
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pmodes[pm.ID]; ok {
		return fmt.Errorf("%w: %s", ErrExists, pm.ID)
	}
	m.pmodes[pm.ID] = pm.Clone()
	return nil
}

// Update replaces a processing mode
func (m *MemoryManager) Update(_ context.Context, pm *PMode) error {
	if pm == nil || pm.ID == "" {
		return ErrInvalidID
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pmodes[pm.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, pm.ID)
	}
	m.pmodes[pm.ID] = pm.Clone()
	return nil
}

// CreateOrUpdate stores a processing mode
func (m *MemoryManager) CreateOrUpdate(_ context.Context, pm *PMode) error {
	if pm == nil || pm.ID == "" {
		return ErrInvalidID
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pmodes[pm.ID] = pm.Clone()
	return nil
}

// Delete removes a processing mode
func (m *MemoryManager) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pmodes[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(m.pmodes, id)
	return nil
}

// Get retrieves a processing mode by ID
func (m *MemoryManager) Get(_ context.Context, id string) (*PMode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pm, ok := m.pmodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return pm.Clone(), nil
}

// IDs lists all stored IDs
func (m *MemoryManager) IDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.pmodes))
	for id := range m.pmodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Find finds a matching P-Mode based on the leg 1 service and action.
// Ties are broken by ID so the result is deterministic.
func (m *MemoryManager) Find(ctx context.Context, service, action string) (*PMode, error) {
	ids, _ := m.IDs(ctx)

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range ids {
		pm, ok := m.pmodes[id]
		if !ok {
			continue
		}
		if pm.Leg1 == nil || pm.Leg1.BusinessInfo == nil {
			continue
		}
		if pm.Leg1.BusinessInfo.Service == service && pm.Leg1.BusinessInfo.Action == action {
			return pm.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: service %q action %q", ErrNotFound, service, action)
}
