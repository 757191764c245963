package pmode

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestNewMemoryManager(t *testing.T) {
	manager := NewMemoryManager()
	if manager == nil {
		t.Fatal("expected non-nil manager")
	}
	if manager.pmodes == nil {
		t.Error("expected pmodes map to be initialized")
	}
}

func TestMemoryManager_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	manager := NewMemoryManager()

	pm := testPMode()
	if err := manager.Create(ctx, pm); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	retrieved, err := manager.Get(ctx, "test-pmode")
	if err != nil {
		t.Fatalf("expected to retrieve pmode: %v", err)
	}
	if !retrieved.Equal(pm) {
		t.Error("expected retrieved pmode to equal the stored one")
	}
	if retrieved == pm {
		t.Error("expected a copy, got the stored pointer")
	}

	// Mutating the caller's value must not leak into the store
	pm.Leg1.Protocol.Address = "https://changed.example.com"
	again, _ := manager.Get(ctx, "test-pmode")
	if again.Leg1.Protocol.Address != "https://receiver.example.com/as4" {
		t.Errorf("stored pmode was modified through caller pointer: %s", again.Leg1.Protocol.Address)
	}
}

func TestMemoryManager_CreateDuplicate(t *testing.T) {
	ctx := context.Background()
	manager := NewMemoryManager()

	if err := manager.Create(ctx, testPMode()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := manager.Create(ctx, testPMode())
	if !errors.Is(err, ErrExists) {
		t.Errorf("expected ErrExists, got %v", err)
	}
}

func TestMemoryManager_InvalidID(t *testing.T) {
	ctx := context.Background()
	manager := NewMemoryManager()

	if err := manager.Create(ctx, &PMode{}); !errors.Is(err, ErrInvalidID) {
		t.Errorf("expected ErrInvalidID, got %v", err)
	}
	if err := manager.Update(ctx, nil); !errors.Is(err, ErrInvalidID) {
		t.Errorf("expected ErrInvalidID, got %v", err)
	}
	if err := manager.CreateOrUpdate(ctx, &PMode{}); !errors.Is(err, ErrInvalidID) {
		t.Errorf("expected ErrInvalidID, got %v", err)
	}
}

func TestMemoryManager_GetNotFound(t *testing.T) {
	manager := NewMemoryManager()

	retrieved, err := manager.Get(context.Background(), "nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if retrieved != nil {
		t.Error("expected nil for nonexistent pmode")
	}
}

func TestMemoryManager_Update(t *testing.T) {
	ctx := context.Background()
	manager := NewMemoryManager()

	if err := manager.Update(ctx, testPMode()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown pmode, got %v", err)
	}

	pm := testPMode()
	_ = manager.Create(ctx, pm)

	pm.Agreement = "urn:agreement:v2"
	if err := manager.Update(ctx, pm); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	retrieved, _ := manager.Get(ctx, pm.ID)
	if retrieved.Agreement != "urn:agreement:v2" {
		t.Errorf("expected updated agreement, got '%s'", retrieved.Agreement)
	}
}

func TestMemoryManager_CreateOrUpdate(t *testing.T) {
	ctx := context.Background()
	manager := NewMemoryManager()

	pm := testPMode()
	if err := manager.CreateOrUpdate(ctx, pm); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pm.Agreement = "urn:agreement:v3"
	if err := manager.CreateOrUpdate(ctx, pm); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	retrieved, _ := manager.Get(ctx, pm.ID)
	if retrieved.Agreement != "urn:agreement:v3" {
		t.Errorf("expected agreement 'urn:agreement:v3', got '%s'", retrieved.Agreement)
	}
}

func TestMemoryManager_Delete(t *testing.T) {
	ctx := context.Background()
	manager := NewMemoryManager()

	_ = manager.Create(ctx, testPMode())

	if err := manager.Delete(ctx, "test-pmode"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := manager.Get(ctx, "test-pmode"); !errors.Is(err, ErrNotFound) {
		t.Error("pmode should be removed")
	}
	if err := manager.Delete(ctx, "test-pmode"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestMemoryManager_IDs(t *testing.T) {
	ctx := context.Background()
	manager := NewMemoryManager()

	for _, id := range []string{"c", "a", "b"} {
		pm := testPMode()
		pm.ID = id
		_ = manager.Create(ctx, pm)
	}

	ids, err := manager.IDs(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(ids) != len(want) {
		t.Fatalf("expected %d ids, got %d", len(want), len(ids))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d]: expected '%s', got '%s'", i, want[i], ids[i])
		}
	}
}

func TestMemoryManager_Find(t *testing.T) {
	ctx := context.Background()
	manager := NewMemoryManager()

	pmode1 := testPMode()
	pmode1.ID = "pmode-1"
	pmode1.Leg1.BusinessInfo = &BusinessInfo{Service: "urn:service:a", Action: "action-a"}

	pmode2 := testPMode()
	pmode2.ID = "pmode-2"
	pmode2.Leg1.BusinessInfo = &BusinessInfo{Service: "urn:service:b", Action: "action-b"}

	noLeg := &PMode{ID: "pmode-0"}

	_ = manager.Create(ctx, pmode1)
	_ = manager.Create(ctx, pmode2)
	_ = manager.Create(ctx, noLeg)

	tests := []struct {
		name        string
		service     string
		action      string
		expectID    string
		expectFound bool
	}{
		{
			name:        "find first pmode",
			service:     "urn:service:a",
			action:      "action-a",
			expectID:    "pmode-1",
			expectFound: true,
		},
		{
			name:        "find second pmode",
			service:     "urn:service:b",
			action:      "action-b",
			expectID:    "pmode-2",
			expectFound: true,
		},
		{
			name:    "no match - wrong service",
			service: "urn:service:c",
			action:  "action-a",
		},
		{
			name:    "no match - wrong action",
			service: "urn:service:a",
			action:  "action-wrong",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := manager.Find(ctx, tt.service, tt.action)
			if tt.expectFound {
				if err != nil {
					t.Fatalf("expected to find pmode: %v", err)
				}
				if found.ID != tt.expectID {
					t.Errorf("expected ID '%s', got '%s'", tt.expectID, found.ID)
				}
			} else {
				if !errors.Is(err, ErrNotFound) {
					t.Errorf("expected ErrNotFound, got %v", err)
				}
			}
		})
	}
}

func TestMemoryManager_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	manager := NewMemoryManager()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pm := testPMode()
			pm.ID = string(rune('a' + i%26))
			_ = manager.CreateOrUpdate(ctx, pm)
			_, _ = manager.Get(ctx, pm.ID)
			_, _ = manager.IDs(ctx)
		}(i)
	}
	wg.Wait()

	ids, _ := manager.IDs(ctx)
	if len(ids) != 26 {
		t.Errorf("expected 26 pmodes, got %d", len(ids))
	}
}
