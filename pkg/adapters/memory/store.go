package memory

import (
	"context"
	"sync"

	"github.com/aretw0/stateflow/pkg/domain"
)

// DefinitionStore implements ports.DefinitionStore in memory.
// Safe for concurrent use.
type DefinitionStore struct {
	data  map[string]*domain.Definition
	names map[string]string // NameKey -> ID
	mu    sync.RWMutex
}

// NewDefinitionStore creates a new in-memory definition store.
func NewDefinitionStore() *DefinitionStore {
	return &DefinitionStore{
		data:  make(map[string]*domain.Definition),
		names: make(map[string]string),
	}
}

// Save persists a copy of the definition.
func (s *DefinitionStore) Save(ctx context.Context, def *domain.Definition) error {
	copied := def.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.data[def.ID]; ok {
		delete(s.names, domain.NameKey(prev.Name))
	}
	s.data[def.ID] = copied
	s.names[domain.NameKey(def.Name)] = def.ID
	return nil
}

// Load returns a copy so callers can't mutate store state directly by pointer.
func (s *DefinitionStore) Load(ctx context.Context, id string) (*domain.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.data[id]
	if !ok {
		return nil, domain.ErrDefinitionNotFound
	}
	return def.Clone(), nil
}

// List returns copies of all definitions, oldest first.
func (s *DefinitionStore) List(ctx context.Context) ([]*domain.Definition, error) {
	s.mu.RLock()
	defs := make([]*domain.Definition, 0, len(s.data))
	for _, def := range s.data {
		defs = append(defs, def.Clone())
	}
	s.mu.RUnlock()

	domain.SortDefinitions(defs)
	return defs, nil
}

// ExistsByName reports whether a definition with this name exists, ignoring case.
func (s *DefinitionStore) ExistsByName(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.names[domain.NameKey(name)]
	return ok, nil
}

// InstanceStore implements ports.InstanceStore in memory.
// Safe for concurrent use.
type InstanceStore struct {
	data map[string]*domain.Instance
	mu   sync.RWMutex
}

// NewInstanceStore creates a new in-memory instance store.
func NewInstanceStore() *InstanceStore {
	return &InstanceStore{
		data: make(map[string]*domain.Instance),
	}
}

// Save persists a snapshot of the instance.
func (s *InstanceStore) Save(ctx context.Context, inst *domain.Instance) error {
	snap := inst.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[inst.ID] = snap
	return nil
}

// Load returns a snapshot of the stored instance.
func (s *InstanceStore) Load(ctx context.Context, id string) (*domain.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.data[id]
	if !ok {
		return nil, domain.ErrInstanceNotFound
	}
	return inst.Snapshot(), nil
}

// List returns snapshots of all instances, oldest first.
func (s *InstanceStore) List(ctx context.Context) ([]*domain.Instance, error) {
	return s.filter(func(*domain.Instance) bool { return true }), nil
}

// ListByDefinition returns snapshots of the instances of one definition, oldest first.
func (s *InstanceStore) ListByDefinition(ctx context.Context, definitionID string) ([]*domain.Instance, error) {
	return s.filter(func(i *domain.Instance) bool { return i.DefinitionID == definitionID }), nil
}

func (s *InstanceStore) filter(keep func(*domain.Instance) bool) []*domain.Instance {
	s.mu.RLock()
	insts := make([]*domain.Instance, 0, len(s.data))
	for _, inst := range s.data {
		if keep(inst) {
			insts = append(insts, inst.Snapshot())
		}
	}
	s.mu.RUnlock()

	domain.SortInstances(insts)
	return insts
}
