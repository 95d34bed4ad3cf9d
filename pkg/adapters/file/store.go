package file

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/aretw0/stateflow/pkg/domain"
)

// DefaultDir is the base directory used when none is configured.
const DefaultDir = ".stateflow"

func resolveBase(basePath string) string {
	if basePath == "" {
		return DefaultDir
	}
	return basePath
}

// DefinitionStore implements ports.DefinitionStore using the local filesystem.
// Each definition is a JSON file under <base>/definitions.
type DefinitionStore struct {
	Dir string
}

// NewDefinitionStore creates a store rooted at basePath (default ".stateflow").
func NewDefinitionStore(basePath string) *DefinitionStore {
	return &DefinitionStore{Dir: filepath.Join(resolveBase(basePath), "definitions")}
}

// Save writes the definition atomically.
func (s *DefinitionStore) Save(ctx context.Context, def *domain.Definition) error {
	return writeJSON(s.Dir, def.ID, def)
}

// Load reads one definition.
func (s *DefinitionStore) Load(ctx context.Context, id string) (*domain.Definition, error) {
	var def domain.Definition
	if err := readJSON(s.Dir, id, &def); err != nil {
		if isMissing(err) {
			return nil, domain.ErrDefinitionNotFound
		}
		return nil, fmt.Errorf("failed to read definition file: %w", err)
	}
	return &def, nil
}

// List reads every definition, oldest first.
func (s *DefinitionStore) List(ctx context.Context) ([]*domain.Definition, error) {
	ids, err := listIDs(s.Dir)
	if err != nil {
		return nil, err
	}

	defs := make([]*domain.Definition, 0, len(ids))
	for _, id := range ids {
		def, err := s.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	domain.SortDefinitions(defs)
	return defs, nil
}

// ExistsByName scans stored definitions for a case-insensitive name match.
func (s *DefinitionStore) ExistsByName(ctx context.Context, name string) (bool, error) {
	defs, err := s.List(ctx)
	if err != nil {
		return false, err
	}
	key := domain.NameKey(name)
	for _, def := range defs {
		if domain.NameKey(def.Name) == key {
			return true, nil
		}
	}
	return false, nil
}

// InstanceStore implements ports.InstanceStore using the local filesystem.
// Each instance is a JSON file under <base>/instances.
type InstanceStore struct {
	Dir string
}

// NewInstanceStore creates a store rooted at basePath (default ".stateflow").
func NewInstanceStore(basePath string) *InstanceStore {
	return &InstanceStore{Dir: filepath.Join(resolveBase(basePath), "instances")}
}

// Save writes the instance snapshot atomically.
func (s *InstanceStore) Save(ctx context.Context, inst *domain.Instance) error {
	return writeJSON(s.Dir, inst.ID, inst)
}

// Load reads one instance.
func (s *InstanceStore) Load(ctx context.Context, id string) (*domain.Instance, error) {
	var inst domain.Instance
	if err := readJSON(s.Dir, id, &inst); err != nil {
		if isMissing(err) {
			return nil, domain.ErrInstanceNotFound
		}
		return nil, fmt.Errorf("failed to read instance file: %w", err)
	}
	if inst.History == nil {
		inst.History = []domain.ActionHistory{}
	}
	return &inst, nil
}

// List reads every instance, oldest first.
func (s *InstanceStore) List(ctx context.Context) ([]*domain.Instance, error) {
	return s.filter(ctx, func(*domain.Instance) bool { return true })
}

// ListByDefinition reads the instances of one definition, oldest first.
func (s *InstanceStore) ListByDefinition(ctx context.Context, definitionID string) ([]*domain.Instance, error) {
	return s.filter(ctx, func(i *domain.Instance) bool { return i.DefinitionID == definitionID })
}

func (s *InstanceStore) filter(ctx context.Context, keep func(*domain.Instance) bool) ([]*domain.Instance, error) {
	ids, err := listIDs(s.Dir)
	if err != nil {
		return nil, err
	}

	insts := make([]*domain.Instance, 0, len(ids))
	for _, id := range ids {
		inst, err := s.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		if keep(inst) {
			insts = append(insts, inst)
		}
	}
	domain.SortInstances(insts)
	return insts, nil
}
