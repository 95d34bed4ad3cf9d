package ports

import (
	"context"

	"github.com/aretw0/stateflow/pkg/domain"
)

// DefinitionStore persists workflow definitions.
// Definitions are immutable once saved; Save on an existing ID replaces it.
type DefinitionStore interface {
	// Save persists the definition under def.ID.
	Save(ctx context.Context, def *domain.Definition) error

	// Load retrieves a definition by ID.
	// Returns domain.ErrDefinitionNotFound if it does not exist.
	Load(ctx context.Context, id string) (*domain.Definition, error)

	// List returns every definition, oldest first.
	List(ctx context.Context) ([]*domain.Definition, error)

	// ExistsByName reports whether a definition with this name exists, ignoring case.
	ExistsByName(ctx context.Context, name string) (bool, error)
}

// InstanceStore persists workflow instances.
type InstanceStore interface {
	// Save persists the instance under inst.ID, replacing any previous snapshot.
	Save(ctx context.Context, inst *domain.Instance) error

	// Load retrieves an instance by ID.
	// Returns domain.ErrInstanceNotFound if it does not exist.
	Load(ctx context.Context, id string) (*domain.Instance, error)

	// List returns every instance, oldest first.
	List(ctx context.Context) ([]*domain.Instance, error)

	// ListByDefinition returns the instances of one definition, oldest first.
	ListByDefinition(ctx context.Context, definitionID string) ([]*domain.Instance, error)
}
