package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/stateflow/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefinitionStore implements ports.DefinitionStore using Redis.
//
// Keys:
//
//	<prefix>definition:<id>     JSON document
//	<prefix>definitions         ZSET of IDs scored by creation time
//	<prefix>definition:names    HASH of lowercased name -> ID
type DefinitionStore struct {
	client *backend.Client
	prefix string
}

// NewDefinitionStore creates a definition store on an existing client.
func NewDefinitionStore(client *backend.Client, opts ...Option) *DefinitionStore {
	o := buildOptions(opts)
	return &DefinitionStore{client: client, prefix: o.prefix}
}

func (s *DefinitionStore) key(id string) string { return s.prefix + "definition:" + id }
func (s *DefinitionStore) indexKey() string     { return s.prefix + "definitions" }
func (s *DefinitionStore) namesKey() string     { return s.prefix + "definition:names" }

// Save persists the definition and updates the name and creation indexes.
func (s *DefinitionStore) Save(ctx context.Context, def *domain.Definition) error {
	data, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("failed to marshal definition: %w", err)
	}

	prev, err := s.Load(ctx, def.ID)
	if err != nil && !errors.Is(err, domain.ErrDefinitionNotFound) {
		return err
	}

	pipe := s.client.TxPipeline()
	if prev != nil && domain.NameKey(prev.Name) != domain.NameKey(def.Name) {
		pipe.HDel(ctx, s.namesKey(), domain.NameKey(prev.Name))
	}
	pipe.Set(ctx, s.key(def.ID), data, 0)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  float64(def.CreatedAt.UnixMicro()),
		Member: def.ID,
	})
	pipe.HSet(ctx, s.namesKey(), domain.NameKey(def.Name), def.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save definition to redis: %w", err)
	}
	return nil
}

// Load retrieves one definition.
func (s *DefinitionStore) Load(ctx context.Context, id string) (*domain.Definition, error) {
	val, err := s.client.Get(ctx, s.key(id)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrDefinitionNotFound
		}
		return nil, fmt.Errorf("failed to get definition from redis: %w", err)
	}

	var def domain.Definition
	if err := json.Unmarshal([]byte(val), &def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal definition: %w", err)
	}
	return &def, nil
}

// List returns every definition, oldest first.
func (s *DefinitionStore) List(ctx context.Context) ([]*domain.Definition, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list definitions: %w", err)
	}

	defs := make([]*domain.Definition, 0, len(ids))
	err = mgetJSON(ctx, s.client, s.key, ids, func(raw []byte) error {
		var def domain.Definition
		if err := json.Unmarshal(raw, &def); err != nil {
			return fmt.Errorf("failed to unmarshal definition: %w", err)
		}
		defs = append(defs, &def)
		return nil
	})
	if err != nil {
		return nil, err
	}

	domain.SortDefinitions(defs)
	return defs, nil
}

// ExistsByName reports whether a definition with this name exists, ignoring case.
func (s *DefinitionStore) ExistsByName(ctx context.Context, name string) (bool, error) {
	ok, err := s.client.HExists(ctx, s.namesKey(), domain.NameKey(name)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check definition name: %w", err)
	}
	return ok, nil
}

// InstanceStore implements ports.InstanceStore using Redis.
//
// Keys:
//
//	<prefix>instance:<id>                   JSON document
//	<prefix>instances                       ZSET of IDs scored by creation time
//	<prefix>definition:<defID>:instances    ZSET of the definition's instance IDs
type InstanceStore struct {
	client *backend.Client
	prefix string
}

// NewInstanceStore creates an instance store on an existing client.
func NewInstanceStore(client *backend.Client, opts ...Option) *InstanceStore {
	o := buildOptions(opts)
	return &InstanceStore{client: client, prefix: o.prefix}
}

func (s *InstanceStore) key(id string) string { return s.prefix + "instance:" + id }
func (s *InstanceStore) indexKey() string     { return s.prefix + "instances" }
func (s *InstanceStore) byDefinitionKey(definitionID string) string {
	return s.prefix + "definition:" + definitionID + ":instances"
}

// Save persists the instance and indexes it globally and under its definition.
func (s *InstanceStore) Save(ctx context.Context, inst *domain.Instance) error {
	data, err := json.Marshal(inst.Snapshot())
	if err != nil {
		return fmt.Errorf("failed to marshal instance: %w", err)
	}

	member := backend.Z{Score: float64(inst.CreatedAt.UnixMicro()), Member: inst.ID}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(inst.ID), data, 0)
	pipe.ZAdd(ctx, s.indexKey(), member)
	pipe.ZAdd(ctx, s.byDefinitionKey(inst.DefinitionID), member)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save instance to redis: %w", err)
	}
	return nil
}

// Load retrieves one instance.
func (s *InstanceStore) Load(ctx context.Context, id string) (*domain.Instance, error) {
	val, err := s.client.Get(ctx, s.key(id)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrInstanceNotFound
		}
		return nil, fmt.Errorf("failed to get instance from redis: %w", err)
	}
	return decodeInstance([]byte(val))
}

// List returns every instance, oldest first.
func (s *InstanceStore) List(ctx context.Context) ([]*domain.Instance, error) {
	return s.listIndex(ctx, s.indexKey())
}

// ListByDefinition returns the instances of one definition, oldest first.
func (s *InstanceStore) ListByDefinition(ctx context.Context, definitionID string) ([]*domain.Instance, error) {
	return s.listIndex(ctx, s.byDefinitionKey(definitionID))
}

func (s *InstanceStore) listIndex(ctx context.Context, index string) ([]*domain.Instance, error) {
	ids, err := s.client.ZRange(ctx, index, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}

	insts := make([]*domain.Instance, 0, len(ids))
	err = mgetJSON(ctx, s.client, s.key, ids, func(raw []byte) error {
		inst, err := decodeInstance(raw)
		if err != nil {
			return err
		}
		insts = append(insts, inst)
		return nil
	})
	if err != nil {
		return nil, err
	}

	domain.SortInstances(insts)
	return insts, nil
}

func decodeInstance(raw []byte) (*domain.Instance, error) {
	var inst domain.Instance
	if err := json.Unmarshal(raw, &inst); err != nil {
		return nil, fmt.Errorf("failed to unmarshal instance: %w", err)
	}
	if inst.History == nil {
		inst.History = []domain.ActionHistory{}
	}
	return &inst, nil
}

// mgetJSON fetches the documents for ids in one round trip.
// IDs whose key has vanished since the index was read are skipped.
func mgetJSON(ctx context.Context, client *backend.Client, key func(string) string, ids []string, fn func([]byte) error) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = key(id)
	}

	vals, err := client.MGet(ctx, keys...).Result()
	if err != nil {
		return fmt.Errorf("failed to fetch documents from redis: %w", err)
	}

	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		if err := fn([]byte(raw)); err != nil {
			return err
		}
	}
	return nil
}
