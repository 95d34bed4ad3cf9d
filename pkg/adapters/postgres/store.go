// Package postgres persists definitions and instances in PostgreSQL through gorm.
// States, actions and history are stored as JSONB columns.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/stateflow/pkg/domain"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to PostgreSQL using a DSN such as
// "host=localhost user=postgres password=secret dbname=stateflow port=5432 sslmode=disable".
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the workflow tables.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&definitionModel{}, &instanceModel{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var upsert = clause.OnConflict{
	Columns:   []clause.Column{{Name: "id"}},
	UpdateAll: true,
}

// DefinitionStore implements ports.DefinitionStore on the workflow_definitions table.
type DefinitionStore struct {
	db *gorm.DB
}

// NewDefinitionStore creates a definition store.
func NewDefinitionStore(db *gorm.DB) *DefinitionStore {
	return &DefinitionStore{db: db}
}

// Save inserts or replaces the definition.
func (s *DefinitionStore) Save(ctx context.Context, def *domain.Definition) error {
	m, err := toDefinitionModel(def)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Clauses(upsert).Create(m).Error; err != nil {
		return fmt.Errorf("failed to save definition: %w", err)
	}
	return nil
}

// Load retrieves one definition.
func (s *DefinitionStore) Load(ctx context.Context, id string) (*domain.Definition, error) {
	var m definitionModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrDefinitionNotFound
		}
		return nil, fmt.Errorf("failed to load definition: %w", err)
	}
	return m.toDomain()
}

// List returns every definition, oldest first.
func (s *DefinitionStore) List(ctx context.Context) ([]*domain.Definition, error) {
	var rows []definitionModel
	if err := s.db.WithContext(ctx).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list definitions: %w", err)
	}

	defs := make([]*domain.Definition, 0, len(rows))
	for i := range rows {
		def, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// ExistsByName reports whether a definition with this name exists, ignoring case.
func (s *DefinitionStore) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&definitionModel{}).
		Where("name_key = ?", domain.NameKey(name)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check definition name: %w", err)
	}
	return count > 0, nil
}

// InstanceStore implements ports.InstanceStore on the workflow_instances table.
type InstanceStore struct {
	db *gorm.DB
}

// NewInstanceStore creates an instance store.
func NewInstanceStore(db *gorm.DB) *InstanceStore {
	return &InstanceStore{db: db}
}

// Save inserts or replaces the instance.
func (s *InstanceStore) Save(ctx context.Context, inst *domain.Instance) error {
	m, err := toInstanceModel(inst)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Clauses(upsert).Create(m).Error; err != nil {
		return fmt.Errorf("failed to save instance: %w", err)
	}
	return nil
}

// Load retrieves one instance.
func (s *InstanceStore) Load(ctx context.Context, id string) (*domain.Instance, error) {
	var m instanceModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInstanceNotFound
		}
		return nil, fmt.Errorf("failed to load instance: %w", err)
	}
	return m.toDomain()
}

// List returns every instance, oldest first.
func (s *InstanceStore) List(ctx context.Context) ([]*domain.Instance, error) {
	return s.find(ctx, s.db.WithContext(ctx))
}

// ListByDefinition returns the instances of one definition, oldest first.
func (s *InstanceStore) ListByDefinition(ctx context.Context, definitionID string) ([]*domain.Instance, error) {
	return s.find(ctx, s.db.WithContext(ctx).Where("definition_id = ?", definitionID))
}

func (s *InstanceStore) find(ctx context.Context, q *gorm.DB) ([]*domain.Instance, error) {
	var rows []instanceModel
	if err := q.Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}

	insts := make([]*domain.Instance, 0, len(rows))
	for i := range rows {
		inst, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		insts = append(insts, inst)
	}
	return insts, nil
}
