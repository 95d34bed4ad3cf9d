package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/stateflow/pkg/domain"
	"gorm.io/datatypes"
)

type definitionModel struct {
	ID          string         `gorm:"type:varchar(64);primaryKey"`
	Name        string         `gorm:"type:varchar(255);not null"`
	NameKey     string         `gorm:"type:varchar(255);index;not null"`
	Description string         `gorm:"type:text"`
	States      datatypes.JSON `gorm:"not null"`
	Actions     datatypes.JSON `gorm:"not null"`
	CreatedAt   time.Time      `gorm:"index"`
}

func (definitionModel) TableName() string { return "workflow_definitions" }

type instanceModel struct {
	ID             string         `gorm:"type:varchar(64);primaryKey"`
	DefinitionID   string         `gorm:"type:varchar(64);index;not null"`
	CurrentStateID string         `gorm:"type:varchar(255);not null"`
	History        datatypes.JSON `gorm:"not null"`
	CreatedAt      time.Time      `gorm:"index"`
	LastUpdated    time.Time
}

func (instanceModel) TableName() string { return "workflow_instances" }

func toDefinitionModel(def *domain.Definition) (*definitionModel, error) {
	states, err := json.Marshal(nonNil(def.States))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal states: %w", err)
	}
	actions, err := json.Marshal(nonNil(def.Actions))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal actions: %w", err)
	}
	return &definitionModel{
		ID:          def.ID,
		Name:        def.Name,
		NameKey:     domain.NameKey(def.Name),
		Description: def.Description,
		States:      datatypes.JSON(states),
		Actions:     datatypes.JSON(actions),
		CreatedAt:   def.CreatedAt,
	}, nil
}

func (m *definitionModel) toDomain() (*domain.Definition, error) {
	def := &domain.Definition{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		CreatedAt:   m.CreatedAt.UTC(),
	}
	if err := json.Unmarshal(m.States, &def.States); err != nil {
		return nil, fmt.Errorf("failed to unmarshal states of %s: %w", m.ID, err)
	}
	if err := json.Unmarshal(m.Actions, &def.Actions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal actions of %s: %w", m.ID, err)
	}
	return def, nil
}

func toInstanceModel(inst *domain.Instance) (*instanceModel, error) {
	history, err := json.Marshal(nonNil(inst.History))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal history: %w", err)
	}
	return &instanceModel{
		ID:             inst.ID,
		DefinitionID:   inst.DefinitionID,
		CurrentStateID: inst.CurrentStateID,
		History:        datatypes.JSON(history),
		CreatedAt:      inst.CreatedAt,
		LastUpdated:    inst.LastUpdated,
	}, nil
}

func (m *instanceModel) toDomain() (*domain.Instance, error) {
	inst := &domain.Instance{
		ID:             m.ID,
		DefinitionID:   m.DefinitionID,
		CurrentStateID: m.CurrentStateID,
		CreatedAt:      m.CreatedAt.UTC(),
		LastUpdated:    m.LastUpdated.UTC(),
	}
	if err := json.Unmarshal(m.History, &inst.History); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history of %s: %w", m.ID, err)
	}
	if inst.History == nil {
		inst.History = []domain.ActionHistory{}
	}
	return inst, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
