package domain

import (
	"slices"
	"time"
)

// Instance is a running execution of a Definition.
// It refers to its definition by ID only.
type Instance struct {
	ID             string          `json:"id"`
	DefinitionID   string          `json:"definitionId"`
	CurrentStateID string          `json:"currentStateId"`
	History        []ActionHistory `json:"history"`
	CreatedAt      time.Time       `json:"createdAt"`
	LastUpdated    time.Time       `json:"lastUpdated"`
}

// ActionHistory records one executed transition.
// ActionName is a snapshot taken at execution time.
type ActionHistory struct {
	ActionID    string    `json:"actionId"`
	ActionName  string    `json:"actionName"`
	FromStateID string    `json:"fromStateId"`
	ToStateID   string    `json:"toStateId"`
	ExecutedAt  time.Time `json:"executedAt"`
}

// NewInstance creates an instance positioned at stateID with an empty history.
func NewInstance(id, definitionID, stateID string, now time.Time) *Instance {
	return &Instance{
		ID:             id,
		DefinitionID:   definitionID,
		CurrentStateID: stateID,
		History:        []ActionHistory{},
		CreatedAt:      now,
		LastUpdated:    now,
	}
}

// Snapshot creates a deep copy of the instance.
// Stores and the engine use it so callers never share a History slice.
func (i *Instance) Snapshot() *Instance {
	if i == nil {
		return nil
	}
	c := *i
	c.History = slices.Clone(i.History)
	if c.History == nil {
		c.History = []ActionHistory{}
	}
	return &c
}

// VisitedStates returns the states the instance has passed through, oldest first,
// including the current one.
func (i *Instance) VisitedStates() []string {
	visited := make([]string, 0, len(i.History)+1)
	for _, h := range i.History {
		visited = append(visited, h.FromStateID)
	}
	return append(visited, i.CurrentStateID)
}
