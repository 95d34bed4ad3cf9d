package domain

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// State is a single node of a workflow definition.
type State struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	IsInitial   bool   `json:"isInitial" yaml:"isInitial"`
	IsFinal     bool   `json:"isFinal" yaml:"isFinal"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Action is a transition from any of FromStates to ToState.
type Action struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	FromStates  []string `json:"fromStates" yaml:"fromStates"`
	ToState     string   `json:"toState" yaml:"toState"`
	Enabled     bool     `json:"enabled" yaml:"enabled"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// AllowsFrom reports whether the action lists stateID as a source state.
func (a Action) AllowsFrom(stateID string) bool {
	return slices.Contains(a.FromStates, stateID)
}

// Definition describes a workflow: its states and the actions between them.
// A definition is immutable once it has been accepted by the store.
type Definition struct {
	ID          string    `json:"id" yaml:"id,omitempty"`
	Name        string    `json:"name" yaml:"name"`
	States      []State   `json:"states" yaml:"states"`
	Actions     []Action  `json:"actions" yaml:"actions"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt,omitempty"`
}

// InitialState returns the first state flagged as initial.
func (d *Definition) InitialState() (State, bool) {
	for _, s := range d.States {
		if s.IsInitial {
			return s, true
		}
	}
	return State{}, false
}

// FindState looks up a state by ID.
func (d *Definition) FindState(id string) (State, bool) {
	for _, s := range d.States {
		if s.ID == id {
			return s, true
		}
	}
	return State{}, false
}

// FindActionByID looks up an action by its exact ID.
func (d *Definition) FindActionByID(id string) (Action, bool) {
	for _, a := range d.Actions {
		if a.ID == id {
			return a, true
		}
	}
	return Action{}, false
}

// FindActionByName looks up an action by name, ignoring case.
func (d *Definition) FindActionByName(name string) (Action, bool) {
	for _, a := range d.Actions {
		if strings.EqualFold(a.Name, name) {
			return a, true
		}
	}
	return Action{}, false
}

// Clone returns a deep copy of the definition.
func (d *Definition) Clone() *Definition {
	if d == nil {
		return nil
	}
	c := *d
	c.States = slices.Clone(d.States)
	c.Actions = make([]Action, len(d.Actions))
	for i, a := range d.Actions {
		a.FromStates = slices.Clone(a.FromStates)
		c.Actions[i] = a
	}
	return &c
}

// NameKey case-folds a definition name for uniqueness checks.
// Whitespace is significant: "Orders" and "Orders " are distinct names.
func NameKey(name string) string {
	return cases.Fold().String(name)
}
