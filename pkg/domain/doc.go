/*
Package domain contains the core domain models of the stateflow engine.

It defines workflow definitions (states and the actions that move between them), the running
instances created from those definitions, and the error values produced when a definition is
malformed or a transition is rejected. This package is kept pure and free of I/O, following
Hexagonal Architecture principles.

# Key Entities

  - State: A named point of a workflow. Exactly one state per definition is initial.
  - Action: A guarded transition from a set of source states to one target state.
  - Definition: The immutable description of a workflow (states + actions).
  - Instance: A running execution of a definition with its current state and history.
  - ActionHistory: An append-only record of one executed transition.
  - ValidationResult: The aggregated outcome of a validation pass.
*/
package domain
