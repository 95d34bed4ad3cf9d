/*
Package stateflow is a small workflow engine: clients describe finite state machines as
definitions (states plus guarded actions), start instances of them and move each instance
forward one explicit action at a time.

The package exposes the two pure building blocks of the engine:

  - ValidateDefinition checks that a definition is well formed and reports every problem at once.
  - StartInstance, ExecuteAction and ValidateActionExecution decide whether a transition is
    legal and produce the next instance snapshot with its history entry.

Neither performs I/O. Persistence, per-instance locking and transports (HTTP, MCP, CLI) live
in pkg/service and pkg/adapters.

# Usage

	def := &domain.Definition{
		ID:   "article",
		Name: "Article",
		States: []domain.State{
			{ID: "draft", Name: "Draft", IsInitial: true},
			{ID: "published", Name: "Published", IsFinal: true},
		},
		Actions: []domain.Action{
			{ID: "publish", Name: "Publish", FromStates: []string{"draft"}, ToState: "published", Enabled: true},
		},
	}

	if result := stateflow.ValidateDefinition(def); !result.IsValid {
		log.Fatal(result.Errors)
	}

	inst, err := stateflow.StartInstance(def)
	if err != nil {
		log.Fatal(err)
	}

	inst, err = stateflow.ExecuteAction(inst, def, "publish")
	if errors.Is(err, domain.ErrTerminalState) {
		// ...
	}

Use New with options (WithClock, WithIDGenerator, WithLogger) when timestamps and IDs must be
controlled, for example in tests.
*/
package stateflow
