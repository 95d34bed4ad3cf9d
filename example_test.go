package stateflow_test

import (
	"fmt"

	"github.com/aretw0/stateflow"
	"github.com/aretw0/stateflow/pkg/domain"
)

// ExampleExecuteAction walks an instance from draft to published.
func ExampleExecuteAction() {
	def := &domain.Definition{
		ID:   "article",
		Name: "Article",
		States: []domain.State{
			{ID: "draft", Name: "Draft", IsInitial: true},
			{ID: "review", Name: "Review"},
			{ID: "published", Name: "Published", IsFinal: true},
		},
		Actions: []domain.Action{
			{ID: "submit", Name: "Submit", FromStates: []string{"draft"}, ToState: "review", Enabled: true},
			{ID: "approve", Name: "Approve", FromStates: []string{"review"}, ToState: "published", Enabled: true},
		},
	}

	inst, err := stateflow.StartInstance(def)
	if err != nil {
		fmt.Println(err)
		return
	}

	for _, action := range []string{"submit", "approve", "submit"} {
		next, err := stateflow.ExecuteAction(inst, def, action)
		if err != nil {
			fmt.Println("rejected:", err)
			continue
		}
		inst = next
		fmt.Println(action, "->", inst.CurrentStateID)
	}
	fmt.Println("history:", len(inst.History))

	// Output:
	// submit -> review
	// approve -> published
	// rejected: Cannot execute actions on final state 'published'
	// history: 2
}

// ExampleValidateDefinition shows that every problem is reported in one pass.
func ExampleValidateDefinition() {
	def := &domain.Definition{
		Name: "Broken",
		States: []domain.State{
			{ID: "a", Name: "A"},
			{ID: "a", Name: "A again"},
		},
		Actions: []domain.Action{
			{ID: "go", Name: "Go", ToState: "b"},
		},
	}

	result := stateflow.ValidateDefinition(def)
	fmt.Println(result.IsValid)
	for _, e := range result.Errors {
		fmt.Println(e)
	}

	// Output:
	// false
	// Duplicate state IDs found: a
	// Workflow definition must have exactly one initial state
	// Action 'go' references unknown toState 'b'
	// Action 'go' must have at least one fromState
}
