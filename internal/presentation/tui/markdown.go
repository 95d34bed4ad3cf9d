package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/stateflow/pkg/domain"
)

// InstanceMarkdown summarizes an instance and its history as markdown.
// def may be nil; state and action names then fall back to IDs.
func InstanceMarkdown(inst *domain.Instance, def *domain.Definition) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Instance `%s`\n\n", inst.ID)
	defName := inst.DefinitionID
	if def != nil {
		defName = fmt.Sprintf("%s (`%s`)", def.Name, def.ID)
	}
	fmt.Fprintf(&sb, "- **Definition:** %s\n", defName)
	fmt.Fprintf(&sb, "- **Current state:** %s\n", stateLabel(def, inst.CurrentStateID))
	fmt.Fprintf(&sb, "- **Created:** %s\n", inst.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "- **Last updated:** %s\n\n", inst.LastUpdated.Format(time.RFC3339))

	if def != nil {
		if state, ok := def.FindState(inst.CurrentStateID); ok && state.IsFinal {
			sb.WriteString("> This instance has reached a final state.\n\n")
		} else if next := availableActions(def, inst.CurrentStateID); len(next) > 0 {
			fmt.Fprintf(&sb, "**Available actions:** %s\n\n", strings.Join(next, ", "))
		}
	}

	sb.WriteString("## History\n\n")
	if len(inst.History) == 0 {
		sb.WriteString("_No actions executed yet._\n")
		return sb.String()
	}

	sb.WriteString("| # | Action | From | To | Executed |\n")
	sb.WriteString("|---|--------|------|----|----------|\n")
	for i, h := range inst.History {
		fmt.Fprintf(&sb, "| %d | %s | %s | %s | %s |\n",
			i+1, h.ActionName, stateLabel(def, h.FromStateID), stateLabel(def, h.ToStateID),
			h.ExecutedAt.Format(time.RFC3339))
	}
	return sb.String()
}

// DefinitionMarkdown lists the states and actions of a definition as markdown.
func DefinitionMarkdown(def *domain.Definition) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", def.Name)
	if def.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", def.Description)
	}
	fmt.Fprintf(&sb, "- **ID:** `%s`\n", def.ID)
	if !def.CreatedAt.IsZero() {
		fmt.Fprintf(&sb, "- **Created:** %s\n", def.CreatedAt.Format(time.RFC3339))
	}

	sb.WriteString("\n## States\n\n| ID | Name | Kind |\n|----|------|------|\n")
	for _, s := range def.States {
		kind := ""
		switch {
		case s.IsInitial:
			kind = "initial"
		case s.IsFinal:
			kind = "final"
		}
		fmt.Fprintf(&sb, "| %s | %s | %s |\n", s.ID, s.Name, kind)
	}

	sb.WriteString("\n## Actions\n\n| ID | Name | From | To | Enabled |\n|----|------|------|----|---------|\n")
	for _, a := range def.Actions {
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %t |\n", a.ID, a.Name, strings.Join(a.FromStates, ", "), a.ToState, a.Enabled)
	}
	return sb.String()
}

func stateLabel(def *domain.Definition, id string) string {
	if def != nil {
		if s, ok := def.FindState(id); ok && s.Name != "" {
			return s.Name
		}
	}
	return id
}

func availableActions(def *domain.Definition, stateID string) []string {
	var names []string
	for _, a := range def.Actions {
		if a.Enabled && a.AllowsFrom(stateID) {
			names = append(names, a.Name)
		}
	}
	return names
}
