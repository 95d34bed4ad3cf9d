package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/stateflow/pkg/domain"
)

// GraphOverlay contains instance data to visualize on the graph.
type GraphOverlay struct {
	VisitedStates []string
	CurrentState  string
}

// OverlayFor builds the overlay of an instance.
func OverlayFor(inst *domain.Instance) *GraphOverlay {
	if inst == nil {
		return nil
	}
	return &GraphOverlay{
		VisitedStates: inst.VisitedStates(),
		CurrentState:  inst.CurrentStateID,
	}
}

// GenerateMermaid produces a Mermaid flowchart of a definition.
// It applies semantic styling:
// - Initial state: ((Circle))
// - Final state: (((Double circle)))
// - Other states: [Rectangle]
// Enabled actions are solid labelled edges, disabled ones dotted.
// It also applies overlay styles (Visited/Current) if provided.
func GenerateMermaid(def *domain.Definition, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, state := range def.States {
		opener, closer := "[", "]"
		switch {
		case state.IsInitial:
			opener, closer = "((", "))"
		case state.IsFinal:
			opener, closer = "(((", ")))"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(state.ID), opener, escapeLabel(state.Name), closer)
	}

	for _, action := range def.Actions {
		label := escapeLabel(action.Name)
		arrow := fmt.Sprintf("-- \"%s\" -->", label)
		if !action.Enabled {
			arrow = fmt.Sprintf("-. \"%s\" .->", label)
		}
		for _, from := range action.FromStates {
			fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(from), arrow, sanitizeMermaidID(action.ToState))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for contrast regardless of theme.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.VisitedStates {
			safeID := sanitizeMermaidID(id)
			if safeID == "" || seen[safeID] || id == overlay.CurrentState {
				continue
			}
			seen[safeID] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
		}

		if overlay.CurrentState != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentState))
		}
	}

	return sb.String()
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
