package tui

import (
	"bytes"
	"testing"
	"time"

	"github.com/aretw0/stateflow/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func testDefinition() *domain.Definition {
	return &domain.Definition{
		ID:          "def-1",
		Name:        "Article",
		Description: "Editorial workflow",
		States: []domain.State{
			{ID: "draft", Name: "Draft", IsInitial: true},
			{ID: "published", Name: "Published", IsFinal: true},
		},
		Actions: []domain.Action{
			{ID: "publish", Name: "Publish", FromStates: []string{"draft"}, ToState: "published", Enabled: true},
			{ID: "archive", Name: "Archive", FromStates: []string{"draft"}, ToState: "published", Enabled: false},
		},
	}
}

func TestInstanceMarkdown(t *testing.T) {
	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	def := testDefinition()
	inst := domain.NewInstance("inst-1", def.ID, "draft", now)

	md := InstanceMarkdown(inst, def)
	assert.Contains(t, md, "# Instance `inst-1`")
	assert.Contains(t, md, "Article (`def-1`)")
	assert.Contains(t, md, "**Current state:** Draft")
	assert.Contains(t, md, "**Available actions:** Publish\n")
	assert.Contains(t, md, "_No actions executed yet._")

	inst.CurrentStateID = "published"
	inst.History = append(inst.History, domain.ActionHistory{
		ActionID: "publish", ActionName: "Publish", FromStateID: "draft", ToStateID: "published", ExecutedAt: now,
	})
	md = InstanceMarkdown(inst, def)
	assert.Contains(t, md, "reached a final state")
	assert.Contains(t, md, "| 1 | Publish | Draft | Published | 2025-05-01T10:00:00Z |")

	md = InstanceMarkdown(inst, nil)
	assert.Contains(t, md, "**Definition:** def-1")
	assert.Contains(t, md, "| 1 | Publish | draft | published |")
}

func TestDefinitionMarkdown(t *testing.T) {
	md := DefinitionMarkdown(testDefinition())
	assert.Contains(t, md, "# Article")
	assert.Contains(t, md, "Editorial workflow")
	assert.Contains(t, md, "| draft | Draft | initial |")
	assert.Contains(t, md, "| published | Published | final |")
	assert.Contains(t, md, "| archive | Archive | draft | published | false |")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.Contains(t, buf.String(), "|___/")
}

func TestRenderer(t *testing.T) {
	render := NewRenderer()
	out, err := render("# Title\n\nbody")
	assert.NoError(t, err)
	assert.Contains(t, out, "Title")
}
