package definition_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/stateflow/pkg/definition"
	"github.com/aretw0/stateflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleYAML = `
name: Article
description: Editorial workflow
states:
  - {id: draft, name: Draft, isInitial: true}
  - {id: review, name: Review}
  - {id: published, name: Published, isFinal: true}
actions:
  - {id: submit, name: Submit, fromStates: [draft], toState: review}
  - {id: approve, name: Approve, fromStates: [review], toState: published}
  - {id: reject, name: Reject, fromStates: [review], toState: draft, enabled: false}
`

const articleJSON = `{
  "name": "Article",
  "states": [
    {"id": "draft", "name": "Draft", "isInitial": true},
    {"id": "published", "name": "Published", "isFinal": true}
  ],
  "actions": [
    {"id": "publish", "name": "Publish", "fromStates": ["draft"], "toState": "published", "enabled": true}
  ]
}`

func TestParse_YAML(t *testing.T) {
	def, err := definition.Parse([]byte(articleYAML), definition.FormatYAML)
	require.NoError(t, err)

	assert.Empty(t, def.ID)
	assert.Equal(t, "Article", def.Name)
	assert.Equal(t, "Editorial workflow", def.Description)
	require.Len(t, def.States, 3)
	assert.True(t, def.States[0].IsInitial)
	assert.True(t, def.States[2].IsFinal)

	require.Len(t, def.Actions, 3)
	assert.Equal(t, []string{"draft"}, def.Actions[0].FromStates)
	assert.True(t, def.Actions[0].Enabled, "actions are enabled by default")
	assert.False(t, def.Actions[2].Enabled)
}

func TestParse_JSON(t *testing.T) {
	def, err := definition.Parse([]byte(articleJSON), definition.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, domain.Action{
		ID: "publish", Name: "Publish", FromStates: []string{"draft"}, ToState: "published", Enabled: true,
	}, def.Actions[0])
}

func TestParse_SchemaErrors(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{"missing name", `{"states": []}`, "(root)"},
		{"state without id", `{"name": "x", "states": [{"name": "A"}]}`, "states.0"},
		{"wrong type", `{"name": "x", "states": [{"id": "a", "name": "A", "isInitial": "yes"}]}`, "states.0.isInitial"},
		{"unknown key", `{"name": "x", "states": [], "colour": "red"}`, "(root)"},
		{"action without target", `{"name": "x", "states": [], "actions": [{"id": "a", "name": "A", "fromStates": []}]}`, "actions.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := definition.Parse([]byte(tt.doc), definition.FormatJSON)
			require.Error(t, err)

			var se *definition.SchemaError
			require.True(t, errors.As(err, &se), "expected SchemaError, got %v", err)
			require.NotEmpty(t, se.Errors)
			assert.Equal(t, tt.field, se.Errors[0].Field)
			assert.Contains(t, se.Messages()[0], tt.field+": ")
		})
	}
}

func TestParse_StructuralProblemsPassThrough(t *testing.T) {
	// Well-shaped but structurally invalid: left to the definition validator.
	doc := `{"name": "x", "states": [{"id": "a", "name": "A"}], "actions": [{"id": "go", "name": "Go", "fromStates": ["nowhere"], "toState": "a"}]}`
	def, err := definition.Parse([]byte(doc), definition.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "nowhere", def.Actions[0].FromStates[0])
}

func TestParse_Malformed(t *testing.T) {
	_, err := definition.Parse([]byte("{"), definition.FormatJSON)
	assert.ErrorContains(t, err, "failed to parse json")

	_, err = definition.Parse([]byte("- a\n- b\n"), definition.FormatYAML)
	assert.ErrorContains(t, err, "failed to parse yaml")

	_, err = definition.Parse([]byte("{}"), definition.Format("toml"))
	assert.ErrorIs(t, err, definition.ErrUnsupportedFormat)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "article.yml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(articleYAML), 0644))
	def, err := definition.Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "Article", def.Name)

	jsonPath := filepath.Join(dir, "article.JSON")
	require.NoError(t, os.WriteFile(jsonPath, []byte(articleJSON), 0644))
	_, err = definition.Load(jsonPath)
	require.NoError(t, err)

	_, err = definition.Load(filepath.Join(dir, "article.txt"))
	assert.ErrorIs(t, err, definition.ErrUnsupportedFormat)

	_, err = definition.Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSchemaError_Message(t *testing.T) {
	one := &definition.SchemaError{Errors: []definition.FieldError{{Field: "name", Reason: "is required"}}}
	assert.Equal(t, "name: is required", one.Error())

	two := &definition.SchemaError{Errors: []definition.FieldError{
		{Field: "name", Reason: "is required"},
		{Field: "states", Reason: "is required"},
	}}
	assert.Equal(t, "2 validation errors:\n  1. name: is required\n  2. states: is required", two.Error())
}
