package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/stateflow/pkg/adapters/memory"
	"github.com/aretw0/stateflow/pkg/domain"
	"github.com/aretw0/stateflow/pkg/service"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleYAML = `
name: Article
states:
  - id: draft
    name: Draft
    isInitial: true
  - id: published
    name: Published
    isFinal: true
actions:
  - id: publish
    name: Publish
    fromStates: [draft]
    toState: published
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServer(service.New(memory.NewDefinitionStore(), memory.NewInstanceStore()))
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func TestMCP_DefinitionAndInstanceTools(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	result, err := s.handleValidateDefinition(ctx, mcp.CallToolRequest{}, DefinitionArgs{Definition: articleYAML})
	require.NoError(t, err)
	assert.True(t, result.IsValid, result.Errors)

	def, err := s.handleCreateDefinition(ctx, mcp.CallToolRequest{}, DefinitionArgs{Definition: articleYAML})
	require.NoError(t, err)
	assert.Equal(t, "Article", def.Name)
	assert.True(t, def.Actions[0].Enabled)

	list, err := s.handleListDefinitions(ctx, mcp.CallToolRequest{}, struct{}{})
	require.NoError(t, err)
	require.Len(t, list.Definitions, 1)

	inst, err := s.handleStartInstance(ctx, mcp.CallToolRequest{}, StartArgs{DefinitionID: def.ID})
	require.NoError(t, err)
	assert.Equal(t, "draft", inst.CurrentStateID)

	check, err := s.handleValidateAction(ctx, mcp.CallToolRequest{}, ActionArgs{InstanceID: inst.ID, Action: "publish"})
	require.NoError(t, err)
	assert.True(t, check.IsValid)

	inst, err = s.handleExecuteAction(ctx, mcp.CallToolRequest{}, ActionArgs{InstanceID: inst.ID, Action: "PUBLISH"})
	require.NoError(t, err)
	assert.Equal(t, "published", inst.CurrentStateID)

	_, err = s.handleExecuteAction(ctx, mcp.CallToolRequest{}, ActionArgs{InstanceID: inst.ID, Action: "publish"})
	assert.ErrorIs(t, err, domain.ErrTerminalState)

	got, err := s.handleGetInstance(ctx, mcp.CallToolRequest{}, IDArgs{ID: inst.ID})
	require.NoError(t, err)
	assert.Len(t, got.History, 1)

	insts, err := s.handleListInstances(ctx, mcp.CallToolRequest{}, ListInstancesArgs{DefinitionID: def.ID})
	require.NoError(t, err)
	assert.Len(t, insts.Instances, 1)

	insts, err = s.handleListInstances(ctx, mcp.CallToolRequest{}, ListInstancesArgs{DefinitionID: "other"})
	require.NoError(t, err)
	assert.Empty(t, insts.Instances)
}

func TestMCP_ValidateDefinitionReportsEveryProblem(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	t.Run("schema violations", func(t *testing.T) {
		result, err := s.handleValidateDefinition(ctx, mcp.CallToolRequest{}, DefinitionArgs{Definition: "name: X\nstates:\n  - name: A\n"})
		require.NoError(t, err)
		assert.False(t, result.IsValid)
		assert.NotEmpty(t, result.Errors)
	})

	t.Run("structural violations", func(t *testing.T) {
		doc := `{"name": "X", "states": [{"id": "a", "name": "A"}], "actions": []}`
		result, err := s.handleValidateDefinition(ctx, mcp.CallToolRequest{}, DefinitionArgs{Definition: doc, Format: "json"})
		require.NoError(t, err)
		assert.False(t, result.IsValid)
		assert.Contains(t, result.Errors, "Workflow definition must have exactly one initial state")
	})

	t.Run("create lists structural errors", func(t *testing.T) {
		doc := `{"name": "X", "states": [{"id": "a", "name": "A"}], "actions": []}`
		_, err := s.handleCreateDefinition(ctx, mcp.CallToolRequest{}, DefinitionArgs{Definition: doc})
		require.ErrorIs(t, err, domain.ErrValidationFailed)
		assert.Contains(t, err.Error(), "exactly one initial state")
	})
}

func TestMCP_DefinitionGraph(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	def, err := s.handleCreateDefinition(ctx, mcp.CallToolRequest{}, DefinitionArgs{Definition: articleYAML})
	require.NoError(t, err)
	inst, err := s.handleStartInstance(ctx, mcp.CallToolRequest{}, StartArgs{DefinitionID: def.ID})
	require.NoError(t, err)

	res, err := s.handleDefinitionGraph(ctx, callRequest("definition_graph", map[string]any{
		"definition_id": def.ID,
		"instance_id":   inst.ID,
	}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "graph TD")
	assert.Contains(t, text.Text, "class draft current")

	res, err = s.handleDefinitionGraph(ctx, callRequest("definition_graph", map[string]any{"definition_id": "missing"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleDefinitionGraph(ctx, callRequest("definition_graph", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestMCP_ListToolsOverJSONRPC(t *testing.T) {
	s := newTestServer(t)

	msg := s.mcpServer.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	var resp struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &resp))

	names := make([]string, 0, len(resp.Result.Tools))
	for _, tool := range resp.Result.Tools {
		names = append(names, tool.Name)
	}
	for _, want := range []string{
		"validate_definition", "create_definition", "list_definitions", "get_definition",
		"start_instance", "execute_action", "validate_action", "get_instance",
		"list_instances", "definition_graph",
	} {
		assert.Contains(t, names, want)
	}
}
