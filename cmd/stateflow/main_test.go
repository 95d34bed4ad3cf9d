package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/stateflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orderYAML = `name: Order
description: purchase order
states:
  - id: placed
    name: Placed
    isInitial: true
  - id: shipped
    name: Shipped
  - id: delivered
    name: Delivered
    isFinal: true
actions:
  - id: ship
    name: Ship
    fromStates: [placed]
    toState: shipped
  - id: deliver
    name: Deliver
    fromStates: [shipped]
    toState: delivered
`

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "stateflow version "))
}

func TestValidateCommand(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		out, _, err := run(t, "validate", writeFile(t, "order.yaml", orderYAML))
		require.NoError(t, err)
		assert.Contains(t, out, "Definition 'Order' is valid: 3 states, 2 actions")
	})

	t.Run("structurally invalid", func(t *testing.T) {
		broken := strings.Replace(orderYAML, "toState: delivered", "toState: lost", 1)
		_, errOut, err := run(t, "validate", writeFile(t, "order.yaml", broken))
		require.ErrorIs(t, err, errInvalidDefinition)
		assert.Contains(t, errOut, "'lost'")
	})

	t.Run("shape invalid", func(t *testing.T) {
		_, errOut, err := run(t, "validate", writeFile(t, "order.json", `{"states": []}`))
		require.ErrorIs(t, err, errInvalidDefinition)
		assert.Contains(t, errOut, "Validation failed")
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, _, err := run(t, "validate", writeFile(t, "order.txt", orderYAML))
		assert.Error(t, err)
	})
}

func TestGraphCommand(t *testing.T) {
	out, _, err := run(t, "graph", writeFile(t, "order.yaml", orderYAML))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "graph TD"))
	assert.Contains(t, out, `placed -- "Ship" --> shipped`)
}

func TestDefinitionAndInstanceCommands_FileStorage(t *testing.T) {
	dir := t.TempDir()
	storage := []string{"--storage", "file", "--dir", dir}

	out, _, err := run(t, append([]string{"definition", "create", writeFile(t, "order.yaml", orderYAML), "--json"}, storage...)...)
	require.NoError(t, err)
	var def domain.Definition
	require.NoError(t, json.Unmarshal([]byte(out), &def))
	assert.Equal(t, "Order", def.Name)

	_, _, err = run(t, append([]string{"definition", "create", writeFile(t, "order.yaml", orderYAML), "--json"}, storage...)...)
	assert.ErrorIs(t, err, domain.ErrDuplicateName)

	out, _, err = run(t, append([]string{"instance", "start", def.ID, "--json"}, storage...)...)
	require.NoError(t, err)
	var inst domain.Instance
	require.NoError(t, json.Unmarshal([]byte(out), &inst))
	assert.Equal(t, "placed", inst.CurrentStateID)

	out, _, err = run(t, append([]string{"instance", "exec", inst.ID, "ship", "--json"}, storage...)...)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &inst))
	assert.Equal(t, "shipped", inst.CurrentStateID)

	_, _, err = run(t, append([]string{"instance", "exec", inst.ID, "ship", "--json"}, storage...)...)
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)

	out, _, err = run(t, append([]string{"instance", "ls", "--definition", def.ID, "--json"}, storage...)...)
	require.NoError(t, err)
	var insts []domain.Instance
	require.NoError(t, json.Unmarshal([]byte(out), &insts))
	assert.Len(t, insts, 1)

	out, _, err = run(t, append([]string{"definition", "graph", def.ID, "--instance", inst.ID}, storage...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "class shipped current")
}

func TestEphemeralStorageWarning(t *testing.T) {
	_, stderr, err := run(t, "definition", "list", "--json", "--storage", "memory")
	require.NoError(t, err)
	assert.Contains(t, stderr, ">>> memory storage does not persist between invocations")

	_, stderr, err = run(t, "definition", "list", "--json", "--storage", "file", "--dir", t.TempDir())
	require.NoError(t, err)
	assert.NotContains(t, stderr, "memory storage")
}
