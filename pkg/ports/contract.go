package ports

import (
	"context"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/stateflow/pkg/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contractTime is truncated to microseconds so SQL backends round-trip it exactly.
func contractTime(offset time.Duration) time.Time {
	return time.Now().UTC().Truncate(time.Microsecond).Add(offset)
}

func contractDefinition(createdAt time.Time) *domain.Definition {
	id := uuid.NewString()
	return &domain.Definition{
		ID:          id,
		Name:        "Contract-" + id,
		Description: "contract test definition",
		States: []domain.State{
			{ID: "open", Name: "Open", IsInitial: true},
			{ID: "closed", Name: "Closed", IsFinal: true, Description: "done"},
		},
		Actions: []domain.Action{
			{ID: "close", Name: "Close", FromStates: []string{"open"}, ToState: "closed", Enabled: true},
		},
		CreatedAt: createdAt,
	}
}

func definitionIDs(defs []*domain.Definition) []string {
	ids := make([]string, 0, len(defs))
	for _, d := range defs {
		ids = append(ids, d.ID)
	}
	return ids
}

func instanceIDs(insts []*domain.Instance) []string {
	ids := make([]string, 0, len(insts))
	for _, i := range insts {
		ids = append(ids, i.ID)
	}
	return ids
}

// RunDefinitionStoreContract runs a suite of tests to verify that a DefinitionStore implementation
// adheres to the defined interface contract.
func RunDefinitionStoreContract(t *testing.T, store DefinitionStore) {
	ctx := context.Background()

	t.Run("Save and Load", func(t *testing.T) {
		def := contractDefinition(contractTime(0))

		err := store.Save(ctx, def)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, def.ID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, def.ID, loaded.ID)
		assert.Equal(t, def.Name, loaded.Name)
		assert.Equal(t, def.Description, loaded.Description)
		assert.Equal(t, def.States, loaded.States)
		assert.Equal(t, def.Actions, loaded.Actions)
		assert.True(t, def.CreatedAt.Equal(loaded.CreatedAt), "CreatedAt should round-trip")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrDefinitionNotFound)
	})

	t.Run("ExistsByName Ignores Case", func(t *testing.T) {
		def := contractDefinition(contractTime(0))
		require.NoError(t, store.Save(ctx, def))

		exists, err := store.ExistsByName(ctx, strings.ToUpper(def.Name))
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = store.ExistsByName(ctx, "missing-"+uuid.NewString())
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("Save Replaces", func(t *testing.T) {
		def := contractDefinition(contractTime(0))
		require.NoError(t, store.Save(ctx, def))

		def.Description = "updated"
		require.NoError(t, store.Save(ctx, def))

		loaded, err := store.Load(ctx, def.ID)
		require.NoError(t, err)
		assert.Equal(t, "updated", loaded.Description)

		all, err := store.List(ctx)
		require.NoError(t, err)
		count := 0
		for _, id := range definitionIDs(all) {
			if id == def.ID {
				count++
			}
		}
		assert.Equal(t, 1, count, "List should not duplicate a re-saved definition")
	})

	t.Run("List Oldest First", func(t *testing.T) {
		older := contractDefinition(contractTime(-time.Hour))
		newer := contractDefinition(contractTime(0))
		require.NoError(t, store.Save(ctx, newer))
		require.NoError(t, store.Save(ctx, older))

		all, err := store.List(ctx)
		require.NoError(t, err)
		ids := definitionIDs(all)
		assert.Contains(t, ids, older.ID)
		assert.Contains(t, ids, newer.ID)
		assert.Less(t, slices.Index(ids, older.ID), slices.Index(ids, newer.ID))
	})

	t.Run("Loaded Values Are Independent", func(t *testing.T) {
		def := contractDefinition(contractTime(0))
		require.NoError(t, store.Save(ctx, def))

		loaded, err := store.Load(ctx, def.ID)
		require.NoError(t, err)
		loaded.States[0].Name = "mutated"
		loaded.Actions[0].FromStates[0] = "mutated"

		again, err := store.Load(ctx, def.ID)
		require.NoError(t, err)
		assert.Equal(t, "Open", again.States[0].Name)
		assert.Equal(t, "open", again.Actions[0].FromStates[0])
	})
}

// RunInstanceStoreContract runs a suite of tests to verify that an InstanceStore implementation
// adheres to the defined interface contract.
func RunInstanceStoreContract(t *testing.T, store InstanceStore) {
	ctx := context.Background()

	t.Run("Save and Load", func(t *testing.T) {
		now := contractTime(0)
		inst := domain.NewInstance(uuid.NewString(), uuid.NewString(), "open", now)

		err := store.Save(ctx, inst)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, inst.ID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, inst.DefinitionID, loaded.DefinitionID)
		assert.Equal(t, "open", loaded.CurrentStateID)
		assert.Empty(t, loaded.History)
		assert.True(t, now.Equal(loaded.CreatedAt))
		assert.True(t, now.Equal(loaded.LastUpdated))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrInstanceNotFound)
	})

	t.Run("Save Replaces And Keeps History", func(t *testing.T) {
		now := contractTime(0)
		inst := domain.NewInstance(uuid.NewString(), uuid.NewString(), "open", now)
		require.NoError(t, store.Save(ctx, inst))

		later := now.Add(time.Second)
		inst.CurrentStateID = "closed"
		inst.LastUpdated = later
		inst.History = append(inst.History, domain.ActionHistory{
			ActionID: "close", ActionName: "Close", FromStateID: "open", ToStateID: "closed", ExecutedAt: later,
		})
		require.NoError(t, store.Save(ctx, inst))

		loaded, err := store.Load(ctx, inst.ID)
		require.NoError(t, err)
		assert.Equal(t, "closed", loaded.CurrentStateID)
		require.Len(t, loaded.History, 1)
		assert.Equal(t, "close", loaded.History[0].ActionID)
		assert.Equal(t, "open", loaded.History[0].FromStateID)
		assert.True(t, later.Equal(loaded.History[0].ExecutedAt))
		assert.True(t, later.Equal(loaded.LastUpdated))
	})

	t.Run("List and ListByDefinition", func(t *testing.T) {
		defA, defB := uuid.NewString(), uuid.NewString()
		a1 := domain.NewInstance(uuid.NewString(), defA, "open", contractTime(-2*time.Minute))
		a2 := domain.NewInstance(uuid.NewString(), defA, "open", contractTime(-time.Minute))
		b1 := domain.NewInstance(uuid.NewString(), defB, "open", contractTime(0))
		for _, inst := range []*domain.Instance{a2, b1, a1} {
			require.NoError(t, store.Save(ctx, inst))
		}

		all, err := store.List(ctx)
		require.NoError(t, err)
		ids := instanceIDs(all)
		assert.Contains(t, ids, a1.ID)
		assert.Contains(t, ids, a2.ID)
		assert.Contains(t, ids, b1.ID)

		byA, err := store.ListByDefinition(ctx, defA)
		require.NoError(t, err)
		assert.Equal(t, []string{a1.ID, a2.ID}, instanceIDs(byA))

		none, err := store.ListByDefinition(ctx, "unknown-"+uuid.NewString())
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("Loaded Values Are Independent", func(t *testing.T) {
		inst := domain.NewInstance(uuid.NewString(), uuid.NewString(), "open", contractTime(0))
		inst.History = append(inst.History, domain.ActionHistory{ActionID: "close"})
		require.NoError(t, store.Save(ctx, inst))

		inst.History[0].ActionID = "mutated-after-save"

		loaded, err := store.Load(ctx, inst.ID)
		require.NoError(t, err)
		assert.Equal(t, "close", loaded.History[0].ActionID)
	})
}
