package postgres_test

import (
	"context"
	"os"
	"testing"

	"github.com/aretw0/stateflow/pkg/adapters/postgres"
	"github.com/aretw0/stateflow/pkg/ports"
	"github.com/stretchr/testify/require"
)

var (
	_ ports.DefinitionStore = (*postgres.DefinitionStore)(nil)
	_ ports.InstanceStore   = (*postgres.InstanceStore)(nil)
)

// Set STATEFLOW_POSTGRES_DSN to run the contract against a live database.
func TestPostgresStore_Contract(t *testing.T) {
	dsn := os.Getenv("STATEFLOW_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("STATEFLOW_POSTGRES_DSN not set")
	}

	db, err := postgres.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = postgres.Close(db) })
	require.NoError(t, postgres.Migrate(context.Background(), db))

	t.Run("Definitions", func(t *testing.T) {
		ports.RunDefinitionStoreContract(t, postgres.NewDefinitionStore(db))
	})
	t.Run("Instances", func(t *testing.T) {
		ports.RunInstanceStoreContract(t, postgres.NewInstanceStore(db))
	})
}
