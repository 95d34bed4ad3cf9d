/*
Package ports defines the driven ports (interfaces) of the stateflow orchestrator.

These interfaces decouple the orchestrator from external implementations, allowing
definitions and instances to live in memory, on disk, in Redis or in PostgreSQL.

# Key Interfaces

  - DefinitionStore: Persists accepted workflow definitions and answers name lookups.
  - InstanceStore: Persists workflow instances and lists them per definition.
  - DistributedLocker: Provides distributed locking for concurrent instance access across replicas.
  - EventPublisher: Broadcasts lifecycle events to other processes.

RunDefinitionStoreContract and RunInstanceStoreContract verify any implementation.
*/
package ports
