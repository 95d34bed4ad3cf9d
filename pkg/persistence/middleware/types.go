// Package middleware decorates the storage ports with cross-cutting behaviour.
package middleware

import "github.com/aretw0/stateflow/pkg/ports"

// DefinitionMiddleware wraps a DefinitionStore to add behavior.
type DefinitionMiddleware func(ports.DefinitionStore) ports.DefinitionStore

// InstanceMiddleware wraps an InstanceStore to add behavior.
type InstanceMiddleware func(ports.InstanceStore) ports.InstanceStore

// ChainDefinitions applies mws so that the first one is the outermost.
func ChainDefinitions(store ports.DefinitionStore, mws ...DefinitionMiddleware) ports.DefinitionStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}

// ChainInstances applies mws so that the first one is the outermost.
func ChainInstances(store ports.InstanceStore, mws ...InstanceMiddleware) ports.InstanceStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
