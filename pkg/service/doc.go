// Package service is the workflow orchestrator. It combines the pure engine with the
// definition and instance stores, serializes writes per entity and reports lifecycle
// events to hooks, a tracer and an optional event publisher.
package service
