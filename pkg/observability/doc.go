/*
Package observability provides tools for monitoring the stateflow orchestrator.

Metrics exposes Prometheus counters driven by the orchestrator's lifecycle hooks,
and SetupTracing installs an OpenTelemetry tracer provider exporting spans over OTLP/HTTP.
*/
package observability
