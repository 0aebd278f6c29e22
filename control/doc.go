// Package control
//
// Settings repair-and-freeze, runtime metrics, and debug introspection
// layer for the simulation core.
//
// Provides concurrent-safe state handling primitives including:
//   - Repaired settings snapshots with change listeners
//   - Metrics telemetry contracts
//   - State export, debug hooks, and probe registration
//
// Platform probes are build-tag-partitioned: RegisterPlatformProbes is
// defined for Linux and Windows only, so the package does not build on
// other platforms.
package control
