// Package api defines wire-format types and converters for the local HTTP
// API. It translates workflow snapshots and scene values into transport DTOs
// so clients can render a session without importing internal packages.
//
// # Key Types
//
// SessionView: session state, last error, transcript summary and the scene list.
//
// DaemonStatus: server runtime information plus the current session state.
//
// ActiveScene: the scene on screen at a playback time.
//
// # Converters
//
// FromSnapshot: workflow.Snapshot -> SessionView.
//
// HTTPStatus: maps classified errors to response codes.
//
// # Design Notes
//
// DTOs use camelCase JSON tags, matching the scene wire names. Timestamps use
// RFC3339 with milliseconds.
package api
