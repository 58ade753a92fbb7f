// Package daemon coordinates the long-running scenecast server.
//
// It wires configuration, the transcript cache and the workflow session into a
// single lifecycle with flock-based locking to prevent multiple instances, and
// exposes the session over a local JSON HTTP API. Collaborator calls started
// through the API run in the background under the daemon's context so a slow
// transcription never holds an HTTP request open; clients poll
// GET /api/session for the outcome.
//
// Keep orchestration logic here: session rules live in internal/workflow and
// wire types in internal/api.
package daemon
