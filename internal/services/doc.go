// Package services defines shared utilities consumed by the workflow session
// and the external integrations it drives.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper, and UserMessage which
//     reduces a wrapped failure to the single line shown to the user.
//
// Use these helpers when wiring collaborators so error handling and
// observability stay uniform across the workflow.
package services
