// Package workflow owns the interactive scenecast session: upload audio, get a
// transcript, submit visual instructions, edit the aligned scene list and play
// it back.
//
// A Session is a small state machine guarded by a mutex so the HTTP surface
// and the CLI can drive it. Collaborator calls (transcription, planning) run
// without the lock held; their results are applied only if the session was not
// reset in the meantime. A failed step rolls the session back to the state it
// started from and records a single user-facing error message.
package workflow
