// Package main implements the scenecast command-line interface.
//
// The CLI turns a narration recording into a timed scene plan: transcribe
// audio, ask the planner for scenes, align them to the transcript and edit
// the resulting plan file with propagating image edits. `scenecast serve`
// exposes the same session over the local HTTP API.
package main
