// Package scene holds the scene plan model and the two algorithms that shape it.
//
// Align attaches start/end times to planner scenes by matching each scene's
// text against the word-level transcript with a single forward cursor, then
// spreads any unmatched runs evenly across the gaps between matched scenes.
//
// ApplyEdit replaces one scene in a plan and ripples the edit to other scenes
// that show the same visual concept, identified by PropagationKey (query plus
// image type). Resolved image URLs spread to every other scene; transform
// changes spread forward only through images marked CopyFromPrevious and stop
// at the first image of the same concept that is positioned manually.
//
// Both functions are pure: they never mutate their inputs, never fail, and
// return a fresh slice. The package also provides playback selection
// (ActiveAt) and plan export helpers (JSON, YAML, SRT).
package scene
