// Package planner asks the configured LLM to break a narration transcript
// into visual scenes according to free-form editing instructions.
//
// The model is asked for literal script phrases so scene.Align can place each
// scene on the transcript afterwards. Generate only shapes the raw records into
// scene.Scene values (fresh ids, default transforms, zero timing); it never
// aligns.
package planner
