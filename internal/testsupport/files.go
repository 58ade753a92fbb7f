package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"scenecast/internal/scene"
	"scenecast/internal/transcript"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = 0x42
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteJSON encodes v into path.
func WriteJSON(t testing.TB, path string, v any) {
	t.Helper()

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// SampleTranscript returns a three-sentence transcript with millisecond
// timings.
func SampleTranscript() transcript.Result {
	return transcript.Result{
		Words: []transcript.Word{
			{Text: "Welcome", Start: 0, End: 400},
			{Text: "back.", Start: 400, End: 800},
			{Text: "Today", Start: 1000, End: 1300},
			{Text: "we", Start: 1300, End: 1450},
			{Text: "cook", Start: 1450, End: 1800},
			{Text: "pasta.", Start: 1800, End: 2300},
			{Text: "Enjoy!", Start: 2600, End: 3000},
		},
		FullText:      "Welcome back. Today we cook pasta. Enjoy!",
		AudioDuration: 3.2,
	}
}

// SampleScenes returns an unaligned plan matching SampleTranscript. The chef
// image recurs in the second and third scenes with copyFromPrevious set.
func SampleScenes() []scene.Scene {
	chef := func(id string, copyPrev bool) scene.ImageElement {
		return scene.ImageElement{
			ID:               id,
			Type:             scene.ImageAIGenerated,
			Query:            "a cheerful chef",
			InitialPosition:  scene.PositionCenter,
			Transform:        scene.DefaultTransform(),
			CopyFromPrevious: copyPrev,
		}
	}
	return []scene.Scene{
		{ID: "scene-1", TextSection: "Welcome back", Background: "#111827", Images: []scene.ImageElement{}},
		{ID: "scene-2", TextSection: "today we cook pasta", Background: "white", Images: []scene.ImageElement{chef("img-1", false)}},
		{ID: "scene-3", TextSection: "enjoy", Background: "white", Images: []scene.ImageElement{chef("img-2", true)}},
	}
}
