package testsupport

import (
	"testing"

	"scenecast/internal/config"
	"scenecast/internal/transcript"
)

// MustOpenCache opens the transcript cache for tests and registers cleanup.
func MustOpenCache(t testing.TB, cfg *config.Config) *transcript.Cache {
	t.Helper()

	cache, err := transcript.OpenCache(cfg.TranscriptCachePath())
	if err != nil {
		t.Fatalf("transcript.OpenCache: %v", err)
	}
	t.Cleanup(func() {
		cache.Close()
	})
	return cache
}
