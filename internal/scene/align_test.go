package scene

import (
	"bytes"
	"log/slog"
	"math"
	"strings"
	"testing"

	"scenecast/internal/transcript"
)

func words(entries ...any) []transcript.Word {
	out := make([]transcript.Word, 0, len(entries)/3)
	for i := 0; i+2 < len(entries); i += 3 {
		out = append(out, transcript.Word{
			Text:  entries[i].(string),
			Start: int64(entries[i+1].(int)),
			End:   int64(entries[i+2].(int)),
		})
	}
	return out
}

func textScenes(texts ...string) []Scene {
	out := make([]Scene, len(texts))
	for i, text := range texts {
		out[i] = Scene{ID: "scene-" + string(rune('a'+i)), TextSection: text}
	}
	return out
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func assertTiming(t *testing.T, s Scene, start, end float64) {
	t.Helper()
	if !approx(s.StartTime, start) || !approx(s.EndTime, end) {
		t.Fatalf("scene %s (%q): got [%v, %v], want [%v, %v]", s.ID, s.TextSection, s.StartTime, s.EndTime, start, end)
	}
}

func TestAlignMatchesAndFillsTail(t *testing.T) {
	w := words("the", 0, 500, "quick", 500, 900, "fox", 900, 1300)
	got := Align(textScenes("The Quick", "zzz unmatched"), w)
	if len(got) != 2 {
		t.Fatalf("expected 2 scenes, got %d", len(got))
	}
	assertTiming(t, got[0], 0.0, 0.9)
	assertTiming(t, got[1], 0.9, 1.3)
}

func TestAlignEmptyWordsReturnsInput(t *testing.T) {
	scenes := textScenes("anything")
	scenes[0].StartTime, scenes[0].EndTime = 4, 5
	got := Align(scenes, nil)
	if len(got) != 1 || &got[0] != &scenes[0] {
		t.Fatal("expected the input slice to be returned unchanged")
	}
	assertTiming(t, got[0], 4, 5)
}

func TestAlignCursorPreventsEarlierRepeatMatch(t *testing.T) {
	w := words("go", 0, 100, "now", 100, 200, "go", 200, 300, "now", 300, 400)
	got := Align(textScenes("Go now!", "go, now"), w)
	assertTiming(t, got[0], 0.0, 0.2)
	assertTiming(t, got[1], 0.2, 0.4)
}

func TestAlignFailedMatchLeavesCursor(t *testing.T) {
	w := words("one", 0, 100, "two", 100, 200, "three", 200, 300, "four", 300, 400)
	got := Align(textScenes("one", "missing words", "two three", "four"), w)
	assertTiming(t, got[0], 0.0, 0.1)
	assertTiming(t, got[2], 0.1, 0.3)
	assertTiming(t, got[3], 0.3, 0.4)
	// The unmatched scene sits between two touching matches.
	assertTiming(t, got[1], 0.1, 0.1)
}

func TestAlignPunctuationOnlySceneIsGapFilled(t *testing.T) {
	w := words("alpha", 0, 1000, "beta", 2000, 3000)
	got := Align(textScenes("Alpha.", "...!", "beta"), w)
	assertTiming(t, got[0], 0, 1)
	assertTiming(t, got[1], 1, 2)
	assertTiming(t, got[2], 2, 3)
}

func TestAlignLeadingRunStartsAtZero(t *testing.T) {
	w := words("intro", 0, 500, "alpha", 4000, 5000)
	got := Align(textScenes("nope", "also nope", "alpha"), w)
	assertTiming(t, got[0], 0, 2)
	assertTiming(t, got[1], 2, 4)
	assertTiming(t, got[2], 4, 5)
}

func TestAlignGapFillCoversWholeInterval(t *testing.T) {
	w := words("alpha", 0, 1000, "beta", 1000, 2000, "gamma", 2000, 3000, "delta", 3000, 4000)
	got := Align(textScenes("alpha", "x", "y", "z", "delta"), w)
	assertTiming(t, got[0], 0, 1)
	assertTiming(t, got[4], 3, 4)

	var total float64
	for i := 1; i <= 3; i++ {
		if !approx(got[i].Duration(), 2.0/3.0) {
			t.Fatalf("scene %d: expected equal share, got %v", i, got[i].Duration())
		}
		if i > 1 && !approx(got[i].StartTime, got[i-1].EndTime) {
			t.Fatalf("scene %d does not start where scene %d ends", i, i-1)
		}
		total += got[i].Duration()
	}
	if !approx(total, 2) {
		t.Fatalf("expected run to cover 2s, got %v", total)
	}
}

func TestAlignAllUnmatchedSpansAudio(t *testing.T) {
	w := words("a", 0, 1000, "b", 1000, 3000)
	got := Align(textScenes("x", "y", "z"), w)
	assertTiming(t, got[0], 0, 1)
	assertTiming(t, got[1], 1, 2)
	assertTiming(t, got[2], 2, 3)
}

func TestAlignMatchedScenesAreMonotonic(t *testing.T) {
	w := words(
		"we", 0, 200, "start", 200, 600, "here", 600, 900,
		"and", 900, 1000, "we", 1000, 1200, "start", 1200, 1500,
		"again", 1500, 2000,
	)
	got := Align(textScenes("we start", "here", "we start", "again", "we start"), w)
	var lastEnd float64
	for i, s := range got {
		if s.StartTime < lastEnd-1e-9 {
			t.Fatalf("scene %d starts at %v before previous end %v", i, s.StartTime, lastEnd)
		}
		if s.StartTime > s.EndTime {
			t.Fatalf("scene %d has start after end", i)
		}
		lastEnd = s.EndTime
	}
	assertTiming(t, got[2], 1.0, 1.5)
	// Third "we start" has nothing left to match; it takes the tail.
	assertTiming(t, got[4], 2.0, 2.0)
}

func TestAlignIsIdempotent(t *testing.T) {
	w := words("the", 0, 500, "quick", 500, 900, "brown", 900, 1200, "fox", 1200, 1600)
	first := Align(textScenes("the quick", "brown fox"), w)
	second := Align(first, w)
	for i := range first {
		if first[i].StartTime != second[i].StartTime || first[i].EndTime != second[i].EndTime {
			t.Fatalf("scene %d changed on re-alignment: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestAlignDoesNotMutateInput(t *testing.T) {
	w := words("hello", 0, 400)
	scenes := textScenes("hello", "missing")
	scenes[0].Images = []ImageElement{{ID: "img-1", Query: "q", Type: ImageSearch}}
	got := Align(scenes, w)
	if scenes[0].StartTime != 0 || scenes[1].StartTime != 0 {
		t.Fatalf("input timings were modified: %+v", scenes)
	}
	got[0].Images[0].URL = "changed"
	if scenes[0].Images[0].URL != "" {
		t.Fatal("result shares image storage with input")
	}
}

func TestAlignLogsUnmatchedScenes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	w := words("hello", 0, 400)
	Align(textScenes("hello", "never spoken"), w, WithLogger(logger))
	out := buf.String()
	if !strings.Contains(out, "scene_unmatched") || !strings.Contains(out, "never spoken") {
		t.Fatalf("expected unmatched diagnostic, got %q", out)
	}
	if strings.Count(out, "scene_unmatched") != 1 {
		t.Fatalf("expected exactly one diagnostic, got %q", out)
	}
}
