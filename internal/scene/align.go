package scene

import (
	"log/slog"
	"slices"

	"scenecast/internal/logging"
	"scenecast/internal/textutil"
	"scenecast/internal/transcript"
)

// AlignOption customizes Align.
type AlignOption func(*alignConfig)

type alignConfig struct {
	logger *slog.Logger
}

// WithLogger receives a diagnostic warning for every scene whose text could not
// be located in the transcript.
func WithLogger(logger *slog.Logger) AlignOption {
	return func(c *alignConfig) {
		c.logger = logger
	}
}

// alignCursor is the matching state threaded through the scene fold. next only
// ever advances, so no scene can match transcript material that precedes an
// earlier match.
type alignCursor struct {
	next int
}

// Align assigns StartTime/EndTime (seconds) to every scene by locating its
// normalized text in the normalized transcript words. Scenes that cannot be
// located share the gap between their matched neighbours evenly. The input
// slice is returned untouched when words is empty.
func Align(scenes []Scene, words []transcript.Word, opts ...AlignOption) []Scene {
	if len(words) == 0 {
		return scenes
	}
	cfg := alignConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = logging.NewNop()
	}

	normalized := make([]string, len(words))
	for i, w := range words {
		normalized[i] = textutil.NormalizeScript(w.Text)
	}

	timed := make([]Scene, len(scenes))
	cursor := alignCursor{}
	for i, s := range scenes {
		timed[i] = s.clone()
		var start, end int
		var ok bool
		start, end, cursor, ok = cursor.match(normalized, textutil.ScriptTokens(s.TextSection))
		if !ok {
			timed[i].StartTime, timed[i].EndTime = Unresolved, Unresolved
			logging.WarnWithContext(logger, "scene text not found in transcript", "scene_unmatched",
				logging.String("scene_id", s.ID),
				logging.Int("scene_index", i),
				logging.String("text_section", s.TextSection),
				logging.String(logging.FieldImpact, "scene timing will be estimated from neighbouring scenes"),
				logging.String(logging.FieldErrorHint, "planner text should be a literal phrase from the transcript"),
			)
			continue
		}
		timed[i].StartTime = float64(words[start].Start) / 1000
		timed[i].EndTime = float64(words[end].End) / 1000
	}

	fillGaps(timed, float64(words[len(words)-1].End)/1000)
	return timed
}

// match finds the earliest contiguous run of words equal to tokens at or after
// the cursor. On success it returns the inclusive word span and the advanced
// cursor; on failure the cursor is returned unchanged.
func (c alignCursor) match(words, tokens []string) (int, int, alignCursor, bool) {
	if len(tokens) == 0 {
		return 0, 0, c, false
	}
	for i := c.next; i+len(tokens) <= len(words); i++ {
		if slices.Equal(words[i:i+len(tokens)], tokens) {
			end := i + len(tokens) - 1
			return i, end, alignCursor{next: end + 1}, true
		}
	}
	return 0, 0, c, false
}

// fillGaps times every maximal run of unresolved scenes by splitting the
// interval between the surrounding matched scenes. A run with no matched
// predecessor starts at 0; a run with no matched successor ends at audioEnd.
func fillGaps(scenes []Scene, audioEnd float64) {
	for i := 0; i < len(scenes); {
		if scenes[i].Matched() {
			i++
			continue
		}
		runEnd := i
		for runEnd < len(scenes) && !scenes[runEnd].Matched() {
			runEnd++
		}

		prevEnd := 0.0
		if i > 0 {
			prevEnd = scenes[i-1].EndTime
		}
		nextStart := audioEnd
		if runEnd < len(scenes) {
			nextStart = scenes[runEnd].StartTime
		}

		count := runEnd - i
		step := (nextStart - prevEnd) / float64(count)
		for k := 0; k < count; k++ {
			scenes[i+k].StartTime = prevEnd + float64(k)*step
			scenes[i+k].EndTime = prevEnd + float64(k+1)*step
		}
		scenes[runEnd-1].EndTime = nextStart
		i = runEnd
	}
}
