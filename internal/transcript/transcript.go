package transcript

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// Word is one transcribed word with its timing in milliseconds.
type Word struct {
	Text  string `json:"text"`
	Start int64  `json:"start"`
	End   int64  `json:"end"`
}

// Result is a completed transcription.
type Result struct {
	Words         []Word  `json:"words"`
	FullText      string  `json:"fullText"`
	AudioDuration float64 `json:"audioDuration"`
}

var (
	// ErrNoWords indicates the speech service completed without any words.
	ErrNoWords = errors.New("transcript contains no words")
	// ErrIncomplete indicates the transcript is missing its text or duration.
	ErrIncomplete = errors.New("transcript missing text or duration")
)

// Validate reports whether the transcript is usable for planning and alignment.
func (r Result) Validate() error {
	if len(r.Words) == 0 {
		return ErrNoWords
	}
	if strings.TrimSpace(r.FullText) == "" || r.AudioDuration <= 0 {
		return ErrIncomplete
	}
	return nil
}

// LastWordEnd returns the end of the final word in seconds, or 0 when empty.
func (r Result) LastWordEnd() float64 {
	if len(r.Words) == 0 {
		return 0
	}
	return float64(r.Words[len(r.Words)-1].End) / 1000
}

// Digest returns the cache key for an audio payload.
func Digest(audio []byte) string {
	sum := sha256.Sum256(audio)
	return hex.EncodeToString(sum[:])
}
