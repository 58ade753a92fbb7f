package logging

import "strings"

// StatusSampler suppresses repeated poll-status logs. A line is emitted when
// the status changes, and otherwise once every `every` identical polls so long
// waits still show signs of life.
type StatusSampler struct {
	every   int
	last    string
	repeats int
}

// NewStatusSampler constructs a sampler. every <= 0 emits only on change.
func NewStatusSampler(every int) *StatusSampler {
	return &StatusSampler{every: every}
}

// ShouldLog reports whether a poll observing status should be logged.
func (s *StatusSampler) ShouldLog(status string) bool {
	if s == nil {
		return true
	}
	status = strings.ToLower(strings.TrimSpace(status))
	if status != s.last {
		s.last = status
		s.repeats = 0
		return true
	}
	s.repeats++
	if s.every > 0 && s.repeats%s.every == 0 {
		return true
	}
	return false
}

// Reset clears the sampler state (e.g. when a new job starts).
func (s *StatusSampler) Reset() {
	if s == nil {
		return
	}
	s.last = ""
	s.repeats = 0
}
