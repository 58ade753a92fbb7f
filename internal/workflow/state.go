package workflow

import (
	"errors"
	"time"

	"scenecast/internal/scene"
)

// State is the session's position in the upload, plan, edit and play cycle.
type State string

const (
	StateInitial              State = "initial"
	StateUploading            State = "uploading"
	StateTranscribing         State = "transcribing"
	StateAwaitingInstructions State = "awaiting_instructions"
	StateGeneratingPlan       State = "generating_plan"
	StateEditing              State = "editing"
	StatePlaying              State = "playing"
)

// Busy reports whether a collaborator call is in flight.
func (s State) Busy() bool {
	switch s {
	case StateUploading, StateTranscribing, StateGeneratingPlan:
		return true
	default:
		return false
	}
}

var (
	// ErrInvalidState indicates the action is not allowed in the current state.
	ErrInvalidState = errors.New("action not allowed in current state")
	// ErrSceneNotFound indicates playback was requested with no scenes.
	ErrSceneNotFound = errors.New("scene not found")
	// ErrSuperseded indicates the session was reset while a call was in flight.
	ErrSuperseded = errors.New("session was reset while the operation was running")
)

// TranscriptSummary describes the transcript held by the session.
type TranscriptSummary struct {
	WordCount     int     `json:"wordCount"`
	FullText      string  `json:"fullText"`
	AudioDuration float64 `json:"audioDuration"`
	Cached        bool    `json:"cached"`
}

// Snapshot is a copy of the session state safe to hand to callers.
type Snapshot struct {
	SessionID     string             `json:"sessionId"`
	State         State              `json:"state"`
	LastError     string             `json:"lastError,omitempty"`
	Transcript    *TranscriptSummary `json:"transcript,omitempty"`
	Instructions  string             `json:"instructions,omitempty"`
	Scenes        []scene.Scene      `json:"scenes"`
	TotalDuration float64            `json:"totalDuration"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}
