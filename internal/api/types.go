package api

import "scenecast/internal/scene"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// TranscriptView summarizes the session transcript.
type TranscriptView struct {
	WordCount     int     `json:"wordCount"`
	FullText      string  `json:"fullText"`
	AudioDuration float64 `json:"audioDuration"`
	Cached        bool    `json:"cached"`
}

// SessionView describes the editing session in a transport-friendly format.
type SessionView struct {
	SessionID     string          `json:"sessionId"`
	State         string          `json:"state"`
	Busy          bool            `json:"busy"`
	LastError     string          `json:"lastError,omitempty"`
	Transcript    *TranscriptView `json:"transcript,omitempty"`
	Instructions  string          `json:"instructions,omitempty"`
	SceneCount    int             `json:"sceneCount"`
	TotalDuration float64         `json:"totalDuration"`
	Scenes        []scene.Scene   `json:"scenes"`
	UpdatedAt     string          `json:"updatedAt,omitempty"`
}

// SessionResponse wraps a session view.
type SessionResponse struct {
	Session SessionView `json:"session"`
}

// InstructionsRequest is the body of POST /api/session/instructions.
type InstructionsRequest struct {
	Instructions string `json:"instructions"`
}

// ActiveScene reports the scene on screen at a playback time.
type ActiveScene struct {
	Time  float64     `json:"time"`
	Index int         `json:"index"`
	Scene scene.Scene `json:"scene"`
}

// DependencyStatus captures availability of an external collaborator.
type DependencyStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

// DaemonStatus aggregates server runtime information for API consumers.
type DaemonStatus struct {
	Running             bool               `json:"running"`
	PID                 int                `json:"pid"`
	LockFilePath        string             `json:"lockFilePath"`
	TranscriptCachePath string             `json:"transcriptCachePath,omitempty"`
	CachedTranscripts   int                `json:"cachedTranscripts"`
	SessionID           string             `json:"sessionId"`
	SessionState        string             `json:"sessionState"`
	StartedAt           string             `json:"startedAt,omitempty"`
	Dependencies        []DependencyStatus `json:"dependencies"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
