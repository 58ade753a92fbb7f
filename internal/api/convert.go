package api

import (
	"errors"
	"net/http"
	"time"

	"scenecast/internal/scene"
	"scenecast/internal/services"
	"scenecast/internal/workflow"
)

// FromSnapshot converts a workflow snapshot into its wire form.
func FromSnapshot(snap workflow.Snapshot) SessionView {
	view := SessionView{
		SessionID:     snap.SessionID,
		State:         string(snap.State),
		Busy:          snap.State.Busy(),
		LastError:     snap.LastError,
		Instructions:  snap.Instructions,
		SceneCount:    len(snap.Scenes),
		TotalDuration: snap.TotalDuration,
		Scenes:        snap.Scenes,
		UpdatedAt:     FormatTime(snap.UpdatedAt),
	}
	if view.Scenes == nil {
		view.Scenes = []scene.Scene{}
	}
	if snap.Transcript != nil {
		view.Transcript = &TranscriptView{
			WordCount:     snap.Transcript.WordCount,
			FullText:      snap.Transcript.FullText,
			AudioDuration: snap.Transcript.AudioDuration,
			Cached:        snap.Transcript.Cached,
		}
	}
	return view
}

// FormatTime renders t for API payloads, or "" for the zero time.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// HTTPStatus maps a classified error to a response code.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, workflow.ErrInvalidState), errors.Is(err, workflow.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrConfiguration):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrExternalTool), errors.Is(err, services.ErrTimeout):
		return http.StatusBadGateway
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
