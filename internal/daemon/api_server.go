package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"scenecast/internal/api"
	"scenecast/internal/config"
	"scenecast/internal/logging"
	"scenecast/internal/scene"
	"scenecast/internal/services"
	"scenecast/internal/workflow"
)

const (
	maxAudioBytes   = 512 << 20
	maxJSONBodySize = 8 << 20
)

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	handler http.Handler

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logger,
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/session", srv.handleSession)
	mux.HandleFunc("/api/session/audio", srv.handleAudio)
	mux.HandleFunc("/api/session/instructions", srv.handleInstructions)
	mux.HandleFunc("/api/session/scenes/", srv.handleScene)
	mux.HandleFunc("/api/session/play", srv.handlePlay)
	mux.HandleFunc("/api/session/back", srv.handleBack)
	mux.HandleFunc("/api/session/reset", srv.handleReset)
	mux.HandleFunc("/api/session/active", srv.handleActive)

	srv.handler = srv.withRequestID(authMiddleware(cfg.Paths.APIToken, mux))
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("api bind address is empty")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	s.mu.Lock()
	server, listener := s.server, s.listener
	s.server, s.listener = nil, nil
	s.mu.Unlock()
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
	if listener != nil {
		_ = listener.Close()
	}
}

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := services.WithRequestID(r.Context(), id)
		logging.WithContext(ctx, s.log()).Debug("api request",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
		)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	deps := make([]api.DependencyStatus, len(status.Dependencies))
	for i, dep := range status.Dependencies {
		deps[i] = api.DependencyStatus{
			Name:      dep.Name,
			Available: dep.Passed,
			Detail:    dep.Detail,
		}
	}
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:             status.Running,
		PID:                 status.PID,
		LockFilePath:        status.LockFilePath,
		TranscriptCachePath: status.TranscriptCachePath,
		CachedTranscripts:   status.CachedTranscripts,
		SessionID:           status.Session.SessionID,
		SessionState:        string(status.Session.State),
		StartedAt:           api.FormatTime(status.StartedAt),
		Dependencies:        deps,
	})
}

func (s *apiServer) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeSession(w, http.StatusOK, s.daemon.session.Snapshot())
}

func (s *apiServer) handleAudio(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	audio, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxAudioBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("audio exceeds %d bytes", tooLarge.Limit))
			return
		}
		s.writeError(w, http.StatusBadRequest, "failed to read audio body")
		return
	}
	run, snap, err := s.daemon.session.StartTranscription(s.daemon.jobContext(), audio)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.dispatch(w, r, "transcription", run, snap)
}

func (s *apiServer) handleInstructions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.InstructionsRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	run, snap, err := s.daemon.session.StartPlanning(s.daemon.jobContext(), req.Instructions)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.dispatch(w, r, "planning", run, snap)
}

// dispatch runs an accepted step inline when the client asked to wait and in
// the background otherwise.
func (s *apiServer) dispatch(w http.ResponseWriter, r *http.Request, name string, run workflow.Step, accepted workflow.Snapshot) {
	if wantsWait(r) {
		snap, err := run()
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		s.writeSession(w, http.StatusOK, snap)
		return
	}
	s.daemon.runJob(name, func() error {
		_, err := run()
		return err
	})
	s.writeSession(w, http.StatusAccepted, accepted)
}

func (s *apiServer) handleScene(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/session/scenes/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "scene not found")
		return
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBodySize))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("read body: %v", err))
		return
	}
	var edited scene.Scene
	if err := json.Unmarshal(raw, &edited); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}
	if edited.ID == "" {
		edited.ID = id
	}
	if edited.ID != id {
		s.writeError(w, http.StatusBadRequest, "scene id in body does not match path")
		return
	}
	// Timing comes from alignment; an edit that omits it keeps the stored values.
	if stored, ok := s.daemon.session.SceneByID(id); ok {
		if !gjson.GetBytes(raw, "startTime").Exists() {
			edited.StartTime = stored.StartTime
		}
		if !gjson.GetBytes(raw, "endTime").Exists() {
			edited.EndTime = stored.EndTime
		}
	}
	snap, err := s.daemon.session.UpdateScene(edited)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeSession(w, http.StatusOK, snap)
}

func (s *apiServer) handlePlay(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.daemon.session.Play)
}

func (s *apiServer) handleBack(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.daemon.session.Back)
}

func (s *apiServer) handleReset(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, func() (workflow.Snapshot, error) {
		return s.daemon.session.Reset(), nil
	})
}

func (s *apiServer) handleTransition(w http.ResponseWriter, r *http.Request, fn func() (workflow.Snapshot, error)) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	snap, err := fn()
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeSession(w, http.StatusOK, snap)
}

func (s *apiServer) handleActive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	raw := strings.TrimSpace(r.URL.Query().Get("t"))
	if raw == "" {
		raw = "0"
	}
	t, err := strconv.ParseFloat(raw, 64)
	if err != nil || t < 0 {
		s.writeError(w, http.StatusBadRequest, "t must be a non-negative number of seconds")
		return
	}
	active, idx, err := s.daemon.session.ActiveAt(t)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ActiveScene{Time: t, Index: idx, Scene: active})
}

func wantsWait(r *http.Request) bool {
	value := strings.TrimSpace(r.URL.Query().Get("wait"))
	return value == "1" || strings.EqualFold(value, "true")
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, target any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodySize))
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func (s *apiServer) writeSession(w http.ResponseWriter, status int, snap workflow.Snapshot) {
	s.writeJSON(w, status, api.SessionResponse{Session: api.FromSnapshot(snap)})
}

func (s *apiServer) writeFailure(w http.ResponseWriter, err error) {
	s.writeError(w, api.HTTPStatus(err), services.UserMessage(err))
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String("component", "api-server"))
	}
	return logging.NewNop()
}
