package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"scenecast/internal/logging"
	"scenecast/internal/scene"
	"scenecast/internal/services"
	"scenecast/internal/services/assemblyai"
	"scenecast/internal/transcript"
)

// Transcriber produces word-level transcripts. *assemblyai.Client satisfies it.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, onStatus func(assemblyai.Status)) (transcript.Result, error)
}

// Planner produces unaligned scenes. *planner.Planner satisfies it.
type Planner interface {
	Generate(ctx context.Context, fullText, instructions string) ([]scene.Scene, error)
}

// TranscriptCache stores transcripts by audio digest. *transcript.Cache satisfies it.
type TranscriptCache interface {
	Get(ctx context.Context, digest string) (*transcript.Result, bool, error)
	Put(ctx context.Context, digest string, result transcript.Result) error
}

// Session drives one editing session.
type Session struct {
	transcriber Transcriber
	planner     Planner
	cache       TranscriptCache
	logger      *slog.Logger
	now         func() time.Time

	mu           sync.Mutex
	id           string
	state        State
	lastErr      string
	result       *transcript.Result
	cached       bool
	instructions string
	scenes       []scene.Scene
	epoch        uint64
	cancel       context.CancelFunc
	updatedAt    time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithTranscriptCache consults cache before calling the transcriber.
func WithTranscriptCache(cache TranscriptCache) Option {
	return func(s *Session) {
		s.cache = cache
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSession constructs a session in the initial state.
func NewSession(transcriber Transcriber, planner Planner, opts ...Option) *Session {
	s := &Session{
		transcriber: transcriber,
		planner:     planner,
		logger:      logging.NewNop(),
		now:         time.Now,
		state:       StateInitial,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "workflow")
	s.id = uuid.NewString()
	s.updatedAt = s.now()
	return s
}

// ID returns the current session identifier. Reset assigns a new one.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns a deep copy of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Step performs an accepted collaborator call and applies its outcome. It
// must be called exactly once.
type Step func() (Snapshot, error)

// Transcribe uploads audio (or reuses a cached transcript for identical audio)
// and moves the session to awaiting_instructions. Failure returns to initial.
func (s *Session) Transcribe(ctx context.Context, audio []byte) (Snapshot, error) {
	run, snap, err := s.StartTranscription(ctx, audio)
	if err != nil {
		return snap, err
	}
	return run()
}

// StartTranscription validates the request and moves the session to
// uploading. The returned Step performs the transcription.
func (s *Session) StartTranscription(ctx context.Context, audio []byte) (Step, Snapshot, error) {
	if len(audio) == 0 {
		return nil, s.Snapshot(), services.Wrap(services.ErrValidation, "transcription", "transcribe", "audio file is empty", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInitial {
		return nil, s.snapshotLocked(), s.invalidStateLocked("transcribe")
	}
	if s.transcriber == nil {
		return nil, s.snapshotLocked(), services.Wrap(services.ErrConfiguration, "transcription", "transcribe", "transcription service is not configured", nil)
	}
	epoch, runCtx := s.beginLocked(ctx, StateUploading, "transcription")
	run := func() (Snapshot, error) {
		return s.runTranscription(runCtx, epoch, audio)
	}
	return run, s.snapshotLocked(), nil
}

func (s *Session) runTranscription(ctx context.Context, epoch uint64, audio []byte) (Snapshot, error) {
	logger := logging.WithContext(ctx, s.logger)
	digest := transcript.Digest(audio)
	result, cached := s.lookupCache(ctx, logger, digest)
	var err error
	if !cached {
		result, err = s.transcriber.Transcribe(ctx, audio, func(status assemblyai.Status) {
			s.progress(epoch, status)
		})
		if err == nil {
			s.storeCache(ctx, logger, digest, result)
		}
	}
	if err == nil {
		if verr := result.Validate(); verr != nil {
			err = services.Wrap(services.ErrValidation, "transcription", "transcribe", "transcript is unusable", verr)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finishLocked(epoch) {
		return s.snapshotLocked(), services.Wrap(services.ErrTransient, "transcription", "transcribe", "transcription discarded", ErrSuperseded)
	}
	if err != nil {
		s.failLocked(logger, StateInitial, "transcription", err)
		return s.snapshotLocked(), err
	}
	s.result = &result
	s.cached = cached
	logger.Info("transcript ready",
		logging.Int("word_count", len(result.Words)),
		logging.Seconds("audio_duration", result.AudioDuration),
		logging.Bool("cached", cached),
	)
	s.transitionLocked(StateAwaitingInstructions)
	return s.snapshotLocked(), nil
}

// UseTranscript installs an existing transcript, skipping upload.
func (s *Session) UseTranscript(result transcript.Result) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInitial {
		return s.snapshotLocked(), s.invalidStateLocked("load transcript")
	}
	if err := result.Validate(); err != nil {
		return s.snapshotLocked(), services.Wrap(services.ErrValidation, "transcription", "load transcript", "transcript is unusable", err)
	}
	s.result = &result
	s.cached = false
	s.lastErr = ""
	s.transitionLocked(StateAwaitingInstructions)
	return s.snapshotLocked(), nil
}

// SubmitInstructions generates a plan, aligns it to the transcript and moves
// the session to editing. Failure returns to awaiting_instructions with the
// previous scene list untouched.
func (s *Session) SubmitInstructions(ctx context.Context, instructions string) (Snapshot, error) {
	run, snap, err := s.StartPlanning(ctx, instructions)
	if err != nil {
		return snap, err
	}
	return run()
}

// StartPlanning validates the instructions and moves the session to
// generating_plan. The returned Step performs planning and alignment.
func (s *Session) StartPlanning(ctx context.Context, instructions string) (Step, Snapshot, error) {
	instructions = strings.TrimSpace(instructions)
	if instructions == "" {
		return nil, s.Snapshot(), services.Wrap(services.ErrValidation, "planning", "submit instructions", "instructions are empty", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAwaitingInstructions || s.result == nil {
		return nil, s.snapshotLocked(), s.invalidStateLocked("submit instructions")
	}
	if s.planner == nil {
		return nil, s.snapshotLocked(), services.Wrap(services.ErrConfiguration, "planning", "submit instructions", "planner is not configured", nil)
	}
	result := *s.result
	epoch, runCtx := s.beginLocked(ctx, StateGeneratingPlan, "planning")
	run := func() (Snapshot, error) {
		return s.runPlanning(runCtx, epoch, result, instructions)
	}
	return run, s.snapshotLocked(), nil
}

func (s *Session) runPlanning(ctx context.Context, epoch uint64, result transcript.Result, instructions string) (Snapshot, error) {
	logger := logging.WithContext(ctx, s.logger)
	planned, err := s.planner.Generate(ctx, result.FullText, instructions)
	if err == nil && len(planned) == 0 {
		err = services.Wrap(services.ErrValidation, "planning", "submit instructions", "the planner returned no scenes", nil)
	}
	var aligned []scene.Scene
	if err == nil {
		aligned = scene.Align(planned, result.Words, scene.WithLogger(logger))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finishLocked(epoch) {
		return s.snapshotLocked(), services.Wrap(services.ErrTransient, "planning", "submit instructions", "plan discarded", ErrSuperseded)
	}
	if err != nil {
		s.failLocked(logger, StateAwaitingInstructions, "planning", err)
		return s.snapshotLocked(), err
	}
	s.scenes = aligned
	s.instructions = instructions
	logger.Info("plan aligned",
		logging.Int("scene_count", len(aligned)),
		logging.Seconds("total_duration", scene.TotalDuration(aligned)),
	)
	s.transitionLocked(StateEditing)
	return s.snapshotLocked(), nil
}

// UpdateScene applies a user edit, propagating URL and transform changes to
// scenes that share the edited image's query and type. An edit naming an
// unknown scene id leaves the plan unchanged.
func (s *Session) UpdateScene(edited scene.Scene) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateEditing {
		return s.snapshotLocked(), s.invalidStateLocked("update scene")
	}
	if scene.IndexOf(s.scenes, edited.ID) < 0 {
		s.logger.Debug("scene edit ignored",
			logging.String(logging.FieldSessionID, s.id),
			logging.String("scene_id", edited.ID),
			logging.String("reason", "unknown scene id"),
		)
		return s.snapshotLocked(), nil
	}
	s.scenes = scene.ApplyEdit(s.scenes, edited)
	s.updatedAt = s.now()
	s.logger.Debug("scene updated",
		logging.String(logging.FieldSessionID, s.id),
		logging.String("scene_id", edited.ID),
	)
	return s.snapshotLocked(), nil
}

// Play switches from editing to playback.
func (s *Session) Play() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateEditing {
		return s.snapshotLocked(), s.invalidStateLocked("play")
	}
	s.transitionLocked(StatePlaying)
	return s.snapshotLocked(), nil
}

// Back returns from playback to editing.
func (s *Session) Back() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePlaying {
		return s.snapshotLocked(), s.invalidStateLocked("go back")
	}
	s.transitionLocked(StateEditing)
	return s.snapshotLocked(), nil
}

// SceneByID returns a copy of the planned scene with the given id.
func (s *Session) SceneByID(id string) (scene.Scene, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := scene.IndexOf(s.scenes, id)
	if idx < 0 {
		return scene.Scene{}, false
	}
	return scene.CloneScenes(s.scenes[idx : idx+1])[0], true
}

// ActiveAt returns the scene on screen at t seconds.
func (s *Session) ActiveAt(t float64) (scene.Scene, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateEditing && s.state != StatePlaying {
		return scene.Scene{}, -1, s.invalidStateLocked("select active scene")
	}
	active, idx, ok := scene.ActiveAt(s.scenes, t)
	if !ok {
		return scene.Scene{}, -1, services.Wrap(services.ErrNotFound, "playback", "active scene", "session has no scenes", ErrSceneNotFound)
	}
	return scene.CloneScenes([]scene.Scene{active})[0], idx, nil
}

// Reset discards everything and starts a new session. An in-flight
// collaborator call is cancelled and its result ignored.
func (s *Session) Reset() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.epoch++
	previous := s.id
	s.id = uuid.NewString()
	s.result = nil
	s.cached = false
	s.instructions = ""
	s.scenes = nil
	s.lastErr = ""
	s.logger.Info("session reset",
		logging.String("previous_session_id", previous),
		logging.String(logging.FieldSessionID, s.id),
	)
	s.transitionLocked(StateInitial)
	return s.snapshotLocked()
}

func (s *Session) beginLocked(ctx context.Context, state State, stage string) (uint64, context.Context) {
	s.epoch++
	runCtx, cancel := context.WithCancel(ctx)
	runCtx = services.WithSessionID(runCtx, s.id)
	runCtx = services.WithStage(runCtx, stage)
	s.cancel = cancel
	s.lastErr = ""
	s.transitionLocked(state)
	return s.epoch, runCtx
}

// finishLocked releases the call's context and reports whether its result
// still belongs to the current session.
func (s *Session) finishLocked(epoch uint64) bool {
	if epoch != s.epoch {
		return false
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return true
}

func (s *Session) progress(epoch uint64, status assemblyai.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch || !s.state.Busy() {
		return
	}
	switch status {
	case assemblyai.StatusUploading:
		s.transitionLocked(StateUploading)
	case assemblyai.StatusTranscribing:
		s.transitionLocked(StateTranscribing)
	}
}

func (s *Session) failLocked(logger *slog.Logger, rollback State, stage string, err error) {
	s.lastErr = services.UserMessage(err)
	logging.ErrorWithContext(logger, "session step failed", stage+"_failed",
		logging.Error(err),
		logging.String("rollback_state", string(rollback)),
		logging.String(logging.FieldErrorHint, hintFor(err)),
	)
	s.transitionLocked(rollback)
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, services.ErrConfiguration):
		return "check api keys in the config file or environment"
	case services.IsRetryable(err):
		return "retry the step"
	default:
		return "adjust the input and retry"
	}
}

func (s *Session) transitionLocked(to State) {
	from := s.state
	s.state = to
	s.updatedAt = s.now()
	if from == to {
		return
	}
	s.logger.Info("session state changed",
		logging.String(logging.FieldSessionID, s.id),
		logging.String("from", string(from)),
		logging.String("to", string(to)),
	)
}

func (s *Session) invalidStateLocked(action string) error {
	return services.Wrap(services.ErrValidation, "session", action,
		fmt.Sprintf("cannot %s while %s", action, s.state), ErrInvalidState)
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID:     s.id,
		State:         s.state,
		LastError:     s.lastErr,
		Instructions:  s.instructions,
		Scenes:        scene.CloneScenes(s.scenes),
		TotalDuration: scene.TotalDuration(s.scenes),
		UpdatedAt:     s.updatedAt,
	}
	if snap.Scenes == nil {
		snap.Scenes = []scene.Scene{}
	}
	if s.result != nil {
		snap.Transcript = &TranscriptSummary{
			WordCount:     len(s.result.Words),
			FullText:      s.result.FullText,
			AudioDuration: s.result.AudioDuration,
			Cached:        s.cached,
		}
	}
	return snap
}

func (s *Session) lookupCache(ctx context.Context, logger *slog.Logger, digest string) (transcript.Result, bool) {
	if s.cache == nil {
		return transcript.Result{}, false
	}
	cached, ok, err := s.cache.Get(ctx, digest)
	if err != nil {
		logging.WarnWithContext(logger, "transcript cache lookup failed", "transcript_cache_error",
			logging.Error(err),
			logging.String(logging.FieldImpact, "audio will be transcribed again"),
		)
		return transcript.Result{}, false
	}
	if !ok || cached == nil {
		return transcript.Result{}, false
	}
	logger.Debug("transcript cache hit", logging.String("digest", digest))
	return *cached, true
}

func (s *Session) storeCache(ctx context.Context, logger *slog.Logger, digest string, result transcript.Result) {
	if s.cache == nil || result.Validate() != nil {
		return
	}
	if err := s.cache.Put(ctx, digest, result); err != nil {
		logging.WarnWithContext(logger, "transcript cache write failed", "transcript_cache_error",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the next upload of this audio will be transcribed again"),
		)
	}
}
