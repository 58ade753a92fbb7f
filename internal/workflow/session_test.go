package workflow

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"scenecast/internal/scene"
	"scenecast/internal/services"
	"scenecast/internal/services/assemblyai"
	"scenecast/internal/transcript"
)

type fakeTranscriber struct {
	result   transcript.Result
	err      error
	calls    int
	onStatus func(assemblyai.Status)
	block    chan struct{}
	started  chan struct{}
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, _ []byte, onStatus func(assemblyai.Status)) (transcript.Result, error) {
	f.calls++
	onStatus(assemblyai.StatusUploading)
	if f.onStatus != nil {
		f.onStatus(assemblyai.StatusUploading)
	}
	onStatus(assemblyai.StatusTranscribing)
	if f.onStatus != nil {
		f.onStatus(assemblyai.StatusTranscribing)
	}
	if f.block != nil {
		close(f.started)
		select {
		case <-f.block:
		case <-ctx.Done():
			return transcript.Result{}, ctx.Err()
		}
	}
	return f.result, f.err
}

type fakePlanner struct {
	scenes       []scene.Scene
	err          error
	gotText      string
	instructions string
}

func (f *fakePlanner) Generate(_ context.Context, fullText, instructions string) ([]scene.Scene, error) {
	f.gotText = fullText
	f.instructions = instructions
	return f.scenes, f.err
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]transcript.Result
}

func (m *memoryCache) Get(_ context.Context, digest string) (*transcript.Result, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.entries[digest]
	if !ok {
		return nil, false, nil
	}
	return &r, true, nil
}

func (m *memoryCache) Put(_ context.Context, digest string, result transcript.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = map[string]transcript.Result{}
	}
	m.entries[digest] = result
	return nil
}

func sampleTranscript() transcript.Result {
	return transcript.Result{
		Words: []transcript.Word{
			{Text: "Hello", Start: 0, End: 500},
			{Text: "world.", Start: 500, End: 1000},
			{Text: "Goodbye!", Start: 1200, End: 1800},
		},
		FullText:      "Hello world. Goodbye!",
		AudioDuration: 2,
	}
}

func samplePlan() []scene.Scene {
	logo := scene.ImageElement{ID: "img-a", Type: scene.ImageSearch, Query: "logo", Transform: scene.DefaultTransform()}
	logo2 := logo
	logo2.ID = "img-b"
	return []scene.Scene{
		{ID: "scene-1", TextSection: "hello world", Images: []scene.ImageElement{logo}},
		{ID: "scene-2", TextSection: "goodbye", Images: []scene.ImageElement{logo2}},
	}
}

func TestSessionHappyPath(t *testing.T) {
	tr := &fakeTranscriber{result: sampleTranscript()}
	pl := &fakePlanner{scenes: samplePlan()}
	s := NewSession(tr, pl)

	var observed []State
	tr.onStatus = func(assemblyai.Status) { observed = append(observed, s.State()) }

	snap, err := s.Transcribe(context.Background(), []byte("audio"))
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if snap.State != StateAwaitingInstructions {
		t.Fatalf("state = %s, want awaiting_instructions", snap.State)
	}
	if len(observed) != 2 || observed[0] != StateUploading || observed[1] != StateTranscribing {
		t.Fatalf("unexpected progress states %v", observed)
	}
	if snap.Transcript == nil || snap.Transcript.WordCount != 3 || snap.Transcript.Cached {
		t.Fatalf("unexpected transcript summary %+v", snap.Transcript)
	}

	snap, err = s.SubmitInstructions(context.Background(), "  one scene per sentence ")
	if err != nil {
		t.Fatalf("SubmitInstructions returned error: %v", err)
	}
	if snap.State != StateEditing {
		t.Fatalf("state = %s, want editing", snap.State)
	}
	if pl.gotText != "Hello world. Goodbye!" || pl.instructions != "one scene per sentence" {
		t.Fatalf("planner received %q / %q", pl.gotText, pl.instructions)
	}
	if snap.Scenes[0].StartTime != 0 || snap.Scenes[0].EndTime != 1 {
		t.Fatalf("scene 1 timing %v-%v", snap.Scenes[0].StartTime, snap.Scenes[0].EndTime)
	}
	if snap.Scenes[1].StartTime != 1.2 || snap.Scenes[1].EndTime != 1.8 {
		t.Fatalf("scene 2 timing %v-%v", snap.Scenes[1].StartTime, snap.Scenes[1].EndTime)
	}
	if snap.TotalDuration != 1.8 {
		t.Fatalf("total duration = %v", snap.TotalDuration)
	}

	edited := snap.Scenes[0]
	edited.Images[0].URL = "https://img.example/logo.png"
	snap, err = s.UpdateScene(edited)
	if err != nil {
		t.Fatalf("UpdateScene returned error: %v", err)
	}
	if got := snap.Scenes[1].Images[0].URL; got != "https://img.example/logo.png" {
		t.Fatalf("url did not propagate, got %q", got)
	}

	if snap, err = s.Play(); err != nil || snap.State != StatePlaying {
		t.Fatalf("Play: state=%s err=%v", snap.State, err)
	}
	active, idx, err := s.ActiveAt(1.5)
	if err != nil || idx != 1 || active.ID != "scene-2" {
		t.Fatalf("ActiveAt(1.5) = %s, %d, %v", active.ID, idx, err)
	}
	if snap, err = s.Back(); err != nil || snap.State != StateEditing {
		t.Fatalf("Back: state=%s err=%v", snap.State, err)
	}

	previous := snap.SessionID
	snap = s.Reset()
	if snap.State != StateInitial || len(snap.Scenes) != 0 || snap.Transcript != nil {
		t.Fatalf("unexpected snapshot after reset %+v", snap)
	}
	if snap.SessionID == previous {
		t.Fatal("expected a new session id after reset")
	}
}

func TestSessionSnapshotIsIsolated(t *testing.T) {
	s := NewSession(&fakeTranscriber{result: sampleTranscript()}, &fakePlanner{scenes: samplePlan()})
	if _, err := s.Transcribe(context.Background(), []byte("audio")); err != nil {
		t.Fatal(err)
	}
	snap, err := s.SubmitInstructions(context.Background(), "go")
	if err != nil {
		t.Fatal(err)
	}
	snap.Scenes[0].Images[0].URL = "mutated"
	if got := s.Snapshot().Scenes[0].Images[0].URL; got != "" {
		t.Fatalf("snapshot mutation leaked into session: %q", got)
	}
}

func TestSessionTranscriptionFailureRollsBack(t *testing.T) {
	failure := services.Wrap(services.ErrExternalTool, "transcription", "upload", "failed to upload audio file", errors.New("http 500: boom"))
	s := NewSession(&fakeTranscriber{err: failure}, &fakePlanner{})

	snap, err := s.Transcribe(context.Background(), []byte("audio"))
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if snap.State != StateInitial {
		t.Fatalf("state = %s, want initial", snap.State)
	}
	if snap.LastError != "failed to upload audio file: http 500: boom" {
		t.Fatalf("last error = %q", snap.LastError)
	}
	if snap.Transcript != nil {
		t.Fatal("failed transcription must not leave a transcript")
	}
}

func TestSessionRejectsUnusableTranscript(t *testing.T) {
	s := NewSession(&fakeTranscriber{result: transcript.Result{FullText: "x", AudioDuration: 1}}, &fakePlanner{})
	snap, err := s.Transcribe(context.Background(), []byte("audio"))
	if !errors.Is(err, transcript.ErrNoWords) {
		t.Fatalf("expected ErrNoWords, got %v", err)
	}
	if snap.State != StateInitial {
		t.Fatalf("state = %s, want initial", snap.State)
	}
}

func TestSessionPlanFailureRollsBack(t *testing.T) {
	pl := &fakePlanner{err: services.Wrap(services.ErrValidation, "planning", "parse", "failed to generate visual plan from AI", errors.New("not an array"))}
	s := NewSession(&fakeTranscriber{result: sampleTranscript()}, pl)
	if _, err := s.Transcribe(context.Background(), []byte("audio")); err != nil {
		t.Fatal(err)
	}
	snap, err := s.SubmitInstructions(context.Background(), "scenes please")
	if err == nil {
		t.Fatal("expected plan failure")
	}
	if snap.State != StateAwaitingInstructions {
		t.Fatalf("state = %s, want awaiting_instructions", snap.State)
	}
	if len(snap.Scenes) != 0 || snap.Instructions != "" {
		t.Fatalf("failed plan must not be applied: %+v", snap)
	}
	if !strings.HasPrefix(snap.LastError, "failed to generate visual plan from AI") {
		t.Fatalf("last error = %q", snap.LastError)
	}

	pl.err = nil
	pl.scenes = nil
	if _, err := s.SubmitInstructions(context.Background(), "scenes please"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty plan, got %v", err)
	}

	pl.scenes = samplePlan()
	snap, err = s.SubmitInstructions(context.Background(), "scenes please")
	if err != nil {
		t.Fatalf("retry after failure returned error: %v", err)
	}
	if snap.LastError != "" || snap.State != StateEditing {
		t.Fatalf("unexpected snapshot after retry: state=%s lastError=%q", snap.State, snap.LastError)
	}
}

func TestSessionUsesTranscriptCache(t *testing.T) {
	cache := &memoryCache{}
	first := &fakeTranscriber{result: sampleTranscript()}
	s := NewSession(first, &fakePlanner{}, WithTranscriptCache(cache))
	if _, err := s.Transcribe(context.Background(), []byte("same audio")); err != nil {
		t.Fatal(err)
	}
	if first.calls != 1 {
		t.Fatalf("expected one transcription call, got %d", first.calls)
	}

	second := &fakeTranscriber{err: errors.New("must not be called")}
	s2 := NewSession(second, &fakePlanner{}, WithTranscriptCache(cache))
	snap, err := s2.Transcribe(context.Background(), []byte("same audio"))
	if err != nil {
		t.Fatalf("cached Transcribe returned error: %v", err)
	}
	if second.calls != 0 {
		t.Fatalf("expected cache hit, transcriber called %d times", second.calls)
	}
	if snap.Transcript == nil || !snap.Transcript.Cached {
		t.Fatalf("expected cached transcript summary, got %+v", snap.Transcript)
	}
}

func TestSessionInvalidTransitions(t *testing.T) {
	s := NewSession(&fakeTranscriber{result: sampleTranscript()}, &fakePlanner{scenes: samplePlan()})

	checks := []struct {
		name string
		call func() error
	}{
		{"instructions before transcript", func() error { _, err := s.SubmitInstructions(context.Background(), "x"); return err }},
		{"update before plan", func() error { _, err := s.UpdateScene(scene.Scene{ID: "scene-1"}); return err }},
		{"play before plan", func() error { _, err := s.Play(); return err }},
		{"back while not playing", func() error { _, err := s.Back(); return err }},
		{"active before plan", func() error { _, _, err := s.ActiveAt(0); return err }},
	}
	for _, tc := range checks {
		err := tc.call()
		if !errors.Is(err, ErrInvalidState) || !errors.Is(err, services.ErrValidation) {
			t.Fatalf("%s: expected invalid state error, got %v", tc.name, err)
		}
	}
	if s.State() != StateInitial {
		t.Fatalf("rejected actions changed state to %s", s.State())
	}

	if _, err := s.Transcribe(context.Background(), nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty audio, got %v", err)
	}
	if _, err := s.Transcribe(context.Background(), []byte("audio")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Transcribe(context.Background(), []byte("audio")); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected second transcription to be rejected, got %v", err)
	}
	if _, err := s.SubmitInstructions(context.Background(), "   "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected empty instructions to be rejected, got %v", err)
	}
	planned, err := s.SubmitInstructions(context.Background(), "go")
	if err != nil {
		t.Fatal(err)
	}
	missing := scene.Scene{ID: "missing", Images: []scene.ImageElement{{ID: "img-a", Type: scene.ImageSearch, Query: "logo", URL: "https://example.com/x.png"}}}
	snap, err := s.UpdateScene(missing)
	if err != nil {
		t.Fatalf("edit of unknown scene returned error: %v", err)
	}
	if snap.State != StateEditing {
		t.Fatalf("state = %s, want editing", snap.State)
	}
	if !reflect.DeepEqual(snap.Scenes, planned.Scenes) {
		t.Fatalf("edit of unknown scene changed the plan: %+v", snap.Scenes)
	}
}

func TestSessionUseTranscript(t *testing.T) {
	s := NewSession(nil, &fakePlanner{scenes: samplePlan()})
	if _, err := s.UseTranscript(transcript.Result{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	snap, err := s.UseTranscript(sampleTranscript())
	if err != nil {
		t.Fatalf("UseTranscript returned error: %v", err)
	}
	if snap.State != StateAwaitingInstructions {
		t.Fatalf("state = %s", snap.State)
	}
}

func TestSessionResetDiscardsInFlightTranscription(t *testing.T) {
	tr := &fakeTranscriber{
		result:  sampleTranscript(),
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	s := NewSession(tr, &fakePlanner{})

	type outcome struct {
		snap Snapshot
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		snap, err := s.Transcribe(context.Background(), []byte("audio"))
		done <- outcome{snap, err}
	}()

	<-tr.started
	if got := s.State(); got != StateTranscribing {
		t.Fatalf("state while in flight = %s", got)
	}
	s.Reset()

	select {
	case res := <-done:
		if !errors.Is(res.err, ErrSuperseded) {
			t.Fatalf("expected ErrSuperseded, got %v", res.err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("transcription did not observe reset")
	}
	snap := s.Snapshot()
	if snap.State != StateInitial || snap.Transcript != nil || snap.LastError != "" {
		t.Fatalf("reset session was modified by stale result: %+v", snap)
	}
}

func TestStartPlanningReportsBusyStateBeforeRunning(t *testing.T) {
	s := NewSession(&fakeTranscriber{result: sampleTranscript()}, &fakePlanner{scenes: samplePlan()})
	run, snap, err := s.StartTranscription(context.Background(), []byte("audio"))
	if err != nil {
		t.Fatalf("StartTranscription returned error: %v", err)
	}
	if snap.State != StateUploading || !snap.State.Busy() {
		t.Fatalf("accepted transcription state = %s", snap.State)
	}
	if _, _, err := s.StartTranscription(context.Background(), []byte("audio")); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected concurrent transcription to be rejected, got %v", err)
	}
	if snap, err = run(); err != nil || snap.State != StateAwaitingInstructions {
		t.Fatalf("run: state=%s err=%v", snap.State, err)
	}

	run, snap, err = s.StartPlanning(context.Background(), "go")
	if err != nil {
		t.Fatalf("StartPlanning returned error: %v", err)
	}
	if snap.State != StateGeneratingPlan {
		t.Fatalf("accepted planning state = %s", snap.State)
	}
	if snap, err = run(); err != nil || snap.State != StateEditing {
		t.Fatalf("run: state=%s err=%v", snap.State, err)
	}
}
