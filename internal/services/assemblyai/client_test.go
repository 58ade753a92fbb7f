package assemblyai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"scenecast/internal/services"
	"scenecast/internal/transcript"
)

type fakeService struct {
	t *testing.T

	mu          sync.Mutex
	uploadBody  string
	jobRequest  transcriptRequest
	polls       int
	authHeaders []string

	uploadStatus int
	uploadReply  string
	createStatus int
	createReply  string
	pollStatus   int
	pollReplies  []string
}

func newFakeService(t *testing.T) *fakeService {
	return &fakeService{
		t:            t,
		uploadStatus: http.StatusOK,
		uploadReply:  `{"upload_url":"https://cdn.example/audio-1"}`,
		createStatus: http.StatusOK,
		createReply:  `{"id":"tx-1","status":"queued"}`,
		pollStatus:   http.StatusOK,
		pollReplies: []string{
			`{"id":"tx-1","status":"queued"}`,
			`{"id":"tx-1","status":"processing"}`,
			`{"id":"tx-1","status":"completed","text":"hello world","audio_duration":2.5,` +
				`"words":[{"text":"hello","start":100,"end":400,"confidence":0.9},{"text":"world","start":450,"end":900,"confidence":0.8}]}`,
		},
	}
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v2/upload":
		if ct := r.Header.Get("Content-Type"); ct != "application/octet-stream" {
			f.t.Errorf("upload content type = %q", ct)
		}
		data, _ := io.ReadAll(r.Body)
		f.uploadBody = string(data)
		w.WriteHeader(f.uploadStatus)
		_, _ = io.WriteString(w, f.uploadReply)
	case r.Method == http.MethodPost && r.URL.Path == "/v2/transcript":
		if err := json.NewDecoder(r.Body).Decode(&f.jobRequest); err != nil {
			f.t.Errorf("decode job request: %v", err)
		}
		w.WriteHeader(f.createStatus)
		_, _ = io.WriteString(w, f.createReply)
	case r.Method == http.MethodGet && r.URL.Path == "/v2/transcript/tx-1":
		idx := f.polls
		if idx >= len(f.pollReplies) {
			idx = len(f.pollReplies) - 1
		}
		f.polls++
		w.WriteHeader(f.pollStatus)
		_, _ = io.WriteString(w, f.pollReplies[idx])
	case r.Method == http.MethodGet && r.URL.Path == "/v2/transcript":
		if r.Header.Get("Authorization") != "key-123" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":"Authentication error"}`)
			return
		}
		_, _ = io.WriteString(w, `{"transcripts":[]}`)
	default:
		f.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, fake *fakeService) (*Client, *[]time.Duration) {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	var sleeps []time.Duration
	client := New(Config{
		APIKey:       "key-123",
		BaseURL:      server.URL + "/v2/",
		PollInterval: 3 * time.Second,
	},
		WithHTTPClient(server.Client()),
		WithSleeper(func(d time.Duration) { sleeps = append(sleeps, d) }),
	)
	return client, &sleeps
}

func TestTranscribeUploadsCreatesAndPolls(t *testing.T) {
	fake := newFakeService(t)
	client, sleeps := newTestClient(t, fake)

	var statuses []Status
	result, err := client.Transcribe(context.Background(), []byte("RIFF-audio"), func(s Status) {
		statuses = append(statuses, s)
	})
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}

	if fake.uploadBody != "RIFF-audio" {
		t.Fatalf("uploaded body = %q", fake.uploadBody)
	}
	if fake.jobRequest.AudioURL != "https://cdn.example/audio-1" {
		t.Fatalf("job audio_url = %q", fake.jobRequest.AudioURL)
	}
	if fake.jobRequest.SpeechModel != "universal" || !fake.jobRequest.Punctuate {
		t.Fatalf("unexpected job request %+v", fake.jobRequest)
	}
	for i, header := range fake.authHeaders {
		if header != "key-123" {
			t.Fatalf("request %d authorization = %q", i, header)
		}
	}
	if fake.polls != 3 {
		t.Fatalf("expected 3 polls, got %d", fake.polls)
	}
	if len(*sleeps) != 2 || (*sleeps)[0] != 3*time.Second || (*sleeps)[1] != 3*time.Second {
		t.Fatalf("unexpected poll waits %v", *sleeps)
	}
	if len(statuses) != 2 || statuses[0] != StatusUploading || statuses[1] != StatusTranscribing {
		t.Fatalf("unexpected status sequence %v", statuses)
	}

	want := transcript.Result{
		Words:         []transcript.Word{{Text: "hello", Start: 100, End: 400}, {Text: "world", Start: 450, End: 900}},
		FullText:      "hello world",
		AudioDuration: 2.5,
	}
	if result.FullText != want.FullText || result.AudioDuration != want.AudioDuration {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(result.Words) != 2 || result.Words[0] != want.Words[0] || result.Words[1] != want.Words[1] {
		t.Fatalf("unexpected words %+v", result.Words)
	}
}

func TestTranscribeFailures(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*fakeService)
		marker   error
		contains string
	}{
		{
			name:     "upload rejected",
			mutate:   func(f *fakeService) { f.uploadStatus = http.StatusBadRequest; f.uploadReply = `{"error":"bad"}` },
			marker:   services.ErrExternalTool,
			contains: "failed to upload audio file",
		},
		{
			name:     "upload url missing",
			mutate:   func(f *fakeService) { f.uploadReply = `{}` },
			marker:   services.ErrExternalTool,
			contains: "did not return an upload URL",
		},
		{
			name: "job rejected with error field",
			mutate: func(f *fakeService) {
				f.createStatus = http.StatusBadRequest
				f.createReply = `{"error":"Invalid audio_url"}`
			},
			marker:   services.ErrExternalTool,
			contains: "failed to create transcription job: Invalid audio_url",
		},
		{
			name: "job rejected with errors list",
			mutate: func(f *fakeService) {
				f.createStatus = http.StatusUnprocessableEntity
				f.createReply = `{"errors":[{"message":"speech_model is invalid"}]}`
			},
			marker:   services.ErrExternalTool,
			contains: "failed to create transcription job: speech_model is invalid",
		},
		{
			name: "job rejected with plain text",
			mutate: func(f *fakeService) {
				f.createStatus = http.StatusBadGateway
				f.createReply = `upstream down`
			},
			marker:   services.ErrExternalTool,
			contains: "non-JSON error: Bad Gateway",
		},
		{
			name:     "job id missing",
			mutate:   func(f *fakeService) { f.createReply = `{"status":"queued"}` },
			marker:   services.ErrExternalTool,
			contains: "did not return a transcript ID",
		},
		{
			name:     "poll rejected",
			mutate:   func(f *fakeService) { f.pollStatus = http.StatusInternalServerError; f.pollReplies = []string{`oops`} },
			marker:   services.ErrExternalTool,
			contains: "failed while polling",
		},
		{
			name: "job failed",
			mutate: func(f *fakeService) {
				f.pollReplies = []string{`{"id":"tx-1","status":"error","error":"audio too short"}`}
			},
			marker:   services.ErrExternalTool,
			contains: "transcription failed: audio too short",
		},
		{
			name: "no words",
			mutate: func(f *fakeService) {
				f.pollReplies = []string{`{"id":"tx-1","status":"completed","text":"","audio_duration":1,"words":[]}`}
			},
			marker:   transcript.ErrNoWords,
			contains: "no words were returned",
		},
		{
			name: "missing duration",
			mutate: func(f *fakeService) {
				f.pollReplies = []string{`{"id":"tx-1","status":"completed","text":"hi","words":[{"text":"hi","start":0,"end":10}]}`}
			},
			marker:   transcript.ErrIncomplete,
			contains: "missing critical data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeService(t)
			tt.mutate(fake)
			client, _ := newTestClient(t, fake)
			_, err := client.Transcribe(context.Background(), []byte("audio"), nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, tt.marker) {
				t.Fatalf("expected %v marker, got %v", tt.marker, err)
			}
			if msg := services.UserMessage(err); !strings.Contains(msg, tt.contains) {
				t.Fatalf("user message %q does not contain %q", msg, tt.contains)
			}
		})
	}
}

func TestTranscribeRequiresKeyAndAudio(t *testing.T) {
	client := New(Config{})
	if _, err := client.Transcribe(context.Background(), []byte("a"), nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	client = New(Config{APIKey: "k"})
	if _, err := client.Transcribe(context.Background(), nil, nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTranscribeStopsPollingOnCancel(t *testing.T) {
	fake := newFakeService(t)
	fake.pollReplies = []string{`{"id":"tx-1","status":"processing"}`}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	ctx, cancel := context.WithCancel(context.Background())
	client := New(Config{APIKey: "key-123", BaseURL: server.URL + "/v2"},
		WithHTTPClient(server.Client()),
		WithSleeper(func(time.Duration) { cancel() }),
	)
	_, err := client.Transcribe(ctx, []byte("audio"), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if services.UserMessage(err) != "operation cancelled" {
		t.Fatalf("unexpected user message %q", services.UserMessage(err))
	}
	if fake.polls != 1 {
		t.Fatalf("expected a single poll before cancellation, got %d", fake.polls)
	}
}

func TestPing(t *testing.T) {
	fake := newFakeService(t)
	client, _ := newTestClient(t, fake)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping returned error: %v", err)
	}

	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	bad := New(Config{APIKey: "wrong", BaseURL: server.URL + "/v2"}, WithHTTPClient(server.Client()))
	if err := bad.Ping(context.Background()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for rejected key, got %v", err)
	}
}
