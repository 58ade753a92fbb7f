package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"scenecast/internal/logging"
	"scenecast/internal/services"
	"scenecast/internal/transcript"
)

const (
	stageName           = "transcription"
	defaultBaseURL      = "https://api.assemblyai.com/v2"
	defaultSpeechModel  = "universal"
	defaultPollInterval = 3 * time.Second
	defaultHTTPTimeout  = 120 * time.Second
	maxErrorBody        = 512
)

// Status reports which phase of a transcription is in flight.
type Status string

const (
	StatusUploading    Status = "uploading"
	StatusTranscribing Status = "transcribing"
)

// Config captures the settings required to talk to AssemblyAI.
type Config struct {
	APIKey         string
	BaseURL        string
	SpeechModel    string
	PollInterval   time.Duration
	TimeoutSeconds int
}

// Client uploads audio and retrieves word-level transcripts.
type Client struct {
	cfg        Config
	httpClient *http.Client
	sleeper    func(time.Duration)
	logger     *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithSleeper overrides how poll waits are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithLogger attaches a logger for poll progress.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New constructs a client, filling unset fields with AssemblyAI defaults.
func New(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.SpeechModel = strings.TrimSpace(cfg.SpeechModel)
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = defaultSpeechModel
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, "assemblyai")
	return client
}

type transcriptRequest struct {
	AudioURL    string `json:"audio_url"`
	SpeechModel string `json:"speech_model"`
	Punctuate   bool   `json:"punctuate"`
}

type transcriptResponse struct {
	ID            string            `json:"id"`
	Status        string            `json:"status"`
	Text          string            `json:"text"`
	Error         string            `json:"error"`
	AudioDuration float64           `json:"audio_duration"`
	Words         []transcript.Word `json:"words"`
}

// Transcribe uploads audio and blocks until AssemblyAI returns a completed
// transcript. onStatus, when non-nil, is called with StatusUploading before
// the upload and StatusTranscribing once the upload has succeeded.
func (c *Client) Transcribe(ctx context.Context, audio []byte, onStatus func(Status)) (transcript.Result, error) {
	var empty transcript.Result
	if c.cfg.APIKey == "" {
		return empty, services.Wrap(services.ErrConfiguration, stageName, "configure", "assemblyai api key is not set", nil)
	}
	if len(audio) == 0 {
		return empty, services.Wrap(services.ErrValidation, stageName, "upload", "audio file is empty", nil)
	}
	notify := func(status Status) {
		if onStatus != nil {
			onStatus(status)
		}
	}

	notify(StatusUploading)
	uploadURL, err := c.upload(ctx, audio)
	if err != nil {
		return empty, err
	}

	notify(StatusTranscribing)
	id, err := c.createJob(ctx, uploadURL)
	if err != nil {
		return empty, err
	}
	c.logger.Info("transcription job created",
		logging.String("transcript_id", id),
		logging.String("speech_model", c.cfg.SpeechModel),
		logging.Int("audio_bytes", len(audio)),
	)
	return c.poll(ctx, id)
}

func (c *Client) upload(ctx context.Context, audio []byte) (string, error) {
	body, status, err := c.do(ctx, http.MethodPost, c.endpoint("upload"), "application/octet-stream", bytes.NewReader(audio))
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, stageName, "upload", "failed to upload audio file", err)
	}
	if status < 200 || status >= 300 {
		return "", services.Wrap(services.ErrExternalTool, stageName, "upload", "failed to upload audio file", httpError(status, body))
	}
	uploadURL := strings.TrimSpace(gjson.GetBytes(body, "upload_url").String())
	if uploadURL == "" {
		return "", services.Wrap(services.ErrExternalTool, stageName, "upload", "service did not return an upload URL", nil)
	}
	return uploadURL, nil
}

func (c *Client) createJob(ctx context.Context, uploadURL string) (string, error) {
	payload, err := json.Marshal(transcriptRequest{
		AudioURL:    uploadURL,
		SpeechModel: c.cfg.SpeechModel,
		Punctuate:   true,
	})
	if err != nil {
		return "", services.Wrap(services.ErrTransient, stageName, "create job", "encode request", err)
	}
	body, status, err := c.do(ctx, http.MethodPost, c.endpoint("transcript"), "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, stageName, "create job", "failed to create transcription job", err)
	}
	if status < 200 || status >= 300 {
		message := "failed to create transcription job: " + jobErrorMessage(status, body)
		return "", services.Wrap(services.ErrExternalTool, stageName, "create job", message, nil)
	}
	id := strings.TrimSpace(gjson.GetBytes(body, "id").String())
	if id == "" {
		return "", services.Wrap(services.ErrExternalTool, stageName, "create job", "service did not return a transcript ID", nil)
	}
	return id, nil
}

// jobErrorMessage extracts the service's explanation from a rejected job
// request: "error", then "errors[0].message", then the HTTP status text.
func jobErrorMessage(status int, body []byte) string {
	if gjson.ValidBytes(body) {
		if msg := strings.TrimSpace(gjson.GetBytes(body, "error").String()); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(gjson.GetBytes(body, "errors.0.message").String()); msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("service returned a non-JSON error: %s", http.StatusText(status))
}

func (c *Client) poll(ctx context.Context, id string) (transcript.Result, error) {
	var empty transcript.Result
	pollURL := c.endpoint("transcript", id)
	sampler := logging.NewStatusSampler(20)
	for attempt := 1; ; attempt++ {
		body, status, err := c.do(ctx, http.MethodGet, pollURL, "", nil)
		if err != nil {
			return empty, services.Wrap(services.ErrExternalTool, stageName, "poll", "failed while polling for transcription results", err)
		}
		if status < 200 || status >= 300 {
			return empty, services.Wrap(services.ErrExternalTool, stageName, "poll", "failed while polling for transcription results", httpError(status, body))
		}
		var job transcriptResponse
		if err := json.Unmarshal(body, &job); err != nil {
			return empty, services.Wrap(services.ErrExternalTool, stageName, "poll", "failed while polling for transcription results", err)
		}
		if sampler.ShouldLog(job.Status) {
			c.logger.Debug("transcription status",
				logging.String("transcript_id", id),
				logging.String("status", job.Status),
				logging.Int("poll_attempt", attempt),
			)
		}

		switch job.Status {
		case "completed":
			return completedResult(job)
		case "error":
			return empty, services.Wrap(services.ErrExternalTool, stageName, "poll", "transcription failed: "+strings.TrimSpace(job.Error), nil)
		}

		if err := c.sleep(ctx, c.cfg.PollInterval); err != nil {
			return empty, services.Wrap(services.ErrTransient, stageName, "poll", "polling stopped", err)
		}
	}
}

func completedResult(job transcriptResponse) (transcript.Result, error) {
	result := transcript.Result{
		Words:         job.Words,
		FullText:      job.Text,
		AudioDuration: job.AudioDuration,
	}
	switch err := result.Validate(); err {
	case nil:
		return result, nil
	case transcript.ErrNoWords:
		return transcript.Result{}, services.Wrap(services.ErrValidation, stageName, "poll",
			"transcription completed, but no words were returned from the audio", err)
	default:
		return transcript.Result{}, services.Wrap(services.ErrValidation, stageName, "poll",
			"transcription result was missing critical data (text or duration)", err)
	}
}

func (c *Client) endpoint(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, part := range parts {
		escaped[i] = url.PathEscape(part)
	}
	return c.cfg.BaseURL + "/" + strings.Join(escaped, "/")
}

func (c *Client) do(ctx context.Context, method, endpoint, contentType string, body io.Reader) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", c.cfg.APIKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return data, resp.StatusCode, nil
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Ping verifies the API key by listing at most one transcript.
func (c *Client) Ping(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return services.Wrap(services.ErrConfiguration, stageName, "ping", "assemblyai api key is not set", nil)
	}
	body, status, err := c.do(ctx, http.MethodGet, c.endpoint("transcript")+"?limit=1", "", nil)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, stageName, "ping", "service unreachable", err)
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return services.Wrap(services.ErrConfiguration, stageName, "ping", "api key rejected", httpError(status, body))
	}
	if status < 200 || status >= 300 {
		return services.Wrap(services.ErrExternalTool, stageName, "ping", "unexpected response", httpError(status, body))
	}
	return nil
}

func httpError(status int, body []byte) error {
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody] + "..."
	}
	if text == "" {
		text = http.StatusText(status)
	}
	return fmt.Errorf("http %d: %s", status, text)
}
