package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"scenecast/internal/logging"
	"scenecast/internal/scene"
	"scenecast/internal/services"
	"scenecast/internal/services/llm"
)

const (
	stageName        = "planning"
	defaultMaxImages = 3
	failureMessage   = "failed to generate visual plan from AI; check your API key and instructions, then try again"
)

// ErrNotArray indicates the model answered with JSON that holds no scene list.
var ErrNotArray = errors.New("planner response is not an array of scenes")

// Completer is the chat transport the planner depends on. *llm.Client
// satisfies it.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Config tunes plan generation.
type Config struct {
	MaxImagesPerScene int
}

// Planner turns transcripts and instructions into unaligned scenes.
type Planner struct {
	client    Completer
	maxImages int
	logger    *slog.Logger
	newID     func() string
}

// Option customizes the planner.
type Option func(*Planner)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Planner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithIDSource overrides id generation (useful for tests).
func WithIDSource(fn func() string) Option {
	return func(p *Planner) {
		if fn != nil {
			p.newID = fn
		}
	}
}

// New constructs a planner around client.
func New(client Completer, cfg Config, opts ...Option) *Planner {
	p := &Planner{
		client:    client,
		maxImages: cfg.MaxImagesPerScene,
		logger:    logging.NewNop(),
		newID:     uuid.NewString,
	}
	if p.maxImages <= 0 {
		p.maxImages = defaultMaxImages
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, "planner")
	return p
}

// Generate requests a scene plan. Returned scenes carry fresh ids, empty image
// URLs, default transforms and zero start/end times.
func (p *Planner) Generate(ctx context.Context, fullText, instructions string) ([]scene.Scene, error) {
	if strings.TrimSpace(fullText) == "" {
		return nil, services.Wrap(services.ErrValidation, stageName, "generate", "transcript text is empty", nil)
	}
	if strings.TrimSpace(instructions) == "" {
		return nil, services.Wrap(services.ErrValidation, stageName, "generate", "instructions are empty", nil)
	}
	if p.client == nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "generate", "planner client is not configured", nil)
	}

	started := time.Now()
	content, err := p.client.CompleteJSON(ctx, BuildSystemPrompt(p.maxImages), BuildUserPrompt(fullText, instructions))
	if err != nil {
		marker := services.ErrExternalTool
		if llm.IsAuthError(err) {
			marker = services.ErrConfiguration
		}
		logging.WarnWithContext(p.logger, "plan request failed", "plan_request_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the llm api key and model"),
			logging.String(logging.FieldImpact, "no scenes were generated"),
		)
		return nil, services.Wrap(marker, stageName, "request", failureMessage, err)
	}

	records, err := parseRecords(content)
	if err != nil {
		logging.WarnWithContext(p.logger, "plan response rejected", "plan_response_invalid",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "the model did not return a scene list"),
			logging.String(logging.FieldImpact, "no scenes were generated"),
		)
		return nil, services.Wrap(services.ErrValidation, stageName, "parse", failureMessage, err)
	}

	scenes := make([]scene.Scene, 0, len(records))
	trimmed := 0
	for _, rec := range records {
		s, dropped := p.toScene(rec)
		trimmed += dropped
		scenes = append(scenes, s)
	}
	attrs := []logging.Attr{
		logging.Int("scene_count", len(scenes)),
		logging.Duration("elapsed", time.Since(started)),
	}
	if trimmed > 0 {
		attrs = append(attrs, logging.Int("images_trimmed", trimmed))
	}
	p.logger.Info("plan generated", logging.Args(attrs...)...)
	return scenes, nil
}

type rawTransform struct {
	X        *float64 `json:"x"`
	Y        *float64 `json:"y"`
	Scale    *float64 `json:"scale"`
	Rotation *float64 `json:"rotation"`
	FlipX    *bool    `json:"flipX"`
	FlipY    *bool    `json:"flipY"`
}

type rawOverlay struct {
	Text      string        `json:"text"`
	Color     string        `json:"color"`
	Style     string        `json:"style"`
	Transform *rawTransform `json:"transform"`
}

type rawImage struct {
	Type             string `json:"type"`
	Query            string `json:"query"`
	InitialPosition  string `json:"initialPosition"`
	CopyFromPrevious bool   `json:"copyFromPrevious"`
}

type rawScene struct {
	TextSection string      `json:"textSection"`
	Background  string      `json:"background"`
	TextOverlay *rawOverlay `json:"textOverlay"`
	Images      []rawImage  `json:"images"`
}

// parseRecords accepts a bare array or an object wrapping a "scenes" array,
// tolerating code fences and surrounding prose.
func parseRecords(content string) ([]rawScene, error) {
	payload := llm.ExtractJSON(content)
	if payload == "" {
		return nil, errors.New("empty payload")
	}
	if !gjson.Valid(payload) {
		var v any
		err := json.Unmarshal([]byte(payload), &v)
		return nil, fmt.Errorf("malformed json: %w", err)
	}
	root := gjson.Parse(payload)
	list := root
	if root.IsObject() {
		list = root.Get("scenes")
	}
	if !list.IsArray() {
		return nil, ErrNotArray
	}
	var records []rawScene
	if err := json.Unmarshal([]byte(list.Raw), &records); err != nil {
		return nil, fmt.Errorf("decode scenes: %w", err)
	}
	return records, nil
}

func (p *Planner) toScene(rec rawScene) (scene.Scene, int) {
	out := scene.Scene{
		ID:          "scene-" + p.newID(),
		TextSection: strings.TrimSpace(rec.TextSection),
		Background:  strings.TrimSpace(rec.Background),
		Images:      make([]scene.ImageElement, 0, len(rec.Images)),
	}
	if rec.TextOverlay != nil {
		out.TextOverlay = &scene.TextOverlay{
			Text:      rec.TextOverlay.Text,
			Color:     rec.TextOverlay.Color,
			Style:     rec.TextOverlay.Style,
			Transform: mergeTransform(rec.TextOverlay.Transform),
		}
	}
	images := rec.Images
	dropped := 0
	if len(images) > p.maxImages {
		dropped = len(images) - p.maxImages
		images = images[:p.maxImages]
		p.logDecision("image_cap", "trimmed",
			fmt.Sprintf("scene listed %d images, keeping %d", len(rec.Images), p.maxImages))
	}
	for _, img := range images {
		kind := scene.ParseImageType(img.Type)
		if raw := strings.ToUpper(strings.TrimSpace(img.Type)); raw != "" && raw != string(kind) {
			p.logDecision("image_type", string(kind), fmt.Sprintf("unrecognized type %q", img.Type))
		}
		position := scene.ParsePosition(img.InitialPosition)
		if raw := strings.ToLower(strings.TrimSpace(img.InitialPosition)); raw != "" && raw != string(position) {
			p.logDecision("image_position", string(position), fmt.Sprintf("unrecognized position %q", img.InitialPosition))
		}
		out.Images = append(out.Images, scene.ImageElement{
			ID:               "img-" + p.newID(),
			Type:             kind,
			Query:            strings.TrimSpace(img.Query),
			InitialPosition:  position,
			Transform:        scene.DefaultTransform(),
			CopyFromPrevious: img.CopyFromPrevious,
		})
	}
	return out, dropped
}

func (p *Planner) logDecision(decisionType, result, reason string) {
	p.logger.Debug("plan normalized", logging.Args(logging.DecisionAttrs(decisionType, result, reason)...)...)
}

// mergeTransform lays any supplied fields over the default transform.
func mergeTransform(raw *rawTransform) scene.Transform {
	t := scene.DefaultTransform()
	if raw == nil {
		return t
	}
	if raw.X != nil {
		t.X = int(math.Round(*raw.X))
	}
	if raw.Y != nil {
		t.Y = int(math.Round(*raw.Y))
	}
	if raw.Scale != nil && *raw.Scale > 0 {
		t.Scale = *raw.Scale
	}
	if raw.Rotation != nil {
		t.Rotation = int(math.Round(*raw.Rotation))
	}
	if raw.FlipX != nil {
		t.FlipX = *raw.FlipX
	}
	if raw.FlipY != nil {
		t.FlipY = *raw.FlipY
	}
	return t
}
