package scene

import "strings"

// Canonical canvas dimensions all transforms are authored against.
const (
	CanvasWidth  = 1280
	CanvasHeight = 720
)

// Unresolved marks a scene time that has not been assigned yet.
const Unresolved = -1.0

// ImageType identifies how an image is sourced.
type ImageType string

const (
	ImageAIGenerated ImageType = "AI_GENERATED"
	ImageSearch      ImageType = "SEARCH"
)

// ParseImageType normalizes a planner-provided type, defaulting to SEARCH.
func ParseImageType(value string) ImageType {
	switch ImageType(strings.ToUpper(strings.TrimSpace(value))) {
	case ImageAIGenerated:
		return ImageAIGenerated
	default:
		return ImageSearch
	}
}

// Position is the suggested starting placement of an image.
type Position string

const (
	PositionCenter      Position = "center"
	PositionLeft        Position = "left"
	PositionRight       Position = "right"
	PositionTopLeft     Position = "top-left"
	PositionTopRight    Position = "top-right"
	PositionBottomLeft  Position = "bottom-left"
	PositionBottomRight Position = "bottom-right"
)

// Positions lists every valid placement.
var Positions = []Position{
	PositionCenter,
	PositionLeft,
	PositionRight,
	PositionTopLeft,
	PositionTopRight,
	PositionBottomLeft,
	PositionBottomRight,
}

// ParsePosition normalizes a planner-provided position, defaulting to center.
func ParsePosition(value string) Position {
	candidate := Position(strings.ToLower(strings.TrimSpace(value)))
	for _, p := range Positions {
		if p == candidate {
			return p
		}
	}
	return PositionCenter
}

// Transform positions an element on the canonical canvas.
type Transform struct {
	X        int     `json:"x" yaml:"x"`
	Y        int     `json:"y" yaml:"y"`
	Scale    float64 `json:"scale" yaml:"scale"`
	Rotation int     `json:"rotation" yaml:"rotation"`
	FlipX    bool    `json:"flipX" yaml:"flipX"`
	FlipY    bool    `json:"flipY" yaml:"flipY"`
}

// DefaultTransform returns the identity transform.
func DefaultTransform() Transform {
	return Transform{Scale: 1}
}

// TextOverlay is on-screen text for a scene.
type TextOverlay struct {
	Text      string    `json:"text" yaml:"text"`
	Color     string    `json:"color" yaml:"color"`
	Style     string    `json:"style" yaml:"style"`
	Transform Transform `json:"transform" yaml:"transform"`
}

// ImageElement is one image placed in a scene.
type ImageElement struct {
	ID               string    `json:"id" yaml:"id"`
	Type             ImageType `json:"type" yaml:"type"`
	Query            string    `json:"query" yaml:"query"`
	InitialPosition  Position  `json:"initialPosition" yaml:"initialPosition"`
	URL              string    `json:"url" yaml:"url"`
	Transform        Transform `json:"transform" yaml:"transform"`
	CopyFromPrevious bool      `json:"copyFromPrevious,omitempty" yaml:"copyFromPrevious,omitempty"`
}

// Key returns the propagation key shared by every occurrence of this visual.
func (img ImageElement) Key() PropagationKey {
	return PropagationKey{Query: img.Query, Type: img.Type}
}

// PropagationKey identifies the same visual concept across scenes. Image IDs
// are unique per occurrence and never participate in propagation.
type PropagationKey struct {
	Query string
	Type  ImageType
}

// Scene is one timed segment of the composition.
type Scene struct {
	ID          string         `json:"id" yaml:"id"`
	TextSection string         `json:"textSection" yaml:"textSection"`
	Background  string         `json:"background" yaml:"background"`
	TextOverlay *TextOverlay   `json:"textOverlay,omitempty" yaml:"textOverlay,omitempty"`
	Images      []ImageElement `json:"images" yaml:"images"`
	StartTime   float64        `json:"startTime" yaml:"startTime"`
	EndTime     float64        `json:"endTime" yaml:"endTime"`
}

// Matched reports whether the scene has a resolved start time.
func (s Scene) Matched() bool {
	return s.StartTime != Unresolved
}

// Duration returns EndTime-StartTime, or 0 for unresolved scenes.
func (s Scene) Duration() float64 {
	if !s.Matched() || s.EndTime < s.StartTime {
		return 0
	}
	return s.EndTime - s.StartTime
}

// imageByKey returns the index of the first image sharing key, or -1.
func (s Scene) imageByKey(key PropagationKey) int {
	for i, img := range s.Images {
		if img.Key() == key {
			return i
		}
	}
	return -1
}

// imageByID returns the index of the image with id, or -1.
func (s Scene) imageByID(id string) int {
	for i, img := range s.Images {
		if img.ID == id {
			return i
		}
	}
	return -1
}

// clone copies the scene so nested slices and pointers are not shared.
func (s Scene) clone() Scene {
	out := s
	if s.Images != nil {
		out.Images = make([]ImageElement, len(s.Images))
		copy(out.Images, s.Images)
	}
	if s.TextOverlay != nil {
		overlay := *s.TextOverlay
		out.TextOverlay = &overlay
	}
	return out
}

// IndexOf returns the position of the first scene with id, or -1.
func IndexOf(scenes []Scene, id string) int {
	for i, s := range scenes {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// CloneScenes deep-copies a scene list.
func CloneScenes(scenes []Scene) []Scene {
	if scenes == nil {
		return nil
	}
	out := make([]Scene, len(scenes))
	for i, s := range scenes {
		out[i] = s.clone()
	}
	return out
}
