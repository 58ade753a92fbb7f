package scene

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"scenecast/internal/fileutil"
)

// Plan is the on-disk form of a scene list used by the CLI edit loop.
type Plan struct {
	Scenes []Scene `json:"scenes" yaml:"scenes"`
}

// LoadPlan reads a JSON plan file. A bare JSON array of scenes is accepted too.
func LoadPlan(path string) ([]Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, errors.New("read plan: empty file")
	}
	if trimmed[0] == '[' {
		var scenes []Scene
		if err := json.Unmarshal([]byte(trimmed), &scenes); err != nil {
			return nil, fmt.Errorf("parse plan: %w", err)
		}
		return scenes, nil
	}
	var plan Plan
	if err := json.Unmarshal([]byte(trimmed), &plan); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	return plan.Scenes, nil
}

// SavePlan writes scenes as an indented JSON plan, replacing path atomically.
func SavePlan(path string, scenes []Scene) error {
	data, err := MarshalJSON(scenes)
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}
	return nil
}

// MarshalJSON encodes scenes as an indented plan document.
func MarshalJSON(scenes []Scene) ([]byte, error) {
	if scenes == nil {
		scenes = []Scene{}
	}
	data, err := json.MarshalIndent(Plan{Scenes: scenes}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode plan: %w", err)
	}
	return append(data, '\n'), nil
}

// MarshalYAML encodes scenes as a YAML plan document.
func MarshalYAML(scenes []Scene) ([]byte, error) {
	if scenes == nil {
		scenes = []Scene{}
	}
	data, err := yaml.Marshal(Plan{Scenes: scenes})
	if err != nil {
		return nil, fmt.Errorf("encode plan yaml: %w", err)
	}
	return data, nil
}

// WriteSRT writes one subtitle cue per scene. The cue text is the overlay text
// when present, otherwise the scene's script section.
func WriteSRT(w io.Writer, scenes []Scene) error {
	bw := bufio.NewWriter(w)
	cue := 0
	for _, s := range scenes {
		text := strings.TrimSpace(s.TextSection)
		if s.TextOverlay != nil && strings.TrimSpace(s.TextOverlay.Text) != "" {
			text = strings.TrimSpace(s.TextOverlay.Text)
		}
		if text == "" {
			continue
		}
		cue++
		if cue > 1 {
			if _, err := bw.WriteString("\n"); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n",
			cue,
			formatSRTTimestamp(s.StartTime),
			formatSRTTimestamp(s.EndTime),
			text,
		); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func formatSRTTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	msTotal := int(seconds*1000 + 0.5)
	hours := msTotal / 3_600_000
	msTotal %= 3_600_000
	minutes := msTotal / 60_000
	msTotal %= 60_000
	secs := msTotal / 1_000
	millis := msTotal % 1_000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}
