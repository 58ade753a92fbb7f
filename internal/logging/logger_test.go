package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scenecast/internal/config"
	"scenecast/internal/logging"
	"scenecast/internal/services"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller", logging.String(logging.FieldComponent, "planner"))

	content := readLog(t, logPath)
	if strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
	if !strings.Contains(content, "INFO [planner] - message without caller") {
		t.Fatalf("unexpected console header: %q", content)
	}
	if strings.Contains(content, "\x1b[") {
		t.Fatalf("expected no colour codes in file output, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message with caller")

	if content := readLog(t, logPath); !strings.Contains(content, ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerSubjectAndHighlights(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	color := true
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}, Color: &color})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.With(logging.String(logging.FieldSessionID, "0123456789abcdef"), logging.String(logging.FieldStage, "editing")).
		Warn("scene text not found", logging.String("scene_id", "scene-1"), logging.String(logging.FieldEventType, "scene_unmatched"))

	content := readLog(t, logPath)
	if !strings.Contains(content, "Session 01234567 (editing)") {
		t.Fatalf("expected session subject, got %q", content)
	}
	if !strings.Contains(content, "\x1b[33mWARN\x1b[0m") {
		t.Fatalf("expected coloured level label, got %q", content)
	}
	eventIdx := strings.Index(content, "event_type: scene_unmatched")
	sceneIdx := strings.Index(content, "scene_id: scene-1")
	if eventIdx < 0 || sceneIdx < 0 || eventIdx > sceneIdx {
		t.Fatalf("expected event_type before scene_id, got %q", content)
	}
}

func TestJSONFileTee(t *testing.T) {
	dir := t.TempDir()
	consolePath := filepath.Join(dir, "console.log")
	jsonPath := filepath.Join(dir, "logs", "scenecast.log")
	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{consolePath},
		JSONFile:    jsonPath,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("plan generated", logging.Int("scene_count", 4))

	line := strings.TrimSpace(readLog(t, jsonPath))
	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		t.Fatalf("expected JSON record, got %q: %v", line, err)
	}
	if record["msg"] != "plan generated" || record["level"] != "info" || record["scene_count"] != float64(4) {
		t.Fatalf("unexpected JSON record: %v", record)
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", record)
	}
	if !strings.Contains(readLog(t, consolePath), "scene_count: 4") {
		t.Fatal("expected console copy of the record")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Format = "json"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello")
	if !strings.Contains(readLog(t, cfg.LogFilePath()), `"msg":"hello"`) {
		t.Fatal("expected record in configured log file")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithSessionID(ctx, "sess-9")
	ctx = services.WithStage(ctx, "transcribing")
	ctx = services.WithRequestID(ctx, "req-xyz")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WithContext(ctx, logger).Info("contextual log")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	for key, want := range map[string]string{
		logging.FieldSessionID:     "sess-9",
		logging.FieldStage:         "transcribing",
		logging.FieldCorrelationID: "req-xyz",
	} {
		if record[key] != want {
			t.Fatalf("field %s = %v, want %q", key, record[key], want)
		}
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WarnWithContext(logger, "poll slow", "poll_slow", logging.String(logging.FieldImpact, "transcript delayed"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record[logging.FieldEventType] != "poll_slow" || record[logging.FieldImpact] != "transcript delayed" {
		t.Fatalf("unexpected record: %v", record)
	}
	if record[logging.FieldErrorHint] == nil {
		t.Fatal("expected default error hint")
	}
	logging.WarnWithContext(nil, "ignored", "noop")
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "scenecast-old.log")
	active := filepath.Join(dir, "scenecast.log")
	fresh := filepath.Join(dir, "scenecast-new.log")
	other := filepath.Join(dir, "notes.txt")
	for _, path := range []string{old, active, fresh, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().AddDate(0, 0, -10)
	for _, path := range []string{old, active, other} {
		if err := os.Chtimes(path, past, past); err != nil {
			t.Fatal(err)
		}
	}

	removed := logging.CleanupOldLogs(logging.NewNop(), dir, "*.log", 5, active)
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatal("expected old log to be pruned")
	}
	for _, path := range []string{active, fresh, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to remain: %v", path, err)
		}
	}
	if logging.CleanupOldLogs(nil, dir, "*.log", 0) != 0 {
		t.Fatal("retention 0 should disable pruning")
	}
}

func TestStatusSampler(t *testing.T) {
	s := logging.NewStatusSampler(3)
	var emitted []bool
	for _, status := range []string{"queued", "queued", "processing", "processing", "processing", "Processing", "completed"} {
		emitted = append(emitted, s.ShouldLog(status))
	}
	want := []bool{true, false, true, false, false, true, true}
	for i := range want {
		if emitted[i] != want[i] {
			t.Fatalf("poll %d: got %v want %v (all %v)", i, emitted[i], want[i], emitted)
		}
	}
	s.Reset()
	if !s.ShouldLog("completed") {
		t.Fatal("expected emit after reset")
	}
}
