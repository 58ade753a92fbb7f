package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"scenecast/internal/config"
	"scenecast/internal/scene"
	"scenecast/internal/testsupport"
)

type cliResult struct {
	stdout string
	err    error
}

func runCLI(t *testing.T, args ...string) cliResult {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return cliResult{stdout: out.String(), err: err}
}

func newCLIConfig(t *testing.T, opts ...testsupport.ConfigOption) (*config.Config, string) {
	t.Helper()
	opts = append([]testsupport.ConfigOption{testsupport.WithLogLevel("error")}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	return cfg, testsupport.WriteConfigFile(t, cfg)
}

// writeAlignedPlan stores the sample plan, aligned to the sample transcript.
func writeAlignedPlan(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.json")
	aligned := scene.Align(testsupport.SampleScenes(), testsupport.SampleTranscript().Words)
	if err := scene.SavePlan(path, aligned); err != nil {
		t.Fatalf("save plan: %v", err)
	}
	return path
}

func mustLoadPlan(t *testing.T, path string) []scene.Scene {
	t.Helper()
	scenes, err := scene.LoadPlan(path)
	if err != nil {
		t.Fatalf("load plan: %v", err)
	}
	return scenes
}
