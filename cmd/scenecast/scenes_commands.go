package main

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"scenecast/internal/fileutil"
	"scenecast/internal/scene"
)

func newScenesCommand() *cobra.Command {
	var planPath string

	scenesCmd := &cobra.Command{
		Use:         "scenes",
		Short:       "Inspect and edit a scene plan",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}
	scenesCmd.PersistentFlags().StringVarP(&planPath, "plan", "p", "", "Plan JSON file")

	scenesCmd.AddCommand(newScenesListCommand(&planPath))
	scenesCmd.AddCommand(newScenesSetURLCommand(&planPath))
	scenesCmd.AddCommand(newScenesSetTransformCommand(&planPath))
	scenesCmd.AddCommand(newScenesAtCommand(&planPath))
	scenesCmd.AddCommand(newScenesExportCommand(&planPath))
	return scenesCmd
}

func newScenesListCommand(planPath *string) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scenes with their timings and images",
		RunE: func(cmd *cobra.Command, args []string) error {
			scenes, err := loadPlanFlag(*planPath)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, scenes)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderScenesTable(scenes))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}

func renderScenesTable(scenes []scene.Scene) string {
	rows := make([][]string, 0, len(scenes))
	for i, s := range scenes {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			s.ID,
			formatSeconds(s.StartTime),
			formatSeconds(s.EndTime),
			truncate(s.TextSection, 40),
			describeImages(s.Images),
		})
	}
	return renderTable(
		[]string{"#", "Scene", "Start", "End", "Text", "Images"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
		fmt.Sprintf("%d scenes, %ss total", len(scenes), formatSeconds(scene.TotalDuration(scenes))),
	)
}

func describeImages(images []scene.ImageElement) string {
	if len(images) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(images))
	for _, img := range images {
		label := fmt.Sprintf("%s %q", img.ID, truncate(img.Query, 24))
		if img.URL == "" {
			label += " (no url)"
		}
		if img.CopyFromPrevious {
			label += " ↺"
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, "\n")
}

func newScenesSetURLCommand(planPath *string) *cobra.Command {
	var sceneID, imageID, url string
	cmd := &cobra.Command{
		Use:   "set-url",
		Short: "Set an image URL and propagate it to every matching image",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(url) == "" {
				return errors.New("--url is required")
			}
			return editImage(cmd, *planPath, sceneID, imageID, func(img *scene.ImageElement) {
				img.URL = strings.TrimSpace(url)
			})
		},
	}
	cmd.Flags().StringVar(&sceneID, "scene", "", "Scene id")
	cmd.Flags().StringVar(&imageID, "image", "", "Image id within the scene")
	cmd.Flags().StringVar(&url, "url", "", "Image URL")
	return cmd
}

func newScenesSetTransformCommand(planPath *string) *cobra.Command {
	var sceneID, imageID string
	var x, y, rotation int
	var scale float64
	var flipX, flipY bool
	cmd := &cobra.Command{
		Use:   "set-transform",
		Short: "Change an image transform and carry it forward to copied images",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("scale") && scale <= 0 {
				return errors.New("--scale must be positive")
			}
			return editImage(cmd, *planPath, sceneID, imageID, func(img *scene.ImageElement) {
				if flags.Changed("x") {
					img.Transform.X = x
				}
				if flags.Changed("y") {
					img.Transform.Y = y
				}
				if flags.Changed("scale") {
					img.Transform.Scale = scale
				}
				if flags.Changed("rotation") {
					img.Transform.Rotation = rotation
				}
				if flags.Changed("flip-x") {
					img.Transform.FlipX = flipX
				}
				if flags.Changed("flip-y") {
					img.Transform.FlipY = flipY
				}
			})
		},
	}
	cmd.Flags().StringVar(&sceneID, "scene", "", "Scene id")
	cmd.Flags().StringVar(&imageID, "image", "", "Image id within the scene")
	cmd.Flags().IntVar(&x, "x", 0, "Horizontal offset on the 1280x720 canvas")
	cmd.Flags().IntVar(&y, "y", 0, "Vertical offset on the 1280x720 canvas")
	cmd.Flags().Float64Var(&scale, "scale", 1, "Scale factor")
	cmd.Flags().IntVar(&rotation, "rotation", 0, "Rotation in degrees")
	cmd.Flags().BoolVar(&flipX, "flip-x", false, "Mirror horizontally")
	cmd.Flags().BoolVar(&flipY, "flip-y", false, "Mirror vertically")
	return cmd
}

// editImage applies mutate to one image, runs propagation and rewrites the plan.
func editImage(cmd *cobra.Command, planPath, sceneID, imageID string, mutate func(*scene.ImageElement)) error {
	sceneID = strings.TrimSpace(sceneID)
	imageID = strings.TrimSpace(imageID)
	if sceneID == "" || imageID == "" {
		return errors.New("--scene and --image are required")
	}
	scenes, err := loadPlanFlag(planPath)
	if err != nil {
		return err
	}
	idx := scene.IndexOf(scenes, sceneID)
	if idx < 0 {
		return fmt.Errorf("scene %s not found in %s", sceneID, planPath)
	}
	edited := scene.CloneScenes(scenes[idx : idx+1])[0]
	found := false
	for i := range edited.Images {
		if edited.Images[i].ID == imageID {
			mutate(&edited.Images[i])
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("image %s not found in scene %s", imageID, sceneID)
	}

	updated := scene.ApplyEdit(scenes, edited)
	if err := scene.SavePlan(planPath, updated); err != nil {
		return err
	}
	changed := countChangedScenes(scenes, updated)
	fmt.Fprintf(cmd.OutOrStdout(), "Updated %s/%s (%d scenes changed)\n", sceneID, imageID, changed)
	return nil
}

func countChangedScenes(before, after []scene.Scene) int {
	changed := 0
	for i := range after {
		if i >= len(before) {
			changed++
			continue
		}
		a, _ := scene.MarshalJSON(before[i : i+1])
		b, _ := scene.MarshalJSON(after[i : i+1])
		if !bytes.Equal(a, b) {
			changed++
		}
	}
	return changed
}

func newScenesAtCommand(planPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "at <seconds>",
		Short: "Show the scene on screen at a playback time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := strconv.ParseFloat(strings.TrimSpace(args[0]), 64)
			if err != nil || t < 0 {
				return fmt.Errorf("invalid time %q: expected non-negative seconds", args[0])
			}
			scenes, err := loadPlanFlag(*planPath)
			if err != nil {
				return err
			}
			active, idx, _ := scene.ActiveAt(scenes, t)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scene %d/%d: %s\n", idx+1, len(scenes), active.ID)
			fmt.Fprintf(out, "Time:   %s-%ss\n", formatSeconds(active.StartTime), formatSeconds(active.EndTime))
			fmt.Fprintf(out, "Text:   %s\n", active.TextSection)
			if active.TextOverlay != nil && active.TextOverlay.Text != "" {
				fmt.Fprintf(out, "Overlay: %s\n", active.TextOverlay.Text)
			}
			fmt.Fprintf(out, "Images: %s\n", strings.ReplaceAll(describeImages(active.Images), "\n", ", "))
			return nil
		},
	}
}

func newScenesExportCommand(planPath *string) *cobra.Command {
	var format, outputPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the plan as SRT, YAML or JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			scenes, err := loadPlanFlag(*planPath)
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			var ext string
			switch strings.ToLower(strings.TrimSpace(format)) {
			case "srt":
				ext = ".srt"
				err = scene.WriteSRT(&buf, scenes)
			case "yaml", "yml":
				ext = ".yaml"
				var data []byte
				data, err = scene.MarshalYAML(scenes)
				buf.Write(data)
			case "json":
				ext = ".json"
				var data []byte
				data, err = scene.MarshalJSON(scenes)
				buf.Write(data)
			default:
				return fmt.Errorf("unsupported format %q (use srt, yaml or json)", format)
			}
			if err != nil {
				return err
			}
			target := resolveOutputPath(outputPath, *planPath, "scenes", ext)
			if target == "" {
				_, err = cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := fileutil.WriteFileAtomic(target, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d scenes to %s\n", len(scenes), target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "srt", "Export format: srt, yaml or json")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write to this file (or into this directory) instead of stdout")
	return cmd
}

func formatSeconds(value float64) string {
	if value == scene.Unresolved {
		return "?"
	}
	return strconv.FormatFloat(value, 'f', 2, 64)
}

func truncate(value string, limit int) string {
	runes := []rune(strings.TrimSpace(value))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit-1]) + "…"
}
