package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"scenecast/internal/scene"
	"scenecast/internal/services"
	"scenecast/internal/workflow"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var transcriptPath string
	var instructions string
	var outputPath string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate and align a scene plan from a transcript",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if strings.TrimSpace(instructions) == "" {
				return errors.New("--instructions is required")
			}
			result, err := loadTranscript(transcriptPath)
			if err != nil {
				return err
			}
			if err := cfg.RequireLLM(); err != nil {
				return err
			}

			session := workflow.NewSession(nil, ctx.planner(logger), workflow.WithLogger(logger))
			if _, err := session.UseTranscript(result); err != nil {
				return errors.New(services.UserMessage(err))
			}
			snap, err := session.SubmitInstructions(cmd.Context(), instructions)
			if err != nil {
				return errors.New(services.UserMessage(err))
			}
			return writePlan(cmd, outputPath, snap.Scenes)
		},
	}

	cmd.Flags().StringVarP(&transcriptPath, "transcript", "t", "", "Transcript JSON produced by `scenecast transcribe`")
	cmd.Flags().StringVarP(&instructions, "instructions", "i", "", "Creative direction for the planner")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the plan JSON to this file instead of stdout")
	return cmd
}

func newAlignCommand(ctx *commandContext) *cobra.Command {
	var transcriptPath string
	var planPath string
	var outputPath string

	cmd := &cobra.Command{
		Use:   "align",
		Short: "Re-time an existing plan against a transcript",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			result, err := loadTranscript(transcriptPath)
			if err != nil {
				return err
			}
			scenes, err := loadPlanFlag(planPath)
			if err != nil {
				return err
			}
			aligned := scene.Align(scenes, result.Words, scene.WithLogger(logger))
			target := outputPath
			if strings.TrimSpace(target) == "" {
				target = planPath
			}
			return writePlan(cmd, target, aligned)
		},
	}

	cmd.Flags().StringVarP(&transcriptPath, "transcript", "t", "", "Transcript JSON produced by `scenecast transcribe`")
	cmd.Flags().StringVarP(&planPath, "plan", "p", "", "Plan JSON to re-time")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination plan file (defaults to rewriting --plan)")
	return cmd
}

func loadPlanFlag(path string) ([]scene.Scene, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("--plan is required")
	}
	scenes, err := scene.LoadPlan(path)
	if err != nil {
		return nil, err
	}
	if len(scenes) == 0 {
		return nil, fmt.Errorf("plan %s has no scenes", path)
	}
	return scenes, nil
}

func writePlan(cmd *cobra.Command, outputPath string, scenes []scene.Scene) error {
	if strings.TrimSpace(outputPath) == "" {
		data, err := scene.MarshalJSON(scenes)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := scene.SavePlan(outputPath, scenes); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d scenes (%.1fs) to %s\n", len(scenes), scene.TotalDuration(scenes), outputPath)
	return nil
}
