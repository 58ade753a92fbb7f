package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"scenecast/internal/logging"
	"scenecast/internal/services"
	"scenecast/internal/services/assemblyai"
	"scenecast/internal/transcript"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	var noCache bool

	cmd := &cobra.Command{
		Use:   "transcribe <audio>",
		Short: "Transcribe an audio file into word-level timings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			audioPath := strings.TrimSpace(args[0])
			outputPath = resolveOutputPath(outputPath, audioPath, "transcript", ".json")
			audio, err := os.ReadFile(audioPath)
			if err != nil {
				return fmt.Errorf("read audio: %w", err)
			}
			if len(audio) == 0 {
				return fmt.Errorf("audio file %s is empty", audioPath)
			}

			digest := transcript.Digest(audio)
			var cache *transcript.Cache
			if !noCache {
				cache, err = ctx.openCache()
				if err != nil {
					return err
				}
				defer cache.Close()
				cached, ok, err := cache.Get(cmd.Context(), digest)
				if err != nil {
					logger.Warn("transcript cache lookup failed", logging.Error(err))
				} else if ok {
					logger.Info("transcript cache hit",
						logging.String("audio", filepath.Base(audioPath)),
						logging.Int("words", len(cached.Words)),
					)
					return writeTranscript(cmd, outputPath, *cached)
				}
			}

			if err := cfg.RequireAssemblyAI(); err != nil {
				return err
			}
			client := ctx.transcriber(logger)
			result, err := client.Transcribe(cmd.Context(), audio, func(status assemblyai.Status) {
				logger.Info("transcription progress", logging.String("status", string(status)))
			})
			if err != nil {
				return fmt.Errorf("transcribe %s: %s", filepath.Base(audioPath), services.UserMessage(err))
			}
			if cache != nil {
				if err := cache.Put(cmd.Context(), digest, result); err != nil {
					logger.Warn("failed to cache transcript", logging.Error(err))
				}
			}
			return writeTranscript(cmd, outputPath, result)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the transcript JSON to this file (or into this directory) instead of stdout")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Skip the transcript cache")
	return cmd
}

func writeTranscript(cmd *cobra.Command, outputPath string, result transcript.Result) error {
	if strings.TrimSpace(outputPath) == "" {
		return writeJSON(cmd, result)
	}
	if err := writeJSONFile(outputPath, result); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d words (%.1fs) to %s\n", len(result.Words), result.AudioDuration, outputPath)
	return nil
}

func loadTranscript(path string) (transcript.Result, error) {
	var result transcript.Result
	if strings.TrimSpace(path) == "" {
		return result, fmt.Errorf("--transcript is required")
	}
	if err := readJSONFile(path, &result); err != nil {
		return result, fmt.Errorf("load transcript: %w", err)
	}
	if err := result.Validate(); err != nil {
		return result, fmt.Errorf("load transcript %s: %w", path, err)
	}
	return result, nil
}
