package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"scenecast/internal/config"
	"scenecast/internal/logging"
	"scenecast/internal/planner"
	"scenecast/internal/services/assemblyai"
	"scenecast/internal/services/llm"
	"scenecast/internal/transcript"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) transcriber(logger *slog.Logger) *assemblyai.Client {
	cfg := c.configValue()
	return assemblyai.New(assemblyai.Config{
		APIKey:         cfg.AssemblyAI.APIKey,
		BaseURL:        cfg.AssemblyAI.BaseURL,
		SpeechModel:    cfg.AssemblyAI.SpeechModel,
		PollInterval:   cfg.PollInterval(),
		TimeoutSeconds: cfg.AssemblyAI.TimeoutSeconds,
	}, assemblyai.WithLogger(logger))
}

func (c *commandContext) planner(logger *slog.Logger) *planner.Planner {
	cfg := c.configValue()
	llmCfg := cfg.GetLLM()
	client := llm.NewClient(llm.Config{
		APIKey:         llmCfg.APIKey,
		BaseURL:        llmCfg.BaseURL,
		Model:          llmCfg.Model,
		Referer:        llmCfg.Referer,
		Title:          llmCfg.Title,
		TimeoutSeconds: llmCfg.TimeoutSeconds,
	})
	return planner.New(client, planner.Config{
		MaxImagesPerScene: cfg.Planner.MaxImagesPerScene,
	}, planner.WithLogger(logger))
}

func (c *commandContext) openCache() (*transcript.Cache, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	cache, err := transcript.OpenCache(cfg.TranscriptCachePath())
	if err != nil {
		return nil, fmt.Errorf("open transcript cache: %w", err)
	}
	return cache, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
