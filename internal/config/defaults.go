package config

const (
	defaultConfigPath        = "~/.config/scenecast/config.toml"
	projectConfigName        = "scenecast.toml"
	defaultDataDir           = "~/.local/share/scenecast"
	defaultLogDir            = "~/.local/share/scenecast/logs"
	defaultLogRetentionDays  = 30
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultAPIBind           = "127.0.0.1:7491"
	defaultAssemblyAIBaseURL = "https://api.assemblyai.com/v2"
	defaultAssemblyAIModel   = "universal"
	defaultAssemblyAIPoll    = 3
	defaultAssemblyAITimeout = 120
	defaultLLMBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel          = "google/gemini-2.5-flash"
	defaultLLMReferer        = "https://scenecast.local"
	defaultLLMTitle          = "scenecast planner"
	defaultLLMTimeoutSeconds = 120
	defaultMaxImagesPerScene = 3
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			LogDir:   defaultLogDir,
			CacheDir: defaultCacheDir(),
			APIBind:  defaultAPIBind,
		},
		AssemblyAI: AssemblyAI{
			BaseURL:             defaultAssemblyAIBaseURL,
			SpeechModel:         defaultAssemblyAIModel,
			PollIntervalSeconds: defaultAssemblyAIPoll,
			TimeoutSeconds:      defaultAssemblyAITimeout,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Planner: Planner{
			MaxImagesPerScene: defaultMaxImagesPerScene,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
