package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	LlamaCloud LlamaCloudConfig `yaml:"llamacloud" mapstructure:"llamacloud"`
	Ollama     OllamaConfig     `yaml:"ollama" mapstructure:"ollama"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Synth      SynthConfig      `yaml:"synth" mapstructure:"synth"`
	Normalize  NormalizeConfig  `yaml:"normalize" mapstructure:"normalize"`
	Extract    ExtractConfig    `yaml:"extract" mapstructure:"extract"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// LlamaCloudConfig holds LlamaCloud API settings.
type LlamaCloudConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	PipelineID  string  `yaml:"pipeline_id" mapstructure:"pipeline_id"`
	IndexName   string  `yaml:"index_name" mapstructure:"index_name"`
	ProjectName string  `yaml:"project_name" mapstructure:"project_name"`
	RateRPS     float64 `yaml:"rate_rps" mapstructure:"rate_rps"`
	RateBurst   int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// OllamaConfig holds Ollama cloud API settings.
type OllamaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// SynthConfig selects and tunes the answer synthesizer.
type SynthConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// NormalizeConfig tunes OCR text cleanup.
type NormalizeConfig struct {
	MinRun int `yaml:"min_run" mapstructure:"min_run"`
}

// ExtractConfig configures hosted extraction runs.
type ExtractConfig struct {
	AgentID          string `yaml:"agent_id" mapstructure:"agent_id"`
	PollIntervalSecs int    `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
	TimeoutSecs      int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// StoreConfig configures the chat history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// RetryConfig tunes retry and circuit breaker behavior for outbound API
// calls. Zero values fall back to the resilience package defaults.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	Multiplier       float64 `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
	FailureThreshold int     `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int     `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("llamacloud.base_url", "https://api.cloud.llamaindex.ai/api/v1")
	v.SetDefault("llamacloud.index_name", "NGL_Strategy")
	v.SetDefault("llamacloud.project_name", "Default")
	v.SetDefault("llamacloud.rate_rps", 5.0)
	v.SetDefault("llamacloud.rate_burst", 10)
	v.SetDefault("ollama.base_url", "https://ollama.com")
	v.SetDefault("ollama.model", "gpt-oss:120b")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("synth.provider", "ollama")
	v.SetDefault("synth.temperature", 0.2)
	v.SetDefault("synth.max_tokens", 1024)
	v.SetDefault("normalize.min_run", 3)
	v.SetDefault("extract.poll_interval_secs", 5)
	v.SetDefault("extract.timeout_secs", 300)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "rim-assistant.db")
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 500)
	v.SetDefault("retry.jitter_fraction", 0.25)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration required for the given mode is
// present. Modes correspond to CLI commands.
func (c *Config) Validate(mode string) error {
	var missing []string

	requireLlamaCloud := func() {
		if c.LlamaCloud.Key == "" {
			missing = append(missing, "llamacloud.key is required")
		}
		if c.LlamaCloud.PipelineID == "" && c.LlamaCloud.IndexName == "" {
			missing = append(missing, "llamacloud.pipeline_id or llamacloud.index_name is required")
		}
	}
	requireSynth := func() {
		switch c.Synth.Provider {
		case "ollama":
			if c.Ollama.Key == "" {
				missing = append(missing, "ollama.key is required")
			}
		case "anthropic":
			if c.Anthropic.Key == "" {
				missing = append(missing, "anthropic.key is required")
			}
		default:
			missing = append(missing, "synth.provider must be \"ollama\" or \"anthropic\"")
		}
	}
	requireStore := func() {
		switch c.Store.Driver {
		case "sqlite":
			if c.Store.Path == "" {
				missing = append(missing, "store.path is required")
			}
		case "postgres":
			if c.Store.DatabaseURL == "" {
				missing = append(missing, "store.database_url is required")
			}
		default:
			missing = append(missing, "store.driver must be \"sqlite\" or \"postgres\"")
		}
	}

	switch mode {
	case "ask":
		requireLlamaCloud()
		requireSynth()
	case "chat":
		requireLlamaCloud()
		requireSynth()
		requireStore()
	case "files":
		requireLlamaCloud()
	case "extract":
		requireLlamaCloud()
		if c.Extract.AgentID == "" {
			missing = append(missing, "extract.agent_id is required")
		}
	case "serve":
		requireLlamaCloud()
		requireSynth()
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			missing = append(missing, "server.port must be > 0 and <= 65535")
		}
	case "verify":
		// verify reports missing secrets itself
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Normalize.MinRun < 0 {
		missing = append(missing, "normalize.min_run must be >= 0")
	}

	if len(missing) > 0 {
		return eris.New("config: " + strings.Join(missing, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
