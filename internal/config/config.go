// Package config loads the single configuration surface of the bot from an
// optional config.yaml, a .env file and environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Log       LogConfig       `mapstructure:"log"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge"`
	Lesson    LessonConfig    `mapstructure:"lesson"`
	Dialogue  DialogueConfig  `mapstructure:"dialogue"`
	Reminder  ReminderConfig  `mapstructure:"reminder"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
}

type AppConfig struct {
	Env string `mapstructure:"env" validate:"oneof=dev prod test"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

type TelegramConfig struct {
	Token                string `mapstructure:"token"`
	Debug                bool   `mapstructure:"debug"`
	PollTimeout          int    `mapstructure:"poll_timeout" validate:"min=1,max=600"`
	MaxConcurrentUpdates int    `mapstructure:"max_concurrent_updates" validate:"min=1"`
}

type DatabaseConfig struct {
	// URL is either a postgres:// URL or a SQLite path / sqlite:// URL.
	URL string `mapstructure:"url" validate:"required"`
}

type LLMConfig struct {
	Provider    string        `mapstructure:"provider" validate:"oneof=openai lm_studio ollama azure anthropic gemini openrouter mock"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Temperature float64       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int           `mapstructure:"max_tokens" validate:"min=64"`

	OpenAI struct {
		APIKey  string `mapstructure:"api_key"`
		Model   string `mapstructure:"model"`
		BaseURL string `mapstructure:"base_url"`
	} `mapstructure:"openai"`

	LMStudio struct {
		URL    string `mapstructure:"url"`
		Model  string `mapstructure:"model"`
		APIKey string `mapstructure:"api_key"`
	} `mapstructure:"lm_studio"`

	Ollama struct {
		URL   string `mapstructure:"url"`
		Model string `mapstructure:"model"`
	} `mapstructure:"ollama"`

	Azure struct {
		APIKey     string `mapstructure:"api_key"`
		Endpoint   string `mapstructure:"endpoint"`
		APIVersion string `mapstructure:"api_version"`
		Deployment string `mapstructure:"deployment"`
	} `mapstructure:"azure"`

	Anthropic struct {
		APIKey string `mapstructure:"api_key"`
		Model  string `mapstructure:"model"`
	} `mapstructure:"anthropic"`

	Gemini struct {
		APIKey string `mapstructure:"api_key"`
		Model  string `mapstructure:"model"`
	} `mapstructure:"gemini"`

	OpenRouter struct {
		APIKey  string `mapstructure:"api_key"`
		Model   string `mapstructure:"model"`
		BaseURL string `mapstructure:"base_url"`
	} `mapstructure:"openrouter"`

	Retry struct {
		MaxAttempts int           `mapstructure:"max_attempts" validate:"min=1,max=10"`
		InitialWait time.Duration `mapstructure:"initial_wait"`
		MaxWait     time.Duration `mapstructure:"max_wait"`
		Multiplier  float64       `mapstructure:"multiplier" validate:"gte=1"`
	} `mapstructure:"retry"`
}

type EmbeddingConfig struct {
	Provider string `mapstructure:"provider" validate:"oneof=openai lm_studio ollama gemini hash"`
	Model    string `mapstructure:"model"`
}

type KnowledgeConfig struct {
	VectorStorePath string `mapstructure:"vector_store_path" validate:"required"`
	Collection      string `mapstructure:"collection" validate:"required"`
	DataFile        string `mapstructure:"data_file"`
	ChunkSize       int    `mapstructure:"chunk_size" validate:"min=100"`
	ChunkOverlap    int    `mapstructure:"chunk_overlap" validate:"min=0"`
	CacheSize       int    `mapstructure:"cache_size" validate:"min=1"`
	TopK            int    `mapstructure:"top_k" validate:"min=1,max=20"`
}

// LessonConfig is the one place the lesson thresholds are defined.
type LessonConfig struct {
	QuestionsPerLesson int `mapstructure:"questions_per_lesson" validate:"min=1,max=50"`
	// PassThreshold is a percentage in [1,100].
	PassThreshold int `mapstructure:"pass_threshold" validate:"min=1,max=100"`
}

type DialogueConfig struct {
	Backend  string        `mapstructure:"backend" validate:"oneof=memory redis"`
	TTL      time.Duration `mapstructure:"ttl"`
	Capacity int           `mapstructure:"capacity" validate:"min=1"`
	RedisURL string        `mapstructure:"redis_url"`
}

type ReminderConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	IntervalHours int           `mapstructure:"interval_hours" validate:"min=1"`
	CheckEvery    time.Duration `mapstructure:"check_every"`
}

type AnalyticsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port" validate:"min=1,max=65535"`
}

// envAliases binds the bare environment names used by existing deployments
// in addition to the RISKBOT_ prefixed ones.
var envAliases = map[string]string{
	"app.env":                     "APP_ENV",
	"log.level":                   "LOG_LEVEL",
	"log.format":                  "LOG_FORMAT",
	"telegram.token":              "TELEGRAM_BOT_TOKEN",
	"database.url":                "DATABASE_URL",
	"llm.provider":                "LLM_PROVIDER",
	"llm.openai.api_key":          "OPENAI_API_KEY",
	"llm.openai.model":            "OPENAI_MODEL",
	"llm.temperature":             "OPENAI_TEMPERATURE",
	"llm.max_tokens":              "OPENAI_MAX_TOKENS",
	"llm.lm_studio.url":           "LM_STUDIO_URL",
	"llm.lm_studio.model":         "LM_STUDIO_MODEL",
	"llm.lm_studio.api_key":       "LM_STUDIO_API_KEY",
	"llm.ollama.url":              "OLLAMA_URL",
	"llm.ollama.model":            "OLLAMA_MODEL",
	"llm.azure.api_key":           "AZURE_OPENAI_API_KEY",
	"llm.azure.endpoint":          "AZURE_OPENAI_ENDPOINT",
	"llm.azure.api_version":       "AZURE_OPENAI_API_VERSION",
	"llm.azure.deployment":        "AZURE_OPENAI_DEPLOYMENT_NAME",
	"llm.anthropic.api_key":       "ANTHROPIC_API_KEY",
	"llm.gemini.api_key":          "GEMINI_API_KEY",
	"llm.openrouter.api_key":      "OPENROUTER_API_KEY",
	"knowledge.vector_store_path": "VECTOR_STORE_PATH",
	"knowledge.chunk_size":        "CHUNK_SIZE",
	"knowledge.chunk_overlap":     "CHUNK_OVERLAP",
	"lesson.pass_threshold":       "MIN_LESSON_SCORE",
	"lesson.questions_per_lesson": "QUESTIONS_PER_LESSON",
	"reminder.interval_hours":     "REMINDER_INTERVAL_HOURS",
	"dialogue.redis_url":          "REDIS_URL",
	"analytics.enabled":           "ANALYTICS_ENABLED",
	"analytics.port":              "ANALYTICS_PORT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "prod")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("telegram.poll_timeout", 60)
	v.SetDefault("telegram.max_concurrent_updates", 32)

	v.SetDefault("database.url", "riskbot.db")

	v.SetDefault("llm.provider", "lm_studio")
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.openai.model", "gpt-4o-mini")
	v.SetDefault("llm.lm_studio.url", "http://localhost:1234/v1")
	v.SetDefault("llm.lm_studio.model", "qwen2.5-7b-instruct")
	v.SetDefault("llm.lm_studio.api_key", "lm-studio")
	v.SetDefault("llm.ollama.url", "http://localhost:11434/v1")
	v.SetDefault("llm.ollama.model", "llama3.1")
	v.SetDefault("llm.azure.api_version", "2024-02-15-preview")
	v.SetDefault("llm.anthropic.model", "claude-haiku")
	v.SetDefault("llm.gemini.model", "gemini-flash")
	v.SetDefault("llm.openrouter.model", "google/gemini-2.0-flash-exp")
	v.SetDefault("llm.retry.max_attempts", 1)
	v.SetDefault("llm.retry.initial_wait", time.Second)
	v.SetDefault("llm.retry.max_wait", 10*time.Second)
	v.SetDefault("llm.retry.multiplier", 2.0)

	v.SetDefault("embedding.provider", "hash")

	v.SetDefault("knowledge.vector_store_path", "./data/vectorstore")
	v.SetDefault("knowledge.collection", "bank_risk_methodology")
	v.SetDefault("knowledge.data_file", "./data/methodology.jsonl")
	v.SetDefault("knowledge.chunk_size", 1000)
	v.SetDefault("knowledge.chunk_overlap", 200)
	v.SetDefault("knowledge.cache_size", 256)
	v.SetDefault("knowledge.top_k", 3)

	v.SetDefault("lesson.questions_per_lesson", 5)
	v.SetDefault("lesson.pass_threshold", 80)

	v.SetDefault("dialogue.backend", "memory")
	v.SetDefault("dialogue.ttl", 2*time.Hour)
	v.SetDefault("dialogue.capacity", 10000)
	v.SetDefault("dialogue.redis_url", "redis://localhost:6379/0")

	v.SetDefault("reminder.enabled", true)
	v.SetDefault("reminder.interval_hours", 8)
	v.SetDefault("reminder.check_every", time.Hour)

	v.SetDefault("analytics.enabled", true)
	v.SetDefault("analytics.port", 8000)
}

// Load reads configuration from dir/config.yaml (optional), .env (optional)
// and the environment. Environment values win over the file.
func Load(dir string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", slog.Any("error", err))
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("RISKBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		if err := v.BindEnv(key, "RISKBOT_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate runs struct tag validation and the cross-field checks that tags
// cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.LLM.Timeout < 30*time.Second || c.LLM.Timeout > 120*time.Second {
		return fmt.Errorf("invalid config: llm.timeout must be between 30s and 120s, got %s", c.LLM.Timeout)
	}
	if c.Knowledge.ChunkOverlap >= c.Knowledge.ChunkSize {
		return fmt.Errorf("invalid config: knowledge.chunk_overlap (%d) must be smaller than chunk_size (%d)",
			c.Knowledge.ChunkOverlap, c.Knowledge.ChunkSize)
	}
	if c.Dialogue.Backend == "redis" && c.Dialogue.RedisURL == "" {
		return fmt.Errorf("invalid config: dialogue.redis_url is required for the redis backend")
	}
	if c.Dialogue.TTL <= 0 {
		return fmt.Errorf("invalid config: dialogue.ttl must be positive")
	}
	return nil
}

// RequireTelegram reports whether the bot token is present. Only the run
// command needs it, so it is not part of Validate.
func (c *Config) RequireTelegram() error {
	if c.Telegram.Token == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required to run the bot")
	}
	return nil
}

// IsDev reports whether the app runs in development mode.
func (c *Config) IsDev() bool {
	return c.App.Env == "dev"
}
