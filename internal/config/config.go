package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Storage   StorageConfig
	AI        AIConfig
	Speech    SpeechConfig
	Interview InterviewConfig `mapstructure:"interview"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// Runtime flags set from the command line, not the config file.
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
}

type AIConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
	RequestTimeout time.Duration `mapstructure:"request_timeout_seconds"`
}

type SpeechConfig struct {
	TranscribeModel string        `mapstructure:"transcribe_model"`
	TTSModel        string        `mapstructure:"tts_model"`
	TTSVoice        string        `mapstructure:"tts_voice"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout_seconds"`
}

// InterviewConfig holds the tuning constants of the orchestration engine.
// The score thresholds are deliberately configuration, not code: they are
// validated against the seeded bank's difficulty curve, not guessed.
type InterviewConfig struct {
	MaxQuestions      int     `mapstructure:"max_questions"`
	MaxFollowups      int     `mapstructure:"max_followups"`
	FollowupLow       float64 `mapstructure:"followup_low"`
	FollowupHigh      float64 `mapstructure:"followup_high"`
	FollowupWeight    float64 `mapstructure:"followup_weight"`
	PromoteThreshold  float64 `mapstructure:"promote_threshold"`
	DemoteThreshold   float64 `mapstructure:"demote_threshold"`
	ProgressionWindow int     `mapstructure:"progression_window"`
	StrongMatchScore  float64 `mapstructure:"strong_match_score"`
	FallbackScore     float64 `mapstructure:"fallback_score"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("INTERVIEW")
	viper.AutomaticEnv()

	// Database
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.dbname", "DATABASE_NAME")

	// Redis
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	viper.BindEnv("server.mode", "SERVER_MODE")
	viper.BindEnv("server.port", "SERVER_PORT")

	// AI providers
	viper.BindEnv("ai.base_url", "AI_BASE_URL")
	viper.BindEnv("ai.api_key", "AI_API_KEY")
	viper.BindEnv("ai.model", "AI_MODEL")
	viper.BindEnv("speech.transcribe_model", "SPEECH_TRANSCRIBE_MODEL")
	viper.BindEnv("speech.tts_model", "SPEECH_TTS_MODEL")
	viper.BindEnv("speech.tts_voice", "SPEECH_TTS_VOICE")

	// Storage
	viper.BindEnv("storage.type", "STORAGE_TYPE")
	viper.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	viper.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	viper.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	viper.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Interview tuning
	viper.BindEnv("interview.max_questions", "MAX_QUESTIONS")
	viper.BindEnv("interview.max_followups", "MAX_FOLLOWUPS")

	// Tracing
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.AI.RequestTimeout = cfg.AI.RequestTimeout * time.Second
	cfg.Speech.RequestTimeout = cfg.Speech.RequestTimeout * time.Second
	applyInterviewDefaults(&cfg.Interview)

	if err := validateInterview(&cfg.Interview); err != nil {
		return nil, err
	}

	if cfg.Storage.Type == "local" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	return &cfg, nil
}

func applyInterviewDefaults(ic *InterviewConfig) {
	if ic.MaxQuestions <= 0 {
		ic.MaxQuestions = 10
	}
	if ic.MaxFollowups <= 0 {
		ic.MaxFollowups = 1
	}
	if ic.FollowupLow <= 0 {
		ic.FollowupLow = 40
	}
	if ic.FollowupHigh <= 0 {
		ic.FollowupHigh = 70
	}
	if ic.FollowupWeight <= 0 {
		ic.FollowupWeight = 0.35
	}
	if ic.PromoteThreshold <= 0 {
		ic.PromoteThreshold = 75
	}
	if ic.DemoteThreshold <= 0 {
		ic.DemoteThreshold = 40
	}
	if ic.ProgressionWindow <= 0 {
		ic.ProgressionWindow = 3
	}
	if ic.StrongMatchScore <= 0 {
		ic.StrongMatchScore = 100
	}
	if ic.FallbackScore <= 0 {
		ic.FallbackScore = 50
	}
}

func validateInterview(ic *InterviewConfig) error {
	if ic.FollowupLow >= ic.FollowupHigh {
		return fmt.Errorf("interview.followup_low (%.0f) must be below interview.followup_high (%.0f)", ic.FollowupLow, ic.FollowupHigh)
	}
	if ic.DemoteThreshold >= ic.PromoteThreshold {
		return fmt.Errorf("interview.demote_threshold (%.0f) must be below interview.promote_threshold (%.0f)", ic.DemoteThreshold, ic.PromoteThreshold)
	}
	if ic.FollowupWeight >= 1 {
		return fmt.Errorf("interview.followup_weight (%.2f) must be below 1", ic.FollowupWeight)
	}
	return nil
}
