package config

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultAppEnv           = "development"
	defaultDBPath           = "./plmcost.db"
	defaultPort             = "8080"
	defaultGeminiModel      = "gemini-2.5-pro"
	defaultNarrativeTimeout = 90 * time.Second
	defaultLogLevel         = "info"
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	DBPath           string
	SessionSecret    string
	GeminiAPIKey     string
	GeminiModel      string
	NarrativeTimeout time.Duration
	LogLevel         string
}

// IsDev reports whether the app runs in development mode.
func (c Config) IsDev() bool {
	return c.AppEnv == "" || c.AppEnv == defaultAppEnv
}

// Load reads environment variables and returns a populated Config.
// Problems are reported on log and replaced by defaults.
func Load(log zerolog.Logger) Config {
	// Best-effort: production injects real environment variables.
	if err := loadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("load .env")
	}

	cfg := Config{
		AppEnv:        os.Getenv("APP_ENV"),
		Port:          os.Getenv("PORT"),
		DBPath:        os.Getenv("DB_PATH"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   os.Getenv("GEMINI_MODEL"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
	}

	if cfg.AppEnv == "" {
		cfg.AppEnv = defaultAppEnv
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.GeminiModel == "" {
		cfg.GeminiModel = defaultGeminiModel
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}

	cfg.NarrativeTimeout = defaultNarrativeTimeout
	if raw := os.Getenv("NARRATIVE_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			log.Warn().Str("value", raw).Msg("invalid NARRATIVE_TIMEOUT, using default")
		} else {
			cfg.NarrativeTimeout = d
		}
	}

	if cfg.SessionSecret == "" {
		log.Warn().Msg("SESSION_SECRET is not set")
	}
	if cfg.GeminiAPIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set; analyses will fail")
	}

	return cfg
}
