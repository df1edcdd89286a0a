package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"quiz-game-service/internal/domain"
	"quiz-game-service/internal/game"
)

type Config struct {
	Server struct {
		Port            string   `yaml:"port"`
		AllowedOrigins  []string `yaml:"allowed_origins"`
		RequestTimeout  string   `yaml:"request_timeout"`
		ShutdownTimeout string   `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL      string `yaml:"ttl"`
		BankPath string `yaml:"bank_path"`
	} `yaml:"quiz"`
	Game struct {
		QuestionsPerSession int    `yaml:"questions_per_session"`
		PoolLimit           int    `yaml:"pool_limit"`
		QuestionSeconds     int    `yaml:"question_seconds"`
		ResultDelay         string `yaml:"result_delay"`
		Mode                string `yaml:"mode"`
	} `yaml:"game"`
	Outbox struct {
		MaxAttempts int    `yaml:"max_attempts"`
		BaseBackoff string `yaml:"base_backoff"`
	} `yaml:"outbox"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		Issuer    string `yaml:"issuer"`
		TokenTTL  string `yaml:"token_ttl"`
	} `yaml:"auth"`
	Reaper struct {
		Schedule string `yaml:"schedule"`
		IdleTTL  string `yaml:"idle_ttl"`
	} `yaml:"reaper"`
	RateLimit struct {
		AnswersPerMinute int `yaml:"answers_per_minute"`
	} `yaml:"ratelimit"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads YAML config from path. The JWT secret may also come from JWT_SECRET.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty or malformed.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// GameConfig maps the game and outbox sections onto session rules. Zero values keep the
// session defaults.
func (c Config) GameConfig() game.Config {
	def := game.DefaultConfig()
	cfg := game.Config{
		QuestionsPerSession: c.Game.QuestionsPerSession,
		PoolLimit:           c.Game.PoolLimit,
		QuestionSeconds:     c.Game.QuestionSeconds,
		Mode:                domain.Mode(c.Game.Mode),
		Outbox: game.OutboxConfig{
			MaxAttempts: c.Outbox.MaxAttempts,
			BaseBackoff: Duration(c.Outbox.BaseBackoff, 0),
		},
	}
	if cfg.QuestionsPerSession <= 0 {
		cfg.QuestionsPerSession = def.QuestionsPerSession
	}
	if cfg.PoolLimit <= 0 {
		cfg.PoolLimit = def.PoolLimit
	}
	if cfg.QuestionSeconds <= 0 {
		cfg.QuestionSeconds = def.QuestionSeconds
	}
	if cfg.Mode == "" {
		cfg.Mode = def.Mode
	}
	return cfg
}

// LoadQuestionBank reads a YAML question bank and validates it.
func LoadQuestionBank(path string) (domain.QuestionBank, error) {
	var bank domain.QuestionBank
	data, err := os.ReadFile(path)
	if err != nil {
		return bank, err
	}
	if err := yaml.Unmarshal(data, &bank); err != nil {
		return bank, fmt.Errorf("parse question bank %s: %w", path, err)
	}
	if err := bank.Validate(); err != nil {
		return bank, fmt.Errorf("question bank %s: %w", path, err)
	}
	return bank, nil
}
