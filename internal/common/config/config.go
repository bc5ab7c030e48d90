package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Backends хранилища пользователей. Выбирается один раз на старте процесса.
const (
	StorageSQLite = "sqlite"
	StorageLibSQL = "libsql"
)

// Backends хранилища одноразовых страниц решений.
const (
	SolutionMemory = "memory"
	SolutionRedis  = "redis"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port   int    `env:"PORT" envDefault:"8080"`
		Origin string `env:"ORIGIN" envDefault:"*"`
	}

	Storage struct {
		Backend    string `env:"STORAGE_BACKEND" envDefault:"sqlite"`
		SQLitePath string `env:"SQLITE_PATH" envDefault:"data.db"`

		// libSQL/Turso HTTP endpoint + bearer credential
		LibSQLURL   string `env:"LIBSQL_URL"`
		LibSQLToken string `env:"LIBSQL_AUTH_TOKEN"`
	}

	Telegram struct {
		// Пустой токен включает open mode: подписи не проверяются,
		// каждый запрос считается неаутентифицированным (см. auth.Service).
		BotToken  string `env:"TELEGRAM_BOT_TOKEN"`
		WebAppURL string `env:"WEBAPP_URL"`
	}

	Admin struct {
		Secret string `env:"ADMIN_SECRET"`
	}

	Quota struct {
		FreeLimit    int `env:"FREE_LIMIT" envDefault:"10"`
		CooldownDays int `env:"FREE_COOLDOWN_DAYS" envDefault:"7"`
	}

	AI struct {
		APIKey  string `env:"OPENAI_API_KEY"`
		BaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
		Model   string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	}

	Solution struct {
		Backend    string        `env:"SOLUTION_BACKEND" envDefault:"memory"`
		TTL        time.Duration `env:"SOLUTION_TTL" envDefault:"24h"`
		MaxEntries int           `env:"SOLUTION_MAX_ENTRIES" envDefault:"10000"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}
}

// Cooldown возвращает окно сброса бесплатной квоты.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Quota.CooldownDays) * 24 * time.Hour
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env не обязателен: в production переменные заданы напрямую
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate ловит неполную конфигурацию на старте, а не на первом запросе.
func (c *Config) validate() error {
	switch c.Storage.Backend {
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite backend")
		}
	case StorageLibSQL:
		if c.Storage.LibSQLURL == "" {
			return fmt.Errorf("LIBSQL_URL is required for the libsql backend")
		}
		if c.Storage.LibSQLToken == "" {
			return fmt.Errorf("LIBSQL_AUTH_TOKEN is required for the libsql backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	switch c.Solution.Backend {
	case SolutionMemory, SolutionRedis:
	default:
		return fmt.Errorf("unknown solution backend %q", c.Solution.Backend)
	}

	// При нуле ёмкость memory-бэкенда перестала бы ограничивать рост
	if c.Solution.MaxEntries <= 0 {
		return fmt.Errorf("SOLUTION_MAX_ENTRIES must be positive, got %d", c.Solution.MaxEntries)
	}

	if c.Quota.FreeLimit <= 0 {
		return fmt.Errorf("FREE_LIMIT must be positive, got %d", c.Quota.FreeLimit)
	}
	if c.Quota.CooldownDays <= 0 {
		return fmt.Errorf("FREE_COOLDOWN_DAYS must be positive, got %d", c.Quota.CooldownDays)
	}

	return nil
}
