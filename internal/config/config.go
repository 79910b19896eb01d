package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	App     AppConfig     `toml:"app"`
	API     APIConfig     `toml:"api"`
	Upload  UploadConfig  `toml:"upload"`
	Summary SummaryConfig `toml:"summary"`
	Store   StoreConfig   `toml:"store"`
	Log     LogConfig     `toml:"log"`
}

type AppConfig struct {
	Name string `toml:"name"`
	Env  string `toml:"env"`
}

type APIConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	ChatModel      string `toml:"chat_model"`
}

type UploadConfig struct {
	MaxSizeBytes int64 `toml:"max_size_bytes"`
}

type SummaryConfig struct {
	PollIntervalMS  int `toml:"poll_interval_ms"`
	PollMaxAttempts int `toml:"poll_max_attempts"`
}

type StoreConfig struct {
	Backend   string      `toml:"backend"`
	StateFile string      `toml:"state_file"`
	Redis     RedisConfig `toml:"redis"`
}

type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	KeyPrefix  string `toml:"key_prefix"`
	TTLSeconds int    `toml:"ttl_seconds"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

const (
	StoreBackendFile  = "file"
	StoreBackendRedis = "redis"
)

func Load() (*Config, error) {
	cfg := defaultConfig()

	configPath := getEnv("CONFIG_FILE", "configs/config.toml")
	if _, err := os.Stat(configPath); err == nil {
		if _, err := toml.DecodeFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("decode config file failed: %w", err)
		}
	}

	overrideByEnv(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Summary.PollIntervalMS) * time.Millisecond
}

func (c *Config) RedisTTL() time.Duration {
	return time.Duration(c.Store.Redis.TTLSeconds) * time.Second
}

func (c *Config) validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url must be configured")
	}
	switch c.Store.Backend {
	case StoreBackendFile, StoreBackendRedis:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Upload.MaxSizeBytes <= 0 {
		return fmt.Errorf("upload.max_size_bytes must be positive")
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name: "llmontreal",
			Env:  "dev",
		},
		API: APIConfig{
			BaseURL:        "http://localhost:8080/api",
			TimeoutSeconds: 120,
			ChatModel:      "gemma3:4b",
		},
		Upload: UploadConfig{
			MaxSizeBytes: 25 << 20,
		},
		Summary: SummaryConfig{
			PollIntervalMS:  2000,
			PollMaxAttempts: 30,
		},
		Store: StoreConfig{
			Backend:   StoreBackendFile,
			StateFile: defaultStateFile(),
			Redis: RedisConfig{
				Addr:       "127.0.0.1:6379",
				DB:         0,
				KeyPrefix:  "llmontreal",
				TTLSeconds: 7 * 24 * 3600,
			},
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

func defaultStateFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ".llmontreal.json"
	}
	return filepath.Join(dir, "llmontreal", "state.json")
}

func overrideByEnv(cfg *Config) {
	cfg.App.Name = getEnv("APP_NAME", cfg.App.Name)
	cfg.App.Env = getEnv("APP_ENV", cfg.App.Env)

	cfg.API.BaseURL = getEnv("API_BASE_URL", cfg.API.BaseURL)
	cfg.API.TimeoutSeconds = getEnvAsInt("API_TIMEOUT_SECONDS", cfg.API.TimeoutSeconds)
	cfg.API.ChatModel = getEnv("API_CHAT_MODEL", cfg.API.ChatModel)

	cfg.Upload.MaxSizeBytes = int64(getEnvAsInt("UPLOAD_MAX_SIZE_BYTES", int(cfg.Upload.MaxSizeBytes)))

	cfg.Summary.PollIntervalMS = getEnvAsInt("SUMMARY_POLL_INTERVAL_MS", cfg.Summary.PollIntervalMS)
	cfg.Summary.PollMaxAttempts = getEnvAsInt("SUMMARY_POLL_MAX_ATTEMPTS", cfg.Summary.PollMaxAttempts)

	cfg.Store.Backend = getEnv("STORE_BACKEND", cfg.Store.Backend)
	cfg.Store.StateFile = getEnv("STORE_STATE_FILE", cfg.Store.StateFile)
	cfg.Store.Redis.Addr = getEnv("REDIS_ADDR", cfg.Store.Redis.Addr)
	cfg.Store.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Store.Redis.Password)
	cfg.Store.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Store.Redis.DB)
	cfg.Store.Redis.KeyPrefix = getEnv("REDIS_KEY_PREFIX", cfg.Store.Redis.KeyPrefix)
	cfg.Store.Redis.TTLSeconds = getEnvAsInt("REDIS_TTL_SECONDS", cfg.Store.Redis.TTLSeconds)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
