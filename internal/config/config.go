package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	APIConfig
	StorageConfig
	LogConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	IsDev() bool
}

type APIConfig interface {
	GetAPIBaseURL() string
	GetAPITimeout() time.Duration
}

type StorageConfig interface {
	GetStorageBackend() StorageBackend
	GetSessionFile() string
	GetProfile() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetLegacyMirror() bool
}

type LogConfig interface {
	GetLogLevel() string
	GetLogFile() string
}

// StorageBackend selects where the session keys of a profile live.
type StorageBackend string

const (
	StorageFile   StorageBackend = "file"
	StorageRedis  StorageBackend = "redis"
	StorageMemory StorageBackend = "memory"
)

const defaultAPITimeout = 10 * time.Second

// Settings is the environment-backed implementation of Config.
type Settings struct {
	AppName string `env:"APP_NAME" envDefault:"Dept Admin"`
	Env     string `env:"ENV" envDefault:"DEV"`
	Port    string `env:"PORT" envDefault:"8080"`

	// APIBaseURL is the backend root; login is POSTed to {APIBaseURL}/auth/login.
	APIBaseURL string        `env:"API_BASE_URL" envDefault:"http://localhost:9090"`
	APITimeout time.Duration `env:"API_TIMEOUT" envDefault:"10s"`

	StorageBackend StorageBackend `env:"STORAGE_BACKEND" envDefault:"file"`
	// StoragePath is the directory holding one JSON file per profile.
	StoragePath string `env:"STORAGE_PATH" envDefault:"./data/sessions"`
	// Profile scopes the session keys, the way a browser profile scopes local storage.
	Profile string `env:"PROFILE" envDefault:"default"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// LegacyMirror keeps the per-field legacy keys written on login.
	LegacyMirror bool `env:"LEGACY_MIRROR" envDefault:"true"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`
}

var _ Config = Settings{}

// Load reads an optional .env file and then the process environment.
func Load(files ...string) (Settings, error) {
	if err := godotenv.Load(files...); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Settings{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg Settings
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.Sanitize()
	return cfg, nil
}

// Parse builds Settings from an explicit environment instead of the process one.
func Parse(environment map[string]string) (Settings, error) {
	var cfg Settings
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environment}); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.Sanitize()
	return cfg, nil
}

// Sanitize applies guardrails to loaded values.
func (s *Settings) Sanitize() {
	s.Env = strings.ToUpper(strings.TrimSpace(s.Env))
	if s.Env == "" {
		s.Env = "DEV"
	}

	s.Port = strings.TrimPrefix(strings.TrimSpace(s.Port), ":")
	if s.Port == "" {
		s.Port = "8080"
	}

	s.APIBaseURL = strings.TrimRight(strings.TrimSpace(s.APIBaseURL), "/")
	if s.APITimeout <= 0 {
		s.APITimeout = defaultAPITimeout
	}

	switch StorageBackend(strings.ToLower(string(s.StorageBackend))) {
	case StorageRedis:
		s.StorageBackend = StorageRedis
	case StorageMemory:
		s.StorageBackend = StorageMemory
	default:
		s.StorageBackend = StorageFile
	}

	s.Profile = strings.TrimSpace(s.Profile)
	if s.Profile == "" || strings.ContainsAny(s.Profile, `/\`) {
		s.Profile = "default"
	}

	s.LogLevel = strings.ToLower(strings.TrimSpace(s.LogLevel))
}

func (s Settings) GetPort() string {
	return ":" + s.Port
}

func (s Settings) GetAppName() string {
	return s.AppName
}

func (s Settings) GetEnv() string {
	return s.Env
}

func (s Settings) IsDev() bool {
	return s.Env == "DEV"
}

func (s Settings) GetAPIBaseURL() string {
	return s.APIBaseURL
}

func (s Settings) GetAPITimeout() time.Duration {
	return s.APITimeout
}

func (s Settings) GetStorageBackend() StorageBackend {
	return s.StorageBackend
}

// GetSessionFile is the JSON file backing the configured profile.
func (s Settings) GetSessionFile() string {
	return filepath.Join(s.StoragePath, s.Profile+".json")
}

func (s Settings) GetProfile() string {
	return s.Profile
}

func (s Settings) GetRedisAddr() string {
	return s.RedisAddr
}

func (s Settings) GetRedisPassword() string {
	return s.RedisPassword
}

func (s Settings) GetRedisDB() int {
	return s.RedisDB
}

func (s Settings) GetLegacyMirror() bool {
	return s.LegacyMirror
}

func (s Settings) GetLogLevel() string {
	return s.LogLevel
}

func (s Settings) GetLogFile() string {
	return s.LogFile
}
