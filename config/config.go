package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App      AppConfig      `koanf:"app"`
	DB       DBConfig       `koanf:"db"`
	Redis    RedisConfig    `koanf:"redis"`
	S3       S3Config       `koanf:"s3"`
	JWT      JWTConfig      `koanf:"jwt"`
	Telegram TelegramConfig `koanf:"telegram"`
	Cache    CacheConfig    `koanf:"cache"`
	Log      LogConfig      `koanf:"log"`
}

type AppConfig struct {
	Env  string `koanf:"env"`
	Port string `koanf:"port"`
	Name string `koanf:"name"`
	// Store selects the moderation repository: postgres or memory
	Store string `koanf:"store"`
}

type DBConfig struct {
	Host     string `koanf:"host"`
	Port     string `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Name     string `koanf:"name"`
	SSLMode  string `koanf:"ssl_mode"`
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
}

type RedisConfig struct {
	Host     string `koanf:"host"`
	Port     string `koanf:"port"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// S3Config points at any S3-compatible storage (R2, MinIO)
type S3Config struct {
	Endpoint      string `koanf:"endpoint"`
	AccessKey     string `koanf:"access_key"`
	SecretKey     string `koanf:"secret_key"`
	UseSSL        bool   `koanf:"use_ssl"`
	Region        string `koanf:"region"`
	BucketExports string `koanf:"bucket_exports"`
}

func (c S3Config) Enabled() bool {
	return c.Endpoint != "" && c.BucketExports != ""
}

type JWTConfig struct {
	Secret        string        `koanf:"secret"`
	AccessExpiry  time.Duration `koanf:"access_expiry"`
	RefreshExpiry time.Duration `koanf:"refresh_expiry"`
}

type TelegramConfig struct {
	BotToken string `koanf:"bot_token"`
}

type CacheConfig struct {
	// Backend is memory or redis
	Backend   string `koanf:"backend"`
	KeyPrefix string `koanf:"key_prefix"`
	// TTL is the default; AccuracyTTL overrides it for reporter accuracy.
	TTL         time.Duration `koanf:"ttl"`
	AccuracyTTL time.Duration `koanf:"accuracy_ttl"`
	// LocalTTL bounds how stale the per-instance layer in front of redis
	// can get after a purge on another instance.
	LocalTTL time.Duration `koanf:"local_ttl"`
	Capacity int           `koanf:"capacity"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

func Defaults() *Config {
	return &Config{
		App: AppConfig{
			Env:   "development",
			Port:  "8080",
			Name:  "Tunewave Moderation API",
			Store: "postgres",
		},
		DB: DBConfig{
			Host:     "localhost",
			Port:     "5432",
			User:     "tunewave",
			Password: "tunewave",
			Name:     "tunewave_db",
			SSLMode:  "disable",
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: "6379",
		},
		S3: S3Config{
			Region:        "auto",
			BucketExports: "tunewave-exports",
		},
		JWT: JWTConfig{
			Secret:        "secret",
			AccessExpiry:  24 * time.Hour,
			RefreshExpiry: 168 * time.Hour,
		},
		Cache: CacheConfig{
			Backend:     "redis",
			KeyPrefix:   "tunewave",
			TTL:         5 * time.Minute,
			AccuracyTTL: 10 * time.Minute,
			LocalTTL:    30 * time.Second,
			Capacity:    10_000,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in increasing order of precedence. A .env file, if present,
// is loaded into the environment first. SECTION_KEY variables map to
// section.key, so DB_SSL_MODE sets db.ssl_mode.
func Load(path string) (*Config, error) {
	// Load .env file if it exists (for local non-docker dev)
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}

	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Defaults()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

var sections = map[string]bool{
	"app": true, "db": true, "redis": true, "s3": true,
	"jwt": true, "telegram": true, "cache": true, "log": true,
}

// envKey maps APP_PORT to app.port and drops variables outside known sections.
func envKey(s string) string {
	section, key, ok := strings.Cut(strings.ToLower(s), "_")
	if !ok || !sections[section] {
		return ""
	}
	return section + "." + key
}
