package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

type AppConfig struct {
	EnginePath    string            `yaml:"engine_path"`
	EngineOptions map[string]string `yaml:"engine_options"`
	// EngineDir가 설정되면 API로 로드하는 엔진/변형 파일은 이 디렉터리 안에 있어야 함
	EngineDir string `yaml:"engine_dir"`

	DefaultVariant string `yaml:"default_variant"`
	VariantsPath   string `yaml:"variants_path"`

	HTTPListen string `yaml:"http_listen"`
	FeedListen string `yaml:"feed_listen"`

	RedisURL    string        `yaml:"redis_url"`
	DatabaseURL string        `yaml:"database_url"`
	GameTTL     time.Duration `yaml:"game_ttl"`

	MessagesDir string `yaml:"messages_dir"`
}

func defaults() *AppConfig {
	return &AppConfig{
		EngineOptions:  map[string]string{"Threads": "1"},
		DefaultVariant: "chess",
		// 기본 바인딩은 루프백 전용
		HTTPListen: "127.0.0.1:8080",
		FeedListen: "127.0.0.1:8081",
		GameTTL:    7 * 24 * time.Hour,
	}
}

// Load reads the optional YAML file named by FAIRYBOARD_CONFIG and then
// applies environment overrides.
func Load() (*AppConfig, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("FAIRYBOARD_CONFIG")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if v := strings.TrimSpace(os.Getenv("ENGINE_PATH")); v != "" {
		cfg.EnginePath = v
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_OPTIONS")); v != "" {
		opts, err := ParseOptions(v)
		if err != nil {
			return nil, err
		}
		for k, val := range opts {
			cfg.EngineOptions[k] = val
		}
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_DIR")); v != "" {
		cfg.EngineDir = v
	}
	if v := strings.TrimSpace(os.Getenv("DEFAULT_VARIANT")); v != "" {
		cfg.DefaultVariant = v
	}
	if v := strings.TrimSpace(os.Getenv("VARIANTS_PATH")); v != "" {
		cfg.VariantsPath = v
	}
	if v := strings.TrimSpace(os.Getenv("HTTP_LISTEN")); v != "" {
		cfg.HTTPListen = v
	}
	if v := strings.TrimSpace(os.Getenv("FEED_LISTEN")); v != "" {
		cfg.FeedListen = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("MESSAGES_DIR")); v != "" {
		cfg.MessagesDir = v
	}
	if v := strings.TrimSpace(os.Getenv("GAME_TTL")); v != "" { // seconds or a Go duration
		d, err := parseTTL(v)
		if err != nil {
			return nil, err
		}
		cfg.GameTTL = d
	}

	if cfg.DefaultVariant == "" {
		return nil, errors.New("default variant is required")
	}
	if cfg.HTTPListen == "" {
		return nil, errors.New("HTTP_LISTEN is required")
	}
	return cfg, nil
}

func (c *AppConfig) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var file AppConfig
	if err := yaml.Unmarshal(b, &file); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if file.EnginePath != "" {
		c.EnginePath = file.EnginePath
	}
	for k, v := range file.EngineOptions {
		c.EngineOptions[k] = v
	}
	if file.EngineDir != "" {
		c.EngineDir = file.EngineDir
	}
	if file.DefaultVariant != "" {
		c.DefaultVariant = file.DefaultVariant
	}
	if file.VariantsPath != "" {
		c.VariantsPath = file.VariantsPath
	}
	if file.HTTPListen != "" {
		c.HTTPListen = file.HTTPListen
	}
	if file.FeedListen != "" {
		c.FeedListen = file.FeedListen
	}
	if file.RedisURL != "" {
		c.RedisURL = file.RedisURL
	}
	if file.DatabaseURL != "" {
		c.DatabaseURL = file.DatabaseURL
	}
	if file.GameTTL > 0 {
		c.GameTTL = file.GameTTL
	}
	if file.MessagesDir != "" {
		c.MessagesDir = file.MessagesDir
	}
	return nil
}

// ParseOptions parses "Name=value,Other=value". Blank entries are skipped.
func ParseOptions(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("engine option %q: want name=value", part)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}

func parseTTL(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("GAME_TTL %q: want seconds or a positive duration", v)
	}
	return d, nil
}
