package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/Zuo-Peng/chatlens/internal/genai"
	"github.com/Zuo-Peng/chatlens/internal/sides"
)

type Config struct {
	ExportsRoot string `toml:"exports_root"`
	DBPath      string `toml:"db_path"`

	LogPath   string `toml:"log_path"`
	LogLevel  string `toml:"log_level"`
	TracePath string `toml:"trace_path"`
	Telemetry bool   `toml:"telemetry"`

	GeminiAPIKey      string   `toml:"gemini_api_key"`
	GeminiModel       string   `toml:"gemini_model"`
	GeminiBaseURL     string   `toml:"gemini_base_url"`
	RequestsPerMinute int      `toml:"requests_per_minute"`
	TargetLanguages   []string `toml:"target_languages"`

	Port int `toml:"port"`

	Sides sides.Assignment `toml:"sides"`
}

// Dir returns ~/.config/chatlens.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "chatlens"), nil
}

func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	dir, err := Dir()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ExportsRoot:       filepath.Join(home, "chat-exports"),
		DBPath:            filepath.Join(dir, "chatlens.db"),
		LogPath:           filepath.Join(dir, "logs", "chatlens.log"),
		LogLevel:          "info",
		TracePath:         filepath.Join(dir, "logs", "traces.log"),
		GeminiModel:       genai.DefaultModel,
		GeminiBaseURL:     genai.DefaultBaseURL,
		RequestsPerMinute: 15,
		TargetLanguages:   []string{"Spanish", "French"},
		Port:              8080,
	}

	cfgPath := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(cfgPath); err == nil {
		if _, err := toml.DecodeFile(cfgPath, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.ExportsRoot = expandHome(cfg.ExportsRoot, home)
	cfg.DBPath = expandHome(cfg.DBPath, home)
	cfg.LogPath = expandHome(cfg.LogPath, home)
	cfg.TracePath = expandHome(cfg.TracePath, home)

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.GeminiAPIKey = v
	}
	if v := os.Getenv("CHATLENS_MODEL"); v != "" {
		c.GeminiModel = v
	}
	if v := os.Getenv("CHATLENS_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("CHATLENS_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CHATLENS_PORT: %w", err)
		}
		c.Port = port
	}
	return nil
}

func expandHome(path, home string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}
