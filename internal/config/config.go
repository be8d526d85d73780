package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"examcompress/internal/exam"
)

const (
	defaultPort          = 3000
	defaultDataDir       = "data"
	defaultServiceURL    = "http://localhost:8080/api"
	defaultSubmitTimeout = 60 * time.Second
	defaultSessionTTL    = 24 * time.Hour
	defaultDownloadDir   = "."

	// EnvPath overrides the config file location.
	EnvPath     = "EXAMCOMPRESS_CONFIG"
	defaultPath = "config.yml"
)

// Config describes runtime configuration for the front ends.
type Config struct {
	Port          int           `yaml:"port" validate:"min=1,max=65535"`
	DataDir       string        `yaml:"data_dir" validate:"required"`
	ServiceURL    string        `yaml:"service_url" validate:"required,url"`
	SubmitTimeout time.Duration `yaml:"submit_timeout" validate:"gte=0"`
	SessionTTL    time.Duration `yaml:"session_ttl" validate:"gt=0"`
	CatalogPath   string        `yaml:"catalog_path"`
	DownloadDir   string        `yaml:"download_dir"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Port:          defaultPort,
		DataDir:       defaultDataDir,
		ServiceURL:    defaultServiceURL,
		SubmitTimeout: defaultSubmitTimeout,
		SessionTTL:    defaultSessionTTL,
		DownloadDir:   defaultDownloadDir,
	}
}

// Path resolves the config file location from the environment.
func Path() string {
	if p := strings.TrimSpace(os.Getenv(EnvPath)); p != "" {
		return p
	}
	return defaultPath
}

// Load reads YAML config from the provided path. If the file does not exist
// or is empty, defaults are returned with no error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, errors.New("empty config path")
	}
	fileData, err := os.ReadFile(path) //nolint:gosec // config path is controlled by deployment
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if len(fileData) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(fileData, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	normalize(&cfg)
	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// basic normalization: zero values fall back to defaults
func normalize(cfg *Config) {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = defaultDataDir
	}
	cfg.ServiceURL = strings.TrimRight(strings.TrimSpace(cfg.ServiceURL), "/")
	if cfg.ServiceURL == "" {
		cfg.ServiceURL = defaultServiceURL
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = defaultSessionTTL
	}
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = defaultDownloadDir
	}
}

// Catalog returns the exam catalog named by CatalogPath, or the builtin one.
func (c Config) Catalog() (exam.Catalog, error) {
	if strings.TrimSpace(c.CatalogPath) == "" {
		return exam.Default(), nil
	}
	cat, err := exam.LoadFile(c.CatalogPath)
	if err != nil {
		return exam.Catalog{}, fmt.Errorf("catalog %s: %w", c.CatalogPath, err)
	}
	return cat, nil
}
