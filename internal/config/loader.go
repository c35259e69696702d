package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the daemon.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr    string `json:"addr" yaml:"addr" toml:"addr"`
	Variant string `json:"variant" yaml:"variant" toml:"variant"`

	// WorkerBin is the accelerated inference worker binary; empty disables
	// accelerated candidates so the loader falls through to cpu.
	WorkerBin       string   `json:"worker_bin" yaml:"worker_bin" toml:"worker_bin"`
	WorkerHost      string   `json:"worker_host" yaml:"worker_host" toml:"worker_host"`
	WorkerPortStart int      `json:"worker_port_start" yaml:"worker_port_start" toml:"worker_port_start"`
	WorkerPortEnd   int      `json:"worker_port_end" yaml:"worker_port_end" toml:"worker_port_end"`
	WorkerExtraArgs []string `json:"worker_extra_args" yaml:"worker_extra_args" toml:"worker_extra_args"`

	// CaptionModel points at a GGUF export for the cpu understanding path.
	CaptionModel   string `json:"caption_model" yaml:"caption_model" toml:"caption_model"`
	CaptionCtxSize int    `json:"caption_ctx_size" yaml:"caption_ctx_size" toml:"caption_ctx_size"`
	CaptionThreads int    `json:"caption_threads" yaml:"caption_threads" toml:"caption_threads"`

	LogLevel               string `json:"log_level" yaml:"log_level" toml:"log_level"`
	MaxBodyMB              int    `json:"max_body_mb" yaml:"max_body_mb" toml:"max_body_mb"`
	GenerateTimeoutSeconds int    `json:"generate_timeout_seconds" yaml:"generate_timeout_seconds" toml:"generate_timeout_seconds"`

	CORSEnabled        bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`
	CORSAllowedMethods []string `json:"cors_allowed_methods" yaml:"cors_allowed_methods" toml:"cors_allowed_methods"`
	CORSAllowedHeaders []string `json:"cors_allowed_headers" yaml:"cors_allowed_headers" toml:"cors_allowed_headers"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
