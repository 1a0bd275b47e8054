package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"storynexus/internal/generation"
	"storynexus/internal/story"
)

const (
	DefaultPath = "storynexus.yaml"

	DefaultDSN = "sqlite://storynexus.db"

	ProviderChat   = "chat"
	ProviderGemini = "gemini"

	DefaultGridSize                = 10
	DefaultMaxDepth                = 6
	DefaultContinuationProbability = 0.6
)

type ProjectConfig struct {
	Project    string           `yaml:"project"`
	Version    int              `yaml:"version"`
	Database   DatabaseConfig   `yaml:"database"`
	Generation GenerationConfig `yaml:"generation"`
	World      WorldConfig      `yaml:"world"`
	Stories    StoriesConfig    `yaml:"stories"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type GenerationConfig struct {
	Provider string        `yaml:"provider"`
	Endpoint string        `yaml:"endpoint"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`

	// APIKey is only ever read from the environment.
	APIKey string `yaml:"-"`
}

type WorldConfig struct {
	Topology                string  `yaml:"topology"`
	GridSize                int     `yaml:"grid_size"`
	Size                    string  `yaml:"size"`
	MaxDepth                int     `yaml:"max_depth"`
	ContinuationProbability float64 `yaml:"continuation_probability"`
}

type StoriesConfig struct {
	Paths   []string `yaml:"paths"`
	Exclude []string `yaml:"exclude"`
}

// Env holds overrides and secrets taken from the process environment.
type Env struct {
	DSN              string `env:"STORYNEXUS_DSN"`
	APIKey           string `env:"STORYNEXUS_API_KEY"`
	PerplexityAPIKey string `env:"PERPLEXITY_API_KEY"`
	GeminiAPIKey     string `env:"GEMINI_API_KEY"`
	Provider         string `env:"STORYNEXUS_PROVIDER"`
}

// ParseEnv fills target from environment variables using its env tags.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Default returns the configuration used when no project file exists.
func Default() *ProjectConfig {
	cfg := &ProjectConfig{Project: "storynexus", Version: 1}
	applyDefaults(cfg)
	return cfg
}

// WithDefaults fills unset fields of cfg in place and returns it.
func WithDefaults(cfg *ProjectConfig) *ProjectConfig {
	applyDefaults(cfg)
	return cfg
}

// Validate reports the first problem with cfg.
func Validate(cfg *ProjectConfig) error {
	return validateProjectConfig(cfg)
}

// Render encodes cfg as a project file.
func Render(cfg *ProjectConfig) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding project config: %w", err)
	}
	return data, nil
}

func LoadProjectConfig(path string) (*ProjectConfig, error) {
	cfg, err := readProjectConfig(path)
	if err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	if err := validateProjectConfig(cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	return cfg, nil
}

// Load reads path, falling back to the built-in project when the file does
// not exist, and overlays the environment before defaults are filled in.
func Load(path string) (*ProjectConfig, error) {
	cfg, err := readProjectConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = &ProjectConfig{Project: "storynexus", Version: 1}, nil
	}
	if err != nil {
		return nil, err
	}

	var e Env
	if err := ParseEnv(&e); err != nil {
		return nil, err
	}
	ApplyEnv(cfg, e)
	applyDefaults(cfg)

	if err := validateProjectConfig(cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays environment values onto cfg. The API key is chosen by
// provider; the chat provider falls back to PERPLEXITY_API_KEY.
func ApplyEnv(cfg *ProjectConfig, e Env) {
	if e.DSN != "" {
		cfg.Database.DSN = e.DSN
	}
	if e.Provider != "" {
		cfg.Generation.Provider = strings.ToLower(e.Provider)
	}
	if cfg.Generation.Provider == ProviderGemini {
		cfg.Generation.APIKey = e.GeminiAPIKey
		return
	}
	cfg.Generation.APIKey = e.APIKey
	if cfg.Generation.APIKey == "" {
		cfg.Generation.APIKey = e.PerplexityAPIKey
	}
}

func readProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *ProjectConfig) {
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = DefaultDSN
	}

	gen := &cfg.Generation
	if gen.Provider == "" {
		gen.Provider = ProviderChat
	}
	if gen.Provider == ProviderChat && gen.Endpoint == "" {
		gen.Endpoint = generation.DefaultChatEndpoint
	}
	if gen.Model == "" {
		if gen.Provider == ProviderGemini {
			gen.Model = generation.DefaultGeminiModel
		} else {
			gen.Model = generation.DefaultChatModel
		}
	}
	if gen.Timeout == 0 {
		gen.Timeout = generation.DefaultTimeout
	}

	w := &cfg.World
	if w.Topology == "" {
		w.Topology = string(story.TopologyGrid)
	}
	if w.GridSize == 0 {
		w.GridSize = DefaultGridSize
	}
	if w.Size == "" {
		w.Size = string(story.SizeNormal)
	}
	if w.MaxDepth == 0 {
		w.MaxDepth = DefaultMaxDepth
	}
	if w.ContinuationProbability == 0 {
		w.ContinuationProbability = DefaultContinuationProbability
	}
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.Project) == "" {
		return fmt.Errorf("project name is required")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return fmt.Errorf("database dsn is required")
	}

	switch cfg.Generation.Provider {
	case ProviderChat:
		if strings.TrimSpace(cfg.Generation.Endpoint) == "" {
			return fmt.Errorf("generation endpoint is required for the chat provider")
		}
	case ProviderGemini:
	default:
		return fmt.Errorf("unknown generation provider: %s", cfg.Generation.Provider)
	}
	if cfg.Generation.Timeout <= 0 {
		return fmt.Errorf("generation timeout must be positive")
	}

	if _, err := story.ParseTopology(cfg.World.Topology); err != nil {
		return fmt.Errorf("world topology: %w", err)
	}
	if _, err := story.ParseStorySize(cfg.World.Size); err != nil {
		return fmt.Errorf("world size: %w", err)
	}
	if cfg.World.GridSize < 1 {
		return fmt.Errorf("world grid_size must be at least 1")
	}
	if cfg.World.MaxDepth < 0 {
		return fmt.Errorf("world max_depth must not be negative")
	}
	if p := cfg.World.ContinuationProbability; p < 0 || p > 1 {
		return fmt.Errorf("world continuation_probability must be within [0, 1], got %v", p)
	}

	for i, path := range cfg.Stories.Paths {
		if strings.TrimSpace(path) == "" {
			return fmt.Errorf("stories path %d is empty", i)
		}
	}

	return nil
}
