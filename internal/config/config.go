// Package config loads project-level settings from newsroom.yml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Built-in defaults applied by ApplyDefaults.
const (
	DefaultOutputDir        = "outputs/articles"
	DefaultProviderURL      = "https://api.openai.com"
	DefaultModel            = "gpt-4o-mini"
	DefaultProviderKeyEnv   = "OPENAI_API_KEY"
	DefaultSearchKeyEnv     = "SERPER_API_KEY"
	DefaultWordCount        = 2000
	DefaultTone             = "neutral"
	DefaultCostPerCall      = 0.03
	DefaultBatchConcurrency = 2
	DefaultAgentBasePort    = 7311
)

// StageSettings is the per-stage execution policy.
type StageSettings struct {
	TimeoutSeconds int `yaml:"timeoutSeconds,omitempty"`
	MaxRetries     int `yaml:"maxRetries,omitempty"`
}

// Timeout returns the stage timeout as a duration, zero if unset.
func (s StageSettings) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Settings holds project-level configuration loaded from newsroom.yml.
type Settings struct {
	// OutputDir is the root directory for published articles and run
	// reports.
	OutputDir string `yaml:"outputDir,omitempty"`

	// ProviderURL is the base URL of the OpenAI-compatible model backend.
	ProviderURL string `yaml:"providerUrl,omitempty"`

	// Model is the default model name.
	Model string `yaml:"model,omitempty"`

	// ProviderKeyEnv names the environment variable holding the model
	// backend API key.
	ProviderKeyEnv string `yaml:"providerKeyEnv,omitempty"`

	// SearchKeyEnv names the environment variable holding the search API
	// key.
	SearchKeyEnv string `yaml:"searchKeyEnv,omitempty"`

	// WordCount is the default target article length.
	WordCount int `yaml:"wordCount,omitempty"`

	// Tone is the default writing voice.
	Tone string `yaml:"tone,omitempty"`

	// IncludeReferences controls the default for the source list. Defaults
	// to true; the pointer distinguishes "unset" from "false".
	IncludeReferences *bool `yaml:"includeReferences,omitempty"`

	// CostPerCall is the estimated cost of one backend attempt, used for
	// the metrics cost estimate.
	CostPerCall float64 `yaml:"costPerCall,omitempty"`

	// BatchConcurrency bounds how many topics run at once in batch mode.
	BatchConcurrency int `yaml:"batchConcurrency,omitempty"`

	// AgentEndpoints lists remote agent base URLs. When set, the pipeline
	// discovers roles on these endpoints instead of running agents
	// in-process.
	AgentEndpoints []string `yaml:"agentEndpoints,omitempty"`

	// AgentBasePort is the first port used when serving agents locally.
	AgentBasePort int `yaml:"agentBasePort,omitempty"`

	// Stages overrides the per-stage execution policy, keyed by stage name.
	Stages map[string]StageSettings `yaml:"stages,omitempty"`

	Verbose bool `yaml:"verbose,omitempty"`
}

// Load attempts to read newsroom.yml or newsroom.yaml from the given
// directory. Returns a zero-value Settings (not an error) if no config file
// exists.
func Load(dir string) (*Settings, error) {
	for _, name := range []string{"newsroom.yml", "newsroom.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg Settings
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		return &cfg, nil
	}
	return &Settings{}, nil
}

// ApplyDefaults fills unset fields with the built-in defaults.
func (s *Settings) ApplyDefaults() {
	if s.OutputDir == "" {
		s.OutputDir = DefaultOutputDir
	}
	if s.ProviderURL == "" {
		s.ProviderURL = DefaultProviderURL
	}
	if s.Model == "" {
		s.Model = DefaultModel
	}
	if s.ProviderKeyEnv == "" {
		s.ProviderKeyEnv = DefaultProviderKeyEnv
	}
	if s.SearchKeyEnv == "" {
		s.SearchKeyEnv = DefaultSearchKeyEnv
	}
	if s.WordCount <= 0 {
		s.WordCount = DefaultWordCount
	}
	if s.Tone == "" {
		s.Tone = DefaultTone
	}
	if s.IncludeReferences == nil {
		yes := true
		s.IncludeReferences = &yes
	}
	if s.CostPerCall <= 0 {
		s.CostPerCall = DefaultCostPerCall
	}
	if s.BatchConcurrency <= 0 {
		s.BatchConcurrency = DefaultBatchConcurrency
	}
	if s.AgentBasePort <= 0 {
		s.AgentBasePort = DefaultAgentBasePort
	}
}

// Validate checks settings that have no sensible fallback.
func (s *Settings) Validate() error {
	switch s.Tone {
	case "", "neutral", "technical", "casual":
	default:
		return fmt.Errorf("config: unknown tone %q (want neutral, technical, or casual)", s.Tone)
	}
	for name, stage := range s.Stages {
		if stage.TimeoutSeconds < 0 {
			return fmt.Errorf("config: stage %q has negative timeout", name)
		}
		if stage.MaxRetries < 0 {
			return fmt.Errorf("config: stage %q has negative retry ceiling", name)
		}
	}
	return nil
}

// ProviderKey reads the model backend API key from the environment.
func (s *Settings) ProviderKey() string {
	return os.Getenv(s.ProviderKeyEnv)
}

// SearchKey reads the search API key from the environment.
func (s *Settings) SearchKey() string {
	return os.Getenv(s.SearchKeyEnv)
}
