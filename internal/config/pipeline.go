package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PipelineConfig tunes retrieval, evidence selection and synthesis.
type PipelineConfig struct {
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Evidence   EvidenceConfig   `yaml:"evidence"`
	Rerank     RerankConfig     `yaml:"rerank"`
	Narrative  NarrativeConfig  `yaml:"narrative"`
	Structured StructuredConfig `yaml:"structured"`
}

type RetrievalConfig struct {
	MaxResults int `yaml:"max_results"`
}

type EvidenceConfig struct {
	Budget int `yaml:"budget"`
}

type RerankConfig struct {
	TopN int `yaml:"top_n"` // 0 returns every candidate
}

// ModelParams are the generation parameters sent with each call.
type ModelParams struct {
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	TopP        float64 `yaml:"top_p"`
}

type NarrativeConfig struct {
	Model  ModelParams `yaml:"model"`
	Prompt string      `yaml:"prompt"`
}

type StructuredConfig struct {
	Model       ModelParams   `yaml:"model"`
	Prompt      string        `yaml:"prompt"`
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

const DefaultNarrativePrompt = `Please answer this medical question using the following content, giving a professional answer:

{{.Question}}

{{.Context}}`

const DefaultStructuredPrompt = `Based on the reference material below, give a comprehensive analysis and summary of "{{.Question}}". Organize the answer strictly along these five dimensions:

### 1. Cause:
Analyze the possible causes.

### 2. Prevention:
Ways to prevent and avoid it.

### 3. Treatment:
Concrete treatment and handling.

### 4. Medical advice:
When to see a doctor and what to watch for.

### 5. Special notes:
Issues that need particular attention.

Summarize each dimension in detail based on the following reference material:

{{.Context}}`

func DefaultPipelineConfig() *PipelineConfig {
	cfg := &PipelineConfig{}
	applyDefaults(cfg)
	return cfg
}

// LoadPipelineConfig reads path. A missing file yields the defaults.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	if path == "" {
		path = "configs/pipeline.yaml"
	}

	var cfg PipelineConfig

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("unable to read pipeline config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("unable to parse pipeline config %s: %w", path, err)
		}
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *PipelineConfig) {
	if cfg.Retrieval.MaxResults == 0 {
		cfg.Retrieval.MaxResults = 1000
	}
	if cfg.Evidence.Budget == 0 {
		cfg.Evidence.Budget = 5
	}

	if cfg.Narrative.Model.MaxTokens == 0 {
		cfg.Narrative.Model.MaxTokens = 1000
	}
	if cfg.Narrative.Prompt == "" {
		cfg.Narrative.Prompt = DefaultNarrativePrompt
	}

	if cfg.Structured.Model.MaxTokens == 0 {
		cfg.Structured.Model.MaxTokens = 2000
	}
	if cfg.Structured.Model.Temperature == 0 {
		cfg.Structured.Model.Temperature = 0.3
	}
	if cfg.Structured.Model.TopP == 0 {
		cfg.Structured.Model.TopP = 0.9
	}
	if cfg.Structured.Prompt == "" {
		cfg.Structured.Prompt = DefaultStructuredPrompt
	}
	if cfg.Structured.MaxAttempts == 0 {
		cfg.Structured.MaxAttempts = 5
	}
	if cfg.Structured.BaseDelay == 0 {
		cfg.Structured.BaseDelay = 5 * time.Second
	}
	if cfg.Structured.MaxDelay == 0 {
		cfg.Structured.MaxDelay = 30 * time.Second
	}
}

func (c *PipelineConfig) Validate() error {
	if c.Retrieval.MaxResults < 0 || c.Retrieval.MaxResults > 1000 {
		return fmt.Errorf("retrieval.max_results must be between 1 and 1000, got %d", c.Retrieval.MaxResults)
	}
	if c.Evidence.Budget < 0 {
		return fmt.Errorf("evidence.budget must be positive, got %d", c.Evidence.Budget)
	}
	if c.Rerank.TopN < 0 {
		return fmt.Errorf("rerank.top_n must not be negative, got %d", c.Rerank.TopN)
	}
	if c.Structured.MaxAttempts < 1 {
		return fmt.Errorf("structured.max_attempts must be at least 1, got %d", c.Structured.MaxAttempts)
	}
	if c.Structured.BaseDelay < 0 || c.Structured.MaxDelay < c.Structured.BaseDelay {
		return fmt.Errorf("structured delays invalid: base %s, max %s", c.Structured.BaseDelay, c.Structured.MaxDelay)
	}
	for name, p := range map[string]ModelParams{"narrative": c.Narrative.Model, "structured": c.Structured.Model} {
		if p.MaxTokens < 0 {
			return fmt.Errorf("%s.model.max_tokens must not be negative", name)
		}
		if p.Temperature < 0 || p.Temperature > 1 {
			return fmt.Errorf("%s.model.temperature must be in [0, 1], got %v", name, p.Temperature)
		}
		if p.TopP < 0 || p.TopP > 1 {
			return fmt.Errorf("%s.model.top_p must be in [0, 1], got %v", name, p.TopP)
		}
	}
	return nil
}
