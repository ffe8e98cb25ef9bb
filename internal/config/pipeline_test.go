package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadPipelineConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadPipelineConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadPipelineConfig() failed: %v", err)
	}

	if cfg.Retrieval.MaxResults != 1000 {
		t.Errorf("Expected max_results 1000, got %d", cfg.Retrieval.MaxResults)
	}
	if cfg.Evidence.Budget != 5 {
		t.Errorf("Expected evidence budget 5, got %d", cfg.Evidence.Budget)
	}
	if cfg.Narrative.Model.MaxTokens != 1000 {
		t.Errorf("Expected narrative max_tokens 1000, got %d", cfg.Narrative.Model.MaxTokens)
	}
	if cfg.Structured.Model.Temperature != 0.3 || cfg.Structured.Model.TopP != 0.9 || cfg.Structured.Model.MaxTokens != 2000 {
		t.Errorf("Unexpected structured model params %+v", cfg.Structured.Model)
	}
	if cfg.Structured.MaxAttempts != 5 || cfg.Structured.BaseDelay != 5*time.Second || cfg.Structured.MaxDelay != 30*time.Second {
		t.Errorf("Unexpected retry policy %+v", cfg.Structured)
	}
	if !strings.Contains(cfg.Structured.Prompt, "{{.Question}}") {
		t.Error("Expected default structured prompt")
	}
}

func TestLoadPipelineConfig_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")

	content := `evidence:
  budget: 3
rerank:
  top_n: 20
structured:
  max_attempts: 2
  base_delay: 100ms
  max_delay: 1s
  prompt: |
    Q: {{.Question}}
    {{.Context}}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadPipelineConfig(path)
	if err != nil {
		t.Fatalf("LoadPipelineConfig() failed: %v", err)
	}

	if cfg.Evidence.Budget != 3 {
		t.Errorf("Expected budget 3, got %d", cfg.Evidence.Budget)
	}
	if cfg.Rerank.TopN != 20 {
		t.Errorf("Expected top_n 20, got %d", cfg.Rerank.TopN)
	}
	if cfg.Structured.MaxAttempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", cfg.Structured.MaxAttempts)
	}
	if cfg.Structured.BaseDelay != 100*time.Millisecond || cfg.Structured.MaxDelay != time.Second {
		t.Errorf("Unexpected delays %s / %s", cfg.Structured.BaseDelay, cfg.Structured.MaxDelay)
	}
	if !strings.HasPrefix(cfg.Structured.Prompt, "Q: {{.Question}}") {
		t.Errorf("Expected overridden prompt, got %q", cfg.Structured.Prompt)
	}
	// untouched sections keep defaults
	if cfg.Narrative.Prompt != DefaultNarrativePrompt {
		t.Error("Expected default narrative prompt")
	}
}

func TestLoadPipelineConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "malformed yaml", content: "evidence: [budget"},
		{name: "max results above cap", content: "retrieval:\n  max_results: 5000\n"},
		{name: "temperature out of range", content: "narrative:\n  model:\n    temperature: 1.5\n"},
		{name: "max delay below base", content: "structured:\n  base_delay: 10s\n  max_delay: 1s\n"},
		{name: "negative top_n", content: "rerank:\n  top_n: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "pipeline.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to write test config: %v", err)
			}

			if _, err := LoadPipelineConfig(path); err == nil {
				t.Error("Expected error for invalid config")
			}
		})
	}
}
