package synthesis

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/povarna/generative-ai-agents/med-agent/internal/config"
	"github.com/povarna/generative-ai-agents/med-agent/internal/llm"
	"github.com/povarna/generative-ai-agents/med-agent/internal/models"
	"github.com/rs/zerolog"
)

// Narrator produces a free-form answer in a single model call.
type Narrator struct {
	llmClient      llm.LLMClient
	promptTemplate *template.Template
	params         config.ModelParams
	logger         *zerolog.Logger
}

func NewNarrator(llmClient llm.LLMClient, cfg config.NarrativeConfig, logger *zerolog.Logger) (*Narrator, error) {
	tmpl, err := parsePrompt("narrative", cfg.Prompt)
	if err != nil {
		return nil, err
	}

	return &Narrator{
		llmClient:      llmClient,
		promptTemplate: tmpl,
		params:         cfg.Model,
		logger:         logger,
	}, nil
}

// Narrate returns the trimmed model text. Failures are not retried.
func (n *Narrator) Narrate(ctx context.Context, req models.SynthesisRequest) (string, error) {
	prompt, err := renderPrompt(n.promptTemplate, req.Question, req.Evidence.Context())
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrSynthesis, err)
	}

	resp, err := n.llmClient.InvokeModel(ctx, llm.LLMRequest{
		Prompt:      prompt,
		MaxTokens:   n.params.MaxTokens,
		Temperature: n.params.Temperature,
		TopP:        n.params.TopP,
	})
	if err != nil {
		n.logger.Error().Err(err).Msg("narrative generation failed")
		return "", fmt.Errorf("%w: %v", models.ErrSynthesis, err)
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		n.logger.Warn().Str("stop_reason", resp.StopReason).Msg("narrative generation returned no text")
		return "", fmt.Errorf("%w: model returned no text", models.ErrSynthesis)
	}

	return text, nil
}
