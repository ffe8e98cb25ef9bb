package synthesis

import (
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/povarna/generative-ai-agents/med-agent/internal/config"
	"github.com/povarna/generative-ai-agents/med-agent/internal/llm"
	"github.com/povarna/generative-ai-agents/med-agent/internal/metrics"
	"github.com/povarna/generative-ai-agents/med-agent/internal/models"
	"github.com/rs/zerolog"
)

// State is a step of the structured generation loop.
type State int

const (
	StateAttempting State = iota
	StateValidOutput
	StateInvalidOutput
	StateRetryWait
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateValidOutput:
		return "valid_output"
	case StateInvalidOutput:
		return "invalid_output"
	case StateRetryWait:
		return "retry_wait"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// RetryPolicy bounds the structured generation loop.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   5 * time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// Delay is the wait after failed attempt n (1-based): min(MaxDelay, BaseDelay*2^n).
func (p RetryPolicy) Delay(n int) time.Duration {
	delay := p.BaseDelay
	for i := 0; i < n; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return delay
}

// Sleeper blocks the calling goroutine for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep is the production Sleeper.
func ContextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Structurer asks the model for a five-section analysis and retries until the
// output parses or the attempt budget is spent.
type Structurer struct {
	llmClient      llm.LLMClient
	promptTemplate *template.Template
	params         config.ModelParams
	policy         RetryPolicy
	budget         int
	sleep          Sleeper
	logger         *zerolog.Logger
}

func NewStructurer(llmClient llm.LLMClient, cfg config.StructuredConfig, budget int, logger *zerolog.Logger) (*Structurer, error) {
	tmpl, err := parsePrompt("structured", cfg.Prompt)
	if err != nil {
		return nil, err
	}

	policy := RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		MaxDelay:    cfg.MaxDelay,
	}
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}

	return &Structurer{
		llmClient:      llmClient,
		promptTemplate: tmpl,
		params:         cfg.Model,
		policy:         policy,
		budget:         budget,
		sleep:          ContextSleep,
		logger:         logger,
	}, nil
}

// WithSleeper replaces the wait between attempts.
func (s *Structurer) WithSleeper(sleep Sleeper) *Structurer {
	s.sleep = sleep
	return s
}

// WithPolicy replaces the retry policy.
func (s *Structurer) WithPolicy(policy RetryPolicy) *Structurer {
	s.policy = policy
	return s
}

func (s *Structurer) Structure(ctx context.Context, req models.SynthesisRequest) (*models.StructuredAnswer, error) {
	passages := uniquePassages(req.Evidence, s.budget)

	prompt, err := renderPrompt(s.promptTemplate, req.Question, strings.Join(passages, "\n\n"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSynthesis, err)
	}

	request := llm.LLMRequest{
		Prompt:      prompt,
		MaxTokens:   s.params.MaxTokens,
		Temperature: s.params.Temperature,
		TopP:        s.params.TopP,
	}

	var (
		state    = StateAttempting
		attempt  = 0
		lastErr  error
		sections []models.Section
	)

	for {
		switch state {
		case StateAttempting:
			attempt++
			sections, lastErr = s.attempt(ctx, request)
			if lastErr == nil {
				state = StateValidOutput
			} else {
				state = StateInvalidOutput
			}

		case StateValidOutput:
			s.logger.Info().Int("attempt", attempt).Msg("structured answer accepted")
			return &models.StructuredAnswer{Sections: sections, Attempts: attempt}, nil

		case StateInvalidOutput:
			s.logger.Warn().Err(lastErr).Int("attempt", attempt).Int("max_attempts", s.policy.MaxAttempts).Msg("structured attempt failed")
			if attempt >= s.policy.MaxAttempts {
				state = StateExhausted
			} else {
				state = StateRetryWait
			}

		case StateRetryWait:
			delay := s.policy.Delay(attempt)
			s.logger.Info().Dur("backoff", delay).Int("attempt", attempt).Msg("waiting before structured retry")
			if err := s.sleep(ctx, delay); err != nil {
				return nil, fmt.Errorf("%w: %w", models.ErrSynthesisExhausted, err)
			}
			state = StateAttempting

		case StateExhausted:
			s.logger.Error().Err(lastErr).Int("attempts", attempt).Msg("structured generation exhausted")
			return nil, fmt.Errorf("%w: %d attempts failed, last error: %v", models.ErrSynthesisExhausted, attempt, lastErr)
		}
	}
}

// attempt performs one call and validates the output.
func (s *Structurer) attempt(ctx context.Context, request llm.LLMRequest) ([]models.Section, error) {
	resp, err := s.llmClient.InvokeModel(ctx, request)
	if err != nil {
		metrics.SynthesisAttemptsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if strings.TrimSpace(resp.Content) == "" {
		metrics.SynthesisAttemptsTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("model returned no text")
	}

	sections, ok := ParseSections(resp.Content)
	if !ok {
		metrics.SynthesisAttemptsTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("output has %d usable sections, want %d", len(sections), models.StructuredSectionCount)
	}

	metrics.SynthesisAttemptsTotal.WithLabelValues("valid").Inc()
	return sections, nil
}
