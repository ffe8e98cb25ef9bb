package mcpadapter

import (
	"context"
	"fmt"
	"testing"

	"github.com/povarna/generative-ai-agents/med-agent/internal/models"
)

type stubResolver struct {
	answer *models.Answer
	err    error
}

func (s stubResolver) ResolveAnswer(ctx context.Context, keyword, question, strategy string) (*models.Answer, error) {
	return s.answer, s.err
}

func TestResolve_Success(t *testing.T) {
	answer := &models.Answer{
		Strategy:  models.StrategyRerankNarrative,
		Evidence:  models.EvidenceSet{Kind: models.ScoreRelevance, Items: []models.EvidenceItem{{Position: 1, Text: "doc"}}},
		Narrative: "rest",
	}

	handler := NewResolveHandler(stubResolver{answer: answer})
	_, output, err := handler(context.Background(), nil, ResolveInput{Keyword: "fever", Question: "q"})
	if err != nil {
		t.Fatalf("Handler failed: %v", err)
	}

	if output.Strategy != "rerank+narrative" || output.Result != answer.Text() || output.Error != "" {
		t.Errorf("Unexpected output %+v", output)
	}
}

func TestResolve_FailureIsReportedInOutput(t *testing.T) {
	resolver := stubResolver{err: fmt.Errorf("%w: 5 attempts failed", models.ErrSynthesisExhausted)}

	_, output, err := Resolve(context.Background(), resolver, nil, ResolveInput{Keyword: "fever", Question: "q", Strategy: "rerank+structured"})
	if err != nil {
		t.Fatalf("Expected no tool error, got %v", err)
	}

	if output.Error != "answer synthesis" {
		t.Errorf("Expected stage 'answer synthesis', got '%s'", output.Error)
	}
	if output.Result != "error: answer synthesis failed: generation unavailable, try again later" {
		t.Errorf("Unexpected result %q", output.Result)
	}
}
