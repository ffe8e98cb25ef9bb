package synthesis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/povarna/generative-ai-agents/med-agent/internal/config"
	"github.com/povarna/generative-ai-agents/med-agent/internal/llm"
	"github.com/povarna/generative-ai-agents/med-agent/internal/models"
	"github.com/rs/zerolog"
)

func testLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

// MockLLMClient replays responses in order and records prompts.
type MockLLMClient struct {
	responses []string
	errs      []error
	requests  []llm.LLMRequest
}

func (m *MockLLMClient) InvokeModel(ctx context.Context, request llm.LLMRequest) (*llm.LLMResponse, error) {
	i := len(m.requests)
	m.requests = append(m.requests, request)

	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}

	content := ""
	if len(m.responses) > 0 {
		if i < len(m.responses) {
			content = m.responses[i]
		} else {
			content = m.responses[len(m.responses)-1]
		}
	}
	return &llm.LLMResponse{Content: content, StopReason: "end_turn"}, nil
}

// recordingSleeper records requested delays without waiting.
type recordingSleeper struct {
	delays []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

const wellFormed = `Here is the analysis.

### 1. Cause:
Viral or bacterial infection.

### 2. Prevention:
Wash hands.

### 3. Treatment:
Rest and fluids.

### 4. Medical advice:
See a doctor above 39°C.

### 5. Special notes:
Watch children closely.`

func evidenceSet(texts ...string) models.EvidenceSet {
	set := models.EvidenceSet{Kind: models.ScoreRelevance}
	for i, text := range texts {
		set.Items = append(set.Items, models.EvidenceItem{Position: i + 1, Index: i, Text: text})
	}
	return set
}

func TestParseSections_WellFormed(t *testing.T) {
	sections, ok := ParseSections(wellFormed)
	if !ok {
		t.Fatalf("Expected valid sections, got %+v", sections)
	}
	if len(sections) != 5 {
		t.Fatalf("Expected 5 sections, got %d", len(sections))
	}
	if sections[0].Number != 1 || sections[0].Title != "Cause" || sections[0].Body != "Viral or bacterial infection." {
		t.Errorf("Unexpected first section %+v", sections[0])
	}
	if sections[4].Title != "Special notes" {
		t.Errorf("Unexpected last title %q", sections[4].Title)
	}
}

func TestParseSections_HeadingVariants(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "hash headings",
			raw: "<think>### 9. ignored</think>\n" +
				"## 1) Cause\nbody one\n" +
				"### 2. Prevention:\nbody two\n" +
				"#### 3、Treatment：\nbody three\n" +
				"# 4. Medical advice\nbody four\n" +
				"##### 5. Notes\nbody five\nmore five\n" +
				"### 6. Extra\nextra body",
		},
		{
			name: "bold headings",
			raw: "**1. Cause**\nbody one\n" +
				"**2. Prevention:**\nbody two\n" +
				"**3) Treatment**：\nbody three\n" +
				"** 4. Medical advice **\nbody four\n" +
				"**5. Notes:**\nbody five\nmore five",
		},
	}

	wantTitles := []string{"Cause", "Prevention", "Treatment", "Medical advice", "Notes"}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sections, ok := ParseSections(tt.raw)
			if !ok {
				t.Fatalf("Expected valid sections, got %+v", sections)
			}

			for i, want := range wantTitles {
				if sections[i].Title != want {
					t.Errorf("Section %d: expected title %q, got %q", i+1, want, sections[i].Title)
				}
				if sections[i].Number != i+1 {
					t.Errorf("Section %d: expected number %d, got %d", i+1, i+1, sections[i].Number)
				}
			}
			if sections[4].Body != "body five\nmore five" {
				t.Errorf("Unexpected body %q", sections[4].Body)
			}
		})
	}
}

func TestParseSections_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "plain prose", raw: "Fever is usually caused by infection. Rest and drink fluids."},
		{name: "four sections", raw: "### 1. A\na\n### 2. B\nb\n### 3. C\nc\n### 4. D\nd"},
		{name: "empty body", raw: "### 1. A\na\n### 2. B\n\n### 3. C\nc\n### 4. D\nd\n### 5. E\ne"},
		{name: "numbered list without marker", raw: "1. A\na\n2. B\nb\n3. C\nc\n4. D\nd\n5. E\ne"},
		{name: "skipped heading number", raw: "### 1. A\na\n### 2. B\nb\n### 4. D\nd\n### 5. E\ne\n### 6. F\nf"},
		{name: "bold sub-list instead of sections", raw: "### 1. Cause:\nSeveral causes.\n**1. Viral infection**\nInfluenza.\n**2. Bacterial infection**\nStrep.\n**3. Other**\nRare."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := ParseSections(tt.raw); ok {
				t.Error("Expected invalid output")
			}
		})
	}
}

func TestParseSections_BoldSubLists(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		section  int
		wantBody string
	}{
		{
			name: "sub-list inside first section",
			raw: "### 1. Cause:\nSeveral causes.\n**1. Viral infection**\nInfluenza.\n**2. Bacterial infection**\nStrep.\n\n" +
				"### 2. Prevention:\nWash hands.\n### 3. Treatment:\nRest.\n### 4. Medical advice:\nSee a doctor.\n### 5. Special notes:\nWatch children.",
			section:  0,
			wantBody: "Several causes.\n**1. Viral infection**\nInfluenza.\n**2. Bacterial infection**\nStrep.",
		},
		{
			name: "sub-list directly under a heading",
			raw: "### 1. Cause:\nInfection.\n### 2. Prevention:\nWash hands.\n### 3. Treatment:\n**1. Rest**\nSleep.\n**2. Fluids**\nWater.\n" +
				"### 4. Medical advice:\nSee a doctor.\n### 5. Special notes:\nWatch children.",
			section:  2,
			wantBody: "**1. Rest**\nSleep.\n**2. Fluids**\nWater.",
		},
	}

	wantTitles := []string{"Cause", "Prevention", "Treatment", "Medical advice", "Special notes"}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sections, ok := ParseSections(tt.raw)
			if !ok {
				t.Fatalf("Expected valid sections, got %+v", sections)
			}
			for i, want := range wantTitles {
				if sections[i].Title != want || sections[i].Number != i+1 {
					t.Errorf("Section %d: expected %d %q, got %d %q", i+1, i+1, want, sections[i].Number, sections[i].Title)
				}
			}
			if got := sections[tt.section].Body; got != tt.wantBody {
				t.Errorf("Unexpected body %q", got)
			}
		})
	}
}

func TestRetryPolicy_Delay(t *testing.T) {
	policy := DefaultRetryPolicy()

	want := []time.Duration{10 * time.Second, 20 * time.Second, 30 * time.Second, 30 * time.Second}
	for i, d := range want {
		if got := policy.Delay(i + 1); got != d {
			t.Errorf("Delay(%d) = %s, want %s", i+1, got, d)
		}
	}
}

func TestNarrator_Narrate(t *testing.T) {
	client := &MockLLMClient{responses: []string{"  Rest and drink fluids.  "}}
	narrator, err := NewNarrator(client, config.DefaultPipelineConfig().Narrative, testLogger())
	if err != nil {
		t.Fatalf("NewNarrator failed: %v", err)
	}

	text, err := narrator.Narrate(context.Background(), models.SynthesisRequest{
		Question: "how to treat a fever",
		Evidence: evidenceSet("fever doc one", "fever doc two"),
	})
	if err != nil {
		t.Fatalf("Narrate failed: %v", err)
	}
	if text != "Rest and drink fluids." {
		t.Errorf("Unexpected text %q", text)
	}

	if len(client.requests) != 1 {
		t.Fatalf("Expected 1 call, got %d", len(client.requests))
	}
	prompt := client.requests[0].Prompt
	if !strings.Contains(prompt, "how to treat a fever") || !strings.Contains(prompt, "fever doc one\n\nfever doc two") {
		t.Errorf("Prompt missing question or context:\n%s", prompt)
	}
	if client.requests[0].MaxTokens != 1000 {
		t.Errorf("Expected MaxTokens 1000, got %d", client.requests[0].MaxTokens)
	}
}

func TestNarrator_Failures(t *testing.T) {
	tests := []struct {
		name   string
		client *MockLLMClient
	}{
		{name: "model error", client: &MockLLMClient{errs: []error{errors.New("throttled")}}},
		{name: "empty text", client: &MockLLMClient{responses: []string{"   "}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			narrator, err := NewNarrator(tt.client, config.DefaultPipelineConfig().Narrative, testLogger())
			if err != nil {
				t.Fatalf("NewNarrator failed: %v", err)
			}

			_, err = narrator.Narrate(context.Background(), models.SynthesisRequest{Question: "q", Evidence: evidenceSet("a")})
			if !errors.Is(err, models.ErrSynthesis) {
				t.Errorf("Expected ErrSynthesis, got %v", err)
			}
			if len(tt.client.requests) != 1 {
				t.Errorf("Expected exactly 1 call, got %d", len(tt.client.requests))
			}
		})
	}
}

func TestNewNarrator_InvalidTemplate(t *testing.T) {
	cfg := config.NarrativeConfig{Prompt: "{{.Question"}

	if _, err := NewNarrator(&MockLLMClient{}, cfg, testLogger()); err == nil {
		t.Error("Expected error for invalid template")
	}
}

func newTestStructurer(t *testing.T, client llm.LLMClient, sleeper *recordingSleeper) *Structurer {
	t.Helper()

	structurer, err := NewStructurer(client, config.DefaultPipelineConfig().Structured, models.DefaultEvidenceBudget, testLogger())
	if err != nil {
		t.Fatalf("NewStructurer failed: %v", err)
	}
	return structurer.WithSleeper(sleeper.sleep)
}

func TestStructurer_ValidOnFirstAttempt(t *testing.T) {
	client := &MockLLMClient{responses: []string{wellFormed}}
	sleeper := &recordingSleeper{}

	answer, err := newTestStructurer(t, client, sleeper).Structure(context.Background(), models.SynthesisRequest{
		Question: "fever",
		Evidence: evidenceSet("doc a"),
	})
	if err != nil {
		t.Fatalf("Structure failed: %v", err)
	}

	if answer.Attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", answer.Attempts)
	}
	if len(answer.Sections) != 5 {
		t.Errorf("Expected 5 sections, got %d", len(answer.Sections))
	}
	if len(sleeper.delays) != 0 {
		t.Errorf("Expected no waits, got %v", sleeper.delays)
	}

	req := client.requests[0]
	if req.Temperature != 0.3 || req.TopP != 0.9 || req.MaxTokens != 2000 {
		t.Errorf("Unexpected request parameters %+v", req)
	}
}

func TestStructurer_AlwaysMalformedExhausts(t *testing.T) {
	client := &MockLLMClient{responses: []string{"no headings here"}}
	sleeper := &recordingSleeper{}

	_, err := newTestStructurer(t, client, sleeper).Structure(context.Background(), models.SynthesisRequest{
		Question: "fever",
		Evidence: evidenceSet("doc a"),
	})
	if !errors.Is(err, models.ErrSynthesisExhausted) {
		t.Fatalf("Expected ErrSynthesisExhausted, got %v", err)
	}

	if len(client.requests) != 5 {
		t.Errorf("Expected 5 attempts, got %d", len(client.requests))
	}

	want := []time.Duration{10 * time.Second, 20 * time.Second, 30 * time.Second, 30 * time.Second}
	if len(sleeper.delays) != len(want) {
		t.Fatalf("Expected %d waits, got %v", len(want), sleeper.delays)
	}
	for i := range want {
		if sleeper.delays[i] != want[i] {
			t.Errorf("Wait %d: expected %s, got %s", i+1, want[i], sleeper.delays[i])
		}
	}

	// the same request is replayed on every attempt
	for i := 1; i < len(client.requests); i++ {
		if client.requests[i] != client.requests[0] {
			t.Errorf("Attempt %d sent a different request", i+1)
		}
	}
}

func TestStructurer_RecoversAfterErrors(t *testing.T) {
	client := &MockLLMClient{
		errs:      []error{errors.New("throttled"), nil, nil},
		responses: []string{"", "", wellFormed},
	}
	sleeper := &recordingSleeper{}

	answer, err := newTestStructurer(t, client, sleeper).Structure(context.Background(), models.SynthesisRequest{
		Question: "fever",
		Evidence: evidenceSet("doc a"),
	})
	if err != nil {
		t.Fatalf("Structure failed: %v", err)
	}
	if answer.Attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", answer.Attempts)
	}
	if len(sleeper.delays) != 2 || sleeper.delays[0] != 10*time.Second || sleeper.delays[1] != 20*time.Second {
		t.Errorf("Unexpected waits %v", sleeper.delays)
	}
}

func TestStructurer_CancelledContextStopsEarly(t *testing.T) {
	client := &MockLLMClient{responses: []string{"bad"}}

	structurer, err := NewStructurer(client, config.DefaultPipelineConfig().Structured, 5, testLogger())
	if err != nil {
		t.Fatalf("NewStructurer failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = structurer.Structure(ctx, models.SynthesisRequest{Question: "q", Evidence: evidenceSet("a")})
	if !errors.Is(err, models.ErrSynthesisExhausted) || !errors.Is(err, context.Canceled) {
		t.Errorf("Expected exhausted wrapping context.Canceled, got %v", err)
	}
	if len(client.requests) != 1 {
		t.Errorf("Expected 1 attempt before cancellation, got %d", len(client.requests))
	}
}

func TestStructurer_DeduplicatesEvidence(t *testing.T) {
	client := &MockLLMClient{responses: []string{wellFormed}}

	_, err := newTestStructurer(t, client, &recordingSleeper{}).Structure(context.Background(), models.SynthesisRequest{
		Question: "fever",
		Evidence: evidenceSet("a", "a ", "b", "c", "d", "e", "f"),
	})
	if err != nil {
		t.Fatalf("Structure failed: %v", err)
	}

	prompt := client.requests[0].Prompt
	if !strings.Contains(prompt, "a\n\nb\n\nc\n\nd\n\ne") {
		t.Errorf("Expected five unique passages in prompt:\n%s", prompt)
	}
	if strings.Contains(prompt, "\n\nf") {
		t.Error("Expected sixth passage to be dropped")
	}
}
