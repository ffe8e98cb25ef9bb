package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/emicklei/go-restful/v3"
	"github.com/povarna/generative-ai-agents/med-agent/internal/api"
	"github.com/povarna/generative-ai-agents/med-agent/internal/api/middleware"
	"github.com/povarna/generative-ai-agents/med-agent/internal/models"
	"github.com/rs/zerolog"
)

// fakeResolver returns a canned answer or error and counts calls.
type fakeResolver struct {
	answer *models.Answer
	err    error
	panics bool
	calls  int
}

func (f *fakeResolver) ResolveAnswer(ctx context.Context, keyword, question, strategy string) (*models.Answer, error) {
	f.calls++
	if f.panics {
		panic("resolver exploded")
	}
	return f.answer, f.err
}

func setupTestAPI(t *testing.T, resolver api.Resolver) *restful.Container {
	t.Helper()

	logger := zerolog.Nop()
	container := restful.NewContainer()
	container.Filter(middleware.RecoverPanic)
	api.RegisterRoutes(container, api.NewHandler(resolver, &logger))
	api.RegisterOpenAPI(container)
	return container
}

func postResolve(t *testing.T, container *restful.Container, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/resolve", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	container.ServeHTTP(recorder, req)
	return recorder
}

func TestAPI_Health(t *testing.T) {
	container := setupTestAPI(t, &fakeResolver{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	recorder := httptest.NewRecorder()
	container.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", recorder.Code)
	}

	var response api.HealthResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response.Status != "ok" {
		t.Errorf("Expected status 'ok', got '%s'", response.Status)
	}
}

func TestAPI_Strategies(t *testing.T) {
	container := setupTestAPI(t, &fakeResolver{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/strategies", nil)
	recorder := httptest.NewRecorder()
	container.ServeHTTP(recorder, req)

	var strategies []api.StrategyResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &strategies); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(strategies) != 3 {
		t.Fatalf("Expected 3 strategies, got %d", len(strategies))
	}
	if strategies[1].Name != "similarity+narrative" || strategies[1].Ranking != "similarity" {
		t.Errorf("Unexpected strategy %+v", strategies[1])
	}
	if strategies[2].Synthesis != "structured" {
		t.Errorf("Unexpected strategy %+v", strategies[2])
	}
}

func TestAPI_Resolve_Success(t *testing.T) {
	resolver := &fakeResolver{answer: &models.Answer{
		Strategy: models.StrategyRerankNarrative,
		Evidence: models.EvidenceSet{
			Kind:  models.ScoreRelevance,
			Items: []models.EvidenceItem{{Position: 1, Index: 3, DocumentID: 42, Score: 0.9, Text: "fever doc"}},
		},
		Narrative: "rest",
	}}
	container := setupTestAPI(t, resolver)

	recorder := postResolve(t, container, api.ResolveRequest{Keyword: "fever", Question: "what helps?"})
	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var response api.ResolveResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response.Strategy != "rerank+narrative" {
		t.Errorf("Unexpected strategy %s", response.Strategy)
	}
	if response.Result != resolver.answer.Text() {
		t.Errorf("Unexpected result %q", response.Result)
	}
	if len(response.Evidence) != 1 || response.Evidence[0].DocumentID != 42 || response.Evidence[0].ScoreKind != "relevance" {
		t.Errorf("Unexpected evidence %+v", response.Evidence)
	}
	if response.Error != "" {
		t.Errorf("Expected no error, got %s", response.Error)
	}
}

func TestAPI_Resolve_BadRequests(t *testing.T) {
	tests := []struct {
		name     string
		body     any
		err      error
		wantCall bool
	}{
		{name: "missing keyword", body: api.ResolveRequest{Question: "q"}},
		{name: "missing question", body: api.ResolveRequest{Keyword: "fever"}},
		{name: "unknown strategy", body: api.ResolveRequest{Keyword: "fever", Question: "q", Strategy: "x"},
			err: fmt.Errorf("%w: unknown strategy", models.ErrInputInvalid), wantCall: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := &fakeResolver{err: tt.err}
			container := setupTestAPI(t, resolver)

			recorder := postResolve(t, container, tt.body)
			if recorder.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", recorder.Code)
			}

			var response middleware.ErrorResponse
			if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
				t.Fatalf("Failed to parse response: %v", err)
			}
			if response.Code != http.StatusBadRequest || response.Details == "" {
				t.Errorf("Unexpected error response %+v", response)
			}

			if (resolver.calls > 0) != tt.wantCall {
				t.Errorf("Unexpected resolver calls: %d", resolver.calls)
			}
		})
	}
}

func TestAPI_Resolve_StageFailure(t *testing.T) {
	resolver := &fakeResolver{err: fmt.Errorf("%w: timeout", models.ErrRerankService)}
	container := setupTestAPI(t, resolver)

	recorder := postResolve(t, container, api.ResolveRequest{Keyword: "fever", Question: "q"})
	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", recorder.Code)
	}

	var response api.ResolveResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response.Error != "reranking" {
		t.Errorf("Expected stage 'reranking', got '%s'", response.Error)
	}
	if response.Result != "error: reranking failed: rerank service error" {
		t.Errorf("Unexpected result %q", response.Result)
	}
}

func TestAPI_Resolve_PanicIsRecovered(t *testing.T) {
	container := setupTestAPI(t, &fakeResolver{panics: true})

	recorder := postResolve(t, container, api.ResolveRequest{Keyword: "fever", Question: "q"})
	if recorder.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", recorder.Code)
	}
}

func TestAPI_OpenAPI(t *testing.T) {
	container := setupTestAPI(t, &fakeResolver{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/openapi.json", nil)
	recorder := httptest.NewRecorder()
	container.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", recorder.Code)
	}
	if !bytes.Contains(recorder.Body.Bytes(), []byte("/api/v1/resolve")) {
		t.Error("Expected resolve path in OpenAPI document")
	}
}
