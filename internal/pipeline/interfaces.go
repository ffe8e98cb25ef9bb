package pipeline

//go:generate mockgen -source=interfaces.go -destination=mocks/mock_pipeline.go -package=mocks

import (
	"context"

	"github.com/povarna/generative-ai-agents/med-agent/internal/models"
)

// DocumentStore finds candidate documents by keyword.
type DocumentStore interface {
	SearchDocuments(ctx context.Context, keyword string, limit int) ([]models.Document, error)
}

// Embedder turns the question into a query vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Reranker scores (question, document) pairs with a cross-encoder.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string) ([]models.RankedCandidate, error)
}

// Narrator produces a free-text answer.
type Narrator interface {
	Narrate(ctx context.Context, req models.SynthesisRequest) (string, error)
}

// Structurer produces a five-section answer.
type Structurer interface {
	Structure(ctx context.Context, req models.SynthesisRequest) (*models.StructuredAnswer, error)
}
