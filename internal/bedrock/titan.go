package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/povarna/generative-ai-agents/med-agent/internal/models"
)

// Titan embeddings request format
type titanEmbeddingRequest struct {
	InputText string `json:"inputText"`
}

// Titan embeddings response format
type titanEmbeddingResponse struct {
	Embedding           []float64 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

// TitanEmbedder produces fixed-length text embeddings with Amazon Titan.
type TitanEmbedder struct {
	client    *Client
	modelID   string
	dimension int
}

// NewTitanEmbedder creates an embedder. dimension 0 disables the length check.
func NewTitanEmbedder(client *Client, modelID string, dimension int) *TitanEmbedder {
	return &TitanEmbedder{
		client:    client,
		modelID:   modelID,
		dimension: dimension,
	}
}

func (e *TitanEmbedder) ModelID() string {
	return e.modelID
}

func (e *TitanEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	vector, _, err := e.EmbedWithTokenCount(ctx, text)
	return vector, err
}

// EmbedWithTokenCount also returns the number of input tokens Titan reported.
func (e *TitanEmbedder) EmbedWithTokenCount(ctx context.Context, text string) ([]float64, int, error) {
	if strings.TrimSpace(text) == "" {
		return nil, 0, fmt.Errorf("%w: empty input text", models.ErrEmbeddingService)
	}

	body, err := e.client.invoke(ctx, e.modelID, titanEmbeddingRequest{InputText: text})
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", models.ErrEmbeddingService, err)
	}

	var response titanEmbeddingResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, 0, fmt.Errorf("%w: failed to unmarshal titan response: %v", models.ErrEmbeddingService, err)
	}

	if len(response.Embedding) == 0 {
		return nil, 0, fmt.Errorf("%w: titan returned an empty embedding", models.ErrEmbeddingService)
	}

	if e.dimension > 0 && len(response.Embedding) != e.dimension {
		return nil, 0, fmt.Errorf("%w: expected %d dimensions, got %d", models.ErrEmbeddingService, e.dimension, len(response.Embedding))
	}

	return response.Embedding, response.InputTextTokenCount, nil
}
