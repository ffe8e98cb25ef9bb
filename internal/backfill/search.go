package backfill

import (
	"context"
	"fmt"
	"strings"

	"github.com/povarna/generative-ai-agents/med-agent/internal/database"
	"github.com/povarna/generative-ai-agents/med-agent/internal/models"
)

// VectorStore runs a server-side nearest neighbour search.
type VectorStore interface {
	VectorSearch(ctx context.Context, vector []float64, probes, limit int) ([]database.Neighbor, error)
}

// Search embeds word and returns the topK nearest stored documents by L2 distance.
func Search(ctx context.Context, embedder Embedder, store VectorStore, word string, probes, topK int) ([]database.Neighbor, error) {
	if strings.TrimSpace(word) == "" {
		return nil, fmt.Errorf("%w: search input is required", models.ErrInputInvalid)
	}
	if topK <= 0 {
		topK = 2
	}

	vector, _, err := embedder.EmbedWithTokenCount(ctx, word)
	if err != nil {
		return nil, err
	}

	return store.VectorSearch(ctx, vector, probes, topK)
}
