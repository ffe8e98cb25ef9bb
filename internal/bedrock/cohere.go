package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/povarna/generative-ai-agents/med-agent/internal/models"
)

const cohereRerankAPIVersion = 2

// Cohere rerank request format (what Bedrock expects)
type cohereRerankRequest struct {
	Query      string   `json:"query"`
	Documents  []string `json:"documents"`
	TopN       int      `json:"top_n,omitempty"`
	APIVersion int      `json:"api_version"`
}

// Cohere rerank response format (what Bedrock returns)
type cohereRerankResponse struct {
	Results []struct {
		Index          *int     `json:"index"`
		RelevanceScore *float64 `json:"relevance_score"`
	} `json:"results"`
}

// CohereReranker scores (query, document) pairs with the Cohere cross-encoder.
type CohereReranker struct {
	client  *Client
	modelID string
	topN    int
}

// NewCohereReranker creates a reranker. topN 0 asks for every document back.
func NewCohereReranker(client *Client, modelID string, topN int) *CohereReranker {
	return &CohereReranker{
		client:  client,
		modelID: modelID,
		topN:    topN,
	}
}

func (r *CohereReranker) ModelID() string {
	return r.modelID
}

// Rerank returns candidates sorted by descending relevance; Index points into documents.
func (r *CohereReranker) Rerank(ctx context.Context, query string, documents []string) ([]models.RankedCandidate, error) {
	if len(documents) == 0 {
		return nil, fmt.Errorf("%w: no documents to rerank", models.ErrRerankService)
	}

	topN := r.topN
	if topN > len(documents) {
		topN = len(documents)
	}

	body, err := r.client.invoke(ctx, r.modelID, cohereRerankRequest{
		Query:      query,
		Documents:  documents,
		TopN:       topN,
		APIVersion: cohereRerankAPIVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrRerankService, err)
	}

	var response cohereRerankResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal rerank response: %v", models.ErrRerankService, err)
	}

	if len(response.Results) == 0 {
		return nil, fmt.Errorf("%w: rerank returned no results", models.ErrRerankService)
	}

	ranked := make([]models.RankedCandidate, 0, len(response.Results))
	for _, result := range response.Results {
		if result.Index == nil || result.RelevanceScore == nil {
			return nil, fmt.Errorf("%w: rerank result without index or score", models.ErrRerankService)
		}
		if *result.Index < 0 || *result.Index >= len(documents) {
			return nil, fmt.Errorf("%w: rerank index %d out of range [0, %d)", models.ErrRerankService, *result.Index, len(documents))
		}

		ranked = append(ranked, models.RankedCandidate{
			Index: *result.Index,
			Score: *result.RelevanceScore,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	return ranked, nil
}
