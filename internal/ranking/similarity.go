package ranking

import (
	"fmt"
	"math"
	"sort"

	"github.com/povarna/generative-ai-agents/med-agent/internal/embedding"
	"github.com/povarna/generative-ai-agents/med-agent/internal/models"
)

// Rank orders candidates by Euclidean distance to the query embedding, nearest first.
//
// Candidates without a usable embedding (missing, unparseable, or of a
// different length than the query) are left out; the others keep their
// original slice position in RankedCandidate.Index.
func Rank(query []float64, docs []models.Document) ([]models.RankedCandidate, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: empty query embedding", models.ErrNoValidEmbeddings)
	}

	ranked := make([]models.RankedCandidate, 0, len(docs))
	for i, doc := range docs {
		vector := embedding.Resolve(doc, len(query))
		if vector == nil {
			continue
		}

		ranked = append(ranked, models.RankedCandidate{
			Index: i,
			Score: L2Distance(query, vector),
		})
	}

	if len(ranked) == 0 {
		return nil, fmt.Errorf("%w: none of %d candidates has a parseable embedding", models.ErrNoValidEmbeddings, len(docs))
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score < ranked[j].Score
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	return ranked, nil
}

// L2Distance assumes equal lengths.
func L2Distance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
