package evidence

import (
	"fmt"
	"strings"

	"github.com/povarna/generative-ai-agents/med-agent/internal/models"
)

// Select walks the ranking best first and keeps up to k distinct document texts.
// Texts are compared by exact string equality; the first occurrence wins.
// Blank texts are never selected.
func Select(ranked []models.RankedCandidate, docs []models.Document, kind models.ScoreKind, k int) (models.EvidenceSet, error) {
	if k <= 0 {
		k = models.DefaultEvidenceBudget
	}

	set := models.EvidenceSet{Kind: kind}
	seen := make(map[string]struct{}, k)

	for _, candidate := range ranked {
		if len(set.Items) >= k {
			break
		}
		if candidate.Index < 0 || candidate.Index >= len(docs) {
			continue
		}

		doc := docs[candidate.Index]
		if strings.TrimSpace(doc.Text) == "" {
			continue
		}
		if _, ok := seen[doc.Text]; ok {
			continue
		}
		seen[doc.Text] = struct{}{}

		set.Items = append(set.Items, models.EvidenceItem{
			Position:   len(set.Items) + 1,
			Index:      candidate.Index,
			DocumentID: doc.ID,
			Score:      candidate.Score,
			Text:       doc.Text,
		})
	}

	if len(set.Items) == 0 {
		return set, fmt.Errorf("%w: %d ranked candidates yielded no usable text", models.ErrNoEvidence, len(ranked))
	}

	return set, nil
}
