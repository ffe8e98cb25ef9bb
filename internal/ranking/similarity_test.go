package ranking

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/povarna/generative-ai-agents/med-agent/internal/models"
)

func raw(s string) *string {
	return &s
}

func TestRank_OrdersByDistance(t *testing.T) {
	docs := []models.Document{
		{ID: 1, Text: "far", RawEmbedding: raw("[10, 10]")},
		{ID: 2, Text: "none"},
		{ID: 3, Text: "near", RawEmbedding: raw("[1, 1]")},
		{ID: 4, Text: "broken", RawEmbedding: raw("[1, nope")},
		{ID: 5, Text: "exact", Vector: []float64{0, 0}},
	}

	ranked, err := Rank([]float64{0, 0}, docs)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}

	if len(ranked) != 3 {
		t.Fatalf("Expected 3 ranked candidates, got %d", len(ranked))
	}

	wantIndexes := []int{4, 2, 0}
	for i, want := range wantIndexes {
		if ranked[i].Index != want {
			t.Errorf("Position %d: expected index %d, got %d", i, want, ranked[i].Index)
		}
		if ranked[i].Rank != i+1 {
			t.Errorf("Position %d: expected rank %d, got %d", i, i+1, ranked[i].Rank)
		}
	}

	if math.Abs(ranked[1].Score-math.Sqrt2) > 1e-9 {
		t.Errorf("Expected distance sqrt(2), got %f", ranked[1].Score)
	}
}

func TestRank_DistancesNonDecreasing(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		dim := 1 + rng.Intn(8)
		query := randomVector(rng, dim)

		n := 1 + rng.Intn(30)
		docs := make([]models.Document, n)
		for i := range docs {
			if rng.Intn(4) == 0 {
				continue // no embedding
			}
			docs[i].Vector = randomVector(rng, dim)
		}
		docs[0].Vector = randomVector(rng, dim)

		ranked, err := Rank(query, docs)
		if err != nil {
			t.Fatalf("Round %d: Rank failed: %v", round, err)
		}

		for i := 1; i < len(ranked); i++ {
			if ranked[i].Score < ranked[i-1].Score {
				t.Fatalf("Round %d: distances decrease at %d: %f < %f", round, i, ranked[i].Score, ranked[i-1].Score)
			}
		}
	}
}

func TestRank_NoValidEmbeddings(t *testing.T) {
	docs := []models.Document{
		{Text: "missing"},
		{Text: "malformed", RawEmbedding: raw("not a vector")},
		{Text: "wrong dimension", RawEmbedding: raw("[1, 2, 3]")},
	}

	_, err := Rank([]float64{0, 0}, docs)
	if !errors.Is(err, models.ErrNoValidEmbeddings) {
		t.Errorf("Expected ErrNoValidEmbeddings, got %v", err)
	}
}

func TestRank_EmptyQuery(t *testing.T) {
	docs := []models.Document{{Vector: []float64{1}}}

	_, err := Rank(nil, docs)
	if !errors.Is(err, models.ErrNoValidEmbeddings) {
		t.Errorf("Expected ErrNoValidEmbeddings, got %v", err)
	}
}

func TestRank_TiesKeepOriginalOrder(t *testing.T) {
	docs := []models.Document{
		{Vector: []float64{1, 0}},
		{Vector: []float64{0, 1}},
		{Vector: []float64{-1, 0}},
	}

	ranked, err := Rank([]float64{0, 0}, docs)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}

	for i, r := range ranked {
		if r.Index != i {
			t.Errorf("Expected tie order to be preserved, got index %d at %d", r.Index, i)
		}
	}
}

func randomVector(rng *rand.Rand, dim int) []float64 {
	v := make([]float64, dim)
	for i := range v {
		v[i] = rng.Float64()*2 - 1
	}
	return v
}
