package backfill

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/povarna/generative-ai-agents/med-agent/internal/models"
	"github.com/rs/zerolog"
)

// Store is the document store capability the backfill needs.
type Store interface {
	DocumentsInRange(ctx context.Context, minID, maxID int64, onlyMissing bool) ([]models.Document, error)
	UpdateEmbedding(ctx context.Context, id int64, vector []float64) error
}

// Embedder reports token usage alongside the vector.
type Embedder interface {
	EmbedWithTokenCount(ctx context.Context, text string) ([]float64, int, error)
}

type Options struct {
	MinID       int64
	MaxID       int64
	BatchSize   int64 // ids per store query
	Workers     int
	OnlyMissing bool
}

type Result struct {
	Updated int
	Skipped int
	Failed  int
	Tokens  int
}

// Service fills the embedding column of stored documents.
type Service struct {
	store    Store
	embedder Embedder
	logger   *zerolog.Logger
}

func NewService(store Store, embedder Embedder, logger *zerolog.Logger) *Service {
	return &Service{
		store:    store,
		embedder: embedder,
		logger:   logger,
	}
}

type outcome struct {
	tokens int
	err    error
}

// Run embeds every document in [MinID, MaxID] batch by batch. Row failures are
// counted and logged; store listing failures and cancellation stop the run.
func (s *Service) Run(ctx context.Context, opts Options) (Result, error) {
	if opts.MinID <= 0 {
		opts.MinID = 1
	}
	if opts.MaxID < opts.MinID {
		return Result{}, fmt.Errorf("%w: max id %d is below min id %d", models.ErrInputInvalid, opts.MaxID, opts.MinID)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}

	var result Result

	for start := opts.MinID; start <= opts.MaxID; start += opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		end := min(start+opts.BatchSize-1, opts.MaxID)

		docs, err := s.store.DocumentsInRange(ctx, start, end, opts.OnlyMissing)
		if err != nil {
			return result, err
		}

		var pending []models.Document
		for _, doc := range docs {
			if strings.TrimSpace(doc.Text) == "" {
				result.Skipped++
				continue
			}
			pending = append(pending, doc)
		}

		for _, o := range s.embedBatch(ctx, pending, opts.Workers) {
			if o.err != nil {
				result.Failed++
				continue
			}
			result.Updated++
			result.Tokens += o.tokens
		}

		s.logger.Info().
			Int64("from_id", start).
			Int64("to_id", end).
			Int("updated", result.Updated).
			Int("failed", result.Failed).
			Msg("Backfill batch done")
	}

	return result, nil
}

func (s *Service) embedBatch(ctx context.Context, docs []models.Document, workers int) []outcome {
	jobs := make(chan models.Document)
	results := make(chan outcome, len(docs))
	var wg sync.WaitGroup

	for range min(workers, len(docs)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for doc := range jobs {
				results <- s.embedOne(ctx, doc)
			}
		}()
	}

	for _, doc := range docs {
		jobs <- doc
	}
	close(jobs)

	wg.Wait()
	close(results)

	var outcomes []outcome
	for o := range results {
		outcomes = append(outcomes, o)
	}
	return outcomes
}

func (s *Service) embedOne(ctx context.Context, doc models.Document) outcome {
	vector, tokens, err := s.embedder.EmbedWithTokenCount(ctx, doc.Text)
	if err != nil {
		s.logger.Warn().Err(err).Int64("doc_id", doc.ID).Msg("Embedding failed")
		return outcome{err: err}
	}

	if err := s.store.UpdateEmbedding(ctx, doc.ID, vector); err != nil {
		s.logger.Warn().Err(err).Int64("doc_id", doc.ID).Msg("Embedding update failed")
		return outcome{err: err}
	}

	s.logger.Debug().Int64("doc_id", doc.ID).Int("token_count", tokens).Msg("Document embedded")
	return outcome{tokens: tokens}
}
