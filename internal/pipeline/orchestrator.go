package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/povarna/generative-ai-agents/med-agent/internal/evidence"
	"github.com/povarna/generative-ai-agents/med-agent/internal/metrics"
	"github.com/povarna/generative-ai-agents/med-agent/internal/models"
	"github.com/povarna/generative-ai-agents/med-agent/internal/ranking"
	"github.com/rs/zerolog"
)

// Options are the per-deployment limits of a resolution.
type Options struct {
	MaxResults     int
	EvidenceBudget int
}

// Service resolves a (keyword, question, strategy) triple into an answer.
// It holds only goroutine-safe collaborators and may be shared.
type Service struct {
	store      DocumentStore
	embedder   Embedder
	reranker   Reranker
	narrator   Narrator
	structurer Structurer
	options    Options
	logger     *zerolog.Logger
}

func NewService(
	store DocumentStore,
	embedder Embedder,
	reranker Reranker,
	narrator Narrator,
	structurer Structurer,
	options Options,
	logger *zerolog.Logger,
) *Service {
	if options.EvidenceBudget <= 0 {
		options.EvidenceBudget = models.DefaultEvidenceBudget
	}

	return &Service{
		store:      store,
		embedder:   embedder,
		reranker:   reranker,
		narrator:   narrator,
		structurer: structurer,
		options:    options,
		logger:     logger,
	}
}

// Resolve returns the formatted answer, or a short diagnostic naming the failed stage.
func (s *Service) Resolve(ctx context.Context, keyword, question, strategy string) string {
	answer, err := s.ResolveAnswer(ctx, keyword, question, strategy)
	if err != nil {
		return Describe(err)
	}
	return answer.Text()
}

// ResolveAnswer runs retrieval, ranking, evidence selection and synthesis in order.
func (s *Service) ResolveAnswer(ctx context.Context, keyword, question, strategyName string) (answer *models.Answer, err error) {
	strategy, err := validate(keyword, question, strategyName)
	if err != nil {
		metrics.PipelineRequestsTotal.WithLabelValues("invalid", "input").Inc()
		return nil, err
	}

	keyword = strings.TrimSpace(keyword)
	question = strings.TrimSpace(question)

	logger := s.logger.With().Str("strategy", string(strategy)).Str("keyword", keyword).Logger()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			answer, err = nil, fmt.Errorf("unexpected failure: %v", r)
			logger.Error().Interface("panic", r).Msg("resolution panicked")
		}

		outcome := "ok"
		if err != nil {
			outcome = Stage(err)
		}
		metrics.PipelineRequestsTotal.WithLabelValues(string(strategy), outcome).Inc()
		logger.Info().Str("outcome", outcome).Dur("duration", time.Since(start)).Msg("resolution finished")
	}()

	docs, err := s.search(ctx, keyword)
	if err != nil {
		return nil, err
	}

	logger.Debug().Int("candidates", len(docs)).Msg("retrieved candidates")

	var (
		ranked []models.RankedCandidate
		kind   models.ScoreKind
	)
	if strategy.UsesReranker() {
		kind = models.ScoreRelevance
		ranked, err = s.rerank(ctx, question, docs)
	} else {
		kind = models.ScoreDistance
		ranked, err = s.similarity(ctx, question, docs)
	}
	if err != nil {
		return nil, err
	}

	stageStart := time.Now()
	selected, err := evidence.Select(ranked, docs, kind, s.options.EvidenceBudget)
	observe("evidence", stageStart)
	if err != nil {
		return nil, err
	}

	request := models.SynthesisRequest{
		Question: question,
		Evidence: selected,
		Strategy: strategy,
	}

	answer = &models.Answer{
		Strategy: strategy,
		Evidence: selected,
	}

	stageStart = time.Now()
	if strategy.Structured() {
		answer.Structured, err = s.structurer.Structure(ctx, request)
	} else {
		answer.Narrative, err = s.narrator.Narrate(ctx, request)
	}
	observe("synthesis", stageStart)
	if err != nil {
		return nil, err
	}

	return answer, nil
}

func (s *Service) search(ctx context.Context, keyword string) ([]models.Document, error) {
	defer observe("retrieval", time.Now())

	docs, err := s.store.SearchDocuments(ctx, keyword, s.options.MaxResults)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w for keyword %q", models.ErrNoResults, keyword)
	}
	return docs, nil
}

func (s *Service) rerank(ctx context.Context, question string, docs []models.Document) ([]models.RankedCandidate, error) {
	defer observe("rerank", time.Now())

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Text
	}
	return s.reranker.Rerank(ctx, question, texts)
}

func (s *Service) similarity(ctx context.Context, question string, docs []models.Document) ([]models.RankedCandidate, error) {
	stageStart := time.Now()
	query, err := s.embedder.Embed(ctx, question)
	observe("embedding", stageStart)
	if err != nil {
		return nil, err
	}

	defer observe("similarity", time.Now())
	return ranking.Rank(query, docs)
}

func validate(keyword, question, strategyName string) (models.Strategy, error) {
	if strings.TrimSpace(keyword) == "" {
		return "", fmt.Errorf("%w: keyword is required", models.ErrInputInvalid)
	}
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("%w: question is required", models.ErrInputInvalid)
	}
	return models.ParseStrategy(strategyName)
}

func observe(stage string, start time.Time) {
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

var stages = []struct {
	err   error
	stage string
}{
	{models.ErrInputInvalid, "input"},
	{models.ErrStoreUnavailable, "retrieval"},
	{models.ErrNoResults, "retrieval"},
	{models.ErrEmbeddingService, "embedding"},
	{models.ErrNoValidEmbeddings, "similarity ranking"},
	{models.ErrRerankService, "reranking"},
	{models.ErrNoEvidence, "evidence selection"},
	{models.ErrSynthesisExhausted, "answer synthesis"},
	{models.ErrSynthesis, "answer synthesis"},
}

// Stage names the pipeline stage an error came from.
func Stage(err error) string {
	for _, s := range stages {
		if errors.Is(err, s.err) {
			return s.stage
		}
	}
	return "pipeline"
}

// Describe turns a resolution error into the user facing diagnostic.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, models.ErrInputInvalid):
		return "error: " + err.Error()
	case errors.Is(err, models.ErrNoResults):
		return "error: no matching records found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("error: %s interrupted: request cancelled", Stage(err))
	}

	for _, s := range stages {
		if errors.Is(err, s.err) {
			return fmt.Sprintf("error: %s failed: %s", s.stage, s.err.Error())
		}
	}
	return "error: query processing failed"
}
