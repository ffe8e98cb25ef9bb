package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/emicklei/go-restful/v3"
	"github.com/povarna/generative-ai-agents/med-agent/internal/api/middleware"
	"github.com/povarna/generative-ai-agents/med-agent/internal/models"
	"github.com/povarna/generative-ai-agents/med-agent/internal/pipeline"
	"github.com/rs/zerolog"
)

// Resolver is the pipeline entry point the handler needs.
type Resolver interface {
	ResolveAnswer(ctx context.Context, keyword, question, strategy string) (*models.Answer, error)
}

type Handler struct {
	resolver Resolver
	logger   *zerolog.Logger
}

func NewHandler(resolver Resolver, logger *zerolog.Logger) *Handler {
	return &Handler{
		resolver: resolver,
		logger:   logger,
	}
}

// POST /api/v1/resolve
// Body: ResolveRequest
// Returns: ResolveResponse
func (h *Handler) Resolve(req *restful.Request, resp *restful.Response) {
	var resolveRequest ResolveRequest
	if err := req.ReadEntity(&resolveRequest); err != nil {
		h.logger.Error().Err(err).Msg("Failed to parse request body")
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}

	if err := resolveRequest.Validate(); err != nil {
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}

	h.logger.Info().
		Str("keyword", resolveRequest.Keyword).
		Str("strategy", resolveRequest.Strategy).
		Msg("Start resolution")

	answer, err := h.resolver.ResolveAnswer(req.Request.Context(), resolveRequest.Keyword, resolveRequest.Question, resolveRequest.Strategy)
	if errors.Is(err, models.ErrInputInvalid) {
		middleware.HandleError(resp, err, http.StatusBadRequest)
		return
	}

	if err != nil {
		h.logger.Warn().Err(err).Str("stage", pipeline.Stage(err)).Msg("Resolution failed")
		resp.WriteHeaderAndEntity(http.StatusOK, ResolveResponse{
			Strategy: resolveRequest.Strategy,
			Result:   pipeline.Describe(err),
			Error:    pipeline.Stage(err),
		})
		return
	}

	resp.WriteHeaderAndEntity(http.StatusOK, toResponse(answer))
}

// GET /api/v1/strategies
func (h *Handler) Strategies(req *restful.Request, resp *restful.Response) {
	strategies := make([]StrategyResponse, 0, len(models.Strategies))
	for _, s := range models.Strategies {
		strategies = append(strategies, describeStrategy(s))
	}

	resp.WriteHeaderAndEntity(http.StatusOK, strategies)
}

// Health handler GET API /api/v1/health
func (h *Handler) Health(req *restful.Request, resp *restful.Response) {
	healthResponse := HealthResponse{
		Status:  "ok",
		Version: "1.0.0",
	}

	resp.WriteHeaderAndEntity(http.StatusOK, healthResponse)
}

func toResponse(answer *models.Answer) ResolveResponse {
	response := ResolveResponse{
		Strategy: string(answer.Strategy),
		Result:   answer.Text(),
	}

	for _, item := range answer.Evidence.Items {
		response.Evidence = append(response.Evidence, EvidenceResponse{
			Position:    item.Position,
			RecordIndex: item.Index,
			DocumentID:  item.DocumentID,
			Score:       item.Score,
			ScoreKind:   string(answer.Evidence.Kind),
			Content:     item.Text,
		})
	}

	if answer.Structured != nil {
		response.Attempts = answer.Structured.Attempts
	}

	return response
}

func describeStrategy(s models.Strategy) StrategyResponse {
	response := StrategyResponse{Name: string(s), Ranking: "rerank", Synthesis: "narrative"}

	switch s {
	case models.StrategyRerankNarrative:
		response.Description = "Cross-encoder rerank, single-shot narrative answer"
	case models.StrategySimilarityNarrative:
		response.Ranking = "similarity"
		response.Description = "Embedding L2 distance, single-shot narrative answer"
	case models.StrategyRerankStructured:
		response.Synthesis = "structured"
		response.Description = "Cross-encoder rerank, five-section analysis with retries"
	}

	return response
}
