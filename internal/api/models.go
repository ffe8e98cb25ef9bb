package api

import (
	"strings"

	"github.com/povarna/generative-ai-agents/med-agent/internal/api/middleware"
)

type ResolveRequest struct {
	Keyword  string `json:"keyword" description:"Keyword used for the substring search (e.g. fever)"`
	Question string `json:"question" description:"The medical question to answer"`
	Strategy string `json:"strategy,omitempty" description:"rerank+narrative (default), similarity+narrative or rerank+structured"`
}

type EvidenceResponse struct {
	Position    int     `json:"position"`
	RecordIndex int     `json:"record_index"`
	DocumentID  int64   `json:"document_id"`
	Score       float64 `json:"score"`
	ScoreKind   string  `json:"score_kind"`
	Content     string  `json:"content"`
}

type ResolveResponse struct {
	Strategy string             `json:"strategy" description:"Strategy that produced the result"`
	Result   string             `json:"result" description:"Formatted answer, or a diagnostic naming the failed stage"`
	Evidence []EvidenceResponse `json:"evidence,omitempty" description:"Selected evidence passages"`
	Attempts int                `json:"attempts,omitempty" description:"Structured generation attempts used"`
	Error    string             `json:"error,omitempty" description:"Failed stage, empty on success"`
}

type StrategyResponse struct {
	Name        string `json:"name"`
	Ranking     string `json:"ranking"`
	Synthesis   string `json:"synthesis"`
	Description string `json:"description"`
}

type HealthResponse struct {
	Status  string `json:"status" description:"Service status"`
	Version string `json:"version" description:"API version"`
}

func (r *ResolveRequest) Validate() error {
	if strings.TrimSpace(r.Keyword) == "" {
		return middleware.ErrEmptyKeyword
	}
	if strings.TrimSpace(r.Question) == "" {
		return middleware.ErrEmptyQuestion
	}
	return nil
}
