package models

import (
	"fmt"
	"strings"
)

// DefaultEvidenceBudget is the maximum number of distinct passages handed to synthesis.
const DefaultEvidenceBudget = 5

// Strategy selects the ranking and synthesis path of a query.
type Strategy string

const (
	StrategyRerankNarrative     Strategy = "rerank+narrative"
	StrategySimilarityNarrative Strategy = "similarity+narrative"
	StrategyRerankStructured    Strategy = "rerank+structured"
)

// Strategies lists every supported strategy in display order.
var Strategies = []Strategy{
	StrategyRerankNarrative,
	StrategySimilarityNarrative,
	StrategyRerankStructured,
}

var legacyStrategies = map[string]Strategy{
	"nova_cohere":     StrategyRerankNarrative,
	"nova_titan":      StrategySimilarityNarrative,
	"deepseek_cohere": StrategyRerankStructured,
}

// ParseStrategy maps a user supplied name to a Strategy. Empty input selects the default.
func ParseStrategy(name string) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return StrategyRerankNarrative, nil
	}

	for _, s := range Strategies {
		if string(s) == name {
			return s, nil
		}
	}

	if s, ok := legacyStrategies[name]; ok {
		return s, nil
	}

	return "", fmt.Errorf("%w: unknown strategy %q", ErrInputInvalid, name)
}

// UsesReranker reports whether the strategy ranks with the cross-encoder.
func (s Strategy) UsesReranker() bool {
	return s == StrategyRerankNarrative || s == StrategyRerankStructured
}

// Structured reports whether the strategy produces a sectioned answer.
func (s Strategy) Structured() bool {
	return s == StrategyRerankStructured
}

// Document is a candidate row returned by the document store.
type Document struct {
	ID           int64
	Text         string
	Vector       []float64 // native embedding, when the store can provide one
	RawEmbedding *string   // serialized embedding column, nil when NULL
}

// ScoreKind tells how a ranking score has to be read.
type ScoreKind string

const (
	// ScoreRelevance is a cross-encoder score, higher is better.
	ScoreRelevance ScoreKind = "relevance"
	// ScoreDistance is an L2 distance, lower is better.
	ScoreDistance ScoreKind = "distance"
)

// Label is the human readable name of the score in evidence traces.
func (k ScoreKind) Label() string {
	if k == ScoreDistance {
		return "distance"
	}
	return "relevance score"
}

// RankedCandidate points back into the candidate slice by Index.
type RankedCandidate struct {
	Index int
	Score float64
	Rank  int
}

// EvidenceItem is one selected passage.
type EvidenceItem struct {
	Position   int
	Index      int
	DocumentID int64
	Score      float64
	Text       string
}

// EvidenceSet holds the deduplicated passages used for synthesis.
type EvidenceSet struct {
	Kind  ScoreKind
	Items []EvidenceItem
}

func (e EvidenceSet) Len() int {
	return len(e.Items)
}

// Texts returns the passage texts in rank order.
func (e EvidenceSet) Texts() []string {
	texts := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		texts = append(texts, item.Text)
	}
	return texts
}

// Context joins the passages into the blob given to the generative model.
func (e EvidenceSet) Context() string {
	return strings.Join(e.Texts(), "\n\n")
}

// Trace renders the evidence section shown to the user.
func (e EvidenceSet) Trace() string {
	var sb strings.Builder
	for _, item := range e.Items {
		sb.WriteString(fmt.Sprintf("\n%d. record index: %d, %s: %.4f\n", item.Position, item.Index, e.Kind.Label(), item.Score))
		sb.WriteString(fmt.Sprintf("   content: %s\n", item.Text))
	}
	return sb.String()
}

// SynthesisRequest is built once per query and replayed across structured attempts.
type SynthesisRequest struct {
	Question string
	Evidence EvidenceSet
	Strategy Strategy
}

// Section is one headed part of a structured answer.
type Section struct {
	Number int
	Title  string
	Body   string
}

// StructuredSectionCount is the number of sections a structured answer must have.
const StructuredSectionCount = 5

// StructuredAnswer is a validated five-section clinical breakdown.
type StructuredAnswer struct {
	Sections []Section
	Attempts int
}

// Text renders the sections as markdown headings.
func (a *StructuredAnswer) Text() string {
	var sb strings.Builder
	sb.WriteString("Analysis:\n\n")
	for i, section := range a.Sections {
		sb.WriteString(fmt.Sprintf("### %d. %s\n%s", section.Number, section.Title, section.Body))
		if i < len(a.Sections)-1 {
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}

// Answer is the typed outcome of one resolution.
type Answer struct {
	Strategy   Strategy
	Evidence   EvidenceSet
	Narrative  string
	Structured *StructuredAnswer
}

const structuredSeparator = "----------------------------------------"

// Text combines the evidence trace with the synthesized answer.
func (a *Answer) Text() string {
	if a.Structured != nil {
		return fmt.Sprintf("Retrieved relevant documents:\n%s\n%s\n%s",
			a.Evidence.Trace(), structuredSeparator, a.Structured.Text())
	}

	return fmt.Sprintf("Top %d most relevant records:\n%s\n\nFinal answer:\n%s",
		a.Evidence.Len(), a.Evidence.Trace(), a.Narrative)
}
