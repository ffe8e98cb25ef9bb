package models

import "errors"

// Pipeline error taxonomy. Components wrap the underlying cause with %w so
// callers can classify failures with errors.Is.
var (
	ErrInputInvalid       = errors.New("input invalid")
	ErrStoreUnavailable   = errors.New("document store unavailable")
	ErrNoResults          = errors.New("no matching documents")
	ErrEmbeddingService   = errors.New("embedding service error")
	ErrNoValidEmbeddings  = errors.New("no valid embeddings to compare")
	ErrRerankService      = errors.New("rerank service error")
	ErrNoEvidence         = errors.New("no evidence selected")
	ErrSynthesis          = errors.New("answer generation failed")
	ErrSynthesisExhausted = errors.New("generation unavailable, try again later")
)
