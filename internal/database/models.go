package database

import (
	"github.com/jackc/pgx/v5"
)

// MaxSearchResults caps a keyword search.
const MaxSearchResults = 1000

// StoreConfig names the corpus table and its columns.
type StoreConfig struct {
	Table           string
	IDColumn        string
	TextColumn      string
	EmbeddingColumn string
}

func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Table:           "text_embedding",
		IDColumn:        "id",
		TextColumn:      "doc",
		EmbeddingColumn: "embedding_doc",
	}
}

func (s StoreConfig) withDefaults() StoreConfig {
	defaults := DefaultStoreConfig()
	if s.Table == "" {
		s.Table = defaults.Table
	}
	if s.IDColumn == "" {
		s.IDColumn = defaults.IDColumn
	}
	if s.TextColumn == "" {
		s.TextColumn = defaults.TextColumn
	}
	if s.EmbeddingColumn == "" {
		s.EmbeddingColumn = defaults.EmbeddingColumn
	}
	return s
}

func (s StoreConfig) table() string     { return pgx.Identifier{s.Table}.Sanitize() }
func (s StoreConfig) id() string        { return pgx.Identifier{s.IDColumn}.Sanitize() }
func (s StoreConfig) text() string      { return pgx.Identifier{s.TextColumn}.Sanitize() }
func (s StoreConfig) embedding() string { return pgx.Identifier{s.EmbeddingColumn}.Sanitize() }

// Neighbor is one row returned by a server-side vector search.
type Neighbor struct {
	ID       int64
	Text     string
	Distance float64
}
