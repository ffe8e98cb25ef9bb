package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	"github.com/povarna/generative-ai-agents/med-agent/internal/models"
	"github.com/rs/zerolog/log"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern turns a keyword into a literal, case-insensitive substring pattern.
func likePattern(keyword string) string {
	return "%" + likeEscaper.Replace(keyword) + "%"
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxSearchResults {
		return MaxSearchResults
	}
	return limit
}

func (s StoreConfig) searchQuery() string {
	return fmt.Sprintf(`
		SELECT
			%s,
			%s,
			%s::text
		FROM %s
		WHERE %s ILIKE $1 ESCAPE '\'
		LIMIT $2`,
		s.id(), s.text(), s.embedding(), s.table(), s.text())
}

// SearchDocuments returns up to limit documents whose text contains keyword.
func (db *DB) SearchDocuments(ctx context.Context, keyword string, limit int) ([]models.Document, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, fmt.Errorf("%w: empty keyword", models.ErrInputInvalid)
	}

	rows, err := db.Pool.Query(ctx, db.store.searchQuery(), likePattern(keyword), clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("%w: keyword search failed: %v", models.ErrStoreUnavailable, err)
	}

	defer rows.Close()

	documents, err := scanDocuments(rows)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("keyword", keyword).Int("matches", len(documents)).Msg("Keyword search completed")

	return documents, nil
}

// DocumentsInRange lists documents with id in [minID, maxID]. onlyMissing skips rows that already have an embedding.
func (db *DB) DocumentsInRange(ctx context.Context, minID, maxID int64, onlyMissing bool) ([]models.Document, error) {
	s := db.store
	query := fmt.Sprintf(`SELECT %s, %s, %s::text FROM %s WHERE %s BETWEEN $1 AND $2`,
		s.id(), s.text(), s.embedding(), s.table(), s.id())
	if onlyMissing {
		query += fmt.Sprintf(` AND %s IS NULL`, s.embedding())
	}
	query += fmt.Sprintf(` ORDER BY %s`, s.id())

	rows, err := db.Pool.Query(ctx, query, minID, maxID)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to list documents: %v", models.ErrStoreUnavailable, err)
	}

	defer rows.Close()

	return scanDocuments(rows)
}

// UpdateEmbedding stores vector as the embedding of document id.
func (db *DB) UpdateEmbedding(ctx context.Context, id int64, vector []float64) error {
	s := db.store
	query := fmt.Sprintf(`UPDATE %s SET %s = $1 WHERE %s = $2`, s.table(), s.embedding(), s.id())

	result, err := db.Pool.Exec(ctx, query, pgvector.NewVector(toFloat32(vector)), id)
	if err != nil {
		return fmt.Errorf("%w: failed to update embedding for id %d: %v", models.ErrStoreUnavailable, id, err)
	}

	if result.RowsAffected() == 0 {
		log.Warn().Int64("doc_id", id).Msg("Document not found")
	}

	return nil
}

// VectorSearch runs a server-side L2 search. probes > 0 sets ivfflat.probes for the query only.
func (db *DB) VectorSearch(ctx context.Context, vector []float64, probes, limit int) ([]Neighbor, error) {
	s := db.store
	query := fmt.Sprintf(`
		SELECT
			%s,
			%s,
			%s <-> $1 AS distance
		FROM %s
		WHERE %s IS NOT NULL
		ORDER BY distance ASC
		LIMIT $2`,
		s.id(), s.text(), s.embedding(), s.table(), s.embedding())

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to begin transaction: %v", models.ErrStoreUnavailable, err)
	}
	defer tx.Rollback(ctx)

	if probes > 0 {
		// SET does not accept bind parameters
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL ivfflat.probes = %d", probes)); err != nil {
			return nil, fmt.Errorf("%w: unable to set ivfflat.probes: %v", models.ErrStoreUnavailable, err)
		}
	}

	rows, err := tx.Query(ctx, query, pgvector.NewVector(toFloat32(vector)), clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("%w: vector search failed: %v", models.ErrStoreUnavailable, err)
	}

	var neighbors []Neighbor
	for rows.Next() {
		var neighbor Neighbor
		if err := rows.Scan(&neighbor.ID, &neighbor.Text, &neighbor.Distance); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: failed to scan row: %v", models.ErrStoreUnavailable, err)
		}
		neighbors = append(neighbors, neighbor)
	}
	rows.Close()

	// Rows errors catch
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: row iteration error: %v", models.ErrStoreUnavailable, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: commit failed: %v", models.ErrStoreUnavailable, err)
	}

	return neighbors, nil
}

func scanDocuments(rows pgx.Rows) ([]models.Document, error) {
	documents := []models.Document{}
	for rows.Next() {
		var document models.Document

		if err := rows.Scan(&document.ID, &document.Text, &document.RawEmbedding); err != nil {
			return nil, fmt.Errorf("%w: failed to scan row: %v", models.ErrStoreUnavailable, err)
		}

		documents = append(documents, document)
	}

	// Rows errors catch
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: row iteration error: %v", models.ErrStoreUnavailable, err)
	}

	return documents, nil
}

func toFloat32(vector []float64) []float32 {
	out := make([]float32, len(vector))
	for i, v := range vector {
		out[i] = float32(v)
	}
	return out
}
