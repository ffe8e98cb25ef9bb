package embedding

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/povarna/generative-ai-agents/med-agent/internal/models"
)

// Decode parses a serialized embedding column.
//
// Accepted forms are the pgvector text output ("[0.1,0.2]"), JSON arrays of
// numbers, and the legacy python-repr form where elements or the whole list
// use single quotes ("['0.1', '0.2']"). Any value that cannot be read as a
// non-empty list of finite numbers yields nil; callers treat nil as
// "no embedding" instead of failing.
func Decode(raw string) []float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	// legacy rows were written with python's repr
	normalized := strings.ReplaceAll(raw, "'", "\"")

	var values []any
	if err := json.Unmarshal([]byte(normalized), &values); err != nil {
		return nil
	}
	if len(values) == 0 {
		return nil
	}

	vector := make([]float64, 0, len(values))
	for _, v := range values {
		f, ok := toFloat(v)
		if !ok {
			return nil
		}
		vector = append(vector, f)
	}

	return vector
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch value := v.(type) {
	case float64:
		f = value
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Resolve returns the document embedding, preferring a native vector over the
// serialized column. A result whose length differs from dimension is dropped
// when dimension > 0.
func Resolve(doc models.Document, dimension int) []float64 {
	vector := doc.Vector
	if len(vector) == 0 && doc.RawEmbedding != nil {
		vector = Decode(*doc.RawEmbedding)
	}

	if len(vector) == 0 {
		return nil
	}
	if dimension > 0 && len(vector) != dimension {
		return nil
	}

	for _, f := range vector {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
	}

	return vector
}
