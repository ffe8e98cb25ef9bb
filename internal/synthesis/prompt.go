package synthesis

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/povarna/generative-ai-agents/med-agent/internal/models"
)

// promptData is what prompt templates can reference.
type promptData struct {
	Question string
	Context  string
}

func parsePrompt(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s prompt template: %w", name, err)
	}
	return tmpl, nil
}

func renderPrompt(tmpl *template.Template, question, context string) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, promptData{Question: question, Context: context}); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// uniquePassages re-applies the evidence budget on the passage texts: trimmed, non-empty, first occurrence wins.
func uniquePassages(evidence models.EvidenceSet, limit int) []string {
	if limit <= 0 {
		limit = models.DefaultEvidenceBudget
	}

	seen := make(map[string]struct{}, limit)
	passages := make([]string, 0, limit)
	for _, text := range evidence.Texts() {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if _, ok := seen[text]; ok {
			continue
		}
		seen[text] = struct{}{}
		passages = append(passages, text)
		if len(passages) >= limit {
			break
		}
	}
	return passages
}
