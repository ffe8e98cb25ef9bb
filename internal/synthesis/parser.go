package synthesis

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/povarna/generative-ai-agents/med-agent/internal/models"
)

// A heading is a numbered title introduced by a markdown "#" run or "**":
// "### 1. Cause", "## 2) Prevention:", "**3. Treatment**", "#### 4、Advice".
var headingPattern = regexp.MustCompile(`^\s*(#{1,6}|\*\*)\s*(\d+)\s*[.、)）]\s*(.+?)\s*(?:\*\*)?\s*[:：]?\s*(?:\*\*)?\s*$`)

var thinkPattern = regexp.MustCompile(`(?s)<think>.*?</think>`)

// ParseSections recovers numbered sections from raw model output.
// Headings must be numbered 1, 2, 3... in order and use the marker kind of
// heading 1 ("#" or "**"). Any other numbered line, such as a bold sub-list
// item, stays in the current body.
// ok is true when at least five sections were found and the first five all
// have a title and a body; only those five are returned in that case.
func ParseSections(raw string) ([]models.Section, bool) {
	raw = thinkPattern.ReplaceAllString(raw, "")

	var (
		sections []models.Section
		body     []string
		current  *models.Section
		marker   string
		next     = 1
	)

	flush := func() {
		if current == nil {
			return
		}
		current.Body = strings.TrimSpace(strings.Join(body, "\n"))
		sections = append(sections, *current)
		body = body[:0]
	}

	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		if match := headingPattern.FindStringSubmatch(line); match != nil && isNextHeading(match, marker, next) {
			flush()
			marker = markerKind(match[1])
			current = &models.Section{
				Number: next,
				Title:  strings.TrimSpace(strings.Trim(match[3], "*:：")),
			}
			next++
			continue
		}
		// preamble before the first heading is dropped
		if current != nil {
			body = append(body, line)
		}
	}
	flush()

	if len(sections) < models.StructuredSectionCount {
		return sections, false
	}

	sections = sections[:models.StructuredSectionCount]
	for _, section := range sections {
		if section.Title == "" || section.Body == "" {
			return sections, false
		}
	}

	return sections, true
}

func isNextHeading(match []string, marker string, next int) bool {
	if marker != "" && markerKind(match[1]) != marker {
		return false
	}
	number, err := strconv.Atoi(match[2])
	return err == nil && number == next
}

func markerKind(marker string) string {
	if strings.HasPrefix(marker, "#") {
		return "#"
	}
	return "**"
}
