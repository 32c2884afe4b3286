package agent

import (
	"regexp"
	"strings"

	"github.com/svchk12/agnet-que/internal/domain"
)

// Event authors whose state deltas are recognized by the parser.
const (
	summaryAuthor   = "summary_agent"
	checklistAuthor = "checklist_agent"
)

var ordinalPrefix = regexp.MustCompile(`^\d+\.\s*`)

// ParseEvents folds an event list into an AgentResult. Events are processed
// in response order; a later summary or checklist overwrites an earlier one
// (last writer wins, no ordering guarantee beyond response order). Events
// without a recognized author/state-delta combination are skipped.
func ParseEvents(events []Event) (*domain.AgentResult, error) {
	var summary string
	checklist := []string{}

	for _, ev := range events {
		if ev.Actions == nil || ev.Actions.StateDelta == nil {
			continue
		}
		switch ev.Author {
		case summaryAuthor:
			if v, ok := ev.Actions.StateDelta["summary"].(string); ok {
				summary = v
			}
		case checklistAuthor:
			if v, ok := ev.Actions.StateDelta["checklist"].(string); ok {
				checklist = parseChecklist(v)
			}
		}
	}

	if summary == "" && len(checklist) == 0 {
		return nil, ErrNoResult
	}
	return &domain.AgentResult{Summary: summary, Checklist: checklist}, nil
}

// parseChecklist splits raw checklist text into items. Each line is stripped
// of a leading "N." ordinal and trimmed; empty lines and section headings
// (starting with "[" or ending with "]") are discarded.
func parseChecklist(raw string) []string {
	items := []string{}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = ordinalPrefix.ReplaceAllString(line, "")
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "[") || strings.HasSuffix(line, "]") {
			continue
		}
		items = append(items, line)
	}
	return items
}
