package ai

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"civic-complaints/internal/scoring"
)

const defaultConfidence = 75

// Keys lifted into scoring.Analysis or Details; everything else is kept as a
// category-specific field.
var coreKeys = map[string]bool{
	"severity":       true,
	"priorityLevel":  true,
	"detectedIssues": true,
	"healthConcerns": true,
	"confidence":     true,
	"description":    true,
	"aiDescription":  true,
}

// parseAnalysis turns a model reply into an Analysis. Severity and priority
// level are required; an unknown level is derived from severity.
func parseAnalysis(content, category string) (scoring.Analysis, Details, error) {
	block := normalizeJSONBlock(content)
	if block == "" {
		return scoring.Analysis{}, Details{}, fmt.Errorf("%w: empty reply", ErrInvalidResponse)
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(block), &raw); err != nil {
		return scoring.Analysis{}, Details{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	severityValue, ok := number(raw["severity"])
	if !ok {
		return scoring.Analysis{}, Details{}, fmt.Errorf("%w: severity missing", ErrInvalidResponse)
	}
	level, _ := raw["priorityLevel"].(string)
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		return scoring.Analysis{}, Details{}, fmt.Errorf("%w: priority level missing", ErrInvalidResponse)
	}

	severity := clampInt(int(math.Round(severityValue)), 0, 100)
	switch level {
	case scoring.LevelLow, scoring.LevelMedium, scoring.LevelHigh, scoring.LevelCritical:
	default:
		level = levelForSeverity(severity)
	}

	confidence := defaultConfidence
	if value, ok := number(raw["confidence"]); ok && value > 0 {
		confidence = clampInt(int(math.Round(value)), 0, 100)
	}

	analysis := scoring.Analysis{
		Severity:       &severity,
		PriorityLevel:  level,
		DetectedIssues: stringList(raw["detectedIssues"]),
		HealthConcerns: stringList(raw["healthConcerns"]),
		Confidence:     &confidence,
	}

	details := Details{Fields: map[string]any{}}
	if text, ok := raw["description"].(string); ok {
		details.Description = strings.TrimSpace(text)
	}
	if details.Description == "" {
		if text, ok := raw["aiDescription"].(string); ok {
			details.Description = strings.TrimSpace(text)
		}
	}
	for key, value := range raw {
		if !coreKeys[key] {
			details.Fields[key] = value
		}
	}
	switch category {
	case scoring.CategoryGarbage:
		if _, ok := number(details.Fields["coveragePercentage"]); !ok {
			details.Fields["coveragePercentage"] = severity
		}
	case scoring.CategoryRoadDamage:
		if _, ok := number(details.Fields["damagePercentage"]); !ok {
			details.Fields["damagePercentage"] = severity
		}
	}
	if len(details.Fields) == 0 {
		details.Fields = nil
	}
	return analysis, details, nil
}

func levelForSeverity(severity int) string {
	switch {
	case severity >= 75:
		return scoring.LevelCritical
	case severity >= 50:
		return scoring.LevelHigh
	case severity >= 25:
		return scoring.LevelMedium
	default:
		return scoring.LevelLow
	}
}

func number(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func stringList(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if text, ok := item.(string); ok && text != "" {
			out = append(out, text)
		}
	}
	return out
}

func normalizeJSONBlock(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```")
		if idx := strings.IndexRune(trimmed, '\n'); idx >= 0 {
			trimmed = trimmed[idx+1:]
		}
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	}
	trimmed = strings.TrimSpace(trimmed)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end >= start {
		return strings.TrimSpace(trimmed[start : end+1])
	}
	return trimmed
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
