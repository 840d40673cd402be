package scoring

import (
	"math"
	"strings"

	"github.com/sirupsen/logrus"
)

// Analysis is the image-analysis output consumed by the Scorer. Optional
// fields are pointers so an absent value is distinguishable from zero.
type Analysis struct {
	Severity       *int     `json:"severity,omitempty"`
	PriorityLevel  string   `json:"priorityLevel"`
	DetectedIssues []string `json:"detectedIssues"`
	HealthConcerns []string `json:"healthConcerns,omitempty"`
	Confidence     *int     `json:"confidence,omitempty"`
}

// Scorer turns an Analysis plus request context into a bounded priority score.
// It holds no mutable state and is safe for concurrent use.
type Scorer struct {
	rules Rules
}

// NewScorer builds a Scorer over the supplied rules.
func NewScorer(rules Rules) *Scorer {
	return &Scorer{rules: rules.normalized()}
}

var defaultScorer = NewScorer(DefaultRules())

// Default returns the Scorer backed by DefaultRules.
func Default() *Scorer {
	return defaultScorer
}

// Rules returns a copy of the normalized rules in use.
func (s *Scorer) Rules() Rules {
	return s.scorer().rules
}

// PriorityScore combines severity, level, keyword and location signals with
// the category weight into a score in [0,100].
func (s *Scorer) PriorityScore(analysis Analysis, category, location string) int {
	s = s.scorer()
	r := s.rules

	severity := r.DefaultSeverity
	if analysis.Severity != nil {
		severity = *analysis.Severity
	}
	score := float64(severity)

	levelBoost := r.LevelBoosts[normalizeTerm(analysis.PriorityLevel)]
	score += float64(levelBoost)

	hazard := anyMatch(r.Hazard, analysis.DetectedIssues)
	if hazard {
		score += float64(r.Hazard.Bonus)
	}

	health := len(analysis.HealthConcerns) > 0 || anyMatch(r.Health, analysis.DetectedIssues)
	if health {
		score += float64(r.Health.Bonus)
	}

	sensitive := r.SensitiveLocations.matches(normalizeTerm(location))
	if sensitive {
		score += float64(r.SensitiveLocations.Bonus)
	}

	// Category weight applies to the boosted total, never to the raw severity.
	multiplier, ok := r.CategoryMultipliers[category]
	if !ok {
		multiplier = 1.0
	}
	score *= multiplier

	lowConfidence := analysis.Confidence != nil && *analysis.Confidence < r.LowConfidenceThreshold
	if lowConfidence {
		score *= r.LowConfidenceFactor
	}

	final := clampScore(roundHalfUp(score))
	logrus.WithFields(logrus.Fields{
		"category":       category,
		"severity":       severity,
		"level_boost":    levelBoost,
		"hazard":         hazard,
		"health":         health,
		"sensitive":      sensitive,
		"multiplier":     multiplier,
		"low_confidence": lowConfidence,
		"score":          final,
	}).Debug("priority score computed")
	return final
}

// EstimatedResolution maps a priority score to a resolution window label.
// Lower bounds are inclusive.
func (s *Scorer) EstimatedResolution(score int) string {
	return bandLabel(s.scorer().rules.ResolutionWindows, score)
}

// LevelForScore buckets a priority score into low, medium, high or critical.
func (s *Scorer) LevelForScore(score int) string {
	return bandLabel(s.scorer().rules.ScoreLevels, score)
}

// LevelColor returns the dashboard colour for a priority level.
func (s *Scorer) LevelColor(level string) string {
	r := s.scorer().rules
	if color, ok := r.LevelColors[normalizeTerm(level)]; ok {
		return color
	}
	return r.FallbackColor
}

func (s *Scorer) scorer() *Scorer {
	if s == nil {
		return defaultScorer
	}
	return s
}

func anyMatch(family KeywordFamily, values []string) bool {
	for _, value := range values {
		if family.matches(strings.ToLower(value)) {
			return true
		}
	}
	return false
}

func roundHalfUp(value float64) int {
	return int(math.Floor(value + 0.5))
}

func clampScore(value int) int {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}

// ComputePriorityScore scores with the default rules.
func ComputePriorityScore(analysis Analysis, category, location string) int {
	return defaultScorer.PriorityScore(analysis, category, location)
}

// EstimatedResolutionWindow labels a score with the default rules.
func EstimatedResolutionWindow(score int) string {
	return defaultScorer.EstimatedResolution(score)
}

// LevelForScore buckets a score with the default rules.
func LevelForScore(score int) string {
	return defaultScorer.LevelForScore(score)
}
