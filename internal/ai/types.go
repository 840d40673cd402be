package ai

import (
	"context"
	"errors"
	"fmt"

	"civic-complaints/internal/scoring"
)

var (
	// ErrDisabled is returned when no analyzer is configured.
	ErrDisabled = errors.New("ai analyzer disabled")
	// ErrInvalidResponse marks a model reply that could not be used.
	ErrInvalidResponse = errors.New("invalid ai response")
)

// Analyzer inspects a complaint photo and estimates its severity.
type Analyzer interface {
	Enabled() bool
	Analyze(ctx context.Context, req Request) (scoring.Analysis, Details, error)
}

// Request carries one complaint submission to the analyzer.
type Request struct {
	Category    string
	Description string
	Location    string
	Image       []byte
	ContentType string
}

// Details holds the analyzer output that does not feed the score directly.
type Details struct {
	Description string         `json:"description,omitempty"`
	Fields      map[string]any `json:"fields,omitempty"`
	AIError     bool           `json:"aiError"`
}

// DefaultAnalysis is substituted whenever analysis is unavailable. The photo
// is flagged for manual review with zero confidence.
// Zero counts as a reported confidence, so fallback complaints always take the
// low-confidence discount. A fallback Garbage complaint scores 54, not 60.
func DefaultAnalysis(category string) (scoring.Analysis, Details) {
	severity := 50
	confidence := 0
	return scoring.Analysis{
			Severity:       &severity,
			PriorityLevel:  scoring.LevelMedium,
			DetectedIssues: []string{"requires_manual_review"},
			HealthConcerns: []string{},
			Confidence:     &confidence,
		}, Details{
			Description: fmt.Sprintf("%s complaint requires manual review. AI analysis unavailable.", category),
			AIError:     true,
		}
}

// Static returns an always-enabled analyzer that answers with DefaultAnalysis.
// It terminates fallback chains.
func Static() Analyzer {
	return staticAnalyzer{}
}

type staticAnalyzer struct{}

func (staticAnalyzer) Enabled() bool { return true }

func (staticAnalyzer) Analyze(_ context.Context, req Request) (scoring.Analysis, Details, error) {
	analysis, details := DefaultAnalysis(req.Category)
	return analysis, details, nil
}
