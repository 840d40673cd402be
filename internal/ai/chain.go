package ai

import (
	"context"

	"github.com/sirupsen/logrus"

	"civic-complaints/internal/scoring"
)

type analyzerChain struct {
	primary  Analyzer
	fallback Analyzer
}

// WithFallback returns an analyzer that first tries the primary implementation
// and falls back to the provided analyzer when the primary is unavailable or
// fails.
func WithFallback(primary, fallback Analyzer) Analyzer {
	if primary == nil {
		return fallback
	}
	if fallback == nil {
		return primary
	}
	return &analyzerChain{primary: primary, fallback: fallback}
}

func (c *analyzerChain) Enabled() bool {
	if c == nil {
		return false
	}
	if c.primary != nil && c.primary.Enabled() {
		return true
	}
	return c.fallback != nil && c.fallback.Enabled()
}

func (c *analyzerChain) Analyze(ctx context.Context, req Request) (scoring.Analysis, Details, error) {
	if c == nil {
		return scoring.Analysis{}, Details{}, ErrDisabled
	}
	if c.primary != nil && c.primary.Enabled() {
		analysis, details, err := c.primary.Analyze(ctx, req)
		if err == nil {
			return analysis, details, nil
		}
		logrus.WithError(err).WithField("category", req.Category).Warn("primary analyzer failed, using fallback")
	}
	if c.fallback != nil && c.fallback.Enabled() {
		return c.fallback.Analyze(ctx, req)
	}
	return scoring.Analysis{}, Details{}, ErrDisabled
}
