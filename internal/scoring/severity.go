package scoring

import (
	"github.com/sirupsen/logrus"
)

// AdjustSeverity raises a base severity using keywords found in the citizen's
// description. Each family contributes its bonus at most once and the result
// never exceeds 100.
func (s *Scorer) AdjustSeverity(base int, description, category string) int {
	s = s.scorer()
	text := normalizeTerm(description)
	if text == "" {
		return base
	}

	adjusted := base
	var applied []string
	for _, family := range s.rules.DescriptionFamilies {
		if family.matches(text) {
			adjusted += family.Bonus
			applied = append(applied, family.Name)
		}
	}
	for _, family := range s.rules.CategoryBonuses[category] {
		if family.matches(text) {
			adjusted += family.Bonus
			applied = append(applied, family.Name)
		}
	}
	if adjusted > 100 {
		adjusted = 100
	}

	if adjusted != base {
		logrus.WithFields(logrus.Fields{
			"category": category,
			"base":     base,
			"adjusted": adjusted,
			"families": applied,
		}).Debug("severity adjusted from description")
	}
	return adjusted
}

// AdjustSeverityFromDescription adjusts with the default rules.
func AdjustSeverityFromDescription(base int, description, category string) int {
	return defaultScorer.AdjustSeverity(base, description, category)
}
