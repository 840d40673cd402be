package scoring

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Complaint categories handled by the default rule tables.
const (
	CategoryGarbage      = "Garbage"
	CategoryRoadDamage   = "Road Damage"
	CategoryWaterLeakage = "Water Leakage"
	CategoryStreetLight  = "Street Light"
	CategoryDrainage     = "Drainage"
)

// Priority levels reported by the analyzer and derived from scores.
const (
	LevelLow      = "low"
	LevelMedium   = "medium"
	LevelHigh     = "high"
	LevelCritical = "critical"
)

// DefaultCategories lists the complaint categories known to the default rules.
var DefaultCategories = []string{
	CategoryGarbage,
	CategoryRoadDamage,
	CategoryWaterLeakage,
	CategoryStreetLight,
	CategoryDrainage,
}

// KeywordFamily is a named set of substrings that contributes a fixed bonus
// when any member is found.
type KeywordFamily struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
	Bonus    int      `json:"bonus"`
}

// Band maps every score at or above Min to Label.
type Band struct {
	Min   int    `json:"min"`
	Label string `json:"label"`
}

// Rules holds the keyword tables and constants used by the Scorer.
type Rules struct {
	DefaultSeverity        int                        `json:"default_severity"`
	LevelBoosts            map[string]int             `json:"level_boosts"`
	Hazard                 KeywordFamily              `json:"hazard"`
	Health                 KeywordFamily              `json:"health"`
	SensitiveLocations     KeywordFamily              `json:"sensitive_locations"`
	CategoryMultipliers    map[string]float64         `json:"category_multipliers"`
	LowConfidenceThreshold int                        `json:"low_confidence_threshold"`
	LowConfidenceFactor    float64                    `json:"low_confidence_factor"`
	DescriptionFamilies    []KeywordFamily            `json:"description_families"`
	CategoryBonuses        map[string][]KeywordFamily `json:"category_bonuses"`
	ResolutionWindows      []Band                     `json:"resolution_windows"`
	ScoreLevels            []Band                     `json:"score_levels"`
	LevelColors            map[string]string          `json:"level_colors"`
	FallbackColor          string                     `json:"fallback_color"`
}

// DefaultRules returns the built-in rule tables.
func DefaultRules() Rules {
	return Rules{
		DefaultSeverity: 50,
		LevelBoosts: map[string]int{
			LevelLow:      0,
			LevelMedium:   10,
			LevelHigh:     25,
			LevelCritical: 40,
		},
		Hazard: KeywordFamily{
			Name: "hazard",
			Keywords: []string{
				"hazardous", "toxic", "medical_waste", "chemical",
				"burst", "collapse", "major_damage", "flooding",
				"electrical_hazard", "gas_leak",
			},
			Bonus: 20,
		},
		Health: KeywordFamily{
			Name:     "health",
			Keywords: []string{"mosquito", "disease", "contamination", "infection", "rodent", "pest", "sewage"},
			Bonus:    15,
		},
		SensitiveLocations: KeywordFamily{
			Name: "sensitive_location",
			Keywords: []string{
				"school", "college", "university", "hospital", "clinic",
				"market", "main road", "highway", "station", "temple",
				"mosque", "church", "public", "playground", "park",
			},
			Bonus: 15,
		},
		CategoryMultipliers: map[string]float64{
			CategoryWaterLeakage: 1.10,
			CategoryRoadDamage:   1.05,
			CategoryDrainage:     1.10,
			CategoryGarbage:      1.00,
			CategoryStreetLight:  0.95,
		},
		LowConfidenceThreshold: 50,
		LowConfidenceFactor:    0.90,
		DescriptionFamilies: []KeywordFamily{
			{
				Name: "critical",
				Keywords: []string{
					"severe", "critical", "urgent", "emergency", "dangerous",
					"heavy", "major", "serious", "extreme", "terrible",
				},
				Bonus: 15,
			},
			{
				Name: "volume",
				Keywords: []string{
					"full of", "filled with", "overflowing", "everywhere",
					"entire", "whole", "complete", "massive", "huge", "large",
				},
				Bonus: 15,
			},
			{
				Name:     "duration",
				Keywords: []string{"days", "weeks", "months", "long time", "since"},
				Bonus:    10,
			},
			{
				Name: "health",
				Keywords: []string{
					"smell", "stink", "odor", "disease", "mosquito",
					"rats", "rodents", "contaminated", "toxic", "hazardous",
				},
				Bonus: 10,
			},
		},
		CategoryBonuses: map[string][]KeywordFamily{
			CategoryGarbage: {
				{Name: "uncollected", Keywords: []string{"not collected", "uncollected"}, Bonus: 10},
			},
			CategoryRoadDamage: {
				{Name: "accident", Keywords: []string{"accident", "vehicle damage"}, Bonus: 15},
			},
			CategoryWaterLeakage: pipeBonuses(),
			CategoryDrainage:     pipeBonuses(),
		},
		ResolutionWindows: []Band{
			{Min: 80, Label: "24 hours"},
			{Min: 60, Label: "2-3 days"},
			{Min: 40, Label: "5-7 days"},
			{Min: 0, Label: "1-2 weeks"},
		},
		ScoreLevels: []Band{
			{Min: 80, Label: LevelCritical},
			{Min: 60, Label: LevelHigh},
			{Min: 40, Label: LevelMedium},
			{Min: 0, Label: LevelLow},
		},
		LevelColors: map[string]string{
			LevelCritical: "#dc3545",
			LevelHigh:     "#fd7e14",
			LevelMedium:   "#ffc107",
			LevelLow:      "#28a745",
		},
		FallbackColor: "#6c757d",
	}
}

func pipeBonuses() []KeywordFamily {
	return []KeywordFamily{
		{Name: "pipe_burst", Keywords: []string{"burst", "broken pipe"}, Bonus: 20},
		{Name: "flooding", Keywords: []string{"flood", "overflow"}, Bonus: 15},
	}
}

// familyOverlay decodes the keyword family tables into fresh values so an
// entry never inherits the name or bonus of the default at the same index.
type familyOverlay struct {
	DescriptionFamilies *[]KeywordFamily           `json:"description_families"`
	CategoryBonuses     map[string][]KeywordFamily `json:"category_bonuses"`
}

// LoadRules reads a JSON override file on top of DefaultRules. Fields absent
// from the file keep their default values and map entries are merged by key.
// A description_families list replaces the default list as a whole, and each
// category listed under category_bonuses replaces that category's families.
// An empty path returns the defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if strings.TrimSpace(path) == "" {
		return rules, nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Rules{}, fmt.Errorf("read priority rules: %w", err)
	}
	if err := json.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("unmarshal priority rules: %w", err)
	}
	var overlay familyOverlay
	if err := json.Unmarshal(data, &overlay); err != nil {
		return Rules{}, fmt.Errorf("unmarshal priority rules: %w", err)
	}
	defaults := DefaultRules()
	rules.DescriptionFamilies = defaults.DescriptionFamilies
	if overlay.DescriptionFamilies != nil {
		rules.DescriptionFamilies = *overlay.DescriptionFamilies
	}
	rules.CategoryBonuses = defaults.CategoryBonuses
	for category, families := range overlay.CategoryBonuses {
		rules.CategoryBonuses[category] = families
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}
	return rules, nil
}

// Validate rejects tables the Scorer cannot apply.
func (r Rules) Validate() error {
	for category, factor := range r.CategoryMultipliers {
		if factor <= 0 {
			return fmt.Errorf("category multiplier for %q must be positive", category)
		}
	}
	if r.LowConfidenceFactor <= 0 || r.LowConfidenceFactor > 1 {
		return fmt.Errorf("low confidence factor must be in (0,1], got %v", r.LowConfidenceFactor)
	}
	if len(r.ResolutionWindows) == 0 {
		return fmt.Errorf("resolution windows are required")
	}
	if len(r.ScoreLevels) == 0 {
		return fmt.Errorf("score levels are required")
	}
	for i, family := range r.DescriptionFamilies {
		if err := family.validate(); err != nil {
			return fmt.Errorf("description family %d: %w", i, err)
		}
	}
	for category, families := range r.CategoryBonuses {
		for i, family := range families {
			if err := family.validate(); err != nil {
				return fmt.Errorf("category bonus %q family %d: %w", category, i, err)
			}
		}
	}
	return nil
}

func (f KeywordFamily) validate() error {
	if len(f.normalized().Keywords) == 0 {
		return fmt.Errorf("family %q has no keywords", f.Name)
	}
	if f.Bonus <= 0 {
		return fmt.Errorf("family %q bonus must be positive, got %d", f.Name, f.Bonus)
	}
	return nil
}

// normalized returns a copy with lowercased keywords and level keys, and
// bands sorted by descending lower bound.
func (r Rules) normalized() Rules {
	out := r
	out.LevelBoosts = lowerKeys(r.LevelBoosts)
	out.LevelColors = lowerKeys(r.LevelColors)
	out.Hazard = r.Hazard.normalized()
	out.Health = r.Health.normalized()
	out.SensitiveLocations = r.SensitiveLocations.normalized()

	out.DescriptionFamilies = make([]KeywordFamily, 0, len(r.DescriptionFamilies))
	for _, family := range r.DescriptionFamilies {
		out.DescriptionFamilies = append(out.DescriptionFamilies, family.normalized())
	}

	out.CategoryBonuses = make(map[string][]KeywordFamily, len(r.CategoryBonuses))
	for category, families := range r.CategoryBonuses {
		list := make([]KeywordFamily, 0, len(families))
		for _, family := range families {
			list = append(list, family.normalized())
		}
		out.CategoryBonuses[category] = list
	}

	out.ResolutionWindows = sortedBands(r.ResolutionWindows)
	out.ScoreLevels = sortedBands(r.ScoreLevels)
	return out
}

func (f KeywordFamily) normalized() KeywordFamily {
	out := KeywordFamily{Name: f.Name, Bonus: f.Bonus}
	for _, keyword := range f.Keywords {
		keyword = normalizeTerm(keyword)
		if keyword != "" {
			out.Keywords = append(out.Keywords, keyword)
		}
	}
	return out
}

// matches reports whether any keyword occurs in the already-lowercased text.
func (f KeywordFamily) matches(text string) bool {
	if text == "" {
		return false
	}
	for _, keyword := range f.Keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func lowerKeys[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for key, value := range in {
		out[normalizeTerm(key)] = value
	}
	return out
}

func sortedBands(bands []Band) []Band {
	out := append([]Band(nil), bands...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Min > out[j].Min })
	return out
}

func bandLabel(bands []Band, score int) string {
	for _, band := range bands {
		if score >= band.Min {
			return band.Label
		}
	}
	if len(bands) == 0 {
		return ""
	}
	return bands[len(bands)-1].Label
}

func normalizeTerm(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
