package scoring

import "testing"

func intPtr(v int) *int { return &v }

func TestComputePriorityScore(t *testing.T) {
	tests := []struct {
		name     string
		analysis Analysis
		category string
		location string
		expected int
	}{
		{
			name:     "defaults only",
			analysis: Analysis{},
			category: CategoryGarbage,
			expected: 50,
		},
		{
			name:     "explicit zero severity is kept",
			analysis: Analysis{Severity: intPtr(0), PriorityLevel: LevelLow},
			category: CategoryGarbage,
			expected: 0,
		},
		{
			name:     "level boost",
			analysis: Analysis{Severity: intPtr(30), PriorityLevel: LevelHigh},
			category: CategoryGarbage,
			expected: 55,
		},
		{
			name:     "unknown level adds nothing",
			analysis: Analysis{Severity: intPtr(30), PriorityLevel: "urgent"},
			category: CategoryGarbage,
			expected: 30,
		},
		{
			name: "hazard boost applied once",
			analysis: Analysis{
				Severity:       intPtr(20),
				PriorityLevel:  LevelLow,
				DetectedIssues: []string{"Toxic runoff", "chemical drums", "gas_leak"},
			},
			category: CategoryGarbage,
			expected: 40,
		},
		{
			name: "health concerns list triggers health boost",
			analysis: Analysis{
				Severity:       intPtr(20),
				PriorityLevel:  LevelLow,
				HealthConcerns: []string{"odour"},
			},
			category: CategoryGarbage,
			expected: 35,
		},
		{
			name: "health keyword in issues",
			analysis: Analysis{
				Severity:       intPtr(20),
				PriorityLevel:  LevelLow,
				DetectedIssues: []string{"Mosquito breeding", "rodent activity"},
			},
			category: CategoryGarbage,
			expected: 35,
		},
		{
			name:     "sensitive location is case insensitive",
			analysis: Analysis{Severity: intPtr(20), PriorityLevel: LevelLow},
			category: CategoryGarbage,
			location: "Near City HOSPITAL gate",
			expected: 35,
		},
		{
			name:     "street light weight",
			analysis: Analysis{Severity: intPtr(40), PriorityLevel: LevelMedium},
			category: CategoryStreetLight,
			expected: 48,
		},
		{
			name:     "unknown category weight",
			analysis: Analysis{Severity: intPtr(40), PriorityLevel: LevelMedium},
			category: "Noise",
			expected: 50,
		},
		{
			name:     "low confidence discount",
			analysis: Analysis{Severity: intPtr(40), PriorityLevel: LevelMedium, Confidence: intPtr(40)},
			category: CategoryGarbage,
			expected: 45,
		},
		{
			name:     "confidence at threshold is not discounted",
			analysis: Analysis{Severity: intPtr(40), PriorityLevel: LevelMedium, Confidence: intPtr(50)},
			category: CategoryGarbage,
			expected: 50,
		},
		{
			name:     "zero confidence is present and discounted",
			analysis: Analysis{Severity: intPtr(50), PriorityLevel: LevelMedium, Confidence: intPtr(0)},
			category: CategoryGarbage,
			expected: 54,
		},
		{
			name: "overflow clamps to 100",
			analysis: Analysis{
				Severity:       intPtr(100),
				PriorityLevel:  LevelCritical,
				DetectedIssues: []string{"burst main", "sewage overflow"},
				HealthConcerns: []string{"contamination"},
			},
			category: CategoryWaterLeakage,
			location: "Main Road near school",
			expected: 100,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputePriorityScore(tc.analysis, tc.category, tc.location)
			if got != tc.expected {
				t.Fatalf("expected %d got %d", tc.expected, got)
			}
		})
	}
}

func TestCategoryWeightAppliesAfterBoosts(t *testing.T) {
	analysis := Analysis{Severity: intPtr(15), PriorityLevel: LevelMedium}

	// (15+10)*1.1 = 27.5 rounds to 28; weighting first would give 15*1.1+10 = 26.5 -> 27.
	got := ComputePriorityScore(analysis, CategoryWaterLeakage, "")
	if got != 28 {
		t.Fatalf("expected 28 got %d", got)
	}
}

func TestComputePriorityScoreBounds(t *testing.T) {
	levels := []string{"", LevelLow, LevelMedium, LevelHigh, LevelCritical}
	issues := [][]string{nil, {"toxic"}, {"sewage"}, {"toxic", "sewage"}}
	categories := append([]string{"Other"}, DefaultCategories...)
	for severity := 0; severity <= 100; severity += 5 {
		for _, level := range levels {
			for _, issue := range issues {
				for _, category := range categories {
					analysis := Analysis{Severity: intPtr(severity), PriorityLevel: level, DetectedIssues: issue}
					got := ComputePriorityScore(analysis, category, "public park")
					if got < 0 || got > 100 {
						t.Fatalf("score %d out of range for %+v %s", got, analysis, category)
					}
					if again := ComputePriorityScore(analysis, category, "public park"); again != got {
						t.Fatalf("non deterministic score: %d then %d", got, again)
					}
				}
			}
		}
	}
}

func TestComputePriorityScoreDoesNotMutateInput(t *testing.T) {
	issues := []string{"Toxic Spill"}
	analysis := Analysis{Severity: intPtr(10), PriorityLevel: "HIGH", DetectedIssues: issues}
	_ = ComputePriorityScore(analysis, CategoryDrainage, "market")
	if *analysis.Severity != 10 || analysis.PriorityLevel != "HIGH" || issues[0] != "Toxic Spill" {
		t.Fatalf("analysis mutated: %+v", analysis)
	}
}

func TestEstimatedResolutionWindow(t *testing.T) {
	tests := []struct {
		score    int
		expected string
	}{
		{100, "24 hours"},
		{80, "24 hours"},
		{79, "2-3 days"},
		{60, "2-3 days"},
		{59, "5-7 days"},
		{40, "5-7 days"},
		{39, "1-2 weeks"},
		{0, "1-2 weeks"},
	}
	for _, tc := range tests {
		if got := EstimatedResolutionWindow(tc.score); got != tc.expected {
			t.Fatalf("score %d: expected %q got %q", tc.score, tc.expected, got)
		}
	}
}

func TestLevelForScoreAndColor(t *testing.T) {
	tests := []struct {
		score int
		level string
		color string
	}{
		{95, LevelCritical, "#dc3545"},
		{80, LevelCritical, "#dc3545"},
		{65, LevelHigh, "#fd7e14"},
		{40, LevelMedium, "#ffc107"},
		{12, LevelLow, "#28a745"},
	}
	scorer := Default()
	for _, tc := range tests {
		level := scorer.LevelForScore(tc.score)
		if level != tc.level {
			t.Fatalf("score %d: expected %s got %s", tc.score, tc.level, level)
		}
		if color := scorer.LevelColor(level); color != tc.color {
			t.Fatalf("level %s: expected %s got %s", level, tc.color, color)
		}
	}
	if color := scorer.LevelColor("unknown"); color != "#6c757d" {
		t.Fatalf("expected fallback colour got %s", color)
	}
}

func TestNilScorerUsesDefaults(t *testing.T) {
	var scorer *Scorer
	if got := scorer.PriorityScore(Analysis{}, CategoryGarbage, ""); got != 50 {
		t.Fatalf("expected 50 got %d", got)
	}
}
