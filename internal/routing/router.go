package routing

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"civic-complaints/internal/store"
)

// Source supplies the department configuration the router reads from.
type Source interface {
	ActiveDepartments(ctx context.Context) ([]store.Department, error)
}

// Candidate identifies one department that claims a category.
type Candidate struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// Resolution is the outcome of routing one category. A zero Resolution means
// no active department handles the category.
type Resolution struct {
	DepartmentID   uint        `json:"departmentId,omitempty"`
	DepartmentName string      `json:"departmentName,omitempty"`
	Found          bool        `json:"found"`
	Ambiguous      bool        `json:"ambiguous,omitempty"`
	Candidates     []Candidate `json:"candidates,omitempty"`
}

// ID returns the resolved department as a pointer suitable for a nullable
// column, or nil when nothing matched.
func (r Resolution) ID() *uint {
	if !r.Found {
		return nil
	}
	id := r.DepartmentID
	return &id
}

// Select picks the active department handling category. Category matching is
// exact. When several active departments claim the category the earliest
// created one wins, then the lowest ID; every claimant is reported in
// Candidates.
func Select(departments []store.Department, category string) Resolution {
	var matches []store.Department
	for _, dept := range departments {
		if dept.Active && dept.Handles(category) {
			matches = append(matches, dept)
		}
	}
	if len(matches) == 0 {
		return Resolution{}
	}
	sortDepartments(matches)

	winner := matches[0]
	res := Resolution{
		DepartmentID:   winner.ID,
		DepartmentName: winner.Name,
		Found:          true,
		Ambiguous:      len(matches) > 1,
	}
	if res.Ambiguous {
		res.Candidates = make([]Candidate, 0, len(matches))
		for _, dept := range matches {
			res.Candidates = append(res.Candidates, Candidate{ID: dept.ID, Name: dept.Name})
		}
	}
	return res
}

// sortDepartments orders departments by the routing tie-break.
func sortDepartments(departments []store.Department) {
	sort.SliceStable(departments, func(i, j int) bool {
		a, b := departments[i], departments[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// Router resolves complaint categories against live department configuration.
type Router struct {
	source Source
}

// NewRouter constructs a router reading from source.
func NewRouter(source Source) *Router {
	return &Router{source: source}
}

// Resolve returns the department for category. An unmatched category is not
// an error; only failures reading the configuration are.
func (r *Router) Resolve(ctx context.Context, category string) (Resolution, error) {
	departments, err := r.source.ActiveDepartments(ctx)
	if err != nil {
		return Resolution{}, fmt.Errorf("load departments: %w", err)
	}
	res := Select(departments, category)
	switch {
	case !res.Found:
		logrus.WithField("category", category).Warn("no active department handles category")
	case res.Ambiguous:
		logrus.WithFields(logrus.Fields{
			"category":   category,
			"selected":   res.DepartmentName,
			"candidates": candidateNames(res.Candidates),
		}).Warn("multiple active departments claim category")
	default:
		logrus.WithFields(logrus.Fields{
			"category":   category,
			"department": res.DepartmentName,
		}).Debug("routed complaint category")
	}
	return res, nil
}

// Mapping resolves every category claimed by an active department.
func (r *Router) Mapping(ctx context.Context) (map[string]Resolution, error) {
	departments, err := r.source.ActiveDepartments(ctx)
	if err != nil {
		return nil, fmt.Errorf("load departments: %w", err)
	}
	out := make(map[string]Resolution)
	for _, dept := range departments {
		for _, category := range dept.Categories() {
			if _, seen := out[category]; seen {
				continue
			}
			out[category] = Select(departments, category)
		}
	}
	return out, nil
}

// Conflict reports a category already claimed by another active department.
type Conflict struct {
	Category       string `json:"category"`
	DepartmentID   uint   `json:"department_id"`
	DepartmentName string `json:"department_name"`
}

// Error renders the conflict for API responses.
func (c Conflict) Error() string {
	return fmt.Sprintf("category %q is already handled by %s", c.Category, c.DepartmentName)
}

// Conflicts lists the categories that some other active department already
// claims. excludeID skips the department being edited.
func Conflicts(departments []store.Department, categories []string, excludeID uint) []Conflict {
	var out []Conflict
	seen := make(map[string]bool, len(categories))
	for _, category := range categories {
		if seen[category] {
			continue
		}
		seen[category] = true
		others := make([]store.Department, 0, len(departments))
		for _, dept := range departments {
			if dept.ID != excludeID {
				others = append(others, dept)
			}
		}
		if res := Select(others, category); res.Found {
			out = append(out, Conflict{
				Category:       category,
				DepartmentID:   res.DepartmentID,
				DepartmentName: res.DepartmentName,
			})
		}
	}
	return out
}

func candidateNames(candidates []Candidate) []string {
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		names = append(names, c.Name)
	}
	return names
}
