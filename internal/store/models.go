package store

import (
	"encoding/json"
	"strings"
	"time"
)

// Complaint statuses.
const (
	StatusAnalyzing  = "analyzing"
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
	StatusRejected   = "rejected"
)

// Officer account statuses.
const (
	OfficerPending  = "pending"
	OfficerActive   = "active"
	OfficerInactive = "inactive"
	OfficerRejected = "rejected"
)

// Citizen is a resident who files complaints.
type Citizen struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"size:128"`
	Phone        string `gorm:"size:32;uniqueIndex"`
	PasswordHash string `gorm:"size:128"`
	Active       bool   `gorm:"default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Admin manages departments and officer accounts.
type Admin struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"size:128"`
	Email        string `gorm:"size:255;uniqueIndex"`
	Phone        string `gorm:"size:32"`
	PasswordHash string `gorm:"size:128"`
	Active       bool   `gorm:"default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Officer works complaints routed to their department once approved.
type Officer struct {
	ID           uint   `gorm:"primaryKey"`
	Name         string `gorm:"size:128"`
	Email        string `gorm:"size:255;uniqueIndex"`
	Phone        string `gorm:"size:32;uniqueIndex"`
	PasswordHash string `gorm:"size:128"`
	DepartmentID uint   `gorm:"index"`
	Status       string `gorm:"size:16;index"`
	ApprovedBy   *uint
	ApprovedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Department is a routing rule: the set of complaint categories it handles.
type Department struct {
	ID             uint   `gorm:"primaryKey"`
	Name           string `gorm:"size:128;uniqueIndex"`
	Description    string `gorm:"type:text"`
	CategoriesJSON string `gorm:"type:text"`
	Active         bool   `gorm:"index"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SetCategories stores the handled categories as JSON.
func (d *Department) SetCategories(categories []string) {
	if categories == nil {
		d.CategoriesJSON = "[]"
		return
	}
	payload, _ := json.Marshal(categories)
	d.CategoriesJSON = string(payload)
}

// Categories returns the decoded handled categories.
func (d *Department) Categories() []string {
	return decodeStrings(d.CategoriesJSON)
}

// Handles reports whether the department claims the category. Matching is
// exact and case-sensitive.
func (d *Department) Handles(category string) bool {
	for _, candidate := range d.Categories() {
		if candidate == category {
			return true
		}
	}
	return false
}

// Complaint is a citizen report plus its analysis, score and routing outcome.
type Complaint struct {
	ID                  uint   `gorm:"primaryKey"`
	Reference           string `gorm:"size:64;uniqueIndex"`
	CitizenID           uint   `gorm:"index"`
	Category            string `gorm:"size:64;index"`
	Description         string `gorm:"type:text"`
	Location            string `gorm:"size:512"`
	Latitude            *float64
	Longitude           *float64
	PhotoKey            string `gorm:"size:255"`
	PhotoContentType    string `gorm:"size:64"`
	Status              string `gorm:"size:16;index"`
	DepartmentID        *uint  `gorm:"index"`
	OfficerID           *uint  `gorm:"index"`
	AssignedAt          *time.Time
	ResolvedAt          *time.Time
	Severity            int
	AIPriorityLevel     string `gorm:"size:16"`
	PriorityScore       int    `gorm:"index"`
	PriorityLevel       string `gorm:"size:16;index"`
	ResolutionWindow    string `gorm:"size:32"`
	AIDescription       string `gorm:"type:text"`
	DetectedIssuesJSON  string `gorm:"type:text"`
	HealthConcernsJSON  string `gorm:"type:text"`
	AnalysisDetailsJSON string `gorm:"type:text"`
	Confidence          int
	AIError             bool
	AnalyzedAt          *time.Time
	AnalysisMs          int64
	CreatedAt           time.Time `gorm:"index"`
	UpdatedAt           time.Time
}

// SetDetectedIssues stores the analyzer's issue list as JSON.
func (c *Complaint) SetDetectedIssues(issues []string) {
	c.DetectedIssuesJSON = encodeStrings(issues)
}

// DetectedIssues returns the decoded issue list.
func (c *Complaint) DetectedIssues() []string {
	return decodeStrings(c.DetectedIssuesJSON)
}

// SetHealthConcerns stores the analyzer's health concerns as JSON.
func (c *Complaint) SetHealthConcerns(concerns []string) {
	c.HealthConcernsJSON = encodeStrings(concerns)
}

// HealthConcerns returns the decoded health concerns.
func (c *Complaint) HealthConcerns() []string {
	return decodeStrings(c.HealthConcernsJSON)
}

// SetAnalysisDetails stores category-specific analyzer fields.
func (c *Complaint) SetAnalysisDetails(details map[string]any) {
	if len(details) == 0 {
		c.AnalysisDetailsJSON = ""
		return
	}
	payload, _ := json.Marshal(details)
	c.AnalysisDetailsJSON = string(payload)
}

// AnalysisDetails returns the decoded category-specific analyzer fields.
func (c *Complaint) AnalysisDetails() map[string]any {
	if strings.TrimSpace(c.AnalysisDetailsJSON) == "" {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(c.AnalysisDetailsJSON), &out); err != nil {
		return nil
	}
	return out
}

func encodeStrings(values []string) string {
	if values == nil {
		return "[]"
	}
	payload, _ := json.Marshal(values)
	return string(payload)
}

func decodeStrings(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}
