package api

import (
	"time"

	"civic-complaints/internal/routing"
	"civic-complaints/internal/scoring"
	"civic-complaints/internal/store"
)

// ComplaintDTO is the API representation for a persisted complaint.
type ComplaintDTO struct {
	ID               uint        `json:"id"`
	Reference        string      `json:"reference"`
	CitizenID        uint        `json:"citizen_id"`
	Type             string      `json:"type"`
	Description      string      `json:"description"`
	Location         string      `json:"location"`
	Latitude         *float64    `json:"latitude,omitempty"`
	Longitude        *float64    `json:"longitude,omitempty"`
	PhotoURL         string      `json:"photo_url,omitempty"`
	Status           string      `json:"status"`
	DepartmentID     *uint       `json:"department_id"`
	OfficerID        *uint       `json:"officer_id"`
	AssignedAt       *time.Time  `json:"assigned_at,omitempty"`
	ResolvedAt       *time.Time  `json:"resolved_at,omitempty"`
	PriorityScore    int         `json:"priority_score"`
	PriorityLevel    string      `json:"priority_level"`
	PriorityColor    string      `json:"priority_color"`
	ResolutionWindow string      `json:"estimated_resolution"`
	Analysis         AnalysisDTO `json:"ai_analysis"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// AnalysisDTO carries the stored image analysis.
type AnalysisDTO struct {
	Severity       int            `json:"severity"`
	PriorityLevel  string         `json:"priority_level"`
	DetectedIssues []string       `json:"detected_issues"`
	HealthConcerns []string       `json:"health_concerns"`
	Description    string         `json:"description"`
	Confidence     int            `json:"confidence"`
	Details        map[string]any `json:"details,omitempty"`
	AIError        bool           `json:"ai_error"`
	AnalyzedAt     *time.Time     `json:"analyzed_at,omitempty"`
	DurationMs     int64          `json:"duration_ms"`
}

// ComplaintsResponse is the paginated complaint listing.
type ComplaintsResponse struct {
	Items []ComplaintDTO `json:"items"`
	Total int64          `json:"total"`
}

// ComplaintFromModel converts a store.Complaint into the DTO representation.
func ComplaintFromModel(c store.Complaint, scorer *scoring.Scorer) ComplaintDTO {
	dto := ComplaintDTO{
		ID:               c.ID,
		Reference:        c.Reference,
		CitizenID:        c.CitizenID,
		Type:             c.Category,
		Description:      c.Description,
		Location:         c.Location,
		Latitude:         c.Latitude,
		Longitude:        c.Longitude,
		Status:           c.Status,
		DepartmentID:     c.DepartmentID,
		OfficerID:        c.OfficerID,
		AssignedAt:       c.AssignedAt,
		ResolvedAt:       c.ResolvedAt,
		PriorityScore:    c.PriorityScore,
		PriorityLevel:    c.PriorityLevel,
		PriorityColor:    scorer.LevelColor(c.PriorityLevel),
		ResolutionWindow: c.ResolutionWindow,
		Analysis: AnalysisDTO{
			Severity:       c.Severity,
			PriorityLevel:  c.AIPriorityLevel,
			DetectedIssues: nonNil(c.DetectedIssues()),
			HealthConcerns: nonNil(c.HealthConcerns()),
			Description:    c.AIDescription,
			Confidence:     c.Confidence,
			Details:        c.AnalysisDetails(),
			AIError:        c.AIError,
			AnalyzedAt:     c.AnalyzedAt,
			DurationMs:     c.AnalysisMs,
		},
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if c.PhotoKey != "" {
		dto.PhotoURL = photoURL(c.ID)
	}
	return dto
}

// DepartmentDTO is the API representation for a department.
type DepartmentDTO struct {
	ID             uint      `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Categories     []string  `json:"categories"`
	Active         bool      `json:"active"`
	OfficerCount   *int64    `json:"officer_count,omitempty"`
	ComplaintCount *int64    `json:"complaint_count,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DepartmentFromModel converts a store.Department into the DTO representation.
func DepartmentFromModel(d store.Department) DepartmentDTO {
	return DepartmentDTO{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Categories:  nonNil(d.Categories()),
		Active:      d.Active,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// DepartmentSummaryFromModel adds officer and complaint counts.
func DepartmentSummaryFromModel(s store.DepartmentSummary) DepartmentDTO {
	dto := DepartmentFromModel(s.Department)
	officers, complaints := s.OfficerCount, s.ComplaintCount
	dto.OfficerCount = &officers
	dto.ComplaintCount = &complaints
	return dto
}

// MappingDTO describes where one category is routed.
type MappingDTO struct {
	Category       string              `json:"category"`
	DepartmentID   *uint               `json:"department_id"`
	DepartmentName string              `json:"department_name,omitempty"`
	Ambiguous      bool                `json:"ambiguous,omitempty"`
	Candidates     []routing.Candidate `json:"candidates,omitempty"`
}

// MappingFromResolution converts a routing.Resolution into the DTO representation.
func MappingFromResolution(category string, res routing.Resolution) MappingDTO {
	return MappingDTO{
		Category:       category,
		DepartmentID:   res.ID(),
		DepartmentName: res.DepartmentName,
		Ambiguous:      res.Ambiguous,
		Candidates:     res.Candidates,
	}
}

// UserDTO is returned on login and registration.
type UserDTO struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
	DepartmentID uint   `json:"department_id,omitempty"`
	Status       string `json:"status,omitempty"`
}

// AuthResponse bundles a token with the signed-in user.
type AuthResponse struct {
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	User      UserDTO    `json:"user"`
	Message   string     `json:"message,omitempty"`
}

// OfficerDTO is the admin view of an officer account.
type OfficerDTO struct {
	ID           uint                   `json:"id"`
	Name         string                 `json:"name"`
	Email        string                 `json:"email"`
	Phone        string                 `json:"phone"`
	DepartmentID uint                   `json:"department_id"`
	Status       string                 `json:"status"`
	ApprovedBy   *uint                  `json:"approved_by,omitempty"`
	ApprovedAt   *time.Time             `json:"approved_at,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	Workload     *store.OfficerWorkload `json:"workload,omitempty"`
}

// OfficerFromModel converts a store.Officer into the DTO representation.
func OfficerFromModel(o store.Officer) OfficerDTO {
	return OfficerDTO{
		ID:           o.ID,
		Name:         o.Name,
		Email:        o.Email,
		Phone:        o.Phone,
		DepartmentID: o.DepartmentID,
		Status:       o.Status,
		ApprovedBy:   o.ApprovedBy,
		ApprovedAt:   o.ApprovedAt,
		CreatedAt:    o.CreatedAt,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
