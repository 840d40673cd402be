package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"civic-complaints/internal/auth"
	"civic-complaints/internal/routing"
	"civic-complaints/internal/store"
)

type departmentRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Categories  []string `json:"categories"`
	Active      *bool    `json:"active"`
}

type moveOfficerRequest struct {
	DepartmentID uint `json:"department_id"`
}

type reassignRequest struct {
	DepartmentID uint `json:"department_id"`
}

// OfficerStatsDTO pairs an officer with their complaint aggregates.
type OfficerStatsDTO struct {
	Officer OfficerDTO           `json:"officer"`
	Stats   store.ComplaintStats `json:"stats"`
}

// DepartmentStatsDTO pairs a department with its complaint aggregates.
type DepartmentStatsDTO struct {
	Department DepartmentDTO        `json:"department"`
	Stats      store.ComplaintStats `json:"stats"`
}

func (s *Server) handleListDepartments(c *gin.Context) {
	rows, err := s.db.ListDepartments()
	if err != nil {
		s.renderStoreError(c, err)
		return
	}
	items := make([]DepartmentDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, DepartmentSummaryFromModel(row))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) handleGetDepartment(c *gin.Context) {
	dept, ok := s.departmentParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, DepartmentFromModel(*dept))
}

func (s *Server) handleCreateDepartment(c *gin.Context) {
	var req departmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		s.renderError(c, http.StatusBadRequest, errors.New("name is required"))
		return
	}
	dept := &store.Department{Name: *req.Name, Active: true}
	if req.Description != nil {
		dept.Description = strings.TrimSpace(*req.Description)
	}
	if req.Active != nil {
		dept.Active = *req.Active
	}
	categories, err := s.cleanCategories(req.Categories)
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	dept.SetCategories(categories)
	if err := s.db.CreateDepartment(dept, routingGuard(dept)); err != nil {
		s.renderDepartmentError(c, err)
		return
	}
	logrus.WithFields(logrus.Fields{
		"department_id": dept.ID,
		"name":          dept.Name,
		"categories":    dept.Categories(),
	}).Info("department created")
	c.JSON(http.StatusCreated, DepartmentFromModel(*dept))
}

func (s *Server) handleUpdateDepartment(c *gin.Context) {
	dept, ok := s.departmentParam(c)
	if !ok {
		return
	}
	var req departmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			s.renderError(c, http.StatusBadRequest, errors.New("name cannot be empty"))
			return
		}
		dept.Name = *req.Name
	}
	if req.Description != nil {
		dept.Description = strings.TrimSpace(*req.Description)
	}
	if req.Categories != nil {
		categories, err := s.cleanCategories(req.Categories)
		if err != nil {
			s.renderError(c, http.StatusBadRequest, err)
			return
		}
		dept.SetCategories(categories)
	}
	if req.Active != nil {
		if !*req.Active && dept.Active {
			s.renderError(c, http.StatusBadRequest, errors.New("use DELETE to deactivate a department"))
			return
		}
		dept.Active = *req.Active
	}
	if err := s.db.SaveDepartment(dept, routingGuard(dept)); err != nil {
		s.renderDepartmentError(c, err)
		return
	}
	logrus.WithField("department_id", dept.ID).Info("department updated")
	c.JSON(http.StatusOK, DepartmentFromModel(*dept))
}

func (s *Server) handleDeactivateDepartment(c *gin.Context) {
	id, err := parseUintParam(c.Param("id"))
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	dept, err := s.db.DeactivateDepartment(id)
	if err != nil {
		s.renderStoreError(c, err)
		return
	}
	logrus.WithField("department_id", dept.ID).Info("department deactivated")
	c.JSON(http.StatusOK, DepartmentFromModel(*dept))
}

// routingConflictError lists the categories a department would take from
// another active department.
type routingConflictError struct {
	conflicts []routing.Conflict
}

func (e *routingConflictError) Error() string {
	messages := make([]string, 0, len(e.conflicts))
	for _, conflict := range e.conflicts {
		messages = append(messages, conflict.Error())
	}
	return strings.Join(messages, "; ")
}

// routingGuard refuses an active department that would claim a category
// another active department already handles. The store runs it under its
// write lock, so two concurrent writes cannot both claim a category.
func routingGuard(dept *store.Department) store.DepartmentGuard {
	return func(active []store.Department) error {
		if !dept.Active {
			return nil
		}
		conflicts := routing.Conflicts(active, dept.Categories(), dept.ID)
		if len(conflicts) == 0 {
			return nil
		}
		return &routingConflictError{conflicts: conflicts}
	}
}

func (s *Server) renderDepartmentError(c *gin.Context, err error) {
	var conflict *routingConflictError
	if errors.As(err, &conflict) {
		c.JSON(http.StatusConflict, gin.H{
			"error":     conflict.Error(),
			"conflicts": conflict.conflicts,
		})
		return
	}
	s.renderStoreError(c, err)
}

func (s *Server) cleanCategories(values []string) ([]string, error) {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, value := range values {
		category := strings.TrimSpace(value)
		if category == "" || seen[category] {
			continue
		}
		if !s.knownCategory(category) {
			return nil, fmt.Errorf("unknown complaint type %q", category)
		}
		seen[category] = true
		out = append(out, category)
	}
	return out, nil
}

func (s *Server) departmentParam(c *gin.Context) (*store.Department, bool) {
	id, err := parseUintParam(c.Param("id"))
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return nil, false
	}
	dept, err := s.db.GetDepartment(id)
	if err != nil {
		s.renderStoreError(c, err)
		return nil, false
	}
	return dept, true
}

func (s *Server) handleListOfficers(c *gin.Context) {
	s.listOfficers(c, c.Query("status"))
}

func (s *Server) handlePendingOfficers(c *gin.Context) {
	s.listOfficers(c, store.OfficerPending)
}

func (s *Server) listOfficers(c *gin.Context, status string) {
	var departmentID uint
	if value := c.Query("department_id"); value != "" {
		id, err := parseUintParam(value)
		if err != nil {
			s.renderError(c, http.StatusBadRequest, err)
			return
		}
		departmentID = id
	}
	rows, err := s.db.ListOfficers(store.OfficerQuery{
		Status:       status,
		DepartmentID: departmentID,
		Search:       c.Query("search"),
		Limit:        queryInt(c, "limit", 0, maxPageSize),
	})
	if err != nil {
		s.renderStoreError(c, err)
		return
	}
	items := make([]OfficerDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, OfficerFromModel(row))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) handleGetOfficer(c *gin.Context) {
	id, err := parseUintParam(c.Param("id"))
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	officer, err := s.db.GetOfficer(id)
	if err != nil {
		s.renderStoreError(c, err)
		return
	}
	workload, err := s.db.OfficerWorkload(officer.ID)
	if err != nil {
		s.renderStoreError(c, err)
		return
	}
	dto := OfficerFromModel(*officer)
	dto.Workload = &workload
	c.JSON(http.StatusOK, dto)
}

// officerAction builds a handler for one officer lifecycle transition.
func (s *Server) officerAction(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseUintParam(c.Param("id"))
		if err != nil {
			s.renderError(c, http.StatusBadRequest, err)
			return
		}
		officer, err := s.db.TransitionOfficer(id, action, auth.UserID(c))
		if err != nil {
			s.renderStoreError(c, err)
			return
		}
		logrus.WithFields(logrus.Fields{
			"officer_id": officer.ID,
			"action":     action,
			"admin_id":   auth.UserID(c),
			"status":     officer.Status,
		}).Info("officer status changed")
		c.JSON(http.StatusOK, OfficerFromModel(*officer))
	}
}

func (s *Server) handleMoveOfficer(c *gin.Context) {
	id, err := parseUintParam(c.Param("id"))
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	var req moveOfficerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	if req.DepartmentID == 0 {
		s.renderError(c, http.StatusBadRequest, errors.New("department_id is required"))
		return
	}
	officer, err := s.db.MoveOfficer(id, req.DepartmentID)
	if err != nil {
		s.renderStoreError(c, err)
		return
	}
	logrus.WithFields(logrus.Fields{
		"officer_id":    officer.ID,
		"department_id": officer.DepartmentID,
	}).Info("officer moved")
	c.JSON(http.StatusOK, OfficerFromModel(*officer))
}

func (s *Server) handleDeleteOfficer(c *gin.Context) {
	id, err := parseUintParam(c.Param("id"))
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	if err := s.db.DeleteOfficer(id); err != nil {
		s.renderStoreError(c, err)
		return
	}
	logrus.WithField("officer_id", id).Info("officer deleted")
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAdminComplaints(c *gin.Context) {
	query := store.ComplaintQuery{
		Status:        c.Query("status"),
		PriorityLevel: firstNonEmpty(c.Query("priority"), c.Query("priority_level")),
		Category:      firstNonEmpty(c.Query("type"), c.Query("category")),
		Sort:          c.Query("sort"),
		Offset:        queryInt(c, "offset", 0, 0),
		Limit:         queryInt(c, "limit", defaultPageSize, maxPageSize),
	}
	switch value := strings.TrimSpace(c.Query("department_id")); value {
	case "":
	case "none", "unassigned":
		query.Unassigned = true
	default:
		id, err := parseUintParam(value)
		if err != nil {
			s.renderError(c, http.StatusBadRequest, err)
			return
		}
		query.DepartmentID = id
	}
	rows, total, err := s.db.ListComplaints(query)
	if err != nil {
		s.renderStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.complaintsResponse(rows, total))
}

// handleReassignComplaint moves a complaint to another department, typically
// one that was left unassigned or landed on an ambiguous category.
func (s *Server) handleReassignComplaint(c *gin.Context) {
	id, err := parseUintParam(c.Param("id"))
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	var req reassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	if req.DepartmentID == 0 {
		s.renderError(c, http.StatusBadRequest, errors.New("department_id is required"))
		return
	}
	complaint, err := s.db.AssignComplaint(id, req.DepartmentID)
	if err != nil {
		s.renderStoreError(c, err)
		return
	}
	logrus.WithFields(logrus.Fields{
		"complaint_id":  complaint.ID,
		"department_id": req.DepartmentID,
		"admin_id":      auth.UserID(c),
	}).Info("complaint reassigned")

	dto := ComplaintFromModel(*complaint, s.scorer)
	s.notifier.Broadcast(ComplaintEvent{
		Type:         EventReassigned,
		ComplaintID:  complaint.ID,
		DepartmentID: complaint.DepartmentID,
		Complaint:    &dto,
		Message:      fmt.Sprintf("complaint %s reassigned", complaint.Reference),
	})
	c.JSON(http.StatusOK, dto)
}

func (s *Server) handleStatsOverview(c *gin.Context) {
	overview, err := s.db.Overview(time.Now())
	if err != nil {
		s.renderStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (s *Server) handleStatsDepartments(c *gin.Context) {
	window, err := dateRange(c)
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	rows, err := s.db.ListDepartments()
	if err != nil {
		s.renderStoreError(c, err)
		return
	}
	now := time.Now()
	items := make([]DepartmentStatsDTO, 0, len(rows))
	for _, row := range rows {
		stats, err := s.db.DepartmentStats(row.ID, window, now)
		if err != nil {
			s.renderStoreError(c, err)
			return
		}
		items = append(items, DepartmentStatsDTO{Department: DepartmentSummaryFromModel(row), Stats: stats})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) handleStatsDepartment(c *gin.Context) {
	dept, ok := s.departmentParam(c)
	if !ok {
		return
	}
	window, err := dateRange(c)
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	stats, err := s.db.DepartmentStats(dept.ID, window, time.Now())
	if err != nil {
		s.renderStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, DepartmentStatsDTO{Department: DepartmentFromModel(*dept), Stats: stats})
}

func (s *Server) handleStatsOfficers(c *gin.Context) {
	window, err := dateRange(c)
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	rows, err := s.db.ListOfficers(store.OfficerQuery{Status: store.OfficerActive})
	if err != nil {
		s.renderStoreError(c, err)
		return
	}
	now := time.Now()
	items := make([]OfficerStatsDTO, 0, len(rows))
	for _, row := range rows {
		stats, err := s.db.OfficerStats(row.ID, window, now)
		if err != nil {
			s.renderStoreError(c, err)
			return
		}
		items = append(items, OfficerStatsDTO{Officer: OfficerFromModel(row), Stats: stats})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) handleStatsOfficer(c *gin.Context) {
	id, err := parseUintParam(c.Param("id"))
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	officer, err := s.db.GetOfficer(id)
	if err != nil {
		s.renderStoreError(c, err)
		return
	}
	window, err := dateRange(c)
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	stats, err := s.db.OfficerStats(officer.ID, window, time.Now())
	if err != nil {
		s.renderStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, OfficerStatsDTO{Officer: OfficerFromModel(*officer), Stats: stats})
}

// dateRange reads optional from/to query values (YYYY-MM-DD or RFC 3339). A
// bare "to" date covers the whole day.
func dateRange(c *gin.Context) (store.DateRange, error) {
	var out store.DateRange
	if value := firstNonEmpty(c.Query("from"), c.Query("start_date")); value != "" {
		parsed, _, err := parseDate(value)
		if err != nil {
			return out, fmt.Errorf("from: %w", err)
		}
		out.From = parsed
	}
	if value := firstNonEmpty(c.Query("to"), c.Query("end_date")); value != "" {
		parsed, dateOnly, err := parseDate(value)
		if err != nil {
			return out, fmt.Errorf("to: %w", err)
		}
		if dateOnly {
			parsed = parsed.Add(24*time.Hour - time.Nanosecond)
		}
		out.To = parsed
	}
	if !out.From.IsZero() && !out.To.IsZero() && out.To.Before(out.From) {
		return out, errors.New("to must not be before from")
	}
	return out, nil
}

func parseDate(value string) (time.Time, bool, error) {
	if parsed, err := time.Parse("2006-01-02", value); err == nil {
		return parsed, true, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false, errors.New("expected YYYY-MM-DD or RFC 3339 timestamp")
	}
	return parsed, false, nil
}
