package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"civic-complaints/internal/auth"
	"civic-complaints/internal/photos"
	"civic-complaints/internal/store"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

var errAccessDenied = errors.New("access denied")

var officerStatuses = map[string]bool{
	store.StatusPending:    true,
	store.StatusInProgress: true,
	store.StatusResolved:   true,
	store.StatusRejected:   true,
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleMyComplaints(c *gin.Context) {
	rows, total, err := s.db.ListComplaints(store.ComplaintQuery{
		CitizenID: auth.UserID(c),
		Status:    c.Query("status"),
		Sort:      c.Query("sort"),
		Offset:    queryInt(c, "offset", 0, 0),
		Limit:     queryInt(c, "limit", defaultPageSize, maxPageSize),
	})
	if err != nil {
		s.renderStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.complaintsResponse(rows, total))
}

// handleDepartmentComplaints lists the officer's department queue, most
// urgent first unless another sort is requested.
func (s *Server) handleDepartmentComplaints(c *gin.Context) {
	officer, ok := s.currentOfficer(c)
	if !ok {
		return
	}
	rows, total, err := s.db.ListComplaints(store.ComplaintQuery{
		DepartmentID:  officer.DepartmentID,
		Status:        c.Query("status"),
		PriorityLevel: firstNonEmpty(c.Query("priority"), c.Query("priority_level")),
		Category:      firstNonEmpty(c.Query("type"), c.Query("category")),
		Sort:          firstNonEmpty(c.Query("sort"), "priority_desc"),
		Offset:        queryInt(c, "offset", 0, 0),
		Limit:         queryInt(c, "limit", defaultPageSize, maxPageSize),
	})
	if err != nil {
		s.renderStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.complaintsResponse(rows, total))
}

func (s *Server) handleGetComplaint(c *gin.Context) {
	complaint, ok := s.visibleComplaint(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ComplaintFromModel(*complaint, s.scorer))
}

func (s *Server) handleComplaintPhoto(c *gin.Context) {
	complaint, ok := s.visibleComplaint(c)
	if !ok {
		return
	}
	if complaint.PhotoKey == "" {
		s.renderError(c, http.StatusNotFound, photos.ErrNotFound)
		return
	}
	reader, photo, err := s.photos.Open(c.Request.Context(), complaint.PhotoKey)
	if err != nil {
		if errors.Is(err, photos.ErrNotFound) {
			s.renderError(c, http.StatusNotFound, err)
			return
		}
		logrus.WithError(err).WithField("complaint_id", complaint.ID).Error("open complaint photo")
		s.renderError(c, http.StatusInternalServerError, errors.New("could not load photo"))
		return
	}
	defer reader.Close()
	contentType := firstNonEmpty(photo.ContentType, complaint.PhotoContentType, "application/octet-stream")
	c.DataFromReader(http.StatusOK, photo.Size, contentType, reader, map[string]string{
		"Cache-Control": "private, max-age=3600",
	})
}

func (s *Server) handleUpdateStatus(c *gin.Context) {
	officer, ok := s.currentOfficer(c)
	if !ok {
		return
	}
	id, err := parseUintParam(c.Param("id"))
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if !officerStatuses[status] {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("invalid status %q", req.Status))
		return
	}

	complaint, err := s.db.GetComplaint(id)
	if err != nil {
		s.renderStoreError(c, err)
		return
	}
	if complaint.DepartmentID == nil || *complaint.DepartmentID != officer.DepartmentID {
		s.renderError(c, http.StatusForbidden, errAccessDenied)
		return
	}

	updated, err := s.db.UpdateComplaintStatus(id, status, officer.ID)
	if err != nil {
		s.renderStoreError(c, err)
		return
	}
	logrus.WithFields(logrus.Fields{
		"complaint_id": updated.ID,
		"officer_id":   officer.ID,
		"from":         complaint.Status,
		"to":           updated.Status,
	}).Info("complaint status updated")

	dto := ComplaintFromModel(*updated, s.scorer)
	s.notifier.Broadcast(ComplaintEvent{
		Type:         EventUpdated,
		ComplaintID:  updated.ID,
		DepartmentID: updated.DepartmentID,
		Complaint:    &dto,
		Message:      fmt.Sprintf("complaint %s is now %s", updated.Reference, updated.Status),
	})
	c.JSON(http.StatusOK, dto)
}

func (s *Server) handleComplaintStream(c *gin.Context) {
	var departmentID uint
	all := auth.Role(c) == auth.RoleAdmin
	if !all {
		officer, ok := s.currentOfficer(c)
		if !ok {
			return
		}
		departmentID = officer.DepartmentID
	}

	upgrader := websocket.Upgrader{
		HandshakeTimeout:  5 * time.Second,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.allowedOrigins) == 0 {
				return true
			}
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" {
				return true
			}
			for _, allowed := range s.allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("upgrade websocket")
		return
	}

	client := s.notifier.Register(conn, departmentID, all)
	fields := logrus.Fields{
		"remote":        conn.RemoteAddr().String(),
		"user_id":       auth.UserID(c),
		"department_id": departmentID,
	}
	logrus.WithFields(fields).Info("complaint websocket connected")
	defer s.notifier.Unregister(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithFields(fields).Info("complaint websocket closed")
			} else {
				logrus.WithError(err).Warn("complaint websocket unexpected close")
			}
			break
		}
	}
}

// currentOfficer loads the caller's officer record. The department comes from
// the database so reassignments apply without a new token.
func (s *Server) currentOfficer(c *gin.Context) (*store.Officer, bool) {
	officer, err := s.db.GetOfficer(auth.UserID(c))
	if err != nil {
		s.renderStoreError(c, err)
		return nil, false
	}
	if officer.Status != store.OfficerActive {
		s.renderError(c, http.StatusForbidden, errors.New("officer account is not active"))
		return nil, false
	}
	return officer, true
}

// visibleComplaint loads the complaint named by :id if the caller may see it.
// Citizens see their own, officers their department's, admins everything.
func (s *Server) visibleComplaint(c *gin.Context) (*store.Complaint, bool) {
	id, err := parseUintParam(c.Param("id"))
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return nil, false
	}
	complaint, err := s.db.GetComplaint(id)
	if err != nil {
		s.renderStoreError(c, err)
		return nil, false
	}
	switch auth.Role(c) {
	case auth.RoleAdmin:
		return complaint, true
	case auth.RoleCitizen:
		if complaint.CitizenID == auth.UserID(c) {
			return complaint, true
		}
	case auth.RoleOfficer:
		officer, ok := s.currentOfficer(c)
		if !ok {
			return nil, false
		}
		if complaint.DepartmentID != nil && *complaint.DepartmentID == officer.DepartmentID {
			return complaint, true
		}
	}
	s.renderError(c, http.StatusForbidden, errAccessDenied)
	return nil, false
}

func (s *Server) complaintsResponse(rows []store.Complaint, total int64) ComplaintsResponse {
	items := make([]ComplaintDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, ComplaintFromModel(row, s.scorer))
	}
	return ComplaintsResponse{Items: items, Total: total}
}
