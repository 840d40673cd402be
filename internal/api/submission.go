package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"civic-complaints/internal/ai"
	"civic-complaints/internal/auth"
	"civic-complaints/internal/photos"
	"civic-complaints/internal/routing"
	"civic-complaints/internal/store"
	"civic-complaints/internal/util"
)

// multipartOverhead leaves room for the text fields next to the photo.
const multipartOverhead = 1 << 20

// complaintSubmission is the validated multipart form.
type complaintSubmission struct {
	Category    string
	Description string
	Location    string
	Latitude    *float64
	Longitude   *float64
	Photo       []byte
}

// SubmissionResult is returned after a complaint is filed.
type SubmissionResult struct {
	Complaint ComplaintDTO `json:"complaint"`
	Routing   MappingDTO   `json:"routing"`
}

func (s *Server) handleCreateComplaint(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxPhotoBytes+multipartOverhead)
	sub, status, err := s.readSubmission(c)
	if err != nil {
		s.renderError(c, status, err)
		return
	}

	result, status, err := s.processComplaint(c.Request.Context(), auth.UserID(c), sub)
	if err != nil {
		s.renderError(c, status, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (s *Server) readSubmission(c *gin.Context) (complaintSubmission, int, error) {
	sub := complaintSubmission{
		Category:    strings.TrimSpace(firstNonEmpty(c.PostForm("type"), c.PostForm("category"))),
		Description: strings.TrimSpace(c.PostForm("description")),
		Location:    strings.TrimSpace(c.PostForm("location")),
	}
	if sub.Category == "" || sub.Description == "" || sub.Location == "" {
		return sub, http.StatusBadRequest, errors.New("type, description and location are required")
	}
	if !s.knownCategory(sub.Category) {
		return sub, http.StatusBadRequest, fmt.Errorf("unknown complaint type %q", sub.Category)
	}

	var err error
	if sub.Latitude, err = optionalFloat(c.PostForm("latitude"), -90, 90); err != nil {
		return sub, http.StatusBadRequest, fmt.Errorf("latitude: %w", err)
	}
	if sub.Longitude, err = optionalFloat(c.PostForm("longitude"), -180, 180); err != nil {
		return sub, http.StatusBadRequest, fmt.Errorf("longitude: %w", err)
	}

	header, err := c.FormFile("photo")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return sub, http.StatusRequestEntityTooLarge, photos.ErrTooLarge
		}
		return sub, http.StatusBadRequest, errors.New("photo is required")
	}
	if header.Size > s.maxPhotoBytes {
		return sub, http.StatusRequestEntityTooLarge, photos.ErrTooLarge
	}
	file, err := header.Open()
	if err != nil {
		return sub, http.StatusBadRequest, fmt.Errorf("read photo: %w", err)
	}
	defer file.Close()
	if sub.Photo, err = io.ReadAll(io.LimitReader(file, s.maxPhotoBytes+1)); err != nil {
		return sub, http.StatusBadRequest, fmt.Errorf("read photo: %w", err)
	}
	if len(sub.Photo) == 0 {
		return sub, http.StatusBadRequest, errors.New("photo is empty")
	}
	return sub, http.StatusOK, nil
}

// processComplaint stores the photo, analyses it, scores and routes the
// complaint, then persists and announces it. Analysis failures never fail the
// submission; the default analysis is used instead. The photo is removed again
// when the complaint row cannot be written.
func (s *Server) processComplaint(ctx context.Context, citizenID uint, sub complaintSubmission) (SubmissionResult, int, error) {
	photo, err := s.photos.Save(ctx, sub.Photo)
	if err != nil {
		switch {
		case errors.Is(err, photos.ErrTooLarge):
			return SubmissionResult{}, http.StatusRequestEntityTooLarge, err
		case errors.Is(err, photos.ErrUnsupportedType):
			return SubmissionResult{}, http.StatusUnsupportedMediaType, err
		}
		logrus.WithError(err).Error("store complaint photo")
		return SubmissionResult{}, http.StatusInternalServerError, errors.New("could not store photo")
	}

	timer := util.StartTimer()
	analyzeCtx, cancel := context.WithTimeout(ctx, s.analysisTimeout)
	analysis, details, err := s.analyzer.Analyze(analyzeCtx, ai.Request{
		Category:    sub.Category,
		Description: sub.Description,
		Location:    sub.Location,
		Image:       sub.Photo,
		ContentType: photo.ContentType,
	})
	cancel()
	if err != nil {
		logrus.WithError(err).WithField("category", sub.Category).Warn("image analysis failed; using default analysis")
		analysis, details = ai.DefaultAnalysis(sub.Category)
	}

	base := s.scorer.Rules().DefaultSeverity
	if analysis.Severity != nil {
		base = *analysis.Severity
	}
	adjusted := s.scorer.AdjustSeverity(base, sub.Description, sub.Category)
	analysis.Severity = &adjusted

	score := s.scorer.PriorityScore(analysis, sub.Category, sub.Location)
	analyzedAt := time.Now()

	resolution, err := s.router.Resolve(ctx, sub.Category)
	if err != nil {
		logrus.WithError(err).WithField("category", sub.Category).Warn("department lookup failed; complaint left unassigned")
		resolution = routing.Resolution{}
	}

	complaint := &store.Complaint{
		Reference:        newReference(timer.Started()),
		CitizenID:        citizenID,
		Category:         sub.Category,
		Description:      sub.Description,
		Location:         sub.Location,
		Latitude:         sub.Latitude,
		Longitude:        sub.Longitude,
		PhotoKey:         photo.Key,
		PhotoContentType: photo.ContentType,
		Status:           store.StatusPending,
		DepartmentID:     resolution.ID(),
		Severity:         adjusted,
		AIPriorityLevel:  analysis.PriorityLevel,
		PriorityScore:    score,
		PriorityLevel:    s.scorer.LevelForScore(score),
		ResolutionWindow: s.scorer.EstimatedResolution(score),
		AIDescription:    details.Description,
		AIError:          details.AIError,
		AnalyzedAt:       &analyzedAt,
		AnalysisMs:       timer.ElapsedMs(),
	}
	complaint.SetDetectedIssues(analysis.DetectedIssues)
	complaint.SetHealthConcerns(analysis.HealthConcerns)
	complaint.SetAnalysisDetails(details.Fields)
	if analysis.Confidence != nil {
		complaint.Confidence = *analysis.Confidence
	}

	if err := s.db.CreateComplaint(complaint); err != nil {
		logrus.WithError(err).Error("persist complaint")
		if derr := s.photos.Delete(context.WithoutCancel(ctx), photo.Key); derr != nil {
			logrus.WithError(derr).WithField("photo_key", photo.Key).Warn("remove orphaned complaint photo")
		}
		return SubmissionResult{}, http.StatusInternalServerError, errors.New("could not save complaint")
	}

	logrus.WithFields(logrus.Fields{
		"reference":      complaint.Reference,
		"category":       complaint.Category,
		"priority_score": complaint.PriorityScore,
		"priority_level": complaint.PriorityLevel,
		"department":     resolution.DepartmentName,
		"ai_error":       complaint.AIError,
		"analysis_ms":    complaint.AnalysisMs,
	}).Info("complaint filed")

	dto := ComplaintFromModel(*complaint, s.scorer)
	s.notifier.Broadcast(ComplaintEvent{
		Type:         EventCreated,
		ComplaintID:  complaint.ID,
		DepartmentID: complaint.DepartmentID,
		Complaint:    &dto,
		Message:      fmt.Sprintf("new %s complaint %s", complaint.PriorityLevel, complaint.Reference),
	})

	return SubmissionResult{
		Complaint: dto,
		Routing:   MappingFromResolution(sub.Category, resolution),
	}, http.StatusCreated, nil
}

func (s *Server) knownCategory(category string) bool {
	for _, known := range s.categories {
		if known == category {
			return true
		}
	}
	return false
}

// newReference builds a human readable complaint number, e.g. CMP-20240105-1A2B3C4D.
func newReference(now time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("CMP-%s-%s", now.Format("20060102"), strings.ToUpper(id[:8]))
}

func optionalFloat(value string, lo, hi float64) (*float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number: %w", err)
	}
	if parsed < lo || parsed > hi {
		return nil, fmt.Errorf("must be between %g and %g", lo, hi)
	}
	return &parsed, nil
}
