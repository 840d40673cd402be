package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"civic-complaints/internal/ai"
	"civic-complaints/internal/auth"
	"civic-complaints/internal/photos"
	"civic-complaints/internal/routing"
	"civic-complaints/internal/scoring"
	"civic-complaints/internal/store"
)

// Config defines server dependencies.
type Config struct {
	DBPath            string
	SilentDB          bool
	AllowedOrigins    []string
	JWTSecret         string
	TokenTTLs         auth.TTLs
	AIConfig          ai.Config
	DisableAI         bool
	AIRetries         int
	AnalysisTimeout   time.Duration
	PhotoDir          string
	MaxPhotoBytes     int64
	Minio             photos.MinioConfig
	UseMinio          bool
	RateLimitRPS      float64
	RateLimitBurst    int
	PriorityRulesPath string
	Categories        []string

	// Analyzer and Photos replace the configured implementations when set.
	Analyzer ai.Analyzer
	Photos   photos.Store
}

// Server wires HTTP handlers with persistence, scoring and routing.
type Server struct {
	db              *store.Database
	scorer          *scoring.Scorer
	router          *routing.Router
	analyzer        ai.Analyzer
	photos          photos.Store
	issuer          *auth.Issuer
	notifier        *ComplaintNotifier
	limiter         *ipRateLimiter
	allowedOrigins  []string
	categories      []string
	analysisTimeout time.Duration
	maxPhotoBytes   int64
}

const (
	defaultAnalysisTimeout = 45 * time.Second
	defaultMaxPhotoBytes   = 5 << 20
	aiRetryBase            = time.Second
)

// NewServer constructs the API server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("db path required")
	}
	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTLs)
	if err != nil {
		return nil, err
	}

	rules := scoring.DefaultRules()
	if path := strings.TrimSpace(cfg.PriorityRulesPath); path != "" {
		if rules, err = scoring.LoadRules(path); err != nil {
			return nil, fmt.Errorf("priority rules: %w", err)
		}
		logrus.WithField("path", path).Info("loaded priority rules")
	}

	if cfg.MaxPhotoBytes <= 0 {
		cfg.MaxPhotoBytes = defaultMaxPhotoBytes
	}
	photoStore := cfg.Photos
	if photoStore == nil {
		if photoStore, err = openPhotoStore(cfg); err != nil {
			return nil, err
		}
	}

	analyzer := cfg.Analyzer
	if analyzer == nil {
		analyzer = buildAnalyzer(cfg)
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := store.Open(cfg.DBPath, cfg.SilentDB)
	if err != nil {
		return nil, err
	}

	categories := cfg.Categories
	if len(categories) == 0 {
		categories = scoring.DefaultCategories
	}
	timeout := cfg.AnalysisTimeout
	if timeout <= 0 {
		timeout = defaultAnalysisTimeout
	}

	return &Server{
		db:              db,
		scorer:          scoring.NewScorer(rules),
		router:          routing.NewRouter(db),
		analyzer:        analyzer,
		photos:          photoStore,
		issuer:          issuer,
		notifier:        NewComplaintNotifier(),
		limiter:         newIPRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		allowedOrigins:  cfg.AllowedOrigins,
		categories:      categories,
		analysisTimeout: timeout,
		maxPhotoBytes:   cfg.MaxPhotoBytes,
	}, nil
}

func openPhotoStore(cfg Config) (photos.Store, error) {
	if cfg.UseMinio {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		bucket, err := photos.NewMinioStore(ctx, cfg.Minio, cfg.MaxPhotoBytes)
		if err != nil {
			return nil, fmt.Errorf("photo storage: %w", err)
		}
		logrus.WithFields(logrus.Fields{
			"endpoint": cfg.Minio.Endpoint,
			"bucket":   cfg.Minio.Bucket,
		}).Info("storing complaint photos in object storage")
		return bucket, nil
	}
	disk, err := photos.NewDiskStore(cfg.PhotoDir, cfg.MaxPhotoBytes)
	if err != nil {
		return nil, fmt.Errorf("photo storage: %w", err)
	}
	logrus.WithField("dir", cfg.PhotoDir).Info("storing complaint photos on disk")
	return disk, nil
}

// buildAnalyzer chains the OpenAI client in front of the static default so
// submissions never fail because analysis is unavailable.
func buildAnalyzer(cfg Config) ai.Analyzer {
	if cfg.DisableAI {
		logrus.Info("AI analysis disabled via configuration")
		return ai.Static()
	}
	client, err := ai.NewClient(cfg.AIConfig)
	if err != nil {
		if errors.Is(err, ai.ErrDisabled) {
			logrus.Warn("AI analysis disabled - no OpenAI API key configured; complaints will need manual review")
		} else {
			logrus.WithError(err).Warn("AI client unavailable; complaints will need manual review")
		}
		return ai.Static()
	}
	retries := cfg.AIRetries
	if retries < 0 {
		retries = 0
	}
	return ai.WithFallback(ai.Retrying(client, uint64(retries), aiRetryBase), ai.Static())
}

// Close releases the database handle.
func (s *Server) Close() error {
	return s.db.Close()
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = true
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/api/healthz", s.handleHealth)

	api := r.Group("/api")
	api.Use(s.limiter.middleware())
	{
		api.GET("/categories", s.handleCategories)
		api.GET("/departments", s.handlePublicDepartments)
		api.GET("/departments/mapping", s.handleDepartmentMapping)

		api.POST("/auth/register", s.handleCitizenRegister)
		api.POST("/auth/login", s.handleCitizenLogin)
		api.POST("/auth/officer/register", s.handleOfficerRegister)
		api.POST("/auth/officer/login", s.handleOfficerLogin)
		api.POST("/admin/login", s.handleAdminLogin)
	}

	authed := api.Group("", auth.Authenticate(s.issuer))
	{
		citizen := auth.RequireRole(auth.RoleCitizen)
		officer := auth.RequireRole(auth.RoleOfficer)
		staff := auth.RequireRole(auth.RoleOfficer, auth.RoleAdmin)
		anyone := auth.RequireRole(auth.RoleCitizen, auth.RoleOfficer, auth.RoleAdmin)

		authed.POST("/complaints", citizen, s.handleCreateComplaint)
		authed.GET("/complaints/mine", citizen, s.handleMyComplaints)
		authed.GET("/complaints", officer, s.handleDepartmentComplaints)
		authed.PUT("/complaints/:id/status", officer, s.handleUpdateStatus)
		authed.GET("/complaints/stream", staff, s.handleComplaintStream)
		authed.GET("/complaints/:id", anyone, s.handleGetComplaint)
		authed.GET("/complaints/:id/photo", anyone, s.handleComplaintPhoto)
	}

	admin := authed.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	{
		admin.GET("/profile", s.handleAdminProfile)
		admin.POST("/register", s.handleAdminRegister)

		admin.GET("/departments", s.handleListDepartments)
		admin.GET("/departments/:id", s.handleGetDepartment)
		admin.POST("/departments", s.handleCreateDepartment)
		admin.PUT("/departments/:id", s.handleUpdateDepartment)
		admin.DELETE("/departments/:id", s.handleDeactivateDepartment)

		admin.GET("/officers", s.handleListOfficers)
		admin.GET("/officers/pending", s.handlePendingOfficers)
		admin.GET("/officers/:id", s.handleGetOfficer)
		admin.PUT("/officers/:id/approve", s.officerAction(store.OfficerApprove))
		admin.PUT("/officers/:id/reject", s.officerAction(store.OfficerReject))
		admin.PUT("/officers/:id/revoke", s.officerAction(store.OfficerRevoke))
		admin.PUT("/officers/:id/activate", s.officerAction(store.OfficerActivate))
		admin.PUT("/officers/:id/department", s.handleMoveOfficer)
		admin.DELETE("/officers/:id", s.handleDeleteOfficer)

		admin.GET("/complaints", s.handleAdminComplaints)
		admin.PUT("/complaints/:id/department", s.handleReassignComplaint)

		admin.GET("/stats/overview", s.handleStatsOverview)
		admin.GET("/stats/departments", s.handleStatsDepartments)
		admin.GET("/stats/departments/:id", s.handleStatsDepartment)
		admin.GET("/stats/officers", s.handleStatsOfficers)
		admin.GET("/stats/officers/:id", s.handleStatsOfficer)
	}

	return r, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"ai_enabled":  s.analyzer.Enabled(),
		"subscribers": s.notifier.ClientCount(),
	})
}

func (s *Server) handleCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": s.categories})
}

func (s *Server) handlePublicDepartments(c *gin.Context) {
	rows, err := s.db.ActiveDepartments(c.Request.Context())
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	items := make([]DepartmentDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, DepartmentFromModel(row))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) handleDepartmentMapping(c *gin.Context) {
	mapping, err := s.router.Mapping(c.Request.Context())
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	items := make([]MappingDTO, 0, len(s.categories))
	seen := make(map[string]bool, len(s.categories))
	for _, category := range s.categories {
		seen[category] = true
		items = append(items, MappingFromResolution(category, mapping[category]))
	}
	extra := make([]string, 0)
	for category := range mapping {
		if !seen[category] {
			extra = append(extra, category)
		}
	}
	sort.Strings(extra)
	for _, category := range extra {
		items = append(items, MappingFromResolution(category, mapping[category]))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}

// renderStoreError maps repository errors onto HTTP statuses.
func (s *Server) renderStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		s.renderError(c, http.StatusNotFound, err)
	case errors.Is(err, store.ErrConflict):
		s.renderError(c, http.StatusConflict, err)
	case errors.Is(err, store.ErrInvalidState):
		s.renderError(c, http.StatusUnprocessableEntity, err)
	default:
		logrus.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		s.renderError(c, http.StatusInternalServerError, err)
	}
}

func parseUintParam(value string) (uint, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, errors.New("identifier is required")
	}
	parsed, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid identifier: %w", err)
	}
	if parsed == 0 {
		return 0, errors.New("identifier must be greater than zero")
	}
	return uint(parsed), nil
}

func queryInt(c *gin.Context, key string, fallback, max int) int {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	if max > 0 && parsed > max {
		return max
	}
	return parsed
}

func photoURL(id uint) string {
	return fmt.Sprintf("/api/complaints/%d/photo", id)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
