package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civic-complaints/internal/ai"
	"civic-complaints/internal/auth"
	"civic-complaints/internal/photos"
	"civic-complaints/internal/scoring"
	"civic-complaints/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAnalyzer struct {
	analysis scoring.Analysis
	details  ai.Details
	err      error
	calls    int
	last     ai.Request
}

func (a *stubAnalyzer) Enabled() bool { return true }

func (a *stubAnalyzer) Analyze(_ context.Context, req ai.Request) (scoring.Analysis, ai.Details, error) {
	a.calls++
	a.last = req
	return a.analysis, a.details, a.err
}

type testEnv struct {
	server *Server
	router *gin.Engine
}

func newTestEnv(t *testing.T, analyzer ai.Analyzer) *testEnv {
	t.Helper()
	dir := t.TempDir()
	disk, err := photos.NewDiskStore(filepath.Join(dir, "photos"), 1<<20)
	require.NoError(t, err)

	server, err := NewServer(Config{
		DBPath:        filepath.Join(dir, "civic.db"),
		SilentDB:      true,
		JWTSecret:     "test-secret",
		Analyzer:      analyzer,
		Photos:        disk,
		MaxPhotoBytes: 1 << 20,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.Close() })

	router, err := server.Router()
	require.NoError(t, err)
	return &testEnv{server: server, router: router}
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) doJSON(t *testing.T, method, path string, payload any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	return e.do(t, method, path, body, "application/json", token)
}

func (e *testEnv) token(t *testing.T, userID uint, role string) string {
	t.Helper()
	token, _, err := e.server.issuer.Issue(userID, role)
	require.NoError(t, err)
	return token
}

func (e *testEnv) department(t *testing.T, name string, categories ...string) *store.Department {
	t.Helper()
	dept := &store.Department{Name: name, Active: true}
	dept.SetCategories(categories)
	require.NoError(t, e.server.db.CreateDepartment(dept))
	return dept
}

func (e *testEnv) activeOfficer(t *testing.T, email string, departmentID uint) *store.Officer {
	t.Helper()
	officer := &store.Officer{Name: "Officer", Email: email, Phone: email, DepartmentID: departmentID}
	require.NoError(t, e.server.db.CreateOfficer(officer))
	approved, err := e.server.db.TransitionOfficer(officer.ID, store.OfficerApprove, 1)
	require.NoError(t, err)
	return approved
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func complaintForm(t *testing.T, fields map[string]string, photo []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if photo != nil {
		part, err := writer.CreateFormFile("photo", "photo.png")
		require.NoError(t, err)
		_, err = part.Write(photo)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func intPtr(v int) *int { return &v }

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, ai.Static())
	w := env.do(t, http.MethodGet, "/api/healthz", nil, "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestCitizenRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t, ai.Static())

	t.Run("rejects short password", func(t *testing.T) {
		w := env.doJSON(t, http.MethodPost, "/api/auth/register", gin.H{"name": "Maya", "phone": "555-1000", "password": "123"}, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("registers and issues a token", func(t *testing.T) {
		w := env.doJSON(t, http.MethodPost, "/api/auth/register", gin.H{"name": "Maya", "phone": "555-1000", "password": "secret1"}, "")
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		resp := decode[AuthResponse](t, w)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, auth.RoleCitizen, resp.User.Role)
	})

	t.Run("duplicate phone conflicts", func(t *testing.T) {
		w := env.doJSON(t, http.MethodPost, "/api/auth/register", gin.H{"name": "Other", "phone": "555-1000", "password": "secret1"}, "")
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		w := env.doJSON(t, http.MethodPost, "/api/auth/login", gin.H{"phone": "555-1000", "password": "nope123"}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown phone is unauthorized", func(t *testing.T) {
		w := env.doJSON(t, http.MethodPost, "/api/auth/login", gin.H{"phone": "555-9999", "password": "secret1"}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("login succeeds", func(t *testing.T) {
		w := env.doJSON(t, http.MethodPost, "/api/auth/login", gin.H{"phone": "555-1000", "password": "secret1"}, "")
		require.Equal(t, http.StatusOK, w.Code)
		claims, err := env.server.issuer.Parse(decode[AuthResponse](t, w).Token)
		require.NoError(t, err)
		assert.Equal(t, auth.RoleCitizen, claims.Role)
	})
}

func TestSubmitComplaintScoresAndRoutes(t *testing.T) {
	analyzer := &stubAnalyzer{
		analysis: scoring.Analysis{
			Severity:       intPtr(80),
			PriorityLevel:  "high",
			DetectedIssues: []string{"overflowing bin", "scattered waste"},
			HealthConcerns: []string{"disease vectors"},
			Confidence:     intPtr(90),
		},
		details: ai.Details{Description: "Overflowing bin", Fields: map[string]any{"coveragePercentage": 70.0}},
	}
	env := newTestEnv(t, analyzer)
	dept := env.department(t, "Sanitation Department", scoring.CategoryGarbage)
	token := env.token(t, 11, auth.RoleCitizen)

	description := "Garbage piled near the school gate for a week"
	location := "Main Road near school"
	body, contentType := complaintForm(t, map[string]string{
		"type":        scoring.CategoryGarbage,
		"description": description,
		"location":    location,
		"latitude":    "17.6599",
		"longitude":   "75.9064",
	}, pngBytes(t))

	w := env.do(t, http.MethodPost, "/api/complaints", body, contentType, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	result := decode[SubmissionResult](t, w)

	scorer := env.server.scorer
	severity := scorer.AdjustSeverity(80, description, scoring.CategoryGarbage)
	expected := analyzer.analysis
	expected.Severity = &severity
	score := scorer.PriorityScore(expected, scoring.CategoryGarbage, location)

	got := result.Complaint
	assert.Equal(t, 1, analyzer.calls)
	assert.Equal(t, "image/png", analyzer.last.ContentType)
	assert.Equal(t, uint(11), got.CitizenID)
	assert.Equal(t, store.StatusPending, got.Status)
	assert.True(t, strings.HasPrefix(got.Reference, "CMP-"))
	require.NotNil(t, got.DepartmentID)
	assert.Equal(t, dept.ID, *got.DepartmentID)
	assert.Equal(t, "Sanitation Department", result.Routing.DepartmentName)
	assert.Equal(t, score, got.PriorityScore)
	assert.Equal(t, scorer.LevelForScore(score), got.PriorityLevel)
	assert.Equal(t, scorer.EstimatedResolution(score), got.ResolutionWindow)
	assert.Equal(t, severity, got.Analysis.Severity)
	assert.Equal(t, 90, got.Analysis.Confidence)
	assert.False(t, got.Analysis.AIError)
	assert.Equal(t, photoURL(got.ID), got.PhotoURL)
	require.NotNil(t, got.Latitude)
	assert.InDelta(t, 17.6599, *got.Latitude, 1e-9)

	event := env.server.notifier.LastEvent()
	require.NotNil(t, event)
	assert.Equal(t, EventCreated, event.Type)
	assert.Equal(t, got.ID, event.ComplaintID)

	photo := env.do(t, http.MethodGet, photoURL(got.ID), nil, "", token)
	require.Equal(t, http.StatusOK, photo.Code)
	assert.Equal(t, "image/png", photo.Header().Get("Content-Type"))
	assert.Equal(t, pngBytes(t), photo.Body.Bytes())
}

func TestSubmitComplaintFallsBackWhenAnalysisFails(t *testing.T) {
	analyzer := &stubAnalyzer{err: errors.New("model unavailable")}
	env := newTestEnv(t, analyzer)
	token := env.token(t, 3, auth.RoleCitizen)

	body, contentType := complaintForm(t, map[string]string{
		"type":        scoring.CategoryDrainage,
		"description": "Drain blocked",
		"location":    "Ward 4",
	}, pngBytes(t))
	w := env.do(t, http.MethodPost, "/api/complaints", body, contentType, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	result := decode[SubmissionResult](t, w)

	got := result.Complaint
	assert.True(t, got.Analysis.AIError)
	assert.Equal(t, []string{"requires_manual_review"}, got.Analysis.DetectedIssues)
	assert.Equal(t, 0, got.Analysis.Confidence)
	assert.Nil(t, got.DepartmentID, "no active department handles Drainage")
	assert.Nil(t, result.Routing.DepartmentID)

	fallback, _ := ai.DefaultAnalysis(scoring.CategoryDrainage)
	severity := env.server.scorer.AdjustSeverity(*fallback.Severity, "Drain blocked", scoring.CategoryDrainage)
	fallback.Severity = &severity
	assert.Equal(t, env.server.scorer.PriorityScore(fallback, scoring.CategoryDrainage, "Ward 4"), got.PriorityScore)
}

// trackingPhotos records deletions on top of a real store.
type trackingPhotos struct {
	photos.Store
	saved   []string
	deleted []string
}

func (p *trackingPhotos) Save(ctx context.Context, data []byte) (photos.Photo, error) {
	photo, err := p.Store.Save(ctx, data)
	if err == nil {
		p.saved = append(p.saved, photo.Key)
	}
	return photo, err
}

func (p *trackingPhotos) Delete(ctx context.Context, key string) error {
	p.deleted = append(p.deleted, key)
	return p.Store.Delete(ctx, key)
}

func TestSubmitComplaintRemovesPhotoWhenPersistFails(t *testing.T) {
	env := newTestEnv(t, ai.Static())
	tracked := &trackingPhotos{Store: env.server.photos}
	env.server.photos = tracked
	token := env.token(t, 9, auth.RoleCitizen)
	require.NoError(t, env.server.db.Close())

	body, contentType := complaintForm(t, map[string]string{
		"type":        scoring.CategoryGarbage,
		"description": "Bins overflowing",
		"location":    "Market",
	}, pngBytes(t))
	w := env.do(t, http.MethodPost, "/api/complaints", body, contentType, token)
	require.Equal(t, http.StatusInternalServerError, w.Code, w.Body.String())

	require.Len(t, tracked.saved, 1)
	assert.Equal(t, tracked.saved, tracked.deleted)
	_, _, err := tracked.Open(context.Background(), tracked.saved[0])
	assert.ErrorIs(t, err, photos.ErrNotFound)
}

func TestSubmitComplaintValidation(t *testing.T) {
	env := newTestEnv(t, ai.Static())
	citizen := env.token(t, 5, auth.RoleCitizen)
	valid := map[string]string{"type": scoring.CategoryGarbage, "description": "Bins", "location": "Market"}

	cases := []struct {
		name   string
		fields map[string]string
		photo  []byte
		token  string
		status int
	}{
		{name: "missing photo", fields: valid, token: citizen, status: http.StatusBadRequest},
		{name: "unknown type", fields: map[string]string{"type": "Potholes", "description": "x", "location": "y"}, photo: pngBytes(t), token: citizen, status: http.StatusBadRequest},
		{name: "missing location", fields: map[string]string{"type": scoring.CategoryGarbage, "description": "x"}, photo: pngBytes(t), token: citizen, status: http.StatusBadRequest},
		{name: "bad latitude", fields: map[string]string{"type": scoring.CategoryGarbage, "description": "x", "location": "y", "latitude": "200"}, photo: pngBytes(t), token: citizen, status: http.StatusBadRequest},
		{name: "not an image", fields: valid, photo: []byte("plain text, not a photo"), token: citizen, status: http.StatusUnsupportedMediaType},
		{name: "officer cannot file", fields: valid, photo: pngBytes(t), token: env.token(t, 5, auth.RoleOfficer), status: http.StatusForbidden},
		{name: "anonymous", fields: valid, photo: pngBytes(t), status: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, contentType := complaintForm(t, tc.fields, tc.photo)
			w := env.do(t, http.MethodPost, "/api/complaints", body, contentType, tc.token)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
		})
	}
}

func TestComplaintVisibility(t *testing.T) {
	env := newTestEnv(t, ai.Static())
	sanitation := env.department(t, "Sanitation", scoring.CategoryGarbage)
	roads := env.department(t, "Roads", scoring.CategoryRoadDamage)
	officer := env.activeOfficer(t, "roads@city.gov", roads.ID)

	complaint := &store.Complaint{Reference: "CMP-V1", CitizenID: 21, Category: scoring.CategoryGarbage, DepartmentID: &sanitation.ID}
	require.NoError(t, env.server.db.CreateComplaint(complaint))
	path := "/api/complaints/" + jsonID(complaint.ID)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, path, nil, "", env.token(t, 21, auth.RoleCitizen)).Code)
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, path, nil, "", env.token(t, 22, auth.RoleCitizen)).Code)
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, path, nil, "", env.token(t, officer.ID, auth.RoleOfficer)).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, path, nil, "", env.token(t, 1, auth.RoleAdmin)).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/complaints/999", nil, "", env.token(t, 1, auth.RoleAdmin)).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/complaints/0", nil, "", env.token(t, 1, auth.RoleAdmin)).Code)
}

func TestOfficerRegistrationAndQueue(t *testing.T) {
	env := newTestEnv(t, ai.Static())
	dept := env.department(t, "Sanitation", scoring.CategoryGarbage)
	other := env.department(t, "Roads", scoring.CategoryRoadDamage)

	w := env.doJSON(t, http.MethodPost, "/api/auth/officer/register", gin.H{
		"name": "Ravi", "email": "ravi@city.gov", "phone": "555-2000", "password": "secret1", "department_id": dept.ID,
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	registered := decode[AuthResponse](t, w)
	assert.Empty(t, registered.Token)
	assert.Equal(t, store.OfficerPending, registered.User.Status)

	login := gin.H{"email": "ravi@city.gov", "password": "secret1"}
	assert.Equal(t, http.StatusForbidden, env.doJSON(t, http.MethodPost, "/api/auth/officer/login", login, "").Code)

	admin := env.token(t, 1, auth.RoleAdmin)
	path := "/api/admin/officers/" + jsonID(registered.User.ID) + "/approve"
	require.Equal(t, http.StatusOK, env.doJSON(t, http.MethodPut, path, nil, admin).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, env.doJSON(t, http.MethodPut, path, nil, admin).Code)

	w = env.doJSON(t, http.MethodPost, "/api/auth/officer/login", login, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	token := decode[AuthResponse](t, w).Token

	for i, score := range []int{40, 85, 60} {
		c := &store.Complaint{Reference: "CMP-Q" + jsonID(uint(i)), Category: scoring.CategoryGarbage, DepartmentID: &dept.ID, PriorityScore: score}
		require.NoError(t, env.server.db.CreateComplaint(c))
	}
	foreign := &store.Complaint{Reference: "CMP-R1", Category: scoring.CategoryRoadDamage, DepartmentID: &other.ID, PriorityScore: 99}
	require.NoError(t, env.server.db.CreateComplaint(foreign))

	w = env.do(t, http.MethodGet, "/api/complaints", nil, "", token)
	require.Equal(t, http.StatusOK, w.Code)
	queue := decode[ComplaintsResponse](t, w)
	require.Len(t, queue.Items, 3)
	assert.Equal(t, int64(3), queue.Total)
	assert.Equal(t, 85, queue.Items[0].PriorityScore)
	assert.Equal(t, 60, queue.Items[1].PriorityScore)
	assert.Equal(t, 40, queue.Items[2].PriorityScore)

	target := queue.Items[0].ID
	w = env.doJSON(t, http.MethodPut, "/api/complaints/"+jsonID(target)+"/status", gin.H{"status": "in_progress"}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[ComplaintDTO](t, w)
	assert.Equal(t, store.StatusInProgress, updated.Status)
	require.NotNil(t, updated.OfficerID)
	assert.Equal(t, registered.User.ID, *updated.OfficerID)
	assert.Equal(t, EventUpdated, env.server.notifier.LastEvent().Type)

	w = env.doJSON(t, http.MethodPut, "/api/complaints/"+jsonID(target)+"/status", gin.H{"status": "closed"}, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.doJSON(t, http.MethodPut, "/api/complaints/"+jsonID(foreign.ID)+"/status", gin.H{"status": "resolved"}, token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	revoke := "/api/admin/officers/" + jsonID(registered.User.ID) + "/revoke"
	require.Equal(t, http.StatusOK, env.doJSON(t, http.MethodPut, revoke, nil, admin).Code)
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, "/api/complaints", nil, "", token).Code)
}

func TestAdminDepartmentConflicts(t *testing.T) {
	env := newTestEnv(t, ai.Static())
	env.department(t, "Sanitation", scoring.CategoryGarbage)
	admin := env.token(t, 1, auth.RoleAdmin)

	w := env.doJSON(t, http.MethodPost, "/api/admin/departments", gin.H{"name": "Waste", "categories": []string{scoring.CategoryGarbage}}, admin)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Sanitation")

	w = env.doJSON(t, http.MethodPost, "/api/admin/departments", gin.H{"name": "Waste", "categories": []string{"Potholes"}}, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.doJSON(t, http.MethodPost, "/api/admin/departments", gin.H{"name": "Drains", "categories": []string{scoring.CategoryDrainage}}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[DepartmentDTO](t, w)
	assert.True(t, created.Active)

	w = env.doJSON(t, http.MethodPost, "/api/admin/departments", gin.H{"name": "drains"}, admin)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.doJSON(t, http.MethodPost, "/api/admin/departments", gin.H{"name": "Other"}, env.token(t, 1, auth.RoleCitizen))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/api/departments/mapping", nil, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var mapping struct {
		Items []MappingDTO `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mapping))
	routed := map[string]*uint{}
	for _, item := range mapping.Items {
		routed[item.Category] = item.DepartmentID
	}
	require.NotNil(t, routed[scoring.CategoryDrainage])
	assert.Equal(t, created.ID, *routed[scoring.CategoryDrainage])
	assert.Nil(t, routed[scoring.CategoryStreetLight])

	path := "/api/admin/departments/" + jsonID(created.ID)
	w = env.doJSON(t, http.MethodDelete, path, nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[DepartmentDTO](t, w).Active)
}

func TestAdminConcurrentDepartmentsClaimCategoryOnce(t *testing.T) {
	env := newTestEnv(t, ai.Static())
	admin := env.token(t, 1, auth.RoleAdmin)

	const writers = 8
	codes := make(chan int, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := gin.H{"name": fmt.Sprintf("Lights %d", i), "categories": []string{scoring.CategoryStreetLight}}
			codes <- env.doJSON(t, http.MethodPost, "/api/admin/departments", payload, admin).Code
		}(i)
	}
	wg.Wait()
	close(codes)

	counts := map[int]int{}
	for code := range codes {
		counts[code]++
	}
	assert.Equal(t, 1, counts[http.StatusCreated])
	assert.Equal(t, writers-1, counts[http.StatusConflict])
}

func TestAdminReassignComplaint(t *testing.T) {
	env := newTestEnv(t, ai.Static())
	roads := env.department(t, "Roads", scoring.CategoryRoadDamage)
	complaint := &store.Complaint{Reference: "CMP-A1", Category: scoring.CategoryStreetLight}
	require.NoError(t, env.server.db.CreateComplaint(complaint))
	admin := env.token(t, 1, auth.RoleAdmin)

	w := env.do(t, http.MethodGet, "/api/admin/complaints?department_id=unassigned", nil, "", admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1), decode[ComplaintsResponse](t, w).Total)

	path := "/api/admin/complaints/" + jsonID(complaint.ID) + "/department"
	w = env.doJSON(t, http.MethodPut, path, gin.H{"department_id": roads.ID}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	moved := decode[ComplaintDTO](t, w)
	require.NotNil(t, moved.DepartmentID)
	assert.Equal(t, roads.ID, *moved.DepartmentID)
	assert.Equal(t, EventReassigned, env.server.notifier.LastEvent().Type)

	w = env.doJSON(t, http.MethodPut, path, gin.H{"department_id": 404}, admin)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/admin/stats/overview", nil, "", admin)
	require.Equal(t, http.StatusOK, w.Code)
	overview := decode[store.Overview](t, w)
	assert.Equal(t, int64(1), overview.Complaints)
	assert.Equal(t, int64(0), overview.Unassigned)
}

func TestDateRange(t *testing.T) {
	cases := []struct {
		query   string
		wantErr bool
	}{
		{query: ""},
		{query: "from=2024-01-01&to=2024-01-31"},
		{query: "from=2024-01-01T00:00:00Z"},
		{query: "from=yesterday", wantErr: true},
		{query: "from=2024-02-01&to=2024-01-01", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/stats?"+tc.query, nil)
			window, err := dateRange(c)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if strings.Contains(tc.query, "to=2024-01-31") {
				assert.Equal(t, 23, window.To.Hour())
			}
		})
	}
}

func jsonID(id uint) string {
	raw, _ := json.Marshal(id)
	return string(raw)
}

func TestNewReference(t *testing.T) {
	received := time.Date(2024, 3, 9, 23, 59, 0, 0, time.UTC)
	ref := newReference(received)
	assert.True(t, strings.HasPrefix(ref, "CMP-20240309-"), ref)
	assert.Len(t, ref, len("CMP-20240309-")+8)
	assert.NotEqual(t, ref, newReference(received))
}
