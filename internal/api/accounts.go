package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"civic-complaints/internal/auth"
	"civic-complaints/internal/store"
)

const minPasswordLength = 6


type citizenRegisterRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type citizenLoginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type staffRegisterRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Password     string `json:"password"`
	DepartmentID uint   `json:"department_id"`
}

type emailLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleCitizenRegister(c *gin.Context) {
	var req citizenRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Name == "" || req.Phone == "" || req.Password == "" {
		s.renderError(c, http.StatusBadRequest, errors.New("name, phone and password are required"))
		return
	}
	if len(req.Password) < minPasswordLength {
		s.renderError(c, http.StatusBadRequest, errors.New("password must be at least 6 characters"))
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	citizen := &store.Citizen{Name: req.Name, Phone: req.Phone, PasswordHash: hash}
	if err := s.db.CreateCitizen(citizen); err != nil {
		s.renderStoreError(c, err)
		return
	}
	logrus.WithField("citizen_id", citizen.ID).Info("citizen registered")
	s.respondWithToken(c, http.StatusCreated, citizen.ID, auth.RoleCitizen, citizenUser(citizen))
}

func (s *Server) handleCitizenLogin(c *gin.Context) {
	var req citizenLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Phone) == "" || req.Password == "" {
		s.renderError(c, http.StatusBadRequest, errors.New("phone and password are required"))
		return
	}
	citizen, err := s.db.FindCitizenByPhone(req.Phone)
	if err != nil {
		s.renderLoginError(c, err)
		return
	}
	if err := auth.CheckPassword(citizen.PasswordHash, req.Password); err != nil {
		s.renderError(c, http.StatusUnauthorized, auth.ErrInvalidCredentials)
		return
	}
	if !citizen.Active {
		s.renderError(c, http.StatusForbidden, errors.New("account is deactivated"))
		return
	}
	s.respondWithToken(c, http.StatusOK, citizen.ID, auth.RoleCitizen, citizenUser(citizen))
}

func (s *Server) handleOfficerRegister(c *gin.Context) {
	var req staffRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	if err := validateStaffRequest(req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	if req.DepartmentID == 0 {
		s.renderError(c, http.StatusBadRequest, errors.New("department_id is required"))
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	officer := &store.Officer{
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: hash,
		DepartmentID: req.DepartmentID,
	}
	if err := s.db.CreateOfficer(officer); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.renderError(c, http.StatusBadRequest, errors.New("invalid department"))
			return
		}
		if errors.Is(err, store.ErrInvalidState) {
			s.renderError(c, http.StatusBadRequest, err)
			return
		}
		s.renderStoreError(c, err)
		return
	}
	logrus.WithFields(logrus.Fields{
		"officer_id":    officer.ID,
		"department_id": officer.DepartmentID,
	}).Info("officer registration pending approval")
	c.JSON(http.StatusCreated, AuthResponse{
		User:    officerUser(officer),
		Message: "registration submitted; an administrator must approve the account before login",
	})
}

func (s *Server) handleOfficerLogin(c *gin.Context) {
	var req emailLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		s.renderError(c, http.StatusBadRequest, errors.New("email and password are required"))
		return
	}
	officer, err := s.db.FindOfficerByEmail(req.Email)
	if err != nil {
		s.renderLoginError(c, err)
		return
	}
	if err := auth.CheckPassword(officer.PasswordHash, req.Password); err != nil {
		s.renderError(c, http.StatusUnauthorized, auth.ErrInvalidCredentials)
		return
	}
	switch officer.Status {
	case store.OfficerActive:
	case store.OfficerPending:
		s.renderError(c, http.StatusForbidden, errors.New("account is pending admin approval"))
		return
	case store.OfficerRejected:
		s.renderError(c, http.StatusForbidden, errors.New("registration was rejected"))
		return
	default:
		s.renderError(c, http.StatusForbidden, errors.New("account access has been revoked"))
		return
	}
	s.respondWithToken(c, http.StatusOK, officer.ID, auth.RoleOfficer, officerUser(officer))
}

func (s *Server) handleAdminLogin(c *gin.Context) {
	var req emailLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		s.renderError(c, http.StatusBadRequest, errors.New("email and password are required"))
		return
	}
	admin, err := s.db.FindAdminByEmail(req.Email)
	if err != nil {
		s.renderLoginError(c, err)
		return
	}
	if err := auth.CheckPassword(admin.PasswordHash, req.Password); err != nil {
		s.renderError(c, http.StatusUnauthorized, auth.ErrInvalidCredentials)
		return
	}
	if !admin.Active {
		s.renderError(c, http.StatusForbidden, errors.New("account is deactivated"))
		return
	}
	s.respondWithToken(c, http.StatusOK, admin.ID, auth.RoleAdmin, adminUser(admin))
}

func (s *Server) handleAdminProfile(c *gin.Context) {
	admin, err := s.db.GetAdmin(auth.UserID(c))
	if err != nil {
		s.renderStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": adminUser(admin)})
}

func (s *Server) handleAdminRegister(c *gin.Context) {
	var req staffRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	if err := validateStaffRequest(req); err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	admin := &store.Admin{Name: strings.TrimSpace(req.Name), Email: req.Email, Phone: strings.TrimSpace(req.Phone), PasswordHash: hash}
	if err := s.db.CreateAdmin(admin); err != nil {
		s.renderStoreError(c, err)
		return
	}
	logrus.WithFields(logrus.Fields{
		"admin_id":   admin.ID,
		"created_by": auth.UserID(c),
	}).Info("admin account created")
	c.JSON(http.StatusCreated, gin.H{"user": adminUser(admin)})
}

func (s *Server) respondWithToken(c *gin.Context, status int, userID uint, role string, user UserDTO) {
	token, expires, err := s.issuer.Issue(userID, role)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(status, AuthResponse{Token: token, ExpiresAt: &expires, User: user})
}

// renderLoginError hides whether the account exists.
func (s *Server) renderLoginError(c *gin.Context, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.renderError(c, http.StatusUnauthorized, auth.ErrInvalidCredentials)
		return
	}
	s.renderStoreError(c, err)
}

func validateStaffRequest(req staffRegisterRequest) error {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" ||
		strings.TrimSpace(req.Phone) == "" || req.Password == "" {
		return errors.New("name, email, phone and password are required")
	}
	if !strings.Contains(req.Email, "@") {
		return errors.New("email is invalid")
	}
	if len(req.Password) < minPasswordLength {
		return errors.New("password must be at least 6 characters")
	}
	return nil
}

func citizenUser(c *store.Citizen) UserDTO {
	return UserDTO{ID: c.ID, Name: c.Name, Role: auth.RoleCitizen, Phone: c.Phone}
}

func officerUser(o *store.Officer) UserDTO {
	return UserDTO{
		ID:           o.ID,
		Name:         o.Name,
		Role:         auth.RoleOfficer,
		Phone:        o.Phone,
		Email:        o.Email,
		DepartmentID: o.DepartmentID,
		Status:       o.Status,
	}
}

func adminUser(a *store.Admin) UserDTO {
	return UserDTO{ID: a.ID, Name: a.Name, Role: auth.RoleAdmin, Phone: a.Phone, Email: a.Email}
}
