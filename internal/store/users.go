package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ErrInvalidState reports a lifecycle transition that is not allowed from the
// record's current state.
var ErrInvalidState = errors.New("invalid state")

// OfficerQuery filters the officer listing.
type OfficerQuery struct {
	Status       string
	DepartmentID uint
	Search       string
	Limit        int
}

// OfficerWorkload summarises complaints attached to an officer.
type OfficerWorkload struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"in_progress"`
	Resolved   int64 `json:"resolved"`
}

// CreateCitizen inserts a citizen; the phone number must be unused.
func (d *Database) CreateCitizen(citizen *Citizen) error {
	if citizen == nil {
		return errors.New("citizen is nil")
	}
	citizen.Phone = strings.TrimSpace(citizen.Phone)
	d.mu.Lock()
	defer d.mu.Unlock()
	var count int64
	if err := d.gorm.Model(&Citizen{}).Where("phone = ?", citizen.Phone).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return conflictf("an account with this phone already exists")
	}
	citizen.Active = true
	return d.gorm.Create(citizen).Error
}

// FindCitizenByPhone looks a citizen up by phone number.
func (d *Database) FindCitizenByPhone(phone string) (*Citizen, error) {
	var citizen Citizen
	if err := d.gorm.Where("phone = ?", strings.TrimSpace(phone)).First(&citizen).Error; err != nil {
		return nil, err
	}
	return &citizen, nil
}

// GetCitizen retrieves a citizen by ID.
func (d *Database) GetCitizen(id uint) (*Citizen, error) {
	var citizen Citizen
	if err := d.gorm.First(&citizen, id).Error; err != nil {
		return nil, err
	}
	return &citizen, nil
}

// CountCitizens returns the number of registered citizens.
func (d *Database) CountCitizens() (int64, error) {
	var count int64
	err := d.gorm.Model(&Citizen{}).Count(&count).Error
	return count, err
}

// CreateAdmin inserts an admin; the email must be unused.
func (d *Database) CreateAdmin(admin *Admin) error {
	if admin == nil {
		return errors.New("admin is nil")
	}
	admin.Email = normalizeEmail(admin.Email)
	d.mu.Lock()
	defer d.mu.Unlock()
	var count int64
	if err := d.gorm.Model(&Admin{}).Where("email = ?", admin.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return conflictf("admin %s already exists", admin.Email)
	}
	admin.Active = true
	return d.gorm.Create(admin).Error
}

// FindAdminByEmail looks an admin up by email address.
func (d *Database) FindAdminByEmail(email string) (*Admin, error) {
	var admin Admin
	if err := d.gorm.Where("email = ?", normalizeEmail(email)).First(&admin).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}

// GetAdmin retrieves an admin by ID.
func (d *Database) GetAdmin(id uint) (*Admin, error) {
	var admin Admin
	if err := d.gorm.First(&admin, id).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}

// CreateOfficer registers an officer in pending state. Email and phone must be
// unused and the department must be active.
func (d *Database) CreateOfficer(officer *Officer) error {
	if officer == nil {
		return errors.New("officer is nil")
	}
	officer.Email = normalizeEmail(officer.Email)
	officer.Phone = strings.TrimSpace(officer.Phone)
	d.mu.Lock()
	defer d.mu.Unlock()
	var count int64
	if err := d.gorm.Model(&Officer{}).
		Where("email = ? OR phone = ?", officer.Email, officer.Phone).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return conflictf("an account with this email or phone already exists")
	}
	var dept Department
	if err := d.gorm.First(&dept, officer.DepartmentID).Error; err != nil {
		return fmt.Errorf("department %d: %w", officer.DepartmentID, err)
	}
	if !dept.Active {
		return fmt.Errorf("%w: department %s is inactive", ErrInvalidState, dept.Name)
	}
	officer.Status = OfficerPending
	return d.gorm.Create(officer).Error
}

// FindOfficerByEmail looks an officer up by email address.
func (d *Database) FindOfficerByEmail(email string) (*Officer, error) {
	var officer Officer
	if err := d.gorm.Where("email = ?", normalizeEmail(email)).First(&officer).Error; err != nil {
		return nil, err
	}
	return &officer, nil
}

// GetOfficer retrieves an officer by ID.
func (d *Database) GetOfficer(id uint) (*Officer, error) {
	var officer Officer
	if err := d.gorm.First(&officer, id).Error; err != nil {
		return nil, err
	}
	return &officer, nil
}

// ListOfficers returns officers matching the query, newest first.
func (d *Database) ListOfficers(opts OfficerQuery) ([]Officer, error) {
	query := d.gorm.Model(&Officer{})
	if status := strings.TrimSpace(opts.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if opts.DepartmentID > 0 {
		query = query.Where("department_id = ?", opts.DepartmentID)
	}
	if search := strings.TrimSpace(opts.Search); search != "" {
		like := fmt.Sprintf("%%%s%%", strings.ToLower(search))
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?", like, like, like)
	}
	query = query.Order("created_at DESC, id DESC")
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	var rows []Officer
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountOfficers counts officers in the given status.
func (d *Database) CountOfficers(status string) (int64, error) {
	var count int64
	err := d.gorm.Model(&Officer{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

// Officer lifecycle actions.
const (
	OfficerApprove  = "approve"
	OfficerReject   = "reject"
	OfficerRevoke   = "revoke"
	OfficerActivate = "activate"
)

// TransitionOfficer applies a lifecycle action on behalf of an admin.
func (d *Database) TransitionOfficer(id uint, action string, adminID uint) (*Officer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var officer Officer
	if err := d.gorm.First(&officer, id).Error; err != nil {
		return nil, err
	}

	updates := map[string]any{}
	switch action {
	case OfficerApprove:
		if officer.Status == OfficerActive {
			return nil, fmt.Errorf("%w: officer is already approved", ErrInvalidState)
		}
		now := time.Now()
		updates["status"] = OfficerActive
		updates["approved_by"] = adminID
		updates["approved_at"] = &now
	case OfficerReject:
		if officer.Status == OfficerRejected {
			return nil, fmt.Errorf("%w: officer is already rejected", ErrInvalidState)
		}
		updates["status"] = OfficerRejected
	case OfficerRevoke:
		if officer.Status != OfficerActive {
			return nil, fmt.Errorf("%w: can only revoke access for active officers", ErrInvalidState)
		}
		updates["status"] = OfficerInactive
	case OfficerActivate:
		if officer.Status == OfficerActive {
			return nil, fmt.Errorf("%w: officer is already active", ErrInvalidState)
		}
		updates["status"] = OfficerActive
	default:
		return nil, fmt.Errorf("%w: unknown officer action %q", ErrInvalidState, action)
	}

	if err := d.gorm.Model(&officer).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := d.gorm.First(&officer, id).Error; err != nil {
		return nil, err
	}
	return &officer, nil
}

// MoveOfficer reassigns an officer to another active department.
func (d *Database) MoveOfficer(id, departmentID uint) (*Officer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var dept Department
	if err := d.gorm.First(&dept, departmentID).Error; err != nil {
		return nil, fmt.Errorf("department %d: %w", departmentID, err)
	}
	if !dept.Active {
		return nil, fmt.Errorf("%w: cannot assign to inactive department", ErrInvalidState)
	}
	var officer Officer
	if err := d.gorm.First(&officer, id).Error; err != nil {
		return nil, err
	}
	if err := d.gorm.Model(&officer).Update("department_id", departmentID).Error; err != nil {
		return nil, err
	}
	officer.DepartmentID = departmentID
	return &officer, nil
}

// DeleteOfficer removes an officer who has no open complaints.
func (d *Database) DeleteOfficer(id uint) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Transaction(func(tx *gorm.DB) error {
		var officer Officer
		if err := tx.First(&officer, id).Error; err != nil {
			return err
		}
		var open int64
		if err := tx.Model(&Complaint{}).
			Where("officer_id = ? AND status IN ?", id, []string{StatusPending, StatusInProgress}).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return conflictf("cannot delete officer with %d open complaints; reassign them first", open)
		}
		return tx.Delete(&officer).Error
	})
}

// OfficerWorkload counts complaints an officer has taken, by status.
func (d *Database) OfficerWorkload(id uint) (OfficerWorkload, error) {
	var rows []LabelCount
	if err := d.gorm.Model(&Complaint{}).
		Select("status AS label, COUNT(*) AS count").
		Where("officer_id = ?", id).
		Group("status").
		Scan(&rows).Error; err != nil {
		return OfficerWorkload{}, err
	}
	var out OfficerWorkload
	for _, row := range rows {
		out.Total += row.Count
		switch row.Label {
		case StatusPending:
			out.Pending = row.Count
		case StatusInProgress:
			out.InProgress = row.Count
		case StatusResolved:
			out.Resolved = row.Count
		}
	}
	return out, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
