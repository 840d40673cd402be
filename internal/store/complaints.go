package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ComplaintQuery encapsulates filters and pagination for listing complaints.
type ComplaintQuery struct {
	CitizenID     uint
	DepartmentID  uint
	OfficerID     uint
	Unassigned    bool
	Status        string
	PriorityLevel string
	Category      string
	Sort          string
	Offset        int
	Limit         int
}

// CreateComplaint inserts a complaint row.
func (d *Database) CreateComplaint(complaint *Complaint) error {
	if complaint == nil {
		return errors.New("complaint is nil")
	}
	if complaint.Status == "" {
		complaint.Status = StatusPending
	}
	if complaint.DepartmentID != nil && complaint.AssignedAt == nil {
		now := time.Now()
		complaint.AssignedAt = &now
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Create(complaint).Error
}

// GetComplaint retrieves a complaint by ID.
func (d *Database) GetComplaint(id uint) (*Complaint, error) {
	var complaint Complaint
	if err := d.gorm.First(&complaint, id).Error; err != nil {
		return nil, err
	}
	return &complaint, nil
}

// ListComplaints returns paginated complaints applying optional filters.
func (d *Database) ListComplaints(opts ComplaintQuery) ([]Complaint, int64, error) {
	base := d.gorm.Model(&Complaint{})
	if opts.CitizenID > 0 {
		base = base.Where("citizen_id = ?", opts.CitizenID)
	}
	if opts.DepartmentID > 0 {
		base = base.Where("department_id = ?", opts.DepartmentID)
	}
	if opts.OfficerID > 0 {
		base = base.Where("officer_id = ?", opts.OfficerID)
	}
	if opts.Unassigned {
		base = base.Where("department_id IS NULL")
	}
	if status := strings.TrimSpace(opts.Status); status != "" {
		base = base.Where("status = ?", status)
	}
	if level := strings.TrimSpace(opts.PriorityLevel); level != "" {
		base = base.Where("priority_level = ?", strings.ToLower(level))
	}
	if category := strings.TrimSpace(opts.Category); category != "" {
		base = base.Where("category = ?", category)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := base.Order(orderForSort(opts.Sort)).Offset(opts.Offset)
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	var rows []Complaint
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func orderForSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "priority_desc":
		return "complaints.priority_score DESC, complaints.created_at ASC, complaints.id ASC"
	case "priority_asc":
		return "complaints.priority_score ASC, complaints.id DESC"
	case "created_asc":
		return "complaints.created_at ASC, complaints.id ASC"
	default:
		return "complaints.created_at DESC, complaints.id DESC"
	}
}

// UpdateComplaintStatus moves a complaint through its workflow on behalf of an
// officer. The first officer to act on an unclaimed complaint takes it.
func (d *Database) UpdateComplaintStatus(id uint, status string, officerID uint) (*Complaint, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var complaint Complaint
	if err := d.gorm.First(&complaint, id).Error; err != nil {
		return nil, err
	}
	if complaint.Status == StatusRejected {
		return nil, fmt.Errorf("%w: complaint was rejected", ErrInvalidState)
	}

	now := time.Now()
	updates := map[string]any{"status": status}
	if complaint.OfficerID == nil && officerID > 0 {
		updates["officer_id"] = officerID
	}
	if status == StatusResolved {
		updates["resolved_at"] = &now
	} else {
		updates["resolved_at"] = nil
	}
	if err := d.gorm.Model(&complaint).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := d.gorm.First(&complaint, id).Error; err != nil {
		return nil, err
	}
	return &complaint, nil
}

// AssignComplaint routes a complaint to a department, clearing any officer
// claim from the previous department.
func (d *Database) AssignComplaint(id, departmentID uint) (*Complaint, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var complaint Complaint
	err := d.gorm.Transaction(func(tx *gorm.DB) error {
		var dept Department
		if err := tx.First(&dept, departmentID).Error; err != nil {
			return fmt.Errorf("department %d: %w", departmentID, err)
		}
		if !dept.Active {
			return fmt.Errorf("%w: cannot assign to inactive department", ErrInvalidState)
		}
		if err := tx.First(&complaint, id).Error; err != nil {
			return err
		}
		now := time.Now()
		return tx.Model(&complaint).Updates(map[string]any{
			"department_id": departmentID,
			"officer_id":    nil,
			"assigned_at":   &now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	if err := d.gorm.First(&complaint, id).Error; err != nil {
		return nil, err
	}
	return &complaint, nil
}
