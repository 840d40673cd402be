package store

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

// DepartmentGuard inspects the active departments before a department write
// and refuses the write by returning an error. Guards run under the store lock.
type DepartmentGuard func(active []Department) error

// DepartmentSummary pairs a department with its officer and complaint counts.
type DepartmentSummary struct {
	Department
	OfficerCount   int64
	ComplaintCount int64
}

// ActiveDepartments returns every active department ordered by creation
// time, then ID.
func (d *Database) ActiveDepartments(ctx context.Context) ([]Department, error) {
	var rows []Department
	if err := d.gorm.WithContext(ctx).
		Where("active = ?", true).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListDepartments returns all departments ordered by name with officer and
// complaint counts.
func (d *Database) ListDepartments() ([]DepartmentSummary, error) {
	var rows []Department
	if err := d.gorm.Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]DepartmentSummary, 0, len(rows))
	for _, row := range rows {
		summary := DepartmentSummary{Department: row}
		if err := d.gorm.Model(&Officer{}).
			Where("department_id = ? AND status = ?", row.ID, OfficerActive).
			Count(&summary.OfficerCount).Error; err != nil {
			return nil, err
		}
		if err := d.gorm.Model(&Complaint{}).
			Where("department_id = ?", row.ID).
			Count(&summary.ComplaintCount).Error; err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, nil
}

// GetDepartment retrieves a department by ID.
func (d *Database) GetDepartment(id uint) (*Department, error) {
	var dept Department
	if err := d.gorm.First(&dept, id).Error; err != nil {
		return nil, err
	}
	return &dept, nil
}

// FindDepartmentByName looks a department up by name, ignoring case.
func (d *Database) FindDepartmentByName(name string) (*Department, error) {
	var dept Department
	err := d.gorm.Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).First(&dept).Error
	if err != nil {
		return nil, err
	}
	return &dept, nil
}

// CreateDepartment inserts a department. Names are unique regardless of case.
func (d *Database) CreateDepartment(dept *Department, guards ...DepartmentGuard) error {
	if dept == nil {
		return errors.New("department is nil")
	}
	dept.Name = strings.TrimSpace(dept.Name)
	d.mu.Lock()
	defer d.mu.Unlock()
	if existing, err := d.FindDepartmentByName(dept.Name); err == nil {
		return conflictf("department %q already exists", existing.Name)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if err := d.runGuards(guards); err != nil {
		return err
	}
	if dept.CategoriesJSON == "" {
		dept.SetCategories(nil)
	}
	return d.gorm.Create(dept).Error
}

// SaveDepartment persists changes to an existing department.
func (d *Database) SaveDepartment(dept *Department, guards ...DepartmentGuard) error {
	if dept == nil {
		return errors.New("department is nil")
	}
	dept.Name = strings.TrimSpace(dept.Name)
	d.mu.Lock()
	defer d.mu.Unlock()
	if existing, err := d.FindDepartmentByName(dept.Name); err == nil && existing.ID != dept.ID {
		return conflictf("department %q already exists", existing.Name)
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if err := d.runGuards(guards); err != nil {
		return err
	}
	return d.gorm.Save(dept).Error
}

// runGuards must be called with d.mu held.
func (d *Database) runGuards(guards []DepartmentGuard) error {
	if len(guards) == 0 {
		return nil
	}
	active, err := d.ActiveDepartments(context.Background())
	if err != nil {
		return err
	}
	for _, guard := range guards {
		if guard == nil {
			continue
		}
		if err := guard(active); err != nil {
			return err
		}
	}
	return nil
}

// DeactivateDepartment marks a department inactive. It refuses while active
// officers still belong to it.
func (d *Database) DeactivateDepartment(id uint) (*Department, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var dept Department
	err := d.gorm.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&dept, id).Error; err != nil {
			return err
		}
		var officers int64
		if err := tx.Model(&Officer{}).
			Where("department_id = ? AND status = ?", id, OfficerActive).
			Count(&officers).Error; err != nil {
			return err
		}
		if officers > 0 {
			return conflictf("cannot deactivate department with %d active officers; reassign or deactivate them first", officers)
		}
		dept.Active = false
		return tx.Model(&dept).Update("active", false).Error
	})
	if err != nil {
		return nil, err
	}
	return &dept, nil
}

// UpsertDepartment creates the named department or refreshes its description
// and categories. Used by seeding.
func (d *Database) UpsertDepartment(name, description string, categories []string) (*Department, bool, error) {
	existing, err := d.FindDepartmentByName(name)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	if existing != nil {
		existing.Description = description
		existing.SetCategories(categories)
		existing.Active = true
		if err := d.gorm.Save(existing).Error; err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	dept := &Department{Name: name, Description: description, Active: true}
	dept.SetCategories(categories)
	if err := d.CreateDepartment(dept); err != nil {
		return nil, false, err
	}
	return dept, true, nil
}

// ClearDepartments removes every department (used by reseeding).
func (d *Database) ClearDepartments() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Department{}).Error
}
