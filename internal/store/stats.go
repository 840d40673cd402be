package store

import (
	"time"

	"gorm.io/gorm"
)

// LabelCount is a grouped count, e.g. complaints per status or category.
type LabelCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// DateRange bounds complaint creation time; zero values are open ends.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Overview holds system-wide counters for the admin dashboard.
type Overview struct {
	Citizens        int64            `json:"citizens"`
	ActiveOfficers  int64            `json:"active_officers"`
	PendingOfficers int64            `json:"pending_officers"`
	Departments     int64            `json:"departments"`
	Complaints      int64            `json:"complaints"`
	Unassigned      int64            `json:"unassigned"`
	ByStatus        map[string]int64 `json:"by_status"`
	RecentWeek      int64            `json:"recent_week"`
	ByCategory      []LabelCount     `json:"by_category"`
	ByPriority      []LabelCount     `json:"by_priority"`
}

// ComplaintStats aggregates complaints for one department or officer.
type ComplaintStats struct {
	Total              int64            `json:"total"`
	ByStatus           map[string]int64 `json:"by_status"`
	AvgResolutionHours float64          `json:"avg_resolution_hours"`
	AvgPriorityScore   float64          `json:"avg_priority_score"`
	ActiveOfficers     int64            `json:"active_officers"`
	ByPriority         []LabelCount     `json:"by_priority"`
	ByCategory         []LabelCount     `json:"by_category"`
	ComplaintsPerDay   []LabelCount     `json:"complaints_per_day"`
}

// Overview gathers the system-wide counters.
func (d *Database) Overview(now time.Time) (Overview, error) {
	var out Overview
	var err error
	if out.Citizens, err = d.CountCitizens(); err != nil {
		return out, err
	}
	if out.ActiveOfficers, err = d.CountOfficers(OfficerActive); err != nil {
		return out, err
	}
	if out.PendingOfficers, err = d.CountOfficers(OfficerPending); err != nil {
		return out, err
	}
	if err := d.gorm.Model(&Department{}).Where("active = ?", true).Count(&out.Departments).Error; err != nil {
		return out, err
	}
	if err := d.gorm.Model(&Complaint{}).Count(&out.Complaints).Error; err != nil {
		return out, err
	}
	if err := d.gorm.Model(&Complaint{}).Where("department_id IS NULL").Count(&out.Unassigned).Error; err != nil {
		return out, err
	}
	if err := d.gorm.Model(&Complaint{}).Where("created_at >= ?", now.AddDate(0, 0, -7)).Count(&out.RecentWeek).Error; err != nil {
		return out, err
	}

	base := func() *gorm.DB { return d.gorm.Model(&Complaint{}) }
	statuses, err := groupCounts(base(), "status")
	if err != nil {
		return out, err
	}
	out.ByStatus = toMap(statuses)
	if out.ByCategory, err = groupCounts(base(), "category"); err != nil {
		return out, err
	}
	if out.ByPriority, err = groupCounts(base(), "priority_level"); err != nil {
		return out, err
	}
	return out, nil
}

// DepartmentStats aggregates complaints routed to a department.
func (d *Database) DepartmentStats(departmentID uint, window DateRange, now time.Time) (ComplaintStats, error) {
	scope := func() *gorm.DB {
		return withRange(d.gorm.Model(&Complaint{}).Where("department_id = ?", departmentID), window)
	}
	out, err := d.complaintStats(scope, now)
	if err != nil {
		return out, err
	}
	err = d.gorm.Model(&Officer{}).
		Where("department_id = ? AND status = ?", departmentID, OfficerActive).
		Count(&out.ActiveOfficers).Error
	return out, err
}

// OfficerStats aggregates complaints an officer has taken.
func (d *Database) OfficerStats(officerID uint, window DateRange, now time.Time) (ComplaintStats, error) {
	scope := func() *gorm.DB {
		return withRange(d.gorm.Model(&Complaint{}).Where("officer_id = ?", officerID), window)
	}
	return d.complaintStats(scope, now)
}

func (d *Database) complaintStats(scope func() *gorm.DB, now time.Time) (ComplaintStats, error) {
	var out ComplaintStats
	if err := scope().Count(&out.Total).Error; err != nil {
		return out, err
	}
	statuses, err := groupCounts(scope(), "status")
	if err != nil {
		return out, err
	}
	out.ByStatus = toMap(statuses)
	if out.ByPriority, err = groupCounts(scope(), "priority_level"); err != nil {
		return out, err
	}
	if out.ByCategory, err = groupCounts(scope(), "category"); err != nil {
		return out, err
	}

	var avgScore struct{ Value *float64 }
	if err := scope().Select("AVG(priority_score) AS value").Scan(&avgScore).Error; err != nil {
		return out, err
	}
	if avgScore.Value != nil {
		out.AvgPriorityScore = *avgScore.Value
	}

	var resolved []Complaint
	if err := scope().
		Select("created_at", "resolved_at").
		Where("status = ? AND resolved_at IS NOT NULL", StatusResolved).
		Find(&resolved).Error; err != nil {
		return out, err
	}
	out.AvgResolutionHours = averageResolutionHours(resolved)

	var perDay []LabelCount
	if err := scope().
		Select("strftime('%Y-%m-%d', created_at) AS label, COUNT(*) AS count").
		Where("created_at >= ?", now.AddDate(0, 0, -30)).
		Group("label").
		Order("label ASC").
		Scan(&perDay).Error; err != nil {
		return out, err
	}
	out.ComplaintsPerDay = perDay
	return out, nil
}

func averageResolutionHours(rows []Complaint) float64 {
	if len(rows) == 0 {
		return 0
	}
	var total time.Duration
	for _, row := range rows {
		if row.ResolvedAt == nil {
			continue
		}
		total += row.ResolvedAt.Sub(row.CreatedAt)
	}
	return total.Hours() / float64(len(rows))
}

func withRange(query *gorm.DB, window DateRange) *gorm.DB {
	if !window.From.IsZero() {
		query = query.Where("created_at >= ?", window.From)
	}
	if !window.To.IsZero() {
		query = query.Where("created_at <= ?", window.To)
	}
	return query
}

func groupCounts(query *gorm.DB, column string) ([]LabelCount, error) {
	var rows []LabelCount
	if err := query.
		Select(column + " AS label, COUNT(*) AS count").
		Group(column).
		Order("count DESC, label ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func toMap(rows []LabelCount) map[string]int64 {
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Label] = row.Count
	}
	return out
}
