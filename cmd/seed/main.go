// Command seed loads the default departments and creates the first admin
// account.
package main

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"civic-complaints/internal/auth"
	"civic-complaints/internal/scoring"
	"civic-complaints/internal/store"
)

type departmentSeed struct {
	Name        string
	Description string
	Categories  []string
}

var defaultDepartments = []departmentSeed{
	{
		Name:        "Sanitation Department",
		Description: "Garbage collection, waste management and street cleanliness",
		Categories:  []string{scoring.CategoryGarbage},
	},
	{
		Name:        "Roads & Infrastructure Department",
		Description: "Road maintenance, repairs and infrastructure works",
		Categories:  []string{scoring.CategoryRoadDamage},
	},
	{
		Name:        "Water Supply Department",
		Description: "Water supply, distribution and leakage repairs",
		Categories:  []string{scoring.CategoryWaterLeakage},
	},
	{
		Name:        "Electrical Department",
		Description: "Street lights and electrical infrastructure",
		Categories:  []string{scoring.CategoryStreetLight},
	},
	{
		Name:        "Drainage & Sewerage Department",
		Description: "Drainage, sewerage and flood prevention",
		Categories:  []string{scoring.CategoryDrainage},
	},
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warn("ignoring unreadable .env file")
	}

	var (
		dbPath        = flag.String("db", envOr("CIVIC_DB_PATH", filepath.FromSlash("data/civic.db")), "Path to SQLite database")
		reset         = flag.Bool("reset", false, "Remove existing departments before seeding")
		skipDepts     = flag.Bool("skip-departments", false, "Do not seed departments")
		adminEmail    = flag.String("admin-email", os.Getenv("SEED_ADMIN_EMAIL"), "Email for the initial admin (env SEED_ADMIN_EMAIL)")
		adminPassword = flag.String("admin-password", os.Getenv("SEED_ADMIN_PASSWORD"), "Password for the initial admin (env SEED_ADMIN_PASSWORD)")
		adminName     = flag.String("admin-name", envOr("SEED_ADMIN_NAME", "Municipal Administrator"), "Display name for the initial admin")
		adminPhone    = flag.String("admin-phone", os.Getenv("SEED_ADMIN_PHONE"), "Phone number for the initial admin")
	)
	flag.Parse()

	if dir := filepath.Dir(*dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logrus.Fatalf("create data directory: %v", err)
		}
	}
	db, err := store.Open(*dbPath, true)
	if err != nil {
		logrus.Fatalf("open database: %v", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("close database")
		}
	}()

	if !*skipDepts {
		if *reset {
			if err := db.ClearDepartments(); err != nil {
				logrus.Fatalf("clear departments: %v", err)
			}
			logrus.Info("cleared existing departments")
		}
		if err := seedDepartments(db); err != nil {
			logrus.Fatalf("seed departments: %v", err)
		}
	}

	if strings.TrimSpace(*adminEmail) == "" {
		logrus.Info("no admin email given; skipping admin account")
		return
	}
	if err := ensureAdmin(db, *adminName, *adminEmail, *adminPhone, *adminPassword); err != nil {
		logrus.Fatalf("create admin: %v", err)
	}
}

func seedDepartments(db *store.Database) error {
	for _, seed := range defaultDepartments {
		dept, created, err := db.UpsertDepartment(seed.Name, seed.Description, seed.Categories)
		if err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"id":         dept.ID,
			"categories": dept.Categories(),
			"created":    created,
		}).Infof("department %s", dept.Name)
	}
	return nil
}

// ensureAdmin creates the admin unless one with that email already exists.
func ensureAdmin(db *store.Database, name, email, phone, password string) error {
	existing, err := db.FindAdminByEmail(email)
	if err == nil {
		logrus.WithField("email", existing.Email).Info("admin account already exists")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if len(password) < 6 {
		return errors.New("admin password must be at least 6 characters (-admin-password or SEED_ADMIN_PASSWORD)")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	admin := &store.Admin{Name: strings.TrimSpace(name), Email: email, Phone: strings.TrimSpace(phone), PasswordHash: hash}
	if err := db.CreateAdmin(admin); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"id": admin.ID, "email": admin.Email}).Info("admin account created")
	return nil
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
