package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"qbank/config"
	"qbank/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// InitDB opens the configured database and migrates the schema.
// The default driver is sqlite with a local file, postgres is available
// for deployments that need it.
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)
		dialector = postgres.Open(dsn)
	case "sqlite":
		if dir := filepath.Dir(cfg.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		dialector = sqlite.Open(cfg.DBPath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := MigrateDB(db); err != nil {
		return nil, err
	}
	return db, nil
}

// MigrateDB runs schema migrations for every model.
func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Topic{},
		&models.Question{},
		&models.Exam{},
		&models.ExamRule{},
		&models.ExamSubmission{},
		&models.ExamQuestion{},
		&models.ExamAnswer{},
		&models.PracticeSession{},
		&models.PracticeAnswer{},
		&models.WrongQuestion{},
	)
}

// SeedDemoUsers creates one account per role when the users table is empty.
// Production environments are never seeded.
func SeedDemoUsers(db *gorm.DB, cfg *config.Config) error {
	if cfg.AppEnv == "production" {
		return nil
	}

	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("123456"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	users := []models.User{
		{Username: "admin", Email: "admin@example.com", PasswordHash: string(hash), Role: models.RoleAdmin},
		{Username: "teacher", Email: "teacher@example.com", PasswordHash: string(hash), Role: models.RoleTeacher},
		{Username: "student", Email: "student@example.com", PasswordHash: string(hash), Role: models.RoleStudent},
	}
	return db.Create(&users).Error
}
