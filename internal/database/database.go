package database

import (
	"context"
	"fmt"
	"time"

	"github.com/mautops/formflow-gin/internal/config"
	"github.com/mautops/formflow-gin/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// BuildDSN 构建 PostgreSQL DSN
func BuildDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// Connect 连接数据库
// driver 为 sqlite 时走本地文件,其余情况使用 PostgreSQL
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if cfg.Driver == "sqlite" {
		dialector = sqlite.Open(cfg.SQLitePath)
	} else {
		dialector = postgres.Open(BuildDSN(cfg))
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	maxIdle := cfg.MaxIdleConns
	if maxIdle == 0 {
		maxIdle = 10
	}
	maxOpen := cfg.MaxOpenConns
	if maxOpen == 0 {
		maxOpen = 100
	}
	lifetime := cfg.ConnMaxLifetime
	if lifetime == 0 {
		lifetime = 3600
	}
	idleTime := cfg.ConnMaxIdleTime
	if idleTime == 0 {
		idleTime = 600
	}

	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetConnMaxLifetime(time.Duration(lifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(idleTime) * time.Second)

	return db, nil
}

// ConnectWithRetry 带重试的数据库连接,指数退避
func ConnectWithRetry(cfg config.DatabaseConfig, maxRetries int, retryInterval time.Duration) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	for i := 0; i < maxRetries; i++ {
		db, err = Connect(cfg)
		if err == nil {
			return db, nil
		}
		if i < maxRetries-1 {
			time.Sleep(retryInterval)
			retryInterval *= 2
		}
	}

	return nil, fmt.Errorf("failed to connect database after %d retries: %w", maxRetries, err)
}

// Migrate 执行数据库迁移
func Migrate(db *gorm.DB) error {
	dialector := db.Dialector.Name()

	// SQLite 不支持 jsonb,需要手动建表
	if dialector == "sqlite" || dialector == "sqlite3" {
		if err := createSQLiteTables(db); err != nil {
			return fmt.Errorf("failed to create SQLite tables: %w", err)
		}
	} else {
		if err := db.AutoMigrate(
			&model.FormModel{},
			&model.UserModel{},
			&model.SubmissionModel{},
			&model.SubmissionHistoryModel{},
		); err != nil {
			return fmt.Errorf("failed to auto migrate: %w", err)
		}
	}

	if err := CreateIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// createSQLiteTables 为 SQLite 手动创建表,使用 TEXT 替代 jsonb
func createSQLiteTables(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS forms (
			id VARCHAR(64) PRIMARY KEY,
			original_form_id VARCHAR(64),
			name VARCHAR(255) NOT NULL,
			schema TEXT NOT NULL,
			roles_allowed VARCHAR(255),
			version VARCHAR(32) NOT NULL DEFAULT '1.0',
			is_latest BOOLEAN NOT NULL DEFAULT 1,
			deleted BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create forms table: %w", err)
	}

	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL,
			role VARCHAR(32) NOT NULL,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}

	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS submissions (
			id VARCHAR(64) PRIMARY KEY,
			form_id VARCHAR(64) NOT NULL,
			form_version_id VARCHAR(64),
			user_id VARCHAR(64) NOT NULL,
			data TEXT NOT NULL,
			status VARCHAR(32) NOT NULL,
			version INTEGER NOT NULL DEFAULT 1,
			deleted BOOLEAN NOT NULL DEFAULT 0,
			deleted_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			submitted_at DATETIME,
			approved_at DATETIME,
			reviewer_id VARCHAR(64),
			reject_reason TEXT,
			ip VARCHAR(45),
			user_agent TEXT
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create submissions table: %w", err)
	}

	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS submission_history (
			id VARCHAR(64) PRIMARY KEY,
			submission_id VARCHAR(64) NOT NULL,
			action VARCHAR(32) NOT NULL,
			actor_id VARCHAR(64) NOT NULL,
			comment TEXT,
			from_status VARCHAR(32),
			to_status VARCHAR(32),
			changes TEXT,
			ip VARCHAR(45),
			user_agent TEXT,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create submission_history table: %w", err)
	}

	return nil
}

// CreateIndexes 创建数据库索引
func CreateIndexes(db *gorm.DB) error {
	dialector := db.Dialector.Name()

	// forms 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_forms_name ON forms(name)").Error; err != nil {
		return fmt.Errorf("failed to create idx_forms_name: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_forms_original ON forms(original_form_id, is_latest)").Error; err != nil {
		return fmt.Errorf("failed to create idx_forms_original: %w", err)
	}

	// submissions 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_submissions_form_id ON submissions(form_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_submissions_form_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_submissions_user_id ON submissions(user_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_submissions_user_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_submissions_status_deleted ON submissions(status, deleted)").Error; err != nil {
		return fmt.Errorf("failed to create idx_submissions_status_deleted: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_submissions_submitted_at ON submissions(submitted_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_submissions_submitted_at: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_submissions_created_at ON submissions(created_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_submissions_created_at: %w", err)
	}

	// submission_history 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_history_submission_id ON submission_history(submission_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_history_submission_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_history_created_at ON submission_history(created_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_history_created_at: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_history_actor_id ON submission_history(actor_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_history_actor_id: %w", err)
	}

	// PostgreSQL 的 JSONB GIN 索引
	if dialector == "postgres" {
		if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_submissions_data_gin ON submissions USING GIN (data)").Error; err != nil {
			return fmt.Errorf("failed to create idx_submissions_data_gin: %w", err)
		}
	}

	return nil
}

// CheckHealth 检查数据库连接健康状态
func CheckHealth(db *gorm.DB) bool {
	if db == nil {
		return false
	}

	sqlDB, err := db.DB()
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return sqlDB.PingContext(ctx) == nil
}
