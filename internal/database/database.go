package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"booklend/internal/config"
	"booklend/internal/models"
)

// activeLoanIndex keeps at most one pending or accepted request per (owner, book).
// Terminal rows for the same pair are not covered, so history can accumulate.
const activeLoanIndex = `CREATE UNIQUE INDEX IF NOT EXISTS uniq_active_loan_request
	ON loan_requests (owner_user_id, book_isbn)
	WHERE status IN ('pending', 'accepted')`

// Open connects to PostgreSQL, retrying while the server comes up, and tunes the pool.
func Open(cfg config.Config) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	for i := 0; i < cfg.DBConnectRetries; i++ {
		db, err = gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
		if err == nil {
			break
		}
		log.Printf("[WARN] database: connection attempt %d/%d failed: %v", i+1, cfg.DBConnectRetries, err)
		if i < cfg.DBConnectRetries-1 {
			time.Sleep(cfg.DBConnectRetryDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get generic DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	log.Println("[INFO] database: connection established")
	return db, nil
}

// Migrate creates the tables and the partial unique index on active loan requests.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Book{}, &models.UserBook{}, &models.LoanRequest{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec(activeLoanIndex).Error; err != nil {
		return fmt.Errorf("create active loan index: %w", err)
	}
	return nil
}

// Ping checks that the store still answers.
func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
