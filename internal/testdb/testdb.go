// Package testdb provides a migrated in-memory SQLite store for tests.
package testdb

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"booklend/internal/database"
	"booklend/internal/models"
)

// Open returns a fresh migrated database. The pool is capped at one
// connection: every in-memory connection would otherwise be its own database,
// and it makes concurrent transactions run one after another.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get generic DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// CreateUser inserts a user with an email contact preference.
func CreateUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		ID:                uuid.New(),
		Username:          username,
		Email:             username + "@example.com",
		ContactPreference: models.ContactPreferenceEmail,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

// CreateBook inserts a catalog entry.
func CreateBook(t testing.TB, db *gorm.DB, isbn, title string) *models.Book {
	t.Helper()
	book := &models.Book{ISBN: isbn, Title: title}
	if err := db.Create(book).Error; err != nil {
		t.Fatalf("create book %s: %v", isbn, err)
	}
	return book
}

// AddToCollection puts an available copy of isbn in owner's collection.
func AddToCollection(t testing.TB, db *gorm.DB, ownerID uuid.UUID, isbn string) {
	t.Helper()
	entry := &models.UserBook{UserID: ownerID, BookISBN: isbn, IsAvailable: true}
	if err := db.Omit("User", "Book").Create(entry).Error; err != nil {
		t.Fatalf("add %s to collection of %s: %v", isbn, ownerID, err)
	}
}
