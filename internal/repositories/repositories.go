package repositories

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"booklend/internal/models"
)

// Every repository method takes the handle to run on so callers can pass a
// transaction. A nil handle falls back to the repository's own connection.

type UserRepository interface {
	// GetActiveByID skips soft-deleted users.
	GetActiveByID(db *gorm.DB, id uuid.UUID) (*models.User, error)
	// GetByID includes soft-deleted users, for identity display and history.
	GetByID(db *gorm.DB, id uuid.UUID) (*models.User, error)
}

type BookRepository interface {
	// GetActiveByISBN confirms a catalog entry exists and is not soft-deleted.
	GetActiveByISBN(db *gorm.DB, isbn string) (*models.Book, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetActiveByID(db *gorm.DB, id uuid.UUID) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	if err := db.Unscoped().First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) GetActiveByISBN(db *gorm.DB, isbn string) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	if err := db.First(&book, "isbn = ?", isbn).Error; err != nil {
		return nil, err
	}
	return &book, nil
}
