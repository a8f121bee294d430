package repositories

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"booklend/internal/models"
)

// CollectionItem is one entry of an owner's collection joined with the catalog.
type CollectionItem struct {
	ISBN        string    `gorm:"column:isbn" json:"isbn"`
	Title       string    `gorm:"column:title" json:"title"`
	CoverURL    *string   `gorm:"column:cover_url" json:"cover_url,omitempty"`
	IsAvailable bool      `gorm:"column:is_available" json:"is_available"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// UserBookRepository is the availability ledger. Soft-deleted entries are
// invisible to every method except AddOrRestore.
type UserBookRepository interface {
	AddOrRestore(db *gorm.DB, ownerID uuid.UUID, isbn string) (*models.UserBook, error)
	Get(db *gorm.DB, ownerID uuid.UUID, isbn string) (*models.UserBook, error)
	GetForUpdate(db *gorm.DB, ownerID uuid.UUID, isbn string) (*models.UserBook, error)
	SetAvailable(db *gorm.DB, ownerID uuid.UUID, isbn string, value bool) (int64, error)
	SoftDelete(db *gorm.DB, ownerID uuid.UUID, isbn string) (int64, error)
	ListByOwner(db *gorm.DB, ownerID uuid.UUID) ([]CollectionItem, error)
	CountByOwner(db *gorm.DB, ownerID uuid.UUID) (int64, error)
}

type userBookRepository struct {
	db *gorm.DB
}

func NewUserBookRepository(db *gorm.DB) UserBookRepository {
	return &userBookRepository{db: db}
}

// AddOrRestore inserts the entry, or clears deleted_at on an existing one, in a
// single statement so concurrent adds of the same book cannot collide.
func (r *userBookRepository) AddOrRestore(db *gorm.DB, ownerID uuid.UUID, isbn string) (*models.UserBook, error) {
	if db == nil {
		db = r.db
	}
	now := time.Now().UTC()
	entry := models.UserBook{UserID: ownerID, BookISBN: isbn, IsAvailable: true, CreatedAt: now, UpdatedAt: now}
	err := db.Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "book_isbn"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"deleted_at": nil,
				"updated_at": now,
			}),
		}).
		Create(&entry).Error
	if err != nil {
		return nil, err
	}
	return r.Get(db, ownerID, isbn)
}

func (r *userBookRepository) Get(db *gorm.DB, ownerID uuid.UUID, isbn string) (*models.UserBook, error) {
	if db == nil {
		db = r.db
	}
	var entry models.UserBook
	err := db.Where("user_id = ? AND book_isbn = ?", ownerID, isbn).First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *userBookRepository) GetForUpdate(db *gorm.DB, ownerID uuid.UUID, isbn string) (*models.UserBook, error) {
	if db == nil {
		db = r.db
	}
	var entry models.UserBook
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND book_isbn = ?", ownerID, isbn).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// SetAvailable returns the number of active entries it matched (0 or 1).
func (r *userBookRepository) SetAvailable(db *gorm.DB, ownerID uuid.UUID, isbn string, value bool) (int64, error) {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.UserBook{}).
		Where("user_id = ? AND book_isbn = ?", ownerID, isbn).
		Updates(map[string]interface{}{
			"is_available": value,
			"updated_at":   time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *userBookRepository) SoftDelete(db *gorm.DB, ownerID uuid.UUID, isbn string) (int64, error) {
	if db == nil {
		db = r.db
	}
	res := db.Where("user_id = ? AND book_isbn = ?", ownerID, isbn).Delete(&models.UserBook{})
	return res.RowsAffected, res.Error
}

func (r *userBookRepository) ListByOwner(db *gorm.DB, ownerID uuid.UUID) ([]CollectionItem, error) {
	if db == nil {
		db = r.db
	}
	items := []CollectionItem{}
	err := db.Table("user_books AS ub").
		Select("b.isbn, b.title, b.cover_url, ub.is_available, ub.created_at, ub.updated_at").
		Joins("JOIN books b ON b.isbn = ub.book_isbn").
		Where("ub.user_id = ? AND ub.deleted_at IS NULL", ownerID).
		Order("b.title").
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// CountByOwner counts active entries whose catalog book is not soft-deleted.
func (r *userBookRepository) CountByOwner(db *gorm.DB, ownerID uuid.UUID) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Table("user_books AS ub").
		Joins("JOIN books b ON b.isbn = ub.book_isbn AND b.deleted_at IS NULL").
		Where("ub.user_id = ? AND ub.deleted_at IS NULL", ownerID).
		Count(&count).Error
	return count, err
}
