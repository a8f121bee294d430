package repositories

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"booklend/internal/models"
)

// Contact columns are computed in SQL so a counterparty's email or phone
// never leaves the store unless the request is accepted. u is the
// counterparty in both projections.
const (
	otherPartyContactColumn = `CASE WHEN lr.status = 'accepted' THEN
		CASE WHEN u.exchange_contact_preference = 'phone' AND u.phone IS NOT NULL THEN u.phone ELSE u.email END
		ELSE NULL END AS other_party_contact`
	otherPartyContactTypeColumn = `CASE WHEN lr.status = 'accepted' THEN
		CASE WHEN u.exchange_contact_preference = 'phone' AND u.phone IS NOT NULL THEN 'phone' ELSE 'email' END
		ELSE NULL END AS other_party_contact_type`
)

// InboxItem is a request received by an owner.
type InboxItem struct {
	ID                    uuid.UUID         `gorm:"column:id" json:"id"`
	Status                models.LoanStatus `gorm:"column:status" json:"status"`
	BookISBN              string            `gorm:"column:book_isbn" json:"book_isbn"`
	BookTitle             *string           `gorm:"column:book_title" json:"book_title"`
	CoverURL              *string           `gorm:"column:cover_url" json:"cover_url"`
	RequesterUserID       uuid.UUID         `gorm:"column:requester_user_id" json:"requester_user_id"`
	RequesterUsername     string            `gorm:"column:requester_username" json:"requester_username"`
	OtherPartyContact     *string           `gorm:"column:other_party_contact" json:"other_party_contact,omitempty"`
	OtherPartyContactType *string           `gorm:"column:other_party_contact_type" json:"other_party_contact_type,omitempty"`
	CreatedAt             time.Time         `gorm:"column:created_at" json:"created_at"`
	UpdatedAt             time.Time         `gorm:"column:updated_at" json:"updated_at"`
}

// OutboxItem is a request sent by a requester.
type OutboxItem struct {
	ID                    uuid.UUID         `gorm:"column:id" json:"id"`
	Status                models.LoanStatus `gorm:"column:status" json:"status"`
	BookISBN              string            `gorm:"column:book_isbn" json:"book_isbn"`
	BookTitle             *string           `gorm:"column:book_title" json:"book_title"`
	CoverURL              *string           `gorm:"column:cover_url" json:"cover_url"`
	OwnerUserID           uuid.UUID         `gorm:"column:owner_user_id" json:"owner_user_id"`
	OwnerUsername         string            `gorm:"column:owner_username" json:"owner_username"`
	OtherPartyContact     *string           `gorm:"column:other_party_contact" json:"other_party_contact,omitempty"`
	OtherPartyContactType *string           `gorm:"column:other_party_contact_type" json:"other_party_contact_type,omitempty"`
	CreatedAt             time.Time         `gorm:"column:created_at" json:"created_at"`
	UpdatedAt             time.Time         `gorm:"column:updated_at" json:"updated_at"`
}

type StatusCount struct {
	Status models.LoanStatus `gorm:"column:status"`
	Count  int64             `gorm:"column:count"`
}

type LoanRepository interface {
	Create(db *gorm.DB, loan *models.LoanRequest) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.LoanRequest, error)
	GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.LoanRequest, error)
	UpdateStatus(db *gorm.DB, id uuid.UUID, status models.LoanStatus, updatedAt time.Time) error
	HasStatusForPair(db *gorm.DB, ownerID uuid.UUID, isbn string, status models.LoanStatus) (bool, error)

	ListInbox(db *gorm.DB, ownerID uuid.UUID) ([]InboxItem, error)
	ListOutbox(db *gorm.DB, requesterID uuid.UUID) ([]OutboxItem, error)

	CountByStatus(db *gorm.DB) ([]StatusCount, error)
	CountByStatusForRequester(db *gorm.DB, requesterID uuid.UUID) ([]StatusCount, error)
	CountByStatusForOwner(db *gorm.DB, ownerID uuid.UUID) ([]StatusCount, error)
}

type loanRepository struct {
	db *gorm.DB
}

func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(db *gorm.DB, loan *models.LoanRequest) error {
	if db == nil {
		db = r.db
	}
	return db.Omit(clause.Associations).Create(loan).Error
}

func (r *loanRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.LoanRequest, error) {
	if db == nil {
		db = r.db
	}
	var loan models.LoanRequest
	if err := db.First(&loan, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) GetByIDForUpdate(db *gorm.DB, id uuid.UUID) (*models.LoanRequest, error) {
	if db == nil {
		db = r.db
	}
	var loan models.LoanRequest
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&loan, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) UpdateStatus(db *gorm.DB, id uuid.UUID, status models.LoanStatus, updatedAt time.Time) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.LoanRequest{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": updatedAt,
		}).Error
}

func (r *loanRepository) HasStatusForPair(db *gorm.DB, ownerID uuid.UUID, isbn string, status models.LoanStatus) (bool, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.LoanRequest{}).
		Where("owner_user_id = ? AND book_isbn = ? AND status = ?", ownerID, isbn, status).
		Count(&count).Error
	return count > 0, err
}

func (r *loanRepository) ListInbox(db *gorm.DB, ownerID uuid.UUID) ([]InboxItem, error) {
	if db == nil {
		db = r.db
	}
	items := []InboxItem{}
	err := db.Table("loan_requests AS lr").
		Select(`lr.id, lr.status, lr.book_isbn, lr.created_at, lr.updated_at,
			b.title AS book_title, b.cover_url AS cover_url,
			u.id AS requester_user_id, u.username AS requester_username, ` +
			otherPartyContactColumn + ", " + otherPartyContactTypeColumn).
		Joins("LEFT JOIN books b ON b.isbn = lr.book_isbn").
		Joins("JOIN users u ON u.id = lr.requester_user_id").
		Where("lr.owner_user_id = ?", ownerID).
		Order("lr.created_at DESC").
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *loanRepository) ListOutbox(db *gorm.DB, requesterID uuid.UUID) ([]OutboxItem, error) {
	if db == nil {
		db = r.db
	}
	items := []OutboxItem{}
	err := db.Table("loan_requests AS lr").
		Select(`lr.id, lr.status, lr.book_isbn, lr.created_at, lr.updated_at,
			b.title AS book_title, b.cover_url AS cover_url,
			u.id AS owner_user_id, u.username AS owner_username, ` +
			otherPartyContactColumn + ", " + otherPartyContactTypeColumn).
		Joins("LEFT JOIN books b ON b.isbn = lr.book_isbn").
		Joins("JOIN users u ON u.id = lr.owner_user_id").
		Where("lr.requester_user_id = ?", requesterID).
		Order("lr.created_at DESC").
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *loanRepository) CountByStatus(db *gorm.DB) ([]StatusCount, error) {
	if db == nil {
		db = r.db
	}
	return countByStatus(db.Model(&models.LoanRequest{}))
}

func (r *loanRepository) CountByStatusForRequester(db *gorm.DB, requesterID uuid.UUID) ([]StatusCount, error) {
	if db == nil {
		db = r.db
	}
	return countByStatus(db.Model(&models.LoanRequest{}).Where("requester_user_id = ?", requesterID))
}

func (r *loanRepository) CountByStatusForOwner(db *gorm.DB, ownerID uuid.UUID) ([]StatusCount, error) {
	if db == nil {
		db = r.db
	}
	return countByStatus(db.Model(&models.LoanRequest{}).Where("owner_user_id = ?", ownerID))
}

func countByStatus(q *gorm.DB) ([]StatusCount, error) {
	var rows []StatusCount
	if err := q.Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
