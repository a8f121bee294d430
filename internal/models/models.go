package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ContactPreference string

const (
	ContactPreferenceEmail ContactPreference = "email"
	ContactPreferencePhone ContactPreference = "phone"
)

type LoanStatus string

const (
	LoanStatusPending   LoanStatus = "pending"
	LoanStatusAccepted  LoanStatus = "accepted"
	LoanStatusRejected  LoanStatus = "rejected"
	LoanStatusCancelled LoanStatus = "cancelled"
	LoanStatusReturned  LoanStatus = "returned"
)

// LoanStatuses lists every status a loan request can be in.
var LoanStatuses = []LoanStatus{
	LoanStatusPending,
	LoanStatusAccepted,
	LoanStatusRejected,
	LoanStatusCancelled,
	LoanStatusReturned,
}

// IsActive reports whether the status still occupies the (owner, book) slot.
func (s LoanStatus) IsActive() bool {
	return s == LoanStatusPending || s == LoanStatusAccepted
}

// IsTerminal reports whether no transition may leave the status.
func (s LoanStatus) IsTerminal() bool {
	return s == LoanStatusRejected || s == LoanStatusCancelled || s == LoanStatusReturned
}

type User struct {
	ID                uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Username          string            `gorm:"size:80;not null;uniqueIndex" json:"username"`
	Email             string            `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Phone             *string           `gorm:"size:40" json:"phone,omitempty"`
	ContactPreference ContactPreference `gorm:"column:exchange_contact_preference;size:10;not null;default:'email'" json:"exchange_contact_preference"`
	IsTrusted         bool              `gorm:"not null;default:false" json:"is_trusted"`
	IsAdmin           bool              `gorm:"not null;default:false" json:"is_admin"`
	DeletedAt         gorm.DeletedAt    `gorm:"index" json:"deleted_at,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

type Book struct {
	ISBN      string         `gorm:"column:isbn;size:20;primaryKey" json:"isbn"`
	Title     string         `gorm:"size:255;not null" json:"title"`
	CoverURL  *string        `gorm:"size:512" json:"cover_url,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// UserBook is one owner's lendable copy of one book.
type UserBook struct {
	UserID      uuid.UUID      `gorm:"type:uuid;primaryKey" json:"user_id"`
	User        User           `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	BookISBN    string         `gorm:"size:20;primaryKey" json:"book_isbn"`
	Book        Book           `gorm:"foreignKey:BookISBN;references:ISBN;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	IsAvailable bool           `gorm:"not null;default:true" json:"is_available"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type LoanRequest struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	RequesterID uuid.UUID  `gorm:"column:requester_user_id;type:uuid;not null;index" json:"requester_user_id"`
	Requester   User       `gorm:"foreignKey:RequesterID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	OwnerID     uuid.UUID  `gorm:"column:owner_user_id;type:uuid;not null;index" json:"owner_user_id"`
	Owner       User       `gorm:"foreignKey:OwnerID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	BookISBN    string     `gorm:"size:20;not null;index" json:"book_isbn"`
	Status      LoanStatus `gorm:"size:16;not null;default:'pending';index" json:"status"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (l *LoanRequest) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
