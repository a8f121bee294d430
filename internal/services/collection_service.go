package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"booklend/internal/models"
	"booklend/internal/repositories"
)

// CollectionService is the owner-facing side of the availability ledger.
// Loan-driven availability changes happen inside LoanService transactions
// and never go through here.
type CollectionService interface {
	List(ctx context.Context, actor Actor) ([]repositories.CollectionItem, error)
	Add(ctx context.Context, actor Actor, isbn string) (*models.UserBook, error)
	SetAvailable(ctx context.Context, actor Actor, isbn string, value bool) error
	GetAvailability(ctx context.Context, ownerID uuid.UUID, isbn string) (bool, error)
	Remove(ctx context.Context, actor Actor, isbn string) error
}

type collectionService struct {
	db         *gorm.DB
	bookRepo   repositories.BookRepository
	ledgerRepo repositories.UserBookRepository
	loanRepo   repositories.LoanRepository
}

func NewCollectionService(
	db *gorm.DB,
	bookRepo repositories.BookRepository,
	ledgerRepo repositories.UserBookRepository,
	loanRepo repositories.LoanRepository,
) CollectionService {
	return &collectionService{
		db:         db,
		bookRepo:   bookRepo,
		ledgerRepo: ledgerRepo,
		loanRepo:   loanRepo,
	}
}

func (s *collectionService) List(ctx context.Context, actor Actor) ([]repositories.CollectionItem, error) {
	return s.ledgerRepo.ListByOwner(s.db.WithContext(ctx), actor.UserID)
}

// Add puts isbn in the actor's collection, restoring a removed entry if there
// is one. A restored entry keeps its last availability.
func (s *collectionService) Add(ctx context.Context, actor Actor, isbn string) (*models.UserBook, error) {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return nil, ErrMissingISBN
	}

	var entry *models.UserBook
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.bookRepo.GetActiveByISBN(tx, isbn); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUnknownISBN
			}
			return err
		}
		e, err := s.ledgerRepo.AddOrRestore(tx, actor.UserID, isbn)
		if err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		err = classify(err)
		log.Printf("[ERROR] AddToCollection: owner %s / book %s: %v", actor.UserID, isbn, err)
		return nil, err
	}
	log.Printf("[INFO] AddToCollection: book %s in collection of %s (available=%t)", isbn, actor.UserID, entry.IsAvailable)
	return entry, nil
}

// SetAvailable is the owner's manual toggle. It is idempotent. Turning a copy
// back on while one of its loans is accepted is refused, since the copy is
// physically with the requester until the owner records the return.
func (s *collectionService) SetAvailable(ctx context.Context, actor Actor, isbn string, value bool) error {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return ErrMissingISBN
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry, err := s.ledgerRepo.GetForUpdate(tx, actor.UserID, isbn)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEntryNotFound
			}
			return err
		}
		if value && !entry.IsAvailable {
			onLoan, err := s.loanRepo.HasStatusForPair(tx, actor.UserID, isbn, models.LoanStatusAccepted)
			if err != nil {
				return err
			}
			if onLoan {
				return ErrBookOnLoan
			}
		}
		_, err = s.ledgerRepo.SetAvailable(tx, actor.UserID, isbn, value)
		return err
	})
	if err != nil {
		err = classify(err)
		log.Printf("[ERROR] SetAvailability: owner %s / book %s: %v", actor.UserID, isbn, err)
		return err
	}
	log.Printf("[INFO] SetAvailability: book %s of %s is_available=%t", isbn, actor.UserID, value)
	return nil
}

// GetAvailability is a read-only probe of one ledger entry.
func (s *collectionService) GetAvailability(ctx context.Context, ownerID uuid.UUID, isbn string) (bool, error) {
	entry, err := s.ledgerRepo.Get(s.db.WithContext(ctx), ownerID, strings.TrimSpace(isbn))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrEntryNotFound
		}
		return false, classify(err)
	}
	return entry.IsAvailable, nil
}

// Remove soft-deletes the entry. Loans in flight are left alone; returning
// one afterwards fails with a conflict until the book is added back.
func (s *collectionService) Remove(ctx context.Context, actor Actor, isbn string) error {
	isbn = strings.TrimSpace(isbn)
	n, err := s.ledgerRepo.SoftDelete(s.db.WithContext(ctx), actor.UserID, isbn)
	if err != nil {
		err = classify(err)
		log.Printf("[ERROR] RemoveFromCollection: owner %s / book %s: %v", actor.UserID, isbn, err)
		return err
	}
	if n == 0 {
		return ErrEntryNotFound
	}
	log.Printf("[INFO] RemoveFromCollection: book %s removed from collection of %s", isbn, actor.UserID)
	return nil
}
