package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"booklend/internal/models"
	"booklend/internal/repositories"
)

// Actor is the verified identity of the caller. It is passed explicitly into
// every service call; nothing in this package keeps session state.
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// ─── Service Interface ────────────────────────────────────────────────────────

// LoanService runs the loan request state machine:
//
//	pending  → accepted | rejected | cancelled
//	accepted → returned
//
// Each operation is one transaction. Rows are locked in a fixed order, the
// loan request first and the owner's ledger entry second.
type LoanService interface {
	Create(ctx context.Context, actor Actor, ownerID uuid.UUID, isbn string) (*models.LoanRequest, error)
	Accept(ctx context.Context, actor Actor, loanID uuid.UUID) (*models.LoanRequest, error)
	Reject(ctx context.Context, actor Actor, loanID uuid.UUID) (*models.LoanRequest, error)
	Return(ctx context.Context, actor Actor, loanID uuid.UUID) (*models.LoanRequest, error)
	Cancel(ctx context.Context, actor Actor, loanID uuid.UUID) (*models.LoanRequest, error)

	Inbox(ctx context.Context, actor Actor) ([]repositories.InboxItem, error)
	Outbox(ctx context.Context, actor Actor) ([]repositories.OutboxItem, error)
}

// ─── Implementation ───────────────────────────────────────────────────────────

type loanService struct {
	db         *gorm.DB
	userRepo   repositories.UserRepository
	bookRepo   repositories.BookRepository
	ledgerRepo repositories.UserBookRepository
	loanRepo   repositories.LoanRepository
}

// NewLoanService wires up all dependencies and returns a LoanService.
func NewLoanService(
	db *gorm.DB,
	userRepo repositories.UserRepository,
	bookRepo repositories.BookRepository,
	ledgerRepo repositories.UserBookRepository,
	loanRepo repositories.LoanRepository,
) LoanService {
	return &loanService{
		db:         db,
		userRepo:   userRepo,
		bookRepo:   bookRepo,
		ledgerRepo: ledgerRepo,
		loanRepo:   loanRepo,
	}
}

// ─── Create ───────────────────────────────────────────────────────────────────

// Create inserts a pending request from actor to the owner of isbn.
//
// Availability is checked but not locked. Two requesters racing for the same
// copy are separated by the partial unique index on active requests: the
// loser gets ErrActiveLoanExists.
func (s *loanService) Create(ctx context.Context, actor Actor, ownerID uuid.UUID, isbn string) (*models.LoanRequest, error) {
	isbn = strings.TrimSpace(isbn)
	if ownerID == uuid.Nil {
		return nil, ErrMissingOwner
	}
	if isbn == "" {
		return nil, ErrMissingISBN
	}
	if ownerID == actor.UserID {
		return nil, ErrSelfLoan
	}

	loan := &models.LoanRequest{
		RequesterID: actor.UserID,
		OwnerID:     ownerID,
		BookISBN:    isbn,
		Status:      models.LoanStatusPending,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Soft-deleted owners and books are gone for new requests.
		if _, err := s.userRepo.GetActiveByID(tx, ownerID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOwnerNotFound
			}
			return err
		}
		if _, err := s.bookRepo.GetActiveByISBN(tx, isbn); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		// 2. The owner must hold an available copy.
		entry, err := s.ledgerRepo.Get(tx, ownerID, isbn)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookUnavailable
			}
			return err
		}
		if !entry.IsAvailable {
			return ErrBookUnavailable
		}

		// 3. Insert; the active-request index rejects a second pending/accepted row.
		if err := s.loanRepo.Create(tx, loan); err != nil {
			if isUniqueViolation(err) {
				log.Printf("[WARN] CreateLoan: active request already exists for owner %s / book %s", ownerID, isbn)
				return ErrActiveLoanExists
			}
			return err
		}
		return nil
	})
	if err != nil {
		err = classify(err)
		log.Printf("[ERROR] CreateLoan: requester %s / owner %s / book %s: %v", actor.UserID, ownerID, isbn, err)
		return nil, err
	}
	log.Printf("[INFO] CreateLoan: request %s created by %s for book %s of owner %s", loan.ID, actor.UserID, isbn, ownerID)
	return loan, nil
}

// ─── Transitions ──────────────────────────────────────────────────────────────

// transition is one edge of the state machine.
type transition struct {
	op        string
	from      models.LoanStatus
	to        models.LoanStatus
	authorize func(loan *models.LoanRequest, actor Actor) error
	// ledger runs after the loan row is locked and validated.
	ledger func(s *loanService, tx *gorm.DB, loan *models.LoanRequest) error
}

var (
	acceptTransition = transition{
		op:        "AcceptLoan",
		from:      models.LoanStatusPending,
		to:        models.LoanStatusAccepted,
		authorize: ownerOnly,
		ledger:    (*loanService).reserveCopy,
	}
	rejectTransition = transition{
		op:        "RejectLoan",
		from:      models.LoanStatusPending,
		to:        models.LoanStatusRejected,
		authorize: ownerOnly,
	}
	returnTransition = transition{
		op:        "ReturnLoan",
		from:      models.LoanStatusAccepted,
		to:        models.LoanStatusReturned,
		authorize: ownerOnly,
		ledger:    (*loanService).releaseCopy,
	}
	cancelTransition = transition{
		op:        "CancelLoan",
		from:      models.LoanStatusPending,
		to:        models.LoanStatusCancelled,
		authorize: requesterOnly,
	}
)

func ownerOnly(loan *models.LoanRequest, actor Actor) error {
	if loan.OwnerID != actor.UserID {
		return ErrNotLoanOwner
	}
	return nil
}

func requesterOnly(loan *models.LoanRequest, actor Actor) error {
	if loan.RequesterID != actor.UserID {
		return ErrNotLoanRequester
	}
	return nil
}

// Accept marks a pending request accepted and takes the copy off the shelf.
func (s *loanService) Accept(ctx context.Context, actor Actor, loanID uuid.UUID) (*models.LoanRequest, error) {
	return s.apply(ctx, actor, loanID, acceptTransition)
}

// Reject closes a pending request on the owner's side. The ledger is untouched.
func (s *loanService) Reject(ctx context.Context, actor Actor, loanID uuid.UUID) (*models.LoanRequest, error) {
	return s.apply(ctx, actor, loanID, rejectTransition)
}

// Return closes an accepted loan and makes the copy available again.
func (s *loanService) Return(ctx context.Context, actor Actor, loanID uuid.UUID) (*models.LoanRequest, error) {
	return s.apply(ctx, actor, loanID, returnTransition)
}

// Cancel withdraws a pending request on the requester's side.
func (s *loanService) Cancel(ctx context.Context, actor Actor, loanID uuid.UUID) (*models.LoanRequest, error) {
	return s.apply(ctx, actor, loanID, cancelTransition)
}

// apply runs one transition inside a transaction:
//  1. Lock the loan request row (FOR UPDATE).
//  2. Check the actor against the owner/requester of record.
//  3. Guard the current status.
//  4. Lock and write the ledger entry, for accept and return.
//  5. Write the new status.
func (s *loanService) apply(ctx context.Context, actor Actor, loanID uuid.UUID, t transition) (*models.LoanRequest, error) {
	var updated *models.LoanRequest

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loan, err := s.loanRepo.GetByIDForUpdate(tx, loanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLoanNotFound
			}
			return err
		}

		if err := t.authorize(loan, actor); err != nil {
			log.Printf("[WARN] %s: actor %s is not allowed on request %s", t.op, actor.UserID, loanID)
			return err
		}

		if loan.Status != t.from {
			log.Printf("[WARN] %s: request %s is %s, expected %s", t.op, loanID, loan.Status, t.from)
			return invalidTransition(string(loan.Status))
		}

		if t.ledger != nil {
			if err := t.ledger(s, tx, loan); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		if err := s.loanRepo.UpdateStatus(tx, loan.ID, t.to, now); err != nil {
			log.Printf("[ERROR] %s: failed to mark request %s %s: %v", t.op, loanID, t.to, err)
			return err
		}
		loan.Status = t.to
		loan.UpdatedAt = now
		updated = loan
		return nil
	})
	if err != nil {
		err = classify(err)
		log.Printf("[ERROR] %s: transaction failed for request %s: %v", t.op, loanID, err)
		return nil, err
	}
	log.Printf("[INFO] %s: request %s is now %s (owner=%s, book=%s)", t.op, updated.ID, updated.Status, updated.OwnerID, updated.BookISBN)
	return updated, nil
}

// reserveCopy locks the owner's entry and flips it unavailable. A missing or
// already unavailable entry means the copy went elsewhere: a different
// request was accepted first, or the owner disabled or removed it.
func (s *loanService) reserveCopy(tx *gorm.DB, loan *models.LoanRequest) error {
	entry, err := s.ledgerRepo.GetForUpdate(tx, loan.OwnerID, loan.BookISBN)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEntryMissing
		}
		return err
	}
	if !entry.IsAvailable {
		return ErrAlreadyUnavailable
	}
	if _, err := s.ledgerRepo.SetAvailable(tx, loan.OwnerID, loan.BookISBN, false); err != nil {
		log.Printf("[ERROR] AcceptLoan: failed to mark book %s of owner %s unavailable: %v", loan.BookISBN, loan.OwnerID, err)
		return err
	}
	return nil
}

// releaseCopy locks the owner's entry and flips it available.
func (s *loanService) releaseCopy(tx *gorm.DB, loan *models.LoanRequest) error {
	if _, err := s.ledgerRepo.GetForUpdate(tx, loan.OwnerID, loan.BookISBN); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEntryMissing
		}
		return err
	}
	if _, err := s.ledgerRepo.SetAvailable(tx, loan.OwnerID, loan.BookISBN, true); err != nil {
		log.Printf("[ERROR] ReturnLoan: failed to mark book %s of owner %s available: %v", loan.BookISBN, loan.OwnerID, err)
		return err
	}
	return nil
}

// ─── Queries ──────────────────────────────────────────────────────────────────

// Inbox lists requests received by actor, newest first.
func (s *loanService) Inbox(ctx context.Context, actor Actor) ([]repositories.InboxItem, error) {
	return s.loanRepo.ListInbox(s.db.WithContext(ctx), actor.UserID)
}

// Outbox lists requests sent by actor, newest first.
func (s *loanService) Outbox(ctx context.Context, actor Actor) ([]repositories.OutboxItem, error) {
	return s.loanRepo.ListOutbox(s.db.WithContext(ctx), actor.UserID)
}
