package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ─── Error Classes ────────────────────────────────────────────────────────────

// Every error returned by a service wraps exactly one of these classes.
// Handlers map them to status codes with errors.Is.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// ─── Sentinel Errors ──────────────────────────────────────────────────────────

var (
	ErrSelfLoan     = fmt.Errorf("%w: cannot request a loan from yourself", ErrInvalidInput)
	ErrMissingISBN  = fmt.Errorf("%w: book isbn is required", ErrInvalidInput)
	ErrMissingOwner = fmt.Errorf("%w: owner user id is required", ErrInvalidInput)
	ErrUnknownISBN  = fmt.Errorf("%w: isbn is not in the catalog", ErrInvalidInput)

	ErrNotLoanOwner     = fmt.Errorf("%w: only the owner can act on this request", ErrForbidden)
	ErrNotLoanRequester = fmt.Errorf("%w: only the requester can act on this request", ErrForbidden)

	ErrLoanNotFound  = fmt.Errorf("%w: loan request not found", ErrNotFound)
	ErrOwnerNotFound = fmt.Errorf("%w: owner not found", ErrNotFound)
	ErrBookNotFound  = fmt.Errorf("%w: book not found", ErrNotFound)
	ErrUserNotFound  = fmt.Errorf("%w: user not found", ErrNotFound)

	// ErrEntryNotFound is returned by direct ledger calls when the owner has no
	// active copy. Inside the transition engine a missing entry is a conflict.
	ErrEntryNotFound = fmt.Errorf("%w: book not found in the collection", ErrNotFound)

	ErrBookUnavailable    = fmt.Errorf("%w: book not available or not owned by the selected user", ErrConflict)
	ErrActiveLoanExists   = fmt.Errorf("%w: an active request already exists for this book", ErrConflict)
	ErrInvalidTransition  = fmt.Errorf("%w: invalid status", ErrConflict)
	ErrEntryMissing       = fmt.Errorf("%w: book is not in the owner's collection", ErrConflict)
	ErrAlreadyUnavailable = fmt.Errorf("%w: book is already unavailable", ErrConflict)
	ErrBookOnLoan         = fmt.Errorf("%w: book is currently on loan", ErrConflict)

	// ErrTransient marks a deadlock, serialization or lock-timeout abort.
	// Nothing was applied and the whole operation can be retried.
	ErrTransient = fmt.Errorf("%w: transaction aborted by the store, retry", ErrConflict)
)

func invalidTransition(from string) error {
	return fmt.Errorf("%w: %s", ErrInvalidTransition, from)
}

// ─── Store Error Classification ───────────────────────────────────────────────

const (
	sqlstateUniqueViolation      = "23505"
	sqlstateSerializationFailure = "40001"
	sqlstateDeadlockDetected     = "40P01"
	sqlstateLockNotAvailable     = "55P03"
)

// isUniqueViolation reports a unique-constraint failure from PostgreSQL or SQLite.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlstateUniqueViolation
	}
	msg := err.Error()
	return strings.Contains(msg, sqlstateUniqueViolation) || strings.Contains(msg, "UNIQUE constraint failed")
}

// isTransient reports store aborts that leave nothing applied.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlstateSerializationFailure, sqlstateDeadlockDetected, sqlstateLockNotAvailable:
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}

// classify turns raw store failures into the error taxonomy. Errors that
// already carry a class pass through unchanged.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrForbidden),
		errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict):
		return err
	case isTransient(err):
		return fmt.Errorf("%w (%v)", ErrTransient, err)
	case isUniqueViolation(err):
		return fmt.Errorf("%w: duplicate row (%v)", ErrConflict, err)
	}
	return err
}
