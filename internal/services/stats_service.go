package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"booklend/internal/models"
	"booklend/internal/repositories"
)

type LoanStats struct {
	Total    int64                       `json:"loan_requests_total"`
	ByStatus map[models.LoanStatus]int64 `json:"loan_requests_by_status"`
}

type UserStats struct {
	User             *models.User                `json:"-"`
	BooksOwnedTotal  int64                       `json:"books_owned_total"`
	LoansOutTotal    int64                       `json:"loans_out_total"`
	LoansOutByStatus map[models.LoanStatus]int64 `json:"loans_out_by_status"`
	LoansInTotal     int64                       `json:"loans_in_total"`
	LoansInByStatus  map[models.LoanStatus]int64 `json:"loans_in_by_status"`
}

// StatsService exposes read-only aggregate counts for the admin area.
type StatsService interface {
	Loans(ctx context.Context) (*LoanStats, error)
	User(ctx context.Context, userID uuid.UUID) (*UserStats, error)
}

type statsService struct {
	db         *gorm.DB
	userRepo   repositories.UserRepository
	ledgerRepo repositories.UserBookRepository
	loanRepo   repositories.LoanRepository
}

func NewStatsService(
	db *gorm.DB,
	userRepo repositories.UserRepository,
	ledgerRepo repositories.UserBookRepository,
	loanRepo repositories.LoanRepository,
) StatsService {
	return &statsService{db: db, userRepo: userRepo, ledgerRepo: ledgerRepo, loanRepo: loanRepo}
}

func (s *statsService) Loans(ctx context.Context) (*LoanStats, error) {
	rows, err := s.loanRepo.CountByStatus(s.db.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	byStatus, total := byStatusWithTotal(rows)
	return &LoanStats{Total: total, ByStatus: byStatus}, nil
}

func (s *statsService) User(ctx context.Context, userID uuid.UUID) (*UserStats, error) {
	db := s.db.WithContext(ctx)

	user, err := s.userRepo.GetByID(db, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	owned, err := s.ledgerRepo.CountByOwner(db, userID)
	if err != nil {
		return nil, err
	}
	outRows, err := s.loanRepo.CountByStatusForRequester(db, userID)
	if err != nil {
		return nil, err
	}
	inRows, err := s.loanRepo.CountByStatusForOwner(db, userID)
	if err != nil {
		return nil, err
	}

	stats := &UserStats{User: user, BooksOwnedTotal: owned}
	stats.LoansOutByStatus, stats.LoansOutTotal = byStatusWithTotal(outRows)
	stats.LoansInByStatus, stats.LoansInTotal = byStatusWithTotal(inRows)
	return stats, nil
}

// byStatusWithTotal reports every known status, zero when absent.
func byStatusWithTotal(rows []repositories.StatusCount) (map[models.LoanStatus]int64, int64) {
	byStatus := make(map[models.LoanStatus]int64, len(models.LoanStatuses))
	for _, st := range models.LoanStatuses {
		byStatus[st] = 0
	}
	var total int64
	for _, row := range rows {
		byStatus[row.Status] += row.Count
		total += row.Count
	}
	return byStatus, total
}
