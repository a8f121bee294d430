package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"booklend/internal/models"
	"booklend/internal/repositories"
	"booklend/internal/testdb"
)

const testISBN = "9780141036144"

type fixture struct {
	db         *gorm.DB
	loans      LoanService
	collection CollectionService
	stats      StatsService
	ledgerRepo repositories.UserBookRepository

	owner      *models.User
	requester  *models.User
	requester2 *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.Open(t)

	userRepo := repositories.NewUserRepository(db)
	bookRepo := repositories.NewBookRepository(db)
	ledgerRepo := repositories.NewUserBookRepository(db)
	loanRepo := repositories.NewLoanRepository(db)

	f := &fixture{
		db:         db,
		loans:      NewLoanService(db, userRepo, bookRepo, ledgerRepo, loanRepo),
		collection: NewCollectionService(db, bookRepo, ledgerRepo, loanRepo),
		stats:      NewStatsService(db, userRepo, ledgerRepo, loanRepo),
		ledgerRepo: ledgerRepo,
		owner:      testdb.CreateUser(t, db, "olivia"),
		requester:  testdb.CreateUser(t, db, "ruben"),
		requester2: testdb.CreateUser(t, db, "rita"),
	}
	testdb.CreateBook(t, db, testISBN, "1984")
	testdb.AddToCollection(t, db, f.owner.ID, testISBN)
	return f
}

func actorOf(u *models.User) Actor {
	return Actor{UserID: u.ID, IsAdmin: u.IsAdmin}
}

func (f *fixture) available(t *testing.T) bool {
	t.Helper()
	entry, err := f.ledgerRepo.Get(f.db, f.owner.ID, testISBN)
	require.NoError(t, err)
	return entry.IsAvailable
}

func (f *fixture) status(t *testing.T, loan *models.LoanRequest) models.LoanStatus {
	t.Helper()
	var stored models.LoanRequest
	require.NoError(t, f.db.First(&stored, "id = ?", loan.ID).Error)
	return stored.Status
}

func (f *fixture) createPending(t *testing.T) *models.LoanRequest {
	t.Helper()
	loan, err := f.loans.Create(context.Background(), actorOf(f.requester), f.owner.ID, testISBN)
	require.NoError(t, err)
	return loan
}
