package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booklend/internal/models"
	"booklend/internal/testdb"
)

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	testdb.CreateBook(t, f.db, "9780452284234", "Down and Out")
	testdb.AddToCollection(t, f.db, f.owner.ID, "9780452284234")

	first := f.createPending(t)
	_, err := f.loans.Reject(ctx, actorOf(f.owner), first.ID)
	require.NoError(t, err)
	second := f.createPending(t)
	_, err = f.loans.Accept(ctx, actorOf(f.owner), second.ID)
	require.NoError(t, err)
	_, err = f.loans.Create(ctx, actorOf(f.requester2), f.owner.ID, "9780452284234")
	require.NoError(t, err)

	loans, err := f.stats.Loans(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), loans.Total)
	assert.Equal(t, map[models.LoanStatus]int64{
		models.LoanStatusPending:   1,
		models.LoanStatusAccepted:  1,
		models.LoanStatusRejected:  1,
		models.LoanStatusCancelled: 0,
		models.LoanStatusReturned:  0,
	}, loans.ByStatus)

	owner, err := f.stats.User(ctx, f.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, f.owner.Username, owner.User.Username)
	assert.Equal(t, int64(2), owner.BooksOwnedTotal)
	assert.Equal(t, int64(0), owner.LoansOutTotal)
	assert.Equal(t, int64(3), owner.LoansInTotal)

	requester, err := f.stats.User(ctx, f.requester.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), requester.BooksOwnedTotal)
	assert.Equal(t, int64(2), requester.LoansOutTotal)
	assert.Equal(t, int64(1), requester.LoansOutByStatus[models.LoanStatusAccepted])
	assert.Equal(t, int64(1), requester.LoansOutByStatus[models.LoanStatusRejected])
	assert.Equal(t, int64(0), requester.LoansOutByStatus[models.LoanStatusPending])

	_, err = f.stats.User(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}
