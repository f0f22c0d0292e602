package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAccountAdjust_CreatesAccountLazily(t *testing.T) {
	db := newTestDB(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	account, err := repo.Adjust(ctx, nil, 7, 100, 20)
	require.NoError(t, err)
	require.Equal(t, int64(7), account.UserID)
	require.Equal(t, int64(100), account.Points)
	require.Equal(t, int64(20), account.Experience)
	require.Equal(t, 1, account.Version)
}

func TestAccountAdjust_RejectsOverdraw(t *testing.T) {
	db := newTestDB(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	_, err := repo.Adjust(ctx, nil, 7, 50, 0)
	require.NoError(t, err)

	_, err = repo.Adjust(ctx, nil, 7, -51, 0)
	require.ErrorIs(t, err, ErrNotEnoughPoints)

	// balance untouched after the rejected debit
	account, err := repo.GetByUserID(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, int64(50), account.Points)
}

func TestAccountAdjust_ExperienceNeverGuarded(t *testing.T) {
	db := newTestDB(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	account, err := repo.Adjust(ctx, nil, 9, 0, 500)
	require.NoError(t, err)
	require.Equal(t, int64(0), account.Points)
	require.Equal(t, int64(500), account.Experience)
}

func TestAccountGetByUserID_NotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewAccountRepository(db)

	_, err := repo.GetByUserID(context.Background(), 404)
	require.ErrorIs(t, err, ErrAccountNotFound)
}
