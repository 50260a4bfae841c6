package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"shelfhub/internal/auth"
	"shelfhub/internal/library"
	"shelfhub/pkg/database/dbtest"
)

func TestSeed(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)

	n, err := seed(ctx, db, "demo@example.com", "123456", bcrypt.MinCost)
	require.NoError(t, err)
	assert.Equal(t, len(samples), n)

	u, err := auth.NewRepo(db).GetByEmail(ctx, "demo@example.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("123456")))

	entries, err := library.NewRepo(db).List(ctx, u.ID, library.Filter{})
	require.NoError(t, err)
	assert.Len(t, entries, 8)

	n, err = seed(ctx, db, "demo@example.com", "123456", bcrypt.MinCost)
	require.NoError(t, err)
	assert.Zero(t, n)
}
