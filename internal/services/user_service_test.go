package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/KGR33N-dev/Portfolio-Backend/internal/database/testutil"
	"github.com/KGR33N-dev/Portfolio-Backend/pkg/crypto"
	appErrors "github.com/KGR33N-dev/Portfolio-Backend/pkg/errors"
)

func TestRegisterCreatesInactiveUser(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	svc, err := NewUserService(db)
	require.NoError(t, err)

	user, err := svc.Register(context.Background(), RegisterInput{
		Username: "writer42",
		Email:    "Writer@Example.com",
		Password: "Sup3rSecret!",
		FullName: "Alex Writer",
	})
	require.NoError(t, err)

	require.Equal(t, "writer@example.com", user.Email)
	require.False(t, user.IsActive)
	require.False(t, user.EmailVerified)
	require.NotNil(t, user.Role)
	require.Equal(t, "user", user.Role.Name)
	require.NotNil(t, user.Rank)
	require.Equal(t, "newbie", user.Rank.Name)

	// The stored password is a bcrypt hash, not the plaintext.
	require.NotEqual(t, "Sup3rSecret!", user.Password)
	require.True(t, crypto.VerifyPassword(user.Password, "Sup3rSecret!"))
}

func TestRegisterEnforcesPasswordPolicy(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	svc, err := NewUserService(db)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterInput{
		Username: "writer42",
		Email:    "writer@example.com",
		Password: "weak",
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	svc, err := NewUserService(db)
	require.NoError(t, err)

	input := RegisterInput{
		Username: "writer42",
		Email:    "writer@example.com",
		Password: "Sup3rSecret!",
	}
	_, err = svc.Register(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), input)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	// Same email with a different username is still a conflict.
	input.Username = "writer43"
	_, err = svc.Register(context.Background(), input)
	require.Error(t, err)
	require.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestActivate(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	svc, err := NewUserService(db)
	require.NoError(t, err)

	user, err := svc.Register(context.Background(), RegisterInput{
		Username: "writer42",
		Email:    "writer@example.com",
		Password: "Sup3rSecret!",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Activate(context.Background(), user.ID))

	stored, err := svc.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.True(t, stored.IsActive)
	require.True(t, stored.EmailVerified)

	require.ErrorIs(t, svc.Activate(context.Background(), "missing"), appErrors.ErrNotFound)
}

func TestGetByEmail(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	svc, err := NewUserService(db)
	require.NoError(t, err)

	_, err = svc.GetByEmail(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = svc.Register(context.Background(), RegisterInput{
		Username: "writer42",
		Email:    "writer@example.com",
		Password: "Sup3rSecret!",
	})
	require.NoError(t, err)

	user, err := svc.GetByEmail(context.Background(), "WRITER@example.com")
	require.NoError(t, err)
	require.Equal(t, "writer42", user.Username)
}
