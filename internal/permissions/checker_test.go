package permissions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/KGR33N-dev/Portfolio-Backend/internal/database/testutil"
	"github.com/KGR33N-dev/Portfolio-Backend/internal/models"
	appErrors "github.com/KGR33N-dev/Portfolio-Backend/pkg/errors"
)

func createUser(t *testing.T, db *gorm.DB, roleName string, active bool) *models.User {
	t.Helper()

	var role models.Role
	require.NoError(t, db.Where("name = ?", roleName).Take(&role).Error)

	user := &models.User{
		Username:      "u-" + roleName,
		Email:         roleName + "@example.com",
		Password:      "irrelevant",
		RoleID:        role.ID,
		IsActive:      active,
		EmailVerified: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestResolveUser(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	checker, err := NewChecker(db)
	require.NoError(t, err)

	user := createUser(t, db, "user", true)

	identity, err := checker.ResolveUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, user.ID, identity.UserID)
	require.NotNil(t, identity.Role)
	require.Equal(t, "user", identity.Role.Name)
	require.Equal(t, 1, identity.Level())
}

func TestResolveUserUnknown(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	checker, err := NewChecker(db)
	require.NoError(t, err)

	_, err = checker.ResolveUser(context.Background(), "no-such-id")
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = checker.ResolveUser(context.Background(), "")
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestResolveUserInactive(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	checker, err := NewChecker(db)
	require.NoError(t, err)

	user := createUser(t, db, "user", false)

	_, err = checker.ResolveUser(context.Background(), user.ID)
	require.ErrorIs(t, err, appErrors.ErrAccountInactive)
}

func TestCheckExactMembership(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	checker, err := NewChecker(db)
	require.NoError(t, err)

	user := createUser(t, db, "user", true)
	identity, err := checker.ResolveUser(context.Background(), user.ID)
	require.NoError(t, err)

	require.True(t, checker.Check(identity, "post.read"))
	require.True(t, checker.Check(identity, "comment.create"))
	require.False(t, checker.Check(identity, "post.create"))
	require.False(t, checker.Check(identity, ""))
}

func TestCheckAdminBypass(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	checker, err := NewChecker(db)
	require.NoError(t, err)

	admin := createUser(t, db, "admin", true)
	identity, err := checker.ResolveUser(context.Background(), admin.ID)
	require.NoError(t, err)

	// Admin level grants permissions outside the explicit list.
	require.True(t, checker.Check(identity, "some.future.permission"))
}

func TestCheckAPIKeySubsetOnly(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	checker, err := NewChecker(db)
	require.NoError(t, err)

	admin := createUser(t, db, "admin", true)
	identity, err := checker.ResolveUser(context.Background(), admin.ID)
	require.NoError(t, err)

	identity.APIKey = &models.APIKey{
		Permissions: datatypes.NewJSONSlice([]string{"post.read"}),
	}

	// The admin owner's level does not widen a key's permission subset.
	require.True(t, checker.Check(identity, "post.read"))
	require.False(t, checker.Check(identity, "post.create"))

	require.NoError(t, checker.Require(identity, "post.read"))
	require.ErrorIs(t, checker.Require(identity, "post.create"), appErrors.ErrForbidden)
}

func TestRegistryBuiltins(t *testing.T) {
	perm, ok := Get("apikey.manage")
	require.True(t, ok)
	require.Equal(t, "auth", perm.Module)

	_, ok = Get("does.not.exist")
	require.False(t, ok)

	all := All()
	require.NotEmpty(t, all)
	for i := 1; i < len(all); i++ {
		require.Less(t, all[i-1].ID, all[i].ID)
	}
}

func TestRegisterValidation(t *testing.T) {
	require.Error(t, Register(Permission{ID: "  "}))
	require.Error(t, Register(Permission{ID: "post.read"}))
}
