package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/taskflow/internal/auth"
	"github.com/spec-kit/taskflow/internal/domain"
	apperrors "github.com/spec-kit/taskflow/pkg/util/errorutil"
)

func TestCreateUserAlwaysEmployee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.userSvc.Create(ctx, f.manager.Identity(), CreateUserInput{Name: " Dan ", Email: "Dan@TaskFlow.com", Password: "dan12345"})
	require.NoError(t, err)
	require.Equal(t, domain.RoleEmployee, user.Role)
	require.True(t, user.IsActive)
	require.Equal(t, "dan@taskflow.com", user.Email)
	require.Equal(t, "Dan", user.Name)
	require.NoError(t, auth.ComparePassword(user.PasswordHash, "dan12345"))

	_, token, err := f.auth.IssueToken(ctx, "dan@taskflow.com", "dan12345")
	require.NoError(t, err)
	require.NotEmpty(t, token.Token)
}

func TestCreateUserErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.userSvc.Create(ctx, f.employee.Identity(), CreateUserInput{Name: "x", Email: "x@y.z", Password: "p"})
	require.True(t, apperrors.IsKind(err, apperrors.CodeForbidden))

	_, err = f.userSvc.Create(ctx, f.manager.Identity(), CreateUserInput{Name: "x", Email: "", Password: "p"})
	require.True(t, apperrors.IsKind(err, apperrors.CodeValidation))

	_, err = f.userSvc.Create(ctx, f.manager.Identity(), CreateUserInput{Name: "x", Email: "EMPLOYEE@taskflow.com", Password: "p"})
	require.True(t, apperrors.IsKind(err, apperrors.CodeDuplicateEmail))
}

func TestUpdateUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inactive := false

	updated, err := f.userSvc.Update(ctx, f.manager.Identity(), f.employee.ID, domain.UserPatch{IsActive: &inactive})
	require.NoError(t, err)
	require.False(t, updated.IsActive)

	_, _, err = f.auth.IssueToken(ctx, "employee@taskflow.com", "employee123")
	require.True(t, apperrors.IsKind(err, apperrors.CodeAccountDisabled))

	_, err = f.userSvc.Update(ctx, f.manager.Identity(), f.employee.ID, domain.UserPatch{Email: strPtr("manager@taskflow.com")})
	require.True(t, apperrors.IsKind(err, apperrors.CodeDuplicateEmail))

	_, err = f.userSvc.Update(ctx, f.manager.Identity(), "missing", domain.UserPatch{IsActive: &inactive})
	require.True(t, apperrors.IsKind(err, apperrors.CodeNotFound))

	_, err = f.userSvc.Update(ctx, f.employee.Identity(), f.employee.ID, domain.UserPatch{IsActive: &inactive})
	require.True(t, apperrors.IsKind(err, apperrors.CodeForbidden))
}

func TestListUsers(t *testing.T) {
	f := newFixture(t)

	users, err := f.userSvc.List(context.Background(), f.manager.Identity())
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, f.employee.ID, users[0].ID)

	_, err = f.userSvc.List(context.Background(), f.employee.Identity())
	require.True(t, apperrors.IsKind(err, apperrors.CodeForbidden))
}
