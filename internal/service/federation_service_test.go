package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/taskflow/internal/domain"
	"github.com/spec-kit/taskflow/internal/federation"
	apperrors "github.com/spec-kit/taskflow/pkg/util/errorutil"
)

func TestExchangeMintsFromStoreRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, session, err := f.auth.IssueToken(ctx, "manager@taskflow.com", "manager123")
	require.NoError(t, err)

	raw, err := f.fed.Exchange(ctx, session.Token)
	require.NoError(t, err)

	claims, err := federation.NewDecoder(testFederationConfig.Secret, testFederationConfig.Issuer).Decode(raw)
	require.NoError(t, err)
	require.Equal(t, "manager@taskflow.com", claims.Data.User.Email)
	require.Equal(t, "Alice Manager", claims.Data.User.DisplayName)
	require.Equal(t, "MANAGER", claims.Data.User.Role)
	require.Equal(t, f.manager.ID, claims.Data.User.ID)
	require.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestExchangeRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.fed.Exchange(ctx, "garbage")
	require.True(t, apperrors.IsKind(err, apperrors.CodeInvalidToken))

	_, err = f.fed.Exchange(ctx, "")
	require.True(t, apperrors.IsKind(err, apperrors.CodeMissingToken))

	ghost, err := f.tokens.Issue(domain.Identity{SubjectID: "ghost", Role: domain.RoleEmployee})
	require.NoError(t, err)
	_, err = f.fed.Exchange(ctx, ghost.Token)
	require.True(t, apperrors.IsKind(err, apperrors.CodeInvalidToken))

	inactive := false
	_, err = f.userSvc.Update(ctx, f.manager.Identity(), f.employee.ID, domain.UserPatch{IsActive: &inactive})
	require.NoError(t, err)
	session, err := f.tokens.Issue(f.employee.Identity())
	require.NoError(t, err)
	_, err = f.fed.Exchange(ctx, session.Token)
	require.True(t, apperrors.IsKind(err, apperrors.CodeAccountDisabled))
}

func TestBridgeWithExchanger(t *testing.T) {
	f := newFixture(t)
	bridge := federation.NewBridge(testFederationConfig, f.fed, nil)

	session, err := f.tokens.Issue(f.employee.Identity())
	require.NoError(t, err)

	out := bridge.Resolve(context.Background(), session.Token, "/wp-admin/post-new.php")
	require.Equal(t, federation.StateRedirecting, out.State)
	require.Contains(t, out.Location, "http://localhost:8080/wp-admin/post-new.php?jwt=")

	out = bridge.Resolve(context.Background(), "expired-or-bad", "/wp-admin/")
	require.Equal(t, federation.StateFailed, out.State)
	require.Equal(t, "http://localhost:8080/", out.Location)
}
