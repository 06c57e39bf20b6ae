package federation

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/taskflow/internal/config"
	"github.com/spec-kit/taskflow/internal/domain"
)

var testFederation = config.FederationConfig{
	Secret:          "shared-secret",
	Issuer:          "http://localhost:3000",
	TTLMinutes:      60,
	ExternalBaseURL: "http://localhost:8080",
	LoginPath:       "/wp-login.php",
}

func TestMapRole(t *testing.T) {
	require.Equal(t, "editor", MapRole("MANAGER"))
	require.Equal(t, "author", MapRole("EMPLOYEE"))
	require.Equal(t, "subscriber", MapRole("ADMIN"))
	require.Equal(t, "subscriber", MapRole(""))
	require.Equal(t, "subscriber", MapRole("manager"))
}

func TestMintDecodeRoundTrip(t *testing.T) {
	now := time.Date(2024, 10, 20, 9, 0, 0, 0, time.UTC)
	minter := NewMinter(testFederation).WithClock(func() time.Time { return now })
	decoder := NewDecoder(testFederation.Secret, testFederation.Issuer).WithClock(func() time.Time { return now })

	minted, err := minter.Mint(Subject{ID: "u-1", Email: "a@b.com", DisplayName: "Alice", Role: domain.RoleManager})
	require.NoError(t, err)
	require.NotEmpty(t, minted.ID)

	claims, err := decoder.Decode(minted.Token)
	require.NoError(t, err)
	require.Equal(t, "a@b.com", claims.Data.User.Email)
	require.Equal(t, "Alice", claims.Data.User.DisplayName)
	require.Equal(t, "u-1", claims.Data.User.ID)
	require.Equal(t, "editor", MapRole(claims.Data.User.Role))
	require.Equal(t, "http://localhost:3000", claims.Issuer)
	require.Equal(t, minted.ID, claims.ID)
	require.Equal(t, now, claims.IssuedAt.Time.UTC())
	require.Equal(t, now, claims.NotBefore.Time.UTC())
	require.Equal(t, now.Add(time.Hour), claims.ExpiresAt.Time.UTC())
}

func TestDecodeRejects(t *testing.T) {
	now := time.Date(2024, 10, 20, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	minted, err := NewMinter(testFederation).WithClock(clock).Mint(Subject{ID: "u-1", Email: "a@b.com", Role: domain.RoleEmployee})
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewDecoder("other", testFederation.Issuer).WithClock(clock).Decode(minted.Token)
		require.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		later := func() time.Time { return now.Add(time.Hour) }
		_, err := NewDecoder(testFederation.Secret, testFederation.Issuer).WithClock(later).Decode(minted.Token)
		require.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		_, err := NewDecoder(testFederation.Secret, "https://elsewhere").WithClock(clock).Decode(minted.Token)
		require.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
	})

	t.Run("missing email", func(t *testing.T) {
		claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}}
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testFederation.Secret))
		require.NoError(t, err)
		_, err = NewDecoder(testFederation.Secret, "").WithClock(clock).Decode(raw)
		require.ErrorIs(t, err, ErrNoEmail)
	})

	t.Run("empty secret", func(t *testing.T) {
		_, err := NewDecoder("", "").Decode(minted.Token)
		require.Error(t, err)
	})
}

func TestMintRequiresEmail(t *testing.T) {
	_, err := NewMinter(testFederation).Mint(Subject{ID: "u-1", Role: domain.RoleManager})
	require.Error(t, err)
}
