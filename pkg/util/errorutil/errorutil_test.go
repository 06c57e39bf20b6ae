package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		require.Nil(t, ToDomainError(nil))
	})

	t.Run("wrapped domain error is unwrapped", func(t *testing.T) {
		err := fmt.Errorf("lookup: %w", NewDuplicateEmail())
		de := ToDomainError(err)
		require.Equal(t, CodeDuplicateEmail, de.Code)
		require.Equal(t, http.StatusConflict, de.HTTPStatus)
	})

	t.Run("deadline maps to service unavailable", func(t *testing.T) {
		de := ToDomainError(context.DeadlineExceeded)
		require.Equal(t, CodeServiceUnavailable, de.Code)
		require.Equal(t, http.StatusServiceUnavailable, de.HTTPStatus)
	})

	t.Run("fiber errors keep their status", func(t *testing.T) {
		de := ToDomainError(fiber.NewError(http.StatusNotFound, "Cannot GET /nope"))
		require.Equal(t, CodeNotFound, de.Code)
		require.Equal(t, http.StatusNotFound, de.HTTPStatus)
	})

	t.Run("unknown errors become internal and hide the cause", func(t *testing.T) {
		de := ToDomainError(errors.New("pq: relation users does not exist"))
		require.Equal(t, CodeInternal, de.Code)
		require.Equal(t, "internal server error", de.Message)
	})
}

func TestTaxonomyStatuses(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{NewInvalidCredentials(), CodeInvalidCredentials, http.StatusUnauthorized},
		{NewAccountDisabled(), CodeAccountDisabled, http.StatusForbidden},
		{NewMissingToken(), CodeMissingToken, http.StatusUnauthorized},
		{NewInvalidToken(), CodeInvalidToken, http.StatusUnauthorized},
		{NewTokenExpired(), CodeTokenExpired, http.StatusUnauthorized},
		{NewForbidden("no"), CodeForbidden, http.StatusForbidden},
		{NewNotFound("task", nil), CodeNotFound, http.StatusNotFound},
		{NewInvalidField("bad", nil), CodeInvalidField, http.StatusBadRequest},
		{NewInvalidValue("bad", nil), CodeInvalidValue, http.StatusBadRequest},
		{NewDuplicateEmail(), CodeDuplicateEmail, http.StatusConflict},
		{NewServiceUnavailable(nil), CodeServiceUnavailable, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			require.True(t, IsKind(tc.err, tc.code))
			require.Equal(t, tc.status, ToDomainError(tc.err).HTTPStatus)
		})
	}
}
