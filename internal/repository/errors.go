package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned when a write violates the unique email constraint.
	ErrDuplicateEmail = errors.New("email already in use")
)

const (
	uniqueViolation    = "23505"
	invalidTextUUIDArg = "22P02"
)

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return ErrDuplicateEmail
		case invalidTextUUIDArg:
			// A malformed id can never match a row.
			return ErrNotFound
		}
	}
	return err
}
