package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a requested record does not exist in the database.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique constraint.
var ErrDuplicate = errors.New("duplicate")

// ErrConflict is returned when a conditional update matched no row because
// the record was no longer in the expected state.
var ErrConflict = errors.New("conflict")

const (
	codeUniqueViolation           = "23505"
	codeInvalidTextRepresentation = "22P02"
)

// notFound maps pgx.ErrNoRows to ErrNotFound. An id that is not a valid
// UUID cannot match a row either, so invalid_text_representation maps the
// same way.
func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) || hasCode(err, codeInvalidTextRepresentation) {
		return ErrNotFound
	}
	return err
}

func isDuplicate(err error) bool {
	return hasCode(err, codeUniqueViolation)
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
