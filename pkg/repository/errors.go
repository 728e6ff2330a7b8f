package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes translated by Map.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// Errors names the domain errors a repository translates database
// failures into. A nil field leaves that failure unmapped.
type Errors struct {
	NotFound  error
	Duplicate error
	Conflict  error
}

// Map translates err using the domain errors in e. sql.ErrNoRows becomes
// NotFound, unique violations become Duplicate, and check or foreign key
// violations become Conflict. Other errors are returned unchanged.
func (e Errors) Map(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) && e.NotFound != nil {
		return e.NotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgUniqueViolation:
		if e.Duplicate != nil {
			return e.Duplicate
		}
	case pgCheckViolation, pgForeignKeyViolation:
		if e.Conflict != nil {
			return e.Conflict
		}
	}
	return err
}

// MapError maps not-found and duplicate failures.
func MapError(err error, notFoundErr, duplicateErr error) error {
	return Errors{NotFound: notFoundErr, Duplicate: duplicateErr}.Map(err)
}
