package repository_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JaimeStill/palette/pkg/repository"
)

var (
	errNotFound  = errors.New("not found")
	errDuplicate = errors.New("duplicate")
	errConflict  = errors.New("conflict")
)

func TestErrorsMap(t *testing.T) {
	other := errors.New("connection reset")
	full := repository.Errors{NotFound: errNotFound, Duplicate: errDuplicate, Conflict: errConflict}

	tests := []struct {
		name string
		errs repository.Errors
		in   error
		want error
	}{
		{"nil", full, nil, nil},
		{"no rows", full, sql.ErrNoRows, errNotFound},
		{"wrapped no rows", full, fmt.Errorf("find: %w", sql.ErrNoRows), errNotFound},
		{"unique", full, &pgconn.PgError{Code: "23505"}, errDuplicate},
		{"check", full, &pgconn.PgError{Code: "23514"}, errConflict},
		{"foreign key", full, &pgconn.PgError{Code: "23503"}, errConflict},
		{"passthrough", full, other, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.errs.Map(tt.in)
			if !errors.Is(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorsMapUnset(t *testing.T) {
	in := &pgconn.PgError{Code: "23514"}
	got := repository.Errors{NotFound: errNotFound}.Map(in)

	var pgErr *pgconn.PgError
	if !errors.As(got, &pgErr) || pgErr.Code != "23514" {
		t.Errorf("got %v, want original pg error", got)
	}
}

func TestMapError(t *testing.T) {
	if got := repository.MapError(sql.ErrNoRows, errNotFound, errDuplicate); !errors.Is(got, errNotFound) {
		t.Errorf("got %v, want %v", got, errNotFound)
	}
	if got := repository.MapError(&pgconn.PgError{Code: "23505"}, errNotFound, errDuplicate); !errors.Is(got, errDuplicate) {
		t.Errorf("got %v, want %v", got, errDuplicate)
	}
}
