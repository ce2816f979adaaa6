package dbx

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes we translate.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// TranslateError maps storage errors onto the common taxonomy:
//
//	sql.ErrNoRows          -> common.ErrorNotFound
//	unique_violation       -> common.ErrorAlreadyExists
//	foreign_key_violation  -> common.ErrorConstraint
//
// The driver error stays in the chain alongside the sentinel. Anything else is wrapped as
// "db error" and keeps its identity for errors.Is / errors.As.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", common.ErrorNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %w", common.ErrorAlreadyExists, err)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %w", common.ErrorConstraint, err)
		}
	}

	return fmt.Errorf("db error: %w", err)
}

// ExpectOneRow turns a zero-row result into common.ErrorNotFound.
func ExpectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
