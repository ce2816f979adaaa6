// Package users provides the PostgreSQL-backed credential store.
package users

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/postboard/internal/dbx"
	"github.com/dmitrijs2005/postboard/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts user together with its initial refresh-token hash, if
// any. A duplicate email yields common.ErrorAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) error {
	query :=
		`INSERT INTO users (id, email, name, password_hash, refresh_token_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 `

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.Name, user.PasswordHash, user.RefreshTokenHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return dbx.TranslateError(err)
	}

	return nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT id, email, name, password_hash, refresh_token_hash, created_at, updated_at FROM users
		 WHERE email = $1
		 `

	return r.getOne(ctx, query, email)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT id, email, name, password_hash, refresh_token_hash, created_at, updated_at FROM users
		 WHERE id = $1
		 `

	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.RefreshTokenHash,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, dbx.TranslateError(err)
	}

	return user, nil
}

// SetRefreshTokenHash overwrites the stored hash unconditionally. A nil
// hash ends the user's session.
func (r *PostgresRepository) SetRefreshTokenHash(ctx context.Context, id string, hash *string) error {
	query :=
		`UPDATE users SET refresh_token_hash = $2, updated_at = now()
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, id, hash)
	if err != nil {
		return dbx.TranslateError(err)
	}

	return dbx.ExpectOneRow(res)
}

// RotateRefreshTokenHash replaces oldHash with newHash only if oldHash is
// still the stored value. It reports false when another refresh got there
// first or the session was cleared.
func (r *PostgresRepository) RotateRefreshTokenHash(ctx context.Context, id, oldHash, newHash string) (bool, error) {
	query :=
		`UPDATE users SET refresh_token_hash = $3, updated_at = now()
		 WHERE id = $1 AND refresh_token_hash = $2
		 `

	res, err := r.db.ExecContext(ctx, query, id, oldHash, newHash)
	if err != nil {
		return false, dbx.TranslateError(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}

	return n == 1, nil
}
