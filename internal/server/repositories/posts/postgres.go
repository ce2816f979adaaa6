// Package posts provides PostgreSQL-backed persistence for posts.
package posts

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/postboard/internal/dbx"
	"github.com/dmitrijs2005/postboard/internal/server/models"
)

// PostgresRepository implements post storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectWithAuthor = `SELECT p.id, p.title, p.content, p.published, p.file_ref, p.author_id, p.created_at, p.updated_at,
		u.id, u.email, u.name
		FROM posts p JOIN users u ON u.id = p.author_id`

// searchFilter matches a case-sensitive substring of title or content; an
// empty search matches everything.
const searchFilter = `($1::text = '' OR position($1::text in p.title) > 0 OR position($1::text in p.content) > 0)`

type scanner interface {
	Scan(dest ...any) error
}

func scanPostWithAuthor(s scanner) (*models.Post, error) {
	var p models.Post
	var a models.UserSummary
	if err := s.Scan(
		&p.ID, &p.Title, &p.Content, &p.Published, &p.FileRef, &p.AuthorID, &p.CreatedAt, &p.UpdatedAt,
		&a.ID, &a.Email, &a.Name,
	); err != nil {
		return nil, err
	}
	p.Author = &a
	return &p, nil
}

func (r *PostgresRepository) Create(ctx context.Context, post *models.Post) error {
	query := `
		INSERT INTO posts (id, title, content, published, file_ref, author_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		post.ID, post.Title, post.Content, post.Published, post.FileRef, post.AuthorID, post.CreatedAt, post.UpdatedAt)
	if err != nil {
		return dbx.TranslateError(err)
	}
	return nil
}

// List returns one page of posts, newest first, with author summaries.
func (r *PostgresRepository) List(ctx context.Context, params models.ListParams) ([]models.Post, error) {
	query := selectWithAuthor + `
		WHERE ` + searchFilter + `
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, params.Search, params.Limit, params.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to select posts: %w", err)
	}
	defer rows.Close()

	result := make([]models.Post, 0, params.Limit)
	for rows.Next() {
		p, err := scanPostWithAuthor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Count(ctx context.Context, search string) (int, error) {
	query := `SELECT count(*) FROM posts p WHERE ` + searchFilter

	var n int
	if err := r.db.QueryRowContext(ctx, query, search).Scan(&n); err != nil {
		return 0, dbx.TranslateError(err)
	}
	return n, nil
}

// GetByID returns the post with its author summary. Replies are loaded
// separately.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	query := selectWithAuthor + `
		WHERE p.id = $1
	`
	p, err := scanPostWithAuthor(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, dbx.TranslateError(err)
	}
	return p, nil
}

// GetForUpdate locks the post row until the surrounding transaction ends.
// It must be called with a *sql.Tx.
func (r *PostgresRepository) GetForUpdate(ctx context.Context, id string) (*models.Post, error) {
	query := `
		SELECT id, title, content, published, file_ref, author_id, created_at, updated_at
		FROM posts WHERE id = $1
		FOR UPDATE
	`
	var p models.Post
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Title, &p.Content, &p.Published, &p.FileRef, &p.AuthorID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, dbx.TranslateError(err)
	}
	return &p, nil
}

// Update writes the mutable fields. author_id is never touched.
func (r *PostgresRepository) Update(ctx context.Context, post *models.Post) error {
	query := `
		UPDATE posts SET title = $2, content = $3, published = $4, file_ref = $5, updated_at = $6
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		post.ID, post.Title, post.Content, post.Published, post.FileRef, post.UpdatedAt)
	if err != nil {
		return dbx.TranslateError(err)
	}
	return dbx.ExpectOneRow(res)
}

// Delete removes the post; its replies go with it through the foreign key.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return dbx.TranslateError(err)
	}
	return dbx.ExpectOneRow(res)
}
