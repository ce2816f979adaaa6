// Package replies provides PostgreSQL-backed persistence for post replies.
package replies

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

// Create inserts reply. If the parent post no longer exists the foreign key
// fails and common.ErrorConstraint is returned.
func (r *PostgresRepository) Create(ctx context.Context, reply *models.Reply) error {
	query := `
		INSERT INTO replies (id, content, author_id, post_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query, reply.ID, reply.Content, reply.AuthorID, reply.PostID, reply.CreatedAt)
	if err != nil {
		return dbx.TranslateError(err)
	}
	return nil
}

// ListByPost returns the post's replies oldest first, with author summaries.
func (r *PostgresRepository) ListByPost(ctx context.Context, postID string) ([]models.Reply, error) {
	query := `
		SELECT r.id, r.content, r.author_id, r.post_id, r.created_at, u.id, u.email, u.name
		FROM replies r JOIN users u ON u.id = r.author_id
		WHERE r.post_id = $1
		ORDER BY r.created_at ASC, r.id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to select replies: %w", err)
	}
	defer rows.Close()

	result := []models.Reply{}
	for rows.Next() {
		var item models.Reply
		var author models.UserSummary
		if err := rows.Scan(
			&item.ID, &item.Content, &item.AuthorID, &item.PostID, &item.CreatedAt,
			&author.ID, &author.Email, &author.Name,
		); err != nil {
			return nil, err
		}
		item.Author = &author
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Reply, error) {
	query := `
		SELECT id, content, author_id, post_id, created_at FROM replies
		WHERE id = $1
	`
	var item models.Reply
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID, &item.Content, &item.AuthorID, &item.PostID, &item.CreatedAt,
	)
	if err != nil {
		return nil, dbx.TranslateError(err)
	}
	return &item, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM replies WHERE id = $1`, id)
	if err != nil {
		return dbx.TranslateError(err)
	}
	return dbx.ExpectOneRow(res)
}
