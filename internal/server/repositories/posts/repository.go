package posts

import (
	"context"

	"github.com/dmitrijs2005/postboard/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, post *models.Post) error
	List(ctx context.Context, params models.ListParams) ([]models.Post, error)
	Count(ctx context.Context, search string) (int, error)
	GetByID(ctx context.Context, id string) (*models.Post, error)
	GetForUpdate(ctx context.Context, id string) (*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id string) error
}
