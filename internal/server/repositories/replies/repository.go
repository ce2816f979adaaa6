package replies

import (
	"context"

	"github.com/dmitrijs2005/postboard/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, reply *models.Reply) error
	ListByPost(ctx context.Context, postID string) ([]models.Reply, error)
	GetByID(ctx context.Context, id string) (*models.Reply, error)
	Delete(ctx context.Context, id string) error
}
