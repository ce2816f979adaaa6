package users

import (
	"context"

	"github.com/dmitrijs2005/postboard/internal/server/models"
)

// Repository is the credential store.
type Repository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	SetRefreshTokenHash(ctx context.Context, id string, hash *string) error
	RotateRefreshTokenHash(ctx context.Context, id, oldHash, newHash string) (bool, error)
}
