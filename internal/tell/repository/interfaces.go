package repository

import (
	"context"

	"github.com/chankeeper/chankeeper/internal/domain/models"
)

// TellRepository stores the deferred message queue. Implementations persist
// every mutation; GetAll returns messages ordered by id (queue order).
type TellRepository interface {
	Add(ctx context.Context, msg *models.TellMessage) error

	Update(ctx context.Context, msg *models.TellMessage) error

	Remove(ctx context.Context, id int64) error

	GetAll(ctx context.Context) ([]*models.TellMessage, error)

	Count(ctx context.Context) (int, error)
}
