package repository

import (
	"context"

	"github.com/smallbiznis/billdesk/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a generic gorm-backed store for simple lookups.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Exists(ctx context.Context, query *T) (bool, error)
	Create(ctx context.Context, resource *T) error
	Count(ctx context.Context, query *T) (int64, error)
}
