package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, tax *Tax) error
	FindByID(ctx context.Context, workspaceID, id snowflake.ID) (*Tax, error)
	FindByIDs(ctx context.Context, workspaceID snowflake.ID, ids []snowflake.ID) ([]Tax, error)
	List(ctx context.Context, workspaceID snowflake.ID) ([]Tax, error)
	Update(ctx context.Context, tax *Tax) error
	Delete(ctx context.Context, workspaceID, id snowflake.ID) (int64, error)
}
