package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository reads the reference tables owned by the surrounding system.
// Lookups return nil, nil when the row does not exist.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindWorkspace(ctx context.Context, id snowflake.ID) (*Workspace, error)
	FindBiller(ctx context.Context, id snowflake.ID) (*Biller, error)
	FindClient(ctx context.Context, workspaceID, id snowflake.ID) (*Client, error)
	FindServices(ctx context.Context, workspaceID snowflake.ID, ids []snowflake.ID) ([]*Service, error)
}
