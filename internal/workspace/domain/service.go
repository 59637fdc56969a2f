package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Directory answers existence questions about workspace reference data.
// Every method returns a NotFound-class error naming the missing entity.
type Directory interface {
	WithTx(tx *gorm.DB) Directory
	EnsureWorkspace(ctx context.Context, workspaceID snowflake.ID) error
	EnsureClient(ctx context.Context, workspaceID, clientID snowflake.ID) error
	EnsureBiller(ctx context.Context, billerID snowflake.ID) error
	// Services returns the requested services keyed by id, failing when any
	// id is not part of the workspace catalog.
	Services(ctx context.Context, workspaceID snowflake.ID, ids []snowflake.ID) (map[snowflake.ID]*Service, error)
}
