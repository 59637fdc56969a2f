package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service is the tax catalog of a workspace. Lookups are always scoped by
// workspace; a tax of another workspace behaves as if it did not exist.
type Service interface {
	// WithTx returns a catalog bound to tx, so reads observe the caller's
	// uncommitted writes.
	WithTx(tx *gorm.DB) Service

	// GetByIDs is permissive: ids that do not resolve are simply absent from
	// the result.
	GetByIDs(ctx context.Context, workspaceID snowflake.ID, ids []snowflake.ID) (map[snowflake.ID]Tax, error)
	ListByWorkspace(ctx context.Context, workspaceID snowflake.ID) ([]Tax, error)
	Get(ctx context.Context, workspaceID, id snowflake.ID) (Tax, error)

	Create(ctx context.Context, req CreateRequest) (Tax, error)
	Update(ctx context.Context, req UpdateRequest) (Tax, error)
	Delete(ctx context.Context, workspaceID, id snowflake.ID) error
}

type CreateRequest struct {
	WorkspaceID snowflake.ID    `json:"-"`
	Name        string          `json:"name"`
	Percentage  decimal.Decimal `json:"percentage"`
	IsDefault   bool            `json:"is_default"`
}

type UpdateRequest struct {
	WorkspaceID snowflake.ID     `json:"-"`
	ID          snowflake.ID     `json:"-"`
	Name        *string          `json:"name,omitempty"`
	Percentage  *decimal.Decimal `json:"percentage,omitempty"`
	IsDefault   *bool            `json:"is_default,omitempty"`
}
