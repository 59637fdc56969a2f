package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	taxdomain "github.com/smallbiznis/billdesk/internal/tax/domain"
	"github.com/smallbiznis/billdesk/pkg/db/option"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) taxdomain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) taxdomain.Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, tax *taxdomain.Tax) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO taxes (id, workspace_id, name, percentage, is_default, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tax.ID,
		tax.WorkspaceID,
		tax.Name,
		tax.Percentage,
		tax.IsDefault,
		tax.CreatedAt,
		tax.UpdatedAt,
	).Error
}

func (r *repository) FindByID(ctx context.Context, workspaceID, id snowflake.ID) (*taxdomain.Tax, error) {
	var tax taxdomain.Tax
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, workspace_id, name, percentage, is_default, created_at, updated_at
		 FROM taxes
		 WHERE workspace_id = ? AND id = ?`,
		workspaceID,
		id,
	).Scan(&tax).Error
	if err != nil {
		return nil, err
	}
	if tax.ID == 0 {
		return nil, nil
	}
	return &tax, nil
}

func (r *repository) FindByIDs(ctx context.Context, workspaceID snowflake.ID, ids []snowflake.ID) ([]taxdomain.Tax, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []taxdomain.Tax
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, workspace_id, name, percentage, is_default, created_at, updated_at
		 FROM taxes
		 WHERE workspace_id = ? AND id IN ?
		 ORDER BY id ASC`,
		workspaceID,
		ids,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) List(ctx context.Context, workspaceID snowflake.ID) ([]taxdomain.Tax, error) {
	var items []taxdomain.Tax
	stmt := r.db.WithContext(ctx).
		Model(&taxdomain.Tax{}).
		Where("workspace_id = ?", workspaceID)

	stmt = option.WithSortBy(option.QuerySortBy{Default: "name"}).Apply(stmt)
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) Update(ctx context.Context, tax *taxdomain.Tax) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE taxes
		 SET name = ?, percentage = ?, is_default = ?, updated_at = ?
		 WHERE workspace_id = ? AND id = ?`,
		tax.Name,
		tax.Percentage,
		tax.IsDefault,
		tax.UpdatedAt,
		tax.WorkspaceID,
		tax.ID,
	).Error
}

func (r *repository) Delete(ctx context.Context, workspaceID, id snowflake.ID) (int64, error) {
	res := r.db.WithContext(ctx).Exec(
		`DELETE FROM taxes WHERE workspace_id = ? AND id = ?`,
		workspaceID,
		id,
	)
	return res.RowsAffected, res.Error
}
