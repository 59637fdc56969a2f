package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billdesk/internal/workspace/domain"
	"github.com/smallbiznis/billdesk/pkg/db/option"
	"github.com/smallbiznis/billdesk/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	db         *gorm.DB
	workspaces repository.Repository[domain.Workspace]
	billers    repository.Repository[domain.Biller]
	clients    repository.Repository[domain.Client]
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{
		db:         db,
		workspaces: repository.ProvideStore[domain.Workspace](db),
		billers:    repository.ProvideStore[domain.Biller](db),
		clients:    repository.ProvideStore[domain.Client](db),
	}
}

func (r *repo) WithTx(tx *gorm.DB) domain.Repository {
	if tx == nil {
		return r
	}
	return &repo{
		db:         tx,
		workspaces: r.workspaces.WithTrx(tx),
		billers:    r.billers.WithTrx(tx),
		clients:    r.clients.WithTrx(tx),
	}
}

// Struct filters skip zero fields, so a zero id must never reach FindOne.

func (r *repo) FindWorkspace(ctx context.Context, id snowflake.ID) (*domain.Workspace, error) {
	if id == 0 {
		return nil, nil
	}
	return r.workspaces.FindOne(ctx, &domain.Workspace{ID: id})
}

func (r *repo) FindBiller(ctx context.Context, id snowflake.ID) (*domain.Biller, error) {
	if id == 0 {
		return nil, nil
	}
	return r.billers.FindOne(ctx, &domain.Biller{ID: id})
}

func (r *repo) FindClient(ctx context.Context, workspaceID, id snowflake.ID) (*domain.Client, error) {
	if workspaceID == 0 || id == 0 {
		return nil, nil
	}
	return r.clients.FindOne(ctx, &domain.Client{ID: id, WorkspaceID: workspaceID})
}

func (r *repo) FindServices(ctx context.Context, workspaceID snowflake.ID, ids []snowflake.ID) ([]*domain.Service, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var services []*domain.Service
	stmt := r.db.WithContext(ctx).
		Model(&domain.Service{}).
		Where("workspace_id = ? AND id IN ?", workspaceID, ids)
	stmt = option.WithSortBy(option.WithQuerySortBy("id", "asc", nil)).Apply(stmt)
	if err := stmt.Find(&services).Error; err != nil {
		return nil, err
	}
	return services, nil
}
