package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/billdesk/internal/workspace/domain"
	"github.com/smallbiznis/billdesk/internal/workspace/repository"
	"github.com/smallbiznis/billdesk/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc       domain.Directory
	workspace domain.Workspace
	other     domain.Workspace
	client    domain.Client
	biller    domain.Biller
	service   domain.Service
}

func setup(t *testing.T) fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&domain.Workspace{}, &domain.Biller{}, &domain.Client{}, &domain.Service{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	f := fixture{
		workspace: domain.Workspace{ID: node.Generate(), Name: "Acme"},
		other:     domain.Workspace{ID: node.Generate(), Name: "Globex"},
		biller:    domain.Biller{ID: node.Generate(), Name: "Ann", Email: "ann@example.com"},
	}
	f.client = domain.Client{ID: node.Generate(), WorkspaceID: f.workspace.ID, Name: "Client"}
	f.service = domain.Service{ID: node.Generate(), WorkspaceID: f.workspace.ID, Name: "Consulting", UnitPrice: decimal.RequireFromString("100")}

	require.NoError(t, db.Create(&f.workspace).Error)
	require.NoError(t, db.Create(&f.other).Error)
	require.NoError(t, db.Create(&f.biller).Error)
	require.NoError(t, db.Create(&f.client).Error)
	require.NoError(t, db.Create(&f.service).Error)

	f.svc = New(Params{Log: zap.NewNop(), Repo: repository.Provide(db)})
	return f
}

func TestEnsureReferences(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	assert.NoError(t, f.svc.EnsureWorkspace(ctx, f.workspace.ID))
	assert.NoError(t, f.svc.EnsureClient(ctx, f.workspace.ID, f.client.ID))
	assert.NoError(t, f.svc.EnsureBiller(ctx, f.biller.ID))

	err := f.svc.EnsureWorkspace(ctx, 12345)
	assert.ErrorIs(t, err, domain.ErrWorkspaceNotFound)
	assert.True(t, errs.IsNotFound(err))

	assert.ErrorIs(t, f.svc.EnsureWorkspace(ctx, 0), domain.ErrWorkspaceNotFound)
	assert.ErrorIs(t, f.svc.EnsureBiller(ctx, 999), domain.ErrBillerNotFound)
}

func TestEnsureClientIsWorkspaceScoped(t *testing.T) {
	f := setup(t)

	err := f.svc.EnsureClient(context.Background(), f.other.ID, f.client.ID)
	assert.ErrorIs(t, err, domain.ErrClientNotFound)
	assert.NotErrorIs(t, err, domain.ErrWorkspaceNotFound)
}

func TestServicesRejectsForeignOrUnknownIDs(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	byID, err := f.svc.Services(ctx, f.workspace.ID, []snowflake.ID{f.service.ID, f.service.ID})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, "Consulting", byID[f.service.ID].Name)

	_, err = f.svc.Services(ctx, f.other.ID, []snowflake.ID{f.service.ID})
	assert.ErrorIs(t, err, domain.ErrServiceNotFound)

	byID, err = f.svc.Services(ctx, f.workspace.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, byID)
}
