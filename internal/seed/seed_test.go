package seed

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/billdesk/internal/migration"
	taxdomain "github.com/smallbiznis/billdesk/internal/tax/domain"
	workspacedomain "github.com/smallbiznis/billdesk/internal/workspace/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestEnsureDemoWorkspaceIsIdempotent(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, migration.AutoMigrate(db))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := EnsureDemoWorkspace(ctx, db, node)
	require.NoError(t, err)
	second, err := EnsureDemoWorkspace(ctx, db, node)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first.ServiceIDs, 2)
	assert.Len(t, first.TaxIDs, 2)

	var workspaces, taxes int64
	require.NoError(t, db.Model(&workspacedomain.Workspace{}).Count(&workspaces).Error)
	require.NoError(t, db.Model(&taxdomain.Tax{}).Where("workspace_id = ?", first.WorkspaceID).Count(&taxes).Error)
	assert.Equal(t, int64(1), workspaces)
	assert.Equal(t, int64(2), taxes)
}

func TestEnsureDemoWorkspaceRequiresHandles(t *testing.T) {
	_, err := EnsureDemoWorkspace(context.Background(), nil, nil)
	assert.Error(t, err)
}
