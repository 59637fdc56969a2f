package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	taxdomain "github.com/smallbiznis/billdesk/internal/tax/domain"
	workspacedomain "github.com/smallbiznis/billdesk/internal/workspace/domain"
	"gorm.io/gorm"
)

const (
	demoWorkspaceName = "Demo Workspace"
	demoBillerEmail   = "billing@demo.billdesk.local"
)

// Demo holds the ids of the seeded demo workspace.
type Demo struct {
	WorkspaceID snowflake.ID
	BillerID    snowflake.ID
	ClientID    snowflake.ID
	ServiceIDs  []snowflake.ID
	TaxIDs      []snowflake.ID
}

// EnsureDemoWorkspace seeds a workspace with a biller, a client, two services
// and two taxes. Running it again returns the existing rows.
func EnsureDemoWorkspace(ctx context.Context, db *gorm.DB, node *snowflake.Node) (Demo, error) {
	if db == nil {
		return Demo{}, errors.New("seed database handle is required")
	}
	if node == nil {
		return Demo{}, errors.New("seed id generator is required")
	}

	var demo Demo
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()

		ws, err := ensureWorkspaceTx(ctx, tx, node, now)
		if err != nil {
			return err
		}
		demo.WorkspaceID = ws.ID

		biller := workspacedomain.Biller{ID: node.Generate(), Name: "Demo Biller", Email: demoBillerEmail, CreatedAt: now, UpdatedAt: now}
		if err := firstOrCreate(ctx, tx, &biller, "email = ?", demoBillerEmail); err != nil {
			return err
		}
		demo.BillerID = biller.ID

		client := workspacedomain.Client{ID: node.Generate(), WorkspaceID: ws.ID, Name: "Northwind Traders", Email: "ap@northwind.test", CreatedAt: now, UpdatedAt: now}
		if err := firstOrCreate(ctx, tx, &client, "workspace_id = ? AND name = ?", ws.ID, client.Name); err != nil {
			return err
		}
		demo.ClientID = client.ID

		services := []workspacedomain.Service{
			{Name: "Consulting", Code: "CONS", UnitPrice: decimal.RequireFromString("150.00")},
			{Name: "Hosting", Code: "HOST", UnitPrice: decimal.RequireFromString("49.90")},
		}
		for i := range services {
			svc := &services[i]
			svc.ID, svc.WorkspaceID, svc.CreatedAt, svc.UpdatedAt = node.Generate(), ws.ID, now, now
			if err := firstOrCreate(ctx, tx, svc, "workspace_id = ? AND code = ?", ws.ID, svc.Code); err != nil {
				return err
			}
			demo.ServiceIDs = append(demo.ServiceIDs, svc.ID)
		}

		taxes := []taxdomain.Tax{
			{Name: "VAT", Percentage: decimal.RequireFromString("10"), IsDefault: true},
			{Name: "Service Tax", Percentage: decimal.RequireFromString("5")},
		}
		for i := range taxes {
			tax := &taxes[i]
			tax.ID, tax.WorkspaceID, tax.CreatedAt, tax.UpdatedAt = node.Generate(), ws.ID, now, now
			if err := firstOrCreate(ctx, tx, tax, "workspace_id = ? AND name = ?", ws.ID, tax.Name); err != nil {
				return err
			}
			demo.TaxIDs = append(demo.TaxIDs, tax.ID)
		}
		return nil
	})
	return demo, err
}

func ensureWorkspaceTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, now time.Time) (workspacedomain.Workspace, error) {
	ws := workspacedomain.Workspace{ID: node.Generate(), Name: demoWorkspaceName, CreatedAt: now, UpdatedAt: now}
	err := firstOrCreate(ctx, tx, &ws, "name = ?", demoWorkspaceName)
	return ws, err
}

// firstOrCreate loads the row matching query into dest, or inserts dest.
func firstOrCreate[T any](ctx context.Context, tx *gorm.DB, dest *T, query string, args ...any) error {
	var found T
	err := tx.WithContext(ctx).Where(query, args...).First(&found).Error
	if err == nil {
		*dest = found
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return tx.WithContext(ctx).Create(dest).Error
}
