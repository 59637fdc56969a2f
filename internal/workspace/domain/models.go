package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Workspace is a tenant: one business with its own clients, taxes and invoices.
type Workspace struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:varchar(255);not null" json:"name"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Workspace) TableName() string { return "workspaces" }

// Biller is the user issuing an invoice. Billers are not workspace scoped.
type Biller struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:varchar(255);not null" json:"name"`
	Email     string       `gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email" json:"email"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Biller) TableName() string { return "users" }

type Client struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	WorkspaceID snowflake.ID `gorm:"not null;index:ix_clients_workspace" json:"workspace_id"`
	Name        string       `gorm:"type:varchar(255);not null" json:"name"`
	Email       string       `gorm:"type:varchar(255)" json:"email,omitempty"`
	Address     string       `gorm:"type:text" json:"address,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Client) TableName() string { return "clients" }

// Service is a billable item of a workspace's catalog.
type Service struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	WorkspaceID snowflake.ID    `gorm:"not null;index:ix_services_workspace" json:"workspace_id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Code        string          `gorm:"type:varchar(64)" json:"code,omitempty"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(15,2);not null;default:0" json:"unit_price"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Service) TableName() string { return "services" }
