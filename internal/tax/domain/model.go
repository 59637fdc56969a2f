package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// MaxPercentage is the largest value a numeric(7,4) column can hold.
var MaxPercentage = decimal.RequireFromString("999.9999")

// PercentageScale is the number of decimal places a percentage may carry.
const PercentageScale = 4

// Tax is a workspace-scoped tax definition. Percentage is a percent value,
// 10 means ten percent.
type Tax struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	WorkspaceID snowflake.ID    `gorm:"not null;index:ix_taxes_workspace_name,priority:1" json:"workspace_id"`
	Name        string          `gorm:"type:varchar(255);not null;index:ix_taxes_workspace_name,priority:2" json:"name"`
	Percentage  decimal.Decimal `gorm:"type:numeric(7,4);not null" json:"percentage"`
	IsDefault   bool            `gorm:"not null;default:false" json:"is_default"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Tax) TableName() string { return "taxes" }

func (t *Tax) Validate() error {
	if t.Name == "" {
		return ErrInvalidName
	}
	return ValidatePercentage(t.Percentage)
}

// ValidatePercentage accepts values in [0, MaxPercentage] with at most
// PercentageScale decimal places.
func ValidatePercentage(p decimal.Decimal) error {
	if p.IsNegative() || p.GreaterThan(MaxPercentage) {
		return ErrInvalidPercentage
	}
	if !p.Equal(p.Round(PercentageScale)) {
		return ErrInvalidPercentage
	}
	return nil
}
