// Package option holds reusable gorm query modifiers.
package option

import (
	"strings"

	"gorm.io/gorm"
)

type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type queryOptionFunc func(db *gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

// QuerySortBy describes a requested ordering. Only columns present in Allow
// are honored; anything else falls back to Default.
type QuerySortBy struct {
	SortBy  string
	OrderBy string
	Allow   map[string]bool
	Default string
}

func WithQuerySortBy(sortBy, orderBy string, allow map[string]bool) QuerySortBy {
	return QuerySortBy{
		SortBy:  strings.ToLower(strings.TrimSpace(sortBy)),
		OrderBy: strings.ToLower(strings.TrimSpace(orderBy)),
		Allow:   allow,
	}
}

func WithSortBy(q QuerySortBy) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		column := q.SortBy
		if column == "" || !q.Allow[column] {
			column = q.Default
		}
		if column == "" {
			column = "id"
		}
		direction := "ASC"
		if q.OrderBy == "desc" {
			direction = "DESC"
		}
		// id is the tie-breaker so orderings are stable across pages.
		if column == "id" {
			return db.Order("id " + direction)
		}
		return db.Order(column + " " + direction).Order("id ASC")
	})
}

type Operator string

const (
	EQ  Operator = "="
	GT  Operator = ">"
	GTE Operator = ">="
	LT  Operator = "<"
	LTE Operator = "<="
)

type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

func ApplyOperator(c Condition) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(c.Field+" "+string(c.Operator)+" ?", c.Value)
	})
}

func WithLimit(limit int) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Limit(limit)
	})
}
