// Package model defines the physical records behind every logical table.
package model

import (
	"math"
	"time"
)

// Schema is a logical table definition.
type Schema struct {
	ID          int64      `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Description *string    `json:"desc,omitempty" yaml:"desc,omitempty"`
	Deleted     bool       `json:"deleted" yaml:"deleted"`
	DeleteDate  *time.Time `json:"delete_date,omitempty" yaml:"delete_date,omitempty"`
}

// Field is a typed attribute of exactly one Schema. Meta holds the JSON
// metadata descriptor; RefID points at the referenced Field, if any.
type Field struct {
	ID       int64  `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Meta     string `json:"meta" yaml:"meta"`
	RefID    *int64 `json:"ref_id,omitempty" yaml:"ref_id,omitempty"`
	SchemaID int64  `json:"schema_id" yaml:"schema_id"`
	Deleted  bool   `json:"deleted" yaml:"deleted"`
}

// Entity is one row of a Schema.
type Entity struct {
	ID       int64  `json:"id"`
	Key      string `json:"key"`
	SchemaID int64  `json:"schema_id"`
	Deleted  bool   `json:"deleted"`
}

// Value is one cell: the serialized value of a Field for an Entity.
type Value struct {
	ID       int64  `json:"id"`
	Value    string `json:"value"`
	FieldID  int64  `json:"field_id"`
	EntityID int64  `json:"entity_id"`
	Deleted  bool   `json:"deleted"`
}

// PageInfo describes one page of a paginated listing.
type PageInfo struct {
	Page  int   `json:"page"`
	Size  int   `json:"size"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

// NewPageInfo computes the page count for total items split into pages of size.
func NewPageInfo(page, size int, total int64) PageInfo {
	pages := 0
	if size > 0 && total > 0 {
		n := total / int64(size)
		if total%int64(size) != 0 {
			n++
		}
		pages = int(n)
	}
	return PageInfo{Page: page, Size: size, Total: total, Pages: pages}
}

// Offset returns the zero-based offset of the first item on the page,
// saturating at math.MaxInt.
func (p PageInfo) Offset() int {
	if p.Page <= 1 || p.Size <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Size
}
