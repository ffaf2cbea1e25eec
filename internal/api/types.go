package api

import (
	"encoding/json"

	"github.com/vtable/vtable/internal/model"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// ListSchemasRequest is the request body for POST /v1/schema/list/.
type ListSchemasRequest struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

// ListSchemasResponse is the API response for a schema page.
type ListSchemasResponse struct {
	Schema   []model.Schema  `json:"schema"`
	PageInfo model.PageInfo `json:"page_info"`
}

// AddSchemaRequest is the request body for POST /v1/schema/add/.
type AddSchemaRequest struct {
	Name string  `json:"name"`
	Desc *string `json:"desc,omitempty"`
}

// AddSchemaResponse is the API response for a created schema.
type AddSchemaResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// SchemaIDRequest is the request body for the drop and used routes.
type SchemaIDRequest struct {
	ID int64 `json:"id"`
}

// DropSchemaResponse is the API response for POST /v1/schema/drop/.
type DropSchemaResponse struct {
	IsDrop bool `json:"is_drop"`
}

// SchemaNameRequest is the request body for routes addressing a schema by name.
type SchemaNameRequest struct {
	Name string `json:"name"`
}

// GetFieldsResponse lists fields as [id, name] pairs.
type GetFieldsResponse struct {
	Fields [][2]any `json:"fields"`
}

// SchemaUsedResponse is the API response for POST /v1/schema/used/.
type SchemaUsedResponse struct {
	ID     int64 `json:"id"`
	IsUsed bool  `json:"is_used"`
}

// AddFieldRequest is the request body for POST /v1/schema/field/add/. Meta
// is either a descriptor object or a string holding one.
type AddFieldRequest struct {
	SchemaName string          `json:"schema_name"`
	FieldName  string          `json:"field_name"`
	Meta       json.RawMessage `json:"meta"`
}

// AddFieldResponse is the API response for a created field.
type AddFieldResponse struct {
	FieldID   int64  `json:"field_id"`
	FieldName string `json:"field_name"`
}
