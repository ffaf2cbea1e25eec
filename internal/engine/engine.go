package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vtable/vtable/internal/catalog"
	"github.com/vtable/vtable/internal/entities"
	"github.com/vtable/vtable/internal/errs"
	"github.com/vtable/vtable/internal/evolution"
	"github.com/vtable/vtable/internal/export"
	"github.com/vtable/vtable/internal/meta"
	"github.com/vtable/vtable/internal/model"
	"github.com/vtable/vtable/internal/schema"
	"github.com/vtable/vtable/internal/store"
	"github.com/vtable/vtable/internal/typemap"
	"github.com/vtable/vtable/internal/types"
	"github.com/vtable/vtable/internal/ws"
)

// Notifier receives schema change events.
type Notifier interface {
	Publish(typ ws.MessageType, payload any)
}

// Engine is the set of schema operations shared by the CLI and the HTTP API.
type Engine struct {
	Store     store.Store
	Registry  *types.Registry
	Catalog   *catalog.Catalog
	Values    *entities.ValueStore
	Evolution *evolution.Engine
	Logger    *slog.Logger

	notifier Notifier
	typeMap  *typemap.TypeMap
	pageSize int
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier publishes schema changes to n.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithPageSize sets the entity page size for backfill and export.
func WithPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.pageSize = n
		}
	}
}

// WithTypeMap sets the BSON mapping used by exports.
func WithTypeMap(tm *typemap.TypeMap) Option {
	return func(e *Engine) { e.typeMap = tm }
}

// New creates an Engine over st.
func New(st store.Store, reg *types.Registry, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		Store:    st,
		Registry: reg,
		Logger:   logger,
		pageSize: entities.DefaultPageSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.Catalog = catalog.New(st, logger)
	e.Values = entities.New(st, logger)
	e.Evolution = evolution.New(st, reg, logger, evolution.WithPageSize(e.pageSize))
	return e
}

func (e *Engine) publish(typ ws.MessageType, payload any) {
	if e.notifier != nil {
		e.notifier.Publish(typ, payload)
	}
}

// AddSchema creates a schema.
func (e *Engine) AddSchema(ctx context.Context, name string, desc *string) (*model.Schema, error) {
	s, err := e.Catalog.Create(ctx, name, desc)
	if err != nil {
		return nil, err
	}
	e.Logger.Info("schema added", "id", s.ID, "name", s.Name)
	e.publish(ws.MsgSchemaAdded, s)
	return s, nil
}

// DropSchema soft-deletes a schema.
func (e *Engine) DropSchema(ctx context.Context, id int64) (*model.Schema, error) {
	s, err := e.Catalog.SoftDelete(ctx, id)
	if err != nil {
		return nil, err
	}
	e.Logger.Info("schema dropped", "id", s.ID, "name", s.Name)
	e.publish(ws.MsgSchemaDropped, s)
	return s, nil
}

// ListSchemas returns one page of live schemas.
func (e *Engine) ListSchemas(ctx context.Context, page, size int) ([]model.Schema, model.PageInfo, error) {
	return e.Catalog.List(ctx, page, size, false)
}

// GetFields returns the live fields of a schema.
func (e *Engine) GetFields(ctx context.Context, schemaName string) ([]model.Field, error) {
	return e.Evolution.GetFields(ctx, schemaName, false)
}

// IsSchemaUsed reports whether a schema has entities.
func (e *Engine) IsSchemaUsed(ctx context.Context, id int64) (bool, error) {
	return e.Evolution.IsSchemaUsed(ctx, id)
}

// FieldEvent is the payload of a field_added event.
type FieldEvent struct {
	Schema string       `json:"schema"`
	Field  *model.Field `json:"field"`
}

// FieldErrorEvent is the payload of an error event for a field whose
// backfill failed and was rolled back.
type FieldErrorEvent struct {
	Schema  string `json:"schema"`
	Field   string `json:"field"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// AddField adds a field to a schema, backfilling existing entities when needed.
// Store failures are published as error events; rejected requests are not.
func (e *Engine) AddField(ctx context.Context, schemaName, fieldName string, desc map[string]any) (*model.Field, error) {
	f, err := e.Evolution.AddField(ctx, schemaName, fieldName, desc)
	if err != nil {
		if errors.Is(err, errs.ErrPersistence) {
			e.publish(ws.MsgError, FieldErrorEvent{
				Schema:  strings.TrimSpace(schemaName),
				Field:   strings.TrimSpace(fieldName),
				Kind:    errs.Kind(err),
				Message: err.Error(),
			})
		}
		return nil, err
	}
	e.publish(ws.MsgFieldAdded, FieldEvent{Schema: strings.TrimSpace(schemaName), Field: f})
	return f, nil
}

// DescribeSchema returns the portable definition of a live schema.
func (e *Engine) DescribeSchema(ctx context.Context, name string) (*schema.Definition, error) {
	s, err := e.Catalog.FindByName(ctx, name, false)
	if err != nil {
		return nil, err
	}
	fields, err := e.Evolution.GetFields(ctx, s.Name, false)
	if err != nil {
		return nil, err
	}

	def := &schema.Definition{Name: s.Name, Fields: make([]schema.FieldDef, 0, len(fields))}
	if s.Description != nil {
		def.Description = *s.Description
	}
	for _, f := range fields {
		desc, err := meta.DecodeJSON([]byte(f.Meta))
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		fd := schema.FieldDef{Name: f.Name, Meta: plain(desc).(map[string]any)}
		if ref, ok := desc["reference"].(map[string]any); ok {
			fd.Reference = fmt.Sprintf("%v.%v", ref["schema"], ref["field"])
		}
		def.Fields = append(def.Fields, fd)
	}
	return def, nil
}

// plain replaces json.Number with int64 or float64 so definitions marshal
// to YAML as numbers.
func plain(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = plain(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = plain(val)
		}
		return out
	default:
		return v
	}
}

// ApplyDefinition creates the schema if needed and adds the fields it lacks,
// in declaration order. Fields already present are left untouched. The first
// failing field stops the apply; fields added before it remain.
func (e *Engine) ApplyDefinition(ctx context.Context, def *schema.Definition) (*schema.ApplyResult, error) {
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}

	res := &schema.ApplyResult{Schema: strings.TrimSpace(def.Name), Added: []string{}, Unchanged: []string{}}
	if _, err := e.Catalog.FindByName(ctx, def.Name, false); err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			return nil, err
		}
		var desc *string
		if def.Description != "" {
			desc = &def.Description
		}
		if _, err := e.AddSchema(ctx, def.Name, desc); err != nil {
			return nil, err
		}
		res.SchemaCreated = true
	}

	fields, err := e.GetFields(ctx, def.Name)
	if err != nil {
		return nil, err
	}
	existing := make([]string, len(fields))
	for i, f := range fields {
		existing[i] = f.Name
	}

	add, keep := def.Plan(existing)
	for _, f := range keep {
		res.Unchanged = append(res.Unchanged, f.Name)
	}
	for _, f := range add {
		if _, err := e.AddField(ctx, def.Name, f.Name, f.Meta); err != nil {
			return res, fmt.Errorf("field %q: %w", f.Name, err)
		}
		res.Added = append(res.Added, strings.TrimSpace(f.Name))
	}
	return res, nil
}

// ExportSchema writes the live entities of a schema to w.
func (e *Engine) ExportSchema(ctx context.Context, w export.Writer, schemaName, collection string) (*export.Result, error) {
	x := export.NewExporter(e.Catalog, e.Evolution, e.Values, e.typeMap, w, e.Logger, e.pageSize)
	return x.Export(ctx, schemaName, collection)
}

// SchemaSummary is one entry of a catalog snapshot.
type SchemaSummary struct {
	ID     int64    `json:"id"`
	Name   string   `json:"name"`
	Fields []string `json:"fields"`
}

const snapshotPageSize = 100

// Snapshot returns every live schema with its field names as JSON.
func (e *Engine) Snapshot(ctx context.Context) ([]byte, error) {
	out := struct {
		Schemas []SchemaSummary `json:"schemas"`
	}{Schemas: []SchemaSummary{}}

	for page := 1; ; page++ {
		items, info, err := e.ListSchemas(ctx, page, snapshotPageSize)
		if err != nil {
			return nil, err
		}
		for _, s := range items {
			fields, err := e.GetFields(ctx, s.Name)
			if err != nil {
				return nil, err
			}
			names := make([]string, len(fields))
			for i, f := range fields {
				names[i] = f.Name
			}
			out.Schemas = append(out.Schemas, SchemaSummary{ID: s.ID, Name: s.Name, Fields: names})
		}
		if page >= info.Pages {
			break
		}
	}
	return json.Marshal(out)
}
