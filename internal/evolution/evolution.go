// Package evolution adds fields to schemas that may already hold rows.
//
// AddField decides, in a fixed order, whether a new field can be created and
// whether existing entities must be backfilled with its default:
//
//  1. the schema must exist
//  2. the descriptor must parse and the field name must be free
//  3. a declared reference must point at a live field of another schema
//  4. an empty schema accepts any field
//  5. a populated schema accepts a nullable field as is, rejects unique
//     fields, fields without a default and referencing fields, and otherwise
//     backfills every entity with the default
//
// Steps 4 and 5 run in one transaction holding the schema row lock.
package evolution

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
	"github.com/vtable/vtable/internal/meta"
	"github.com/vtable/vtable/internal/model"
	"github.com/vtable/vtable/internal/store"
	"github.com/vtable/vtable/internal/types"
)

// Engine evolves schemas.
type Engine struct {
	store    store.Store
	catalog  *catalog.Catalog
	values   *entities.ValueStore
	parser   *meta.Parser
	logger   *slog.Logger
	pageSize int
}

// Option configures an Engine.
type Option func(*Engine)

// WithPageSize sets the number of entities backfilled per batch.
func WithPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.pageSize = n
		}
	}
}

// New creates an Engine over st, resolving value types through reg.
func New(st store.Store, reg *types.Registry, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:    st,
		catalog:  catalog.New(st, logger),
		values:   entities.New(st, logger),
		parser:   meta.NewParser(reg),
		logger:   logger,
		pageSize: entities.DefaultPageSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Parser returns the descriptor parser used by the engine.
func (e *Engine) Parser() *meta.Parser {
	return e.parser
}

// AddField creates fieldName in schemaName from a metadata descriptor,
// backfilling existing entities when required.
func (e *Engine) AddField(ctx context.Context, schemaName, fieldName string, desc map[string]any) (*model.Field, error) {
	schema, err := e.catalog.FindByName(ctx, schemaName, false)
	if err != nil {
		return nil, err
	}

	fm, err := e.parser.Parse(desc)
	if err != nil {
		return nil, err
	}
	fieldName = strings.TrimSpace(fieldName)
	if err := catalog.ValidateName(fieldName); err != nil {
		return nil, err
	}
	if err := e.ensureFieldFree(ctx, schema, fieldName); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(desc)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding descriptor: %v", errs.ErrMetaParse, err)
	}
	field := &model.Field{
		Name:     fieldName,
		Meta:     string(raw),
		SchemaID: schema.ID,
	}

	if fm.Reference != nil {
		target, err := e.resolveReference(ctx, schema, fm.Reference)
		if err != nil {
			return nil, err
		}
		field.RefID = &target.ID
	}

	var backfilled int64
	err = e.store.InTx(ctx, func(tx store.Store) error {
		if err := tx.LockSchema(ctx, schema.ID); err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return err
			}
			return e.persistence("locking schema", err, "schema", schema.Name)
		}

		values := e.values.WithStore(tx)
		populated, err := values.IsPopulated(ctx, schema.ID)
		if err != nil {
			return err
		}
		if !populated || fm.Nullable {
			return e.createField(ctx, tx, field)
		}

		switch {
		case fm.Unique:
			return fmt.Errorf("%w: schema %q has entities; unique field %q cannot be added",
				errs.ErrUnsatisfiableConstraint, schema.Name, fieldName)
		case !fm.HasDefault:
			return fmt.Errorf("%w: schema %q has entities; field %q needs a default",
				errs.ErrMissingDefault, schema.Name, fieldName)
		case fm.Reference != nil:
			return fmt.Errorf("%w: schema %q has entities; field %q cannot both reference and default",
				errs.ErrConflictingConstraint, schema.Name, fieldName)
		}

		def, err := fm.Type.Stringify(fm.Default)
		if err != nil {
			return fmt.Errorf("default for field %q: %w", fieldName, err)
		}
		if err := e.createField(ctx, tx, field); err != nil {
			return err
		}
		backfilled, err = e.backfill(ctx, values, schema.ID, field.ID, def)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("field added", "schema", schema.Name, "field", field.Name, "field_id", field.ID, "backfilled", backfilled)
	return field, nil
}

func (e *Engine) ensureFieldFree(ctx context.Context, schema *model.Schema, name string) error {
	_, err := e.store.FindField(ctx, schema.ID, name)
	switch {
	case err == nil:
		return fmt.Errorf("%w: field %q in schema %q", errs.ErrAlreadyExists, name, schema.Name)
	case errors.Is(err, errs.ErrNotFound):
		return nil
	default:
		return e.persistence("finding field", err, "schema", schema.Name, "field", name)
	}
}

func (e *Engine) resolveReference(ctx context.Context, owner *model.Schema, ref *meta.Reference) (*model.Field, error) {
	target, err := e.catalog.FindByName(ctx, ref.Schema, false)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("%w: schema %q does not exist", errs.ErrBrokenReference, ref.Schema)
		}
		return nil, err
	}
	if target.ID == owner.ID {
		return nil, fmt.Errorf("%w: field may not reference its own schema %q", errs.ErrBrokenReference, owner.Name)
	}
	f, err := e.store.FindField(ctx, target.ID, strings.TrimSpace(ref.Field))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("%w: field %q does not exist in schema %q", errs.ErrBrokenReference, ref.Field, ref.Schema)
		}
		return nil, e.persistence("finding referenced field", err, "schema", ref.Schema, "field", ref.Field)
	}
	return f, nil
}

func (e *Engine) createField(ctx context.Context, tx store.Store, f *model.Field) error {
	if err := tx.CreateField(ctx, f); err != nil {
		return e.persistence("creating field", err, "field", f.Name, "schema_id", f.SchemaID)
	}
	return nil
}

// backfill writes def for every live entity of the schema, one batch per page.
func (e *Engine) backfill(ctx context.Context, values *entities.ValueStore, schemaID, fieldID int64, def string) (int64, error) {
	var total int64
	for page, err := range values.Pages(ctx, schemaID, e.pageSize) {
		if err != nil {
			return total, err
		}
		batch := make([]model.Value, len(page))
		for i, ent := range page {
			batch[i] = model.Value{Value: def, FieldID: fieldID, EntityID: ent.ID}
		}
		n, err := values.BulkInsertValues(ctx, batch)
		if err != nil {
			return total, err
		}
		total += n
		e.logger.Debug("backfilled page", "field_id", fieldID, "rows", n, "total", total)
	}
	return total, nil
}

// GetFields returns the fields of the live schema named schemaName.
func (e *Engine) GetFields(ctx context.Context, schemaName string, includeDeleted bool) ([]model.Field, error) {
	schema, err := e.catalog.FindByName(ctx, schemaName, false)
	if err != nil {
		return nil, err
	}
	fields, err := e.store.ListFields(ctx, schema.ID, includeDeleted)
	if err != nil {
		return nil, e.persistence("listing fields", err, "schema", schema.Name)
	}
	if fields == nil {
		fields = []model.Field{}
	}
	return fields, nil
}

// IsSchemaUsed reports whether the schema holds any live entity.
func (e *Engine) IsSchemaUsed(ctx context.Context, schemaID int64) (bool, error) {
	if _, err := e.catalog.Get(ctx, schemaID); err != nil {
		return false, err
	}
	return e.values.IsPopulated(ctx, schemaID)
}

// FieldMeta re-parses a stored field's descriptor.
func (e *Engine) FieldMeta(f model.Field) (*meta.FieldMeta, error) {
	fm, err := e.parser.ParseJSON([]byte(f.Meta))
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", f.Name, err)
	}
	return fm, nil
}

func (e *Engine) persistence(op string, err error, attrs ...any) error {
	e.logger.Error("failed "+op, append(attrs, "error", err)...)
	return fmt.Errorf("%w: %s: %w", errs.ErrPersistence, op, err)
}
