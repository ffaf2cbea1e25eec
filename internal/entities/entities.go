// Package entities reads the rows of logical tables and writes their cells.
package entities

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/vtable/vtable/internal/errs"
	"github.com/vtable/vtable/internal/model"
	"github.com/vtable/vtable/internal/store"
)

// DefaultPageSize is the number of entities fetched per page.
const DefaultPageSize = 50

// ValueStore iterates entities in bounded pages and bulk-inserts values.
type ValueStore struct {
	store  store.Store
	logger *slog.Logger
}

// New creates a ValueStore over st.
func New(st store.Store, logger *slog.Logger) *ValueStore {
	return &ValueStore{store: st, logger: logger}
}

// WithStore returns a copy bound to st, typically a transaction.
func (v *ValueStore) WithStore(st store.Store) *ValueStore {
	return &ValueStore{store: st, logger: v.logger}
}

// IsPopulated reports whether the schema has at least one live entity.
func (v *ValueStore) IsPopulated(ctx context.Context, schemaID int64) (bool, error) {
	ok, err := v.store.HasEntities(ctx, schemaID)
	if err != nil {
		v.logger.Error("failed checking population", "schema_id", schemaID, "error", err)
		return false, fmt.Errorf("%w: %w", errs.ErrPersistence, err)
	}
	return ok, nil
}

// Pages yields the live entities of a schema in pages of at most pageSize,
// ordered by id. The sequence ends after the first empty page or the first
// error. pageSize <= 0 means DefaultPageSize.
func (v *ValueStore) Pages(ctx context.Context, schemaID int64, pageSize int) iter.Seq2[[]model.Entity, error] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return func(yield func([]model.Entity, error) bool) {
		var after int64
		for {
			page, err := v.store.ListEntities(ctx, schemaID, after, pageSize)
			if err != nil {
				v.logger.Error("failed listing entities", "schema_id", schemaID, "after", after, "error", err)
				yield(nil, fmt.Errorf("%w: %w", errs.ErrPersistence, err))
				return
			}
			if len(page) == 0 {
				return
			}
			if !yield(page, nil) {
				return
			}
			after = page[len(page)-1].ID
		}
	}
}

// IterateEntities yields the live entities of a schema one at a time,
// fetching them in pages of pageSize.
func (v *ValueStore) IterateEntities(ctx context.Context, schemaID int64, pageSize int) iter.Seq2[model.Entity, error] {
	return func(yield func(model.Entity, error) bool) {
		for page, err := range v.Pages(ctx, schemaID, pageSize) {
			if err != nil {
				yield(model.Entity{}, err)
				return
			}
			for _, e := range page {
				if !yield(e, nil) {
					return
				}
			}
		}
	}
}

// BulkInsertValues inserts values as one batch and returns the count inserted.
func (v *ValueStore) BulkInsertValues(ctx context.Context, values []model.Value) (int64, error) {
	n, err := v.store.InsertValues(ctx, values)
	if err != nil {
		v.logger.Error("failed inserting values", "count", len(values), "error", err)
		return 0, fmt.Errorf("%w: %w", errs.ErrPersistence, err)
	}
	return n, nil
}

// ValuesFor returns the live values of the given entities.
func (v *ValueStore) ValuesFor(ctx context.Context, entityIDs []int64) ([]model.Value, error) {
	values, err := v.store.ListValues(ctx, entityIDs)
	if err != nil {
		v.logger.Error("failed listing values", "entities", len(entityIDs), "error", err)
		return nil, fmt.Errorf("%w: %w", errs.ErrPersistence, err)
	}
	return values, nil
}
