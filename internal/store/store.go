// Package store holds the physical persistence engine behind the virtual
// tables: four fixed relations (schema, field, entity, value) reachable
// through create/read/update/soft-delete primitives.
package store

import (
	"context"
	"time"

	"github.com/vtable/vtable/internal/model"
)

// Store is the persistence engine. Lookups that match nothing return an error
// wrapping errs.ErrNotFound; writes that collide with a live unique name
// return errs.ErrAlreadyExists.
type Store interface {
	FindSchemaByName(ctx context.Context, name string, includeDeleted bool) (*model.Schema, error)
	GetSchema(ctx context.Context, id int64) (*model.Schema, error)
	CreateSchema(ctx context.Context, s *model.Schema) error
	SoftDeleteSchema(ctx context.Context, id int64, at time.Time) (*model.Schema, error)
	ListSchemas(ctx context.Context, offset, limit int, includeDeleted bool) ([]model.Schema, int64, error)
	// LockSchema blocks other transactions locking the same schema until the
	// current transaction ends. Outside a transaction it only checks existence.
	LockSchema(ctx context.Context, id int64) error

	ListFields(ctx context.Context, schemaID int64, includeDeleted bool) ([]model.Field, error)
	FindField(ctx context.Context, schemaID int64, name string) (*model.Field, error)
	CreateField(ctx context.Context, f *model.Field) error

	CreateEntity(ctx context.Context, e *model.Entity) error
	HasEntities(ctx context.Context, schemaID int64) (bool, error)
	// ListEntities returns up to limit live entities of the schema with id > afterID, ordered by id.
	ListEntities(ctx context.Context, schemaID, afterID int64, limit int) ([]model.Entity, error)

	InsertValues(ctx context.Context, values []model.Value) (int64, error)
	ListValues(ctx context.Context, entityIDs []int64) ([]model.Value, error)

	// InTx runs fn against a Store scoped to one transaction. The transaction
	// commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx Store) error) error
	Close()
}
