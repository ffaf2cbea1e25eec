// Package catalog manages logical tables (schemas). Schemas are never
// removed; dropping one sets its deleted flag and delete date, and frees the
// name for reuse.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vtable/vtable/internal/errs"
	"github.com/vtable/vtable/internal/model"
	"github.com/vtable/vtable/internal/store"
)

// MaxNameLength bounds schema and field names.
const MaxNameLength = 48

// Catalog provides CRUD over schemas.
type Catalog struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Catalog over st.
func New(st store.Store, logger *slog.Logger) *Catalog {
	return &Catalog{store: st, logger: logger, now: time.Now}
}

// FindByName returns the schema named name (surrounding whitespace ignored).
// Deleted schemas are only considered when includeDeleted is set.
func (c *Catalog) FindByName(ctx context.Context, name string, includeDeleted bool) (*model.Schema, error) {
	name = strings.TrimSpace(name)
	s, err := c.store.FindSchemaByName(ctx, name, includeDeleted)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, err
		}
		return nil, c.persistence("finding schema", err, "name", name)
	}
	return s, nil
}

// Get returns the schema with the given id, deleted or not.
func (c *Catalog) Get(ctx context.Context, id int64) (*model.Schema, error) {
	s, err := c.store.GetSchema(ctx, id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, err
		}
		return nil, c.persistence("getting schema", err, "id", id)
	}
	return s, nil
}

// Create adds a schema. It fails when a live schema already uses the name.
func (c *Catalog) Create(ctx context.Context, name string, desc *string) (*model.Schema, error) {
	name = strings.TrimSpace(name)
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	if _, err := c.store.FindSchemaByName(ctx, name, false); err == nil {
		c.logger.Error("failed to add schema", "name", name, "error", "name already in use")
		return nil, fmt.Errorf("%w: %w: schema %q", errs.ErrPersistence, errs.ErrAlreadyExists, name)
	} else if !errors.Is(err, errs.ErrNotFound) {
		return nil, c.persistence("finding schema", err, "name", name)
	}

	s := &model.Schema{Name: name, Description: desc}
	if err := c.store.CreateSchema(ctx, s); err != nil {
		return nil, c.persistence("adding schema", err, "name", name)
	}
	c.logger.Info("added schema", "id", s.ID, "name", s.Name)
	return s, nil
}

// SoftDelete marks a live schema deleted.
func (c *Catalog) SoftDelete(ctx context.Context, id int64) (*model.Schema, error) {
	s, err := c.store.SoftDeleteSchema(ctx, id, c.now())
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			c.logger.Error("failed to drop schema", "id", id, "error", err)
			return nil, err
		}
		return nil, c.persistence("dropping schema", err, "id", id)
	}
	c.logger.Info("dropped schema", "id", s.ID, "name", s.Name)
	return s, nil
}

// List returns one page of schemas. Pages are 1-indexed; a page past the end
// is empty, not an error.
func (c *Catalog) List(ctx context.Context, page, size int, includeDeleted bool) ([]model.Schema, model.PageInfo, error) {
	if page <= 0 || size <= 0 {
		return nil, model.PageInfo{}, fmt.Errorf("%w: page %d size %d", errs.ErrInvalidPage, page, size)
	}

	info := model.PageInfo{Page: page, Size: size}
	items, total, err := c.store.ListSchemas(ctx, info.Offset(), size, includeDeleted)
	if err != nil {
		return nil, model.PageInfo{}, c.persistence("listing schemas", err, "page", page, "size", size)
	}
	if items == nil {
		items = []model.Schema{}
	}
	return items, model.NewPageInfo(page, size, total), nil
}

// ValidateName checks a schema or field name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name must not be empty", errs.ErrValidation)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: name %q longer than %d characters", errs.ErrValidation, name, MaxNameLength)
	}
	return nil
}

func (c *Catalog) persistence(op string, err error, attrs ...any) error {
	c.logger.Error("failed "+op, append(attrs, "error", err)...)
	return fmt.Errorf("%w: %s: %w", errs.ErrPersistence, op, err)
}
