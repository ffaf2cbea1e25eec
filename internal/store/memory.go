package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vtable/vtable/internal/errs"
	"github.com/vtable/vtable/internal/model"
)

// Memory is an in-process Store. Transactions snapshot the tables and restore
// them when the callback fails; they are not isolated from concurrent callers.
// The exported Err fields inject failures for tests.
type Memory struct {
	CreateSchemaErr error
	CreateFieldErr  error
	InsertValuesErr error
	// InsertValuesErrAfter lets this many InsertValues calls succeed before
	// InsertValuesErr is returned.
	InsertValuesErrAfter int

	// Batch sizes of every successful InsertValues call.
	InsertBatches []int

	mu   sync.Mutex
	data memData
}

type memData struct {
	nextID   int64
	schemas  []model.Schema
	fields   []model.Field
	entities []model.Entity
	values   []model.Value
}

func (d memData) clone() memData {
	return memData{
		nextID:   d.nextID,
		schemas:  append([]model.Schema(nil), d.schemas...),
		fields:   append([]model.Field(nil), d.fields...),
		entities: append([]model.Entity(nil), d.entities...),
		values:   append([]model.Value(nil), d.values...),
	}
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) id() int64 {
	m.data.nextID++
	return m.data.nextID
}

func (m *Memory) Close() {}

func (m *Memory) InTx(ctx context.Context, fn func(tx Store) error) error {
	m.mu.Lock()
	snapshot := m.data.clone()
	batches := len(m.InsertBatches)
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.data = snapshot
		m.InsertBatches = m.InsertBatches[:batches]
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *Memory) FindSchemaByName(_ context.Context, name string, includeDeleted bool) (*model.Schema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var found *model.Schema
	for i := range m.data.schemas {
		s := m.data.schemas[i]
		if s.Name != name {
			continue
		}
		if s.Deleted && !includeDeleted {
			continue
		}
		// Prefer the live row, then the most recent deleted one.
		if found == nil || (found.Deleted && !s.Deleted) || (found.Deleted == s.Deleted && s.ID > found.ID) {
			c := s
			found = &c
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: schema %q", errs.ErrNotFound, name)
	}
	return found, nil
}

func (m *Memory) GetSchema(_ context.Context, id int64) (*model.Schema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.data.schemas {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, fmt.Errorf("%w: schema %d", errs.ErrNotFound, id)
}

func (m *Memory) CreateSchema(_ context.Context, s *model.Schema) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateSchemaErr != nil {
		return m.CreateSchemaErr
	}
	for _, existing := range m.data.schemas {
		if existing.Name == s.Name && !existing.Deleted {
			return fmt.Errorf("%w: schema %q", errs.ErrAlreadyExists, s.Name)
		}
	}
	s.ID = m.id()
	m.data.schemas = append(m.data.schemas, *s)
	return nil
}

func (m *Memory) SoftDeleteSchema(_ context.Context, id int64, at time.Time) (*model.Schema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.data.schemas {
		s := &m.data.schemas[i]
		if s.ID == id && !s.Deleted {
			s.Deleted = true
			s.DeleteDate = &at
			c := *s
			return &c, nil
		}
	}
	return nil, fmt.Errorf("%w: schema %d", errs.ErrNotFound, id)
}

func (m *Memory) ListSchemas(_ context.Context, offset, limit int, includeDeleted bool) ([]model.Schema, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []model.Schema
	for _, s := range m.data.schemas {
		if s.Deleted && !includeDeleted {
			continue
		}
		matched = append(matched, s)
	}
	total := int64(len(matched))
	if offset >= len(matched) {
		return []model.Schema{}, total, nil
	}
	end := len(matched)
	if limit < end-offset {
		end = offset + limit
	}
	return append([]model.Schema(nil), matched[offset:end]...), total, nil
}

func (m *Memory) LockSchema(ctx context.Context, id int64) error {
	_, err := m.GetSchema(ctx, id)
	return err
}

func (m *Memory) ListFields(_ context.Context, schemaID int64, includeDeleted bool) ([]model.Field, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var fields []model.Field
	for _, f := range m.data.fields {
		if f.SchemaID == schemaID && (includeDeleted || !f.Deleted) {
			fields = append(fields, f)
		}
	}
	return fields, nil
}

func (m *Memory) FindField(_ context.Context, schemaID int64, name string) (*model.Field, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, f := range m.data.fields {
		if f.SchemaID == schemaID && f.Name == name && !f.Deleted {
			return &f, nil
		}
	}
	return nil, fmt.Errorf("%w: field %q", errs.ErrNotFound, name)
}

func (m *Memory) CreateField(_ context.Context, f *model.Field) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateFieldErr != nil {
		return m.CreateFieldErr
	}
	for _, existing := range m.data.fields {
		if existing.SchemaID == f.SchemaID && existing.Name == f.Name && !existing.Deleted {
			return fmt.Errorf("%w: field %q", errs.ErrAlreadyExists, f.Name)
		}
	}
	f.ID = m.id()
	m.data.fields = append(m.data.fields, *f)
	return nil
}

func (m *Memory) CreateEntity(_ context.Context, e *model.Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.ID = m.id()
	m.data.entities = append(m.data.entities, *e)
	return nil
}

// DeleteEntity soft-deletes an entity. Entity lifecycle is owned by external
// writers; this exists for tests.
func (m *Memory) DeleteEntity(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.data.entities {
		if m.data.entities[i].ID == id {
			m.data.entities[i].Deleted = true
		}
	}
}

func (m *Memory) HasEntities(_ context.Context, schemaID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.data.entities {
		if e.SchemaID == schemaID && !e.Deleted {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) ListEntities(_ context.Context, schemaID, afterID int64, limit int) ([]model.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Entity
	for _, e := range m.data.entities {
		if e.SchemaID == schemaID && !e.Deleted && e.ID > afterID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) InsertValues(_ context.Context, values []model.Value) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.InsertValuesErr != nil && len(m.InsertBatches) >= m.InsertValuesErrAfter {
		return 0, m.InsertValuesErr
	}
	for _, v := range values {
		v.ID = m.id()
		m.data.values = append(m.data.values, v)
	}
	m.InsertBatches = append(m.InsertBatches, len(values))
	return int64(len(values)), nil
}

func (m *Memory) ListValues(_ context.Context, entityIDs []int64) ([]model.Value, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	want := make(map[int64]bool, len(entityIDs))
	for _, id := range entityIDs {
		want[id] = true
	}
	var out []model.Value
	for _, v := range m.data.values {
		if want[v.EntityID] && !v.Deleted {
			out = append(out, v)
		}
	}
	return out, nil
}

// Values returns a copy of every stored value row.
func (m *Memory) Values() []model.Value {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Value(nil), m.data.values...)
}

// Fields returns a copy of every stored field row, deleted ones included.
func (m *Memory) Fields() []model.Field {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Field(nil), m.data.fields...)
}
