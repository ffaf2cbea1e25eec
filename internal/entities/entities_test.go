package entities

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/vtable/vtable/internal/errs"
	"github.com/vtable/vtable/internal/model"
	"github.com/vtable/vtable/internal/store"
)

func seed(t *testing.T, m *store.Memory, schemaID int64, n int) []model.Entity {
	t.Helper()
	out := make([]model.Entity, 0, n)
	for i := 0; i < n; i++ {
		e := &model.Entity{Key: "row", SchemaID: schemaID}
		if err := m.CreateEntity(context.Background(), e); err != nil {
			t.Fatal(err)
		}
		out = append(out, *e)
	}
	return out
}

func TestIsPopulated(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	vs := New(m, slog.Default())

	got, err := vs.IsPopulated(ctx, 1)
	if err != nil || got {
		t.Fatalf("IsPopulated on empty = %v, %v; want false", got, err)
	}

	rows := seed(t, m, 1, 1)
	if got, _ := vs.IsPopulated(ctx, 1); !got {
		t.Error("IsPopulated = false after adding an entity")
	}

	m.DeleteEntity(rows[0].ID)
	if got, _ := vs.IsPopulated(ctx, 1); got {
		t.Error("deleted entities must not count as population")
	}
}

func TestIterateEntities(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	vs := New(m, slog.Default())

	rows := seed(t, m, 1, 7)
	seed(t, m, 2, 3)
	m.DeleteEntity(rows[3].ID)

	var seen []int64
	for e, err := range vs.IterateEntities(ctx, 1, 3) {
		if err != nil {
			t.Fatalf("IterateEntities: %v", err)
		}
		if e.SchemaID != 1 {
			t.Errorf("entity %d belongs to schema %d", e.ID, e.SchemaID)
		}
		seen = append(seen, e.ID)
	}
	if len(seen) != 6 {
		t.Fatalf("iterated %d entities, want 6", len(seen))
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] <= seen[i-1] {
			t.Errorf("entities out of order: %v", seen)
		}
	}
}

func TestPagesAreBounded(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	vs := New(m, slog.Default())
	seed(t, m, 1, 120)

	var sizes []int
	for page, err := range vs.Pages(ctx, 1, 0) {
		if err != nil {
			t.Fatalf("Pages: %v", err)
		}
		sizes = append(sizes, len(page))
	}
	want := []int{50, 50, 20}
	if len(sizes) != len(want) {
		t.Fatalf("page sizes = %v, want %v", sizes, want)
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Errorf("page sizes = %v, want %v", sizes, want)
		}
	}
}

func TestIterateStopsEarly(t *testing.T) {
	m := store.NewMemory()
	vs := New(m, slog.Default())
	seed(t, m, 1, 10)

	count := 0
	for _, err := range vs.IterateEntities(context.Background(), 1, 4) {
		if err != nil {
			t.Fatal(err)
		}
		count++
		if count == 5 {
			break
		}
	}
	if count != 5 {
		t.Errorf("count = %d, want 5", count)
	}
}

func TestBulkInsertValues(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	vs := New(m, slog.Default())

	n, err := vs.BulkInsertValues(ctx, []model.Value{
		{Value: "a", FieldID: 1, EntityID: 1},
		{Value: "b", FieldID: 1, EntityID: 2},
	})
	if err != nil {
		t.Fatalf("BulkInsertValues: %v", err)
	}
	if n != 2 {
		t.Errorf("inserted = %d, want 2", n)
	}

	values, err := vs.ValuesFor(ctx, []int64{2})
	if err != nil {
		t.Fatalf("ValuesFor: %v", err)
	}
	if len(values) != 1 || values[0].Value != "b" {
		t.Errorf("ValuesFor(2) = %+v", values)
	}

	m.InsertValuesErr = errors.New("disk full")
	if _, err := vs.BulkInsertValues(ctx, []model.Value{{Value: "c"}}); !errors.Is(err, errs.ErrPersistence) {
		t.Errorf("BulkInsertValues error = %v, want ErrPersistence", err)
	}
}
