package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"testing"

	"github.com/vtable/vtable/internal/errs"
	"github.com/vtable/vtable/internal/store"
)

func newCatalog(t *testing.T) (*Catalog, *store.Memory) {
	t.Helper()
	m := store.NewMemory()
	return New(m, slog.Default()), m
}

func TestCreateAndFind(t *testing.T) {
	ctx := context.Background()
	c, _ := newCatalog(t)

	desc := "network hosts"
	s, err := c.Create(ctx, "  hosts ", &desc)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.Name != "hosts" {
		t.Errorf("name = %q, want trimmed %q", s.Name, "hosts")
	}

	got, err := c.FindByName(ctx, " hosts", false)
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if got.ID != s.ID || got.Description == nil || *got.Description != desc {
		t.Errorf("FindByName = %+v, want id %d with description", got, s.ID)
	}
}

func TestCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	c, _ := newCatalog(t)

	if _, err := c.Create(ctx, "hosts", nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := c.Create(ctx, "hosts", nil)
	if !errors.Is(err, errs.ErrPersistence) || !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("duplicate Create error = %v, want ErrPersistence and ErrAlreadyExists", err)
	}
}

func TestCreateInvalidName(t *testing.T) {
	c, _ := newCatalog(t)
	for _, name := range []string{"", "   ", "x123456789x123456789x123456789x123456789x12345678"} {
		if _, err := c.Create(context.Background(), name, nil); !errors.Is(err, errs.ErrValidation) {
			t.Errorf("Create(%q) error = %v, want ErrValidation", name, err)
		}
	}
}

func TestCreateStoreFailure(t *testing.T) {
	c, m := newCatalog(t)
	m.CreateSchemaErr = errors.New("connection reset")

	_, err := c.Create(context.Background(), "hosts", nil)
	if !errors.Is(err, errs.ErrPersistence) {
		t.Fatalf("Create error = %v, want ErrPersistence", err)
	}
}

func TestSoftDelete(t *testing.T) {
	ctx := context.Background()
	c, _ := newCatalog(t)

	s, _ := c.Create(ctx, "hosts", nil)
	dropped, err := c.SoftDelete(ctx, s.ID)
	if err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if !dropped.Deleted || dropped.DeleteDate == nil {
		t.Errorf("dropped = %+v, want deleted with delete date", dropped)
	}

	if _, err := c.FindByName(ctx, "hosts", false); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("FindByName after drop error = %v, want ErrNotFound", err)
	}
	got, err := c.FindByName(ctx, "hosts", true)
	if err != nil {
		t.Fatalf("FindByName(includeDeleted): %v", err)
	}
	if got.ID != s.ID {
		t.Errorf("FindByName(includeDeleted) id = %d, want %d", got.ID, s.ID)
	}

	if _, err := c.SoftDelete(ctx, s.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("second SoftDelete error = %v, want ErrNotFound", err)
	}
	if _, err := c.SoftDelete(ctx, 999); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("SoftDelete(999) error = %v, want ErrNotFound", err)
	}
}

func TestDeletedNamesMayRepeat(t *testing.T) {
	ctx := context.Background()
	c, _ := newCatalog(t)

	for i := 0; i < 2; i++ {
		s, err := c.Create(ctx, "hosts", nil)
		if err != nil {
			t.Fatalf("Create #%d: %v", i, err)
		}
		if _, err := c.SoftDelete(ctx, s.ID); err != nil {
			t.Fatalf("SoftDelete #%d: %v", i, err)
		}
	}
	if _, err := c.FindByName(ctx, "hosts", true); err != nil {
		t.Fatalf("FindByName(includeDeleted): %v", err)
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	c, _ := newCatalog(t)

	for i := 0; i < 15; i++ {
		if _, err := c.Create(ctx, fmt.Sprintf("schema_%02d", i), nil); err != nil {
			t.Fatal(err)
		}
	}
	dropped, _ := c.Create(ctx, "dropped", nil)
	c.SoftDelete(ctx, dropped.ID)

	tests := []struct {
		page, size int
		wantItems  int
	}{
		{1, 10, 10},
		{2, 10, 5},
		{99, 10, 0},
		{1, 100, 15},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("page%d_size%d", tt.page, tt.size), func(t *testing.T) {
			items, info, err := c.List(ctx, tt.page, tt.size, false)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(items) != tt.wantItems {
				t.Errorf("items = %d, want %d", len(items), tt.wantItems)
			}
			if items == nil {
				t.Error("items should be an empty slice, not nil")
			}
			if info.Total != 15 {
				t.Errorf("total = %d, want 15", info.Total)
			}
			wantPages := (15 + tt.size - 1) / tt.size
			if info.Pages != wantPages {
				t.Errorf("pages = %d, want %d", info.Pages, wantPages)
			}
		})
	}

	_, info, err := c.List(ctx, 1, 10, true)
	if err != nil {
		t.Fatalf("List(includeDeleted): %v", err)
	}
	if info.Total != 16 {
		t.Errorf("total with deleted = %d, want 16", info.Total)
	}
}

func TestListInvalidPage(t *testing.T) {
	c, _ := newCatalog(t)
	for _, pair := range [][2]int{{0, 10}, {1, 0}, {-1, 5}} {
		if _, _, err := c.List(context.Background(), pair[0], pair[1], false); !errors.Is(err, errs.ErrInvalidPage) {
			t.Errorf("List(%d, %d) error = %v, want ErrInvalidPage", pair[0], pair[1], err)
		}
	}
}

func TestListHugePageIsEmpty(t *testing.T) {
	c, _ := newCatalog(t)
	ctx := context.Background()
	for i := range 3 {
		if _, err := c.Create(ctx, fmt.Sprintf("s%d", i), nil); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	for _, pair := range [][2]int{{math.MaxInt, 10}, {2, math.MaxInt}, {math.MaxInt, math.MaxInt}} {
		items, info, err := c.List(ctx, pair[0], pair[1], false)
		if err != nil {
			t.Fatalf("List(%d, %d): %v", pair[0], pair[1], err)
		}
		if len(items) != 0 {
			t.Errorf("List(%d, %d) returned %d items, want 0", pair[0], pair[1], len(items))
		}
		if info.Total != 3 {
			t.Errorf("List(%d, %d) total = %d, want 3", pair[0], pair[1], info.Total)
		}
	}

	items, info, err := c.List(ctx, 1, math.MaxInt, false)
	if err != nil {
		t.Fatalf("List(1, MaxInt): %v", err)
	}
	if len(items) != 3 || info.Pages != 1 {
		t.Errorf("List(1, MaxInt) = %d items, %d pages; want 3, 1", len(items), info.Pages)
	}
}
