package export

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/vtable/vtable/internal/catalog"
	"github.com/vtable/vtable/internal/entities"
	"github.com/vtable/vtable/internal/errs"
	"github.com/vtable/vtable/internal/evolution"
	"github.com/vtable/vtable/internal/model"
	"github.com/vtable/vtable/internal/store"
	"github.com/vtable/vtable/internal/types"
	"github.com/vtable/vtable/internal/typemap"
)

type fixture struct {
	mem      *store.Memory
	writer   *MockWriter
	exporter *Exporter
	engine   *evolution.Engine
	catalog  *catalog.Catalog
}

func newFixture(t *testing.T, pageSize int) *fixture {
	t.Helper()
	m := store.NewMemory()
	logger := slog.Default()
	cat := catalog.New(m, logger)
	ev := evolution.New(m, types.NewDefaultRegistry(), logger)
	w := &MockWriter{}
	return &fixture{
		mem:      m,
		writer:   w,
		engine:   ev,
		catalog:  cat,
		exporter: NewExporter(cat, ev, entities.New(m, logger), nil, w, logger, pageSize),
	}
}

func (f *fixture) field(t *testing.T, schema, name string, desc map[string]any) *model.Field {
	t.Helper()
	fld, err := f.engine.AddField(context.Background(), schema, name, desc)
	if err != nil {
		t.Fatalf("adding %s.%s: %v", schema, name, err)
	}
	return fld
}

func (f *fixture) entity(t *testing.T, schemaID int64, key string, cells map[int64][]string) {
	t.Helper()
	ctx := context.Background()
	e := &model.Entity{Key: key, SchemaID: schemaID}
	if err := f.mem.CreateEntity(ctx, e); err != nil {
		t.Fatal(err)
	}
	var values []model.Value
	for fieldID, vs := range cells {
		for _, v := range vs {
			values = append(values, model.Value{Value: v, FieldID: fieldID, EntityID: e.ID})
		}
	}
	if _, err := f.mem.InsertValues(ctx, values); err != nil {
		t.Fatal(err)
	}
}

func lookup(doc bson.D, key string) (any, bool) {
	for _, e := range doc {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	s, err := f.catalog.Create(ctx, "hosts", nil)
	if err != nil {
		t.Fatal(err)
	}
	port := f.field(t, "hosts", "port", map[string]any{"type": "Integer", "unique": false})
	addr := f.field(t, "hosts", "addr", map[string]any{"type": "IP"})
	alias := f.field(t, "hosts", "aliases", map[string]any{"type": "IP", "multi": true, "nullable": true})

	f.entity(t, s.ID, "a", map[int64][]string{port.ID: {"22"}, addr.ID: {"10.0.0.1"}, alias.ID: {"10.0.1.1", "10.0.1.2"}})
	f.entity(t, s.ID, "b", map[int64][]string{port.ID: {"80"}, addr.ID: {"10.0.0.2"}})
	f.entity(t, s.ID, "c", map[int64][]string{port.ID: {"443"}, addr.ID: {"10.0.0.3"}})

	res, err := f.exporter.Export(ctx, "hosts", "")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Collection != "hosts" || res.Documents != 3 {
		t.Errorf("result = %+v", res)
	}
	if len(f.writer.Dropped) != 1 || f.writer.Dropped[0] != "hosts" {
		t.Errorf("dropped = %v", f.writer.Dropped)
	}
	if len(f.writer.Batches) != 2 || f.writer.Batches[0] != 2 || f.writer.Batches[1] != 1 {
		t.Errorf("batches = %v, want [2 1]", f.writer.Batches)
	}
	if idx := f.writer.UniqueIndex["hosts"]; len(idx) != 1 || idx[0] != "addr" {
		t.Errorf("unique indexes = %v, want [addr]", idx)
	}

	docs := f.writer.Documents["hosts"]
	if len(docs) != 3 {
		t.Fatalf("got %d documents", len(docs))
	}
	first := docs[0]
	if v, _ := lookup(first, "key"); v != "a" {
		t.Errorf("key = %v", v)
	}
	if v, _ := lookup(first, "port"); v != int64(22) {
		t.Errorf("port = %#v, want int64 22", v)
	}
	if v, _ := lookup(first, "addr"); v != "10.0.0.1" {
		t.Errorf("addr = %#v", v)
	}
	aliases, ok := lookup(first, "aliases")
	if a, isArr := aliases.(bson.A); !ok || !isArr || len(a) != 2 {
		t.Errorf("aliases = %#v, want two-element array", aliases)
	}
	if _, ok := lookup(docs[1], "aliases"); ok {
		t.Error("missing multi value should be omitted")
	}
}

func TestExportCustomCollectionAndTypeMap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	tm := typemap.Default()
	if err := tm.Override("Integer", typemap.BSONString); err != nil {
		t.Fatal(err)
	}
	f.exporter.typeMap = tm

	s, _ := f.catalog.Create(ctx, "hosts", nil)
	port := f.field(t, "hosts", "port", map[string]any{"type": "Integer", "unique": false})
	f.entity(t, s.ID, "a", map[int64][]string{port.ID: {"22"}})

	res, err := f.exporter.Export(ctx, "hosts", "hosts_v2")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.Collection != "hosts_v2" {
		t.Errorf("collection = %s", res.Collection)
	}
	if v, _ := lookup(f.writer.Documents["hosts_v2"][0], "port"); v != "22" {
		t.Errorf("port = %#v, want string", v)
	}
}

func TestExportUnknownSchema(t *testing.T) {
	f := newFixture(t, 0)
	if _, err := f.exporter.Export(context.Background(), "nope", ""); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
	if len(f.writer.Dropped) != 0 {
		t.Error("collection dropped for unknown schema")
	}
}

func TestExportWriterFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	s, _ := f.catalog.Create(ctx, "hosts", nil)
	f.entity(t, s.ID, "a", nil)
	f.writer.InsertErr = errors.New("not primary")

	if _, err := f.exporter.Export(ctx, "hosts", ""); err == nil {
		t.Error("expected writer error")
	}
}
