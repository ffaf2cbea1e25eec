//go:build integration

package integration

import (
	"context"
	"testing"

	"github.com/vtable/vtable/internal/export"
)

func TestExportSchemaToMongo(t *testing.T) {
	skipIfNoMongo(t)
	pg := openPostgres(t)
	eng := newEngine(t, pg)
	ctx := context.Background()

	s, err := eng.AddSchema(ctx, uniqueName("export"), nil)
	if err != nil {
		t.Fatalf("AddSchema: %v", err)
	}
	seedEntities(t, pg, s.ID, 5)
	if _, err := eng.AddField(ctx, s.Name, "weight", map[string]any{
		"type": "Integer", "unique": false, "default": 3,
	}); err != nil {
		t.Fatalf("AddField: %v", err)
	}

	w, err := export.NewMongoWriter(ctx, mongoURI(t), mongoDatabase(t))
	if err != nil {
		t.Fatalf("connecting to mongo: %v", err)
	}
	defer w.Close(ctx)

	res, err := eng.ExportSchema(ctx, w, s.Name, s.Name)
	if err != nil {
		t.Fatalf("ExportSchema: %v", err)
	}
	if res.Documents != 5 {
		t.Errorf("expected 5 documents, got %d", res.Documents)
	}
	n, err := w.CountDocuments(ctx, s.Name)
	if err != nil {
		t.Fatalf("CountDocuments: %v", err)
	}
	if n != 5 {
		t.Errorf("expected 5 documents in collection, got %d", n)
	}
	if err := w.DropCollection(ctx, s.Name); err != nil {
		t.Errorf("cleanup: %v", err)
	}
}
