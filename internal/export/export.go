// Package export copies a logical table into a MongoDB collection, one
// document per entity.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/vtable/vtable/internal/catalog"
	"github.com/vtable/vtable/internal/entities"
	"github.com/vtable/vtable/internal/evolution"
	"github.com/vtable/vtable/internal/model"
	"github.com/vtable/vtable/internal/typemap"
)

// Result summarizes one export.
type Result struct {
	Schema     string   `json:"schema"`
	Collection string   `json:"collection"`
	Documents  int64    `json:"documents"`
	Indexes    []string `json:"indexes,omitempty"`
}

// Exporter reads entities page by page and writes them through a Writer.
type Exporter struct {
	catalog   *catalog.Catalog
	evolution *evolution.Engine
	values    *entities.ValueStore
	typeMap   *typemap.TypeMap
	writer    Writer
	logger    *slog.Logger
	pageSize  int
}

// NewExporter wires an Exporter. A nil typeMap uses typemap.Default.
func NewExporter(cat *catalog.Catalog, ev *evolution.Engine, values *entities.ValueStore, tm *typemap.TypeMap, w Writer, logger *slog.Logger, pageSize int) *Exporter {
	if tm == nil {
		tm = typemap.Default()
	}
	return &Exporter{
		catalog:   cat,
		evolution: ev,
		values:    values,
		typeMap:   tm,
		writer:    w,
		logger:    logger,
		pageSize:  pageSize,
	}
}

type column struct {
	id     int64
	name   string
	bson   typemap.BSONType
	multi  bool
	unique bool
}

// Export replaces collection with the live entities of schemaName. An empty
// collection name uses the schema name.
func (x *Exporter) Export(ctx context.Context, schemaName, collection string) (*Result, error) {
	schema, err := x.catalog.FindByName(ctx, schemaName, false)
	if err != nil {
		return nil, err
	}
	if collection = strings.TrimSpace(collection); collection == "" {
		collection = schema.Name
	}

	columns, err := x.columns(ctx, schema.Name)
	if err != nil {
		return nil, err
	}

	if err := x.writer.DropCollection(ctx, collection); err != nil {
		return nil, fmt.Errorf("exporting %s: %w", schema.Name, err)
	}

	res := &Result{Schema: schema.Name, Collection: collection}
	for page, err := range x.values.Pages(ctx, schema.ID, x.pageSize) {
		if err != nil {
			return nil, err
		}
		docs, err := x.documents(ctx, page, columns)
		if err != nil {
			return nil, err
		}
		n, err := x.writer.InsertDocuments(ctx, collection, docs)
		if err != nil {
			return nil, fmt.Errorf("exporting %s: %w", schema.Name, err)
		}
		res.Documents += n
	}

	for _, c := range columns {
		if !c.unique || c.multi {
			continue
		}
		if err := x.writer.CreateUniqueIndex(ctx, collection, c.name); err != nil {
			return nil, fmt.Errorf("exporting %s: %w", schema.Name, err)
		}
		res.Indexes = append(res.Indexes, c.name)
	}

	x.logger.Info("schema exported", "schema", schema.Name, "collection", collection, "documents", res.Documents)
	return res, nil
}

func (x *Exporter) columns(ctx context.Context, schemaName string) ([]column, error) {
	fields, err := x.evolution.GetFields(ctx, schemaName, false)
	if err != nil {
		return nil, err
	}
	columns := make([]column, 0, len(fields))
	for _, f := range fields {
		fm, err := x.evolution.FieldMeta(f)
		if err != nil {
			return nil, err
		}
		columns = append(columns, column{
			id:     f.ID,
			name:   f.Name,
			bson:   x.typeMap.Resolve(fm.TypeName),
			multi:  fm.Multi,
			unique: fm.Unique,
		})
	}
	return columns, nil
}

func (x *Exporter) documents(ctx context.Context, page []model.Entity, columns []column) ([]bson.D, error) {
	ids := make([]int64, len(page))
	for i, e := range page {
		ids[i] = e.ID
	}
	values, err := x.values.ValuesFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]column, len(columns))
	for _, c := range columns {
		byID[c.id] = c
	}
	// cells[entity][field] holds converted values in storage order.
	cells := make(map[int64]map[int64][]any, len(page))
	for _, v := range values {
		c, ok := byID[v.FieldID]
		if !ok {
			continue
		}
		converted, err := typemap.Convert(c.bson, v.Value)
		if err != nil {
			return nil, fmt.Errorf("entity %d field %s: %w", v.EntityID, c.name, err)
		}
		if cells[v.EntityID] == nil {
			cells[v.EntityID] = make(map[int64][]any)
		}
		cells[v.EntityID][c.id] = append(cells[v.EntityID][c.id], converted)
	}

	docs := make([]bson.D, 0, len(page))
	for _, e := range page {
		doc := bson.D{{Key: "_id", Value: e.ID}, {Key: "key", Value: e.Key}}
		for _, c := range columns {
			vs := cells[e.ID][c.id]
			switch {
			case len(vs) == 0:
				continue
			case c.multi:
				doc = append(doc, bson.E{Key: c.name, Value: bson.A(vs)})
			default:
				doc = append(doc, bson.E{Key: c.name, Value: vs[0]})
			}
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
