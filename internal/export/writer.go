package export

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Writer receives exported documents.
type Writer interface {
	DropCollection(ctx context.Context, collection string) error
	InsertDocuments(ctx context.Context, collection string, docs []bson.D) (int64, error)
	CreateUniqueIndex(ctx context.Context, collection, field string) error
	Close(ctx context.Context) error
}

// MongoWriter implements Writer using the MongoDB driver.
type MongoWriter struct {
	client   *mongo.Client
	database string
}

// NewMongoWriter connects to MongoDB and verifies the connection.
func NewMongoWriter(ctx context.Context, connectionString, database string) (*MongoWriter, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(connectionString))
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}
	return &MongoWriter{client: client, database: database}, nil
}

// DropCollection drops a collection; a missing collection is not an error.
func (m *MongoWriter) DropCollection(ctx context.Context, collection string) error {
	if err := m.client.Database(m.database).Collection(collection).Drop(ctx); err != nil {
		return fmt.Errorf("dropping collection %s: %w", collection, err)
	}
	return nil
}

// InsertDocuments writes docs with an unordered bulk insert.
func (m *MongoWriter) InsertDocuments(ctx context.Context, collection string, docs []bson.D) (int64, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	batch := make([]any, len(docs))
	for i, d := range docs {
		batch[i] = d
	}
	res, err := m.client.Database(m.database).Collection(collection).
		InsertMany(ctx, batch, options.InsertMany().SetOrdered(false))
	if err != nil {
		return 0, fmt.Errorf("inserting into %s: %w", collection, err)
	}
	return int64(len(res.InsertedIDs)), nil
}

// CreateUniqueIndex creates an ascending unique index on one field.
func (m *MongoWriter) CreateUniqueIndex(ctx context.Context, collection, field string) error {
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetName(field + "_unique").SetUnique(true),
	}
	if _, err := m.client.Database(m.database).Collection(collection).Indexes().CreateOne(ctx, idx); err != nil {
		return fmt.Errorf("creating index on %s.%s: %w", collection, field, err)
	}
	return nil
}

// CountDocuments returns the number of documents in a collection.
func (m *MongoWriter) CountDocuments(ctx context.Context, collection string) (int64, error) {
	count, err := m.client.Database(m.database).Collection(collection).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("counting documents in %s: %w", collection, err)
	}
	return count, nil
}

// Close disconnects from MongoDB.
func (m *MongoWriter) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
