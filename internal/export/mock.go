package export

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// MockWriter is a test double for the Writer interface.
type MockWriter struct {
	DropErr   error
	InsertErr error
	IndexErr  error
	CloseErr  error

	// Track calls
	Dropped     []string
	Documents   map[string][]bson.D
	Batches     []int
	UniqueIndex map[string][]string
	Closed      bool
}

func (m *MockWriter) DropCollection(_ context.Context, collection string) error {
	if m.DropErr != nil {
		return m.DropErr
	}
	m.Dropped = append(m.Dropped, collection)
	delete(m.Documents, collection)
	return nil
}

func (m *MockWriter) InsertDocuments(_ context.Context, collection string, docs []bson.D) (int64, error) {
	if m.InsertErr != nil {
		return 0, m.InsertErr
	}
	if m.Documents == nil {
		m.Documents = make(map[string][]bson.D)
	}
	m.Documents[collection] = append(m.Documents[collection], docs...)
	m.Batches = append(m.Batches, len(docs))
	return int64(len(docs)), nil
}

func (m *MockWriter) CreateUniqueIndex(_ context.Context, collection, field string) error {
	if m.IndexErr != nil {
		return m.IndexErr
	}
	if m.UniqueIndex == nil {
		m.UniqueIndex = make(map[string][]string)
	}
	m.UniqueIndex[collection] = append(m.UniqueIndex[collection], field)
	return nil
}

func (m *MockWriter) Close(_ context.Context) error {
	m.Closed = true
	return m.CloseErr
}
