package repository

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a document does not exist in a collection.
var ErrNotFound = errors.New("document not found")

// Document is a stored record addressed by its collection-scoped identifier.
// The identifier is never part of Data.
type Document struct {
	ID   string
	Data map[string]any
}

// Store is the document store gateway every service depends on. Collections are
// created implicitly on first write. No operation spans more than one document.
type Store interface {
	List(ctx context.Context, collection string) ([]Document, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	Create(ctx context.Context, collection string, data map[string]any) (string, error)
	CreateWithID(ctx context.Context, collection, id string, data map[string]any) error
	Update(ctx context.Context, collection, id string, partial map[string]any) error
	Delete(ctx context.Context, collection, id string) error
}

// StripID returns a shallow copy of data without the "id" and "_id" keys.
func StripID(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if k == "id" || k == "_id" {
			continue
		}
		out[k] = v
	}
	return out
}
