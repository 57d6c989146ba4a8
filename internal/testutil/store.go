// Package testutil provides utilities for testing.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/nicefood/prodtrack/internal/domain/models"
	"github.com/nicefood/prodtrack/internal/repository"
	"github.com/nicefood/prodtrack/internal/repository/sqlite"
)

// ErrInjected is returned by FaultyStore for operations marked to fail.
var ErrInjected = errors.New("injected store failure")

// NewStore creates a new in-memory SQLite document store for testing.
func NewStore(t *testing.T) *sqlite.Repository {
	t.Helper()

	store, err := sqlite.Open(context.Background(), ":memory:", nil)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store
}

// Op names a store operation for fault injection.
type Op string

const (
	OpList         Op = "list"
	OpGet          Op = "get"
	OpCreate       Op = "create"
	OpCreateWithID Op = "create_with_id"
	OpUpdate       Op = "update"
	OpDelete       Op = "delete"
)

// FaultyStore wraps a Store and fails selected operations. An empty id in a
// rule matches every document of the collection.
type FaultyStore struct {
	repository.Store

	mu    sync.Mutex
	rules map[string]bool
	calls map[Op]int
}

// NewFaultyStore wraps inner.
func NewFaultyStore(inner repository.Store) *FaultyStore {
	return &FaultyStore{Store: inner, rules: map[string]bool{}, calls: map[Op]int{}}
}

// FailOn makes op fail for collection (and id, when not empty).
func (f *FaultyStore) FailOn(op Op, collection, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[ruleKey(op, collection, id)] = true
}

// Reset clears every rule.
func (f *FaultyStore) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = map[string]bool{}
}

// Calls returns how many times op was invoked, including failed calls.
func (f *FaultyStore) Calls(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *FaultyStore) check(op Op, collection, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	if f.rules[ruleKey(op, collection, "")] || (id != "" && f.rules[ruleKey(op, collection, id)]) {
		return fmt.Errorf("%s %s/%s: %w", op, collection, id, ErrInjected)
	}
	return nil
}

func ruleKey(op Op, collection, id string) string {
	return string(op) + "|" + collection + "|" + id
}

func (f *FaultyStore) List(ctx context.Context, collection string) ([]repository.Document, error) {
	if err := f.check(OpList, collection, ""); err != nil {
		return nil, err
	}
	return f.Store.List(ctx, collection)
}

func (f *FaultyStore) Get(ctx context.Context, collection, id string) (repository.Document, error) {
	if err := f.check(OpGet, collection, id); err != nil {
		return repository.Document{}, err
	}
	return f.Store.Get(ctx, collection, id)
}

func (f *FaultyStore) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	if err := f.check(OpCreate, collection, ""); err != nil {
		return "", err
	}
	return f.Store.Create(ctx, collection, data)
}

func (f *FaultyStore) CreateWithID(ctx context.Context, collection, id string, data map[string]any) error {
	if err := f.check(OpCreateWithID, collection, id); err != nil {
		return err
	}
	return f.Store.CreateWithID(ctx, collection, id, data)
}

func (f *FaultyStore) Update(ctx context.Context, collection, id string, partial map[string]any) error {
	if err := f.check(OpUpdate, collection, id); err != nil {
		return err
	}
	return f.Store.Update(ctx, collection, id, partial)
}

func (f *FaultyStore) Delete(ctx context.Context, collection, id string) error {
	if err := f.check(OpDelete, collection, id); err != nil {
		return err
	}
	return f.Store.Delete(ctx, collection, id)
}

// Put stores v under id in collection, failing the test on error.
func Put(t *testing.T, store repository.Store, collection, id string, v any) {
	t.Helper()

	data, err := models.ToData(v)
	if err != nil {
		t.Fatalf("encode %s/%s: %v", collection, id, err)
	}
	if err := store.CreateWithID(context.Background(), collection, id, data); err != nil {
		t.Fatalf("put %s/%s: %v", collection, id, err)
	}
}

// MustGet reads a document, failing the test when it is missing.
func MustGet(t *testing.T, store repository.Store, collection, id string) repository.Document {
	t.Helper()

	doc, err := store.Get(context.Background(), collection, id)
	if err != nil {
		t.Fatalf("get %s/%s: %v", collection, id, err)
	}
	return doc
}

// Count returns the number of documents in a collection.
func Count(t *testing.T, store repository.Store, collection string) int {
	t.Helper()

	docs, err := store.List(context.Background(), collection)
	if err != nil {
		t.Fatalf("list %s: %v", collection, err)
	}
	return len(docs)
}
