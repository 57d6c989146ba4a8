package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/nicefood/prodtrack/internal/repository"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(context.Background(), ":memory:", nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRepository_CreateGetList(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	id, err := repo.Create(ctx, "biscuit_rm", map[string]any{"id": "ignored", "name": "Flour", "opening": 12.5})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == "" || id == "ignored" {
		t.Fatalf("expected generated id, got %q", id)
	}

	doc, err := repo.Get(ctx, "biscuit_rm", id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, ok := doc.Data["id"]; ok {
		t.Errorf("id must not be stored inside the payload")
	}
	if doc.Data["name"] != "Flour" || doc.Data["opening"] != 12.5 {
		t.Errorf("unexpected data %v", doc.Data)
	}

	docs, err := repo.List(ctx, "biscuit_rm")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != id {
		t.Fatalf("unexpected list %v", docs)
	}

	empty, err := repo.List(ctx, "cake_rm")
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty collection, got %d", len(empty))
	}
}

func TestRepository_CreateWithIDOverwrites(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	if err := repo.CreateWithID(ctx, "users", "u1", map[string]any{"name": "A", "role": "admin"}); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := repo.CreateWithID(ctx, "users", "u1", map[string]any{"name": "B"}); err != nil {
		t.Fatalf("second write: %v", err)
	}

	doc, err := repo.Get(ctx, "users", "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.Data["name"] != "B" {
		t.Errorf("name = %v, want B", doc.Data["name"])
	}
	if _, ok := doc.Data["role"]; ok {
		t.Errorf("CreateWithID must replace the whole document")
	}
}

func TestRepository_UpdateMergesFields(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	if err := repo.CreateWithID(ctx, "biscuit_rm", "m1", map[string]any{"name": "Sugar", "opening": 1.0, "closing": 4.0}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := repo.Update(ctx, "biscuit_rm", "m1", map[string]any{"opening": 9.0}); err != nil {
		t.Fatalf("update: %v", err)
	}

	doc, _ := repo.Get(ctx, "biscuit_rm", "m1")
	if doc.Data["opening"] != 9.0 || doc.Data["closing"] != 4.0 || doc.Data["name"] != "Sugar" {
		t.Errorf("unexpected merge result %v", doc.Data)
	}

	err := repo.Update(ctx, "biscuit_rm", "missing", map[string]any{"opening": 1.0})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("update missing: got %v, want ErrNotFound", err)
	}
}

func TestRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	_ = repo.CreateWithID(ctx, "sections", "s1", map[string]any{"label": "Biscuit"})
	if err := repo.Delete(ctx, "sections", "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, "sections", "s1"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("get after delete: got %v, want ErrNotFound", err)
	}
	if err := repo.Delete(ctx, "sections", "s1"); err != nil {
		t.Errorf("deleting a missing document should succeed, got %v", err)
	}
}
