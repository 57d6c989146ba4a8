package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nicefood/prodtrack/internal/config"
	"github.com/nicefood/prodtrack/internal/service/recipe"
)

func TestNewWithSQLite(t *testing.T) {
	cfg := &config.Config{
		Store: config.StoreConfig{Driver: config.DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "prodtrack.db")},
	}
	a, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer a.Close()

	sec, err := a.Sections.Create(context.Background(), "Dry Cake")
	if err != nil {
		t.Fatalf("create section: %v", err)
	}
	if sec.Value != "dry_cake" {
		t.Fatalf("section = %+v", sec)
	}

	if _, err := a.Importer.ImportFromGoogleSheet(context.Background(), "sheet-id"); err != recipe.ErrSheetsDisabled {
		t.Fatalf("expected sheets disabled, got %v", err)
	}
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	if _, _, err := OpenStore(context.Background(), config.StoreConfig{Driver: "postgres"}, nil); err == nil {
		t.Fatal("expected error")
	}
}
