package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/nicefood/prodtrack/internal/domain/models"
	"github.com/nicefood/prodtrack/internal/service/directory"
	"github.com/nicefood/prodtrack/internal/testutil"
)

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	users := directory.NewUsers(store, nil)

	operator := testutil.FixtureUser("rahim", "September, 2025", "October, 2025")
	testutil.Put(t, store, models.UsersCollection, "u-1", operator)
	testutil.Put(t, store, models.UsersCollection, "u-2", models.User{Name: "Legacy", Username: "legacy", Password: "pw"})

	a := NewAuthenticator(users, nil)

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"unknown user", "karim", "secret", ErrUserNotFound},
		{"blank user", "  ", "secret", ErrUserNotFound},
		{"wrong password", "rahim", "nope", ErrInvalidPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Authenticate(ctx, tt.username, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}

	s, err := a.Authenticate(ctx, "rahim", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if s.ID != "u-1" || s.CurrentPeriod != "October, 2025" || len(s.Periods) != 2 || s.IsAdmin() {
		t.Fatalf("session = %+v", s)
	}
	if s.PeriodKey() != "october_2025" {
		t.Fatalf("period key = %q", s.PeriodKey())
	}

	legacy, err := a.Authenticate(ctx, "legacy", "pw")
	if err != nil {
		t.Fatalf("legacy login: %v", err)
	}
	if legacy.Role != DefaultRole || legacy.Section != DefaultSection || !legacy.IsAdmin() {
		t.Fatalf("defaults not applied: %+v", legacy)
	}
}

func TestAccessGate(t *testing.T) {
	user := Session{Role: models.RoleUser, Section: "biscuit"}
	admin := Session{Role: "Admin"}

	if err := user.RequireAdmin(); !errors.Is(err, ErrForbidden) {
		t.Fatalf("user passed admin gate: %v", err)
	}
	if err := admin.RequireAdmin(); err != nil {
		t.Fatalf("admin rejected: %v", err)
	}
	if err := user.RequireSection("biscuit"); err != nil {
		t.Fatalf("own section rejected: %v", err)
	}
	if err := user.RequireSection("cake"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign section allowed: %v", err)
	}
	if err := admin.RequireSection("cake"); err != nil {
		t.Fatalf("admin section rejected: %v", err)
	}
	granted := Session{Role: models.RoleUser, CurrentPeriod: "October, 2025", Periods: []string{"September, 2025", "October, 2025"}}
	for key, want := range map[string]error{"october_2025": nil, "september_2025": nil, "august_2025": ErrForbidden} {
		if err := granted.RequirePeriod(key); !errors.Is(err, want) {
			t.Fatalf("RequirePeriod(%q) = %v, want %v", key, err, want)
		}
	}
	if err := admin.RequirePeriod("august_2025"); err != nil {
		t.Fatalf("admin period rejected: %v", err)
	}
	if Message(ErrInvalidPassword) != "incorrect password" {
		t.Fatal("message mapping")
	}
}

func TestSessionFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	if _, err := LoadSession(path); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}

	want := NewSession(testutil.FixtureUser("rahim", "October, 2025"))
	if err := SaveSession(path, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := LoadSession(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Username != want.Username || got.CurrentPeriod != want.CurrentPeriod || got.Section != "biscuit" {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	if err := ClearSession(path); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := ClearSession(path); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	if _, err := LoadSession(path); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession after clear, got %v", err)
	}
}
