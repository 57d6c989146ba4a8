package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nicefood/prodtrack/internal/domain/models"
	"github.com/nicefood/prodtrack/internal/testutil"
)

func TestSections_CreateAndList(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	svc := NewSections(store, nil)

	if _, err := svc.Create(ctx, "  "); !errors.Is(err, ErrLabelRequired) {
		t.Fatalf("expected ErrLabelRequired, got %v", err)
	}

	for _, label := range []string{"Dry Cake", "Biscuit"} {
		if _, err := svc.Create(ctx, label); err != nil {
			t.Fatalf("create %q: %v", label, err)
		}
	}

	secs, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(secs) != 2 || secs[0].Value != "biscuit" || secs[1].Value != "dry_cake" {
		t.Fatalf("sections = %+v", secs)
	}

	testutil.MustGet(t, store, models.RecipeInfoCollection, "dry_cake")

	values, err := svc.Values(ctx)
	if err != nil || len(values) != 2 {
		t.Fatalf("values = %v, %v", values, err)
	}
}

func TestUsers_CRUD(t *testing.T) {
	ctx := context.Background()
	svc := NewUsers(testutil.NewStore(t), nil)

	created, err := svc.Create(ctx, testutil.FixtureUser("amina"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, testutil.FixtureUser("amina")); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if _, err := svc.Create(ctx, models.User{Username: "x"}); !errors.Is(err, ErrPasswordRequired) {
		t.Fatalf("expected ErrPasswordRequired, got %v", err)
	}

	update := created
	update.Name = "Amina K"
	update.Role = models.RoleAdmin
	if err := svc.Update(ctx, created.ID, update); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := svc.FindByUsername(ctx, "amina")
	if err != nil || got.Name != "Amina K" || got.Role != models.RoleAdmin {
		t.Fatalf("got %+v, %v", got, err)
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if users, _ := svc.List(ctx); len(users) != 0 {
		t.Fatalf("users left: %v", users)
	}
}

func TestUsers_GrantAndRevokePeriod(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	svc := NewUsers(store, nil)

	a, _ := svc.Create(ctx, testutil.FixtureUser("a", "September, 2025"))
	b, _ := svc.Create(ctx, testutil.FixtureUser("b", "September, 2025", "October, 2025"))

	for i := 0; i < 2; i++ {
		if _, err := svc.GrantPeriod(ctx, "October, 2025"); err != nil {
			t.Fatalf("grant: %v", err)
		}
	}
	for _, id := range []string{a.ID, b.ID} {
		user, _ := svc.Get(ctx, id)
		count := 0
		for _, p := range user.Periods {
			if p == "October, 2025" {
				count++
			}
		}
		if count != 1 {
			t.Fatalf("user %s periods = %v", user.Username, user.Periods)
		}
	}

	change, err := svc.RevokePeriod(ctx, "October, 2025")
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if change.Updated != 2 || len(change.Stale) != 1 || change.Stale[0] != "b" {
		t.Fatalf("change = %+v", change)
	}
	user, _ := svc.Get(ctx, b.ID)
	if user.HasPeriod("October, 2025") || user.CurrentPeriod != "October, 2025" {
		t.Fatalf("user b = %+v", user)
	}
}

func TestUsers_SetCurrentPeriod(t *testing.T) {
	ctx := context.Background()
	svc := NewUsers(testutil.NewStore(t), nil)
	u, _ := svc.Create(ctx, testutil.FixtureUser("a", "September, 2025", "October, 2025"))

	if _, err := svc.SetCurrentPeriod(ctx, u.ID, "March, 2024"); !errors.Is(err, ErrPeriodNotGranted) {
		t.Fatalf("expected ErrPeriodNotGranted, got %v", err)
	}
	got, err := svc.SetCurrentPeriod(ctx, u.ID, "September, 2025")
	if err != nil || got.CurrentPeriod != "September, 2025" {
		t.Fatalf("got %+v, %v", got, err)
	}

	now := time.Date(2025, time.October, 2, 0, 0, 0, 0, time.UTC)
	if !PeriodMismatch(got, now) {
		t.Fatal("expected mismatch for September in October")
	}
	got.CurrentPeriod = "October, 2025"
	if PeriodMismatch(got, now) {
		t.Fatal("unexpected mismatch")
	}
}
