package period

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nicefood/prodtrack/internal/domain/models"
	"github.com/nicefood/prodtrack/internal/repository"
	"github.com/nicefood/prodtrack/internal/service/directory"
	"github.com/nicefood/prodtrack/internal/testutil"
)

var october = models.Period{Month: time.October, Year: 2025}

func newManager(store repository.Store) (*Manager, *directory.Users) {
	users := directory.NewUsers(store, nil)
	return NewManager(store, users, nil, -1, nil), users
}

func seedBiscuit(t *testing.T, store repository.Store) {
	t.Helper()
	testutil.Put(t, store, "biscuit_rm", "rm-flour", testutil.FixtureMaterial())
	testutil.Put(t, store, "biscuit_rm", "rm-sugar", testutil.FixtureMaterial(func(m *models.Material) {
		m.Name = "Sugar"
		m.Opening = 7.25
	}))
	testutil.Put(t, store, "biscuit_pm", "pm-foil", testutil.FixtureMaterial(func(m *models.Material) {
		m.Name = "Foil"
		m.Unit = "pcs"
	}))
}

func TestCreatePeriod_CopiesUnderOriginalIDs(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	mgr, users := newManager(store)
	seedBiscuit(t, store)
	u, _ := users.Create(ctx, testutil.FixtureUser("op", "September, 2025"))

	var ticks int
	res, err := mgr.CreatePeriod(ctx, []string{"biscuit"}, october, func(done, total int) { ticks++ })
	if err != nil {
		t.Fatalf("create period: %v", err)
	}
	if res.Status != models.JobCompleted || res.Total != 3 || res.Processed != 3 || ticks != 3 {
		t.Fatalf("result = %+v, ticks %d", res, ticks)
	}

	if n := testutil.Count(t, store, "biscuit_rm_period_october_2025"); n != 2 {
		t.Fatalf("rm period has %d documents", n)
	}
	if n := testutil.Count(t, store, "biscuit_pm_period_october_2025"); n != 1 {
		t.Fatalf("pm period has %d documents", n)
	}
	for _, pair := range [][2]string{{"biscuit_rm", "rm-flour"}, {"biscuit_rm", "rm-sugar"}, {"biscuit_pm", "pm-foil"}} {
		base := testutil.MustGet(t, store, pair[0], pair[1])
		copied := testutil.MustGet(t, store, pair[0]+"_period_october_2025", pair[1])
		if _, ok := copied.Data["id"]; ok {
			t.Fatalf("id leaked into payload of %s", pair[1])
		}
		bm, _ := models.DecodeMaterial(base)
		cm, _ := models.DecodeMaterial(copied)
		if bm.Name != cm.Name || bm.Opening != cm.Opening || len(cm.ReceivedDays) != models.DaysInBuffer {
			t.Fatalf("%s: copy %+v differs from base %+v", pair[1], cm, bm)
		}
	}

	got, _ := users.Get(ctx, u.ID)
	if !got.HasPeriod("October, 2025") {
		t.Fatalf("period not granted: %v", got.Periods)
	}
}

func TestCreatePeriod_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	mgr, users := newManager(store)
	seedBiscuit(t, store)
	u, _ := users.Create(ctx, testutil.FixtureUser("op"))

	for i := 0; i < 2; i++ {
		if _, err := mgr.CreatePeriod(ctx, []string{"biscuit"}, october, nil); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	got, _ := users.Get(ctx, u.ID)
	if len(got.Periods) != 1 || got.Periods[0] != "October, 2025" {
		t.Fatalf("periods = %v", got.Periods)
	}
	if n := testutil.Count(t, store, "biscuit_rm_period_october_2025"); n != 2 {
		t.Fatalf("rm period has %d documents", n)
	}
}

func TestCreatePeriod_RejectsBeforeCutoff(t *testing.T) {
	store := testutil.NewStore(t)
	mgr, _ := newManager(store)

	_, err := mgr.CreatePeriod(context.Background(), []string{"biscuit"}, models.Period{Month: time.August, Year: 2025}, nil)
	if !errors.Is(err, ErrBeforeCutoff) || !errors.Is(err, models.ErrValidation) {
		t.Fatalf("expected ErrBeforeCutoff, got %v", err)
	}
	if n := testutil.Count(t, store, models.PeriodJobsCollection); n != 0 {
		t.Fatalf("no job should be recorded, got %d", n)
	}

	if _, err := mgr.CreatePeriod(context.Background(), []string{"biscuit"}, Cutoff, nil); err != nil {
		t.Fatalf("cutoff month itself must be accepted: %v", err)
	}
}

func TestCreatePeriod_ContinuesOnErrorAndResumes(t *testing.T) {
	ctx := context.Background()
	inner := testutil.NewStore(t)
	faulty := testutil.NewFaultyStore(inner)
	mgr, users := newManager(faulty)
	seedBiscuit(t, inner)
	testutil.Put(t, inner, "cake_rm", "rm-egg", testutil.FixtureMaterial(func(m *models.Material) { m.Name = "Egg" }))
	if _, err := users.Create(ctx, testutil.FixtureUser("op")); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	faulty.FailOn(testutil.OpCreateWithID, "biscuit_rm_period_october_2025", "rm-sugar")
	res, err := mgr.CreatePeriod(ctx, []string{"biscuit", "cake"}, october, nil)
	if err != nil {
		t.Fatalf("create period: %v", err)
	}
	if res.Status != models.JobPartial || len(res.Skipped) != 1 || res.Skipped[0].ID != "rm-sugar" {
		t.Fatalf("result = %+v", res)
	}
	if n := testutil.Count(t, inner, "cake_rm_period_october_2025"); n != 1 {
		t.Fatalf("later units must still run, cake rm has %d", n)
	}
	if res.UsersUpdated != 1 {
		t.Fatalf("users updated = %d", res.UsersUpdated)
	}

	faulty.Reset()
	before := faulty.Calls(testutil.OpCreateWithID)
	resumed, err := mgr.ResumeJob(ctx, res.JobID, nil)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.Status != models.JobCompleted {
		t.Fatalf("resumed = %+v", resumed)
	}
	if copies := faulty.Calls(testutil.OpCreateWithID) - before; copies != 2 {
		t.Fatalf("resume must only redo the failed unit, made %d copies", copies)
	}
	testutil.MustGet(t, inner, "biscuit_rm_period_october_2025", "rm-sugar")

	if _, err := mgr.ResumeJob(ctx, res.JobID, nil); !errors.Is(err, ErrJobFinished) {
		t.Fatalf("expected ErrJobFinished, got %v", err)
	}
}

func TestDeletePeriod(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	mgr, users := newManager(store)
	seedBiscuit(t, store)
	u, _ := users.Create(ctx, testutil.FixtureUser("op", "September, 2025", "October, 2025"))

	if _, err := mgr.CreatePeriod(ctx, []string{"biscuit"}, october, nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	res, err := mgr.DeletePeriod(ctx, []string{"biscuit"}, october, nil)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if res.Status != models.JobCompleted || res.Processed != 3 {
		t.Fatalf("result = %+v", res)
	}
	for _, coll := range []string{"biscuit_rm_period_october_2025", "biscuit_pm_period_october_2025"} {
		if n := testutil.Count(t, store, coll); n != 0 {
			t.Fatalf("%s still has %d documents", coll, n)
		}
	}
	if testutil.Count(t, store, "biscuit_rm") != 2 {
		t.Fatal("base collection must be untouched")
	}

	got, _ := users.Get(ctx, u.ID)
	if got.HasPeriod("October, 2025") {
		t.Fatalf("period not revoked: %v", got.Periods)
	}
	if len(res.StaleUsers) != 1 || got.CurrentPeriod != "October, 2025" {
		t.Fatalf("stale users = %v, current = %q", res.StaleUsers, got.CurrentPeriod)
	}
}

func TestValidateOpeningCopy(t *testing.T) {
	tests := []struct {
		name    string
		section string
		from    string
		to      string
		wantErr error
	}{
		{"no section", "", "september_2025", "october_2025", ErrSectionRequired},
		{"no from", "biscuit", "", "october_2025", ErrPeriodRequired},
		{"same", "biscuit", "october_2025", "october_2025", ErrSamePeriod},
		{"reversed", "biscuit", "october_2025", "september_2025", ErrPeriodOrder},
		{"across years", "biscuit", "december_2025", "january_2025", ErrPeriodOrder},
		{"malformed", "biscuit", "octobre_2025", "november_2025", models.ErrInvalidPeriodKey},
		{"ok", "biscuit", "december_2025", "january_2026", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ValidateOpeningCopy(tt.section, tt.from, tt.to)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) || !errors.Is(err, models.ErrValidation) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCopyOpeningFromClosing(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	mgr, _ := newManager(store)

	from := "september_2025"
	to := "october_2025"
	testutil.Put(t, store, "biscuit_rm_period_"+from, "rm-flour", testutil.FixtureMaterial(func(m *models.Material) { m.Closing = 42.5 }))
	testutil.Put(t, store, "biscuit_rm_period_"+from, "rm-only-old", testutil.FixtureMaterial())
	testutil.Put(t, store, "biscuit_pm_period_"+from, "pm-foil", testutil.FixtureMaterial())
	if err := store.Update(ctx, "biscuit_pm_period_"+from, "pm-foil", map[string]any{"closing": nil}); err != nil {
		t.Fatalf("clear closing: %v", err)
	}
	testutil.Put(t, store, "biscuit_rm_period_"+to, "rm-flour", testutil.FixtureMaterial(func(m *models.Material) { m.Opening = 1 }))
	testutil.Put(t, store, "biscuit_pm_period_"+to, "pm-foil", testutil.FixtureMaterial(func(m *models.Material) { m.Opening = 1 }))

	for i := 0; i < 2; i++ {
		res, err := mgr.CopyOpeningFromClosing(ctx, "biscuit", from, to)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if res.Updated != 2 || res.Missing != 1 {
			t.Fatalf("run %d result = %+v", i, res)
		}

		flour, _ := models.DecodeMaterial(testutil.MustGet(t, store, "biscuit_rm_period_"+to, "rm-flour"))
		foil, _ := models.DecodeMaterial(testutil.MustGet(t, store, "biscuit_pm_period_"+to, "pm-foil"))
		if flour.Opening != 42.5 || foil.Opening != 0 {
			t.Fatalf("run %d: flour opening %v, foil opening %v", i, flour.Opening, foil.Opening)
		}
	}

	if _, err := store.Get(ctx, "biscuit_rm_period_"+to, "rm-only-old"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("missing materials must not be created, got %v", err)
	}
}
