package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/nicefood/prodtrack/internal/domain/models"
	"github.com/nicefood/prodtrack/internal/repository"
	"github.com/nicefood/prodtrack/internal/testutil"
)

const (
	section = "biscuit"
	period  = "october_2025"
)

type recordingCache struct {
	keys []string
}

func (c *recordingCache) Invalidate(_ context.Context, section, periodKey string) error {
	c.keys = append(c.keys, section+"/"+periodKey)
	return nil
}

func newService(t *testing.T, store repository.Store) (*Service, *recordingCache) {
	t.Helper()
	cache := &recordingCache{}
	return NewService(store, NewWriter(store, cache, nil), nil), cache
}

func TestWriter_PartialAndTotalFailure(t *testing.T) {
	ctx := context.Background()
	faulty := testutil.NewFaultyStore(testutil.NewStore(t))
	w := NewWriter(faulty, nil, nil)

	id, err := w.Create(ctx, section, models.KindRM, map[string]any{"name": "Flour"}, period)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	faulty.FailOn(testutil.OpUpdate, models.PeriodCollection(section, models.KindRM, period), id)
	err = w.Update(ctx, section, models.KindRM, id, map[string]any{"name": "Wheat Flour"}, period)

	var werr *WriteError
	if !errors.As(err, &werr) {
		t.Fatalf("expected WriteError, got %v", err)
	}
	if !werr.Partial() || !IsPartial(err) {
		t.Fatalf("expected partial failure, got %v", werr)
	}
	if !errors.Is(err, testutil.ErrInjected) {
		t.Fatalf("cause not reachable: %v", err)
	}
	base := testutil.MustGet(t, faulty, models.BaseCollection(section, models.KindRM), id)
	if base.Data["name"] != "Wheat Flour" {
		t.Fatalf("base not updated: %v", base.Data)
	}

	faulty.FailOn(testutil.OpDelete, models.BaseCollection(section, models.KindRM), "")
	faulty.FailOn(testutil.OpDelete, models.PeriodCollection(section, models.KindRM, period), "")
	err = w.Delete(ctx, section, models.KindRM, id, period)
	if !errors.As(err, &werr) || werr.Partial() || werr.Attempted != 2 {
		t.Fatalf("expected total failure over 2 collections, got %v", err)
	}
}

func TestWriter_LeavesOtherPeriodsAlone(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	w := NewWriter(store, nil, nil)
	const september = "september_2025"

	sept := models.PeriodCollection(section, models.KindRM, september)
	for _, coll := range []string{models.BaseCollection(section, models.KindRM), sept, models.PeriodCollection(section, models.KindRM, period)} {
		testutil.Put(t, store, coll, "m1", testutil.FixtureMaterial())
	}

	if err := w.Update(ctx, section, models.KindRM, "m1", map[string]any{"name": "Sugar Fine"}, period); err != nil {
		t.Fatalf("update: %v", err)
	}
	for _, coll := range []string{models.BaseCollection(section, models.KindRM), models.PeriodCollection(section, models.KindRM, period)} {
		if got := testutil.MustGet(t, store, coll, "m1"); got.Data["name"] != "Sugar Fine" {
			t.Fatalf("%s not updated: %v", coll, got.Data)
		}
	}
	if got := testutil.MustGet(t, store, sept, "m1"); got.Data["name"] != "Flour" {
		t.Fatalf("september snapshot changed: %v", got.Data)
	}

	if err := w.Delete(ctx, section, models.KindRM, "m1", period); err != nil {
		t.Fatalf("delete: %v", err)
	}
	testutil.MustGet(t, store, sept, "m1")
}

func TestRegisterMaterial(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	svc, cache := newService(t, store)

	tests := []struct {
		name    string
		in      MaterialInput
		kind    models.Kind
		wantErr error
	}{
		{"missing name", MaterialInput{Unit: "kg"}, models.KindRM, ErrNameRequired},
		{"bad unit", MaterialInput{Name: "Sugar", Unit: "ton"}, models.KindRM, ErrInvalidUnit},
		{"products kind", MaterialInput{Name: "Sugar", Unit: "kg"}, models.KindProducts, ErrInvalidKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RegisterMaterial(ctx, section, tt.kind, tt.in, "")
			if !errors.Is(err, tt.wantErr) || !errors.Is(err, models.ErrValidation) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	m, err := svc.RegisterMaterial(ctx, section, models.KindRM, MaterialInput{Name: " Sugar ", Unit: "kg", Opening: 12}, period)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	for _, coll := range []string{models.BaseCollection(section, models.KindRM), models.PeriodCollection(section, models.KindRM, period)} {
		got, err := models.DecodeMaterial(testutil.MustGet(t, store, coll, m.ID))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Name != "Sugar" || got.Opening != 12 || len(got.ReceivedDays) != models.DaysInBuffer || got.Closing != 0 {
			t.Fatalf("%s: unexpected record %+v", coll, got)
		}
	}
	if len(cache.keys) != 1 || cache.keys[0] != section+"/"+period {
		t.Fatalf("cache invalidations = %v", cache.keys)
	}

	if err := svc.EditMaterial(ctx, section, models.KindRM, m.ID, MaterialInput{Name: "Brown Sugar", Unit: "gm"}, period); err != nil {
		t.Fatalf("edit: %v", err)
	}
	list, err := svc.ListMaterials(ctx, section, models.KindRM, period)
	if err != nil || len(list) != 1 || list[0].Name != "Brown Sugar" || list[0].Unit != "gm" {
		t.Fatalf("list = %+v, %v", list, err)
	}

	if err := svc.DeleteMaterial(ctx, section, models.KindRM, m.ID, period); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n := testutil.Count(t, store, models.BaseCollection(section, models.KindRM)); n != 0 {
		t.Fatalf("base still has %d documents", n)
	}
}

func TestListMaterialsSortsByName(t *testing.T) {
	store := testutil.NewStore(t)
	svc, _ := newService(t, store)
	coll := models.BaseCollection(section, models.KindPM)
	for id, name := range map[string]string{"a": "wrapper", "b": "Carton", "c": "box"} {
		testutil.Put(t, store, coll, id, testutil.FixtureMaterial(func(m *models.Material) { m.Name = name }))
	}

	list, err := svc.ListMaterials(context.Background(), section, models.KindPM, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := []string{list[0].Name, list[1].Name, list[2].Name}
	if got[0] != "box" || got[1] != "Carton" || got[2] != "wrapper" {
		t.Fatalf("order = %v", got)
	}
}

func TestCreateProductUsesTemplate(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	svc, _ := newService(t, store)

	if _, err := svc.CreateProduct(ctx, section, "Choco", nil, ""); !errors.Is(err, ErrTemplateMissing) {
		t.Fatalf("expected ErrTemplateMissing, got %v", err)
	}

	if err := store.CreateWithID(ctx, models.RecipeInfoCollection, section, map[string]any{"net_weight": 40.0}); err != nil {
		t.Fatalf("seed template: %v", err)
	}
	p, err := svc.CreateProduct(ctx, section, "Choco", nil, period)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.GetProduct(ctx, section, period, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if w, _ := got.Info.Number("net_weight"); w != 40 {
		t.Fatalf("info = %v", got.Info)
	}
	if len(got.RM) != 0 || len(got.Carton) != models.DaysInBuffer {
		t.Fatalf("unexpected product %+v", got)
	}

	if err := svc.RenameProduct(ctx, section, p.ID, "Choco Max", period); err != nil {
		t.Fatalf("rename: %v", err)
	}
	base, _ := svc.GetProduct(ctx, section, "", p.ID)
	if base.Name != "Choco Max" {
		t.Fatalf("base name = %q", base.Name)
	}
}

func TestAddAndRemoveBOMItem(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	svc, _ := newService(t, store)

	product := testutil.FixtureProduct()
	testutil.Put(t, store, models.BaseCollection(section, models.KindProducts), "p1", product)
	testutil.Put(t, store, models.PeriodCollection(section, models.KindProducts, period), "p1", product)

	tests := []struct {
		name    string
		line    BOMLine
		wantErr error
	}{
		{"zero batch", BOMLine{ID: "rm-sugar", Unit: "kg", BatchQty: 0, CartonQty: 1}, ErrInvalidQuantity},
		{"negative carton", BOMLine{ID: "rm-sugar", Unit: "kg", BatchQty: 1, CartonQty: -1}, ErrInvalidQuantity},
		{"duplicate", BOMLine{ID: "rm-flour", Unit: "kg", BatchQty: 1, CartonQty: 1}, ErrDuplicateItem},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.AddBOMItem(ctx, section, "p1", models.KindRM, tt.line, period); !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := svc.AddBOMItem(ctx, section, "p1", models.KindRM, BOMLine{ID: "rm-sugar", Unit: "kg", BatchQty: 2, CartonQty: 0.1}, period); err != nil {
		t.Fatalf("add: %v", err)
	}
	for _, key := range []string{"", period} {
		got, err := svc.GetProduct(ctx, section, key, "p1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if len(got.RM) != 2 || len(got.CartonRM) != 2 || got.CartonRM[1].Qty != 0.1 {
			t.Fatalf("period %q: rm=%v carton_rm=%v", key, got.RM, got.CartonRM)
		}
		if len(got.PM) != 1 {
			t.Fatalf("pm list must be untouched: %v", got.PM)
		}
	}

	if _, err := svc.RemoveBOMItem(ctx, section, "p1", models.KindRM, "rm-flour", period); err != nil {
		t.Fatalf("remove: %v", err)
	}
	got, _ := svc.GetProduct(ctx, section, period, "p1")
	if len(got.RM) != 1 || got.RM[0].ID != "rm-sugar" || len(got.CartonRM) != 1 {
		t.Fatalf("after remove rm=%v carton_rm=%v", got.RM, got.CartonRM)
	}
	if _, err := svc.RemoveBOMItem(ctx, section, "p1", models.KindRM, "rm-flour", period); !errors.Is(err, ErrItemNotInRecipe) {
		t.Fatalf("expected ErrItemNotInRecipe, got %v", err)
	}
}

func TestAddBOMItemReadsActivePeriod(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	svc, _ := newService(t, store)

	old := testutil.FixtureProduct()
	current := testutil.FixtureProduct(func(p *models.Product) {
		p.RM = append(p.RM, models.BOMItem{ID: "rm-sugar", Unit: "kg", Qty: 3})
		p.CartonRM = append(p.CartonRM, models.BOMItem{ID: "rm-sugar", Unit: "kg", Qty: 0.2})
	})
	testutil.Put(t, store, models.BaseCollection(section, models.KindProducts), "p1", current)
	testutil.Put(t, store, models.PeriodCollection(section, models.KindProducts, "september_2025"), "p1", old)
	testutil.Put(t, store, models.PeriodCollection(section, models.KindProducts, period), "p1", current)

	if _, err := svc.AddBOMItem(ctx, section, "p1", models.KindRM, BOMLine{ID: "rm-salt", Unit: "kg", BatchQty: 1, CartonQty: 0.1}, period); err != nil {
		t.Fatalf("add: %v", err)
	}
	got, _ := svc.GetProduct(ctx, section, period, "p1")
	if len(got.RM) != 3 || got.RM[1].ID != "rm-sugar" || got.RM[2].ID != "rm-salt" {
		t.Fatalf("october rm = %v", got.RM)
	}
	sept, _ := svc.GetProduct(ctx, section, "september_2025", "p1")
	if len(sept.RM) != 1 {
		t.Fatalf("september rm changed: %v", sept.RM)
	}
}

func TestInfoFields(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t)
	svc, _ := newService(t, store)

	testutil.Put(t, store, models.BaseCollection(section, models.KindProducts), "p1", testutil.FixtureProduct())
	testutil.Put(t, store, models.PeriodCollection(section, models.KindProducts, period), "p1", testutil.FixtureProduct())

	res, err := svc.AddInfoFields(ctx, section, map[string]any{"Foil Weight": "2.5", "Net Weight": 99.0}, period)
	if err != nil {
		t.Fatalf("add fields: %v", err)
	}
	if res.Updated != 2 || len(res.Skipped) != 0 {
		t.Fatalf("result = %+v", res)
	}
	if v, ok := res.Template["foil_weight"].(float64); !ok || v != 2.5 {
		t.Fatalf("template = %v", res.Template)
	}

	got, _ := svc.GetProduct(ctx, section, period, "p1")
	if w, _ := got.Info.Number("foil_weight"); w != 2.5 {
		t.Fatalf("foil weight not merged: %v", got.Info)
	}
	if w, _ := got.Info.Number("net_weight"); w != 50 {
		t.Fatalf("existing value must be kept: %v", got.Info)
	}

	res, err = svc.RemoveInfoField(ctx, section, "foil_weight", period)
	if err != nil || res.Updated != 2 {
		t.Fatalf("remove field: %+v %v", res, err)
	}
	got, _ = svc.GetProduct(ctx, section, "", "p1")
	if _, ok := got.Info["foil_weight"]; ok {
		t.Fatalf("field not removed: %v", got.Info)
	}
	tmpl, _ := svc.GetInfoTemplate(ctx, section)
	if _, ok := tmpl["foil_weight"]; ok {
		t.Fatalf("template still has field: %v", tmpl)
	}
}

func TestRecipeLines(t *testing.T) {
	p := testutil.FixtureProduct(func(p *models.Product) {
		p.RM = append(p.RM, models.BOMItem{ID: "rm-ghost", Unit: "kg", Qty: 1})
	})
	materials := []models.Material{{ID: "rm-flour", Name: "Flour"}}

	lines := RecipeLines(p, models.KindRM, materials)
	if len(lines) != 2 {
		t.Fatalf("lines = %+v", lines)
	}
	if lines[0].Name != "Flour" || lines[0].BatchQty != 10 || lines[0].CartonQty != 0.5 {
		t.Fatalf("first line = %+v", lines[0])
	}
	if lines[1].Name != UnknownMaterial {
		t.Fatalf("second line = %+v", lines[1])
	}
}
