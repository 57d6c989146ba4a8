package reporting

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nicefood/prodtrack/internal/domain/models"
	"github.com/nicefood/prodtrack/internal/service/consumption"
	"github.com/nicefood/prodtrack/internal/service/ledger"
	"github.com/nicefood/prodtrack/internal/testutil"
)

func sampleReport() consumption.Report {
	flour := testutil.FixtureMaterial(testutil.WithReceived(5, 20), testutil.WithConsumed(5, 30))
	flour.ID = "rm-flour"
	idle := testutil.FixtureMaterial(func(m *models.Material) { m.ID = "rm-salt"; m.Name = "Salt" })
	choco := testutil.FixtureProduct(func(p *models.Product) {
		p.ID = "p-choco"
		p.Carton[4].Qty = 10
	})
	idleProduct := testutil.FixtureProduct(func(p *models.Product) { p.ID = "p-idle"; p.Name = "Idle Cake" })

	r := consumption.Aggregate(consumption.Snapshot{
		Products: []models.Product{choco, idleProduct},
		RM:       []models.Material{flour, idle},
	}, 5)
	r.Section = "biscuit"
	r.PeriodKey = "october_2025"
	r.PeriodDisplay = "October, 2025"
	return r
}

func newTestService() *Service {
	s := NewService("", nil)
	s.now = func() time.Time { return time.Date(2025, 10, 5, 20, 0, 0, 0, time.UTC) }
	return s
}

func TestDailyWorkbook(t *testing.T) {
	f, err := newTestService().DailyWorkbook(sampleReport())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	back, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer back.Close()

	sheets := back.GetSheetList()
	if strings.Join(sheets, ",") != "Products,RM,PM" {
		t.Fatalf("sheets = %v", sheets)
	}

	title, _ := back.GetCellValue(SheetRM, "A3")
	if title != "Daily Consumption Report for 05 October, 2025" {
		t.Fatalf("title = %q", title)
	}
	company, _ := back.GetCellValue(SheetProducts, "A1")
	if company != DefaultCompanyName {
		t.Fatalf("company = %q", company)
	}

	rows, err := back.GetRows(SheetRM)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != firstDataRow+1 {
		t.Fatalf("rm rows = %d", len(rows))
	}
	flour := rows[firstDataRow-1]
	if flour[1] != "Flour" || flour[2] != "100" || flour[3] != "20" || flour[4] != "30" || flour[5] != "90" {
		t.Fatalf("flour row = %v", flour)
	}

	output, _ := back.GetCellValue(SheetProducts, "F6")
	if output != "12" {
		t.Fatalf("output = %q", output)
	}
}

func TestWriteDailyPDF(t *testing.T) {
	s := newTestService()

	var buf bytes.Buffer
	if err := s.WriteDailyPDF(&buf, sampleReport()); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatal("not a pdf")
	}

	empty := consumption.Aggregate(consumption.Snapshot{}, 12)
	buf.Reset()
	if err := s.WriteDailyPDF(&buf, empty); err != nil {
		t.Fatalf("render empty: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("empty output")
	}
}

func TestVisibleRows(t *testing.T) {
	r := sampleReport()
	products := activeProducts(r.Products)
	if len(products) != 1 || products[0].ID != "p-choco" {
		t.Fatalf("products = %+v", products)
	}
	rm := movedMaterials(r.RM)
	if len(rm) != 1 || rm[0].ID != "rm-flour" {
		t.Fatalf("rm = %+v", rm)
	}
}

func TestRecipeRenderers(t *testing.T) {
	p := testutil.FixtureProduct(func(p *models.Product) { p.ID = "p-choco" })
	materials := []models.Material{{ID: "rm-flour", Name: "Flour"}}
	rec := Recipe{
		Section: "biscuit",
		Product: p,
		RM:      ledger.RecipeLines(p, models.KindRM, materials),
		PM:      ledger.RecipeLines(p, models.KindPM, nil),
	}
	s := newTestService()

	f, err := s.RecipeWorkbook(rec)
	if err != nil {
		t.Fatalf("workbook: %v", err)
	}
	rows, err := f.GetRows("Recipe Details")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}

	var sawNetWeight, sawFlour, sawUnknown bool
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		switch row[0] {
		case "Net Weight":
			sawNetWeight = row[1] == "50 gm"
		case "Flour":
			sawFlour = row[2] == "10" && row[3] == "0.5"
		case ledger.UnknownMaterial:
			sawUnknown = row[3] == "24"
		}
	}
	if !sawNetWeight || !sawFlour || !sawUnknown {
		t.Fatalf("recipe rows = %v", rows)
	}

	var buf bytes.Buffer
	if err := s.WriteRecipePDF(&buf, rec); err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatal("not a pdf")
	}
}

func TestCodesWorkbook(t *testing.T) {
	snap := consumption.Snapshot{
		Products: []models.Product{{ID: "p1", Name: "Choco"}},
		RM:       []models.Material{{ID: "rm1", Name: "Flour"}, {ID: "rm2", Name: "Sugar"}},
	}
	f, err := newTestService().CodesWorkbook(snap)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got := strings.Join(f.GetSheetList(), ","); got != "Products,Raw Materials,Packaging Materials" {
		t.Fatalf("sheets = %s", got)
	}
	rows, _ := f.GetRows("Raw Materials")
	if len(rows) != 3 || rows[2][0] != "rm2" || rows[2][1] != "Sugar" {
		t.Fatalf("rm rows = %v", rows)
	}
	rows, _ = f.GetRows("Packaging Materials")
	if len(rows) != 1 {
		t.Fatalf("pm rows = %v", rows)
	}
}

func TestSummary(t *testing.T) {
	s := newTestService()
	got := s.Summary(sampleReport())
	for _, want := range []string{
		"Biscuit Section - Daily Consumption 05 October, 2025",
		"Products: 1 active, 10 cartons, 12 kg output",
		"Raw materials consumed: Flour 30 kg",
		"Packaging consumed: none",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("summary missing %q:\n%s", want, got)
		}
	}

	empty := consumption.Aggregate(consumption.Snapshot{}, 3)
	empty.Section = "cake"
	if got := s.Summary(empty); !strings.Contains(got, "no production or consumption recorded") {
		t.Fatalf("empty summary = %q", got)
	}
}

func TestFilenames(t *testing.T) {
	r := sampleReport()
	if got := DailyFilename(r, "pdf"); got != "Daily_Report_Biscuit_05_october_2025.pdf" {
		t.Fatalf("daily = %q", got)
	}
	rec := Recipe{Section: "biscuit", Product: models.Product{Name: "Choco  Biscuit"}}
	if got := RecipeFilename(rec, "xlsx"); got != "Recipe_Choco_Biscuit_Biscuit.xlsx" {
		t.Fatalf("recipe = %q", got)
	}
}
