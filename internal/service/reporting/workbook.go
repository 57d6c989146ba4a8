package reporting

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/nicefood/prodtrack/internal/domain/models"
	"github.com/nicefood/prodtrack/internal/service/consumption"
	"github.com/nicefood/prodtrack/internal/service/ledger"
)

// Sheet names of the daily workbook.
const (
	SheetProducts = "Products"
	SheetRM       = "RM"
	SheetPM       = "PM"
)

// firstDataRow is the row below the title block and the header row.
const firstDataRow = 6

var (
	productHeaders  = []string{"No", "Product Name", "Carton Weight (kg)", "Batch", "Carton", "Output (kg)"}
	materialHeaders = []string{"No", "Name", "Opening", "Received", "Consumption", "Stock"}
	recipeHeaders   = []string{"Name", "Unit", "Per Batch Qty", "Per Carton Qty"}
)

type workbookStyles struct {
	title  int
	header int
}

func newStyles(f *excelize.File) (workbookStyles, error) {
	title, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return workbookStyles{}, fmt.Errorf("title style: %w", err)
	}
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return workbookStyles{}, fmt.Errorf("header style: %w", err)
	}
	return workbookStyles{title: title, header: header}, nil
}

// DailyWorkbook renders a daily report with one sheet per record kind.
func (s *Service) DailyWorkbook(r consumption.Report) (*excelize.File, error) {
	f := excelize.NewFile()
	styles, err := newStyles(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	if err := f.SetSheetName("Sheet1", SheetProducts); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetRM, SheetPM} {
		if _, err := f.NewSheet(name); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	titles := []string{
		s.company,
		sectionTitle(r.Section) + " Section",
		"Daily Consumption Report for " + dayPeriod(r),
	}

	products := make([][]any, 0, len(r.Products))
	for i, p := range r.Products {
		products = append(products, []any{
			i + 1, p.Name, models.RoundTo(p.Raw.CartonWeightKg, 2), p.Batch, p.Carton, models.RoundTo(p.Raw.OutputKg, 2),
		})
	}
	if err := s.writeTable(f, styles, SheetProducts, titles, productHeaders, products, []float64{8, 30, 18, 12, 12, 15}); err != nil {
		_ = f.Close()
		return nil, err
	}

	for _, sheet := range []struct {
		name string
		rows []consumption.MaterialRow
	}{{SheetRM, r.RM}, {SheetPM, r.PM}} {
		if err := s.writeTable(f, styles, sheet.name, titles, materialHeaders, materialCells(sheet.rows), []float64{8, 30, 15, 15, 15, 15}); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

func materialCells(rows []consumption.MaterialRow) [][]any {
	out := make([][]any, 0, len(rows))
	for i, m := range rows {
		out = append(out, []any{
			i + 1, m.Name,
			models.RoundTo(m.Raw.Opening, 2),
			models.RoundTo(m.Raw.Received, 2),
			models.RoundTo(m.Raw.Consumed, 2),
			models.RoundTo(m.Raw.Stock, 2),
		})
	}
	return out
}

// writeTable lays out a title block on rows 1-3, headers on row 5 and data below.
func (s *Service) writeTable(f *excelize.File, styles workbookStyles, sheet string, titles, headers []string, rows [][]any, widths []float64) error {
	lastCol, _ := excelize.ColumnNumberToName(len(headers))

	for i, title := range titles {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return fmt.Errorf("write title: %w", err)
		}
		if err := f.MergeCell(sheet, cell, fmt.Sprintf("%s%d", lastCol, i+1)); err != nil {
			return fmt.Errorf("merge title: %w", err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, styles.title); err != nil {
			return fmt.Errorf("style title: %w", err)
		}
	}

	headerRow := firstDataRow - 1
	if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", headerRow), &headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetCellStyle(sheet, fmt.Sprintf("A%d", headerRow), fmt.Sprintf("%s%d", lastCol, headerRow), styles.header); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, row := range rows {
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", firstDataRow+i), &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return fmt.Errorf("set width: %w", err)
		}
	}
	return nil
}

// RecipeWorkbook renders the product information and both material tables of a recipe.
func (s *Service) RecipeWorkbook(rec Recipe) (*excelize.File, error) {
	const sheet = "Recipe Details"

	f := excelize.NewFile()
	styles, err := newStyles(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	var rows [][]any
	section := func(title string) {
		if len(rows) > 0 {
			rows = append(rows, nil)
		}
		rows = append(rows, []any{title})
	}

	rows = append(rows, []any{s.company}, []any{sectionTitle(rec.Section) + " Section"}, []any{"Product: " + rec.Product.Name})

	section("PRODUCT INFORMATION")
	if len(rec.Product.Info) == 0 {
		rows = append(rows, []any{"No product information available"})
	} else {
		rows = append(rows, []any{"Property", "Value"})
		for _, key := range models.OrderedInfoKeys(rec.Product.Info) {
			rows = append(rows, []any{models.FormatFieldName(key), infoValue(rec.Product.Info, key)})
		}
	}

	for _, part := range []struct {
		title string
		empty string
		lines []recipeRow
	}{
		{"RAW MATERIALS", "No raw materials data available", recipeRows(rec.RM)},
		{"PACKAGING MATERIALS", "No packaging materials data available", recipeRows(rec.PM)},
	} {
		section(part.title)
		if len(part.lines) == 0 {
			rows = append(rows, []any{part.empty})
			continue
		}
		rows = append(rows, toAny(recipeHeaders))
		for _, l := range part.lines {
			rows = append(rows, []any{l.name, l.unit, l.batch, l.carton})
		}
	}

	for i, row := range rows {
		if row == nil {
			continue
		}
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
		if len(row) == 1 {
			_ = f.SetCellStyle(sheet, cell, cell, styles.title)
		} else if first, ok := row[0].(string); ok && (first == "Property" || first == recipeHeaders[0]) {
			_ = f.SetCellStyle(sheet, cell, fmt.Sprintf("D%d", i+1), styles.header)
		}
	}
	for i, w := range []float64{35, 20, 15, 15} {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheet, col, col, w)
	}
	return f, nil
}

// CodesWorkbook lists the ids and names of every product and material of a
// section for spreadsheet authors.
func (s *Service) CodesWorkbook(snap consumption.Snapshot) (*excelize.File, error) {
	f := excelize.NewFile()
	styles, err := newStyles(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	sheets := []struct {
		name string
		rows [][]any
	}{
		{"Products", codeRows(len(snap.Products), func(i int) (string, string) { return snap.Products[i].ID, snap.Products[i].Name })},
		{"Raw Materials", codeRows(len(snap.RM), func(i int) (string, string) { return snap.RM[i].ID, snap.RM[i].Name })},
		{"Packaging Materials", codeRows(len(snap.PM), func(i int) (string, string) { return snap.PM[i].ID, snap.PM[i].Name })},
	}
	for i, sh := range sheets {
		if i == 0 {
			err = f.SetSheetName("Sheet1", sh.name)
		} else {
			_, err = f.NewSheet(sh.name)
		}
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("create sheet %s: %w", sh.name, err)
		}

		header := []any{"id", "name"}
		if err := f.SetSheetRow(sh.name, "A1", &header); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
		_ = f.SetCellStyle(sh.name, "A1", "B1", styles.header)
		for r, row := range sh.rows {
			if err := f.SetSheetRow(sh.name, fmt.Sprintf("A%d", r+2), &row); err != nil {
				_ = f.Close()
				return nil, fmt.Errorf("write row: %w", err)
			}
		}
		_ = f.SetColWidth(sh.name, "A", "A", 28)
		_ = f.SetColWidth(sh.name, "B", "B", 40)
	}
	return f, nil
}

func codeRows(n int, at func(int) (string, string)) [][]any {
	rows := make([][]any, 0, n)
	for i := 0; i < n; i++ {
		id, name := at(i)
		rows = append(rows, []any{id, name})
	}
	return rows
}

type recipeRow struct {
	name, unit, batch, carton string
}

func recipeRows(lines []ledger.RecipeLine) []recipeRow {
	out := make([]recipeRow, 0, len(lines))
	for _, l := range lines {
		unit := l.Unit
		if unit == "" {
			unit = "-"
		}
		out = append(out, recipeRow{name: l.Name, unit: unit, batch: qtyText(l.BatchQty), carton: qtyText(l.CartonQty)})
	}
	return out
}

func qtyText(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

func toAny(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
