package recipe

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/nicefood/prodtrack/internal/domain/models"
	"github.com/nicefood/prodtrack/internal/service/ledger"
)

// ExcludedSheets are workbook tabs that never describe a product.
var ExcludedSheets = []string{"index", "summary", "template", "instructions"}

// ImportedItem is one material line read from a product sheet. Name comes from
// the sheet and is informational only; it is never written to the ledger.
type ImportedItem struct {
	ID   string  `json:"id"`
	Name string  `json:"name,omitempty"`
	Unit string  `json:"unit"`
	Qty  float64 `json:"qty"`
}

// ProductImport is the recipe parsed from one sheet.
type ProductImport struct {
	Sheet    string         `json:"sheet"`
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	RM       []ImportedItem `json:"rm"`
	CartonRM []ImportedItem `json:"carton_rm"`
	PM       []ImportedItem `json:"pm"`
	CartonPM []ImportedItem `json:"carton_pm"`
}

// Lists returns the four recipe lists as ledger items, without names.
func (p ProductImport) Lists() models.Product {
	return models.Product{
		RM:       toBOM(p.RM),
		CartonRM: toBOM(p.CartonRM),
		PM:       toBOM(p.PM),
		CartonPM: toBOM(p.CartonPM),
	}
}

func toBOM(items []ImportedItem) []models.BOMItem {
	out := make([]models.BOMItem, 0, len(items))
	for _, it := range items {
		out = append(out, models.BOMItem{ID: it.ID, Unit: it.Unit, Qty: it.Qty})
	}
	return out
}

// Column layout of material rows.
const (
	colID        = 0
	colName      = 2
	colUnit      = 3
	colBatchQty  = 4
	colCartonQty = 5
)

// ParseWorkbook reads every product sheet of an xlsx workbook. Sheets with an
// incomplete header are skipped; the result is sorted by product name.
func ParseWorkbook(r io.Reader, logger *zap.Logger) ([]ProductImport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read workbook: %v", models.ErrValidation, err)
	}
	defer f.Close()

	sheets := map[string][][]string{}
	var order []string
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			logger.Warn("skip unreadable sheet", zap.String("sheet", name), zap.Error(err))
			continue
		}
		sheets[name] = rows
		order = append(order, name)
	}

	return parseSheets(order, sheets, logger), nil
}

func parseSheets(order []string, sheets map[string][][]string, logger *zap.Logger) []ProductImport {
	var out []ProductImport
	for _, name := range order {
		if isExcluded(name) {
			continue
		}
		p, err := ParseSheet(name, sheets[name])
		if err != nil {
			logger.Warn("skip sheet", zap.String("sheet", name), zap.Error(err))
			continue
		}
		out = append(out, p)
	}
	ledger.SortByName(out, func(p ProductImport) string { return p.Name })
	return out
}

// ParseSheet turns the rows of one sheet into a recipe. The first row, blanks
// removed, is id, name, rmStart, rmEnd, pmStart, pmEnd with 1-based inclusive
// row numbers.
func ParseSheet(sheet string, rows [][]string) (ProductImport, error) {
	if len(rows) == 0 {
		return ProductImport{}, fmt.Errorf("sheet %q is empty", sheet)
	}

	var header []string
	for _, v := range rows[0] {
		if v = strings.TrimSpace(v); v != "" {
			header = append(header, v)
		}
	}
	if len(header) < 2 {
		return ProductImport{}, fmt.Errorf("sheet %q: product id and name are required", sheet)
	}
	if len(header) < 6 {
		return ProductImport{}, fmt.Errorf("sheet %q: expected 6 header values, got %d", sheet, len(header))
	}

	bounds := make([]int, 4)
	for i, v := range header[2:6] {
		n, err := parseRowNumber(v)
		if err != nil {
			return ProductImport{}, fmt.Errorf("sheet %q: row bound %q: %w", sheet, v, err)
		}
		bounds[i] = n
	}

	p := ProductImport{
		Sheet:    sheet,
		ID:       header[0],
		Name:     header[1],
		RM:       []ImportedItem{},
		CartonRM: []ImportedItem{},
		PM:       []ImportedItem{},
		CartonPM: []ImportedItem{},
	}

	// Raw materials need both quantities; packaging only needs an id.
	for _, row := range sliceRows(rows, bounds[0], bounds[1]) {
		if cell(row, colID) == "" || cell(row, colBatchQty) == "" || cell(row, colCartonQty) == "" {
			continue
		}
		batch, carton := lineItems(row)
		p.RM = append(p.RM, batch)
		p.CartonRM = append(p.CartonRM, carton)
	}
	for _, row := range sliceRows(rows, bounds[2], bounds[3]) {
		if cell(row, colID) == "" {
			continue
		}
		batch, carton := lineItems(row)
		p.PM = append(p.PM, batch)
		p.CartonPM = append(p.CartonPM, carton)
	}

	return p, nil
}

func lineItems(row []string) (batch, carton ImportedItem) {
	base := ImportedItem{ID: cell(row, colID), Name: cell(row, colName), Unit: cell(row, colUnit)}
	batch, carton = base, base
	batch.Qty = models.RoundTo(parseQty(cell(row, colBatchQty)), models.BatchQtyPlaces)
	carton.Qty = models.RoundTo(parseQty(cell(row, colCartonQty)), models.CartonQtyPlaces)
	return batch, carton
}

// sliceRows returns rows[start-1 : end], clamped to the sheet.
func sliceRows(rows [][]string, start, end int) [][]string {
	from := start - 1
	if from < 0 {
		from = 0
	}
	if end > len(rows) {
		end = len(rows)
	}
	if from >= end {
		return nil
	}
	return rows[from:end]
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseRowNumber(v string) (int, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// parseQty reads a quantity cell; unreadable values count as zero.
func parseQty(v string) float64 {
	f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v), ",", ""), 64)
	if err != nil {
		return 0
	}
	return f
}

func isExcluded(sheet string) bool {
	name := strings.ToLower(strings.TrimSpace(sheet))
	for _, ex := range ExcludedSheets {
		if name == ex {
			return true
		}
	}
	return false
}
