package recipe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/nicefood/prodtrack/internal/domain/models"
	"github.com/nicefood/prodtrack/internal/service/ledger"
)

var (
	ErrProductNotLoaded = fmt.Errorf("%w: product is not in the selected section", models.ErrValidation)
	ErrSheetsDisabled   = errors.New("google sheets import is not configured")
)

// SheetSource reads tabs of a remote spreadsheet.
type SheetSource interface {
	SheetTitles(ctx context.Context, spreadsheetID string) ([]string, error)
	ReadRange(ctx context.Context, spreadsheetID, sheetRange string) ([][]interface{}, error)
}

// MergeResult lists the outcome of a bulk merge.
type MergeResult struct {
	Merged  []string         `json:"merged"`
	Missing []string         `json:"missing"`
	Skipped []ledger.Skipped `json:"-"`
}

// Importer turns spreadsheets into recipes and writes them into the ledger.
type Importer struct {
	ledger *ledger.Service
	sheets SheetSource
	logger *zap.Logger
}

// NewImporter wires the importer. sheets may be nil when Google Sheets is not configured.
func NewImporter(ledgerSvc *ledger.Service, sheets SheetSource, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{ledger: ledgerSvc, sheets: sheets, logger: logger}
}

// ParseWorkbook parses an uploaded xlsx workbook.
func (i *Importer) ParseWorkbook(r io.Reader) ([]ProductImport, error) {
	return ParseWorkbook(r, i.logger)
}

// ImportFromGoogleSheet reads every tab of a spreadsheet through the same row parser.
func (i *Importer) ImportFromGoogleSheet(ctx context.Context, spreadsheetID string) ([]ProductImport, error) {
	if i.sheets == nil {
		return nil, ErrSheetsDisabled
	}
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, fmt.Errorf("%w: spreadsheet id is required", models.ErrValidation)
	}

	titles, err := i.sheets.SheetTitles(ctx, spreadsheetID)
	if err != nil {
		return nil, fmt.Errorf("list spreadsheet tabs: %w", err)
	}

	sheets := make(map[string][][]string, len(titles))
	var order []string
	for _, title := range titles {
		if isExcluded(title) {
			continue
		}
		values, err := i.sheets.ReadRange(ctx, spreadsheetID, quoteSheet(title))
		if err != nil {
			i.logger.Warn("skip unreadable tab", zap.String("sheet", title), zap.Error(err))
			continue
		}
		sheets[title] = stringRows(values)
		order = append(order, title)
	}

	return parseSheets(order, sheets, i.logger), nil
}

// MergeIntoLedger replaces the four recipe lists of an existing product with
// the imported ones in base and in the active period. The product must already
// exist in the active period collection, or in base when no period is selected.
func (i *Importer) MergeIntoLedger(ctx context.Context, section, periodKey string, imp ProductImport, targetID string) error {
	if strings.TrimSpace(section) == "" {
		return ledger.ErrSectionRequired
	}
	ok, err := i.ledger.ProductExists(ctx, section, periodKey, targetID)
	if err != nil {
		return fmt.Errorf("check product: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrProductNotLoaded, targetID)
	}

	if err := i.ledger.ReplaceBOM(ctx, section, targetID, imp.Lists(), periodKey); err != nil {
		return err
	}
	i.logger.Info("recipe imported",
		zap.String("section", section),
		zap.String("product_id", targetID),
		zap.String("sheet", imp.Sheet),
		zap.Int("rm", len(imp.RM)),
		zap.Int("pm", len(imp.PM)))
	return nil
}

// MergeAll merges every import whose id names an existing product of the section.
func (i *Importer) MergeAll(ctx context.Context, section, periodKey string, imports []ProductImport) (MergeResult, error) {
	res := MergeResult{Merged: []string{}, Missing: []string{}}
	if strings.TrimSpace(section) == "" {
		return res, ledger.ErrSectionRequired
	}

	for _, imp := range imports {
		err := i.MergeIntoLedger(ctx, section, periodKey, imp, imp.ID)
		switch {
		case err == nil:
			res.Merged = append(res.Merged, imp.ID)
		case errors.Is(err, ErrProductNotLoaded):
			res.Missing = append(res.Missing, imp.ID)
		default:
			res.Skipped = append(res.Skipped, ledger.Skipped{Collection: models.BaseCollection(section, models.KindProducts), ID: imp.ID, Err: err})
			i.logger.Error("skip recipe merge", zap.String("product_id", imp.ID), zap.Error(err))
		}
	}
	return res, nil
}

func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func stringRows(values [][]interface{}) [][]string {
	rows := make([][]string, len(values))
	for r, row := range values {
		rows[r] = make([]string, len(row))
		for c, v := range row {
			if v != nil {
				rows[r][c] = fmt.Sprint(v)
			}
		}
	}
	return rows
}
