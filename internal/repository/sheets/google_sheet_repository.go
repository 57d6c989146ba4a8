package sheets

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/nicefood/prodtrack/internal/config"
)

// Repository defines the read operations the recipe importer needs from Google Sheets.
type Repository interface {
	SheetTitles(ctx context.Context, spreadsheetID string) ([]string, error)
	ReadRange(ctx context.Context, spreadsheetID, sheetRange string) ([][]interface{}, error)
}

// GoogleSheetRepository implements the Repository interface using the official Google Sheets API.
type GoogleSheetRepository struct {
	service *sheetsapi.Service
	logger  *zap.Logger
}

// NewGoogleSheetRepository builds a Google Sheets backed repository instance.
func NewGoogleSheetRepository(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*GoogleSheetRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetRepository{
		service: service,
		logger:  logger,
	}, nil
}

// SheetTitles lists the tab titles of a spreadsheet in workbook order.
func (r *GoogleSheetRepository) SheetTitles(ctx context.Context, spreadsheetID string) ([]string, error) {
	resp, err := r.service.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet %s: %w", spreadsheetID, err)
	}

	titles := make([]string, 0, len(resp.Sheets))
	for _, sh := range resp.Sheets {
		if sh.Properties != nil {
			titles = append(titles, sh.Properties.Title)
		}
	}
	r.logger.Debug("spreadsheet tabs listed", zap.String("spreadsheet_id", spreadsheetID), zap.Int("tabs", len(titles)))
	return titles, nil
}

// ReadRange fetches a rectangular data range from the spreadsheet as unformatted values.
func (r *GoogleSheetRepository) ReadRange(ctx context.Context, spreadsheetID, sheetRange string) ([][]interface{}, error) {
	if sheetRange == "" {
		return nil, fmt.Errorf("sheetRange must not be empty")
	}

	resp, err := r.service.Spreadsheets.Values.Get(spreadsheetID, sheetRange).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", sheetRange, err)
	}

	return resp.Values, nil
}
