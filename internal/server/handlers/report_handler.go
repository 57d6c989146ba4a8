package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/nicefood/prodtrack/internal/domain/models"
	"github.com/nicefood/prodtrack/internal/service/consumption"
	"github.com/nicefood/prodtrack/internal/service/ledger"
	"github.com/nicefood/prodtrack/internal/service/reporting"
)

// Report formats accepted by the format query parameter.
const (
	formatJSON = "json"
	formatXLSX = "xlsx"
	formatPDF  = "pdf"
)

// ReportHandler serves the daily consumption report, recipe sheets and code exports.
type ReportHandler struct {
	consumption *consumption.Service
	ledger      *ledger.Service
	renderer    *reporting.Service
	now         func() time.Time
	logger      *zap.Logger
}

// NewReportHandler constructs the report handler.
func NewReportHandler(consumptionSvc *consumption.Service, ledgerSvc *ledger.Service, renderer *reporting.Service, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{
		consumption: consumptionSvc,
		ledger:      ledgerSvc,
		renderer:    renderer,
		now:         time.Now,
		logger:      logger,
	}
}

// Daily returns the consumption report of one day of the selected period.
// day defaults to today's day of month.
func (h *ReportHandler) Daily(c *gin.Context) {
	day := h.now().Day()
	if v := c.Query("day"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			RespondError(c, h.logger, fmt.Errorf("%w: %q", consumption.ErrInvalidDay, v))
			return
		}
		day = n
	}
	key, err := readKey(c)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	report, err := h.consumption.DailyReport(c.Request.Context(), c.Param("section"), key, day)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	switch format(c) {
	case formatJSON:
		c.JSON(http.StatusOK, gin.H{"report": report, "empty": report.Empty()})
	case formatXLSX:
		f, err := h.renderer.DailyWorkbook(report)
		h.sendWorkbook(c, reporting.DailyFilename(report, formatXLSX), f, err)
	case formatPDF:
		var buf bytes.Buffer
		err := h.renderer.WriteDailyPDF(&buf, report)
		h.sendFile(c, reporting.DailyFilename(report, formatPDF), reporting.ContentTypePDF, &buf, err)
	default:
		badRequest(c, "format must be json, xlsx or pdf")
	}
}

// Recipe renders one product's recipe with material names resolved.
func (h *ReportHandler) Recipe(c *gin.Context) {
	ctx := c.Request.Context()
	section := c.Param("section")
	key, err := readKey(c)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	p, err := h.ledger.GetProduct(ctx, section, key, c.Param("id"))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	rm, err := h.ledger.ListMaterials(ctx, section, models.KindRM, key)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	pm, err := h.ledger.ListMaterials(ctx, section, models.KindPM, key)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	rec := reporting.Recipe{
		Section: section,
		Product: p,
		RM:      ledger.RecipeLines(p, models.KindRM, rm),
		PM:      ledger.RecipeLines(p, models.KindPM, pm),
	}

	switch format(c) {
	case formatJSON:
		c.JSON(http.StatusOK, gin.H{"product": p, "rm": rec.RM, "pm": rec.PM})
	case formatXLSX:
		f, err := h.renderer.RecipeWorkbook(rec)
		h.sendWorkbook(c, reporting.RecipeFilename(rec, formatXLSX), f, err)
	case formatPDF:
		var buf bytes.Buffer
		err := h.renderer.WriteRecipePDF(&buf, rec)
		h.sendFile(c, reporting.RecipeFilename(rec, formatPDF), reporting.ContentTypePDF, &buf, err)
	default:
		badRequest(c, "format must be json, xlsx or pdf")
	}
}

// Codes exports the ids and names of every product and material of the period.
func (h *ReportHandler) Codes(c *gin.Context) {
	section := c.Param("section")
	key, err := readKey(c)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	if _, err := models.ParsePeriodKey(key); err != nil {
		RespondError(c, h.logger, fmt.Errorf("%w: %w", models.ErrValidation, err))
		return
	}

	snap, err := h.consumption.Snapshot(c.Request.Context(), section, key)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	f, err := h.renderer.CodesWorkbook(snap)
	h.sendWorkbook(c, reporting.CodesFilename(section), f, err)
}

func format(c *gin.Context) string {
	return strings.ToLower(c.DefaultQuery("format", formatJSON))
}

func (h *ReportHandler) sendWorkbook(c *gin.Context, name string, f *excelize.File, err error) {
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	err = f.Write(&buf)
	h.sendFile(c, name, reporting.ContentTypeXLSX, &buf, err)
}

func (h *ReportHandler) sendFile(c *gin.Context, name, contentType string, buf *bytes.Buffer, err error) {
	if err != nil {
		RespondError(c, h.logger, fmt.Errorf("render %s: %w", name, err))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
