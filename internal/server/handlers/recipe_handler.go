package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nicefood/prodtrack/internal/service/recipe"
)

// maxWorkbookBytes caps uploaded recipe workbooks.
const maxWorkbookBytes = 10 << 20

// RecipeHandler parses recipe spreadsheets and merges them into products.
type RecipeHandler struct {
	importer *recipe.Importer
	logger   *zap.Logger
}

// NewRecipeHandler constructs the recipe handler.
func NewRecipeHandler(importer *recipe.Importer, logger *zap.Logger) *RecipeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecipeHandler{importer: importer, logger: logger}
}

// ParseWorkbook parses an uploaded .xlsx (form field "file") into product recipes.
func (h *RecipeHandler) ParseWorkbook(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		badRequest(c, "only .xlsx workbooks are supported")
		return
	}
	if header.Size > maxWorkbookBytes {
		badRequest(c, "workbook is too large")
		return
	}

	f, err := header.Open()
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	defer f.Close()

	imports, err := h.importer.ParseWorkbook(f)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	h.logger.Info("recipe workbook parsed", zap.String("file", header.Filename), zap.Int("products", len(imports)))
	c.JSON(http.StatusOK, imports)
}

type parseSheetRequest struct {
	SpreadsheetID string `json:"spreadsheet_id"`
}

// ParseSheet parses every tab of a Google spreadsheet into product recipes.
func (h *RecipeHandler) ParseSheet(c *gin.Context) {
	var req parseSheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	imports, err := h.importer.ImportFromGoogleSheet(c.Request.Context(), req.SpreadsheetID)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, imports)
}

// ImportProduct replaces the recipe lists of one product with a parsed import.
func (h *RecipeHandler) ImportProduct(c *gin.Context) {
	var imp recipe.ProductImport
	if err := c.ShouldBindJSON(&imp); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	id := c.Param("id")
	err := h.importer.MergeIntoLedger(c.Request.Context(), c.Param("section"), writeKey(CurrentSession(c)), imp, id)
	respondWrite(c, h.logger, http.StatusOK, gin.H{"id": id}, err)
}

// ImportAll merges every parsed import whose id names a product of the section.
func (h *RecipeHandler) ImportAll(c *gin.Context) {
	var imports []recipe.ProductImport
	if err := c.ShouldBindJSON(&imports); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	res, err := h.importer.MergeAll(c.Request.Context(), c.Param("section"), writeKey(CurrentSession(c)), imports)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	status := http.StatusOK
	if len(res.Skipped) > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, gin.H{
		"merged":  res.Merged,
		"missing": res.Missing,
		"skipped": skippedRefs(res.Skipped),
	})
}
