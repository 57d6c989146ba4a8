package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nicefood/prodtrack/internal/domain/models"
	"github.com/nicefood/prodtrack/internal/service/ledger"
)

// LedgerHandler exposes material, product and info-template management of a section.
type LedgerHandler struct {
	svc    *ledger.Service
	logger *zap.Logger
}

// NewLedgerHandler constructs the ledger handler.
func NewLedgerHandler(svc *ledger.Service, logger *zap.Logger) *LedgerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerHandler{svc: svc, logger: logger}
}

func materialKind(c *gin.Context) (models.Kind, bool) {
	kind, err := models.ParseKind(c.Param("kind"))
	if err != nil || !kind.IsMaterial() {
		badRequest(c, ledger.ErrInvalidKind.Error())
		return "", false
	}
	return kind, true
}

// ListMaterials returns the rm or pm records of a section, sorted by name.
func (h *LedgerHandler) ListMaterials(c *gin.Context) {
	kind, ok := materialKind(c)
	if !ok {
		return
	}
	key, err := readKey(c)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	items, err := h.svc.ListMaterials(c.Request.Context(), c.Param("section"), kind, key)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// CreateMaterial registers a material in the base and every period collection.
func (h *LedgerHandler) CreateMaterial(c *gin.Context) {
	kind, ok := materialKind(c)
	if !ok {
		return
	}
	var in ledger.MaterialInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	m, err := h.svc.RegisterMaterial(c.Request.Context(), c.Param("section"), kind, in, writeKey(CurrentSession(c)))
	respondWrite(c, h.logger, http.StatusCreated, m, err)
}

// UpdateMaterial renames a material and changes its unit.
func (h *LedgerHandler) UpdateMaterial(c *gin.Context) {
	kind, ok := materialKind(c)
	if !ok {
		return
	}
	var in ledger.MaterialInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	id := c.Param("id")
	err := h.svc.EditMaterial(c.Request.Context(), c.Param("section"), kind, id, in, writeKey(CurrentSession(c)))
	respondWrite(c, h.logger, http.StatusOK, gin.H{"id": id}, err)
}

// DeleteMaterial removes a material everywhere it is stored.
func (h *LedgerHandler) DeleteMaterial(c *gin.Context) {
	kind, ok := materialKind(c)
	if !ok {
		return
	}
	id := c.Param("id")
	err := h.svc.DeleteMaterial(c.Request.Context(), c.Param("section"), kind, id, writeKey(CurrentSession(c)))
	respondWrite(c, h.logger, http.StatusOK, gin.H{"id": id}, err)
}

// ListProducts returns the products of a section, sorted by name.
func (h *LedgerHandler) ListProducts(c *gin.Context) {
	key, err := readKey(c)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	items, err := h.svc.ListProducts(c.Request.Context(), c.Param("section"), key)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// GetProduct returns one product.
func (h *LedgerHandler) GetProduct(c *gin.Context) {
	key, err := readKey(c)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	p, err := h.svc.GetProduct(c.Request.Context(), c.Param("section"), key, c.Param("id"))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type productRequest struct {
	Name string      `json:"name"`
	Info models.Info `json:"info"`
}

// CreateProduct registers a product. Without info the section template is used.
func (h *LedgerHandler) CreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	p, err := h.svc.CreateProduct(c.Request.Context(), c.Param("section"), req.Name, req.Info, writeKey(CurrentSession(c)))
	respondWrite(c, h.logger, http.StatusCreated, p, err)
}

// UpdateProduct renames a product, or replaces its recipe when any recipe
// list or info is sent.
func (h *LedgerHandler) UpdateProduct(c *gin.Context) {
	var p models.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	p.ID = c.Param("id")
	section := c.Param("section")
	key := writeKey(CurrentSession(c))

	var err error
	if p.RM == nil && p.CartonRM == nil && p.PM == nil && p.CartonPM == nil && p.Info == nil {
		err = h.svc.RenameProduct(c.Request.Context(), section, p.ID, p.Name, key)
	} else {
		err = h.svc.UpdateRecipe(c.Request.Context(), section, p, key)
	}
	respondWrite(c, h.logger, http.StatusOK, gin.H{"id": p.ID}, err)
}

// DeleteProduct removes a product everywhere it is stored.
func (h *LedgerHandler) DeleteProduct(c *gin.Context) {
	id := c.Param("id")
	err := h.svc.DeleteProduct(c.Request.Context(), c.Param("section"), id, writeKey(CurrentSession(c)))
	respondWrite(c, h.logger, http.StatusOK, gin.H{"id": id}, err)
}

// AddBOMItem adds one material to the product's batch and carton lists.
func (h *LedgerHandler) AddBOMItem(c *gin.Context) {
	kind, ok := materialKind(c)
	if !ok {
		return
	}
	var line ledger.BOMLine
	if err := c.ShouldBindJSON(&line); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	p, err := h.svc.AddBOMItem(c.Request.Context(), c.Param("section"), c.Param("id"), kind, line, writeKey(CurrentSession(c)))
	respondWrite(c, h.logger, http.StatusOK, p, err)
}

// RemoveBOMItem drops one material from the product's batch and carton lists.
func (h *LedgerHandler) RemoveBOMItem(c *gin.Context) {
	kind, ok := materialKind(c)
	if !ok {
		return
	}
	p, err := h.svc.RemoveBOMItem(c.Request.Context(), c.Param("section"), c.Param("id"), kind, c.Param("materialId"), writeKey(CurrentSession(c)))
	respondWrite(c, h.logger, http.StatusOK, p, err)
}

// GetInfoTemplate returns the section's product info template.
func (h *LedgerHandler) GetInfoTemplate(c *gin.Context) {
	tmpl, err := h.svc.GetInfoTemplate(c.Request.Context(), c.Param("section"))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

// AddInfoFields adds fields to the template and to products lacking them.
func (h *LedgerHandler) AddInfoFields(c *gin.Context) {
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil || len(fields) == 0 {
		badRequest(c, "request body must be a non-empty object")
		return
	}
	res, err := h.svc.AddInfoFields(c.Request.Context(), c.Param("section"), fields, writeKey(CurrentSession(c)))
	h.respondInfo(c, res, err)
}

// RemoveInfoField drops a field from the template and every product.
func (h *LedgerHandler) RemoveInfoField(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	res, err := h.svc.RemoveInfoField(c.Request.Context(), c.Param("section"), key, writeKey(CurrentSession(c)))
	h.respondInfo(c, res, err)
}

func (h *LedgerHandler) respondInfo(c *gin.Context, res ledger.InfoResult, err error) {
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	status := http.StatusOK
	if len(res.Skipped) > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, gin.H{
		"template": res.Template,
		"updated":  res.Updated,
		"skipped":  skippedRefs(res.Skipped),
	})
}
