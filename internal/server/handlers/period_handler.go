package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nicefood/prodtrack/internal/domain/models"
	"github.com/nicefood/prodtrack/internal/service/period"
)

// SectionLister lists section slugs.
type SectionLister interface {
	Values(ctx context.Context) ([]string, error)
}

// PeriodHandler runs period lifecycle operations. They run inside the request;
// long copies belong to periodctl.
type PeriodHandler struct {
	manager  *period.Manager
	sections SectionLister
	logger   *zap.Logger
}

// NewPeriodHandler constructs the period handler.
func NewPeriodHandler(manager *period.Manager, sections SectionLister, logger *zap.Logger) *PeriodHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PeriodHandler{manager: manager, sections: sections, logger: logger}
}

type periodRequest struct {
	Period   string   `json:"period"`
	Sections []string `json:"sections"`
}

// CreatePeriod snapshots the base collections into a new period.
func (h *PeriodHandler) CreatePeriod(c *gin.Context) {
	var req periodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	h.runLifecycle(c, req, h.manager.CreatePeriod)
}

// DeletePeriod removes a period snapshot and revokes it from every user.
func (h *PeriodHandler) DeletePeriod(c *gin.Context) {
	req := periodRequest{Period: c.Param("key")}
	if s := strings.TrimSpace(c.Query("sections")); s != "" {
		req.Sections = strings.Split(s, ",")
	}
	h.runLifecycle(c, req, h.manager.DeletePeriod)
}

type lifecycleFunc func(ctx context.Context, sections []string, p models.Period, progress period.ProgressFunc) (period.Result, error)

func (h *PeriodHandler) runLifecycle(c *gin.Context, req periodRequest, run lifecycleFunc) {
	p, err := parsePeriod(req.Period)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	sections := req.Sections
	if len(sections) == 0 {
		if sections, err = h.sections.Values(c.Request.Context()); err != nil {
			RespondError(c, h.logger, err)
			return
		}
	}

	res, err := run(c.Request.Context(), sections, p, ProgressLogger(h.logger, p.Key()))
	h.respondResult(c, res, err)
}

// ResumeJob continues an interrupted or partially failed period job.
func (h *PeriodHandler) ResumeJob(c *gin.Context) {
	id := c.Param("id")
	res, err := h.manager.ResumeJob(c.Request.Context(), id, ProgressLogger(h.logger, id))
	h.respondResult(c, res, err)
}

// ListJobs returns the persisted period jobs.
func (h *PeriodHandler) ListJobs(c *gin.Context) {
	jobs, err := h.manager.ListJobs(c.Request.Context())
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, jobs)
}

type openingCopyRequest struct {
	Section string `json:"section"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// CopyOpening carries the closing stock of one period into the opening of another.
func (h *PeriodHandler) CopyOpening(c *gin.Context) {
	var req openingCopyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if err := CurrentSession(c).RequireSection(req.Section); err != nil {
		RespondError(c, h.logger, err)
		return
	}

	res, err := h.manager.CopyOpeningFromClosing(c.Request.Context(), req.Section, strings.ToLower(strings.TrimSpace(req.From)), strings.ToLower(strings.TrimSpace(req.To)))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	status := http.StatusOK
	if len(res.Skipped) > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, gin.H{
		"updated": res.Updated,
		"missing": res.Missing,
		"skipped": skippedRefs(res.Skipped),
	})
}

func (h *PeriodHandler) respondResult(c *gin.Context, res period.Result, err error) {
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	status := http.StatusOK
	if res.Status == models.JobPartial {
		status = http.StatusMultiStatus
	}
	c.JSON(status, gin.H{
		"result":  res,
		"skipped": skippedRefs(res.Skipped),
	})
}

// ProgressLogger logs bulk progress at every tenth of the total.
func ProgressLogger(logger *zap.Logger, label string) period.ProgressFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	lastStep := -1
	return func(done, total int) {
		if total <= 0 {
			return
		}
		step := done * 10 / total
		if step == lastStep && done != total {
			return
		}
		lastStep = step
		logger.Info("period job progress", zap.String("job", label), zap.Int("done", done), zap.Int("total", total))
	}
}
