package handlers

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nicefood/prodtrack/internal/domain/models"
	"github.com/nicefood/prodtrack/internal/repository"
	"github.com/nicefood/prodtrack/internal/service/auth"
	"github.com/nicefood/prodtrack/internal/service/ledger"
	"github.com/nicefood/prodtrack/internal/service/period"
	"github.com/nicefood/prodtrack/internal/service/recipe"
)

// RespondError aborts the request with the status and message mapped from err.
// Server-side failures are logged; client errors are not.
func RespondError(c *gin.Context, logger *zap.Logger, err error) {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func classify(err error) (int, string) {
	var werr *ledger.WriteError
	switch {
	case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, auth.ErrInvalidPassword):
		return http.StatusUnauthorized, auth.Message(err)
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, auth.Message(err)
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrInvalidPeriodKey):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, ledger.ErrItemNotInRecipe),
		errors.Is(err, ledger.ErrTemplateMissing):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, period.ErrJobFinished):
		return http.StatusConflict, err.Error()
	case errors.Is(err, recipe.ErrSheetsDisabled):
		return http.StatusServiceUnavailable, err.Error()
	case errors.As(err, &werr):
		return http.StatusBadGateway, werr.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// respondWrite answers a ledger write. A write that reached only some of its
// collections is reported as 207 with the failed collections listed.
func respondWrite(c *gin.Context, logger *zap.Logger, status int, payload any, err error) {
	if err == nil {
		c.JSON(status, payload)
		return
	}

	var werr *ledger.WriteError
	if errors.As(err, &werr) && werr.Partial() {
		failed := make([]string, 0, len(werr.Failed))
		for coll := range werr.Failed {
			failed = append(failed, coll)
		}
		sort.Strings(failed)
		logger.Warn("partial ledger write", zap.String("op", werr.Op), zap.String("id", werr.ID), zap.Strings("failed", failed))
		c.JSON(http.StatusMultiStatus, gin.H{
			"data":   payload,
			"error":  werr.Error(),
			"failed": failed,
		})
		return
	}
	RespondError(c, logger, err)
}

func skippedRefs(skipped []ledger.Skipped) []string {
	out := make([]string, 0, len(skipped))
	for _, s := range skipped {
		ref := s.Collection
		if s.ID != "" {
			ref += "/" + s.ID
		}
		out = append(out, ref)
	}
	return out
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": strings.TrimSpace(msg)})
}
