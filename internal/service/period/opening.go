package period

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nicefood/prodtrack/internal/domain/models"
	"github.com/nicefood/prodtrack/internal/service/ledger"
)

// OpeningResult summarizes a closing-to-opening carry-over.
type OpeningResult struct {
	Updated int              `json:"updated"`
	Missing int              `json:"missing"`
	Skipped []ledger.Skipped `json:"-"`
}

// ValidateOpeningCopy checks the selection before any store call.
func ValidateOpeningCopy(section, fromKey, toKey string) (from, to models.Period, err error) {
	if strings.TrimSpace(section) == "" {
		return from, to, ErrSectionRequired
	}
	if fromKey == "" || toKey == "" {
		return from, to, ErrPeriodRequired
	}
	if fromKey == toKey {
		return from, to, ErrSamePeriod
	}
	if from, err = models.ParsePeriodKey(fromKey); err != nil {
		return from, to, fmt.Errorf("%w: %w", models.ErrValidation, err)
	}
	if to, err = models.ParsePeriodKey(toKey); err != nil {
		return from, to, fmt.Errorf("%w: %w", models.ErrValidation, err)
	}
	if to.Before(from) {
		return from, to, ErrPeriodOrder
	}
	return from, to, nil
}

// CopyOpeningFromClosing sets, for every rm and pm material present in both
// periods, the opening of the to-period record to the closing of the
// from-period record (0 when absent). Materials missing from the to-period are skipped.
func (m *Manager) CopyOpeningFromClosing(ctx context.Context, section, fromKey, toKey string) (OpeningResult, error) {
	var res OpeningResult
	if _, _, err := ValidateOpeningCopy(section, fromKey, toKey); err != nil {
		return res, err
	}

	for _, kind := range models.MaterialKinds {
		fromColl := models.PeriodCollection(section, kind, fromKey)
		toColl := models.PeriodCollection(section, kind, toKey)

		fromDocs, err := m.store.List(ctx, fromColl)
		if err != nil {
			m.logger.Error("skip opening copy", zap.String("collection", fromColl), zap.Error(err))
			res.Skipped = append(res.Skipped, ledger.Skipped{Collection: fromColl, Err: err})
			continue
		}
		toDocs, err := m.store.List(ctx, toColl)
		if err != nil {
			m.logger.Error("skip opening copy", zap.String("collection", toColl), zap.Error(err))
			res.Skipped = append(res.Skipped, ledger.Skipped{Collection: toColl, Err: err})
			continue
		}
		present := make(map[string]bool, len(toDocs))
		for _, d := range toDocs {
			present[d.ID] = true
		}

		for _, d := range fromDocs {
			if !present[d.ID] {
				res.Missing++
				continue
			}
			closing, _ := models.Info(d.Data).Number("closing")
			if err := m.store.Update(ctx, toColl, d.ID, map[string]any{"opening": closing}); err != nil {
				m.logger.Error("skip opening update", zap.String("collection", toColl), zap.String("id", d.ID), zap.Error(err))
				res.Skipped = append(res.Skipped, ledger.Skipped{Collection: toColl, ID: d.ID, Err: err})
				continue
			}
			res.Updated++
		}
	}

	if m.cache != nil {
		if err := m.cache.Invalidate(ctx, section, toKey); err != nil {
			m.logger.Warn("cache invalidation failed", zap.String("section", section), zap.Error(err))
		}
	}

	m.logger.Info("opening balances copied",
		zap.String("section", section),
		zap.String("from", fromKey),
		zap.String("to", toKey),
		zap.Int("updated", res.Updated),
		zap.Int("missing", res.Missing),
		zap.Int("skipped", len(res.Skipped)))
	return res, nil
}
