package ledger

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nicefood/prodtrack/internal/domain/models"
	"github.com/nicefood/prodtrack/internal/repository"
)

// InfoResult summarizes an info-template change applied across products.
type InfoResult struct {
	Template models.Info `json:"template"`
	Updated  int         `json:"updated"`
	Skipped  []Skipped   `json:"-"`
}

// GetInfoTemplate loads recipe_info/{section}.
func (s *Service) GetInfoTemplate(ctx context.Context, section string) (models.Info, error) {
	doc, err := s.store.Get(ctx, models.RecipeInfoCollection, section)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrTemplateMissing, section)
	}
	if err != nil {
		return nil, fmt.Errorf("load info template: %w", err)
	}
	return models.Info(doc.Data), nil
}

// AddInfoFields adds fields to the section template and to every product that
// does not carry them yet. Labels are normalized ("Net Weight" becomes net_weight)
// and numeric strings are stored as numbers.
func (s *Service) AddInfoFields(ctx context.Context, section string, fields map[string]any, periodKey string) (InfoResult, error) {
	if err := checkSection(section); err != nil {
		return InfoResult{}, err
	}
	normalized := make(models.Info, len(fields))
	for label, v := range fields {
		key := models.NormalizeFieldName(label)
		if key == "" {
			return InfoResult{}, ErrFieldKeyRequired
		}
		normalized[key] = models.NormalizeInfoValue(v)
	}

	tmpl, err := s.GetInfoTemplate(ctx, section)
	if err != nil && !errors.Is(err, ErrTemplateMissing) {
		return InfoResult{}, err
	}
	if tmpl == nil {
		tmpl = models.Info{}
	}
	for k, v := range normalized {
		tmpl[k] = v
	}
	if err := s.store.CreateWithID(ctx, models.RecipeInfoCollection, section, tmpl); err != nil {
		return InfoResult{}, fmt.Errorf("save info template: %w", err)
	}

	res := s.rewriteProductInfo(ctx, section, periodKey, func(info models.Info) bool {
		changed := false
		for k, v := range normalized {
			if _, ok := info[k]; !ok {
				info[k] = v
				changed = true
			}
		}
		return changed
	})
	res.Template = tmpl
	return res, nil
}

// RemoveInfoField deletes key from the section template and from every product.
func (s *Service) RemoveInfoField(ctx context.Context, section, key, periodKey string) (InfoResult, error) {
	if key == "" {
		return InfoResult{}, ErrFieldKeyRequired
	}
	tmpl, err := s.GetInfoTemplate(ctx, section)
	if err != nil {
		return InfoResult{}, err
	}
	delete(tmpl, key)
	if err := s.store.CreateWithID(ctx, models.RecipeInfoCollection, section, tmpl); err != nil {
		return InfoResult{}, fmt.Errorf("save info template: %w", err)
	}

	res := s.rewriteProductInfo(ctx, section, periodKey, func(info models.Info) bool {
		if _, ok := info[key]; !ok {
			return false
		}
		delete(info, key)
		return true
	})
	res.Template = tmpl
	return res, nil
}

// rewriteProductInfo applies mutate to the info map of every product in base
// and in the active period, skipping records that fail.
func (s *Service) rewriteProductInfo(ctx context.Context, section, periodKey string, mutate func(models.Info) bool) InfoResult {
	var res InfoResult
	keys := periodTargets(periodKey)
	colls := []string{models.BaseCollection(section, models.KindProducts)}
	for _, k := range keys {
		colls = append(colls, models.PeriodCollection(section, models.KindProducts, k))
	}

	for _, coll := range colls {
		docs, err := s.store.List(ctx, coll)
		if err != nil {
			res.Skipped = append(res.Skipped, Skipped{Collection: coll, Err: err})
			s.logger.Error("skip collection", zap.String("collection", coll), zap.Error(err))
			continue
		}
		for _, doc := range docs {
			p, err := models.DecodeProduct(doc)
			if err != nil {
				res.Skipped = append(res.Skipped, Skipped{Collection: coll, ID: doc.ID, Err: err})
				continue
			}
			if !mutate(p.Info) {
				continue
			}
			if err := s.store.Update(ctx, coll, doc.ID, map[string]any{"info": map[string]any(p.Info)}); err != nil {
				res.Skipped = append(res.Skipped, Skipped{Collection: coll, ID: doc.ID, Err: err})
				s.logger.Error("skip product info update", zap.String("collection", coll), zap.String("id", doc.ID), zap.Error(err))
				continue
			}
			res.Updated++
		}
	}

	s.writer.invalidate(ctx, section, keys)
	return res
}
