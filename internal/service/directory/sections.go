// Package directory manages the fixed sections and users collections.
package directory

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nicefood/prodtrack/internal/domain/models"
	"github.com/nicefood/prodtrack/internal/repository"
	"github.com/nicefood/prodtrack/internal/service/ledger"
)

// ErrLabelRequired is returned when a section has no label.
var ErrLabelRequired = fmt.Errorf("%w: section label is required", models.ErrValidation)

// Sections lists and registers production lines.
type Sections struct {
	store  repository.Store
	logger *zap.Logger
}

// NewSections wires the sections service.
func NewSections(store repository.Store, logger *zap.Logger) *Sections {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sections{store: store, logger: logger}
}

// List returns every section sorted by label.
func (s *Sections) List(ctx context.Context) ([]models.Section, error) {
	docs, err := s.store.List(ctx, models.SectionsCollection)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}

	out := make([]models.Section, 0, len(docs))
	for _, doc := range docs {
		sec, err := models.DecodeSection(doc)
		if err != nil {
			s.logger.Error("skip undecodable section", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		out = append(out, sec)
	}
	ledger.SortByName(out, func(sec models.Section) string { return sec.Label })
	return out, nil
}

// Values returns the slug of every section.
func (s *Sections) Values(ctx context.Context) ([]string, error) {
	secs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, len(secs))
	for _, sec := range secs {
		if sec.Value != "" {
			values = append(values, sec.Value)
		}
	}
	return values, nil
}

// Create stores a section and an empty info template for it. An existing
// template is left as is.
func (s *Sections) Create(ctx context.Context, label string) (models.Section, error) {
	if strings.TrimSpace(label) == "" {
		return models.Section{}, ErrLabelRequired
	}
	sec := models.NewSection(label)
	data, err := models.ToData(sec)
	if err != nil {
		return models.Section{}, err
	}

	id, err := s.store.Create(ctx, models.SectionsCollection, data)
	if err != nil {
		return models.Section{}, fmt.Errorf("create section: %w", err)
	}
	sec.ID = id

	if _, err := s.store.Get(ctx, models.RecipeInfoCollection, sec.Value); err != nil {
		if err := s.store.CreateWithID(ctx, models.RecipeInfoCollection, sec.Value, map[string]any{}); err != nil {
			return sec, fmt.Errorf("create info template: %w", err)
		}
	}

	s.logger.Info("section created", zap.String("value", sec.Value))
	return sec, nil
}
