package ledger

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nicefood/prodtrack/internal/domain/models"
)

// MaterialInput carries the editable fields of a material.
type MaterialInput struct {
	Name    string  `json:"name"`
	Unit    string  `json:"unit"`
	Opening float64 `json:"opening"`
}

func (in MaterialInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrNameRequired
	}
	for _, u := range models.MaterialUnits {
		if u == in.Unit {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidUnit, in.Unit)
}

// RegisterMaterial creates a material with zeroed day buffers in the base
// collection and, under the same id, in every listed period.
func (s *Service) RegisterMaterial(ctx context.Context, section string, kind models.Kind, in MaterialInput, periodKey string) (models.Material, error) {
	if err := checkSection(section); err != nil {
		return models.Material{}, err
	}
	if !kind.IsMaterial() {
		return models.Material{}, ErrInvalidKind
	}
	if err := in.validate(); err != nil {
		return models.Material{}, err
	}

	m := models.NewMaterial(in.Name, in.Unit, in.Opening)
	data, err := models.ToData(m)
	if err != nil {
		return models.Material{}, err
	}

	id, err := s.writer.Create(ctx, section, kind, data, periodKey)
	if id == "" {
		return models.Material{}, fmt.Errorf("register material: %w", err)
	}
	m.ID = id
	if err != nil {
		return m, fmt.Errorf("register material: %w", err)
	}

	s.logger.Info("material registered", zap.String("section", section), zap.String("kind", string(kind)), zap.String("id", id))
	return m, nil
}

// EditMaterial renames a material and changes its unit everywhere it is stored.
func (s *Service) EditMaterial(ctx context.Context, section string, kind models.Kind, id string, in MaterialInput, periodKey string) error {
	if !kind.IsMaterial() {
		return ErrInvalidKind
	}
	if err := in.validate(); err != nil {
		return err
	}
	partial := map[string]any{"name": strings.TrimSpace(in.Name), "unit": in.Unit}
	if err := s.writer.Update(ctx, section, kind, id, partial, periodKey); err != nil {
		return fmt.Errorf("edit material: %w", err)
	}
	return nil
}

// DeleteMaterial removes a material from the base and period collections.
func (s *Service) DeleteMaterial(ctx context.Context, section string, kind models.Kind, id, periodKey string) error {
	if !kind.IsMaterial() {
		return ErrInvalidKind
	}
	if err := s.writer.Delete(ctx, section, kind, id, periodKey); err != nil {
		return fmt.Errorf("delete material: %w", err)
	}
	return nil
}
