package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nicefood/prodtrack/internal/domain/models"
	"github.com/nicefood/prodtrack/internal/repository"
)

// BOMLine is a recipe line as entered: one material with its per-batch and per-carton quantity.
type BOMLine struct {
	ID        string  `json:"id"`
	Unit      string  `json:"unit"`
	BatchQty  float64 `json:"batch_qty"`
	CartonQty float64 `json:"carton_qty"`
}

// CreateProduct registers a product with empty recipe lists. A nil info map
// is replaced by the section's info template.
func (s *Service) CreateProduct(ctx context.Context, section, name string, info models.Info, periodKey string) (models.Product, error) {
	if err := checkSection(section); err != nil {
		return models.Product{}, err
	}
	if strings.TrimSpace(name) == "" {
		return models.Product{}, ErrNameRequired
	}
	if info == nil {
		tmpl, err := s.GetInfoTemplate(ctx, section)
		if err != nil {
			return models.Product{}, err
		}
		info = tmpl
	}

	p := models.NewProduct(name, info)
	data, err := models.ToData(p)
	if err != nil {
		return models.Product{}, err
	}

	id, err := s.writer.Create(ctx, section, models.KindProducts, data, periodKey)
	if id == "" {
		return models.Product{}, fmt.Errorf("create product: %w", err)
	}
	p.ID = id
	if err != nil {
		return p, fmt.Errorf("create product: %w", err)
	}

	s.logger.Info("product created", zap.String("section", section), zap.String("id", id))
	return p, nil
}

// RenameProduct changes the product name everywhere it is stored.
func (s *Service) RenameProduct(ctx context.Context, section, id, name, periodKey string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	if err := s.writer.Update(ctx, section, models.KindProducts, id, map[string]any{"name": name}, periodKey); err != nil {
		return fmt.Errorf("rename product: %w", err)
	}
	return nil
}

// DeleteProduct removes a product from the base and period collections.
func (s *Service) DeleteProduct(ctx context.Context, section, id, periodKey string) error {
	if err := s.writer.Delete(ctx, section, models.KindProducts, id, periodKey); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

// UpdateRecipe replaces name, info and the four recipe lists of a product.
func (s *Service) UpdateRecipe(ctx context.Context, section string, p models.Product, periodKey string) error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrNameRequired
	}
	partial := p.BOMFields()
	partial["name"] = strings.TrimSpace(p.Name)
	if p.Info != nil {
		partial["info"] = map[string]any(p.Info)
	}
	if err := s.writer.Update(ctx, section, models.KindProducts, p.ID, partial, periodKey); err != nil {
		return fmt.Errorf("update recipe: %w", err)
	}
	return nil
}

// AddBOMItem appends a material to both the batch and the carton list of a product.
func (s *Service) AddBOMItem(ctx context.Context, section, productID string, kind models.Kind, line BOMLine, periodKey string) (models.Product, error) {
	if strings.TrimSpace(line.ID) == "" {
		return models.Product{}, fmt.Errorf("%w: material id is required", models.ErrValidation)
	}
	if line.BatchQty <= 0 || line.CartonQty <= 0 {
		return models.Product{}, ErrInvalidQuantity
	}

	p, err := s.GetProduct(ctx, section, periodKey, productID)
	if err != nil {
		return models.Product{}, err
	}
	batch, carton, err := p.BOM(kind)
	if err != nil {
		return models.Product{}, ErrInvalidKind
	}
	if containsItem(*batch, line.ID) || containsItem(*carton, line.ID) {
		return models.Product{}, fmt.Errorf("%w: %s", ErrDuplicateItem, line.ID)
	}

	*batch = append(*batch, models.BOMItem{ID: line.ID, Unit: line.Unit, Qty: line.BatchQty})
	*carton = append(*carton, models.BOMItem{ID: line.ID, Unit: line.Unit, Qty: line.CartonQty})

	if err := s.writer.Update(ctx, section, models.KindProducts, productID, bomPartial(kind, *batch, *carton), periodKey); err != nil {
		return p, fmt.Errorf("add recipe item: %w", err)
	}
	return p, nil
}

// RemoveBOMItem drops a material from both the batch and the carton list of a product.
func (s *Service) RemoveBOMItem(ctx context.Context, section, productID string, kind models.Kind, materialID, periodKey string) (models.Product, error) {
	p, err := s.GetProduct(ctx, section, periodKey, productID)
	if err != nil {
		return models.Product{}, err
	}
	batch, carton, err := p.BOM(kind)
	if err != nil {
		return models.Product{}, ErrInvalidKind
	}
	if !containsItem(*batch, materialID) && !containsItem(*carton, materialID) {
		return models.Product{}, fmt.Errorf("%w: %s", ErrItemNotInRecipe, materialID)
	}

	*batch = withoutItem(*batch, materialID)
	*carton = withoutItem(*carton, materialID)

	if err := s.writer.Update(ctx, section, models.KindProducts, productID, bomPartial(kind, *batch, *carton), periodKey); err != nil {
		return p, fmt.Errorf("remove recipe item: %w", err)
	}
	return p, nil
}

// ProductExists reports whether id is present in the collection for periodKey.
func (s *Service) ProductExists(ctx context.Context, section, periodKey, id string) (bool, error) {
	_, err := s.store.Get(ctx, collection(section, models.KindProducts, periodKey), id)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func bomPartial(kind models.Kind, batch, carton []models.BOMItem) map[string]any {
	p := models.Product{}
	if kind == models.KindRM {
		p.RM, p.CartonRM = batch, carton
		fields := p.BOMFields()
		return map[string]any{"rm": fields["rm"], "carton_rm": fields["carton_rm"]}
	}
	p.PM, p.CartonPM = batch, carton
	fields := p.BOMFields()
	return map[string]any{"pm": fields["pm"], "carton_pm": fields["carton_pm"]}
}

func containsItem(items []models.BOMItem, id string) bool {
	for _, it := range items {
		if it.ID == id {
			return true
		}
	}
	return false
}

func withoutItem(items []models.BOMItem, id string) []models.BOMItem {
	out := make([]models.BOMItem, 0, len(items))
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}

// ReplaceBOM overwrites the four recipe lists of a product and nothing else.
func (s *Service) ReplaceBOM(ctx context.Context, section, id string, lists models.Product, periodKey string) error {
	if err := s.writer.Update(ctx, section, models.KindProducts, id, lists.BOMFields(), periodKey); err != nil {
		return fmt.Errorf("replace recipe: %w", err)
	}
	return nil
}
