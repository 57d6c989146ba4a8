package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/nicefood/prodtrack/internal/domain/models"
	"github.com/nicefood/prodtrack/internal/repository"
)

var (
	ErrNameRequired     = fmt.Errorf("%w: name is required", models.ErrValidation)
	ErrInvalidUnit      = fmt.Errorf("%w: unit is not supported", models.ErrValidation)
	ErrInvalidKind      = fmt.Errorf("%w: kind is not valid here", models.ErrValidation)
	ErrDuplicateItem    = fmt.Errorf("%w: material already in recipe", models.ErrValidation)
	ErrInvalidQuantity  = fmt.Errorf("%w: quantity must be greater than zero", models.ErrValidation)
	ErrSectionRequired  = fmt.Errorf("%w: section is required", models.ErrValidation)
	ErrItemNotInRecipe  = errors.New("material not in recipe")
	ErrTemplateMissing  = errors.New("info template not found")
	ErrFieldKeyRequired = fmt.Errorf("%w: field name is required", models.ErrValidation)
)

// Skipped is one record a bulk operation could not process.
type Skipped struct {
	Collection string
	ID         string
	Err        error
}

// Service implements material, product and info-template management for a section.
type Service struct {
	store  repository.Store
	writer *Writer
	logger *zap.Logger
}

// NewService wires a ledger service on top of the shared writer.
func NewService(store repository.Store, writer *Writer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, writer: writer, logger: logger}
}

// collection picks the period collection when periodKey is set, the base one otherwise.
func collection(section string, kind models.Kind, periodKey string) string {
	if periodKey == "" {
		return models.BaseCollection(section, kind)
	}
	return models.PeriodCollection(section, kind, periodKey)
}

func checkSection(section string) error {
	if strings.TrimSpace(section) == "" {
		return ErrSectionRequired
	}
	return nil
}

// SortByName orders values by a name accessor using locale collation.
func SortByName[T any](items []T, name func(T) string) {
	col := collate.New(language.English)
	sort.SliceStable(items, func(i, j int) bool {
		return col.CompareString(name(items[i]), name(items[j])) < 0
	})
}

// ListMaterials returns the rm or pm records of a section sorted by name.
// An empty periodKey reads the base collection.
func (s *Service) ListMaterials(ctx context.Context, section string, kind models.Kind, periodKey string) ([]models.Material, error) {
	if !kind.IsMaterial() {
		return nil, ErrInvalidKind
	}
	coll := collection(section, kind, periodKey)
	docs, err := s.store.List(ctx, coll)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", coll, err)
	}
	return DecodeMaterials(docs, s.logger), nil
}

// ListProducts returns the products of a section sorted by name.
func (s *Service) ListProducts(ctx context.Context, section, periodKey string) ([]models.Product, error) {
	coll := collection(section, models.KindProducts, periodKey)
	docs, err := s.store.List(ctx, coll)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", coll, err)
	}
	return DecodeProducts(docs, s.logger), nil
}

// GetProduct loads one product.
func (s *Service) GetProduct(ctx context.Context, section, periodKey, id string) (models.Product, error) {
	coll := collection(section, models.KindProducts, periodKey)
	doc, err := s.store.Get(ctx, coll, id)
	if err != nil {
		return models.Product{}, fmt.Errorf("get product: %w", err)
	}
	return models.DecodeProduct(doc)
}

// DecodeMaterials decodes and sorts material documents. Undecodable documents
// are logged and left out.
func DecodeMaterials(docs []repository.Document, logger *zap.Logger) []models.Material {
	out := make([]models.Material, 0, len(docs))
	for _, doc := range docs {
		m, err := models.DecodeMaterial(doc)
		if err != nil {
			if logger != nil {
				logger.Error("skip undecodable material", zap.String("id", doc.ID), zap.Error(err))
			}
			continue
		}
		out = append(out, m)
	}
	SortByName(out, func(m models.Material) string { return m.Name })
	return out
}

// DecodeProducts decodes and sorts product documents. Undecodable documents
// are logged and left out.
func DecodeProducts(docs []repository.Document, logger *zap.Logger) []models.Product {
	out := make([]models.Product, 0, len(docs))
	for _, doc := range docs {
		p, err := models.DecodeProduct(doc)
		if err != nil {
			if logger != nil {
				logger.Error("skip undecodable product", zap.String("id", doc.ID), zap.Error(err))
			}
			continue
		}
		out = append(out, p)
	}
	SortByName(out, func(p models.Product) string { return p.Name })
	return out
}
