package consumption

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nicefood/prodtrack/internal/domain/models"
	"github.com/nicefood/prodtrack/internal/repository"
	"github.com/nicefood/prodtrack/internal/service/ledger"
)

// ErrInvalidDay is returned for a day outside 1..31.
var ErrInvalidDay = fmt.Errorf("%w: day must be between 1 and %d", models.ErrValidation, models.DaysInBuffer)

// Snapshot holds the raw period records a report is aggregated from.
type Snapshot struct {
	Products []models.Product  `json:"products"`
	RM       []models.Material `json:"rm"`
	PM       []models.Material `json:"pm"`
}

// Report is the daily consumption of one section.
type Report struct {
	Section       string        `json:"section"`
	PeriodKey     string        `json:"period_key"`
	PeriodDisplay string        `json:"period_display"`
	Day           int           `json:"day"`
	Products      []ProductRow  `json:"products"`
	RM            []MaterialRow `json:"rm"`
	PM            []MaterialRow `json:"pm"`
}

// Empty reports whether the section has no records at all.
func (r Report) Empty() bool {
	return len(r.Products) == 0 && len(r.RM) == 0 && len(r.PM) == 0
}

// SnapshotCache stores raw snapshots per section and period.
type SnapshotCache interface {
	Get(ctx context.Context, section, periodKey string) (Snapshot, bool, error)
	Set(ctx context.Context, section, periodKey string, snap Snapshot) error
}

// Aggregate builds a report for day from an already loaded snapshot.
func Aggregate(snap Snapshot, day int) Report {
	r := Report{
		Day:      day,
		Products: make([]ProductRow, 0, len(snap.Products)),
		RM:       make([]MaterialRow, 0, len(snap.RM)),
		PM:       make([]MaterialRow, 0, len(snap.PM)),
	}
	for _, p := range snap.Products {
		r.Products = append(r.Products, AggregateProduct(p, day))
	}
	for _, m := range snap.RM {
		r.RM = append(r.RM, AggregateMaterial(m, day))
	}
	for _, m := range snap.PM {
		r.PM = append(r.PM, AggregateMaterial(m, day))
	}
	return r
}

// Service loads period snapshots and aggregates daily reports.
type Service struct {
	store  repository.Store
	cache  SnapshotCache
	logger *zap.Logger
}

// NewService wires the consumption service. cache may be nil.
func NewService(store repository.Store, cache SnapshotCache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, cache: cache, logger: logger}
}

// DailyReport aggregates every record of the section's period collections for day.
func (s *Service) DailyReport(ctx context.Context, section, periodKey string, day int) (Report, error) {
	if section == "" {
		return Report{}, ledger.ErrSectionRequired
	}
	if day < 1 || day > models.DaysInBuffer {
		return Report{}, fmt.Errorf("%w: %d", ErrInvalidDay, day)
	}
	p, err := models.ParsePeriodKey(periodKey)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %w", models.ErrValidation, err)
	}

	snap, err := s.Snapshot(ctx, section, periodKey)
	if err != nil {
		return Report{}, err
	}

	r := Aggregate(snap, day)
	r.Section = section
	r.PeriodKey = periodKey
	r.PeriodDisplay = p.Display()
	return r, nil
}

// Snapshot returns the raw records of a period, from cache when possible.
// Products, rm and pm are loaded concurrently; each list is sorted by name.
func (s *Service) Snapshot(ctx context.Context, section, periodKey string) (Snapshot, error) {
	if s.cache != nil {
		snap, ok, err := s.cache.Get(ctx, section, periodKey)
		if err != nil {
			s.logger.Warn("snapshot cache read failed", zap.String("section", section), zap.String("period", periodKey), zap.Error(err))
		} else if ok {
			return snap, nil
		}
	}

	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		docs, err := s.list(gctx, section, models.KindProducts, periodKey)
		if err != nil {
			return err
		}
		snap.Products = ledger.DecodeProducts(docs, s.logger)
		return nil
	})
	g.Go(func() error {
		docs, err := s.list(gctx, section, models.KindRM, periodKey)
		if err != nil {
			return err
		}
		snap.RM = ledger.DecodeMaterials(docs, s.logger)
		return nil
	})
	g.Go(func() error {
		docs, err := s.list(gctx, section, models.KindPM, periodKey)
		if err != nil {
			return err
		}
		snap.PM = ledger.DecodeMaterials(docs, s.logger)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, section, periodKey, snap); err != nil {
			s.logger.Warn("snapshot cache write failed", zap.String("section", section), zap.String("period", periodKey), zap.Error(err))
		}
	}
	return snap, nil
}

func (s *Service) list(ctx context.Context, section string, kind models.Kind, periodKey string) ([]repository.Document, error) {
	coll := models.PeriodCollection(section, kind, periodKey)
	docs, err := s.store.List(ctx, coll)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", coll, err)
	}
	return docs, nil
}
