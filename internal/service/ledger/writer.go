package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/nicefood/prodtrack/internal/domain/models"
	"github.com/nicefood/prodtrack/internal/repository"
)

// Invalidator drops cached period snapshots after a ledger write.
type Invalidator interface {
	Invalidate(ctx context.Context, section, periodKey string) error
}

// WriteError reports the collections a multi-collection ledger write failed on.
type WriteError struct {
	Op        string
	ID        string
	Attempted int
	Failed    map[string]error
}

func (e *WriteError) Error() string {
	colls := make([]string, 0, len(e.Failed))
	for c := range e.Failed {
		colls = append(colls, c)
	}
	sort.Strings(colls)

	kind := "total"
	if e.Partial() {
		kind = "partial"
	}
	return fmt.Sprintf("%s %s: %s failure on %d/%d collections (%s)", e.Op, e.ID, kind, len(e.Failed), e.Attempted, strings.Join(colls, ", "))
}

// Partial reports whether at least one collection was written.
func (e *WriteError) Partial() bool {
	return len(e.Failed) > 0 && len(e.Failed) < e.Attempted
}

// Unwrap exposes the per-collection causes to errors.Is and errors.As.
func (e *WriteError) Unwrap() []error {
	out := make([]error, 0, len(e.Failed))
	for _, err := range e.Failed {
		out = append(out, err)
	}
	return out
}

func (e *WriteError) record(collection string, err error) {
	if e.Failed == nil {
		e.Failed = map[string]error{}
	}
	e.Failed[collection] = err
}

func (e *WriteError) orNil() error {
	if len(e.Failed) == 0 {
		return nil
	}
	return e
}

// IsPartial reports whether err is a WriteError that left some collections written.
func IsPartial(err error) bool {
	var werr *WriteError
	return errors.As(err, &werr) && werr.Partial()
}

// Writer is the single write path for material and product records. Every
// mutation goes to the base collection and to the active period collection.
// Other period snapshots are never touched.
type Writer struct {
	store  repository.Store
	cache  Invalidator
	logger *zap.Logger
}

// NewWriter wires a ledger writer. cache may be nil.
func NewWriter(store repository.Store, cache Invalidator, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{store: store, cache: cache, logger: logger}
}

// Create inserts data into the base collection and copies it under the same
// id into the period collection of periodKey.
func (w *Writer) Create(ctx context.Context, section string, kind models.Kind, data map[string]any, periodKey string) (string, error) {
	base := models.BaseCollection(section, kind)
	keys := periodTargets(periodKey)
	werr := &WriteError{Op: "create", Attempted: 1 + len(keys)}

	id, err := w.store.Create(ctx, base, data)
	if err != nil {
		werr.Attempted = 1
		werr.record(base, err)
		w.logger.Error("ledger create failed", zap.String("collection", base), zap.Error(err))
		return "", werr
	}
	werr.ID = id

	for _, key := range keys {
		coll := models.PeriodCollection(section, kind, key)
		if err := w.store.CreateWithID(ctx, coll, id, data); err != nil {
			werr.record(coll, err)
			w.logger.Error("ledger create failed", zap.String("collection", coll), zap.String("id", id), zap.Error(err))
		}
	}

	w.invalidate(ctx, section, keys)
	return id, werr.orNil()
}

// Update applies a partial update to the record in base and in periodKey.
func (w *Writer) Update(ctx context.Context, section string, kind models.Kind, id string, partial map[string]any, periodKey string) error {
	return w.each(ctx, "update", section, kind, id, periodKey, func(coll string) error {
		return w.store.Update(ctx, coll, id, partial)
	})
}

// Delete removes the record from base and from periodKey.
func (w *Writer) Delete(ctx context.Context, section string, kind models.Kind, id, periodKey string) error {
	return w.each(ctx, "delete", section, kind, id, periodKey, func(coll string) error {
		return w.store.Delete(ctx, coll, id)
	})
}

func (w *Writer) each(ctx context.Context, op, section string, kind models.Kind, id, periodKey string, fn func(coll string) error) error {
	keys := periodTargets(periodKey)
	colls := make([]string, 0, 1+len(keys))
	colls = append(colls, models.BaseCollection(section, kind))
	for _, key := range keys {
		colls = append(colls, models.PeriodCollection(section, kind, key))
	}

	werr := &WriteError{Op: op, ID: id, Attempted: len(colls)}
	for _, coll := range colls {
		if err := fn(coll); err != nil {
			werr.record(coll, err)
			w.logger.Error("ledger write failed",
				zap.String("op", op),
				zap.String("collection", coll),
				zap.String("id", id),
				zap.Error(err))
		}
	}

	w.invalidate(ctx, section, keys)
	return werr.orNil()
}

func (w *Writer) invalidate(ctx context.Context, section string, keys []string) {
	if w.cache == nil {
		return
	}
	for _, key := range keys {
		if err := w.cache.Invalidate(ctx, section, key); err != nil {
			w.logger.Warn("cache invalidation failed", zap.String("section", section), zap.String("period", key), zap.Error(err))
		}
	}
}

// periodTargets lists the period collection keys a write reaches besides base.
func periodTargets(periodKey string) []string {
	if k := strings.TrimSpace(periodKey); k != "" {
		return []string{k}
	}
	return nil
}
