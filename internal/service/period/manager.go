package period

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nicefood/prodtrack/internal/domain/models"
	"github.com/nicefood/prodtrack/internal/repository"
	"github.com/nicefood/prodtrack/internal/service/directory"
	"github.com/nicefood/prodtrack/internal/service/ledger"
)

// DefaultThrottle separates document writes during a period copy.
const DefaultThrottle = 10 * time.Millisecond

// Cutoff is the earliest period that may be created.
var Cutoff = models.Period{Month: time.September, Year: 2025}

var (
	ErrBeforeCutoff    = fmt.Errorf("%w: periods before %s cannot be created", models.ErrValidation, Cutoff.Display())
	ErrSectionRequired = fmt.Errorf("%w: select a section", models.ErrValidation)
	ErrPeriodRequired  = fmt.Errorf("%w: select both periods", models.ErrValidation)
	ErrSamePeriod      = fmt.Errorf("%w: from and to periods must differ", models.ErrValidation)
	ErrPeriodOrder     = fmt.Errorf("%w: from period must not be later than to period", models.ErrValidation)
	ErrNoSections      = fmt.Errorf("%w: no sections to process", models.ErrValidation)
	ErrJobFinished     = errors.New("period job already completed")
)

// ProgressFunc receives the number of processed documents and the pre-counted total.
type ProgressFunc func(done, total int)

// Result summarizes a bulk period operation.
type Result struct {
	JobID         string           `json:"job_id"`
	PeriodKey     string           `json:"period_key"`
	PeriodDisplay string           `json:"period_display"`
	Status        string           `json:"status"`
	Total         int              `json:"total"`
	Processed     int              `json:"processed"`
	UsersUpdated  int              `json:"users_updated"`
	StaleUsers    []string         `json:"stale_users,omitempty"`
	Skipped       []ledger.Skipped `json:"-"`
}

// Manager moves ledger data between base collections and period snapshots.
type Manager struct {
	store    repository.Store
	users    *directory.Users
	cache    ledger.Invalidator
	throttle time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewManager wires a period manager. cache may be nil; a negative throttle disables the delay.
func NewManager(store repository.Store, users *directory.Users, cache ledger.Invalidator, throttle time.Duration, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if throttle == 0 {
		throttle = DefaultThrottle
	}
	if throttle < 0 {
		throttle = 0
	}
	return &Manager{store: store, users: users, cache: cache, throttle: throttle, now: time.Now, logger: logger}
}

// CreatePeriod copies every base collection of the sections into the period
// snapshot, keeping document ids, then grants the period to every user.
func (m *Manager) CreatePeriod(ctx context.Context, sections []string, p models.Period, progress ProgressFunc) (Result, error) {
	if p.Before(Cutoff) {
		return Result{}, fmt.Errorf("%w: %s", ErrBeforeCutoff, p.Display())
	}
	if len(sections) == 0 {
		return Result{}, ErrNoSections
	}

	job, err := m.startJob(ctx, models.JobCreatePeriod, sections, p)
	if err != nil {
		return Result{}, err
	}
	return m.run(ctx, job, progress)
}

// DeletePeriod removes every document of the period snapshots and revokes the
// period from every user. Users whose current_period names it are reported, not changed.
func (m *Manager) DeletePeriod(ctx context.Context, sections []string, p models.Period, progress ProgressFunc) (Result, error) {
	if len(sections) == 0 {
		return Result{}, ErrNoSections
	}

	job, err := m.startJob(ctx, models.JobDeletePeriod, sections, p)
	if err != nil {
		return Result{}, err
	}
	return m.run(ctx, job, progress)
}

// ResumeJob runs the units an interrupted or partially failed job has not completed.
func (m *Manager) ResumeJob(ctx context.Context, jobID string, progress ProgressFunc) (Result, error) {
	doc, err := m.store.Get(ctx, models.PeriodJobsCollection, jobID)
	if err != nil {
		return Result{}, fmt.Errorf("load period job: %w", err)
	}
	job, err := models.DecodePeriodJob(doc)
	if err != nil {
		return Result{}, err
	}
	if job.Status == models.JobCompleted {
		return Result{}, fmt.Errorf("%w: %s", ErrJobFinished, jobID)
	}

	m.logger.Info("resuming period job",
		zap.String("job_id", jobID),
		zap.String("op", job.Op),
		zap.Int("completed_units", len(job.Completed)))
	return m.run(ctx, job, progress)
}

// ListJobs returns every persisted period job.
func (m *Manager) ListJobs(ctx context.Context) ([]models.PeriodJob, error) {
	docs, err := m.store.List(ctx, models.PeriodJobsCollection)
	if err != nil {
		return nil, fmt.Errorf("list period jobs: %w", err)
	}
	jobs := make([]models.PeriodJob, 0, len(docs))
	for _, doc := range docs {
		job, err := models.DecodePeriodJob(doc)
		if err != nil {
			m.logger.Error("skip undecodable period job", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (m *Manager) startJob(ctx context.Context, op string, sections []string, p models.Period) (models.PeriodJob, error) {
	stamp := m.now().UTC().Format(time.RFC3339)
	job := models.PeriodJob{
		Op:            op,
		PeriodKey:     p.Key(),
		PeriodDisplay: p.Display(),
		Sections:      sections,
		Completed:     []string{},
		Status:        models.JobRunning,
		StartedAt:     stamp,
		UpdatedAt:     stamp,
	}
	data, err := models.ToData(job)
	if err != nil {
		return models.PeriodJob{}, err
	}
	id, err := m.store.Create(ctx, models.PeriodJobsCollection, data)
	if err != nil {
		return models.PeriodJob{}, fmt.Errorf("record period job: %w", err)
	}
	job.ID = id

	m.logger.Info("period job started",
		zap.String("job_id", id),
		zap.String("op", op),
		zap.String("period", job.PeriodKey),
		zap.Strings("sections", sections))
	return job, nil
}

// run walks the (kind × section) work-list in products, rm, pm order. A unit is
// marked completed only when every document in it succeeded.
func (m *Manager) run(ctx context.Context, job models.PeriodJob, progress ProgressFunc) (Result, error) {
	res := Result{JobID: job.ID, PeriodKey: job.PeriodKey, PeriodDisplay: job.PeriodDisplay}
	res.Total = m.countDocuments(ctx, job)

	for _, kind := range models.LedgerKinds {
		for _, section := range job.Sections {
			unit := models.UnitKey(section, kind)
			if job.IsDone(unit) {
				continue
			}
			if err := ctx.Err(); err != nil {
				m.saveJob(context.WithoutCancel(ctx), &job, models.JobPartial)
				return res, err
			}

			var failed int
			switch job.Op {
			case models.JobCreatePeriod:
				failed = m.copyUnit(ctx, section, kind, job.PeriodKey, &res, progress)
			case models.JobDeletePeriod:
				failed = m.deleteUnit(ctx, section, kind, job.PeriodKey, &res, progress)
			default:
				return res, fmt.Errorf("unknown period job op %q", job.Op)
			}

			if failed == 0 {
				job.Completed = append(job.Completed, unit)
				m.saveJob(ctx, &job, models.JobRunning)
			}
		}
	}

	m.invalidate(ctx, job)

	var (
		change directory.PeriodChange
		err    error
	)
	if job.Op == models.JobCreatePeriod {
		change, err = m.users.GrantPeriod(ctx, job.PeriodDisplay)
	} else {
		change, err = m.users.RevokePeriod(ctx, job.PeriodDisplay)
	}
	if err != nil {
		m.logger.Error("user period update failed", zap.String("period", job.PeriodDisplay), zap.Error(err))
		res.Skipped = append(res.Skipped, ledger.Skipped{Collection: models.UsersCollection, Err: err})
	}
	res.UsersUpdated = change.Updated
	res.StaleUsers = change.Stale
	res.Skipped = append(res.Skipped, change.Skipped...)
	if len(change.Stale) > 0 {
		m.logger.Warn("users still point at a deleted period",
			zap.String("period", job.PeriodDisplay),
			zap.Strings("users", change.Stale))
	}

	status := models.JobCompleted
	if len(res.Skipped) > 0 || len(job.Completed) < len(job.Sections)*len(models.LedgerKinds) {
		status = models.JobPartial
	}
	m.saveJob(ctx, &job, status)
	res.Status = status

	m.logger.Info("period job finished",
		zap.String("job_id", job.ID),
		zap.String("status", status),
		zap.Int("processed", res.Processed),
		zap.Int("total", res.Total),
		zap.Int("skipped", len(res.Skipped)))
	return res, nil
}

func (m *Manager) copyUnit(ctx context.Context, section string, kind models.Kind, periodKey string, res *Result, progress ProgressFunc) int {
	source := models.BaseCollection(section, kind)
	target := models.PeriodCollection(section, kind, periodKey)

	docs, err := m.store.List(ctx, source)
	if err != nil {
		m.logger.Error("skip collection copy", zap.String("collection", source), zap.Error(err))
		res.Skipped = append(res.Skipped, ledger.Skipped{Collection: source, Err: err})
		return 1
	}
	if len(docs) == 0 {
		m.logger.Warn("no documents to copy", zap.String("collection", source))
		return 0
	}

	failed := 0
	for _, doc := range docs {
		res.Processed++
		if progress != nil {
			progress(res.Processed, res.Total)
		}
		if err := m.store.CreateWithID(ctx, target, doc.ID, repository.StripID(doc.Data)); err != nil {
			failed++
			m.logger.Error("skip document copy", zap.String("collection", target), zap.String("id", doc.ID), zap.Error(err))
			res.Skipped = append(res.Skipped, ledger.Skipped{Collection: target, ID: doc.ID, Err: err})
			continue
		}
		if err := m.pause(ctx); err != nil {
			return failed + 1
		}
	}
	return failed
}

func (m *Manager) deleteUnit(ctx context.Context, section string, kind models.Kind, periodKey string, res *Result, progress ProgressFunc) int {
	target := models.PeriodCollection(section, kind, periodKey)

	docs, err := m.store.List(ctx, target)
	if err != nil {
		m.logger.Error("skip collection delete", zap.String("collection", target), zap.Error(err))
		res.Skipped = append(res.Skipped, ledger.Skipped{Collection: target, Err: err})
		return 1
	}

	failed := 0
	for _, doc := range docs {
		res.Processed++
		if progress != nil {
			progress(res.Processed, res.Total)
		}
		if err := m.store.Delete(ctx, target, doc.ID); err != nil {
			failed++
			m.logger.Error("skip document delete", zap.String("collection", target), zap.String("id", doc.ID), zap.Error(err))
			res.Skipped = append(res.Skipped, ledger.Skipped{Collection: target, ID: doc.ID, Err: err})
		}
	}
	return failed
}

// countDocuments pre-scans the remaining units for progress reporting only.
func (m *Manager) countDocuments(ctx context.Context, job models.PeriodJob) int {
	total := 0
	for _, kind := range models.LedgerKinds {
		for _, section := range job.Sections {
			if job.IsDone(models.UnitKey(section, kind)) {
				continue
			}
			coll := models.BaseCollection(section, kind)
			if job.Op == models.JobDeletePeriod {
				coll = models.PeriodCollection(section, kind, job.PeriodKey)
			}
			docs, err := m.store.List(ctx, coll)
			if err != nil {
				m.logger.Warn("count documents failed", zap.String("collection", coll), zap.Error(err))
				continue
			}
			total += len(docs)
		}
	}
	return total
}

func (m *Manager) pause(ctx context.Context) error {
	if m.throttle <= 0 {
		return nil
	}
	timer := time.NewTimer(m.throttle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (m *Manager) saveJob(ctx context.Context, job *models.PeriodJob, status string) {
	job.Status = status
	job.UpdatedAt = m.now().UTC().Format(time.RFC3339)
	partial := map[string]any{
		"completed":  job.Completed,
		"status":     job.Status,
		"updated_at": job.UpdatedAt,
	}
	if err := m.store.Update(ctx, models.PeriodJobsCollection, job.ID, partial); err != nil {
		m.logger.Error("persist period job failed", zap.String("job_id", job.ID), zap.Error(err))
	}
}

func (m *Manager) invalidate(ctx context.Context, job models.PeriodJob) {
	if m.cache == nil {
		return
	}
	for _, section := range job.Sections {
		if err := m.cache.Invalidate(ctx, section, job.PeriodKey); err != nil {
			m.logger.Warn("cache invalidation failed", zap.String("section", section), zap.Error(err))
		}
	}
}
