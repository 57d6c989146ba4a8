package scheduler

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/nicefood/prodtrack/internal/domain/models"
	"github.com/nicefood/prodtrack/internal/service/consumption"
	"github.com/nicefood/prodtrack/internal/service/reporting"
	"github.com/nicefood/prodtrack/internal/storage"
	"github.com/nicefood/prodtrack/pkg/clients/whatsapp"
)

// SectionLister lists the section slugs to report on.
type SectionLister interface {
	Values(ctx context.Context) ([]string, error)
}

// DailyReporter builds the daily report of one section.
type DailyReporter interface {
	DailyReport(ctx context.Context, section, periodKey string, day int) (consumption.Report, error)
}

// Options configures the scheduler. Archive and Messenger may be nil.
type Options struct {
	Schedule  string
	Location  *time.Location
	Recipient string
}

// RunResult summarises one daily run.
type RunResult struct {
	PeriodKey string
	Day       int
	Sections  int
	Archived  int
	Sent      int
	Failed    []string
}

// Scheduler runs the end-of-day consumption report job.
type Scheduler struct {
	cron      *cron.Cron
	opts      Options
	sections  SectionLister
	reports   DailyReporter
	renderer  *reporting.Service
	archive   storage.Archive
	messenger whatsapp.Client
	now       func() time.Time
	logger    *zap.Logger
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(opts Options, sections SectionLister, reports DailyReporter, renderer *reporting.Service, archive storage.Archive, messenger whatsapp.Client, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	return &Scheduler{
		cron:      cron.New(cron.WithLocation(opts.Location)),
		opts:      opts,
		sections:  sections,
		reports:   reports,
		renderer:  renderer,
		archive:   archive,
		messenger: messenger,
		now:       time.Now,
		logger:    logger,
	}
}

// Start registers the daily job and starts the cron loop.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("schedule", s.opts.Schedule), zap.String("location", s.opts.Location.String()))

	if _, err := s.cron.AddFunc(s.opts.Schedule, s.runDaily); err != nil {
		return fmt.Errorf("schedule daily report: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runDaily() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	res, err := s.RunDaily(ctx)
	if err != nil {
		s.logger.Error("daily report run failed", zap.Error(err))
		return
	}
	s.logger.Info("daily report run finished",
		zap.String("period", res.PeriodKey),
		zap.Int("day", res.Day),
		zap.Int("sections", res.Sections),
		zap.Int("archived", res.Archived),
		zap.Int("sent", res.Sent),
		zap.Strings("failed", res.Failed))
}

// RunDaily reports today's consumption of every section in the current
// calendar period. A failing section is logged and skipped.
func (s *Scheduler) RunDaily(ctx context.Context) (RunResult, error) {
	now := s.now().In(s.opts.Location)
	res := RunResult{
		PeriodKey: models.PeriodOf(now).Key(),
		Day:       now.Day(),
	}

	sections, err := s.sections.Values(ctx)
	if err != nil {
		return res, fmt.Errorf("list sections: %w", err)
	}
	res.Sections = len(sections)

	for _, section := range sections {
		logger := s.logger.With(zap.String("section", section), zap.String("period", res.PeriodKey))

		report, err := s.reports.DailyReport(ctx, section, res.PeriodKey, res.Day)
		if err != nil {
			logger.Error("build daily report", zap.Error(err))
			res.Failed = append(res.Failed, section)
			continue
		}

		archived, sent, err := s.deliver(ctx, report)
		if archived {
			res.Archived++
		}
		if sent {
			res.Sent++
		}
		if err != nil {
			logger.Error("deliver daily report", zap.Error(err))
			res.Failed = append(res.Failed, section)
		}
	}
	return res, nil
}

func (s *Scheduler) deliver(ctx context.Context, report consumption.Report) (archived, sent bool, err error) {
	if s.archive != nil {
		f, err := s.renderer.DailyWorkbook(report)
		if err != nil {
			return false, false, fmt.Errorf("render workbook: %w", err)
		}
		var buf bytes.Buffer
		werr := f.Write(&buf)
		_ = f.Close()
		if werr != nil {
			return false, false, fmt.Errorf("write workbook: %w", werr)
		}

		key := storage.DailyReportKey(report.Section, report.PeriodKey, report.Day)
		if err := s.archive.Upload(ctx, key, &buf, int64(buf.Len()), reporting.ContentTypeXLSX); err != nil {
			return false, false, err
		}
		archived = true
	}

	if s.messenger != nil && s.opts.Recipient != "" {
		req := whatsapp.SendTextMessageRequest{To: s.opts.Recipient, Body: s.renderer.Summary(report)}
		if _, err := s.messenger.SendTextMessage(ctx, req); err != nil {
			return archived, false, fmt.Errorf("send summary: %w", err)
		}
		sent = true
	}
	return archived, sent, nil
}
