package scheduler

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/nicefood/prodtrack/internal/service/consumption"
	"github.com/nicefood/prodtrack/internal/service/reporting"
	"github.com/nicefood/prodtrack/pkg/clients/whatsapp"
)

type fakeSections []string

func (f fakeSections) Values(context.Context) ([]string, error) { return f, nil }

type fakeReports struct{ fail map[string]bool }

func (f fakeReports) DailyReport(_ context.Context, section, periodKey string, day int) (consumption.Report, error) {
	if f.fail[section] {
		return consumption.Report{}, errors.New("store down")
	}
	r := consumption.Aggregate(consumption.Snapshot{}, day)
	r.Section = section
	r.PeriodKey = periodKey
	r.PeriodDisplay = "October, 2025"
	return r, nil
}

type fakeArchive struct{ keys []string }

func (f *fakeArchive) Upload(_ context.Context, key string, r io.Reader, size int64, contentType string) error {
	n, _ := io.Copy(io.Discard, r)
	if n != size || contentType != reporting.ContentTypeXLSX {
		return errors.New("bad upload")
	}
	f.keys = append(f.keys, key)
	return nil
}

type fakeMessenger struct{ bodies []string }

func (f *fakeMessenger) SendTextMessage(_ context.Context, req whatsapp.SendTextMessageRequest) (*whatsapp.SendTextMessageResponse, error) {
	f.bodies = append(f.bodies, req.To+"|"+req.Body)
	return &whatsapp.SendTextMessageResponse{}, nil
}

func TestRunDaily(t *testing.T) {
	archive := &fakeArchive{}
	messenger := &fakeMessenger{}
	s := NewScheduler(
		Options{Schedule: "0 20 * * *", Location: time.UTC, Recipient: "8801"},
		fakeSections{"biscuit", "cake", "wafer"},
		fakeReports{fail: map[string]bool{"cake": true}},
		reporting.NewService("", nil),
		archive, messenger, nil,
	)
	s.now = func() time.Time { return time.Date(2025, 10, 7, 20, 0, 0, 0, time.UTC) }

	res, err := s.RunDaily(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.PeriodKey != "october_2025" || res.Day != 7 || res.Sections != 3 {
		t.Fatalf("res = %+v", res)
	}
	if res.Archived != 2 || res.Sent != 2 || len(res.Failed) != 1 || res.Failed[0] != "cake" {
		t.Fatalf("res = %+v", res)
	}
	if archive.keys[0] != "reports/biscuit/october_2025/daily_07.xlsx" {
		t.Fatalf("keys = %v", archive.keys)
	}
	if !strings.HasPrefix(messenger.bodies[1], "8801|") || !strings.Contains(messenger.bodies[1], "Wafer Section") {
		t.Fatalf("bodies = %v", messenger.bodies)
	}
}

func TestRunDailyWithoutIntegrations(t *testing.T) {
	s := NewScheduler(Options{Schedule: "0 20 * * *"}, fakeSections{"biscuit"}, fakeReports{}, reporting.NewService("", nil), nil, nil, nil)
	res, err := s.RunDaily(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Archived != 0 || res.Sent != 0 || len(res.Failed) != 0 {
		t.Fatalf("res = %+v", res)
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(Options{Schedule: "every day"}, fakeSections{}, fakeReports{}, reporting.NewService("", nil), nil, nil, nil)
	if err := s.Start(); err == nil {
		s.Stop()
		t.Fatal("expected schedule error")
	}
}
