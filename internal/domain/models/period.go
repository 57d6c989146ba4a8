package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidPeriodKey indicates a period key that is not "<month>_<year>".
var ErrInvalidPeriodKey = errors.New("invalid period key")

// Period identifies a calendar month snapshot.
type Period struct {
	Month time.Month
	Year  int
}

// EncodePeriodKey derives the storage key from a display string:
// "January, 2025" becomes "january_2025". An empty display yields "".
func EncodePeriodKey(display string) string {
	if strings.TrimSpace(display) == "" {
		return ""
	}
	tokens := strings.Split(display, ",")
	for i, t := range tokens {
		tokens[i] = strings.ToLower(strings.TrimSpace(t))
	}
	return strings.Join(tokens, "_")
}

// CurrentPeriodDisplay renders "<MonthName>, <Year>" for now.
func CurrentPeriodDisplay(now time.Time) string {
	return fmt.Sprintf("%s, %d", now.Month().String(), now.Year())
}

// ParsePeriodKey parses "<month>_<year>" (month name, any case).
func ParsePeriodKey(key string) (Period, error) {
	monthPart, yearPart, ok := strings.Cut(strings.TrimSpace(key), "_")
	if !ok {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriodKey, key)
	}

	month, ok := monthByName[strings.ToLower(monthPart)]
	if !ok {
		return Period{}, fmt.Errorf("%w: unknown month %q", ErrInvalidPeriodKey, monthPart)
	}

	year, err := strconv.Atoi(yearPart)
	if err != nil {
		return Period{}, fmt.Errorf("%w: year %q", ErrInvalidPeriodKey, yearPart)
	}

	return Period{Month: month, Year: year}, nil
}

// Key returns the storage key, e.g. "september_2025".
func (p Period) Key() string {
	return fmt.Sprintf("%s_%d", strings.ToLower(p.Month.String()), p.Year)
}

// Display returns the user-facing text, e.g. "September, 2025".
func (p Period) Display() string {
	return fmt.Sprintf("%s, %d", p.Month.String(), p.Year)
}

// Before reports whether p is strictly earlier than other.
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Month: t.Month(), Year: t.Year()}
}

var monthByName = func() map[string]time.Month {
	m := make(map[string]time.Month, 12)
	for i := time.January; i <= time.December; i++ {
		m[strings.ToLower(i.String())] = i
	}
	return m
}()
