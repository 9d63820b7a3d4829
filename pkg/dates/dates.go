package dates

import (
	"regexp"
	"time"

	appErrors "github.com/noah-isme/school-admin-api/pkg/errors"
)

// The two accepted textual forms. The 4-digit year position decides the
// layout; values are never guessed at.
var (
	isoShape = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	euShape  = regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`)
)

const (
	isoLayout = "2006-01-02"
	euLayout  = "02-01-2006"
)

// Normalize parses a date string in YYYY-MM-DD or DD-MM-YYYY form into the
// canonical calendar date: midnight UTC with no time-of-day component. Both
// forms of the same day normalize to the identical instant, making the
// result usable as a join and dedup key.
func Normalize(raw string) (time.Time, error) {
	var layout string
	switch {
	case isoShape.MatchString(raw):
		layout = isoLayout
	case euShape.MatchString(raw):
		layout = euLayout
	default:
		return time.Time{}, appErrors.ErrInvalidDateFormat
	}

	t, err := time.ParseInLocation(layout, raw, time.UTC)
	if err != nil {
		return time.Time{}, appErrors.Wrap(err, appErrors.ErrInvalidDateValue.Code, appErrors.ErrInvalidDateValue.Status, "invalid date value: "+raw)
	}
	return t, nil
}

// NormalizeEnd parses a range end bound and extends it to 23:59:59.999 UTC
// so an inclusive upper bound covers the whole day. A start==end range then
// still spans the full day.
func NormalizeEnd(raw string) (time.Time, error) {
	t, err := Normalize(raw)
	if err != nil {
		return time.Time{}, err
	}
	return EndOfDay(t), nil
}

// EndOfDay returns 23:59:59.999 UTC of the given day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), time.UTC)
}

// ISO formats the canonical date as YYYY-MM-DD.
func ISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}
