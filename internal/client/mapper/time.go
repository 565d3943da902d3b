package mapper

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnparseableTime is returned when no known layout matches.
var ErrUnparseableTime = errors.New("unparseable time")

// storageLayout is fixed width so stored values sort chronologically as text.
const storageLayout = "2006-01-02T15:04:05.000Z"

// zonedLayouts carry an explicit offset or Z suffix.
var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02 15:04:05Z07:00",
}

// localLayouts have no zone and are read as UTC.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// dateLayouts are legacy date-only forms, read as midnight UTC.
// Month-first comes before day-first for ambiguous values.
var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	"2/1/2006",
	"02/01/2006",
	"2006/1/2",
	"2006/01/02",
}

// ParseTime parses s with the first matching layout: zoned forms, then local
// date-times, then date-only forms. It never substitutes the current time.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrUnparseableTime)
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, group := range [][]string{localLayouts, dateLayouts} {
		for _, layout := range group {
			if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseableTime, s)
}

// ParseOptionalTime is ParseTime for fields the remote may omit.
func ParseOptionalTime(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	return ParseTime(s)
}

// FormatTime renders t in the storage form (UTC, millisecond precision).
// The zero time renders as "".
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(storageLayout)
}

// FormatWireTime renders t for request bodies.
func FormatWireTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// FormatDate renders the date part used by budget start dates.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// normalizeTime converts a wire value into the storage form.
func normalizeTime(field, s string, required bool) (string, error) {
	var (
		t   time.Time
		err error
	)
	if required {
		t, err = ParseTime(s)
	} else {
		t, err = ParseOptionalTime(s)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w", field, err)
	}
	return FormatTime(t), nil
}
