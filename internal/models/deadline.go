package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Canonical storage layouts for deadlines.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04"
)

var dateLayouts = []string{
	DateLayout,
	"02.01.2006",
	"02.01.06",
	"02/01/2006",
}

var dateTimeLayouts = []string{
	DateTimeLayout,
	"2006-01-02T15:04",
	"02.01.2006 15:04",
	"02.01.06 15:04",
	"02/01/2006 15:04",
}

// Deadline is a due date with an optional time of day. At carries the
// wall-clock value; its location is only meaningful when parsed from input.
type Deadline struct {
	At      time.Time
	HasTime bool
}

// ParseDeadline accepts any of the supported date or date+time formats.
// Empty input and "-" mean no deadline and return nil.
func ParseDeadline(s string, loc *time.Location) (*Deadline, error) {
	v := strings.Join(strings.Fields(s), " ")
	if v == "" || v == "-" {
		return nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return &Deadline{At: t, HasTime: true}, nil
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return &Deadline{At: t}, nil
		}
	}
	return nil, fmt.Errorf("cannot parse deadline %q (use YYYY-MM-DD or DD.MM.YYYY, optionally followed by HH:MM)", s)
}

// ParseStoredDeadline reads the canonical form written by String.
func ParseStoredDeadline(s string) (*Deadline, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(DateTimeLayout, s); err == nil {
		return &Deadline{At: t, HasTime: true}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("stored deadline %q: %w", s, err)
	}
	return &Deadline{At: t}, nil
}

// String returns the canonical storage form.
func (d Deadline) String() string {
	if d.HasTime {
		return d.At.Format(DateTimeLayout)
	}
	return d.At.Format(DateLayout)
}

// Day returns the calendar date part of the deadline.
func (d Deadline) Day() string {
	return d.At.Format(DateLayout)
}

// DueBy reports whether the deadline day is on or before the calendar day
// of now, read in now's own location.
func (d Deadline) DueBy(now time.Time) bool {
	return d.Day() <= now.Format(DateLayout)
}

func (d Deadline) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Deadline) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseStoredDeadline(s)
	if err != nil {
		return err
	}
	if parsed != nil {
		*d = *parsed
	}
	return nil
}

// FormatDeadline renders an optional deadline for humans.
func FormatDeadline(d *Deadline) string {
	if d == nil {
		return "none"
	}
	return d.String()
}
