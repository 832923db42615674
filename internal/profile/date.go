package profile

import (
	"encoding/json"
	"strings"
	"time"
)

const (
	presentMarker = "Present"
	dayLayout     = "2006-01-02"
)

// Date is a calendar day, the "Present" marker, or absent (the zero value).
type Date struct {
	day     time.Time
	present bool
}

// Present marks an ongoing period.
var Present = Date{present: true}

// Day builds a calendar date.
func Day(year int, month time.Month, day int) Date {
	return Date{day: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD, YYYY-MM, YYYY and "Present"/"Current" in any case.
// Anything else, including "null", yields an absent date.
func ParseDate(s string) Date {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return Date{}
	}
	if strings.EqualFold(s, presentMarker) || strings.EqualFold(s, "current") {
		return Present
	}
	for _, layout := range []string{dayLayout, "2006-01", "2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{day: t}
		}
	}
	return Date{}
}

func (d Date) IsZero() bool    { return !d.present && d.day.IsZero() }
func (d Date) IsPresent() bool { return d.present }

// Time returns the calendar day; ok is false for absent and Present dates.
func (d Date) Time() (t time.Time, ok bool) {
	if d.present || d.day.IsZero() {
		return time.Time{}, false
	}
	return d.day, true
}

// Format renders the day with layout, "Present" for ongoing and "" when absent.
func (d Date) Format(layout string) string {
	switch {
	case d.present:
		return presentMarker
	case d.day.IsZero():
		return ""
	default:
		return d.day.Format(layout)
	}
}

func (d Date) String() string { return d.Format(dayLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*d = ParseDate(s)
	return nil
}
