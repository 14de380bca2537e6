package calendar

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/pkg/errors"
	"github.com/tj/go-naturaldate"
)

// ParseTime reads absolute dates ("2024-03-05 14:00", "March 5 2024 2pm")
// with dateparse, and relative phrases ("tomorrow at 2pm", "next monday")
// with go-naturaldate, preferring the future. Times without a zone are taken
// to be in loc.
func ParseTime(s string, now time.Time, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty time")
	}
	if loc == nil {
		loc = time.Local
	}
	if t, err := dateparse.ParseIn(s, loc); err == nil {
		return t.In(loc), nil
	}

	ref := now.In(loc)
	t, err := naturaldate.Parse(s, ref, naturaldate.WithDirection(naturaldate.Future))
	if err != nil {
		return time.Time{}, errors.Errorf("Could not parse time: %s", s)
	}
	if t.Equal(ref) && !strings.EqualFold(s, "now") {
		return time.Time{}, errors.Errorf("Could not parse time: %s", s)
	}
	return t.In(loc), nil
}
