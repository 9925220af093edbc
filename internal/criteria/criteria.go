// Package criteria turns user supplied window expressions into a concrete
// activity window.
//
// Both ends accept epoch milliseconds, a local date string, a preset code
// (LH, LD, LM, TM) or a range code with a unit such as "-7d". A range code on
// atto is relative to now; on atfrom it is relative to the resolved atto and
// always reaches back, so "7d" and "-7d" mean the same thing there.
package criteria

import (
	"fmt"
	"gamewatch/internal/activity"
	"gamewatch/internal/timeutil"
	"regexp"
	"strings"
	"time"
)

// DefaultRange is used when atfrom is omitted
const DefaultRange = "-1d"

var relativePattern = regexp.MustCompile(`^[+-]?\d+[smhdSMHD]$`)

// Query is the raw, unvalidated form of a report request
type Query struct {
	AtFrom   string `form:"atfrom" json:"atfrom,omitempty"`
	AtTo     string `form:"atto" json:"atto,omitempty"`
	TZ       string `form:"tz" json:"tz,omitempty"`
	Instance string `form:"instance" json:"instance,omitempty"`
	Player   string `form:"player" json:"player,omitempty"`
}

// Criteria is a resolved query
type Criteria struct {
	Window   activity.Window `json:"window"`
	TZ       string          `json:"tz"`
	Instance string          `json:"instance,omitempty"`
	Player   string          `json:"player,omitempty"`
}

// Resolve evaluates q at now. defaultTZ applies when q.TZ is empty.
func Resolve(q Query, now time.Time, defaultTZ string) (Criteria, error) {
	tz := strings.TrimSpace(q.TZ)
	if tz == "" {
		tz = defaultTZ
	}
	if tz == "" {
		tz = timeutil.ZoneUTC
	}
	loc, err := timeutil.LoadZone(tz)
	if err != nil {
		return Criteria{}, err
	}

	atto, err := resolveEnd(q.AtTo, now, tz, loc)
	if err != nil {
		return Criteria{}, fmt.Errorf("atto: %w", err)
	}

	atfrom, err := resolveStart(q.AtFrom, atto, now, tz, loc)
	if err != nil {
		return Criteria{}, fmt.Errorf("atfrom: %w", err)
	}

	window := activity.Window{AtFrom: atfrom, AtTo: atto}
	if err := window.Validate(); err != nil {
		return Criteria{}, err
	}

	return Criteria{
		Window:   window,
		TZ:       tz,
		Instance: strings.TrimSpace(q.Instance),
		Player:   strings.TrimSpace(q.Player),
	}, nil
}

func resolveEnd(value string, now time.Time, tz string, loc *time.Location) (int64, error) {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return now.UnixMilli(), nil
	case timeutil.IsPreset(value):
		t, err := timeutil.PresetDate(now, value, loc)
		if err != nil {
			return 0, err
		}
		return t.UnixMilli(), nil
	case relativePattern.MatchString(value):
		offset, err := timeutil.RangeCodeToMillis(value)
		if err != nil {
			return 0, err
		}
		return now.UnixMilli() + offset, nil
	}
	return timeutil.ParseDateToMillis(value, tz)
}

func resolveStart(value string, atto int64, now time.Time, tz string, loc *time.Location) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		value = DefaultRange
	}

	switch {
	case timeutil.IsPreset(value):
		t, err := timeutil.PresetDate(now, value, loc)
		if err != nil {
			return 0, err
		}
		return t.UnixMilli(), nil
	case relativePattern.MatchString(value):
		offset, err := timeutil.RangeCodeToMillis(value)
		if err != nil {
			return 0, err
		}
		if offset > 0 {
			offset = -offset
		}
		return atto + offset, nil
	}

	return timeutil.ParseDateToMillis(value, tz)
}
