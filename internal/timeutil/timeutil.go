package timeutil

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Zone selectors understood by LoadZone
const (
	ZoneUTC   = "utc"
	ZoneLocal = "local"
)

const shortISOLayout = "2006-01-02 15:04:05"

var (
	// ErrNoValue is returned when a nullable input is empty
	ErrNoValue = errors.New("no value")

	// ErrInvalidDate is returned for date strings that cannot be parsed
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidZone is returned for unknown offsets or zone names
	ErrInvalidZone = errors.New("invalid timezone")

	// ErrInvalidPreset is returned for unknown preset codes
	ErrInvalidPreset = errors.New("invalid preset")
)

// ServerLocation is the zone used for the "local" selector. Tests may replace it.
var ServerLocation = time.Local

var (
	offsetPattern = regexp.MustCompile(`^([+-])(\d{1,2})(?::?(\d{2}))?$`)
	millisPattern = regexp.MustCompile(`^-?\d+$`)
)

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// LoadZone resolves a zone selector: "local", "utc", an explicit "±HH[:MM]"
// offset, or an IANA zone name.
func LoadZone(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)

	switch strings.ToLower(tz) {
	case ZoneLocal, "true":
		return ServerLocation, nil
	case ZoneUTC, "z":
		return time.UTC, nil
	}

	if m := offsetPattern.FindStringSubmatch(tz); m != nil {
		hours, _ := strconv.Atoi(m[2])
		minutes := 0
		if m[3] != "" {
			minutes, _ = strconv.Atoi(m[3])
		}
		if hours > 23 || minutes > 59 {
			return nil, fmt.Errorf("%w: offset out of range %q", ErrInvalidZone, tz)
		}
		seconds := hours*3600 + minutes*60
		if m[1] == "-" {
			seconds = -seconds
		}
		return time.FixedZone(tz, seconds), nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidZone, tz, err)
	}
	return loc, nil
}

// ParseDateToMillis converts a local date-time string in the zone selected by tz
// into epoch milliseconds. An empty tz means the server's local zone. Inputs
// that are already integer milliseconds pass through unchanged.
func ParseDateToMillis(input string, tz string) (int64, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, ErrNoValue
	}

	if millisPattern.MatchString(input) {
		value, err := strconv.ParseInt(input, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %v", ErrInvalidDate, input, err)
		}
		return value, nil
	}

	if tz == "" {
		tz = ZoneLocal
	}
	loc, err := LoadZone(tz)
	if err != nil {
		return 0, err
	}

	for _, layout := range dateLayouts {
		parsed, err := time.ParseInLocation(layout, input, loc)
		if err == nil {
			return parsed.UnixMilli(), nil
		}
	}

	return 0, fmt.Errorf("%w: %q, expected YYYY-MM-DD HH:mm:ss", ErrInvalidDate, input)
}

// ShortISODateTimeString formats epoch milliseconds as YYYY-MM-DD HH:mm:ss.
// An empty tz formats in UTC.
func ShortISODateTimeString(millis int64, tz string) (string, error) {
	loc := time.UTC
	if tz != "" {
		var err error
		if loc, err = LoadZone(tz); err != nil {
			return "", err
		}
	}
	return time.UnixMilli(millis).In(loc).Truncate(time.Second).Format(shortISOLayout), nil
}

// PresetDate returns the instant named by a preset code relative to at:
//
//	LH  start of the last completed hour
//	LD  start of the current day
//	LM  start of the current month
//	TM  start of the next month
func PresetDate(at time.Time, preset string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = ServerLocation
	}
	t := at.In(loc)

	switch strings.ToUpper(strings.TrimSpace(preset)) {
	case "LH":
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, loc).Add(-time.Hour), nil
	case "LD":
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
	case "LM":
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc), nil
	case "TM":
		return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, loc), nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPreset, preset)
}

// IsPreset reports whether code names a PresetDate preset
func IsPreset(code string) bool {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "LH", "LD", "LM", "TM":
		return true
	}
	return false
}
