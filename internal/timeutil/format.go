package timeutil

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidRangeCode is returned by RangeCodeToMillis for malformed codes
var ErrInvalidRangeCode = errors.New("invalid range code")

var rangeCodePattern = regexp.MustCompile(`^([+-]?\d+)([smhd]?)$`)

var rangeUnits = map[string]int64{
	"":  1,
	"s": 1000,
	"m": 60 * 1000,
	"h": 60 * 60 * 1000,
	"d": 24 * 60 * 60 * 1000,
}

// RangeCodeToMillis parses "7d", "30m", "-123h" or a bare millisecond count
func RangeCodeToMillis(code string) (int64, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return 0, ErrNoValue
	}

	m := rangeCodePattern.FindStringSubmatch(strings.ToLower(code))
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRangeCode, code)
	}

	value, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidRangeCode, code, err)
	}

	unit := rangeUnits[m[2]]
	if value > math.MaxInt64/unit || value < math.MinInt64/unit {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidRangeCode, code)
	}

	return value * unit, nil
}

// HumanDuration formats millis as "1d 2h 3m". parts selects the units: "dhm"
// (default), "hm", "dh" or "dm". The leading unit is never wrapped, so "hm"
// renders 25 hours as "25h 0m".
func HumanDuration(millis int64, parts string) string {
	sign := ""
	if millis < 0 {
		sign = "-"
		millis = -millis
	}

	totalMinutes := millis / 60000
	days := totalMinutes / 1440
	hours := totalMinutes / 60 % 24
	minutes := totalMinutes % 60

	switch parts {
	case "hm":
		return fmt.Sprintf("%s%dh %dm", sign, totalMinutes/60, minutes)
	case "dh":
		return fmt.Sprintf("%s%dd %dh", sign, days, hours)
	case "dm":
		return fmt.Sprintf("%s%dd %dm", sign, days, totalMinutes%1440)
	}
	return fmt.Sprintf("%s%dd %dh %dm", sign, days, hours, minutes)
}

// FloatToPercent renders value*100 with the given number of decimals, rounding
// half away from zero on the exact binary value. NaN and infinities render as
// zero. A negative decimals count means one decimal place.
func FloatToPercent(value float64, decimals int, suffix string) string {
	if decimals < 0 {
		decimals = 1
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		value = 0
	}
	return toFixed(value*100, decimals) + suffix
}

// Percent is FloatToPercent with one decimal and a "%" suffix
func Percent(value float64) string {
	return FloatToPercent(value, 1, "%")
}

// toFixed formats x with d decimals, choosing the larger magnitude on exact ties
func toFixed(x float64, d int) string {
	r := new(big.Rat).SetFloat64(x)
	neg := r.Sign() < 0
	r.Abs(r)

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(d)), nil)
	r.Mul(r, new(big.Rat).SetInt(scale))
	r.Add(r, big.NewRat(1, 2))

	n := new(big.Int).Quo(r.Num(), r.Denom())
	digits := n.String()
	if d > 0 {
		if len(digits) <= d {
			digits = strings.Repeat("0", d-len(digits)+1) + digits
		}
		digits = digits[:len(digits)-d] + "." + digits[len(digits)-d:]
	}
	if neg && n.Sign() != 0 {
		digits = "-" + digits
	}
	return digits
}

var (
	binaryUnits = []string{"KiB", "MiB", "GiB", "TiB", "PiB", "EiB", "ZiB", "YiB"}
	siUnits     = []string{"kB", "MB", "GB", "TB", "PB", "EB", "ZB", "YB"}
)

// HumanFileSize scales bytes by 1024 (or 1000 when useSI) and appends a unit
func HumanFileSize(bytes int64, decimalPlaces int, useSI bool) string {
	if decimalPlaces < 0 {
		decimalPlaces = 1
	}

	thresh := 1024.0
	units := binaryUnits
	if useSI {
		thresh = 1000.0
		units = siUnits
	}

	if math.Abs(float64(bytes)) < thresh {
		return strconv.FormatInt(bytes, 10) + " B"
	}

	value := float64(bytes)
	r := math.Pow(10, float64(decimalPlaces))
	u := -1
	for {
		value /= thresh
		u++
		if math.Round(math.Abs(value)*r)/r < thresh || u >= len(units)-1 {
			break
		}
	}

	return toFixed(value, decimalPlaces) + " " + units[u]
}
