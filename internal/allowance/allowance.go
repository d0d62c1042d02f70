// Package allowance computes per-diem and mileage reimbursements for trips.
//
// Every function here is pure. Invalid input never produces an error, it
// produces zero.
package allowance

import (
	"math"
	"strings"
	"time"
)

const (
	DefaultDailyAllowance = 35.0
	DefaultRatePerKm      = 0.3
)

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime parses the timestamp formats accepted from travel forms.
func ParseTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// TotalHours returns the number of whole hours between departure and ret,
// never less than zero.
func TotalHours(departure, ret time.Time) int {
	if departure.IsZero() || ret.IsZero() {
		return 0
	}

	hours := int(math.Floor(ret.Sub(departure).Hours()))
	if hours < 0 {
		return 0
	}

	return hours
}

// TotalHoursFromStrings is TotalHours over unparsed timestamps.
func TotalHoursFromStrings(departure, ret string) int {
	dep, ok := ParseTime(departure)
	if !ok {
		return 0
	}

	back, ok := ParseTime(ret)
	if !ok {
		return 0
	}

	return TotalHours(dep, back)
}

// Allowance applies the default daily rate.
func Allowance(hours float64) float64 {
	return AllowanceWithRate(hours, DefaultDailyAllowance)
}

// AllowanceWithRate converts elapsed hours into a per-diem amount:
// under 6h nothing, under 12h half a day, otherwise full days plus a
// half or full day for the remainder.
func AllowanceWithRate(hours, daily float64) float64 {
	if !valid(hours) || !valid(daily) {
		return 0
	}

	switch {
	case hours < 6:
		return 0
	case hours < 12:
		return daily / 2
	}

	total := math.Floor(hours/24) * daily

	remainder := math.Mod(hours, 24)
	switch {
	case remainder >= 12:
		total += daily
	case remainder >= 6:
		total += daily / 2
	}

	return total
}

// DistanceAllowance applies the default per-kilometre rate.
func DistanceAllowance(km float64) float64 {
	return DistanceAllowanceWithRate(km, DefaultRatePerKm)
}

func DistanceAllowanceWithRate(km, rate float64) float64 {
	if !valid(km) || !valid(rate) {
		return 0
	}

	return math.Max(0, km*rate)
}

func valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// RoundCents rounds an amount to two decimals.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
