// Package roi turns the workload figures of an audit submission into labour
// cost and savings estimates. It is pure and has no dependencies on the rest
// of the service so the pipeline and auditctl can share it.
package roi

import (
	"regexp"
	"strconv"

	"github.com/shopspring/decimal"
)

// ─── CONSTANTS ────────────────────────────────────────────────────────────────

const (
	// DefaultHourlyRate applies when the hourly cost bucket is empty or
	// unrecognised.
	DefaultHourlyRate = 30

	weeksPerMonth = "4.33"
	weeksPerYear  = 52
)

var (
	rangePattern  = regexp.MustCompile(`£(\d+)\s*[-–]\s*£(\d+)`)
	plusPattern   = regexp.MustCompile(`£(\d+)\+`)
	singlePattern = regexp.MustCompile(`£(\d+)`)

	monthFactor = decimal.RequireFromString(weeksPerMonth)
	yearFactor  = decimal.NewFromInt(weeksPerYear)
	low         = decimal.RequireFromString("0.3")
	high        = decimal.RequireFromString("0.5")
	plusUplift  = decimal.RequireFromString("1.2")
)

// ─── TYPES ────────────────────────────────────────────────────────────────────

// Input is the subset of an audit submission the calculator needs.
type Input struct {
	HoursPerWeek float64 // manual hours per employee per week
	Employees    int     // employees doing the work; 0 or less counts as 1
	HourlyCost   string  // bucket label such as "£20-£40" or "£100+"
}

// Metrics is the derived cost picture. Money values are rounded to 2 decimal
// places, half away from zero.
type Metrics struct {
	HourlyRate                float64 `json:"hourlyRate"`
	TotalWeeklyHours          float64 `json:"totalWeeklyHours"`
	WeeklyLaborCost           float64 `json:"weeklyLaborCost"`
	MonthlyLaborCost          float64 `json:"monthlyLaborCost"`
	AnnualLaborCost           float64 `json:"annualLaborCost"`
	PotentialSavings30Percent float64 `json:"potentialSavings30Percent"`
	PotentialSavings50Percent float64 `json:"potentialSavings50Percent"`
}

// ─── CORE FUNCTIONS ───────────────────────────────────────────────────────────

// Compute derives Metrics from in. It never fails.
//
// Monthly and annual costs are taken from the rounded weekly cost so that
// round(weekly × 4.33) and round(weekly × 52) hold exactly for the stored
// values. Savings tiers derive from the rounded annual cost.
func Compute(in Input) Metrics {
	rate := HourlyRateDecimal(in.HourlyCost)

	hours := decimal.NewFromFloat(in.HoursPerWeek)
	if hours.IsNegative() {
		hours = decimal.Zero
	}
	employees := int64(EffectiveEmployees(in.Employees))

	totalHours := hours.Mul(decimal.NewFromInt(employees))
	weekly := round2(rate.Mul(totalHours))
	monthly := round2(weekly.Mul(monthFactor))
	annual := round2(weekly.Mul(yearFactor))

	return Metrics{
		HourlyRate:                rate.InexactFloat64(),
		TotalWeeklyHours:          totalHours.InexactFloat64(),
		WeeklyLaborCost:           weekly.InexactFloat64(),
		MonthlyLaborCost:          monthly.InexactFloat64(),
		AnnualLaborCost:           annual.InexactFloat64(),
		PotentialSavings30Percent: round2(annual.Mul(low)).InexactFloat64(),
		PotentialSavings50Percent: round2(annual.Mul(high)).InexactFloat64(),
	}
}

// HourlyRate resolves an hourly cost bucket label to a rate:
//
//	"£A-£B" or "£A–£B" → (A+B)/2
//	"£A+"              → A × 1.2
//	"£A"               → A
//	anything else      → 30
func HourlyRate(bucket string) float64 {
	return HourlyRateDecimal(bucket).InexactFloat64()
}

// EffectiveEmployees is the head count the calculator works with: an absent
// or non-positive answer counts as one person.
func EffectiveEmployees(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

// HourlyRateDecimal is HourlyRate without the float conversion.
func HourlyRateDecimal(bucket string) decimal.Decimal {
	if bucket == "" {
		return decimal.NewFromInt(DefaultHourlyRate)
	}

	if m := rangePattern.FindStringSubmatch(bucket); m != nil {
		a, errA := parseAmount(m[1])
		b, errB := parseAmount(m[2])
		if errA == nil && errB == nil {
			return a.Add(b).Div(decimal.NewFromInt(2))
		}
	}

	if m := plusPattern.FindStringSubmatch(bucket); m != nil {
		if a, err := parseAmount(m[1]); err == nil {
			return a.Mul(plusUplift)
		}
	}

	if m := singlePattern.FindStringSubmatch(bucket); m != nil {
		if a, err := parseAmount(m[1]); err == nil {
			return a
		}
	}

	return decimal.NewFromInt(DefaultHourlyRate)
}

func parseAmount(digits string) (decimal.Decimal, error) {
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromInt(n), nil
}

// round2 rounds half away from zero to 2 decimal places.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
