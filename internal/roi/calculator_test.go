package roi_test

import (
	"strconv"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/nyashahama/roi-audit-backend/internal/roi"
)

// ─── HourlyRate ───────────────────────────────────────────────────────────────

func TestHourlyRate(t *testing.T) {
	tests := []struct {
		bucket string
		want   float64
	}{
		{"£20-£40", 30},
		{"£20–£40", 30},
		{"£20 - £40", 30},
		{"£15-£20", 17.5},
		{"£100+", 120},
		{"£50", 50},
		{"About £45 an hour", 45},
		{"", 30},
		{"Not sure", 30},
		{"$40", 30},
	}
	for _, tt := range tests {
		t.Run(tt.bucket, func(t *testing.T) {
			if got := roi.HourlyRate(tt.bucket); got != tt.want {
				t.Errorf("HourlyRate(%q) = %v, want %v", tt.bucket, got, tt.want)
			}
		})
	}
}

func TestHourlyRate_RangeMidpointIsExact(t *testing.T) {
	for a := 0; a <= 200; a += 7 {
		for b := a; b <= 250; b += 13 {
			bucket := "£" + strconv.Itoa(a) + "-£" + strconv.Itoa(b)
			want := decimal.NewFromInt(int64(a + b)).Div(decimal.NewFromInt(2))
			if got := roi.HourlyRateDecimal(bucket); !got.Equal(want) {
				t.Fatalf("HourlyRateDecimal(%q) = %s, want %s", bucket, got, want)
			}
		}
	}
}

// ─── Compute ──────────────────────────────────────────────────────────────────

func TestCompute_ScenarioA(t *testing.T) {
	m := roi.Compute(roi.Input{HoursPerWeek: 25, Employees: 4, HourlyCost: "£20-£40"})

	want := roi.Metrics{
		HourlyRate:                30,
		TotalWeeklyHours:          100,
		WeeklyLaborCost:           3000,
		MonthlyLaborCost:          12990,
		AnnualLaborCost:           156000,
		PotentialSavings30Percent: 46800,
		PotentialSavings50Percent: 78000,
	}
	if m != want {
		t.Errorf("got %+v\nwant %+v", m, want)
	}
}

func TestCompute_ZeroHoursMeansZeroMoney(t *testing.T) {
	for _, bucket := range []string{"", "£20-£40", "£100+", "garbage"} {
		for _, employees := range []int{0, 1, 12} {
			m := roi.Compute(roi.Input{HoursPerWeek: 0, Employees: employees, HourlyCost: bucket})
			if m.WeeklyLaborCost != 0 || m.MonthlyLaborCost != 0 || m.AnnualLaborCost != 0 ||
				m.PotentialSavings30Percent != 0 || m.PotentialSavings50Percent != 0 {
				t.Errorf("bucket=%q employees=%d: expected zero money, got %+v", bucket, employees, m)
			}
		}
	}
}

func TestCompute_EmployeesDefaultToOne(t *testing.T) {
	m := roi.Compute(roi.Input{HoursPerWeek: 10, Employees: 0, HourlyCost: "£50"})
	if m.TotalWeeklyHours != 10 {
		t.Errorf("expected 10 total hours, got %v", m.TotalWeeklyHours)
	}
	if m.WeeklyLaborCost != 500 {
		t.Errorf("expected weekly 500, got %v", m.WeeklyLaborCost)
	}
}

func TestEffectiveEmployees(t *testing.T) {
	for in, want := range map[int]int{-3: 1, 0: 1, 1: 1, 7: 7} {
		if got := roi.EffectiveEmployees(in); got != want {
			t.Errorf("EffectiveEmployees(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestCompute_NegativeHoursClampToZero(t *testing.T) {
	m := roi.Compute(roi.Input{HoursPerWeek: -5, Employees: 2})
	if m.WeeklyLaborCost != 0 {
		t.Errorf("expected 0, got %v", m.WeeklyLaborCost)
	}
}

func TestCompute_RoundingInvariants(t *testing.T) {
	buckets := []string{"£15-£20", "£20-£40", "£100+", "£33", "", "£7–£12"}
	hours := []float64{0.5, 1, 3.3, 7.25, 12.5, 19.9, 37.75, 40}

	for _, bucket := range buckets {
		for _, h := range hours {
			for employees := 1; employees <= 9; employees += 2 {
				m := roi.Compute(roi.Input{HoursPerWeek: h, Employees: employees, HourlyCost: bucket})

				weekly := decimal.NewFromFloat(m.WeeklyLaborCost)
				wantMonthly := weekly.Mul(decimal.RequireFromString("4.33")).Round(2)
				wantAnnual := weekly.Mul(decimal.NewFromInt(52)).Round(2)

				if !decimal.NewFromFloat(m.MonthlyLaborCost).Equal(wantMonthly) {
					t.Errorf("%q h=%v e=%d: monthly %v != round(weekly×4.33) %s", bucket, h, employees, m.MonthlyLaborCost, wantMonthly)
				}
				if !decimal.NewFromFloat(m.AnnualLaborCost).Equal(wantAnnual) {
					t.Errorf("%q h=%v e=%d: annual %v != round(weekly×52) %s", bucket, h, employees, m.AnnualLaborCost, wantAnnual)
				}
				if !decimal.NewFromFloat(m.WeeklyLaborCost).Equal(decimal.NewFromFloat(m.WeeklyLaborCost).Round(2)) {
					t.Errorf("%q h=%v e=%d: weekly %v has more than 2 decimals", bucket, h, employees, m.WeeklyLaborCost)
				}
			}
		}
	}
}

func TestCompute_RoundsHalfAwayFromZero(t *testing.T) {
	// weekly 0.50; 0.50 × 4.33 = 2.165, which rounds up to 2.17.
	m := roi.Compute(roi.Input{HoursPerWeek: 0.01, Employees: 1, HourlyCost: "£50"})
	if m.WeeklyLaborCost != 0.5 {
		t.Errorf("weekly: got %v, want 0.5", m.WeeklyLaborCost)
	}
	if m.MonthlyLaborCost != 2.17 {
		t.Errorf("monthly: got %v, want 2.17", m.MonthlyLaborCost)
	}
	if m.AnnualLaborCost != 26 {
		t.Errorf("annual: got %v, want 26", m.AnnualLaborCost)
	}
	if m.PotentialSavings30Percent != 7.8 || m.PotentialSavings50Percent != 13 {
		t.Errorf("savings: got %v / %v", m.PotentialSavings30Percent, m.PotentialSavings50Percent)
	}
}

// ─── Formatting ───────────────────────────────────────────────────────────────

func TestFormatGBP(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "£0"},
		{30, "£30"},
		{12990, "£12,990"},
		{156000, "£156,000"},
		{1234567.5, "£1,234,568"},
		{46800.49, "£46,800"},
		{-2.5, "-£3"},
	}
	for _, tt := range tests {
		if got := roi.FormatGBP(tt.in); got != tt.want {
			t.Errorf("FormatGBP(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSummary_ScenarioA(t *testing.T) {
	m := roi.Compute(roi.Input{HoursPerWeek: 25, Employees: 4, HourlyCost: "£20-£40"})

	want := "Based on 100 hours/week of manual work at £30/hour, you're spending approximately £12,990/month on repetitive tasks. " +
		"With AI automation, you could save £46,800 to £78,000 annually."
	if got := roi.Summary(m); got != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
}

