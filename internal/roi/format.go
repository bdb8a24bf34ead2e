package roi

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var gbPrinter = message.NewPrinter(language.BritishEnglish)

// FormatGBP renders amount as whole pounds with en-GB digit grouping, e.g.
// 12990 → "£12,990". Pence are rounded half away from zero.
func FormatGBP(amount float64) string {
	pounds := decimal.NewFromFloat(amount).Round(0).IntPart()
	if pounds < 0 {
		return "-£" + gbPrinter.Sprintf("%d", -pounds)
	}
	return "£" + gbPrinter.Sprintf("%d", pounds)
}

// FormatHours renders an hour count without trailing zeros.
func FormatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}

// Summary is a one-paragraph plain-English reading of m.
func Summary(m Metrics) string {
	return fmt.Sprintf(
		"Based on %s hours/week of manual work at %s/hour, you're spending approximately %s/month on repetitive tasks. "+
			"With AI automation, you could save %s to %s annually.",
		FormatHours(m.TotalWeeklyHours),
		FormatGBP(m.HourlyRate),
		FormatGBP(m.MonthlyLaborCost),
		FormatGBP(m.PotentialSavings30Percent),
		FormatGBP(m.PotentialSavings50Percent),
	)
}
