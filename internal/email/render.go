package email

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/nyashahama/roi-audit-backend/internal/roi"
)

// DefaultCTAURL is the booking link used when Config.CTAURL is empty.
const DefaultCTAURL = "https://nukode.co.uk/book-call"

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	textTmpl = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/audit_results.txt.tmpl"))
	htmlTmpl = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/audit_results.html.tmpl"))
)

// Subject is the subject line of the rendered (non-template) email.
func Subject(companyName string) string {
	return fmt.Sprintf("Your AI Automation Audit Results - %s", companyName)
}

// TemplateData builds the named variables shared by the SendGrid dynamic
// template and the local text/HTML templates.
func TemplateData(p AuditResultsParams, ctaURL string) map[string]any {
	if ctaURL == "" {
		ctaURL = DefaultCTAURL
	}
	m := p.Metrics
	return map[string]any{
		"company_name": p.CompanyName,
		"industry":     p.Input.Industry,

		"weekly_hours":    roi.FormatHours(m.TotalWeeklyHours),
		"employees_count": roi.EffectiveEmployees(p.Input.EmployeesOnRepetitiveTasks),
		"hourly_rate":     roi.FormatGBP(m.HourlyRate),
		"weekly_cost":     roi.FormatGBP(m.WeeklyLaborCost),
		"monthly_cost":    roi.FormatGBP(m.MonthlyLaborCost),
		"annual_cost":     roi.FormatGBP(m.AnnualLaborCost),

		"strategy_title":         p.Recommendation.Strategy,
		"implementation_summary": p.Recommendation.Implementation,
		"projected_savings":      p.Recommendation.Savings,

		"savings_low":  roi.FormatGBP(m.PotentialSavings30Percent),
		"savings_high": roi.FormatGBP(m.PotentialSavings50Percent),

		"challenges":       nonNil(p.Input.PrimaryChallenges),
		"desired_outcomes": nonNil(p.Input.DesiredOutcomes),

		"cta_url": ctaURL,
	}
}

// Render produces the subject, plain-text body, and HTML body for p. The HTML
// body escapes every value, including model output.
func Render(p AuditResultsParams, ctaURL string) (subject, text, html string, err error) {
	data := TemplateData(p, ctaURL)

	var tb bytes.Buffer
	if err := textTmpl.Execute(&tb, data); err != nil {
		return "", "", "", fmt.Errorf("email: render text body: %w", err)
	}
	var hb bytes.Buffer
	if err := htmlTmpl.Execute(&hb, data); err != nil {
		return "", "", "", fmt.Errorf("email: render html body: %w", err)
	}
	return Subject(p.CompanyName), tb.String(), hb.String(), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
