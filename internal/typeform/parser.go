package typeform

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// AuditInput is one normalised audit form submission.
type AuditInput struct {
	CompanyName   string
	Industry      string
	CompanySize   string
	AnnualRevenue string

	PrimaryChallenges          []string
	TimeConsumingProcesses     []string
	HoursPerWeekOnManualTasks  float64
	EmployeesOnRepetitiveTasks int
	HourlyCostPerEmployee      string
	MonthlyOperatingCosts      string
	CurrentTechStack           []string

	DesiredOutcomes      []string
	ExpectedROITimeline  string
	ImplementationBudget string

	Email             string
	Phone             string
	BestTimeToContact string
}

// ─── FIELD TABLE ──────────────────────────────────────────────────────────────

// binding ties an AuditInput field to the coercion applied to its answer.
type binding struct {
	name   string
	assign func(in *AuditInput, v any)
}

func asString(name string, field func(*AuditInput) *string) binding {
	return binding{name: name, assign: func(in *AuditInput, v any) {
		*field(in) = stringify(v)
	}}
}

func asStringList(name string, field func(*AuditInput) *[]string) binding {
	return binding{name: name, assign: func(in *AuditInput, v any) {
		*field(in) = stringList(v)
	}}
}

func asInt(name string, field func(*AuditInput) *int) binding {
	return binding{name: name, assign: func(in *AuditInput, v any) {
		*field(in) = int(toNumber(v, true))
	}}
}

func asNumber(name string, field func(*AuditInput) *float64) binding {
	return binding{name: name, assign: func(in *AuditInput, v any) {
		*field(in) = toNumber(v, false)
	}}
}

// fieldTable maps a question ref in the audit form to its AuditInput field.
var fieldTable = map[string]binding{
	"company_name":               asString("companyName", func(in *AuditInput) *string { return &in.CompanyName }),
	"industry":                   asString("industry", func(in *AuditInput) *string { return &in.Industry }),
	"company_size":               asString("companySize", func(in *AuditInput) *string { return &in.CompanySize }),
	"annual_revenue":             asString("annualRevenue", func(in *AuditInput) *string { return &in.AnnualRevenue }),
	"primary_challenge":          asStringList("primaryChallenges", func(in *AuditInput) *[]string { return &in.PrimaryChallenges }),
	"time_consuming_processes":   asStringList("timeConsumingProcesses", func(in *AuditInput) *[]string { return &in.TimeConsumingProcesses }),
	"hours_per_week_manual":      asNumber("hoursPerWeekOnManualTasks", func(in *AuditInput) *float64 { return &in.HoursPerWeekOnManualTasks }),
	"employees_repetitive_tasks": asInt("employeesOnRepetitiveTasks", func(in *AuditInput) *int { return &in.EmployeesOnRepetitiveTasks }),
	"hourly_cost_employee":       asString("hourlyCostPerEmployee", func(in *AuditInput) *string { return &in.HourlyCostPerEmployee }),
	"monthly_operating_costs":    asString("monthlyOperatingCosts", func(in *AuditInput) *string { return &in.MonthlyOperatingCosts }),
	"current_tech_stack":         asStringList("currentTechStack", func(in *AuditInput) *[]string { return &in.CurrentTechStack }),
	"desired_outcomes":           asStringList("desiredOutcomes", func(in *AuditInput) *[]string { return &in.DesiredOutcomes }),
	"expected_roi_timeline":      asString("expectedROITimeline", func(in *AuditInput) *string { return &in.ExpectedROITimeline }),
	"implementation_budget":      asString("implementationBudget", func(in *AuditInput) *string { return &in.ImplementationBudget }),
	"email":                      asString("email", func(in *AuditInput) *string { return &in.Email }),
	"phone":                      asString("phone", func(in *AuditInput) *string { return &in.Phone }),
	"best_time_contact":          asString("bestTimeToContact", func(in *AuditInput) *string { return &in.BestTimeToContact }),
}

// ─── PARSER ───────────────────────────────────────────────────────────────────

// Parser turns a Payload into an AuditInput. It is stateless and safe for
// concurrent use.
type Parser struct {
	logger *slog.Logger
}

// NewParser returns a Parser that reports skipped answers to logger.
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// Parse maps every known answer onto an AuditInput. Unknown refs and answer
// types are skipped; only a missing email or company name fails the parse.
func (p *Parser) Parse(payload Payload) (AuditInput, error) {
	var in AuditInput

	for _, answer := range payload.FormResponse.Answers {
		ref := answer.Field.Ref
		b, ok := fieldTable[ref]
		if !ok {
			p.logger.Debug("typeform: skipping unknown field ref", "ref", ref, "type", answer.Type)
			continue
		}

		v, ok := answerValue(answer)
		if !ok {
			p.logger.Warn("typeform: skipping answer with unsupported type",
				"ref", ref,
				"type", answer.Type,
			)
			continue
		}
		b.assign(&in, v)
	}

	if strings.TrimSpace(in.Email) == "" {
		return AuditInput{}, &ValidationError{Field: "email", Reason: "missing required field"}
	}
	if strings.TrimSpace(in.CompanyName) == "" {
		return AuditInput{}, &ValidationError{Field: "companyName", Reason: "missing required field"}
	}
	return in, nil
}

// answerValue extracts the raw value of an answer by its type tag. The result
// is always a string, a float64, or a []string.
func answerValue(a Answer) (any, bool) {
	switch a.Type {
	case "text":
		return a.Text, true
	case "email":
		return a.Email, true
	case "phone_number":
		return a.PhoneNumber, true
	case "number":
		if a.Number == nil {
			return float64(0), true
		}
		return *a.Number, true
	case "choice":
		if a.Choice == nil {
			return "", true
		}
		return a.Choice.Label, true
	case "choices":
		if a.Choices == nil {
			return []string{}, true
		}
		return a.Choices.Labels, true
	case "boolean":
		if a.Boolean == nil {
			return "", true
		}
		return strconv.FormatBool(*a.Boolean), true
	case "date":
		return a.Date, true
	case "url":
		return a.URL, true
	default:
		return nil, false
	}
}

// ─── COERCIONS ────────────────────────────────────────────────────────────────

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []string:
		return strings.Join(x, ",")
	default:
		return ""
	}
}

// stringList keeps lists as-is and wraps a non-empty scalar.
func stringList(v any) []string {
	switch x := v.(type) {
	case []string:
		return append([]string(nil), x...)
	default:
		s := stringify(v)
		if s == "" {
			return nil
		}
		return []string{s}
	}
}

// toNumber keeps numeric answers and parses the leading number of anything
// else, defaulting to 0. With integer set, fractional parts are dropped.
func toNumber(v any, integer bool) float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	default:
		f = leadingNumber(stringify(v), integer)
	}
	if integer {
		// Integer answers land in a 32-bit column; saturate instead of wrapping.
		f = math.Max(math.MinInt32, math.Min(math.MaxInt32, f))
		return float64(int64(f))
	}
	return f
}

// leadingNumber parses the longest numeric prefix of s after leading spaces,
// so "12 hours" yields 12 and "abc" yields 0.
func leadingNumber(s string, integer bool) float64 {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := 0
	seenDigit, seenDot := false, false
scan:
	for i, r := range s {
		switch {
		case (r == '-' || r == '+') && i == 0:
		case r >= '0' && r <= '9':
			seenDigit = true
		case r == '.' && !integer && !seenDot:
			seenDot = true
		default:
			break scan
		}
		end = i + 1
	}
	if !seenDigit {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(s[:end], "."), 64)
	if err != nil {
		return 0
	}
	return f
}
