package typeform

import "time"

// SamplePayload returns a complete audit submission for token. auditctl uses
// it to exercise a deployed webhook, and tests use it as a fixture.
func SamplePayload(token string, submittedAt time.Time) Payload {
	num := func(f float64) *float64 { return &f }
	text := func(ref, v string) Answer {
		return Answer{Field: Field{Ref: ref, Type: "short_text"}, Type: "text", Text: v}
	}
	choice := func(ref, label string) Answer {
		return Answer{Field: Field{Ref: ref, Type: "multiple_choice"}, Type: "choice", Choice: &Choice{Label: label}}
	}
	choices := func(ref string, labels ...string) Answer {
		return Answer{Field: Field{Ref: ref, Type: "multiple_choice"}, Type: "choices", Choices: &Choices{Labels: labels}}
	}

	return Payload{
		EventID:   "evt_" + token,
		EventType: "form_response",
		FormResponse: FormResponse{
			FormID:      "audit",
			Token:       token,
			SubmittedAt: submittedAt.UTC().Format(time.RFC3339),
			Answers: []Answer{
				text("company_name", "Acme Logistics Ltd"),
				choice("industry", "Logistics"),
				choice("company_size", "11-50"),
				choice("annual_revenue", "£1M-£5M"),
				choices("primary_challenge", "Manual data entry", "Slow reporting"),
				choices("time_consuming_processes", "Invoice processing", "Order tracking"),
				{Field: Field{Ref: "hours_per_week_manual", Type: "number"}, Type: "number", Number: num(25)},
				{Field: Field{Ref: "employees_repetitive_tasks", Type: "number"}, Type: "number", Number: num(4)},
				choice("hourly_cost_employee", "£20-£40"),
				choice("monthly_operating_costs", "£10k-£50k"),
				choices("current_tech_stack", "Excel", "Xero"),
				choices("desired_outcomes", "Reduce costs", "Faster turnaround"),
				choice("expected_roi_timeline", "3-6 months"),
				choice("implementation_budget", "£5k-£15k"),
				{Field: Field{Ref: "email", Type: "email"}, Type: "email", Email: "ops@acme.example"},
				{Field: Field{Ref: "phone", Type: "phone_number"}, Type: "phone_number", PhoneNumber: "+447700900123"},
				choice("best_time_contact", "Morning"),
			},
		},
	}
}
