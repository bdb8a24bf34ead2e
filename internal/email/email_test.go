package email_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/nyashahama/roi-audit-backend/internal/ai"
	"github.com/nyashahama/roi-audit-backend/internal/email"
	"github.com/nyashahama/roi-audit-backend/internal/roi"
	"github.com/nyashahama/roi-audit-backend/internal/typeform"
)

var cfg = email.Config{
	FromAddr: "phil@nukode.co.uk",
	FromName: "Phil Shields",
	CTAURL:   "https://nukode.co.uk/book-call",
}

func sampleParams() email.AuditResultsParams {
	return email.AuditResultsParams{
		To:          "ops@acme.example",
		CompanyName: "Acme Logistics Ltd",
		Input: typeform.AuditInput{
			CompanyName:                "Acme Logistics Ltd",
			Industry:                   "Logistics",
			EmployeesOnRepetitiveTasks: 4,
			PrimaryChallenges:          []string{"Manual data entry"},
			DesiredOutcomes:            []string{"Reduce costs"},
		},
		Metrics: roi.Compute(roi.Input{HoursPerWeek: 25, Employees: 4, HourlyCost: "£20-£40"}),
		Recommendation: ai.Recommendation{
			Strategy:       "Invoice Capture <Agent>",
			Implementation: "An agent reads invoices and posts them to Xero.",
			Savings:        "40 hours/week saved, approximately £5,000/month",
		},
	}
}

// ─── Rendering ────────────────────────────────────────────────────────────────

func TestTemplateData_Keys(t *testing.T) {
	data := email.TemplateData(sampleParams(), "")

	want := []string{
		"annual_cost", "challenges", "company_name", "cta_url", "desired_outcomes",
		"employees_count", "hourly_rate", "implementation_summary", "industry",
		"monthly_cost", "projected_savings", "savings_high", "savings_low",
		"strategy_title", "weekly_cost", "weekly_hours",
	}
	var got []string
	for k := range data {
		got = append(got, k)
	}
	sort.Strings(got)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("keys:\n got %v\nwant %v", got, want)
	}

	if data["monthly_cost"] != "£12,990" || data["savings_high"] != "£78,000" {
		t.Errorf("unexpected money formatting: %v / %v", data["monthly_cost"], data["savings_high"])
	}
	if data["weekly_hours"] != "100" {
		t.Errorf("weekly_hours: got %v", data["weekly_hours"])
	}
	if data["cta_url"] != email.DefaultCTAURL {
		t.Errorf("expected default CTA, got %v", data["cta_url"])
	}
}

func TestRender(t *testing.T) {
	subject, text, html, err := email.Render(sampleParams(), cfg.CTAURL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if subject != "Your AI Automation Audit Results - Acme Logistics Ltd" {
		t.Errorf("subject: got %q", subject)
	}
	for _, want := range []string{"CURRENT STATE", "OUR RECOMMENDATION: Invoice Capture <Agent>", "PROJECTED SAVINGS", "NEXT STEPS", "£12,990", "between £46,800 and £78,000"} {
		if !strings.Contains(text, want) {
			t.Errorf("text body missing %q", want)
		}
	}
	if strings.Contains(html, "<Agent>") {
		t.Error("html body must escape model output")
	}
	if !strings.Contains(html, "Invoice Capture &lt;Agent&gt;") {
		t.Error("html body missing escaped strategy title")
	}
	if !strings.Contains(html, "Manual data entry") {
		t.Error("html body missing challenges")
	}
}

func TestRender_TextAndHTMLCarrySameFields(t *testing.T) {
	_, text, html, err := email.Render(sampleParams(), cfg.CTAURL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"Acme Logistics Ltd",
		"100 hours",
		"Manual data entry",
		"Reduce costs",
		"£12,990",
		"£156,000",
		"£46,800",
		"£78,000",
		"An agent reads invoices and posts them to Xero.",
		"40 hours/week saved",
		cfg.CTAURL,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("text body missing %q", want)
		}
		if !strings.Contains(html, want) {
			t.Errorf("html body missing %q", want)
		}
	}
	if !strings.Contains(text, "Employees on repetitive work: 4") {
		t.Error("text body missing employee count")
	}
	if !strings.Contains(html, `<div class="metric-value">4</div>`) {
		t.Error("html body missing employee count")
	}
}

func TestRender_AbsentEmployeeCountShowsOne(t *testing.T) {
	p := sampleParams()
	p.Input.EmployeesOnRepetitiveTasks = 0
	p.Metrics = roi.Compute(roi.Input{HoursPerWeek: 25, HourlyCost: "£20-£40"})

	if got := email.TemplateData(p, "")["employees_count"]; got != 1 {
		t.Errorf("employees_count = %v, want 1 to match the metrics", got)
	}
	_, text, html, err := email.Render(p, cfg.CTAURL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "Employees on repetitive work: 1") {
		t.Error("text body should show the effective count")
	}
	if !strings.Contains(html, `<div class="metric-value">1</div>`) {
		t.Error("html body should show the effective count")
	}
}

// ─── SendGrid ─────────────────────────────────────────────────────────────────

type capturedRequest struct {
	auth string
	body map[string]any
}

func sendgridServer(t *testing.T, status int, messageID string, got *capturedRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/mail/send" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		got.auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got.body)
		if messageID != "" {
			w.Header().Set("X-Message-Id", messageID)
		}
		w.WriteHeader(status)
		if status >= 300 {
			_, _ = w.Write([]byte(`{"errors":[{"message":"The from address does not match a verified Sender Identity."}]}`))
		}
	}))
}

func TestSendGrid_RenderedBodies(t *testing.T) {
	var got capturedRequest
	srv := sendgridServer(t, http.StatusAccepted, "msg_123", &got)
	defer srv.Close()

	res := email.NewSendGridClient("SG.key", srv.URL, cfg, 0).SendAuditResults(context.Background(), sampleParams())
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.MessageID != "msg_123" {
		t.Errorf("MessageID: got %q", res.MessageID)
	}
	if got.auth != "Bearer SG.key" {
		t.Errorf("auth header: got %q", got.auth)
	}
	if got.body["subject"] != "Your AI Automation Audit Results - Acme Logistics Ltd" {
		t.Errorf("subject: got %v", got.body["subject"])
	}
	content, _ := got.body["content"].([]any)
	if len(content) != 2 {
		t.Errorf("expected text and html content, got %v", got.body["content"])
	}
	if _, ok := got.body["template_id"]; ok {
		t.Error("template_id should not be sent without a TemplateID")
	}
}

func TestSendGrid_DynamicTemplate(t *testing.T) {
	var got capturedRequest
	srv := sendgridServer(t, http.StatusAccepted, "", &got)
	defer srv.Close()

	tcfg := cfg
	tcfg.TemplateID = "d-abc123"
	res := email.NewSendGridClient("SG.key", srv.URL, tcfg, 0).SendAuditResults(context.Background(), sampleParams())
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.MessageID != email.DefaultMessageID {
		t.Errorf("expected sentinel message id, got %q", res.MessageID)
	}
	if got.body["template_id"] != "d-abc123" {
		t.Errorf("template_id: got %v", got.body["template_id"])
	}
	pers, _ := got.body["personalizations"].([]any)
	if len(pers) != 1 {
		t.Fatalf("expected one personalization, got %v", got.body["personalizations"])
	}
	data, _ := pers[0].(map[string]any)["dynamic_template_data"].(map[string]any)
	if data["strategy_title"] != "Invoice Capture <Agent>" || data["annual_cost"] != "£156,000" {
		t.Errorf("unexpected template data: %v", data)
	}
}

func TestSendGrid_ErrorStatusIsFailedResult(t *testing.T) {
	var got capturedRequest
	srv := sendgridServer(t, http.StatusForbidden, "", &got)
	defer srv.Close()

	res := email.NewSendGridClient("SG.key", srv.URL, cfg, 0).SendAuditResults(context.Background(), sampleParams())
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Error, "403") {
		t.Errorf("expected status in error, got %q", res.Error)
	}
}

// ─── Resend ───────────────────────────────────────────────────────────────────

func TestResend_Success(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/emails" || r.Header.Get("Authorization") != "Bearer re_key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"id":"re_msg_1"}`))
	}))
	defer srv.Close()

	res := email.NewResendClient("re_key", srv.URL, cfg, 0).SendAuditResults(context.Background(), sampleParams())
	if !res.Success || res.MessageID != "re_msg_1" {
		t.Fatalf("unexpected result %+v", res)
	}
	if body["from"] != "Phil Shields <phil@nukode.co.uk>" {
		t.Errorf("from: got %v", body["from"])
	}
	if text, _ := body["text"].(string); !strings.Contains(text, "CURRENT STATE") {
		t.Error("text body not sent")
	}
}

func TestResend_ErrorIsFailedResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"statusCode":422,"name":"validation_error","message":"Invalid to field"}`))
	}))
	defer srv.Close()

	res := email.NewResendClient("re_key", srv.URL, cfg, 0).SendAuditResults(context.Background(), sampleParams())
	if res.Success || !strings.Contains(res.Error, "validation_error") {
		t.Errorf("unexpected result %+v", res)
	}
}

// ─── Unconfigured / Lazy ──────────────────────────────────────────────────────

func TestUnconfigured(t *testing.T) {
	res := email.Unconfigured().SendAuditResults(context.Background(), sampleParams())
	if res.Success || res.Error == "" {
		t.Errorf("unexpected result %+v", res)
	}
}

type stubSender struct{ calls int }

func (s *stubSender) SendAuditResults(context.Context, email.AuditResultsParams) email.Result {
	s.calls++
	return email.Result{Success: true, MessageID: "stub"}
}

func TestNewLazy(t *testing.T) {
	builds := 0
	stub := &stubSender{}
	s := email.NewLazy(func() (email.Sender, error) {
		builds++
		return stub, nil
	})
	for i := 0; i < 2; i++ {
		if res := s.SendAuditResults(context.Background(), sampleParams()); !res.Success {
			t.Fatalf("unexpected result %+v", res)
		}
	}
	if builds != 1 || stub.calls != 2 {
		t.Errorf("builds=%d calls=%d", builds, stub.calls)
	}

	broken := email.NewLazy(func() (email.Sender, error) { return nil, errors.New("no key") })
	if res := broken.SendAuditResults(context.Background(), sampleParams()); res.Success || res.Error != "no key" {
		t.Errorf("unexpected result %+v", res)
	}
}
