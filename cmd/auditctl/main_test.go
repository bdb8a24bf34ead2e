package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nyashahama/roi-audit-backend/internal/typeform"
)

// execute runs the root command with args and returns its stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// clearEnv keeps the developer's environment out of command defaults.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"BASE_URL", "TYPEFORM_WEBHOOK_SECRET", "TYPEFORM_API_TOKEN", "TYPEFORM_FORM_ID"} {
		t.Setenv(k, "")
	}
}

func TestCalc_Text(t *testing.T) {
	out, err := execute(t, "calc", "--hours", "25", "--employees", "4", "--rate", "£20-£40")
	if err != nil {
		t.Fatalf("calc: %v", err)
	}
	for _, want := range []string{"£30", "£3,000", "£12,990", "£156,000", "£46,800", "£78,000", "100 hours/week"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCalc_JSON(t *testing.T) {
	out, err := execute(t, "calc", "--hours", "10", "--rate", "£100+", "--json")
	if err != nil {
		t.Fatalf("calc: %v", err)
	}
	var m struct {
		HourlyRate      float64 `json:"hourlyRate"`
		WeeklyLaborCost float64 `json:"weeklyLaborCost"`
	}
	if err := json.Unmarshal([]byte(out), &m); err != nil {
		t.Fatalf("decode: %v (%s)", err, out)
	}
	if m.HourlyRate != 120 || m.WeeklyLaborCost != 1200 {
		t.Errorf("metrics = %+v, want rate 120 weekly 1200", m)
	}
}

func TestSample_FreshTokens(t *testing.T) {
	tokenOf := func(out string) string {
		var p typeform.Payload
		if err := json.Unmarshal([]byte(out), &p); err != nil {
			t.Fatalf("decode sample: %v", err)
		}
		return p.FormResponse.Token
	}

	a, err := execute(t, "sample")
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	b, err := execute(t, "sample")
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if tokenOf(a) == "" || tokenOf(a) == tokenOf(b) {
		t.Errorf("tokens %q and %q should be distinct and non-empty", tokenOf(a), tokenOf(b))
	}

	fixed, err := execute(t, "sample", "--token", "tok_fixed")
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if got := tokenOf(fixed); got != "tok_fixed" {
		t.Errorf("token = %q, want tok_fixed", got)
	}
}

func TestSend_SignsBody(t *testing.T) {
	clearEnv(t)
	verifier := &typeform.Verifier{Secret: "whsec_cli"}

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		if err := verifier.Verify(body, r.Header.Get(typeform.SignatureHeader)); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"submissionId":"abc"}`))
	}))
	defer srv.Close()

	t.Setenv("BASE_URL", srv.URL)
	t.Setenv("TYPEFORM_WEBHOOK_SECRET", "whsec_cli")

	out, err := execute(t, "send")
	if err != nil {
		t.Fatalf("send: %v (%s)", err, out)
	}
	if gotPath != "/api/webhooks/typeform" {
		t.Errorf("path = %q", gotPath)
	}
	if !strings.Contains(out, "200") || !strings.Contains(out, `"submissionId":"abc"`) {
		t.Errorf("output = %q", out)
	}

	if _, err := execute(t, "send", "--url", srv.URL+"/x", "--secret", "wrong"); err == nil {
		t.Error("expected an error for a 401 response")
	}
}

func TestWebhookList(t *testing.T) {
	clearEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tfp_token" || r.URL.Path != "/forms/form123/webhooks" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`{"items":[{"tag":"roi-audit","url":"https://api.example/api/webhooks/typeform","enabled":true,"verify_ssl":true}]}`))
	}))
	defer srv.Close()

	t.Setenv("TYPEFORM_API_TOKEN", "tfp_token")
	t.Setenv("TYPEFORM_FORM_ID", "form123")

	out, err := execute(t, "webhook", "list", "--api-url", srv.URL)
	if err != nil {
		t.Fatalf("webhook list: %v", err)
	}
	if !strings.Contains(out, "roi-audit") || !strings.Contains(out, "https://api.example/api/webhooks/typeform") {
		t.Errorf("output = %q", out)
	}
}

func TestWebhookList_MissingToken(t *testing.T) {
	clearEnv(t)
	_, err := execute(t, "webhook", "list")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "TYPEFORM_API_TOKEN") || !strings.Contains(err.Error(), "TYPEFORM_FORM_ID") {
		t.Errorf("error = %v", err)
	}
}
