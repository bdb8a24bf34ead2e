package ai_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nyashahama/roi-audit-backend/internal/ai"
	"github.com/nyashahama/roi-audit-backend/internal/roi"
	"github.com/nyashahama/roi-audit-backend/internal/typeform"
)

// ─── STUBS ────────────────────────────────────────────────────────────────────

type stubRecommender struct {
	rec   ai.Recommendation
	err   error
	calls int
}

func (s *stubRecommender) Recommend(_ context.Context, _ typeform.AuditInput, _ roi.Metrics) (ai.Recommendation, error) {
	s.calls++
	return s.rec, s.err
}

// discardLogger returns a *slog.Logger that silently drops all log output.
// Use this instead of nil: fallback.go calls f.logger.Warn(), which panics on nil.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var sampleInput = typeform.AuditInput{
	CompanyName:                "Acme Logistics Ltd",
	Industry:                   "Logistics",
	PrimaryChallenges:          []string{"Manual data entry"},
	HoursPerWeekOnManualTasks:  25,
	EmployeesOnRepetitiveTasks: 4,
	HourlyCostPerEmployee:      "£20-£40",
	DesiredOutcomes:            []string{"Reduce costs"},
	Email:                      "ops@acme.example",
}

var sampleMetrics = roi.Compute(roi.Input{HoursPerWeek: 25, Employees: 4, HourlyCost: "£20-£40"})

var goodRec = ai.Recommendation{
	Strategy:       "Invoice Capture Agent",
	Implementation: "An agent reads invoices from the shared inbox and posts them to Xero.",
	Savings:        "40 hours/week saved, approximately £5,000/month",
}

// ─── FallbackRecommender ──────────────────────────────────────────────────────

func TestFallbackRecommender_PrimarySucceeds_SecondaryNotCalled(t *testing.T) {
	primary := &stubRecommender{rec: goodRec}
	secondary := &stubRecommender{rec: ai.Recommendation{Strategy: "secondary"}}

	rec, err := ai.NewFallbackRecommender(primary, secondary, discardLogger()).
		Recommend(context.Background(), sampleInput, sampleMetrics)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != goodRec {
		t.Errorf("expected primary result, got %+v", rec)
	}
	if secondary.calls != 0 {
		t.Errorf("secondary should not be called, got %d calls", secondary.calls)
	}
}

func TestFallbackRecommender_PrimaryFails_SecondaryUsed(t *testing.T) {
	primary := &stubRecommender{err: errors.New("timeout")}
	secondary := &stubRecommender{rec: goodRec}

	rec, err := ai.NewFallbackRecommender(primary, secondary, discardLogger()).
		Recommend(context.Background(), sampleInput, sampleMetrics)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != goodRec {
		t.Errorf("expected secondary result, got %+v", rec)
	}
	if primary.calls != 1 || secondary.calls != 1 {
		t.Errorf("expected one call each, got primary=%d secondary=%d", primary.calls, secondary.calls)
	}
}

func TestFallbackRecommender_NilSecondary_PrimaryErrorBubbles(t *testing.T) {
	primaryErr := errors.New("rate limited")
	primary := &stubRecommender{err: primaryErr}

	_, err := ai.NewFallbackRecommender(primary, nil, discardLogger()).
		Recommend(context.Background(), sampleInput, sampleMetrics)
	if !errors.Is(err, primaryErr) {
		t.Fatalf("expected wrapped primary error, got %v", err)
	}
	var se *ai.ServiceError
	if !errors.As(err, &se) {
		t.Errorf("expected *ServiceError, got %T", err)
	}
}

func TestFallbackRecommender_BothNil_IsUnconfigured(t *testing.T) {
	_, err := ai.NewFallbackRecommender(nil, nil, discardLogger()).
		Recommend(context.Background(), sampleInput, sampleMetrics)
	if !errors.Is(err, ai.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestChain_SkipsNilsAndTriesInOrder(t *testing.T) {
	first := &stubRecommender{err: errors.New("down")}
	second := &stubRecommender{err: errors.New("down too")}
	third := &stubRecommender{rec: goodRec}

	rec, err := ai.Chain(discardLogger(), nil, first, nil, second, third).
		Recommend(context.Background(), sampleInput, sampleMetrics)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != goodRec {
		t.Errorf("got %+v", rec)
	}
	if first.calls != 1 || second.calls != 1 || third.calls != 1 {
		t.Errorf("calls: %d %d %d", first.calls, second.calls, third.calls)
	}
}

func TestChain_Empty(t *testing.T) {
	_, err := ai.Chain(discardLogger()).Recommend(context.Background(), sampleInput, sampleMetrics)
	if !errors.Is(err, ai.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

// ─── Fallback / Lazy ──────────────────────────────────────────────────────────

func TestFallback_ScenarioA(t *testing.T) {
	rec := ai.Fallback(sampleMetrics)

	if rec.Strategy != ai.FallbackStrategy || rec.Implementation != ai.FallbackImplementation {
		t.Errorf("unexpected canned text: %+v", rec)
	}
	if rec.Savings != "Estimated 46800-78000 GBP annually" {
		t.Errorf("got savings %q", rec.Savings)
	}
}

func TestFallback_RoundsToWholePounds(t *testing.T) {
	rec := ai.Fallback(roi.Metrics{PotentialSavings30Percent: 27.5, PotentialSavings50Percent: 45.49})
	if rec.Savings != "Estimated 28-45 GBP annually" {
		t.Errorf("got savings %q", rec.Savings)
	}
}

func TestNewLazy_BuildsOnce(t *testing.T) {
	builds := 0
	stub := &stubRecommender{rec: goodRec}
	r := ai.NewLazy(func() (ai.Recommender, error) {
		builds++
		return stub, nil
	})

	if builds != 0 {
		t.Fatalf("build ran before first use")
	}
	for i := 0; i < 3; i++ {
		if _, err := r.Recommend(context.Background(), sampleInput, sampleMetrics); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if builds != 1 || stub.calls != 3 {
		t.Errorf("builds=%d calls=%d", builds, stub.calls)
	}
}

func TestNewLazy_BuildErrorIsServiceError(t *testing.T) {
	r := ai.NewLazy(func() (ai.Recommender, error) { return nil, errors.New("bad key") })

	_, err := r.Recommend(context.Background(), sampleInput, sampleMetrics)
	var se *ai.ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("expected *ServiceError, got %v", err)
	}
}

// ─── Prompt ───────────────────────────────────────────────────────────────────

func TestBuildPrompt_IncludesContext(t *testing.T) {
	p := ai.BuildPrompt(sampleInput, sampleMetrics)

	for _, want := range []string{
		"Acme Logistics Ltd",
		"Manual data entry",
		"25 hours",
		"4 people",
		"£12,990",
		"£156,000",
		"Reduce costs",
		"Not disclosed",
		"Limited tech stack",
		`"strategy"`,
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildPrompt_AbsentEmployeesMatchMetrics(t *testing.T) {
	in := sampleInput
	in.EmployeesOnRepetitiveTasks = 0
	p := ai.BuildPrompt(in, roi.Compute(roi.Input{HoursPerWeek: 25, HourlyCost: "£20-£40"}))

	if !strings.Contains(p, "1 people") {
		t.Error("prompt should show the effective employee count")
	}
	if strings.Contains(p, "0 people") {
		t.Error("prompt shows the raw zero employee count")
	}
}

// ─── Providers ────────────────────────────────────────────────────────────────

func TestGeminiClient_Success(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-2.5-flash:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "g-key" {
			t.Errorf("missing api key header")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		text, _ := json.Marshal(goodRec)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"parts": []any{map[string]any{"text": string(text)}}},
			}},
		})
	}))
	defer srv.Close()

	rec, err := ai.NewGeminiClient(ai.ProviderConfig{APIKey: "g-key", BaseURL: srv.URL}).
		Recommend(context.Background(), sampleInput, sampleMetrics)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != goodRec {
		t.Errorf("got %+v", rec)
	}
	cfg, _ := got["generationConfig"].(map[string]any)
	if cfg["responseMimeType"] != "application/json" || cfg["responseSchema"] == nil {
		t.Errorf("generationConfig not set: %v", cfg)
	}
}

func TestGeminiClient_IncompleteResponseIsServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"parts": []any{map[string]any{"text": `{"strategy":"x","implementation":"y"}`}}},
			}},
		})
	}))
	defer srv.Close()

	_, err := ai.NewGeminiClient(ai.ProviderConfig{APIKey: "k", BaseURL: srv.URL}).
		Recommend(context.Background(), sampleInput, sampleMetrics)
	var se *ai.ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("expected *ServiceError, got %v", err)
	}
	if !strings.Contains(err.Error(), "savings") {
		t.Errorf("expected missing savings in error, got %v", err)
	}
}

func TestGeminiClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": 403, "message": "API key not valid", "status": "PERMISSION_DENIED"},
		})
	}))
	defer srv.Close()

	_, err := ai.NewGeminiClient(ai.ProviderConfig{APIKey: "bad", BaseURL: srv.URL}).
		Recommend(context.Background(), sampleInput, sampleMetrics)
	if err == nil || !strings.Contains(err.Error(), "PERMISSION_DENIED") {
		t.Errorf("expected API error, got %v", err)
	}
}

func TestGeminiClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := ai.NewGeminiClient(ai.ProviderConfig{APIKey: "k", BaseURL: url}).
		Recommend(context.Background(), sampleInput, sampleMetrics)
	var se *ai.ServiceError
	if !errors.As(err, &se) || se.Provider != "gemini" {
		t.Errorf("expected gemini *ServiceError, got %v", err)
	}
}

func TestAnthropicClient_ForcedToolCall(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Errorf("missing anthropic-version header")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []any{map[string]any{
				"type":  "tool_use",
				"name":  "record_recommendation",
				"input": goodRec,
			}},
			"stop_reason": "tool_use",
		})
	}))
	defer srv.Close()

	rec, err := ai.NewAnthropicClient(ai.ProviderConfig{APIKey: "a-key", BaseURL: srv.URL}).
		Recommend(context.Background(), sampleInput, sampleMetrics)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != goodRec {
		t.Errorf("got %+v", rec)
	}
	choice, _ := got["tool_choice"].(map[string]any)
	if choice["type"] != "tool" || choice["name"] != "record_recommendation" {
		t.Errorf("tool_choice not forced: %v", got["tool_choice"])
	}
}

func TestOpenAIClient_StructuredOutput(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		content, _ := json.Marshal(goodRec)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []any{map[string]any{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": string(content)},
				"finish_reason": "stop",
			}},
		})
	}))
	defer srv.Close()

	rec, err := ai.NewOpenAIClient(ai.ProviderConfig{APIKey: "o-key", BaseURL: srv.URL + "/v1"}).
		Recommend(context.Background(), sampleInput, sampleMetrics)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != goodRec {
		t.Errorf("got %+v", rec)
	}
	format, _ := got["response_format"].(map[string]any)
	if format["type"] != "json_schema" {
		t.Errorf("expected json_schema response_format, got %v", got["response_format"])
	}
}

func TestOpenAIClient_APIErrorIsServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "Incorrect API key provided", "type": "invalid_request_error"},
		})
	}))
	defer srv.Close()

	_, err := ai.NewOpenAIClient(ai.ProviderConfig{APIKey: "bad", BaseURL: srv.URL + "/v1"}).
		Recommend(context.Background(), sampleInput, sampleMetrics)
	var se *ai.ServiceError
	if !errors.As(err, &se) || se.Provider != "openai" {
		t.Errorf("expected openai *ServiceError, got %v", err)
	}
}
