package ai

import (
	"fmt"
	"strings"

	"github.com/nyashahama/roi-audit-backend/internal/roi"
	"github.com/nyashahama/roi-audit-backend/internal/typeform"
)

const (
	strategyDesc       = "A catchy, specific title for the automation solution (max 6 words)"
	implementationDesc = "A 2-3 sentence description of exactly what we'll build and how it solves their problem. Be specific about the technology (AI chatbot, agentic workflow, integration, etc.)"
	savingsDesc        = "A realistic estimate of time and money saved, based on the numbers provided. Format: 'X hours/week saved, approximately £Y/month'"
)

// recommendationSchema is the JSON Schema every provider is asked to honour.
// Gemini wants upper-case type names, so it builds its own copy from the same
// descriptions.
func recommendationSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"strategy":       map[string]any{"type": "string", "description": strategyDesc},
			"implementation": map[string]any{"type": "string", "description": implementationDesc},
			"savings":        map[string]any{"type": "string", "description": savingsDesc},
		},
		"required":             []string{"strategy", "implementation", "savings"},
		"additionalProperties": false,
	}
}

// BuildPrompt renders the consultant brief for one submission.
func BuildPrompt(in typeform.AuditInput, m roi.Metrics) string {
	var sb strings.Builder

	sb.WriteString(`You are a senior AI Automation Consultant for "Nukode", an agency specializing in AI chatbots and agentic workflows.` + "\n\n")

	sb.WriteString("## Client Information\n")
	fmt.Fprintf(&sb, "- **Company**: %s\n", in.CompanyName)
	fmt.Fprintf(&sb, "- **Industry**: %s\n", orDefault(in.Industry, "Not specified"))
	fmt.Fprintf(&sb, "- **Company Size**: %s\n", orDefault(in.CompanySize, "Not specified"))
	fmt.Fprintf(&sb, "- **Annual Revenue**: %s\n\n", orDefault(in.AnnualRevenue, "Not disclosed"))

	sb.WriteString("## Current Pain Points\n")
	fmt.Fprintf(&sb, "- **Primary Challenges**: %s\n", joinOr(in.PrimaryChallenges, "Not specified"))
	fmt.Fprintf(&sb, "- **Time-Consuming Processes**: %s\n\n", joinOr(in.TimeConsumingProcesses, "Not specified"))

	sb.WriteString("## Manual Work Analysis\n")
	fmt.Fprintf(&sb, "- **Hours per week on manual tasks**: %s hours\n", roi.FormatHours(in.HoursPerWeekOnManualTasks))
	fmt.Fprintf(&sb, "- **Employees on repetitive tasks**: %d people\n", roi.EffectiveEmployees(in.EmployeesOnRepetitiveTasks))
	fmt.Fprintf(&sb, "- **Hourly labor cost**: %s\n", orDefault(in.HourlyCostPerEmployee, "Not specified"))
	fmt.Fprintf(&sb, "- **Current monthly cost of manual work**: %s\n", roi.FormatGBP(m.MonthlyLaborCost))
	fmt.Fprintf(&sb, "- **Annual cost**: %s\n\n", roi.FormatGBP(m.AnnualLaborCost))

	sb.WriteString("## Their Goals\n")
	fmt.Fprintf(&sb, "- **Desired Outcomes**: %s\n", joinOr(in.DesiredOutcomes, "Not specified"))
	fmt.Fprintf(&sb, "- **Expected ROI Timeline**: %s\n", orDefault(in.ExpectedROITimeline, "Not specified"))
	fmt.Fprintf(&sb, "- **Implementation Budget**: %s\n\n", orDefault(in.ImplementationBudget, "Not specified"))

	sb.WriteString("## Current Tech Stack\n")
	sb.WriteString(joinOr(in.CurrentTechStack, "Limited tech stack"))
	sb.WriteString("\n\n---\n\n")

	sb.WriteString(`Based on this information, propose ONE specific, pragmatic, high-ROI AI automation solution that addresses their biggest pain points.

We do not sell gimmicks; we sell measurable returns. Focus on:
1. A solution that can realistically deliver 30-50% time savings
2. Something that integrates with their existing tech stack if possible
3. A quick win that can show ROI within their expected timeline

Return your response as JSON with this exact schema:
{
  "strategy": "` + strategyDesc + `",
  "implementation": "` + implementationDesc + `",
  "savings": "` + savingsDesc + `"
}
`)
	return sb.String()
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func joinOr(items []string, def string) string {
	if len(items) == 0 {
		return def
	}
	return strings.Join(items, ", ")
}
