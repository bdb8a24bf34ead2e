package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nyashahama/roi-audit-backend/internal/roi"
)

func calcCmd() *cobra.Command {
	var (
		hours     float64
		employees int
		rate      string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Compute ROI metrics for a set of answers",
		Example: `  auditctl calc --hours 25 --employees 4 --rate "£20-£40"
  auditctl calc --hours 10 --rate "£100+" --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := roi.Compute(roi.Input{
				HoursPerWeek: hours,
				Employees:    employees,
				HourlyCost:   rate,
			})

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(m)
			}

			fmt.Fprintf(out, "Hourly rate:        %s\n", roi.FormatGBP(m.HourlyRate))
			fmt.Fprintf(out, "Total weekly hours: %s\n", roi.FormatHours(m.TotalWeeklyHours))
			fmt.Fprintf(out, "Weekly cost:        %s\n", roi.FormatGBP(m.WeeklyLaborCost))
			fmt.Fprintf(out, "Monthly cost:       %s\n", roi.FormatGBP(m.MonthlyLaborCost))
			fmt.Fprintf(out, "Annual cost:        %s\n", roi.FormatGBP(m.AnnualLaborCost))
			fmt.Fprintf(out, "Savings at 30%%:     %s\n", roi.FormatGBP(m.PotentialSavings30Percent))
			fmt.Fprintf(out, "Savings at 50%%:     %s\n", roi.FormatGBP(m.PotentialSavings50Percent))
			fmt.Fprintln(out)
			fmt.Fprintln(out, roi.Summary(m))
			return nil
		},
	}

	cmd.Flags().Float64Var(&hours, "hours", 0, "Hours per week spent on manual tasks")
	cmd.Flags().IntVar(&employees, "employees", 1, "Employees doing repetitive tasks")
	cmd.Flags().StringVar(&rate, "rate", "", `Hourly cost bucket, e.g. "£20-£40" or "£100+"`)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}
