// Command auditctl is the operator tool for the audit backend: it runs the
// ROI calculator offline, produces and sends signed sample webhooks, and
// manages the Typeform webhook registration.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nyashahama/roi-audit-backend/internal/config"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "auditctl",
		Short:         "Operator tool for the AI automation audit backend",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(calcCmd())
	rootCmd.AddCommand(sampleCmd())
	rootCmd.AddCommand(sendCmd())
	rootCmd.AddCommand(webhookCmd())

	return rootCmd
}

// loadConfig reads the environment (and .env) without the server's
// validation; each command checks the values it needs.
func loadConfig() (*config.Config, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("auditctl: %w", err)
	}
	return cfg, nil
}
