package main

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nyashahama/roi-audit-backend/internal/typeform"
)

func sampleCmd() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Print a sample Typeform webhook payload",
		Long: `Print a complete audit submission as Typeform would deliver it.
Each run uses a fresh response token unless --token is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := samplePayload(token, true)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(append(b, '\n'))
			return err
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Response token (default: random)")

	return cmd
}

// samplePayload marshals typeform.SamplePayload for token, generating a
// random token when it is empty.
func samplePayload(token string, indent bool) ([]byte, error) {
	if token == "" {
		token = newToken()
	}
	p := typeform.SamplePayload(token, time.Now())
	if indent {
		return json.MarshalIndent(p, "", "  ")
	}
	return json.Marshal(p)
}

func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
