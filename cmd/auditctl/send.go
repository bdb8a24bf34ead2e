package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nyashahama/roi-audit-backend/internal/typeform"
)

func sendCmd() *cobra.Command {
	var (
		url     string
		secret  string
		file    string
		token   string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Sign and POST a webhook payload to a running server",
		Long: `Send a webhook delivery signed the way Typeform signs it.

The body is read from --file ("-" for stdin); without --file a fresh sample
submission is sent. The URL defaults to BASE_URL/api/webhooks/typeform and
the secret to TYPEFORM_WEBHOOK_SECRET. With no secret the delivery is sent
unsigned.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if url == "" {
				url = strings.TrimRight(cfg.BaseURL, "/") + "/api/webhooks/typeform"
			}
			if !cmd.Flags().Changed("secret") {
				secret = cfg.TypeformWebhookSecret
			}

			body, err := readPayload(cmd.InOrStdin(), file, token)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			status, respBody, err := postWebhook(ctx, url, body, secret)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "POST %s → %d\n", url, status)
			fmt.Fprintln(out, strings.TrimSpace(string(respBody)))
			if status >= 300 {
				return fmt.Errorf("auditctl: webhook returned status %d", status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Webhook URL (default: BASE_URL/api/webhooks/typeform)")
	cmd.Flags().StringVar(&secret, "secret", "", "Signing secret (default: TYPEFORM_WEBHOOK_SECRET)")
	cmd.Flags().StringVarP(&file, "file", "f", "", `Payload file, "-" for stdin (default: generated sample)`)
	cmd.Flags().StringVar(&token, "token", "", "Response token for the generated sample (default: random)")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Minute, "Request timeout")

	return cmd
}

func readPayload(stdin io.Reader, file, token string) ([]byte, error) {
	switch file {
	case "":
		return samplePayload(token, false)
	case "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("auditctl: read stdin: %w", err)
		}
		return b, nil
	default:
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("auditctl: read payload: %w", err)
		}
		return b, nil
	}
}

// postWebhook sends body to url with a Typeform-Signature header computed
// from secret, and returns the response status and body.
func postWebhook(ctx context.Context, url string, body []byte, secret string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("auditctl: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(typeform.SignatureHeader, typeform.Sign(body, secret))
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, nil, fmt.Errorf("auditctl: webhook timed out: %w", err)
		}
		return 0, nil, fmt.Errorf("auditctl: post webhook: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("auditctl: read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}
