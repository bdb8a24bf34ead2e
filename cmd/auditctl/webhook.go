package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nyashahama/roi-audit-backend/internal/typeform"
)

// webhookOpts are shared by the webhook subcommands.
type webhookOpts struct {
	formID string
	apiURL string
}

func webhookCmd() *cobra.Command {
	opts := &webhookOpts{}

	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Manage the Typeform webhook registration",
		Long: `List and register webhooks on the audit form through the Typeform API.
Requires TYPEFORM_API_TOKEN; the form defaults to TYPEFORM_FORM_ID.`,
	}

	cmd.PersistentFlags().StringVar(&opts.formID, "form", "", "Typeform form id (default: TYPEFORM_FORM_ID)")
	cmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "Typeform API base URL (default: public API)")

	cmd.AddCommand(webhookListCmd(opts))
	cmd.AddCommand(webhookRegisterCmd(opts))

	return cmd
}

// client resolves defaults from the environment and returns an admin client.
func (o *webhookOpts) client() (*typeform.AdminClient, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if o.formID == "" {
		o.formID = cfg.TypeformFormID
	}

	var errs []error
	if cfg.TypeformAPIToken == "" {
		errs = append(errs, errors.New("TYPEFORM_API_TOKEN is not set"))
	}
	if o.formID == "" {
		errs = append(errs, errors.New("no form id: pass --form or set TYPEFORM_FORM_ID"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("auditctl: %w", err)
	}
	return typeform.NewAdminClient(cfg.TypeformAPIToken, o.apiURL), nil
}

func webhookListCmd(opts *webhookOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List webhooks registered on the form",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			hooks, err := client.ListWebhooks(cmd.Context(), opts.formID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(hooks) == 0 {
				fmt.Fprintf(out, "No webhooks on form %s\n", opts.formID)
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TAG\tENABLED\tVERIFY SSL\tURL")
			for _, h := range hooks {
				fmt.Fprintf(tw, "%s\t%t\t%t\t%s\n", h.Tag, h.Enabled, h.VerifySSL, h.URL)
			}
			return tw.Flush()
		},
	}
}

func webhookRegisterCmd(opts *webhookOpts) *cobra.Command {
	var (
		url      string
		tag      string
		secret   string
		disabled bool
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create or replace the webhook for a tag",
		Long: `Register the backend's webhook URL on the form. Typeform keys webhooks
by tag, so registering an existing tag replaces it. The signing secret
defaults to TYPEFORM_WEBHOOK_SECRET.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
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

			hook, err := client.RegisterWebhook(cmd.Context(), typeform.RegisterWebhookParams{
				FormID:    opts.formID,
				Tag:       tag,
				URL:       url,
				Secret:    secret,
				Enabled:   !disabled,
				VerifySSL: strings.HasPrefix(url, "https://"),
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Registered webhook %q on form %s\n", hook.Tag, opts.formID)
			fmt.Fprintf(out, "  URL:     %s\n", hook.URL)
			fmt.Fprintf(out, "  Enabled: %t\n", hook.Enabled)
			if secret == "" {
				fmt.Fprintln(out, "  Warning: no signing secret, deliveries will be unsigned")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Webhook URL (default: BASE_URL/api/webhooks/typeform)")
	cmd.Flags().StringVar(&tag, "tag", "roi-audit", "Webhook tag")
	cmd.Flags().StringVar(&secret, "secret", "", "Signing secret (default: TYPEFORM_WEBHOOK_SECRET)")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Register the webhook disabled")

	return cmd
}
