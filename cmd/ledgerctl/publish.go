package main

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ledgerbook/internal/config"
	"ledgerbook/internal/logger"
	"ledgerbook/internal/pipeline"
)

// publishCmd publishes a report through a running API using the pipeline
// key. Schedule it with cron or a Kubernetes CronJob.
func publishCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("ledgerctl")

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a report snapshot through the pipeline endpoint",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			apiKey := v.GetString("api-key")
			if apiKey == "" {
				apiKey = config.Get().PipelineAPIKey
			}

			client := pipeline.NewClient(v.GetString("api-url"), apiKey, &http.Client{Timeout: v.GetDuration("timeout")})
			report, err := client.PublishReport(c.Context())
			if err != nil {
				return err
			}

			logger.Get().Infow("Report published",
				"report_id", report.ID,
				"total_income", report.TotalIncome.String(),
				"total_expenses", report.TotalExpenses.String(),
				"balance", report.Balance.String(),
			)
			c.Printf("Published report %s (balance %s)\n", report.ID, report.Balance.StringFixed(2))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("api-url", "http://localhost:8080", "base URL of the ledgerbook API (or LEDGERCTL_API_URL)")
	flags.String("api-key", "", "pipeline API key, defaults to PIPELINE_API_KEY")
	flags.Duration("timeout", 30*time.Second, "request timeout")
	for _, name := range []string{"api-url", "api-key", "timeout"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}
	_ = v.BindEnv("api-url", "LEDGERCTL_API_URL")

	return cmd
}
