package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// HealthResult is the result of the health command.
type HealthResult struct {
	APIURL        string `json:"api_url"`
	Authenticated bool   `json:"authenticated"`
	Reachable     bool   `json:"reachable"`
	Error         string `json:"error,omitempty"`
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check connectivity and authentication against the API",
		Long: `Check that the Dimetrics API is reachable with the configured credentials.

Examples:
  dimetricsctl health
  dimetricsctl health -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := getBackend()
			if err != nil {
				return fmt.Errorf("failed to create client: %w", err)
			}
			res := HealthResult{APIURL: b.BaseURL(), Authenticated: b.Authenticated(), Reachable: true}
			pingErr := b.Ping(cmd.Context())
			if pingErr != nil {
				res.Reachable = false
				res.Error = pingErr.Error()
			}
			if err := outputResult(cmd.OutOrStdout(), res, outputFmt); err != nil {
				return err
			}
			if pingErr != nil {
				return fmt.Errorf("API not reachable: %w", pingErr)
			}
			return nil
		},
	}
}
