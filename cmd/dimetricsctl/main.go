// dimetricsctl is a CLI for reading and writing Dimetrics entries with the
// same filter and aggregation language the MCP tools accept.
//
// Installation:
//
//	go build -o dimetricsctl ./cmd/dimetricsctl
//	mv dimetricsctl /usr/local/bin/
//
// Usage:
//
//	dimetricsctl entries list orders --filter '{"state":{"_eq":"ok"}}'
//	dimetricsctl entries list lau6_RunEntries --aggregate '{"sum":"distance_km"}' -o json
//	dimetricsctl entries get orders 3f2a...
//	dimetricsctl entries create orders --data '{"name":"Canva Pro","amount":27.5}'
//	dimetricsctl entries update orders 3f2a... --data '{"state":"completed"}'
//	dimetricsctl entries delete orders 3f2a... --yes
//	dimetricsctl health
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	outputFmt string
	envFile   string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dimetricsctl",
		Short: "Query and edit Dimetrics entries",
		Long: `dimetricsctl talks to the Dimetrics API directly.

Connection settings are read from DIMETRICS_API_URL, DIMETRICS_API_KEY,
DIMETRICS_SESSION_COOKIE and DIMETRICS_TIMEOUT, or from a .env file.
JSON output matches the data returned by the MCP tools.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional .env file with DIMETRICS_* settings")

	rootCmd.AddCommand(entriesCmd())
	rootCmd.AddCommand(healthCmd())
	return rootCmd
}
