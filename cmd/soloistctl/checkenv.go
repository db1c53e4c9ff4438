package main

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// envKeys are reported as present or missing. Values are never printed.
var envKeys = []string{
	"DB_URL",
	"JWT_SECRET",
	"STRIPE_SECRET_KEY",
	"STRIPE_WEBHOOK_SECRET",
	"STRIPE_PUBLISHABLE_KEY",
	"STRIPE_PRICE_IDS",
	"HOSTING_URL",
	"GITHUB_CLIENT_ID",
	"GITHUB_CLIENT_SECRET",
	"OIDC_ISSUER_URL",
	"OIDC_CLIENT_ID",
	"KAFKA_BROKERS",
}

func checkEnvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-env",
		Short: "Report which settings are present in the environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			missing := writeEnvReport(cmd.OutOrStdout(), os.LookupEnv)
			if missing > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%d setting(s) missing\n", missing)
			}
			return nil
		},
	}
}

func writeEnvReport(w io.Writer, lookup func(string) (string, bool)) int {
	missing := 0
	for _, key := range envKeys {
		v, ok := lookup(key)
		present := ok && v != ""
		if !present {
			missing++
		}
		fmt.Fprintf(w, "%-24s %t\n", key, present)
	}
	return missing
}
