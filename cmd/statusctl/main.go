// Command statusctl queries and manages a status overview API.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	apiBase string
	apiKey  string
	timeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "statusctl",
	Short:         "Query monitor status and manage monitors",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiBase, "api", envOr("API_BASE", "http://localhost:8080"), "API base URL (or set API_BASE env)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "key", os.Getenv("API_KEY"), "API key (or set API_KEY env)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")

	overviewCmd.Flags().StringSlice("locations", nil, "Location allow-list (default: server default)")
	overviewCmd.Flags().String("from", "", "Range start, RFC3339 or relative like -15m")
	overviewCmd.Flags().String("to", "", "Range end, RFC3339 or relative")
	overviewCmd.Flags().Bool("json", false, "Print the raw JSON report")

	monitorsAddCmd.Flags().String("name", "", "Display name")
	monitorsAddCmd.Flags().StringSlice("locations", nil, "Locations the monitor runs from")
	monitorsAddCmd.Flags().String("query-id", "", "Query id (default: generated)")
	monitorsAddCmd.Flags().Bool("disabled", false, "Register the monitor disabled")

	monitorsCmd.AddCommand(monitorsListCmd)
	monitorsCmd.AddCommand(monitorsAddCmd)
	rootCmd.AddCommand(overviewCmd)
	rootCmd.AddCommand(monitorsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func envOr(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}
