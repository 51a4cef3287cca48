package cmd

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

var (
	lifecycleIDs  string
	lifecycleUser string
)

func lifecycleRun(path, verb string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := requireTenant(); err != nil {
			return err
		}
		if lifecycleIDs == "" {
			return fmt.Errorf("--ids is required")
		}

		params := url.Values{}
		params.Set("alertIds", lifecycleIDs)
		if lifecycleUser != "" {
			params.Set("user", lifecycleUser)
		}

		var result countResult
		if err := apiRequest("PUT", path, params, &result); err != nil {
			return err
		}
		fmt.Printf("%s %d alert(s)\n", verb, result.Count)
		return nil
	}
}

var ackCmd = &cobra.Command{
	Use:   "ack",
	Short: "Acknowledge alerts",
	Long: `Acknowledge open alerts. Acknowledging an already acknowledged
alert is a no-op.

Example:
  njarctl ack --tenant acme --ids alert-1,alert-2 --user oncall`,
	RunE: lifecycleRun("/api/v1/alerts/ack", "Acknowledged"),
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve alerts",
	Long: `Mark alerts as resolved.

Example:
  njarctl resolve --tenant acme --ids alert-1 --user oncall`,
	RunE: lifecycleRun("/api/v1/alerts/resolve", "Resolved"),
}

var reopenCmd = &cobra.Command{
	Use:   "reopen",
	Short: "Reopen alerts",
	Long: `Move acknowledged or resolved alerts back to open.

Example:
  njarctl reopen --tenant acme --ids alert-1 --user oncall`,
	RunE: lifecycleRun("/api/v1/alerts/open", "Reopened"),
}

func init() {
	for _, c := range []*cobra.Command{ackCmd, resolveCmd, reopenCmd} {
		c.Flags().StringVar(&lifecycleIDs, "ids", "", "comma-separated alert ids")
		c.Flags().StringVar(&lifecycleUser, "user", "", "user recorded in the lifecycle ledger")
		rootCmd.AddCommand(c)
	}
}
